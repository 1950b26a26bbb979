package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the demo accounts and request",
	Long:  `Insert the demo admin, the demo user and their sample request. Existing rows are kept unless --clear is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := setup()
		if err != nil {
			return err
		}

		cfg.Database.FallbackEnabled = false
		store, err := openStore(ctx, cfg, logger.LoggerWrapper())
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer store.Close()

		report, err := seedDatabase(ctx, store, time.Now(), clearData)
		if err != nil {
			return err
		}
		logger.LoggerWrapper().Info("seed complete",
			"users_created", report.UsersCreated,
			"users_skipped", report.UsersSkipped,
			"requests_created", report.RequestsCreated,
			"requests_skipped", report.RequestsSkipped)
		return nil
	},
}

type SeedReport struct {
	UsersCreated    int
	UsersSkipped    int
	RequestsCreated int
	RequestsSkipped int
}

// seedDatabase writes memory.DefaultSeed into the primary store. Rows whose
// username or request_id already exist are left alone.
func seedDatabase(ctx context.Context, store *datastore.Adapter, now time.Time, clear bool) (SeedReport, error) {
	var report SeedReport

	db, err := store.DB(ctx)
	if err != nil {
		return report, err
	}

	if clear {
		for _, table := range []string{"request_status_history", "requests", "users"} {
			if _, err := store.Exec(ctx, "DELETE FROM "+table); err != nil {
				return report, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	seed := memory.DefaultSeed(now)
	err = db.Transaction(func(tx *gorm.DB) error {
		// seed ids are remapped to whatever the database assigns
		userIDs := make(map[int64]int64, len(seed.Users))
		for _, u := range seed.Users {
			var existing userDatamodel.User
			err := tx.Where("username = ?", u.Username).First(&existing).Error
			switch {
			case err == nil:
				userIDs[u.ID] = existing.ID
				report.UsersSkipped++
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("look up %s: %w", u.Username, err)
			}

			seedID := u.ID
			u.ID = 0
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("insert user %s: %w", u.Username, err)
			}
			userIDs[seedID] = u.ID
			report.UsersCreated++
		}

		for _, r := range seed.Requests {
			var count int64
			if err := tx.Model(&r).Where("request_id = ?", r.RequestID).Count(&count).Error; err != nil {
				return fmt.Errorf("look up %s: %w", r.RequestID, err)
			}
			if count > 0 {
				report.RequestsSkipped++
				continue
			}

			r.ID = 0
			r.UserID = userIDs[r.UserID]
			if err := tx.Create(&r).Error; err != nil {
				return fmt.Errorf("insert request %s: %w", r.RequestID, err)
			}
			report.RequestsCreated++

			for _, e := range seed.History {
				if e.RequestID != r.RequestID {
					continue
				}
				e.ID = 0
				if err := tx.Create(&e).Error; err != nil {
					return fmt.Errorf("insert history for %s: %w", r.RequestID, err)
				}
			}
		}
		return nil
	})
	return report, err
}
