package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations against the configured database",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := setup()
	if err != nil {
		return err
	}

	// migrations must reach the real database, never the memory store
	cfg.Database.FallbackEnabled = false
	store, err := datastore.Open(ctx, cfg.Database, logger.LoggerWrapper())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx, migrateRollback); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	direction := "up"
	if migrateRollback {
		direction = "down"
	}
	logger.LoggerWrapper().Info("migrations applied", "direction", direction, "driver", cfg.Database.Driver)
	return nil
}
