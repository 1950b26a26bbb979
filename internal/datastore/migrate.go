package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CodingTam/requesthtml/db/migrations"
	"github.com/CodingTam/requesthtml/internal"
	"github.com/pressly/goose/v3"
)

const migrationsTable = "schema_migrations"

// Migrate applies the embedded goose migrations for driver, or rolls back
// the latest one.
func Migrate(ctx context.Context, db *sql.DB, driver string, rollback bool) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrationsTable)

	dialect := "sqlite3"
	if driver == internal.DriverPostgres {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	dir := migrations.Dir(driver)
	if rollback {
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Migrate runs the migrations against the adapter's primary store.
func (a *Adapter) Migrate(ctx context.Context, rollback bool) error {
	if a.sqlx == nil || !a.PrimaryAvailable() {
		return internal.NewBackendUnavailableError("migrate", ErrPrimaryUnavailable)
	}
	return Migrate(ctx, a.sqlx.DB, a.driver, rollback)
}
