// Package datastoretest builds adapters backed by a throwaway SQLite
// database for repository and service tests.
package datastoretest

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
	pkglogger "github.com/CodingTam/requesthtml/pkg/logger"
)

// NewSQLite opens an in-memory SQLite database with the schema migrated.
// The pool is pinned to one connection so every query sees the same
// database.
func NewSQLite(opts ...datastore.Option) (*datastore.Adapter, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := datastore.Migrate(context.Background(), sqlDB, internal.DriverSQLite, false); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	base := []datastore.Option{
		datastore.WithGorm(gdb),
		datastore.WithSQLX(sqlx.NewDb(sqlDB, "sqlite3"), internal.DriverSQLite),
		datastore.WithLogger(pkglogger.Discard()),
	}
	return datastore.New(append(base, opts...)...), nil
}

// NewFallbackOnly returns an adapter with no primary store.
func NewFallbackOnly(opts ...memory.Option) *datastore.Adapter {
	return datastore.New(
		datastore.WithLogger(pkglogger.Discard()),
		datastore.WithMemoryOptions(opts...),
	)
}

// Broken returns an adapter whose primary is closed, so every primary call
// fails and is served by the fallback.
func Broken(opts ...datastore.Option) (*datastore.Adapter, error) {
	a, err := NewSQLite(opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Close(); err != nil {
		return nil, err
	}
	return a, nil
}
