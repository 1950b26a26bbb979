package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodingTam/requesthtml/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects the primary store described by cfg. When the connection or
// the startup probe fails and the fallback is enabled, the returned adapter
// serves everything from memory instead of failing.
func Open(ctx context.Context, cfg internal.DatabaseConfig, lg *slog.Logger, opts ...Option) (*Adapter, error) {
	base := []Option{
		WithLogger(lg),
		WithTimeout(cfg.QueryTimeout),
		WithFallback(cfg.FallbackEnabled),
	}

	gdb, err := openGorm(cfg)
	if err != nil {
		if !cfg.FallbackEnabled {
			return nil, err
		}
		lg.Warn("primary store unavailable at startup, serving from memory", "driver", cfg.Driver, "error", err)
		a := New(append(base, opts...)...)
		a.available.Store(false)
		return a, nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	base = append(base, WithGorm(gdb), WithSQLX(sqlx.NewDb(sqlDB, sqlxDriverName(cfg.Driver)), cfg.Driver))
	a := New(append(base, opts...)...)

	if err := a.Probe(ctx); err != nil {
		if !cfg.FallbackEnabled {
			_ = a.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		lg.Warn("primary store probe failed, serving from memory", "driver", cfg.Driver, "error", err)
	}

	return a, nil
}

func openGorm(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	switch cfg.Driver {
	case internal.DriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case internal.DriverSQLite, "":
		dsn, err := sqliteDSN(cfg.GetDSN())
		if err != nil {
			return nil, err
		}
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN creates the parent directory of a file database and adds the
// busy timeout.
func sqliteDSN(source string) (string, error) {
	if source == ":memory:" || strings.HasPrefix(source, "file:") {
		return source, nil
	}
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		return "", fmt.Errorf("mkdir db dir: %w", err)
	}
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "_busy_timeout=5000", nil
}

func sqlxDriverName(driver string) string {
	if driver == internal.DriverPostgres {
		return "pgx"
	}
	return "sqlite3"
}
