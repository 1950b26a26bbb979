// Package datastore routes persistence calls to the primary SQL store and
// re-runs them on the in-memory fallback when the primary fails.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
	"github.com/CodingTam/requesthtml/pkg/logger"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
)

// Row is one result row keyed by column name. Cells are raw driver values
// with []byte converted to string.
type Row map[string]any

var ErrPrimaryUnavailable = errors.New("primary store is not available")

type Adapter struct {
	gorm   *gorm.DB
	sqlx   *sqlx.DB
	driver string

	memoryOnce sync.Once
	memory     *memory.Store
	memoryOpts []memory.Option

	timeout         time.Duration
	fallbackEnabled bool
	available       atomic.Bool
	fellBack        atomic.Bool
	logger          *slog.Logger
	metrics         *Metrics
}

type Option func(*Adapter)

func WithGorm(db *gorm.DB) Option {
	return func(a *Adapter) {
		a.gorm = db
	}
}

// WithSQLX sets the raw query handle. driver selects the bind style and the
// durability hint.
func WithSQLX(db *sqlx.DB, driver string) Option {
	return func(a *Adapter) {
		a.sqlx = db
		a.driver = driver
	}
}

func WithMemory(store *memory.Store) Option {
	return func(a *Adapter) {
		a.memory = store
	}
}

func WithMemoryOptions(opts ...memory.Option) Option {
	return func(a *Adapter) {
		a.memoryOpts = append(a.memoryOpts, opts...)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

func WithFallback(enabled bool) Option {
	return func(a *Adapter) {
		a.fallbackEnabled = enabled
	}
}

// New builds an adapter. The primary counts as available when a gorm or
// sqlx handle was supplied; Open refines this with a startup probe.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		timeout:         5 * time.Second,
		fallbackEnabled: true,
		driver:          internal.DriverSQLite,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.LoggerWrapper()
	}
	a.available.Store(a.gorm != nil || a.sqlx != nil)
	return a
}

func (a *Adapter) Gorm() *gorm.DB {
	return a.gorm
}

// DB returns the gorm handle bound to ctx, or ErrPrimaryUnavailable so the
// caller falls through to the memory store.
func (a *Adapter) DB(ctx context.Context) (*gorm.DB, error) {
	if a.gorm == nil {
		return nil, ErrPrimaryUnavailable
	}
	return a.gorm.WithContext(ctx), nil
}

func (a *Adapter) SQLX() *sqlx.DB {
	return a.sqlx
}

func (a *Adapter) Driver() string {
	return a.driver
}

func (a *Adapter) Logger() *slog.Logger {
	return a.logger
}

// Memory returns the fallback store, creating it on first use.
func (a *Adapter) Memory() *memory.Store {
	a.memoryOnce.Do(func() {
		if a.memory == nil {
			a.memory = memory.New(a.memoryOpts...)
		}
	})
	return a.memory
}

func (a *Adapter) PrimaryAvailable() bool {
	return a.available.Load()
}

func (a *Adapter) Mode() Mode {
	if a.PrimaryAvailable() {
		return ModePrimary
	}
	return ModeFallback
}

// Probe pings the primary and updates its availability.
func (a *Adapter) Probe(ctx context.Context) error {
	if a.sqlx == nil {
		a.available.Store(a.gorm != nil)
		if a.gorm == nil {
			return ErrPrimaryUnavailable
		}
		return nil
	}

	pctx, cancel := internal.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.sqlx.PingContext(pctx)
	a.available.Store(err == nil)
	return err
}

func (a *Adapter) Close() error {
	if a.sqlx != nil {
		return a.sqlx.Close()
	}
	if a.gorm != nil {
		sqlDB, err := a.gorm.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Query runs sql on the primary store with driver-level parameter binding.
// Placeholders are written as '?' and rebound for the active driver.
func (a *Adapter) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	if a.sqlx == nil || !a.PrimaryAvailable() {
		return nil, internal.NewBackendUnavailableError("query", ErrPrimaryUnavailable)
	}

	qctx, cancel := internal.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.sqlx.QueryxContext(qctx, a.sqlx.Rebind(query), args...)
	if err != nil {
		return nil, internal.NewBackendUnavailableError("query", err)
	}
	defer rows.Close()

	result := make([]Row, 0)
	for rows.Next() {
		raw := make(map[string]any)
		if err := rows.MapScan(raw); err != nil {
			return nil, internal.NewBackendUnavailableError("query", err)
		}
		row := make(Row, len(raw))
		for k, v := range raw {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[k] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, internal.NewBackendUnavailableError("query", err)
	}
	return result, nil
}

// Exec runs a mutating statement on the primary and returns the affected
// row count. A successful call is followed by the durability hint.
func (a *Adapter) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if a.sqlx == nil || !a.PrimaryAvailable() {
		return 0, internal.NewBackendUnavailableError("exec", ErrPrimaryUnavailable)
	}

	qctx, cancel := internal.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.sqlx.ExecContext(qctx, a.sqlx.Rebind(query), args...)
	if err != nil {
		return 0, internal.NewBackendUnavailableError("exec", err)
	}

	a.syncHint(ctx)

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("exec: rows affected: %w", err)
	}
	return affected, nil
}

// syncHint forces write-through on SQLite. Failures are logged only.
func (a *Adapter) syncHint(ctx context.Context) {
	if a.driver != internal.DriverSQLite {
		return
	}

	hctx, cancel := internal.WithTimeout(ctx, a.timeout)
	defer cancel()

	var err error
	switch {
	case a.sqlx != nil:
		_, err = a.sqlx.ExecContext(hctx, "PRAGMA synchronous = FULL")
	case a.gorm != nil:
		err = a.gorm.WithContext(hctx).Exec("PRAGMA synchronous = FULL").Error
	default:
		return
	}
	if err != nil {
		a.logger.Warn("durability hint failed", "error", err)
	}
}

type opKind int

const (
	opRead opKind = iota
	opLookup
	opWrite
)

// Read runs primary and falls back to fallback on a primary failure.
func Read[T any](ctx context.Context, a *Adapter, operation string, primary func(context.Context) (T, error), fallback func(*memory.Store) (T, error)) (T, error) {
	return run(ctx, a, operation, opRead, primary, fallback)
}

// Lookup is Read for fetching one row by key. Once the fallback has served
// any operation, a not-found answer from the primary is checked against the
// fallback too, so rows written there during an outage stay reachable.
func Lookup[T any](ctx context.Context, a *Adapter, operation string, primary func(context.Context) (T, error), fallback func(*memory.Store) (T, error)) (T, error) {
	return run(ctx, a, operation, opLookup, primary, fallback)
}

// Write is Read for mutations: a primary success is followed by the
// durability hint.
func Write[T any](ctx context.Context, a *Adapter, operation string, primary func(context.Context) (T, error), fallback func(*memory.Store) (T, error)) (T, error) {
	return run(ctx, a, operation, opWrite, primary, fallback)
}

func run[T any](ctx context.Context, a *Adapter, operation string, kind opKind, primary func(context.Context) (T, error), fallback func(*memory.Store) (T, error)) (T, error) {
	var zero T

	switch {
	case pinnedTo(ctx) == ModeFallback:
	case a.PrimaryAvailable():
		pctx, cancel := internal.WithTimeout(ctx, a.timeout)
		v, err := primary(pctx)
		cancel()

		if err == nil {
			if kind == opWrite {
				a.syncHint(ctx)
			}
			markServed(ctx, ModePrimary)
			return v, nil
		}

		if isLogical(err) {
			if kind == opLookup && isNotFound(err) && a.fellBack.Load() {
				if v, ferr := fallback(a.Memory()); ferr == nil {
					a.metrics.observeFallback(operation)
					markServed(ctx, ModeFallback)
					return v, nil
				}
			}
			markServed(ctx, ModePrimary)
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", operation, ctx.Err())
		}

		backendErr := internal.NewBackendUnavailableError(operation, err)
		if !a.fallbackEnabled {
			return zero, backendErr
		}

		a.logger.Warn("primary store failed, using fallback", "operation", operation, "error", backendErr)
	case !a.fallbackEnabled:
		return zero, internal.NewBackendUnavailableError(operation, ErrPrimaryUnavailable)
	}

	a.fellBack.Store(true)
	a.metrics.observeFallback(operation)
	markServed(ctx, ModeFallback)
	return fallback(a.Memory())
}

func isNotFound(err error) bool {
	appErr, ok := internal.IsAppError(err)
	return ok && appErr.Type == internal.ErrorTypeNotFound
}

// isLogical reports errors that are answers rather than backend failures.
func isLogical(err error) bool {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case internal.ErrorTypeNotFound, internal.ErrorTypeConflict, internal.ErrorTypeValidation:
		return true
	}
	return false
}
