package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/CodingTam/requesthtml/api"
	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/analytics"
	analyticsRepository "github.com/CodingTam/requesthtml/internal/analytics/repository"
	"github.com/CodingTam/requesthtml/internal/auth"
	"github.com/CodingTam/requesthtml/internal/core/events"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/ledger"
	ledgerRepository "github.com/CodingTam/requesthtml/internal/ledger/repository"
	"github.com/CodingTam/requesthtml/internal/notifier"
	"github.com/CodingTam/requesthtml/internal/request"
	requestRepository "github.com/CodingTam/requesthtml/internal/request/repository"
	"github.com/CodingTam/requesthtml/internal/transport/middleware"
	"github.com/CodingTam/requesthtml/internal/transport/rest"
	"github.com/CodingTam/requesthtml/internal/transport/swagger"
	"github.com/CodingTam/requesthtml/internal/user"
	userRepository "github.com/CodingTam/requesthtml/internal/user/repository"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		return startHTTPServer(cmd.Context(), cfg)
	},
}

type Dependencies struct {
	Config   *internal.Config
	Store    *datastore.Adapter
	Router   *chi.Mux
	Registry *prometheus.Registry
	Bus      *events.EventBus
	Notifier *notifier.Client
	Logger   *slog.Logger
}

func startHTTPServer(ctx context.Context, cfg *internal.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := newRegistry()
	store, err := openStore(ctx, cfg, logger.LoggerWrapper(), datastore.WithMetrics(datastore.NewMetrics(reg)))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := initializeDependencies(ctx, cfg, store, reg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", addr, "database_mode", store.Mode(), "driver", store.Driver())
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Logger.Info("server stopped")
	return nil
}

// openStore connects the primary (falling back to memory when allowed) and
// applies migrations when auto_migrate is on.
func openStore(ctx context.Context, cfg *internal.Config, lg *slog.Logger, opts ...datastore.Option) (*datastore.Adapter, error) {
	store, err := datastore.Open(ctx, cfg.Database, lg, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate && store.PrimaryAvailable() {
		if err := store.Migrate(ctx, false); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return store, nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// initializeDependencies wires every service onto store and builds the
// router. Close releases store.
func initializeDependencies(ctx context.Context, cfg *internal.Config, store *datastore.Adapter, reg *prometheus.Registry) (*Dependencies, error) {
	lg := logger.LoggerWrapper()

	deps := &Dependencies{
		Config:   cfg,
		Store:    store,
		Registry: reg,
		Bus:      events.NewEventBus(lg),
		Logger:   lg,
	}

	if cfg.Notifications.WebhookURL != "" {
		deps.Notifier = notifier.NewClient(notifier.Config{
			WebhookURL: cfg.Notifications.WebhookURL,
			Timeout:    cfg.Notifications.Timeout,
			MaxWorkers: cfg.Notifications.MaxWorkers,
			QueueSize:  cfg.Notifications.QueueSize,
		}, lg, notifier.WithRegisterer(reg))
		deps.Notifier.Subscribe(deps.Bus)
	}

	docs, err := swagger.Load(ctx, api.OpenAPI)
	if err != nil {
		return nil, err
	}

	users := userRepository.NewUserRepository(store)
	userService := user.NewService(users, lg)

	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(users, tokens, cfg.Security.BCryptCost, lg)

	history := ledger.NewService(ledgerRepository.NewHistoryRepository(store), lg)
	requestService := request.NewService(
		requestRepository.NewRequestRepository(store),
		users,
		history,
		lg,
		request.WithMetrics(request.NewMetrics(reg)),
		request.WithPublisher(deps.Bus),
	)

	analyticsService := analytics.NewService(analyticsRepository.NewSnapshotRepository(store), lg)

	opts := rest.Options{
		Logger:           lg,
		AllowedOrigins:   cfg.Server.Origins(),
		EnforceAdminAuth: cfg.Security.EnforceAdminAuth,
		AuthLimiter:      middleware.NewRateLimiter(cfg.Security.AuthRateLimit, cfg.Security.AuthRateBurst),
	}
	if cfg.Observability.Metrics.Enabled {
		opts.HTTPMetrics = middleware.NewHTTPMetrics(reg)
		opts.MetricsPath = cfg.Observability.Metrics.Path
		opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	deps.Router = chi.NewRouter()
	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Auth:      auth.NewHandler(authService),
		User:      user.NewHandler(userService),
		Request:   request.NewHandler(requestService),
		Analytics: analytics.NewHandler(analyticsService),
		Health:    rest.NewHealthHandler(store, lg),
		Docs:      docs,
	}, opts)

	return deps, nil
}

// Close drains in-flight events, stops the notifier and closes the store.
func (d *Dependencies) Close() {
	d.Bus.Wait()
	if d.Notifier != nil {
		d.Notifier.Shutdown()
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}
