package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/analytics"
	"github.com/CodingTam/requesthtml/internal/auth"
	"github.com/CodingTam/requesthtml/internal/request"
	"github.com/CodingTam/requesthtml/internal/transport"
	"github.com/CodingTam/requesthtml/internal/transport/middleware"
	"github.com/CodingTam/requesthtml/internal/transport/swagger"
	"github.com/CodingTam/requesthtml/internal/user"
)

type Handlers struct {
	Auth      *auth.Handler
	User      *user.Handler
	Request   *request.Handler
	Analytics *analytics.Handler
	Health    *HealthHandler
	Docs      *swagger.Docs
}

type Options struct {
	Logger           *slog.Logger
	AllowedOrigins   []string
	EnforceAdminAuth bool
	// AuthLimiter throttles login and registration per client IP. Nil
	// disables throttling.
	AuthLimiter    *middleware.RateLimiter
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsPath    string
	MetricsHandler http.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.HTTPMetrics != nil {
		router.Use(opts.HTTPMetrics.Middleware)
	}

	base := transport.NewBaseHandler(opts.Logger)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.HandleServiceError(w, internal.NewNotFoundError("Route not found", internal.ErrCodeNotFound))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		base.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if h.Docs != nil {
		router.Get(swagger.DocumentPath, h.Docs.Serve)
		router.Handle("/swagger/*", swagger.Handler())
	}
	if opts.MetricsHandler != nil && opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, opts.MetricsHandler)
	}

	router.Route("/api", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Analytics != nil {
			r.Get("/statistics", h.Analytics.GetStatistics)
		}

		if h.Auth != nil {
			r.Route("/auth", func(ar chi.Router) {
				if opts.AuthLimiter != nil {
					ar.Use(opts.AuthLimiter.Middleware)
				}
				ar.Post("/login", h.Auth.Login)
				ar.Post("/register", h.Auth.Register)
			})
		}

		if h.Request != nil {
			r.Route("/requests", func(rr chi.Router) {
				if h.Auth != nil {
					rr.Use(h.Auth.AuthMiddleware(false))
				}
				rr.Post("/", h.Request.CreateRequest)
				rr.Get("/", h.Request.ListRequests)
				rr.Get("/{id}/history", h.Request.GetHistory)
			})
		}

		r.Route("/admin", func(ad chi.Router) {
			if h.Auth != nil {
				ad.Use(h.Auth.AuthMiddleware(opts.EnforceAdminAuth))
			}

			if h.Request != nil {
				ad.Put("/requests/{id}/status", h.Request.UpdateStatus)
			}
			if h.Analytics != nil {
				ad.Get("/analytics", h.Analytics.GetOverview)
				ad.Get("/status-history", h.Analytics.GetStatusSummary)
				ad.Get("/recent-activity", h.Analytics.GetRecentActivity)
				ad.Get("/trends", h.Analytics.GetTrends)
			}
			if h.User != nil {
				ad.Get("/users", h.User.ListUsers)
				ad.Put("/users/{id}/status", h.User.UpdateUserStatus)
			}
		})
	})
}
