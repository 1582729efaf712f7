package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/middleware"
)

// RouterConfig carries everything the HTTP surface is assembled from.
type RouterConfig struct {
	Logger    *slog.Logger
	Metrics   metrics.Recorder
	Snapshots metrics.Snapshotter
	Gate      *auth.Gate

	Users     *UserHandler
	Incidents *IncidentHandler
	Health    *HealthHandler

	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	h := New()
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimiddleware.StripSlashes)
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	// Probes and metrics (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", NewMetricsHandler(cfg.Snapshots).Metrics)

	// Public account endpoints
	r.Post("/register", cfg.Users.Register)
	r.Post("/login", cfg.Users.Login)

	authCfg := middleware.AuthConfig{
		Logger:  cfg.Logger,
		Gate:    cfg.Gate,
		Metrics: cfg.Metrics,
	}
	roleCfg := middleware.RoleConfig{
		Logger:  cfg.Logger,
		Gate:    cfg.Gate,
		Metrics: cfg.Metrics,
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.Get("/me", cfg.Users.Me)
		r.Put("/me", cfg.Users.UpdateMe)
		r.With(middleware.RequireAdmin(roleCfg)).Get("/admin/ping", cfg.Users.AdminPing)

		r.Route("/incidentes", func(r chi.Router) {
			r.Get("/", cfg.Incidents.List)
			r.Post("/", cfg.Incidents.Create)
			r.Get("/{id}", cfg.Incidents.Get)
			r.Put("/{id}", cfg.Incidents.Update)
			r.With(middleware.RequireAdmin(roleCfg)).Delete("/{id}", cfg.Incidents.Delete)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
