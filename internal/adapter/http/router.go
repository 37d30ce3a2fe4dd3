package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/captable/internal/adapter/http/handler"
	"github.com/iho/captable/internal/adapter/http/middleware"
	"github.com/iho/captable/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	CapTableHandler  *handler.CapTableHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.AllowContentType("application/json"))

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/companies/{companyID}/captable", func(r chi.Router) {
			r.Get("/", cfg.CapTableHandler.Summary)
			r.Post("/recalculate", cfg.CapTableHandler.Recalculate)
			r.Get("/validate", cfg.CapTableHandler.Validate)

			r.Route("/stakeholders", func(r chi.Router) {
				r.Post("/", cfg.CapTableHandler.AddStakeholder)
				r.Put("/{id}", cfg.CapTableHandler.UpdateEquity)
				r.Delete("/{id}", cfg.CapTableHandler.RemoveStakeholder)
			})
		})
	})

	return r
}
