// Package api provides the HTTP API for dosecast.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/api/handler"
	"github.com/breatheroute/dosecast/internal/api/middleware"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/region"
	"github.com/breatheroute/dosecast/internal/resilience"
	"github.com/breatheroute/dosecast/internal/telemetry"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// ExposureMetrics records dose computations. Optional.
	ExposureMetrics *telemetry.ExposureMetrics

	// Forecast serves grids; nil answers forecast and exposure requests with 503.
	Forecast  *forecast.Service
	LeadTimes []int

	// Boundaries is the collection regions are cropped from. Optional.
	Boundaries *region.Collection
	Regions    region.Repository

	// Registry reports remote source health. Nil for local files.
	Registry *resilience.Registry

	// RateLimit is the per-IP budget for compute endpoints, in requests per
	// minute. Zero disables it.
	RateLimit  int
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "dosecast-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Forecast, cfg.Registry)
	forecastHandler := handler.NewForecastHandler(cfg.Forecast, cfg.LeadTimes, cfg.Logger)
	regionHandler := handler.NewRegionHandler(cfg.Boundaries, cfg.Regions, cfg.Logger)
	exposureHandler := handler.NewExposureHandler(cfg.Forecast, cfg.LeadTimes, cfg.ExposureMetrics, cfg.Logger)

	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit(cfg.RateLimit))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(computeRateLimit)

			r.Get("/forecast/table", forecastHandler.Table)

			r.Post("/regions:crop", regionHandler.Crop)
			r.Get("/regions", regionHandler.List)
			r.Get("/regions/{name}", regionHandler.Get)

			r.Post("/exposure:accumulate", exposureHandler.Accumulate)
			r.Post("/exposure:series", exposureHandler.Series)
		})
	})

	return r
}
