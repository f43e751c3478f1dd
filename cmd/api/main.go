// Package main provides the entrypoint for the dosecast API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/api"
	"github.com/breatheroute/dosecast/internal/api/middleware"
	"github.com/breatheroute/dosecast/internal/config"
	"github.com/breatheroute/dosecast/internal/database"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/forecast/netcdf"
	"github.com/breatheroute/dosecast/internal/region"
	"github.com/breatheroute/dosecast/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "dosecast-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting dosecast API")

	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	forecastMetrics, err := telemetry.NewForecastMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize forecast metrics")
	}
	exposureMetrics, err := telemetry.NewExposureMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize exposure metrics")
	}

	source, registry, err := netcdf.Open(netcdf.Options{
		File: cfg.Forecast.File,
		URL:  cfg.Forecast.URL,
		Layout: netcdf.Layout{
			Variable:  cfg.Forecast.Variable,
			Longitude: cfg.Forecast.LongitudeVar,
			Latitude:  cfg.Forecast.LatitudeVar,
			Level:     cfg.Forecast.Level,
		},
		Timeout:    cfg.Forecast.Timeout,
		MaxRetries: cfg.Forecast.MaxRetries,
		MaxAge:     cfg.Forecast.MaxAge,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open forecast source")
	}
	forecastService := forecast.NewService(forecast.ServiceConfig{
		Source:          source,
		Logger:          log,
		CacheTTL:        cfg.Forecast.CacheTTL,
		StaleIfErrorTTL: cfg.Forecast.StaleTTL,
		Recorder:        forecastMetrics,
	})
	log.Info().
		Str("source", source.Name()).
		Ints("lead_times", cfg.Forecast.LeadTimes).
		Msg("forecast service initialized")

	var boundaries *region.Collection
	if cfg.Region.BoundaryFile != "" {
		boundaries, err = loadBoundaries(cfg.Region.BoundaryFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Region.BoundaryFile).Msg("failed to load region boundaries")
		}
		log.Info().
			Int("features", len(boundaries.Features)).
			Msg("region boundaries loaded")
	} else {
		log.Warn().Msg("no boundary file configured - region crop endpoint disabled")
	}

	var regions region.Repository = region.NewInMemoryRepository()
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		repo := region.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create region schema")
		}
		regions = repo
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("database connected")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         httpMetrics,
		ExposureMetrics: exposureMetrics,
		Forecast:        forecastService,
		LeadTimes:       cfg.Forecast.LeadTimes,
		Boundaries:      boundaries,
		Regions:         regions,
		Registry:        registry,
		RateLimit:       cfg.Server.RateLimit,
		RequireTLS:      cfg.Server.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Initial cache warm-up runs alongside serving.
	warmCtx, stopWarm := context.WithCancel(ctx)
	defer stopWarm()
	go func() {
		if err := forecastService.Warm(warmCtx, cfg.Forecast.LeadTimes); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("initial forecast warm-up failed")
		}
	}()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopWarm()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func loadBoundaries(path string) (*region.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return region.DecodeCollection(f)
}
