// Package main provides the entrypoint for the dosecast refresh worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/config"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/forecast/netcdf"
	"github.com/breatheroute/dosecast/internal/telemetry"
	"github.com/breatheroute/dosecast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "dosecast-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting dosecast worker")

	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	forecastMetrics, err := telemetry.NewForecastMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize forecast metrics")
	}

	source, _, err := netcdf.Open(netcdf.Options{
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

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			LeadTimes: cfg.Forecast.LeadTimes,
			Timeout:   cfg.Forecast.Timeout,
		},
		Cache:  forecastService,
		Logger: log,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:              cfg.PubSub.ProjectID,
		SubscriptionName:       cfg.PubSub.SubscriptionID,
		MaxOutstandingMessages: cfg.PubSub.MaxOutstandingMessages,
		NumGoroutines:          cfg.PubSub.NumGoroutines,
		Dispatcher:             worker.NewDispatcher(refreshJob, log),
		Logger:                 log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}()

	// Worker exposes a health endpoint for Cloud Run.
	mux := chi.NewRouter()
	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"refresh": refreshJob.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Worker.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pubsub receive stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
