package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/breatheroute/dosecast/internal/telemetry"

// ForecastMetrics records grid source fetches and cache lookups.
// It satisfies forecast.Recorder.
type ForecastMetrics struct {
	fetchDuration metric.Float64Histogram
	fetchTotal    metric.Int64Counter
	cacheLookups  metric.Int64Counter
}

// NewForecastMetrics creates forecast instruments on the global meter.
func NewForecastMetrics() (*ForecastMetrics, error) {
	return newForecastMetrics(otel.Meter(meterName))
}

func newForecastMetrics(meter metric.Meter) (*ForecastMetrics, error) {
	fetchDuration, err := meter.Float64Histogram(
		"forecast.grid.fetch.duration",
		metric.WithDescription("Duration of grid reads from the forecast source"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fetchTotal, err := meter.Int64Counter(
		"forecast.grid.fetch.total",
		metric.WithDescription("Grid reads from the forecast source"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"forecast.cache.lookups",
		metric.WithDescription("Grid cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &ForecastMetrics{
		fetchDuration: fetchDuration,
		fetchTotal:    fetchTotal,
		cacheLookups:  cacheLookups,
	}, nil
}

// RecordFetch records one source read.
func (m *ForecastMetrics) RecordFetch(ctx context.Context, source string, leadTime int, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("forecast.source", source),
		attribute.String("forecast.lead_time", strconv.Itoa(leadTime)),
		attribute.Bool("error", err != nil),
	)
	m.fetchDuration.Record(ctx, d.Seconds(), attrs)
	m.fetchTotal.Add(ctx, 1, attrs)
}

// RecordCacheLookup records a cache hit or miss.
func (m *ForecastMetrics) RecordCacheLookup(ctx context.Context, source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("forecast.source", source),
		attribute.String("cache.result", result),
	))
}

// ExposureMetrics records dose computations served by the API and CLI.
type ExposureMetrics struct {
	computations metric.Int64Counter
	dose         metric.Float64Histogram
}

// NewExposureMetrics creates exposure instruments on the global meter.
func NewExposureMetrics() (*ExposureMetrics, error) {
	return newExposureMetrics(otel.Meter(meterName))
}

func newExposureMetrics(meter metric.Meter) (*ExposureMetrics, error) {
	computations, err := meter.Int64Counter(
		"exposure.computations",
		metric.WithDescription("Dose computations by operation and outcome"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	dose, err := meter.Float64Histogram(
		"exposure.dose",
		metric.WithDescription("Cumulative inhaled dose per successful computation"),
	)
	if err != nil {
		return nil, err
	}

	return &ExposureMetrics{computations: computations, dose: dose}, nil
}

// RecordComputation records one computation; dose is only observed on success.
func (m *ExposureMetrics) RecordComputation(ctx context.Context, operation string, dose float64, err error) {
	attrs := metric.WithAttributes(
		attribute.String("exposure.operation", operation),
		attribute.Bool("error", err != nil),
	)
	m.computations.Add(ctx, 1, attrs)
	if err == nil {
		m.dose.Record(ctx, dose, metric.WithAttributes(attribute.String("exposure.operation", operation)))
	}
}
