package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Source supplies one lead-time slice of a gridded forecast.
type Source interface {
	// Name identifies the source in logs and health output.
	Name() string

	// FetchGrid reads the grid for a single lead time.
	FetchGrid(ctx context.Context, leadTime int) (*Grid, error)
}

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	// Source is the gridded forecast source.
	Source Source

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a decoded grid is served from cache (default: 15 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale grids on source errors (default: 6 hours).
	StaleIfErrorTTL time.Duration

	// Recorder observes fetches and cache lookups. Optional.
	Recorder Recorder
}

// Recorder observes grid fetches and cache lookups.
type Recorder interface {
	RecordFetch(ctx context.Context, source string, leadTime int, d time.Duration, err error)
	RecordCacheLookup(ctx context.Context, source string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(context.Context, string, int, time.Duration, error) {}
func (nopRecorder) RecordCacheLookup(context.Context, string, bool) {}

// Service reads forecast grids through an explicit cache and builds tables.
type Service struct {
	source          Source
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	recorder        Recorder

	mu    sync.RWMutex
	grids map[int]*cachedGrid
}

type cachedGrid struct {
	grid      *Grid
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new forecast service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 6 * time.Hour
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Service{
		source:          cfg.Source,
		recorder:        recorder,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		grids:           make(map[int]*cachedGrid),
	}
}

// Grid returns the grid for leadTime, from cache when fresh.
func (s *Service) Grid(ctx context.Context, leadTime int) (*Grid, error) {
	s.mu.RLock()
	if c, ok := s.grids[leadTime]; ok && time.Now().Before(c.expiresAt) {
		s.mu.RUnlock()
		s.recorder.RecordCacheLookup(ctx, s.source.Name(), true)
		return c.grid, nil
	}
	s.mu.RUnlock()
	s.recorder.RecordCacheLookup(ctx, s.source.Name(), false)

	return s.refreshGrid(ctx, leadTime)
}

// Table crops the grids for leadTimes to box and concatenates them in
// ascending lead-time order. Each call returns its own row storage.
func (s *Service) Table(ctx context.Context, leadTimes []int, box *BoundingBox) (Table, error) {
	grids := make([]*Grid, 0, len(leadTimes))
	for _, lead := range leadTimes {
		g, err := s.Grid(ctx, lead)
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}
	return BuildTable(grids, box)
}

// Warm fetches every lead time into the cache, stopping at the first error.
func (s *Service) Warm(ctx context.Context, leadTimes []int) error {
	for _, lead := range leadTimes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.refreshGrid(ctx, lead); err != nil {
			return fmt.Errorf("warm lead time %d: %w", lead, err)
		}
	}
	return nil
}

// InvalidateCache drops every cached grid.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids = make(map[int]*cachedGrid)
}

// CacheStatus represents the current state of the grid cache.
type CacheStatus struct {
	Source    string
	LeadTimes []int
	Expired   []int
	OldestAt  time.Time
}

// HasData reports whether any grid is cached.
func (c CacheStatus) HasData() bool {
	return len(c.LeadTimes) > 0
}

// CacheStatus returns information about the current cache state.
func (s *Service) CacheStatus() CacheStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := CacheStatus{Source: s.source.Name()}
	now := time.Now()
	for lead, c := range s.grids {
		status.LeadTimes = append(status.LeadTimes, lead)
		if now.After(c.expiresAt) {
			status.Expired = append(status.Expired, lead)
		}
		if status.OldestAt.IsZero() || c.fetchedAt.Before(status.OldestAt) {
			status.OldestAt = c.fetchedAt
		}
	}
	return status
}

// refreshGrid fetches a grid from the source, falling back to a stale copy
// when the source fails.
func (s *Service) refreshGrid(ctx context.Context, leadTime int) (*Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if c, ok := s.grids[leadTime]; ok && time.Now().Before(c.expiresAt) {
		return c.grid, nil
	}

	s.logger.Debug().Int("lead_time", leadTime).Msg("fetching forecast grid")

	start := time.Now()
	grid, err := s.source.FetchGrid(ctx, leadTime)
	if err == nil {
		err = grid.Validate()
	}
	s.recorder.RecordFetch(ctx, s.source.Name(), leadTime, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Int("lead_time", leadTime).Msg("failed to fetch forecast grid")

		if c, ok := s.grids[leadTime]; ok && time.Now().Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Int("lead_time", leadTime).
				Time("fetched_at", c.fetchedAt).
				Msg("serving stale forecast grid due to source error")
			return c.grid, nil
		}

		return nil, fmt.Errorf("%w: %s lead time %d: %v", ErrSourceUnavailable, s.source.Name(), leadTime, err)
	}

	// Lead time follows the request, whatever the source stamped on it.
	grid.LeadTime = leadTime

	now := time.Now()
	s.grids[leadTime] = &cachedGrid{
		grid:      grid,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.logger.Info().
		Str("source", s.source.Name()).
		Int("lead_time", leadTime).
		Int("latitudes", len(grid.Latitudes)).
		Int("longitudes", len(grid.Longitudes)).
		Msg("forecast grid refreshed")

	return grid, nil
}
