package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cache is the forecast grid cache the job keeps warm. *forecast.Service
// satisfies it.
type Cache interface {
	Warm(ctx context.Context, leadTimes []int) error
	InvalidateCache()
}

// RefreshJob re-reads forecast grids into the cache.
type RefreshJob struct {
	config RefreshConfig
	cache  Cache
	logger zerolog.Logger

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns           int64
	RefreshedGrids      int64
	FailedGrids         int64
	Invalidations       int64
	LastRefreshAt       time.Time
	LastRunDuration     time.Duration
	TotalDuration       time.Duration
	LastFailedLeadTimes []int
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Cache  Cache
	Logger zerolog.Logger
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		cache:   cfg.Cache,
		logger:  cfg.Logger,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Errors     []RefreshError
}

// RefreshError records one lead time that could not be refreshed.
type RefreshError struct {
	LeadTime int
	Error    string
}

// RunOptions tunes a single run.
type RunOptions struct {
	// LeadTimes overrides the configured lead times.
	LeadTimes []int

	// Invalidate drops every cached grid before refreshing.
	Invalidate bool
}

// Run refreshes every lead time. A failed lead time does not stop the
// others; failures are reported in the result.
func (j *RefreshJob) Run(ctx context.Context, opts RunOptions) *RefreshResult {
	leads := opts.LeadTimes
	if len(leads) == 0 {
		leads = j.config.LeadTimes
	}

	startTime := time.Now()
	result := &RefreshResult{StartTime: startTime, Total: len(leads)}

	j.logger.Info().
		Ints("lead_times", leads).
		Int("concurrency", j.config.Concurrency).
		Bool("invalidate", opts.Invalidate).
		Msg("starting forecast refresh job")

	if opts.Invalidate {
		j.cache.InvalidateCache()
	}

	leadsChan := make(chan int, len(leads))
	resultsChan := make(chan leadResult, len(leads))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, leadsChan, resultsChan)
		}()
	}

	for _, lead := range leads {
		leadsChan <- lead
	}
	close(leadsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for lr := range resultsChan {
		if lr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{LeadTime: lr.leadTime, Error: lr.err.Error()})
	}
	// Lead times skipped after cancellation count as failures.
	if skipped := result.Total - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
	}
	sort.Slice(result.Errors, func(a, b int) bool { return result.Errors[a].LeadTime < result.Errors[b].LeadTime })

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result, opts.Invalidate)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("forecast refresh job completed")

	return result
}

type leadResult struct {
	leadTime int
	err      error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, leads <-chan int, results chan<- leadResult) {
	for lead := range leads {
		select {
		case <-ctx.Done():
			return
		default:
			results <- leadResult{leadTime: lead, err: j.refreshLead(ctx, lead)}
		}
	}
}

func (j *RefreshJob) refreshLead(ctx context.Context, lead int) error {
	leadCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if err := j.cache.Warm(leadCtx, []int{lead}); err != nil {
		j.logger.Warn().Err(err).Int("lead_time", lead).Msg("lead time refresh failed")
		return err
	}
	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult, invalidated bool) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.RefreshedGrids += int64(result.Successful)
	j.metrics.FailedGrids += int64(result.Failed)
	if invalidated {
		j.metrics.Invalidations++
	}
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration

	j.metrics.LastFailedLeadTimes = j.metrics.LastFailedLeadTimes[:0]
	for _, e := range result.Errors {
		j.metrics.LastFailedLeadTimes = append(j.metrics.LastFailedLeadTimes, e.LeadTime)
	}
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		RefreshedGrids:      j.metrics.RefreshedGrids,
		FailedGrids:         j.metrics.FailedGrids,
		Invalidations:       j.metrics.Invalidations,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRunDuration:     j.metrics.LastRunDuration,
		TotalDuration:       j.metrics.TotalDuration,
		LastFailedLeadTimes: append([]int(nil), j.metrics.LastFailedLeadTimes...),
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":             m.TotalRuns,
		"refreshed_grids":        m.RefreshedGrids,
		"failed_grids":           m.FailedGrids,
		"invalidations":          m.Invalidations,
		"last_refresh_at":        m.LastRefreshAt,
		"last_run_duration":      m.LastRunDuration.String(),
		"total_duration":         m.TotalDuration.String(),
		"last_failed_lead_times": m.LastFailedLeadTimes,
	}
}
