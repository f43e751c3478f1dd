// Package worker keeps the forecast grid cache warm in the background.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the forecast refresh job.
type RefreshConfig struct {
	// LeadTimes are refreshed when a message names none.
	LeadTimes []int

	// Concurrency is the number of lead times fetched at once.
	// Default: 2
	Concurrency int

	// Timeout bounds the fetch of one lead time.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration: the
// first twelve forecast hours.
func DefaultRefreshConfig() RefreshConfig {
	leads := make([]int, 13)
	for i := range leads {
		leads[i] = i
	}
	return RefreshConfig{
		LeadTimes:   leads,
		Concurrency: 2,
		Timeout:     2 * time.Minute,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if len(c.LeadTimes) == 0 {
		c.LeadTimes = d.LeadTimes
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
