package exposure

import (
	"fmt"
	"time"
)

// Window is the span a person is exposed for.
type Window struct {
	Start time.Time
	End   time.Time

	// Reference is the forecast reference time: lead-time hour n covers
	// [Reference+n h, Reference+(n+1) h). When zero, midnight of Start's day
	// in Start's location is used, so lead-time hours are hours of the day.
	Reference time.Time
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Validate checks the window ordering. An empty window is always valid,
// wherever it lies relative to the reference.
func (w Window) Validate() error {
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s precedes start %s", ErrInvalidWindow, w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	if w.Duration() == 0 {
		return nil
	}
	if w.Start.Before(w.reference()) {
		return fmt.Errorf("%w: start %s precedes forecast reference %s", ErrInvalidWindow,
			w.Start.Format(time.RFC3339), w.reference().Format(time.RFC3339))
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("%s/%s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

func (w Window) reference() time.Time {
	if !w.Reference.IsZero() {
		return w.Reference
	}
	y, m, d := w.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.Start.Location())
}

// clock splits t into its lead-time hour and the whole minutes past it.
type clock struct {
	hour   int
	minute int
}

func (w Window) clock(t time.Time) clock {
	offset := t.Sub(w.reference())
	return clock{
		hour:   int(offset / time.Hour),
		minute: int((offset % time.Hour) / time.Minute),
	}
}
