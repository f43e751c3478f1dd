package exposure

import (
	"fmt"
	"sort"
	"time"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// Accumulate returns the dose inhaled at the grid cell nearest at over w.
// table is the full multi-location dataset; its last lead time bounds the
// forecast horizon.
func Accumulate(table forecast.Table, at forecast.Coordinate, w Window, rate IntakeRate) (float64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if w.Duration() == 0 {
		return 0, nil
	}

	series, err := forecast.Resolve(table, at)
	if err != nil {
		return 0, err
	}
	return Integrate(series, w, rate, table.MaxLeadTime())
}

// Integrate returns the dose over w for a single-location series.
//
// Concentration is constant within each lead-time hour. Windows of at most
// one hour use the first overlapping hour's value for the whole elapsed
// time. Longer windows weight the first hour by the minutes left in it,
// every hour in between by 60, and the last hour by the minutes elapsed in
// it (60 when the window ends on the hour). Windows shorter than two hours
// credit no hours in between, even when they touch three lead times, so the
// dose is not monotonic in End across that range. horizon is the last lead
// time of the dataset the series was resolved from.
func Integrate(series forecast.Table, w Window, rate IntakeRate, horizon int) (float64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if w.Duration() == 0 {
		return 0, nil
	}

	start, end := w.clock(w.Start), w.clock(w.End)
	lastHour := end.hour
	if end.minute != 0 {
		lastHour++
	}

	buckets := make(forecast.Table, 0, lastHour-start.hour)
	for _, r := range series {
		if r.LeadTime >= start.hour && r.LeadTime < lastHour {
			buckets = append(buckets, r)
		}
	}
	if end.hour > horizon {
		return 0, fmt.Errorf("%w: window %s ends at hour %d, last forecast hour is %d",
			ErrExposureBeyondHorizon, w, end.hour, horizon)
	}
	if len(buckets) == 0 {
		return 0, fmt.Errorf("%w: no lead time in [%d, %d) for %s", ErrNoDataInWindow, start.hour, lastHour, w)
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].LeadTime < buckets[j].LeadTime })

	perMinute := rate.CubicMetersPerMinute()

	if w.Duration() <= time.Hour {
		minutes := end.minute - start.minute
		if start.hour != end.hour {
			minutes = 60 - start.minute + end.minute
		}
		return buckets[0].Value * float64(minutes) * perMinute, nil
	}

	if want := lastHour - start.hour; len(buckets) < want {
		return 0, fmt.Errorf("%w: %d of %d lead times in [%d, %d) for %s", ErrNoDataInWindow,
			len(buckets), want, start.hour, lastHour, w)
	}

	dose := buckets[0].Value * float64(60-start.minute) * perMinute
	if w.Duration() >= 2*time.Hour {
		for _, r := range buckets[1 : len(buckets)-1] {
			dose += r.Value * 60 * perMinute
		}
	}
	lastMinutes := end.minute
	if lastMinutes == 0 {
		lastMinutes = 60
	}
	dose += buckets[len(buckets)-1].Value * float64(lastMinutes) * perMinute
	return dose, nil
}

// Series returns the cumulative dose curve starting at start: element i is
// the dose over [start, start+i h], so the first element is always 0.
func Series(table forecast.Table, at forecast.Coordinate, start time.Time, hours int, rate IntakeRate) ([]float64, error) {
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	if hours < 0 {
		return nil, fmt.Errorf("%w: negative series length %d", ErrInvalidWindow, hours)
	}

	series, err := forecast.Resolve(table, at)
	if err != nil {
		return nil, err
	}
	horizon := table.MaxLeadTime()

	out := make([]float64, hours+1)
	for i := 1; i <= hours; i++ {
		w := Window{Start: start, End: start.Add(time.Duration(i) * time.Hour)}
		dose, err := Integrate(series, w, rate, horizon)
		if err != nil {
			return nil, fmt.Errorf("hour %d: %w", i, err)
		}
		out[i] = dose
	}
	return out, nil
}
