package exposure_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/dosecast/internal/exposure"
	"github.com/breatheroute/dosecast/internal/forecast"
)

var day = time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// hourly returns a single-location series with values[i] at lead time i.
func hourly(values ...float64) forecast.Table {
	table := make(forecast.Table, len(values))
	for i, v := range values {
		table[i] = forecast.Row{ID: forecast.CellID(20.25, 60.25), Value: v, Longitude: 20.25, Latitude: 60.25, LeadTime: i}
	}
	return table
}

func flat(value float64, hours int) forecast.Table {
	values := make([]float64, hours)
	for i := range values {
		values[i] = value
	}
	return hourly(values...)
}

func integrate(t *testing.T, series forecast.Table, start, end time.Time, rate exposure.IntakeRate) float64 {
	t.Helper()
	dose, err := exposure.Integrate(series, exposure.Window{Start: start, End: end}, rate, series.MaxLeadTime())
	require.NoError(t, err)
	return dose
}

func TestIntegrate_Scenarios(t *testing.T) {
	series := flat(10, 4)
	rate := exposure.CubicMetersPerMinute(1)

	tests := []struct {
		name       string
		start, end time.Time
		want       float64
	}{
		{"hour and a half", at(0, 0), at(1, 30), 900},
		{"within one hour", at(0, 15), at(0, 45), 300},
		{"exactly one hour", at(0, 0), at(1, 0), 600},
		{"sub-hour across an hour boundary", at(0, 45), at(1, 15), 300},
		{"three whole hours", at(0, 0), at(3, 0), 1800},
		{"partial first and last hours", at(0, 20), at(2, 40), 1400},
		{"reaches into the last lead time", at(2, 0), at(3, 30), 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, integrate(t, series, tt.start, tt.end, rate), 1e-9)
		})
	}
}

func TestIntegrate_WeightsEachHour(t *testing.T) {
	series := hourly(1, 2, 3, 4)
	rate := exposure.CubicMetersPerMinute(1)

	// Three whole-or-partial hours: 40 min of hour 0, all of hour 1 and
	// 20 min of hour 2.
	assert.InDelta(t, 40*1+60*2+20*3, integrate(t, series, at(0, 20), at(2, 20), rate), 1e-9)

	// Two buckets: 30 min of hour 1, 45 min of hour 2.
	assert.InDelta(t, 30*2+45*3, integrate(t, series, at(1, 30), at(2, 45), rate), 1e-9)

	// Sub-hour windows take the first hour's value for the whole span.
	assert.InDelta(t, 40*2, integrate(t, series, at(1, 50), at(2, 30), rate), 1e-9)
}

func TestIntegrate_UnderTwoHoursSkipsMiddleHours(t *testing.T) {
	rate := exposure.CubicMetersPerMinute(1)

	tests := []struct {
		name       string
		series     forecast.Table
		start, end time.Time
		want       float64
	}{
		{"touches three lead times", hourly(1, 2, 3, 4), at(0, 50), at(2, 10), 10*1 + 10*3},
		{"flat series", flat(10, 4), at(0, 30), at(2, 15), 30*10 + 15*10},
		{"ends on the hour", hourly(1, 2, 3, 4), at(0, 50), at(2, 0), 10*1 + 60*2},
		{"exactly two hours keeps the middle", hourly(1, 2, 3, 4), at(0, 30), at(2, 30), 30*1 + 60*2 + 30*3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, integrate(t, tt.series, tt.start, tt.end, rate), 1e-9)
		})
	}

	// Ten more minutes of exposure yield a smaller dose.
	shorter := integrate(t, hourly(1, 2, 3, 4), at(0, 50), at(2, 0), rate)
	longer := integrate(t, hourly(1, 2, 3, 4), at(0, 50), at(2, 10), rate)
	assert.Less(t, longer, shorter)
}

func TestIntegrate_MissingIntermediateHour(t *testing.T) {
	series := hourly(1, 2, 3, 4)
	gappy := append(forecast.Table{series[0]}, series[2:]...)

	_, err := exposure.Integrate(gappy, exposure.Window{Start: at(0, 30), End: at(2, 30)},
		exposure.CubicMetersPerMinute(1), gappy.MaxLeadTime())
	assert.ErrorIs(t, err, exposure.ErrNoDataInWindow)

	_, err = exposure.Integrate(series[:1], exposure.Window{Start: at(0, 30), End: at(1, 45)},
		exposure.CubicMetersPerMinute(1), 3)
	assert.ErrorIs(t, err, exposure.ErrNoDataInWindow)
}

func TestIntegrate_ZeroDuration(t *testing.T) {
	for _, rate := range []exposure.IntakeRate{
		exposure.CubicMetersPerMinute(0),
		exposure.CubicMetersPerMinute(0.012),
		exposure.LitersPerMinute(25),
	} {
		assert.Equal(t, 0.0, integrate(t, flat(10, 2), at(1, 10), at(1, 10), rate))
	}
}

func TestIntegrate_ZeroDurationBeforeReference(t *testing.T) {
	w := exposure.Window{Start: at(0, 0), End: at(0, 0), Reference: at(1, 0)}
	require.NoError(t, w.Validate())

	dose, err := exposure.Integrate(flat(10, 3), w, exposure.CubicMetersPerMinute(1), 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, dose)

	dose, err = exposure.Accumulate(nil, forecast.Coordinate{}, w, exposure.CubicMetersPerMinute(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, dose)
}

func TestIntegrate_EndBeforeStart(t *testing.T) {
	_, err := exposure.Integrate(flat(10, 3), exposure.Window{Start: at(1, 0), End: at(0, 59)},
		exposure.CubicMetersPerMinute(1), 2)
	assert.ErrorIs(t, err, exposure.ErrInvalidWindow)
}

func TestIntegrate_StartBeforeReference(t *testing.T) {
	w := exposure.Window{Start: at(0, 0), End: at(1, 0), Reference: at(1, 0)}
	_, err := exposure.Integrate(flat(10, 3), w, exposure.CubicMetersPerMinute(1), 2)
	assert.ErrorIs(t, err, exposure.ErrInvalidWindow)
}

func TestIntegrate_BeyondHorizon(t *testing.T) {
	series := flat(10, 4)
	rate := exposure.CubicMetersPerMinute(1)

	for _, end := range []time.Time{at(4, 0), at(5, 0), at(4, 30)} {
		_, err := exposure.Integrate(series, exposure.Window{Start: at(0, 0), End: end}, rate, series.MaxLeadTime())
		assert.ErrorIs(t, err, exposure.ErrExposureBeyondHorizon, end.Format(time.Kitchen))
	}
}

func TestIntegrate_NoDataInWindow(t *testing.T) {
	series := flat(10, 4)[2:]

	_, err := exposure.Integrate(series, exposure.Window{Start: at(0, 0), End: at(1, 0)},
		exposure.CubicMetersPerMinute(1), 3)
	assert.ErrorIs(t, err, exposure.ErrNoDataInWindow)
}

func TestIntegrate_InvalidUnits(t *testing.T) {
	_, err := exposure.Integrate(flat(10, 2), exposure.Window{Start: at(0, 0), End: at(0, 30)}, exposure.IntakeRate{}, 1)
	assert.ErrorIs(t, err, exposure.ErrInvalidUnits)

	_, err = exposure.Integrate(flat(10, 2), exposure.Window{Start: at(0, 0), End: at(0, 30)}, exposure.LitersPerMinute(-1), 1)
	assert.ErrorIs(t, err, exposure.ErrInvalidUnits)
}

func TestIntegrate_UnitEquivalence(t *testing.T) {
	series := hourly(12.5, 30, 7.25, 18)
	windows := [][2]time.Time{
		{at(0, 15), at(0, 45)},
		{at(0, 5), at(2, 55)},
		{at(1, 0), at(3, 0)},
	}
	for _, r := range []float64{0.006, 0.0125, 1} {
		for _, w := range windows {
			cubic := integrate(t, series, w[0], w[1], exposure.CubicMetersPerMinute(r))
			liters := integrate(t, series, w[0], w[1], exposure.LitersPerMinute(1000*r))
			assert.InDelta(t, cubic, liters, 1e-9)
		}
	}
}

// Windows starting on the hour never touch three lead times in under two
// hours, so their dose grows with End everywhere. Other starts are only
// monotonic within an hour and from two hours on.
func TestIntegrate_Monotonic(t *testing.T) {
	series := flat(10, 6)
	rate := exposure.CubicMetersPerMinute(0.01)

	check := func(start, from, until time.Time) {
		prev := 0.0
		for end := from; end.Before(until); end = end.Add(time.Minute) {
			dose := integrate(t, series, start, end, rate)
			require.GreaterOrEqual(t, dose, prev, "start %s end %s", start.Format("15:04"), end.Format("15:04"))
			prev = dose
		}
	}

	for _, start := range []time.Time{at(0, 0), at(1, 0), at(2, 0)} {
		check(start, start, at(5, 59))
	}
	for _, start := range []time.Time{at(0, 20), at(1, 59)} {
		check(start, start, start.Add(time.Hour+time.Minute))
		check(start, start.Add(2*time.Hour), at(5, 59))
	}
}

func TestIntegrate_ReferenceAcrossMidnight(t *testing.T) {
	series := flat(10, 26)
	w := exposure.Window{
		Start:     at(23, 0),
		End:       at(25, 0),
		Reference: day,
	}

	dose, err := exposure.Integrate(series, w, exposure.CubicMetersPerMinute(1), series.MaxLeadTime())
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, dose, 1e-9)
}

func TestAccumulate_ResolvesLocation(t *testing.T) {
	grids := make([]*forecast.Grid, 3)
	for lead := range grids {
		grids[lead] = &forecast.Grid{
			Longitudes: []float64{20, 20.5},
			Latitudes:  []float64{60.5, 60},
			Values:     [][]float64{{1, 2}, {3, 4}},
			LeadTime:   lead,
		}
	}
	table, err := forecast.BuildTable(grids, nil)
	require.NoError(t, err)

	// (20.24, 60.2) is nearest lon 20 and lat 60, where the value is 3.
	w := exposure.Window{Start: at(0, 0), End: at(1, 30)}
	dose, err := exposure.Accumulate(table, forecast.Coordinate{Lon: 20.24, Lat: 60.2}, w, exposure.LitersPerMinute(10))
	require.NoError(t, err)
	assert.InDelta(t, 3*90*0.01, dose, 1e-9)
}

func TestAccumulate_ValidationOrder(t *testing.T) {
	w := exposure.Window{Start: at(1, 0), End: at(0, 0)}

	_, err := exposure.Accumulate(nil, forecast.Coordinate{}, w, exposure.IntakeRate{})
	assert.ErrorIs(t, err, exposure.ErrInvalidUnits)

	_, err = exposure.Accumulate(nil, forecast.Coordinate{}, w, exposure.CubicMetersPerMinute(1))
	assert.ErrorIs(t, err, exposure.ErrInvalidWindow)

	// Zero-length windows never look at the table.
	dose, err := exposure.Accumulate(nil, forecast.Coordinate{}, exposure.Window{Start: at(0, 0), End: at(0, 0)},
		exposure.CubicMetersPerMinute(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, dose)

	_, err = exposure.Accumulate(nil, forecast.Coordinate{}, exposure.Window{Start: at(0, 0), End: at(0, 30)},
		exposure.CubicMetersPerMinute(1))
	assert.ErrorIs(t, err, forecast.ErrNoDataInArea)
}

func TestSeries(t *testing.T) {
	table := flat(10, 4)
	loc := forecast.Coordinate{Lon: 20.25, Lat: 60.25}

	values, err := exposure.Series(table, loc, at(0, 0), 3, exposure.CubicMetersPerMinute(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 600, 1200, 1800}, values)

	values, err = exposure.Series(table, loc, at(0, 0), 0, exposure.CubicMetersPerMinute(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, values)

	_, err = exposure.Series(table, loc, at(0, 0), 5, exposure.CubicMetersPerMinute(1))
	assert.ErrorIs(t, err, exposure.ErrExposureBeyondHorizon)

	_, err = exposure.Series(table, loc, at(0, 0), -1, exposure.CubicMetersPerMinute(1))
	assert.ErrorIs(t, err, exposure.ErrInvalidWindow)
}
