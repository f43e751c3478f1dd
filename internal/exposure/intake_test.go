package exposure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/dosecast/internal/exposure"
)

func ptr(v float64) *float64 { return &v }

func TestParseIntakeRate(t *testing.T) {
	rate, err := exposure.ParseIntakeRate(ptr(0.02), nil)
	require.NoError(t, err)
	assert.Equal(t, exposure.CubicMeters, rate.Unit())
	assert.Equal(t, 0.02, rate.CubicMetersPerMinute())

	rate, err = exposure.ParseIntakeRate(nil, ptr(20))
	require.NoError(t, err)
	assert.Equal(t, exposure.Liters, rate.Unit())
	assert.Equal(t, 20.0, rate.Value())
	assert.InDelta(t, 0.02, rate.CubicMetersPerMinute(), 1e-12)

	_, err = exposure.ParseIntakeRate(ptr(1), ptr(1000))
	assert.ErrorIs(t, err, exposure.ErrInvalidUnits)

	_, err = exposure.ParseIntakeRate(nil, nil)
	assert.ErrorIs(t, err, exposure.ErrInvalidUnits)
}

func TestIntakeRate_Validate(t *testing.T) {
	assert.NoError(t, exposure.CubicMetersPerMinute(0).Validate())
	assert.NoError(t, exposure.LitersPerMinute(8.5).Validate())
	assert.ErrorIs(t, exposure.IntakeRate{}.Validate(), exposure.ErrInvalidUnits)
	assert.ErrorIs(t, exposure.CubicMetersPerMinute(-0.1).Validate(), exposure.ErrInvalidUnits)
	assert.Equal(t, "8.5 L/min", exposure.LitersPerMinute(8.5).String())
}
