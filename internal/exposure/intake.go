// Package exposure integrates hourly concentration forecasts into an inhaled
// dose over a time window.
package exposure

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by accumulation.
var (
	// ErrInvalidUnits is returned when the intake rate is unset, set twice,
	// or not a finite non-negative number.
	ErrInvalidUnits = errors.New("invalid intake rate units")

	// ErrInvalidWindow is returned when the window ends before it starts.
	ErrInvalidWindow = errors.New("invalid exposure window")

	// ErrExposureBeyondHorizon is returned when the window ends past the last
	// forecast lead time.
	ErrExposureBeyondHorizon = errors.New("exposure window beyond forecast horizon")

	// ErrNoDataInWindow is returned when no forecast hour overlaps the window.
	ErrNoDataInWindow = errors.New("no forecast data within exposure window")
)

// Unit is the volume unit of an intake rate.
type Unit int

// Supported intake units.
const (
	unitUnset Unit = iota
	CubicMeters
	Liters
)

func (u Unit) String() string {
	switch u {
	case CubicMeters:
		return "m3/min"
	case Liters:
		return "L/min"
	default:
		return "unset"
	}
}

// factor converts one unit of volume to cubic meters.
func (u Unit) factor() float64 {
	if u == Liters {
		return 0.001
	}
	return 1
}

// IntakeRate is a breathing rate in volume per minute. The zero value is
// invalid; build one with CubicMetersPerMinute or LitersPerMinute.
type IntakeRate struct {
	unit  Unit
	value float64
}

// CubicMetersPerMinute returns a rate in m³/min.
func CubicMetersPerMinute(v float64) IntakeRate {
	return IntakeRate{unit: CubicMeters, value: v}
}

// LitersPerMinute returns a rate in L/min.
func LitersPerMinute(v float64) IntakeRate {
	return IntakeRate{unit: Liters, value: v}
}

// ParseIntakeRate builds a rate from the two optional wire fields. Exactly
// one must be set.
func ParseIntakeRate(cubicMeters, liters *float64) (IntakeRate, error) {
	switch {
	case cubicMeters != nil && liters != nil:
		return IntakeRate{}, fmt.Errorf("%w: give either cubic meters or liters per minute, not both", ErrInvalidUnits)
	case cubicMeters != nil:
		return CubicMetersPerMinute(*cubicMeters), nil
	case liters != nil:
		return LitersPerMinute(*liters), nil
	default:
		return IntakeRate{}, fmt.Errorf("%w: an intake rate in cubic meters or liters per minute is required", ErrInvalidUnits)
	}
}

// Unit returns the unit the rate was given in.
func (r IntakeRate) Unit() Unit { return r.unit }

// Value returns the rate in its own unit.
func (r IntakeRate) Value() float64 { return r.value }

// CubicMetersPerMinute returns the rate converted to m³/min.
func (r IntakeRate) CubicMetersPerMinute() float64 {
	return r.value * r.unit.factor()
}

// Validate reports whether the rate can be used for accumulation.
func (r IntakeRate) Validate() error {
	if r.unit == unitUnset {
		return fmt.Errorf("%w: no intake rate given", ErrInvalidUnits)
	}
	if math.IsNaN(r.value) || math.IsInf(r.value, 0) || r.value < 0 {
		return fmt.Errorf("%w: %g %s", ErrInvalidUnits, r.value, r.unit)
	}
	return nil
}

func (r IntakeRate) String() string {
	return fmt.Sprintf("%g %s", r.value, r.unit)
}
