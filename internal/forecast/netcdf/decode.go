// Package netcdf reads gridded forecast slices from NetCDF classic files.
package netcdf

import (
	"errors"
	"fmt"

	"github.com/ctessum/cdf"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// Errors returned while decoding a file.
var (
	// ErrVariableNotFound is returned when a named variable is absent from the file.
	ErrVariableNotFound = errors.New("netcdf variable not found")

	// ErrUnsupportedShape is returned when the concentration variable is not
	// shaped (time, level, lat, lon) or (time, lat, lon).
	ErrUnsupportedShape = errors.New("unsupported netcdf variable shape")

	// ErrLeadTimeOutOfRange is returned when the requested lead time is past
	// the time dimension of the file.
	ErrLeadTimeOutOfRange = errors.New("lead time out of range")
)

// Layout names the variables a grid is assembled from.
type Layout struct {
	// Variable is the concentration variable (default: pm10_conc).
	Variable string

	// Longitude is the 1-D longitude coordinate variable (default: longitude).
	Longitude string

	// Latitude is the 1-D latitude coordinate variable (default: latitude).
	Latitude string

	// Level is the vertical index read from 4-D variables.
	Level int
}

// DefaultLayout returns the layout of the regional ensemble forecast files.
func DefaultLayout() Layout {
	return Layout{
		Variable:  "pm10_conc",
		Longitude: "longitude",
		Latitude:  "latitude",
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.Variable == "" {
		l.Variable = d.Variable
	}
	if l.Longitude == "" {
		l.Longitude = d.Longitude
	}
	if l.Latitude == "" {
		l.Latitude = d.Latitude
	}
	return l
}

// Decode reads the slice of layout.Variable at leadTime from rw.
func Decode(rw cdf.ReaderWriterAt, layout Layout, leadTime int) (*forecast.Grid, error) {
	layout = layout.withDefaults()

	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("open netcdf: %w", err)
	}

	lons, err := readAxis(f, layout.Longitude)
	if err != nil {
		return nil, err
	}
	lats, err := readAxis(f, layout.Latitude)
	if err != nil {
		return nil, err
	}

	values, err := readSlice(f, layout, leadTime, len(lats), len(lons))
	if err != nil {
		return nil, err
	}

	grid := &forecast.Grid{
		Longitudes: lons,
		Latitudes:  lats,
		Values:     make([][]float64, len(lats)),
		LeadTime:   leadTime,
	}
	for i := range lats {
		grid.Values[i] = values[i*len(lons) : (i+1)*len(lons)]
	}
	return grid, nil
}

func hasVariable(f *cdf.File, name string) bool {
	for _, v := range f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func readAxis(f *cdf.File, name string) ([]float64, error) {
	if !hasVariable(f, name) {
		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}
	if dims := f.Header.Lengths(name); len(dims) != 1 {
		return nil, fmt.Errorf("%w: %s has %d dimensions, want 1", ErrUnsupportedShape, name, len(dims))
	}

	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return toFloat64(name, buf)
}

func readSlice(f *cdf.File, layout Layout, leadTime, nLat, nLon int) ([]float64, error) {
	name := layout.Variable
	if !hasVariable(f, name) {
		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}

	lengths := f.Header.Lengths(name)
	start := make([]int, len(lengths))
	switch len(lengths) {
	case 4:
		if layout.Level < 0 || layout.Level >= lengths[1] {
			return nil, fmt.Errorf("%w: level %d of %d", ErrUnsupportedShape, layout.Level, lengths[1])
		}
		start[1] = layout.Level
	case 3:
	default:
		return nil, fmt.Errorf("%w: %s has %d dimensions", ErrUnsupportedShape, name, len(lengths))
	}
	if lengths[len(lengths)-2] != nLat || lengths[len(lengths)-1] != nLon {
		return nil, fmt.Errorf("%w: %s is %v, axes are %dx%d", ErrUnsupportedShape, name, lengths, nLat, nLon)
	}

	// A zero length marks the record dimension, whose extent is only known
	// from the file size; the read itself fails past the last record.
	if leadTime < 0 || (lengths[0] > 0 && leadTime >= lengths[0]) {
		return nil, fmt.Errorf("%w: %d of %d", ErrLeadTimeOutOfRange, leadTime, lengths[0])
	}
	start[0] = leadTime

	r := f.Reader(name, start, nil)
	buf := r.Zero(nLat * nLon)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %s lead time %d: %w", name, leadTime, err)
	}
	return toFloat64(name, buf)
}

func toFloat64(name string, buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, want floating point", ErrUnsupportedShape, name, buf)
	}
}
