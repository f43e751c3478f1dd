// Package forecast turns gridded air-quality forecasts into flat tables and
// resolves grid cells for a location.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Forecast errors.
var (
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	ErrInvalidGrid        = errors.New("invalid forecast grid")
	ErrEmptySelection     = errors.New("bounding box does not intersect the grid")
	ErrNoDataInArea       = errors.New("no data within exposure area")
	ErrSourceUnavailable  = errors.New("forecast source unavailable")
)

// Grid is one lead-time slice of a gridded forecast.
type Grid struct {
	// Longitudes is the longitude axis in degrees. Order is arbitrary and
	// values may use the 0-360 convention.
	Longitudes []float64

	// Latitudes is the latitude axis in degrees, north to south.
	Latitudes []float64

	// Values holds concentrations indexed [lat][lon].
	Values [][]float64

	// LeadTime is the number of hours ahead of the forecast reference time.
	LeadTime int
}

// Validate checks that the value matrix matches the coordinate axes.
func (g *Grid) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	if len(g.Values) != len(g.Latitudes) {
		return fmt.Errorf("%w: %d value rows for %d latitudes", ErrInvalidGrid, len(g.Values), len(g.Latitudes))
	}
	for i, row := range g.Values {
		if len(row) != len(g.Longitudes) {
			return fmt.Errorf("%w: row %d has %d values for %d longitudes", ErrInvalidGrid, i, len(row), len(g.Longitudes))
		}
	}
	return nil
}

// BoundingBox is a geographic box in degrees. Antimeridian wraparound is not
// supported, so West must be less than East.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// Validate checks the box is finite and correctly oriented.
func (b *BoundingBox) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: missing limits", ErrInvalidBoundingBox)
	}
	for _, v := range []float64{b.North, b.South, b.West, b.East} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has a non-finite edge", ErrInvalidBoundingBox, b)
		}
	}
	if b.North <= b.South {
		return fmt.Errorf("%w: north must be greater than south in %s", ErrInvalidBoundingBox, b)
	}
	if b.West >= b.East {
		return fmt.Errorf("%w: west must be less than east in %s", ErrInvalidBoundingBox, b)
	}
	return nil
}

func (b *BoundingBox) String() string {
	return fmt.Sprintf("{north: %g, south: %g, west: %g, east: %g}", b.North, b.South, b.West, b.East)
}

// Coordinate identifies an exposure location.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(lon %g, lat %g)", c.Lon, c.Lat)
}

// Row is a single grid cell at one lead time.
type Row struct {
	// ID is the "[lon, lat]" join key used by map renderers.
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	LeadTime  int     `json:"leadtime"`
}

// Table is an ordered collection of rows, ascending by lead time when it
// spans more than one.
type Table []Row

// MaxLeadTime returns the largest lead time in the table, or -1 when empty.
func (t Table) MaxLeadTime() int {
	maxLead := -1
	for _, r := range t {
		if r.LeadTime > maxLead {
			maxLead = r.LeadTime
		}
	}
	return maxLead
}

// LeadTimes returns the distinct lead times in ascending order.
func (t Table) LeadTimes() []int {
	seen := make(map[int]struct{})
	var leads []int
	for _, r := range t {
		if _, ok := seen[r.LeadTime]; ok {
			continue
		}
		seen[r.LeadTime] = struct{}{}
		leads = append(leads, r.LeadTime)
	}
	sort.Ints(leads)
	return leads
}

// Clone returns a copy that shares no row storage with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// CellID formats the join key for a cell as "[lon, lat]". Coordinates are
// rounded to 2 decimals and always carry a fractional digit, so 48 renders
// as "48.0".
func CellID(lon, lat float64) string {
	return "[" + formatCoordinate(round2(lon)) + ", " + formatCoordinate(round2(lat)) + "]"
}

func formatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeLongitude maps the 0-360 convention onto -180..180.
func NormalizeLongitude(lon float64) float64 {
	if lon >= 180 {
		return lon - 360
	}
	return lon
}
