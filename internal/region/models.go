// Package region crops a boundary feature collection to a bounding box and
// stores the resulting region summaries.
package region

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// Region errors.
var (
	ErrInvalidTargetName = errors.New("target name must be a bare file name")
	ErrInvalidCollection = errors.New("invalid feature collection")
	ErrSummaryNotFound   = errors.New("region summary not found")
)

// Point is a [lon, lat] position.
type Point [2]float64

// Lon returns the longitude.
func (p Point) Lon() float64 { return p[0] }

// Lat returns the latitude.
func (p Point) Lat() float64 { return p[1] }

// Collection is a boundary feature collection.
type Collection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one boundary polygon. ID and coordinates are carried through
// untouched.
type Feature struct {
	Type     string          `json:"type"`
	ID       json.RawMessage `json:"id"`
	Geometry Geometry        `json:"geometry"`
}

// Geometry is a polygon with its representative point.
type Geometry struct {
	Type        string          `json:"type"`
	Centroid    *Point          `json:"centroid,omitempty"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Center is the midpoint of a region's limits.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Summary is a collection cropped to a bounding box.
type Summary struct {
	Type     string               `json:"type"`
	Center   Center               `json:"center"`
	Limits   forecast.BoundingBox `json:"limits"`
	Features []Feature            `json:"features"`
}

// DecodeCollection reads a feature collection. The document must carry
// "type" and "features" keys. Features without a centroid get one computed
// from their polygon.
func DecodeCollection(r io.Reader) (*Collection, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCollection, err)
	}
	for _, key := range []string{"type", "features"} {
		if _, ok := doc[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q key", ErrInvalidCollection, key)
		}
	}

	c := &Collection{}
	if err := json.Unmarshal(doc["type"], &c.Type); err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrInvalidCollection, err)
	}
	if err := json.Unmarshal(doc["features"], &c.Features); err != nil {
		return nil, fmt.Errorf("%w: features: %v", ErrInvalidCollection, err)
	}

	for i := range c.Features {
		f := &c.Features[i]
		if f.Geometry.Centroid != nil {
			continue
		}
		p, err := f.Geometry.computeCentroid()
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d (id %s): %v", ErrInvalidCollection, i, f.ID, err)
		}
		f.Geometry.Centroid = &p
	}
	return c, nil
}

func (g Geometry) centroid() (Point, error) {
	if g.Centroid != nil {
		return *g.Centroid, nil
	}
	return g.computeCentroid()
}

func (g Geometry) computeCentroid() (Point, error) {
	if g.Type != "Polygon" {
		return Point{}, fmt.Errorf("no centroid and cannot compute one for %q geometry", g.Type)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}{g.Type, g.Coordinates}); err != nil {
		return Point{}, err
	}

	shape, err := geojson.Decode(buf.Bytes())
	if err != nil {
		return Point{}, err
	}
	polygon, ok := shape.(geom.Polygon)
	if !ok || len(polygon) == 0 || len(polygon[0]) < 3 {
		return Point{}, errors.New("polygon has no outer ring")
	}

	c := polygon.Centroid()
	return Point{c.X, c.Y}, nil
}
