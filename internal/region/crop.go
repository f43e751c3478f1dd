package region

import (
	"fmt"
	"math"
	"strings"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// Presets are named city regions.
var Presets = map[string]forecast.BoundingBox{
	"Paris": {North: 54, South: 44, West: -4, East: 8},
}

// ValidateTargetName rejects names that would escape the storage directory
// or name a directory, such as "." and "..".
func ValidateTargetName(name string) error {
	if strings.ContainsAny(name, `/\`) || (name != "" && strings.Trim(name, ".") == "") {
		return fmt.Errorf("%w: %q", ErrInvalidTargetName, name)
	}
	return nil
}

// CropRegion keeps the features whose centroid lies strictly inside box.
// targetName is only validated here; storing the summary is the caller's
// job.
func CropRegion(collection *Collection, box *forecast.BoundingBox, targetName string) (*Summary, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateTargetName(targetName); err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrInvalidCollection)
	}

	summary := &Summary{
		Type: "FeatureCollection",
		Center: Center{
			Lat: round2((box.South + box.North) / 2),
			Lon: round2((box.West + box.East) / 2),
		},
		Limits:   *box,
		Features: []Feature{},
	}

	for i, f := range collection.Features {
		c, err := f.Geometry.centroid()
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d (id %s): %v", ErrInvalidCollection, i, f.ID, err)
		}
		if c.Lon() > box.West && c.Lon() < box.East && c.Lat() < box.North && c.Lat() > box.South {
			summary.Features = append(summary.Features, Feature{
				Type: "Feature",
				ID:   f.ID,
				Geometry: Geometry{
					Type:        "Polygon",
					Centroid:    &c,
					Coordinates: f.Geometry.Coordinates,
				},
			})
		}
	}
	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
