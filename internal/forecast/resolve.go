package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Resolve restricts table to the grid cell nearest target.
//
// Longitude and latitude are matched independently: the nearest longitude in
// the table and the nearest latitude in the table, each picked as the first
// minimum in row order. This is not a true 2-D nearest neighbour; on
// irregular grids the selected cell may not minimise combined distance.
func Resolve(table Table, target Coordinate) (Table, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty table at %s", ErrNoDataInArea, target)
	}

	lonDist := make([]float64, len(table))
	latDist := make([]float64, len(table))
	for i, r := range table {
		lonDist[i] = math.Abs(r.Longitude - target.Lon)
		latDist[i] = math.Abs(r.Latitude - target.Lat)
	}
	nearestLon := table[floats.MinIdx(lonDist)].Longitude
	nearestLat := table[floats.MinIdx(latDist)].Latitude

	var out Table
	for _, r := range table {
		if r.Longitude == nearestLon && r.Latitude == nearestLat {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no cell at lon %g, lat %g for %s", ErrNoDataInArea, nearestLon, nearestLat, target)
	}
	return out, nil
}
