package forecast

import (
	"fmt"
	"sort"
)

// Crop flattens grid into rows, restricted to box when it is non-nil.
//
// Edge indices are picked with strict thresholds: the western edge is the
// first longitude greater than West, the eastern edge the last longitude less
// than East. Latitudes run north to south, so the northern edge is the first
// latitude less than North and the southern edge the last latitude greater
// than South. Both edges are included in the slice.
func Crop(grid *Grid, box *BoundingBox) (Table, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	lons := make([]float64, len(grid.Longitudes))
	for i, lon := range grid.Longitudes {
		lons[i] = NormalizeLongitude(lon)
	}

	lonFrom, lonTo := 0, len(lons)-1
	latFrom, latTo := 0, len(grid.Latitudes)-1

	if box != nil {
		if err := box.Validate(); err != nil {
			return nil, err
		}

		var ok [4]bool
		lonFrom, ok[0] = firstIndex(lons, func(v float64) bool { return v > box.West })
		lonTo, ok[1] = lastIndex(lons, func(v float64) bool { return v < box.East })
		latFrom, ok[2] = firstIndex(grid.Latitudes, func(v float64) bool { return v < box.North })
		latTo, ok[3] = lastIndex(grid.Latitudes, func(v float64) bool { return v > box.South })
		for _, found := range ok {
			if !found {
				return nil, fmt.Errorf("%w: %s", ErrEmptySelection, box)
			}
		}
	}

	if lonFrom > lonTo || latFrom > latTo {
		if box != nil {
			return nil, fmt.Errorf("%w: %s", ErrEmptySelection, box)
		}
		return Table{}, nil
	}

	table := make(Table, 0, (latTo-latFrom+1)*(lonTo-lonFrom+1))
	for i := latFrom; i <= latTo; i++ {
		lat := round2(grid.Latitudes[i])
		for j := lonFrom; j <= lonTo; j++ {
			lon := round2(lons[j])
			table = append(table, Row{
				ID:        CellID(lon, lat),
				Value:     grid.Values[i][j],
				Longitude: lon,
				Latitude:  lat,
				LeadTime:  grid.LeadTime,
			})
		}
	}
	return table, nil
}

// BuildTable crops every grid with the same box and concatenates the
// results, ascending by lead time. Rows of equal lead time keep grid order.
func BuildTable(grids []*Grid, box *BoundingBox) (Table, error) {
	var table Table
	for _, g := range grids {
		rows, err := Crop(g, box)
		if err != nil {
			return nil, fmt.Errorf("lead time %d: %w", leadTimeOf(g), err)
		}
		table = append(table, rows...)
	}
	sort.SliceStable(table, func(a, b int) bool {
		return table[a].LeadTime < table[b].LeadTime
	})
	return table, nil
}

func leadTimeOf(g *Grid) int {
	if g == nil {
		return -1
	}
	return g.LeadTime
}

func firstIndex(values []float64, match func(float64) bool) (int, bool) {
	for i, v := range values {
		if match(v) {
			return i, true
		}
	}
	return 0, false
}

func lastIndex(values []float64, match func(float64) bool) (int, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if match(values[i]) {
			return i, true
		}
	}
	return 0, false
}
