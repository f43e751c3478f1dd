package forecast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// threeByThree is the grid lon [-1, 0, 1], lat [1, 0, -1] with values
// numbered row by row.
func threeByThree(lead int) *forecast.Grid {
	return &forecast.Grid{
		Longitudes: []float64{-1, 0, 1},
		Latitudes:  []float64{1, 0, -1},
		Values: [][]float64{
			{1, 2, 3},
			{4, 5, 6},
			{7, 8, 9},
		},
		LeadTime: lead,
	}
}

func TestCrop_SingleCenterCell(t *testing.T) {
	box := &forecast.BoundingBox{North: 0.5, South: -0.5, West: -0.5, East: 0.5}

	table, err := forecast.Crop(threeByThree(0), box)
	require.NoError(t, err)
	require.Len(t, table, 1)

	assert.Equal(t, forecast.Row{
		ID:        "[0.0, 0.0]",
		Value:     5,
		Longitude: 0,
		Latitude:  0,
		LeadTime:  0,
	}, table[0])
}

func TestCrop_NilBoxFlattensEverything(t *testing.T) {
	table, err := forecast.Crop(threeByThree(4), nil)
	require.NoError(t, err)
	require.Len(t, table, 9)

	// Row-major, north to south.
	assert.Equal(t, "[-1.0, 1.0]", table[0].ID)
	assert.Equal(t, "[1.0, -1.0]", table[8].ID)
	for i, r := range table {
		assert.Equal(t, float64(i+1), r.Value)
		assert.Equal(t, 4, r.LeadTime)
	}
}

func TestCrop_EdgesAreStrict(t *testing.T) {
	// West and East fall exactly on grid longitudes, so those columns drop out.
	box := &forecast.BoundingBox{North: 1.5, South: -1.5, West: -1, East: 1}

	table, err := forecast.Crop(threeByThree(0), box)
	require.NoError(t, err)
	require.Len(t, table, 3)
	for _, r := range table {
		assert.Equal(t, 0.0, r.Longitude)
	}
	assert.Equal(t, []float64{2, 5, 8}, []float64{table[0].Value, table[1].Value, table[2].Value})
}

func TestCrop_NormalisesLongitudeConvention(t *testing.T) {
	grid := &forecast.Grid{
		Longitudes: []float64{350, 355, 0, 5},
		Latitudes:  []float64{50, 49},
		Values: [][]float64{
			{1, 2, 3, 4},
			{5, 6, 7, 8},
		},
	}
	box := &forecast.BoundingBox{North: 51, South: 48, West: -7, East: 1}

	table, err := forecast.Crop(grid, box)
	require.NoError(t, err)
	require.Len(t, table, 4)

	assert.Equal(t, -5.0, table[0].Longitude)
	assert.Equal(t, "[-5.0, 50.0]", table[0].ID)
	assert.Equal(t, 0.0, table[1].Longitude)
	assert.Equal(t, []float64{2, 3, 6, 7}, []float64{table[0].Value, table[1].Value, table[2].Value, table[3].Value})
}

func TestCrop_RoundsCoordinates(t *testing.T) {
	grid := &forecast.Grid{
		Longitudes: []float64{2.3456},
		Latitudes:  []float64{48.8512},
		Values:     [][]float64{{12.5}},
	}

	table, err := forecast.Crop(grid, nil)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, 2.35, table[0].Longitude)
	assert.Equal(t, 48.85, table[0].Latitude)
	assert.Equal(t, "[2.35, 48.85]", table[0].ID)
}

func TestCrop_BoxOutsideGrid(t *testing.T) {
	tests := []struct {
		name string
		box  forecast.BoundingBox
	}{
		{"far east", forecast.BoundingBox{North: 0.5, South: -0.5, West: 10, East: 20}},
		{"far west", forecast.BoundingBox{North: 0.5, South: -0.5, West: -20, East: -10}},
		{"far north", forecast.BoundingBox{North: 20, South: 10, West: -0.5, East: 0.5}},
		{"far south", forecast.BoundingBox{North: -10, South: -20, West: -0.5, East: 0.5}},
		{"between grid points", forecast.BoundingBox{North: 0.9, South: 0.1, West: 0.1, East: 0.9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := tt.box
			_, err := forecast.Crop(threeByThree(0), &box)
			assert.ErrorIs(t, err, forecast.ErrEmptySelection)
		})
	}
}

func TestCrop_InvalidInput(t *testing.T) {
	_, err := forecast.Crop(threeByThree(0), &forecast.BoundingBox{North: -1, South: 1, West: -1, East: 1})
	assert.ErrorIs(t, err, forecast.ErrInvalidBoundingBox)

	bad := threeByThree(0)
	bad.Values = bad.Values[:2]
	_, err = forecast.Crop(bad, nil)
	assert.ErrorIs(t, err, forecast.ErrInvalidGrid)
}

func TestBuildTable_SortsByLeadTime(t *testing.T) {
	box := &forecast.BoundingBox{North: 1.5, South: -0.5, West: -0.5, East: 0.5}

	table, err := forecast.BuildTable([]*forecast.Grid{threeByThree(2), threeByThree(0), threeByThree(1)}, box)
	require.NoError(t, err)
	require.Len(t, table, 6)

	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, []int{
		table[0].LeadTime, table[1].LeadTime, table[2].LeadTime,
		table[3].LeadTime, table[4].LeadTime, table[5].LeadTime,
	})
	// Within a lead time, grid order is kept.
	assert.Equal(t, "[0.0, 1.0]", table[0].ID)
	assert.Equal(t, "[0.0, 0.0]", table[1].ID)
	assert.Equal(t, []int{0, 1, 2}, table.LeadTimes())
	assert.Equal(t, 2, table.MaxLeadTime())
}

func TestBuildTable_PropagatesEmptySelection(t *testing.T) {
	box := &forecast.BoundingBox{North: 20, South: 10, West: 10, East: 20}
	_, err := forecast.BuildTable([]*forecast.Grid{threeByThree(0)}, box)
	assert.ErrorIs(t, err, forecast.ErrEmptySelection)
}

func TestCellID(t *testing.T) {
	tests := []struct {
		lon, lat float64
		want     string
	}{
		{2.35, 48.85, "[2.35, 48.85]"},
		{2, 48, "[2.0, 48.0]"},
		{-0.001, 10.006, "[-0.0, 10.01]"},
		{-3.5, 60.25, "[-3.5, 60.25]"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, forecast.CellID(tt.lon, tt.lat))
		})
	}
}
