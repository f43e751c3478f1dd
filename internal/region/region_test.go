package region_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/region"
)

const boundaries = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "id": "[2.35, 48.85]", "geometry": {"type": "Polygon", "centroid": [2.35, 48.85],
			"coordinates": [[[2.3, 48.8], [2.4, 48.8], [2.4, 48.9], [2.3, 48.9], [2.3, 48.8]]]}},
		{"type": "Feature", "id": "[8.0, 49.0]", "geometry": {"type": "Polygon", "centroid": [8.0, 49.0],
			"coordinates": [[[7.95, 48.95], [8.05, 48.95], [8.05, 49.05], [7.95, 49.05], [7.95, 48.95]]]}},
		{"type": "Feature", "id": 7, "geometry": {"type": "Polygon",
			"coordinates": [[[0, 45], [2, 45], [2, 47], [0, 47], [0, 45]]]}},
		{"type": "Feature", "id": "[20.0, 60.0]", "geometry": {"type": "Polygon", "centroid": [20.0, 60.0],
			"coordinates": [[[19.9, 59.9], [20.1, 59.9], [20.1, 60.1], [19.9, 60.1], [19.9, 59.9]]]}}
	]
}`

func parisBox() *forecast.BoundingBox {
	box := region.Presets["Paris"]
	return &box
}

func decode(t *testing.T) *region.Collection {
	t.Helper()
	c, err := region.DecodeCollection(strings.NewReader(boundaries))
	require.NoError(t, err)
	return c
}

func TestDecodeCollection(t *testing.T) {
	c := decode(t)

	assert.Equal(t, "FeatureCollection", c.Type)
	require.Len(t, c.Features, 4)

	// The third feature has no centroid; it is computed from its ring.
	require.NotNil(t, c.Features[2].Geometry.Centroid)
	assert.InDelta(t, 1.0, c.Features[2].Geometry.Centroid.Lon(), 1e-9)
	assert.InDelta(t, 46.0, c.Features[2].Geometry.Centroid.Lat(), 1e-9)
	assert.JSONEq(t, `7`, string(c.Features[2].ID))
}

func TestDecodeCollection_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing type", `{"features": []}`},
		{"missing features", `{"type": "FeatureCollection"}`},
		{"features not a list", `{"type": "FeatureCollection", "features": 3}`},
		{"no centroid and no polygon", `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "id": 1, "geometry": {"type": "Point", "coordinates": [1, 2]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := region.DecodeCollection(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, region.ErrInvalidCollection)
		})
	}
}

func TestCropRegion(t *testing.T) {
	summary, err := region.CropRegion(decode(t), parisBox(), "paris.geo.json")
	require.NoError(t, err)

	assert.Equal(t, "FeatureCollection", summary.Type)
	assert.Equal(t, region.Center{Lat: 49, Lon: 2}, summary.Center)
	assert.Equal(t, *parisBox(), summary.Limits)

	// [8.0, 49.0] sits on the east edge and is excluded; [20, 60] is outside.
	require.Len(t, summary.Features, 2)
	assert.JSONEq(t, `"[2.35, 48.85]"`, string(summary.Features[0].ID))
	assert.JSONEq(t, `7`, string(summary.Features[1].ID))
	assert.Equal(t, "Feature", summary.Features[0].Type)
	assert.Equal(t, "Polygon", summary.Features[0].Geometry.Type)
}

func TestCropRegion_CoordinatesPassThrough(t *testing.T) {
	c := decode(t)
	summary, err := region.CropRegion(c, parisBox(), "")
	require.NoError(t, err)

	assert.Equal(t, string(c.Features[0].Geometry.Coordinates), string(summary.Features[0].Geometry.Coordinates))

	out, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"center":{"lat":49,"lon":2}`)
	assert.Contains(t, string(out), `"centroid":[2.35,48.85]`)
}

func TestCropRegion_CenterRounding(t *testing.T) {
	box := &forecast.BoundingBox{North: 48.901, South: 48.8, West: 2.2, East: 2.52}
	summary, err := region.CropRegion(&region.Collection{Type: "FeatureCollection"}, box, "")
	require.NoError(t, err)

	assert.Equal(t, region.Center{Lat: 48.85, Lon: 2.36}, summary.Center)
	assert.NotNil(t, summary.Features)
	assert.Empty(t, summary.Features)
}

func TestCropRegion_Errors(t *testing.T) {
	c := decode(t)

	_, err := region.CropRegion(c, nil, "")
	assert.ErrorIs(t, err, forecast.ErrInvalidBoundingBox)

	_, err = region.CropRegion(c, &forecast.BoundingBox{North: 44, South: 54, West: -4, East: 8}, "")
	assert.ErrorIs(t, err, forecast.ErrInvalidBoundingBox)

	for _, name := range []string{"../paris.json", `regions\paris.json`, "a/b", ".", "..", "..."} {
		_, err = region.CropRegion(c, parisBox(), name)
		assert.ErrorIs(t, err, region.ErrInvalidTargetName, name)
	}
}

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := region.NewInMemoryRepository()

	summary, err := region.CropRegion(decode(t), parisBox(), "paris")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "paris", summary))

	got, err := repo.Get(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, summary.Center, got.Center)
	require.Len(t, got.Features, 2)

	// Stored copies are independent of the caller's value.
	summary.Features = nil
	again, err := repo.Get(ctx, "paris")
	require.NoError(t, err)
	assert.Len(t, again.Features, 2)

	require.NoError(t, repo.Save(ctx, "lyon", summary))
	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lyon", "paris"}, names)

	_, err = repo.Get(ctx, "nantes")
	assert.ErrorIs(t, err, region.ErrSummaryNotFound)

	assert.ErrorIs(t, repo.Save(ctx, "", summary), region.ErrInvalidTargetName)
	assert.ErrorIs(t, repo.Save(ctx, "x/y", summary), region.ErrInvalidTargetName)
}
