package footprint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/geo"
)

func squareFeature(x0, y0, size float64) geo.MultiPolygon {
	return geo.MultiPolygon{{Outer: geo.Ring{
		{X: x0, Y: y0}, {X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size},
	}}}
}

func TestShapefileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprints.shp")
	set := geo.PolygonSet{CRS: 2154, Features: []geo.MultiPolygon{
		squareFeature(0, 0, 10),
		squareFeature(100, 100, 5),
	}}
	require.NoError(t, WriteShapefile(path, set))

	got, err := ReadShapefile(path, 2154)
	require.NoError(t, err)
	require.Len(t, got.Features, 2)
	assert.True(t, got.Features[0].Contains(5, 5))
	assert.True(t, got.Features[1].Contains(102, 102))
	assert.False(t, got.Features[0].Contains(50, 50))
}

func TestShapefileSourceFiltersByBBox(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprints.shp")
	set := geo.PolygonSet{CRS: 2154, Features: []geo.MultiPolygon{
		squareFeature(0, 0, 10),
		squareFeature(1000, 1000, 10),
	}}
	require.NoError(t, WriteShapefile(path, set))

	src := &ShapefileSource{Path: path, CRS: 2154}
	got, err := src.Fetch(context.Background(), cloud.BBox{XMin: -5, YMin: -5, XMax: 20, YMax: 20}, 2154)
	require.NoError(t, err)
	assert.True(t, got.Dissolved())
	require.Len(t, got.Features, 1)
	assert.True(t, got.Features[0].Contains(5, 5))
}

func TestShapefileSourceCrsMismatch(t *testing.T) {
	src := &ShapefileSource{Path: "whatever.shp", CRS: 2154}
	_, err := src.Fetch(context.Background(), cloud.BBox{}, 4326)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCrsMismatch))
}

func TestShapefileSourceMissingFile(t *testing.T) {
	src := &ShapefileSource{Path: filepath.Join(t.TempDir(), "nope.shp"), CRS: 2154}
	_, err := src.Fetch(context.Background(), cloud.BBox{}, 2154)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}
