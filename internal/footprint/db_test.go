package footprint

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarclass/internal/cloud"
)

func newTestDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "footprints.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Bootstrap(db))
	require.NoError(t, SetSRID(db, 2154))
	return path, db
}

func TestDBSourceFetch(t *testing.T) {
	path, db := newTestDB(t)
	require.NoError(t, InsertWKT(db, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))", false))
	require.NoError(t, InsertWKT(db, "POLYGON ((5 5, 15 5, 15 15, 5 15, 5 5))", false))
	require.NoError(t, InsertWKT(db, "POLYGON ((500 500, 510 500, 510 510, 500 510, 500 500))", false))
	// Destroyed footprints never come back.
	require.NoError(t, InsertWKT(db, "POLYGON ((2 2, 3 2, 3 3, 2 3, 2 2))", true))

	src := &DBSource{DSN: path}
	defer src.Close()

	set, err := src.Fetch(context.Background(), cloud.BBox{XMin: -5, YMin: -5, XMax: 20, YMax: 20}, 2154)
	require.NoError(t, err)
	assert.True(t, set.Dissolved())
	// The two overlapping squares merge into one feature.
	assert.Len(t, set.Features, 1)
	assert.True(t, set.Features[0].Contains(12, 12))
}

func TestDBSourceEmptyBBoxIsEmptySet(t *testing.T) {
	path, db := newTestDB(t)
	require.NoError(t, InsertWKT(db, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))", false))

	src := &DBSource{DSN: path}
	defer src.Close()

	set, err := src.Fetch(context.Background(), cloud.BBox{XMin: 1000, YMin: 1000, XMax: 1100, YMax: 1100}, 2154)
	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.True(t, set.Dissolved())
}

func TestDBSourceCrsMismatch(t *testing.T) {
	path, _ := newTestDB(t)
	src := &DBSource{DSN: path}
	defer src.Close()

	_, err := src.Fetch(context.Background(), cloud.BBox{XMax: 1, YMax: 1}, 4326)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCrsMismatch))
}

func TestFromPathSelection(t *testing.T) {
	src := FromPath("file://buildings.shp", 2154)
	shp, ok := src.(*ShapefileSource)
	require.True(t, ok)
	assert.Equal(t, "buildings.shp", shp.Path)
	assert.Equal(t, 2154, shp.CRS)

	src = FromPath("footprints.db", 2154)
	_, ok = src.(*DBSource)
	assert.True(t, ok)
}
