// Package footprint fetches known-building polygons for a tile's bounding
// box, either from a vector database or from an on-disk shapefile.
package footprint

import (
	"context"
	"errors"
	"strings"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/geo"
)

var (
	// ErrSourceUnavailable covers network, credential and driver failures.
	// The pipeline driver fails the tile and moves on.
	ErrSourceUnavailable = errors.New("footprint source unavailable")

	// ErrCrsMismatch is returned when the requested CRS is not the one the
	// underlying store serves.
	ErrCrsMismatch = errors.New("footprint source CRS mismatch")
)

// Source returns the dissolved building footprints intersecting a bbox, in
// the requested CRS. An empty bbox result is an empty set, not an error.
type Source interface {
	Fetch(ctx context.Context, bbox cloud.BBox, crs int) (geo.PolygonSet, error)
}

// FileScheme prefixes a source path that points at an on-disk shapefile
// instead of a live database.
const FileScheme = "file://"

// FromPath selects a source implementation from a configured location:
// "file://x.shp" loads a shapefile, anything else is a database DSN.
func FromPath(location string, crs int) Source {
	if strings.HasPrefix(location, FileScheme) {
		return &ShapefileSource{Path: strings.TrimPrefix(location, FileScheme), CRS: crs}
	}
	return &DBSource{DSN: location}
}
