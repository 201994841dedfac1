package footprint

import (
	"context"
	"fmt"

	shp "github.com/jonas-p/go-shp"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/geo"
)

// ShapefileSource loads footprints from an on-disk shapefile instead of a
// live database. The shapefile's CRS is not self-describing here; it is
// declared in configuration and mismatching requests fail.
type ShapefileSource struct {
	Path string
	CRS  int
}

// Fetch loads the shapefile and keeps the features whose envelope intersects
// bbox, dissolved.
func (s *ShapefileSource) Fetch(ctx context.Context, bbox cloud.BBox, crs int) (geo.PolygonSet, error) {
	if crs != s.CRS {
		return geo.PolygonSet{}, fmt.Errorf("%w: shapefile is EPSG:%d, requested EPSG:%d", ErrCrsMismatch, s.CRS, crs)
	}
	if err := ctx.Err(); err != nil {
		return geo.PolygonSet{}, err
	}
	set, err := ReadShapefile(s.Path, crs)
	if err != nil {
		return geo.PolygonSet{}, err
	}
	filtered := geo.PolygonSet{CRS: crs}
	for _, f := range set.Features {
		if f.Envelope().Intersects(bbox) {
			filtered.Features = append(filtered.Features, f)
		}
	}
	return filtered.Dissolve(), nil
}

// ReadShapefile loads every polygon record of a shapefile. Ring roles follow
// the ESRI convention: clockwise parts open a polygon, counter-clockwise
// parts are holes of the preceding one.
func ReadShapefile(path string, crs int) (geo.PolygonSet, error) {
	r, err := shp.Open(path)
	if err != nil {
		return geo.PolygonSet{}, fmt.Errorf("%w: open shapefile %s: %v", ErrSourceUnavailable, path, err)
	}
	defer r.Close()

	set := geo.PolygonSet{CRS: crs}
	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		mp := polygonToMulti(poly)
		if len(mp) > 0 {
			set.Features = append(set.Features, mp)
		}
	}
	return set, nil
}

func polygonToMulti(p *shp.Polygon) geo.MultiPolygon {
	var mp geo.MultiPolygon
	nParts := len(p.Parts)
	for pi := 0; pi < nParts; pi++ {
		start := int(p.Parts[pi])
		end := len(p.Points)
		if pi+1 < nParts {
			end = int(p.Parts[pi+1])
		}
		if end-start < 3 {
			continue
		}
		ring := make(geo.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, geo.XY{X: pt.X, Y: pt.Y})
		}
		if signedArea(ring) <= 0 || len(mp) == 0 {
			// Clockwise: a new outer ring. A leading counter-clockwise ring
			// is tolerated as an outer too; some writers ignore the convention.
			mp = append(mp, geo.Polygon{Outer: ring})
		} else {
			mp[len(mp)-1].Holes = append(mp[len(mp)-1].Holes, ring)
		}
	}
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(r geo.Ring) float64 {
	var sum float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum / 2
}

// WriteShapefile saves a polygon set as a shapefile, one record per feature.
// This backs the footprint-export task.
func WriteShapefile(path string, set geo.PolygonSet) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	defer w.Close()

	for _, f := range set.Features {
		shape := multiToPolygon(f)
		w.Write(shape)
	}
	return nil
}

func multiToPolygon(mp geo.MultiPolygon) *shp.Polygon {
	env := mp.Envelope()
	out := &shp.Polygon{
		Box: shp.Box{MinX: env.XMin, MinY: env.YMin, MaxX: env.XMax, MaxY: env.YMax},
	}
	appendRing := func(r geo.Ring, reverse bool) {
		out.Parts = append(out.Parts, int32(len(out.Points)))
		if reverse {
			for i := len(r) - 1; i >= 0; i-- {
				out.Points = append(out.Points, shp.Point{X: r[i].X, Y: r[i].Y})
			}
		} else {
			for _, v := range r {
				out.Points = append(out.Points, shp.Point{X: v.X, Y: v.Y})
			}
		}
	}
	for _, p := range mp {
		// Outer rings clockwise, holes counter-clockwise.
		appendRing(p.Outer, signedArea(p.Outer) > 0)
		for _, h := range p.Holes {
			appendRing(h, signedArea(h) < 0)
		}
	}
	out.NumParts = int32(len(out.Parts))
	out.NumPoints = int32(len(out.Points))
	return out
}
