package building

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/geo"
)

// fakeSource serves a canned polygon set without any I/O.
type fakeSource struct {
	set   geo.PolygonSet
	err   error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context, bbox cloud.BBox, crs int) (geo.PolygonSet, error) {
	f.calls++
	if f.err != nil {
		return geo.PolygonSet{}, f.err
	}
	return f.set, nil
}

func emptySource() *fakeSource {
	return &fakeSource{set: geo.PolygonSet{CRS: 2154}.Dissolve()}
}

func squareSource(x0, y0, size float64) *fakeSource {
	set := geo.PolygonSet{CRS: 2154, Features: []geo.MultiPolygon{{
		{Outer: geo.Ring{
			{X: x0, Y: y0}, {X: x0 + size, Y: y0},
			{X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size},
		}},
	}}}
	return &fakeSource{set: set.Dissolve()}
}

type tilePoint struct {
	x, y, z float64
	clf     uint8
	proba   float64
	entropy float64
}

// newTile builds a synthetic store with the pipeline's input dimensions.
func newTile(t *testing.T, pts []tilePoint) *cloud.Store {
	t.Helper()
	s := cloud.NewStore(len(pts), 2154)
	s.AddDimension("x", cloud.Float64)
	s.AddDimension("y", cloud.Float64)
	s.AddDimension("z", cloud.Float64)
	s.AddDimension("classification", cloud.Uint8)
	s.AddDimension("building_proba", cloud.Float64)
	s.AddDimension("entropy", cloud.Float64)

	xs, err := s.Float64Column("x")
	require.NoError(t, err)
	ys, err := s.Float64Column("y")
	require.NoError(t, err)
	zs, err := s.Float64Column("z")
	require.NoError(t, err)
	clf, err := s.Uint8Column("classification")
	require.NoError(t, err)
	proba, err := s.Float64Column("building_proba")
	require.NoError(t, err)
	entropy, err := s.Float64Column("entropy")
	require.NoError(t, err)
	for i, p := range pts {
		xs[i], ys[i], zs[i] = p.x, p.y, p.z
		clf[i] = p.clf
		proba[i] = p.proba
		entropy[i] = p.entropy
	}
	return s
}

// patch scatters n points around (x0, y0), spaced well within tolerance.
func patch(x0, y0 float64, n int, clf uint8, proba, entropy float64) []tilePoint {
	pts := make([]tilePoint, n)
	for i := range pts {
		pts[i] = tilePoint{
			x:       x0 + float64(i%3)*0.3,
			y:       y0 + float64(i/3)*0.3,
			clf:     clf,
			proba:   proba,
			entropy: entropy,
		}
	}
	return pts
}

func testValidator(src *fakeSource) *Validator {
	return &Validator{
		Cluster:       cloud.ClusterParams{MinPoints: 3, Tolerance: 1.0},
		Buffer:        5,
		Source:        src,
		Codes:         DefaultCodes(),
		Dims:          DefaultDims(),
		Thresholds:    DefaultThresholds(),
		UseFinalCodes: true,
	}
}
