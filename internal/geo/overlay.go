package geo

import (
	"math"

	"github.com/banshee-data/lidarclass/internal/cloud"
)

// estimatedFeaturesPerCell sizes the envelope grid.
const estimatedFeaturesPerCell = 2

// envelopeIndex is a regular grid over feature envelopes. Each feature is
// registered in every cell its envelope covers; a point only tests the
// features of its own cell.
type envelopeIndex struct {
	cellSize float64
	grid     map[[2]int64][]int
}

func buildEnvelopeIndex(envs []cloud.BBox) *envelopeIndex {
	// Cell size tracks the mean envelope extent so features land in a handful
	// of cells each.
	var sum float64
	for _, e := range envs {
		w := e.XMax - e.XMin
		h := e.YMax - e.YMin
		if h > w {
			w = h
		}
		sum += w
	}
	cellSize := sum / float64(len(envs))
	if cellSize <= 0 {
		cellSize = 1
	}
	idx := &envelopeIndex{
		cellSize: cellSize,
		grid:     make(map[[2]int64][]int, len(envs)*estimatedFeaturesPerCell),
	}
	for i, e := range envs {
		x0 := int64(math.Floor(e.XMin / cellSize))
		x1 := int64(math.Floor(e.XMax / cellSize))
		y0 := int64(math.Floor(e.YMin / cellSize))
		y1 := int64(math.Floor(e.YMax / cellSize))
		for cx := x0; cx <= x1; cx++ {
			for cy := y0; cy <= y1; cy++ {
				key := [2]int64{cx, cy}
				idx.grid[key] = append(idx.grid[key], i)
			}
		}
	}
	return idx
}

func (idx *envelopeIndex) candidates(x, y float64) []int {
	key := [2]int64{
		int64(math.Floor(x / idx.cellSize)),
		int64(math.Floor(y / idx.cellSize)),
	}
	return idx.grid[key]
}

// Overlay writes 1 into dst for every point whose XY falls inside any feature
// of the set, 0 otherwise. The output dimension is created even when the set
// is empty, in which case the pass is a plain O(N) zero fill. The set must be
// dissolved; handing a raw set is a caller bug and yields
// ErrInvalidPolygonSet.
func Overlay(s *cloud.Store, set PolygonSet, dst string) error {
	s.AddDimension(dst, cloud.Uint8)
	out, err := s.Uint8Column(dst)
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = 0
	}
	if set.Empty() {
		return nil
	}
	if !set.Dissolved() {
		return ErrInvalidPolygonSet
	}

	xs, err := s.Float64Column("x")
	if err != nil {
		return err
	}
	ys, err := s.Float64Column("y")
	if err != nil {
		return err
	}

	envs := make([]cloud.BBox, len(set.Features))
	for i, f := range set.Features {
		envs[i] = f.Envelope()
	}
	idx := buildEnvelopeIndex(envs)

	for i := range xs {
		x, y := xs[i], ys[i]
		for _, fi := range idx.candidates(x, y) {
			e := envs[fi]
			if x < e.XMin || x > e.XMax || y < e.YMin || y > e.YMax {
				continue
			}
			if set.Features[fi].Contains(x, y) {
				out[i] = 1
				break
			}
		}
	}
	return nil
}
