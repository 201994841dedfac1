package cloud

import (
	"fmt"
	"math"
)

// BBox is an axis-aligned XY bounding box.
type BBox struct {
	XMin, YMin, XMax, YMax float64
}

// Buffer expands the box by buf on every side.
func (b BBox) Buffer(buf float64) BBox {
	return BBox{b.XMin - buf, b.YMin - buf, b.XMax + buf, b.YMax + buf}
}

// Integer snaps the box outward to integer coordinates, the convention used
// for footprint envelope queries.
func (b BBox) Integer() BBox {
	return BBox{
		XMin: math.Floor(b.XMin),
		YMin: math.Floor(b.YMin),
		XMax: math.Ceil(b.XMax),
		YMax: math.Ceil(b.YMax),
	}
}

// Intersects reports whether the boxes share any area or edge.
func (b BBox) Intersects(o BBox) bool {
	return b.XMin <= o.XMax && o.XMin <= b.XMax && b.YMin <= o.YMax && o.YMin <= b.YMax
}

func (b BBox) String() string {
	return fmt.Sprintf("[%g,%g %g,%g]", b.XMin, b.YMin, b.XMax, b.YMax)
}

// Bounds computes the XY bounding box of the store's points. An empty store
// returns the zero box.
func (s *Store) Bounds() (BBox, error) {
	xs, err := s.Float64Column("x")
	if err != nil {
		return BBox{}, err
	}
	ys, err := s.Float64Column("y")
	if err != nil {
		return BBox{}, err
	}
	if len(xs) == 0 {
		return BBox{}, nil
	}
	b := BBox{XMin: xs[0], XMax: xs[0], YMin: ys[0], YMax: ys[0]}
	for i := 1; i < len(xs); i++ {
		if xs[i] < b.XMin {
			b.XMin = xs[i]
		}
		if xs[i] > b.XMax {
			b.XMax = xs[i]
		}
		if ys[i] < b.YMin {
			b.YMin = ys[i]
		}
		if ys[i] > b.YMax {
			b.YMax = ys[i]
		}
	}
	return b, nil
}
