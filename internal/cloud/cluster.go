package cloud

import (
	"fmt"
	"math"
)

// estimatedPointsPerCell is used for initial spatial index capacity estimation.
const estimatedPointsPerCell = 4

// ClusterParams controls Euclidean connected-component clustering.
type ClusterParams struct {
	// MinPoints is the minimum component size to receive a nonzero id.
	MinPoints int
	// Tolerance is the maximum distance between two linked neighbours of a
	// component, in the tile's units (metres). It does not bound the
	// component's overall extent.
	Tolerance float64
	// Is3D selects 3D distance; otherwise Z is ignored.
	Is3D bool
}

// Validate checks the parameters.
func (p ClusterParams) Validate() error {
	if p.MinPoints < 1 {
		return fmt.Errorf("cluster min_points must be >= 1, got %d", p.MinPoints)
	}
	if p.Tolerance <= 0 {
		return fmt.Errorf("cluster tolerance must be positive, got %f", p.Tolerance)
	}
	return nil
}

type cell struct{ x, y, z int64 }

// clusterIndex is a regular-grid spatial index over the selected points.
// Cell size matches the tolerance so neighbour queries only visit adjacent
// cells.
type clusterIndex struct {
	cellSize float64
	is3d     bool
	grid     map[cell][]int32
}

func newClusterIndex(cellSize float64, is3d bool, capacity int) *clusterIndex {
	return &clusterIndex{
		cellSize: cellSize,
		is3d:     is3d,
		grid:     make(map[cell][]int32, capacity/estimatedPointsPerCell+1),
	}
}

func (ci *clusterIndex) cellOf(x, y, z float64) cell {
	c := cell{
		x: int64(math.Floor(x / ci.cellSize)),
		y: int64(math.Floor(y / ci.cellSize)),
	}
	if ci.is3d {
		c.z = int64(math.Floor(z / ci.cellSize))
	}
	return c
}

func (ci *clusterIndex) insert(id int32, x, y, z float64) {
	c := ci.cellOf(x, y, z)
	ci.grid[c] = append(ci.grid[c], id)
}

// Cluster assigns connected-component ids to every point satisfying pred,
// writing them into the uint32 dimension dst (created if absent, reset to 0
// first). Components are connected under Euclidean distance <= Tolerance (2D
// unless Is3D); only components of size >= MinPoints receive ids, numbered
// from 1 in order of discovery. Everything else gets 0. Consumers must not
// depend on specific id values. An empty selection is not an error.
func Cluster(s *Store, pred func(i int) bool, p ClusterParams, dst string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.AddDimension(dst, Uint32)
	out, err := s.Uint32Column(dst)
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = 0
	}

	xs, err := s.Float64Column("x")
	if err != nil {
		return err
	}
	ys, err := s.Float64Column("y")
	if err != nil {
		return err
	}
	zs, err := s.Float64Column("z")
	if err != nil {
		return err
	}

	// Gather the selected points once; everything below works on this subset.
	var sel []int32
	for i := 0; i < s.Len(); i++ {
		if pred(i) {
			sel = append(sel, int32(i))
		}
	}
	if len(sel) == 0 {
		return nil
	}

	ci := newClusterIndex(p.Tolerance, p.Is3D, len(sel))
	for si, pi := range sel {
		ci.insert(int32(si), xs[pi], ys[pi], zs[pi])
	}

	tol2 := p.Tolerance * p.Tolerance
	// labels over the selection: 0 = unvisited, >0 = component id.
	labels := make([]int32, len(sel))
	var componentID int32

	// Flood fill each unvisited selected point through the grid.
	var queue []int32
	for si := range sel {
		if labels[si] != 0 {
			continue
		}
		componentID++
		labels[si] = componentID
		queue = append(queue[:0], int32(si))
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			pi := sel[cur]
			px, py, pz := xs[pi], ys[pi], zs[pi]
			base := ci.cellOf(px, py, pz)

			zlo, zhi := int64(0), int64(0)
			if p.Is3D {
				zlo, zhi = -1, 1
			}
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for dz := zlo; dz <= zhi; dz++ {
						for _, cand := range ci.grid[cell{base.x + dx, base.y + dy, base.z + dz}] {
							if labels[cand] != 0 {
								continue
							}
							qi := sel[cand]
							ddx := xs[qi] - px
							ddy := ys[qi] - py
							d2 := ddx*ddx + ddy*ddy
							if p.Is3D {
								ddz := zs[qi] - pz
								d2 += ddz * ddz
							}
							if d2 <= tol2 {
								labels[cand] = componentID
								queue = append(queue, cand)
							}
						}
					}
				}
			}
		}
	}

	// Drop undersized components and renumber survivors in discovery order.
	sizes := make([]int32, componentID+1)
	for _, l := range labels {
		sizes[l]++
	}
	remap := make([]uint32, componentID+1)
	var next uint32
	for id := int32(1); id <= componentID; id++ {
		if int(sizes[id]) >= p.MinPoints {
			next++
			remap[id] = next
		}
	}
	for si, l := range labels {
		out[sel[si]] = remap[l]
	}
	return nil
}

// MoveDimension copies src into dst (created if absent) and resets src to 0.
// The stages use it to move the generic cluster-id dimension into their own
// slot so later stages start clean.
func MoveDimension(s *Store, src, dst string) error {
	typ, err := s.DimensionType(src)
	if err != nil {
		return err
	}
	s.AddDimension(dst, typ)
	read, err := s.Reader(src)
	if err != nil {
		return err
	}
	dc, ok := s.cols[dst]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDimension, dst)
	}
	sc := s.cols[src]
	for i := 0; i < s.n; i++ {
		dc.set(i, read(i))
		sc.set(i, 0)
	}
	return nil
}
