package building

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarclass/internal/cloud"
)

func testCompleter() *Completer {
	return &Completer{
		Cluster:             cloud.ClusterParams{MinPoints: 3, Tolerance: 3.0},
		MinBuildingProba:    0.75,
		RelaxationIfOverlay: 1.0,
		Codes:               DefaultCodes(),
		Dims:                DefaultDims(),
	}
}

// completionTile builds a tile with one confirmed building patch and a
// high-probability fringe 2 m away that validation left unclustered.
func completionTile(t *testing.T) *cloud.Store {
	codes := DefaultCodes()
	var pts []tilePoint
	pts = append(pts, patch(0, 0, 6, codes.Final.Building, 0.9, 0.1)...) // confirmed
	// Fringe: high proba, non-candidate, close enough for the relaxed 2D pass.
	pts = append(pts, tilePoint{x: 2.5, y: 0, clf: 1, proba: 0.9, entropy: 0.1})
	// Isolated candidate refuted by validation, high proba, near the building.
	pts = append(pts, tilePoint{x: 2.5, y: 1, clf: codes.Final.NotBuilding, proba: 0.9, entropy: 0.1})
	// Far-away high-probability noise: its own group, no confirmed member.
	pts = append(pts, patch(100, 100, 4, 1, 0.9, 0.1)...)

	s := newTile(t, pts)
	// Completion runs after validation, so the work dimensions already exist.
	// The refuted point at index 7 was a candidate.
	s.AddDimension("candidate_flag", cloud.Uint8)
	flag, err := s.Uint8Column("candidate_flag")
	require.NoError(t, err)
	flag[7] = 1
	s.AddDimension("overlay_flag", cloud.Uint8)
	return s
}

func TestCompleterExtendsConfirmedBuildings(t *testing.T) {
	s := completionTile(t)
	c := testCompleter()
	require.NoError(t, c.Run(s))

	codes := c.Codes.Final
	clf, _ := s.Uint8Column("classification")
	compFlag, _ := s.Uint8Column("completion_flag")
	ids, _ := s.Uint32Column("completion_cluster_id")

	// The candidate member of the confirmed group is promoted.
	assert.Equal(t, codes.Building, clf[7])
	// The non-candidate fringe is flagged but keeps its classification.
	assert.Equal(t, uint8(1), compFlag[6])
	assert.Equal(t, uint8(1), clf[6])
	// Far-away noise group has no confirmed member: untouched.
	for i := 8; i < 12; i++ {
		assert.Zero(t, compFlag[i])
		assert.Equal(t, uint8(1), clf[i])
	}
	// All confirmed points were clustered.
	assert.NotZero(t, ids[0])
	assert.Equal(t, ids[0], ids[6])
}

func TestCompleterPromoteNonCandidates(t *testing.T) {
	s := completionTile(t)
	c := testCompleter()
	c.PromoteNonCandidates = true
	require.NoError(t, c.Run(s))

	clf, _ := s.Uint8Column("classification")
	assert.Equal(t, c.Codes.Final.Building, clf[6])
}

// Completion monotonicity: a building stays a building.
func TestCompleterMonotonicity(t *testing.T) {
	s := completionTile(t)
	codes := DefaultCodes()
	before, _ := s.Uint8Column("classification")
	wasBuilding := make([]bool, len(before))
	for i, c := range before {
		wasBuilding[i] = c == codes.Final.Building
	}

	c := testCompleter()
	require.NoError(t, c.Run(s))

	after, _ := s.Uint8Column("classification")
	for i := range after {
		if wasBuilding[i] {
			assert.Equal(t, codes.Final.Building, after[i], "point %d lost its building code", i)
		}
	}
}

func TestCompleterGenericClusterSlotLeftClean(t *testing.T) {
	s := completionTile(t)
	c := testCompleter()
	require.NoError(t, c.Run(s))

	generic, err := s.Uint32Column("cluster_id")
	require.NoError(t, err)
	for _, id := range generic {
		assert.Zero(t, id)
	}
}

func TestCompleterOverlayRelaxation(t *testing.T) {
	codes := DefaultCodes()
	var pts []tilePoint
	pts = append(pts, patch(0, 0, 6, codes.Final.Building, 0.9, 0.1)...)
	// Proba below the bar, but under a footprint with relaxation 0.8.
	pts = append(pts, tilePoint{x: 2.5, y: 0, clf: 1, proba: 0.65, entropy: 0.1})
	s := newTile(t, pts)
	s.AddDimension("candidate_flag", cloud.Uint8)
	s.AddDimension("overlay_flag", cloud.Uint8)
	ov, _ := s.Uint8Column("overlay_flag")
	ov[6] = 1

	c := testCompleter()
	c.RelaxationIfOverlay = 0.8 // bar drops to 0.6 under overlay
	require.NoError(t, c.Run(s))

	compFlag, _ := s.Uint8Column("completion_flag")
	assert.Equal(t, uint8(1), compFlag[6])
}
