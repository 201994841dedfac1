package building

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarclass/internal/footprint"
)

func TestValidatorPrepare(t *testing.T) {
	var pts []tilePoint
	pts = append(pts, patch(0, 0, 6, 202, 0.9, 0.1)...)                            // candidate cluster
	pts = append(pts, patch(20, 20, 6, 202, 0.1, 0.1)...)                          // candidate cluster
	pts = append(pts, tilePoint{x: 40, y: 40, clf: 202, proba: 0.9, entropy: 0.1}) // isolated candidate
	pts = append(pts, patch(10, 10, 4, 2, 0.2, 0.1)...)                            // ground, never flagged
	src := squareSource(-1, -1, 3)

	v := testValidator(src)
	s := newTile(t, pts)
	require.NoError(t, v.Prepare(context.Background(), s))

	flag, err := s.Uint8Column("candidate_flag")
	require.NoError(t, err)
	ids, err := s.Uint32Column("candidate_cluster_id")
	require.NoError(t, err)
	overlay, err := s.Uint8Column("overlay_flag")
	require.NoError(t, err)
	generic, err := s.Uint32Column("cluster_id")
	require.NoError(t, err)

	// Candidates flagged, ground not.
	assert.Equal(t, uint8(1), flag[0])
	assert.Equal(t, uint8(0), flag[13])
	// Two clusters; the isolated candidate stays at 0.
	assert.NotZero(t, ids[0])
	assert.NotZero(t, ids[6])
	assert.NotEqual(t, ids[0], ids[6])
	assert.Zero(t, ids[12])
	// The footprint covers the first patch only.
	assert.Equal(t, uint8(1), overlay[0])
	assert.Equal(t, uint8(0), overlay[6])
	// The generic cluster-id slot is left clean for later stages.
	for _, id := range generic {
		assert.Zero(t, id)
	}
	// Prepare never touches the classification.
	clf, _ := s.Uint8Column("classification")
	assert.Equal(t, uint8(202), clf[0])
	assert.Equal(t, 1, src.calls)
}

func TestValidatorPrepareIdempotent(t *testing.T) {
	var pts []tilePoint
	pts = append(pts, patch(0, 0, 6, 202, 0.9, 0.1)...)
	pts = append(pts, patch(30, 30, 5, 202, 0.3, 0.2)...)
	src := squareSource(-1, -1, 3)

	v := testValidator(src)
	s := newTile(t, pts)
	require.NoError(t, v.Prepare(context.Background(), s))
	first := s.Clone()
	require.NoError(t, v.Prepare(context.Background(), s))

	fFlag, _ := first.Uint8Column("candidate_flag")
	sFlag, _ := s.Uint8Column("candidate_flag")
	assert.Equal(t, fFlag, sFlag)
	fOv, _ := first.Uint8Column("overlay_flag")
	sOv, _ := s.Uint8Column("overlay_flag")
	assert.Equal(t, fOv, sOv)

	// Cluster ids equal up to a bijective relabeling.
	fIDs, _ := first.Uint32Column("candidate_cluster_id")
	sIDs, _ := s.Uint32Column("candidate_cluster_id")
	mapping := map[uint32]uint32{}
	for i := range fIDs {
		if got, ok := mapping[fIDs[i]]; ok {
			assert.Equal(t, got, sIDs[i])
		} else {
			mapping[fIDs[i]] = sIDs[i]
		}
	}
}

func TestValidatorDecide(t *testing.T) {
	var pts []tilePoint
	pts = append(pts, patch(0, 0, 6, 202, 0.9, 0.1)...)                            // confirmed
	pts = append(pts, patch(20, 20, 6, 202, 0.05, 0.1)...)                         // refuted
	pts = append(pts, tilePoint{x: 40, y: 40, clf: 202, proba: 0.9, entropy: 0.1}) // undecided candidate

	v := testValidator(emptySource())
	s := newTile(t, pts)
	require.NoError(t, v.Run(context.Background(), s))

	codes := v.Codes.Final
	clf, _ := s.Uint8Column("classification")
	for i := 0; i < 6; i++ {
		assert.Equal(t, codes.Building, clf[i], "point %d", i)
	}
	for i := 6; i < 12; i++ {
		assert.Equal(t, codes.NotBuilding, clf[i], "point %d", i)
	}
	// The unclustered candidate gets the not_building default.
	assert.Equal(t, codes.NotBuilding, clf[12])
}

func TestValidatorDetailedCodes(t *testing.T) {
	pts := patch(0, 0, 6, 202, 0.9, 0.1)
	v := testValidator(emptySource())
	v.UseFinalCodes = false
	s := newTile(t, pts)
	require.NoError(t, v.Run(context.Background(), s))

	clf, _ := s.Uint8Column("classification")
	assert.Equal(t, v.Codes.Detailed.IAConfirmedOnly, clf[0])
}

func TestValidatorZeroProbaNeverConfirms(t *testing.T) {
	var pts []tilePoint
	pts = append(pts, patch(0, 0, 9, 202, 0, 0.1)...)
	pts = append(pts, patch(15, 15, 6, 202, 0, 0.1)...)
	src := squareSource(-2, -2, 30) // everything under a footprint

	v := testValidator(src)
	s := newTile(t, pts)
	require.NoError(t, v.Run(context.Background(), s))

	codes := v.Codes.Final
	clf, _ := s.Uint8Column("classification")
	for i := range clf {
		assert.NotEqual(t, codes.Building, clf[i], "point %d", i)
		assert.Contains(t, []uint8{codes.NotBuilding, codes.Unsure}, clf[i])
	}
}

func TestValidatorNoCandidates(t *testing.T) {
	pts := patch(0, 0, 8, 1, 0.9, 0.1) // all unclassified, none candidate
	v := testValidator(emptySource())
	s := newTile(t, pts)
	require.NoError(t, v.Run(context.Background(), s))

	ids, _ := s.Uint32Column("candidate_cluster_id")
	for _, id := range ids {
		assert.Zero(t, id)
	}
	clf, _ := s.Uint8Column("classification")
	for _, c := range clf {
		assert.Equal(t, uint8(1), c)
	}
}

func TestValidatorSourceErrorPropagates(t *testing.T) {
	src := &fakeSource{err: footprint.ErrSourceUnavailable}
	v := testValidator(src)
	s := newTile(t, patch(0, 0, 6, 202, 0.9, 0.1))

	err := v.Run(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, footprint.ErrSourceUnavailable)
}
