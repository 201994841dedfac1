package building

import (
	"context"
	"fmt"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/footprint"
	"github.com/banshee-data/lidarclass/internal/geo"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

// Validator confirms, refutes or defers each cluster of candidate building
// points, fusing the model probabilities with the footprint overlay.
//
// Prepare and Decide are split on purpose: the threshold optimizer runs
// Prepare once per tile and then re-runs the decision for every trial on the
// prepared data. Prepare therefore never touches the classification
// dimension.
type Validator struct {
	Cluster cloud.ClusterParams
	// Buffer expands the tile bbox for the footprint query, metres.
	Buffer float64
	Source footprint.Source
	Codes  Codes
	Dims   Dims
	// Thresholds is swapped as a whole value; a swap is atomic relative to a
	// Run call.
	Thresholds    Thresholds
	UseFinalCodes bool

	logf func(format string, v ...interface{})
}

func (v *Validator) log(format string, args ...interface{}) {
	if v.logf == nil {
		v.logf = monitoring.Stage("validation")
	}
	v.logf(format, args...)
}

// Run performs preparation then decision on the store.
func (v *Validator) Run(ctx context.Context, s *cloud.Store) error {
	if err := v.Prepare(ctx, s); err != nil {
		return err
	}
	return v.Decide(s)
}

// Prepare flags candidate points, clusters them, and overlays the known
// footprints fetched for the tile's buffered bbox.
func (v *Validator) Prepare(ctx context.Context, s *cloud.Store) error {
	d := v.Dims

	// 1. Flag candidate points.
	s.AddDimension(d.CandidateFlag, cloud.Uint8)
	clf, err := s.Uint8Column(d.Classification)
	if err != nil {
		return err
	}
	if err := s.AssignWhere(d.CandidateFlag, 1, func(i int) bool {
		return v.Codes.IsCandidate(clf[i])
	}); err != nil {
		return err
	}

	// 2. Cluster candidates, then move ids out of the generic slot so later
	// stages start clean.
	flag, err := s.Uint8Column(d.CandidateFlag)
	if err != nil {
		return err
	}
	if err := cloud.Cluster(s, func(i int) bool { return flag[i] == 1 }, v.Cluster, d.ClusterID); err != nil {
		return fmt.Errorf("cluster candidates: %w", err)
	}
	if err := cloud.MoveDimension(s, d.ClusterID, d.CandidateClusterID); err != nil {
		return err
	}

	// 3. Fetch footprints for the buffered bbox.
	bounds, err := s.Bounds()
	if err != nil {
		return err
	}
	bbox := bounds.Buffer(v.Buffer).Integer()
	set, err := v.Source.Fetch(ctx, bbox, s.CRS)
	if err != nil {
		return fmt.Errorf("fetch footprints for %v: %w", bbox, err)
	}
	v.log("fetched %d footprint features for %v", len(set.Features), bbox)

	// 4. Overlay.
	if err := geo.Overlay(s, set, d.OverlayFlag); err != nil {
		return fmt.Errorf("overlay footprints: %w", err)
	}
	return nil
}

// Decide updates the classification of every candidate cluster. Candidate
// points left in cluster 0 keep the not_building default written first, so
// every candidate ends up with a defined final value.
func (v *Validator) Decide(s *cloud.Store) error {
	d := v.Dims

	flag, err := s.Uint8Column(d.CandidateFlag)
	if err != nil {
		return err
	}
	if err := s.AssignWhere(d.Classification, float64(v.Codes.Final.NotBuilding), func(i int) bool {
		return flag[i] == 1
	}); err != nil {
		return err
	}

	groups, err := s.GroupBy(d.CandidateClusterID)
	if err != nil {
		return err
	}
	clf, err := s.Uint8Column(d.Classification)
	if err != nil {
		return err
	}

	decided := 0
	for _, g := range groups {
		if g.Key == 0 {
			continue
		}
		info, err := v.ExtractClusterInfo(s, g.Idx)
		if err != nil {
			return err
		}
		code := DecideDetailed(info, v.Thresholds, v.Codes)
		if v.UseFinalCodes {
			code = v.Codes.DetailedToFinal[code]
		}
		for _, i := range g.Idx {
			clf[i] = code
		}
		decided++
	}
	v.log("decided %d candidate clusters", decided)
	return nil
}

// ExtractClusterInfo gathers the decision inputs for one cluster's point
// indices.
func (v *Validator) ExtractClusterInfo(s *cloud.Store, idx []int) (ClusterInfo, error) {
	d := v.Dims
	proba, err := s.Reader(d.BuildingProba)
	if err != nil {
		return ClusterInfo{}, err
	}
	overlay, err := s.Reader(d.OverlayFlag)
	if err != nil {
		return ClusterInfo{}, err
	}
	entropy, err := s.Reader(d.Entropy)
	if err != nil {
		return ClusterInfo{}, err
	}
	info := ClusterInfo{
		Probabilities: make([]float64, len(idx)),
		Overlays:      make([]float64, len(idx)),
		Entropies:     make([]float64, len(idx)),
	}
	for n, i := range idx {
		info.Probabilities[n] = proba(i)
		info.Overlays[n] = overlay(i)
		info.Entropies[n] = entropy(i)
	}
	return info, nil
}
