package building

import (
	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

// Identifier clusters the high-probability points that neither the rule-based
// algorithm nor the completion stage picked up, into new unlabelled building
// candidates. It never mutates the classification: downstream tooling reads
// the identified cluster ids to present candidates for inspection.
type Identifier struct {
	Cluster cloud.ClusterParams
	// MinBuildingProba selects the points to consider.
	MinBuildingProba float64
	// RelaxationIfOverlay scales MinBuildingProba down for points under a
	// known footprint. 1.0 disables the relaxation.
	RelaxationIfOverlay float64

	Codes Codes
	Dims  Dims

	logf func(format string, v ...interface{})
}

func (id *Identifier) log(format string, args ...interface{}) {
	if id.logf == nil {
		id.logf = monitoring.Stage("identification")
	}
	id.logf(format, args...)
}

// Run clusters the remaining high-probability non-candidate points and moves
// the ids into the identified-cluster dimension.
func (id *Identifier) Run(s *cloud.Store) error {
	d := id.Dims

	proba, err := s.Reader(d.BuildingProba)
	if err != nil {
		return err
	}
	clf, err := s.Uint8Column(d.Classification)
	if err != nil {
		return err
	}
	candFlag, err := s.Uint8Column(d.CandidateFlag)
	if err != nil {
		return err
	}
	s.AddDimension(d.CompletionFlag, cloud.Uint8)
	compFlag, err := s.Uint8Column(d.CompletionFlag)
	if err != nil {
		return err
	}
	overlay, err := s.Reader(d.OverlayFlag)
	if err != nil {
		return err
	}
	building := id.Codes.Final.Building
	relaxed := id.MinBuildingProba * id.RelaxationIfOverlay

	pred := func(i int) bool {
		if candFlag[i] != 0 || clf[i] == building || compFlag[i] == 1 {
			return false
		}
		if proba(i) >= id.MinBuildingProba {
			return true
		}
		return overlay(i) != 0 && proba(i) >= relaxed
	}
	if err := cloud.Cluster(s, pred, id.Cluster, d.ClusterID); err != nil {
		return err
	}
	if err := cloud.MoveDimension(s, d.ClusterID, d.IdentifiedCluster); err != nil {
		return err
	}

	ids, err := s.Uint32Column(d.IdentifiedCluster)
	if err != nil {
		return err
	}
	var max uint32
	for _, v := range ids {
		if v > max {
			max = v
		}
	}
	id.log("identified %d new building candidate groups", max)
	return nil
}
