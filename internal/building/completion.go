package building

import (
	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

// Completer extends confirmed buildings to nearby high-probability points
// that the validator's stricter clustering left out. Clustering here is
// relaxed: 2D, with a tolerance well above the validation one.
type Completer struct {
	Cluster cloud.ClusterParams
	// MinBuildingProba selects the high-probability points to pull in.
	MinBuildingProba float64
	// RelaxationIfOverlay scales MinBuildingProba down for points under a
	// known footprint. 1.0 disables the relaxation.
	RelaxationIfOverlay float64
	// PromoteNonCandidates also rewrites the classification of non-candidate
	// completion points to building. Off by default: they keep their code and
	// only carry the completion flag, for human inspection.
	PromoteNonCandidates bool

	Codes Codes
	Dims  Dims

	logf func(format string, v ...interface{})
}

func (c *Completer) log(format string, args ...interface{}) {
	if c.logf == nil {
		c.logf = monitoring.Stage("completion")
	}
	c.logf(format, args...)
}

// Run reclusters high-probability and confirmed points together, then marks
// every group containing a confirmed building: its candidate members become
// buildings and its other members get the completion flag.
func (c *Completer) Run(s *cloud.Store) error {
	d := c.Dims

	proba, err := s.Reader(d.BuildingProba)
	if err != nil {
		return err
	}
	clf, err := s.Uint8Column(d.Classification)
	if err != nil {
		return err
	}
	overlay, err := s.Reader(d.OverlayFlag)
	if err != nil {
		return err
	}
	building := c.Codes.Final.Building
	relaxed := c.MinBuildingProba * c.RelaxationIfOverlay

	pred := func(i int) bool {
		if clf[i] == building {
			return true
		}
		if proba(i) >= c.MinBuildingProba {
			return true
		}
		return overlay(i) != 0 && proba(i) >= relaxed
	}
	if err := cloud.Cluster(s, pred, c.Cluster, d.ClusterID); err != nil {
		return err
	}
	if err := cloud.MoveDimension(s, d.ClusterID, d.CompletionCluster); err != nil {
		return err
	}
	s.AddDimension(d.CompletionFlag, cloud.Uint8)
	compFlag, err := s.Uint8Column(d.CompletionFlag)
	if err != nil {
		return err
	}
	candFlag, err := s.Uint8Column(d.CandidateFlag)
	if err != nil {
		return err
	}

	groups, err := s.GroupBy(d.CompletionCluster)
	if err != nil {
		return err
	}
	completedGroups := 0
	for _, g := range groups {
		if g.Key == 0 {
			continue
		}
		confirmed := false
		for _, i := range g.Idx {
			if clf[i] == building {
				confirmed = true
				break
			}
		}
		if !confirmed {
			continue
		}
		completedGroups++
		for _, i := range g.Idx {
			if candFlag[i] == 1 {
				clf[i] = building
				continue
			}
			compFlag[i] = 1
			if c.PromoteNonCandidates {
				clf[i] = building
			}
		}
	}
	c.log("completed %d building groups", completedGroups)
	return nil
}
