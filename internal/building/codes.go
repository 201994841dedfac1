// Package building implements the four-stage building classification
// pipeline: candidate validation, completion, identification, and the
// dimension cleanup that follows them.
package building

// FinalCodes is the closed set of terminal classification codes. Together
// with the untouched input codes (unclassified=1, ground=2) these are the
// only values allowed in an output classification dimension.
type FinalCodes struct {
	Building    uint8
	NotBuilding uint8
	Unsure      uint8
}

// DetailedCodes are the diagnostic decision outcomes, kept when the consumer
// asks for them instead of final codes.
type DetailedCodes struct {
	IARefuted        uint8
	IARefutedUnderDB uint8
	BothUnsure       uint8
	IAConfirmedOnly  uint8
	DBOverlayedOnly  uint8
	BothConfirmed    uint8
	UnsureByEntropy  uint8
}

// Codes carries the code configuration for one run.
type Codes struct {
	// Candidates are the input classification codes marking rule-based
	// candidate building points.
	Candidates []uint8
	Final      FinalCodes
	Detailed   DetailedCodes
	// DetailedToFinal maps every detailed code onto its final code.
	DetailedToFinal map[uint8]uint8
}

// DefaultCodes returns the production code set.
func DefaultCodes() Codes {
	final := FinalCodes{Building: 6, NotBuilding: 208, Unsure: 214}
	detailed := DetailedCodes{
		IARefuted:        110,
		IARefutedUnderDB: 111,
		BothUnsure:       112,
		IAConfirmedOnly:  113,
		DBOverlayedOnly:  114,
		BothConfirmed:    115,
		UnsureByEntropy:  117,
	}
	return Codes{
		Candidates: []uint8{202},
		Final:      final,
		Detailed:   detailed,
		DetailedToFinal: map[uint8]uint8{
			detailed.IARefuted:        final.NotBuilding,
			detailed.IARefutedUnderDB: final.NotBuilding,
			detailed.BothUnsure:       final.Unsure,
			detailed.IAConfirmedOnly:  final.Building,
			detailed.DBOverlayedOnly:  final.Unsure,
			detailed.BothConfirmed:    final.Building,
			detailed.UnsureByEntropy:  final.Unsure,
		},
	}
}

// IsCandidate reports whether an input classification code marks a candidate.
func (c Codes) IsCandidate(code uint8) bool {
	for _, cc := range c.Candidates {
		if code == cc {
			return true
		}
	}
	return false
}

// Dims names every dimension the pipeline reads or writes. Stages never share
// a cluster-id slot: each moves the generic id into its own dimension and
// resets the generic one.
type Dims struct {
	X              string
	Y              string
	Z              string
	Classification string
	BuildingProba  string
	Entropy        string

	ClusterID          string
	CandidateFlag      string
	CandidateClusterID string
	OverlayFlag        string
	CompletionCluster  string
	CompletionFlag     string
	IdentifiedCluster  string
}

// DefaultDims returns the standard dimension names.
func DefaultDims() Dims {
	return Dims{
		X:                  "x",
		Y:                  "y",
		Z:                  "z",
		Classification:     "classification",
		BuildingProba:      "building_proba",
		Entropy:            "entropy",
		ClusterID:          "cluster_id",
		CandidateFlag:      "candidate_flag",
		CandidateClusterID: "candidate_cluster_id",
		OverlayFlag:        "overlay_flag",
		CompletionCluster:  "completion_cluster_id",
		CompletionFlag:     "completion_flag",
		IdentifiedCluster:  "identified_cluster_id",
	}
}
