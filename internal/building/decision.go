package building

import (
	"gonum.org/v1/gonum/stat"
)

// ClusterInfo is the per-cluster view handed to the decision function: the
// model probabilities, footprint overlay flags and entropies of the cluster's
// points. Target carries the folded ground-truth label and is only meaningful
// during threshold optimization.
type ClusterInfo struct {
	Probabilities []float64 `json:"probabilities"`
	Overlays      []float64 `json:"overlays"`
	Entropies     []float64 `json:"entropies"`

	Target    uint8 `json:"target,omitempty"`
	HasTarget bool  `json:"has_target,omitempty"`
}

// fracWhere is the fraction of points for which keep is true.
func fracWhere(n int, keep func(i int) bool) float64 {
	if n == 0 {
		return 0
	}
	count := 0
	for i := 0; i < n; i++ {
		if keep(i) {
			count++
		}
	}
	return float64(count) / float64(n)
}

// DecideDetailed runs the cluster-level decision and returns a detailed code.
// All inequalities are weak. The precedence is: trust the model when entropy
// is low (refutation before confirmation), fall back to the footprint overlay,
// and default to unsure.
func DecideDetailed(info ClusterInfo, t Thresholds, codes Codes) uint8 {
	n := len(info.Probabilities)

	highEntropy := fracWhere(n, func(i int) bool {
		return info.Entropies[i] >= t.MinEntropyUncertainty
	}) >= t.MinFracEntropyUncertain

	// Confirmation threshold is relaxed for points under a known footprint.
	relaxed := t.MinConfidenceConfirmation * t.MinFracConfirmationFactorOverlay
	iaConfirmed := fracWhere(n, func(i int) bool {
		if info.Probabilities[i] >= t.MinConfidenceConfirmation {
			return true
		}
		return info.Overlays[i] != 0 && info.Probabilities[i] >= relaxed
	}) >= t.MinFracConfirmation

	iaRefuted := fracWhere(n, func(i int) bool {
		return 1-info.Probabilities[i] >= t.MinConfidenceRefutation
	}) >= t.MinFracRefutation

	uniOverlayed := stat.Mean(info.Overlays, nil) >= t.MinUniDBOverlayFrac

	if !highEntropy {
		if iaRefuted {
			if uniOverlayed {
				return codes.Detailed.IARefutedUnderDB
			}
			return codes.Detailed.IARefuted
		}
		if iaConfirmed {
			if uniOverlayed {
				return codes.Detailed.BothConfirmed
			}
			return codes.Detailed.IAConfirmedOnly
		}
	}
	if uniOverlayed {
		return codes.Detailed.DBOverlayedOnly
	}
	if highEntropy {
		return codes.Detailed.UnsureByEntropy
	}
	return codes.Detailed.BothUnsure
}

// DecideFinal maps the detailed decision onto its final code.
func DecideFinal(info ClusterInfo, t Thresholds, codes Codes) uint8 {
	return codes.DetailedToFinal[DecideDetailed(info, t, codes)]
}
