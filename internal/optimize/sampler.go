// Package optimize searches the building-validation decision thresholds that
// maximize (automation, precision, recall) under hard floor constraints,
// using a trial-based sampler over a corpus of hand-corrected tiles.
package optimize

import (
	"math"
	"math/rand"

	"github.com/banshee-data/lidarclass/internal/building"
)

// Trial suggests parameter values for one trial.
type Trial interface {
	// SuggestFloat draws a value for the named parameter from [lo, hi].
	SuggestFloat(name string, lo, hi float64) float64
}

// Sampler produces trials by index. Trial results (penalties and metric
// values) are not passed back through this interface, so a sampler cannot
// condition later trials on earlier results; RandomSampler draws every trial
// independently.
type Sampler interface {
	Trial(index int) Trial
}

// RandomSampler draws every parameter uniformly. Seeded, so an optimizer run
// is reproducible.
type RandomSampler struct {
	rng *rand.Rand
}

// NewRandomSampler creates a sampler with the given seed.
func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

// Trial returns the next trial. Trials share the sampler's stream; the index
// is unused here but part of the interface for samplers that adapt.
func (s *RandomSampler) Trial(index int) Trial {
	return randomTrial{rng: s.rng}
}

type randomTrial struct {
	rng *rand.Rand
}

func (t randomTrial) SuggestFloat(name string, lo, hi float64) float64 {
	return lo + t.rng.Float64()*(hi-lo)
}

// Ranges bounds the eight threshold parameters for the search.
type Ranges struct {
	ConfidenceConfirmation [2]float64
	FracConfirmation       [2]float64
	ConfidenceRefutation   [2]float64
	FracRefutation         [2]float64
	UniDBOverlayFrac       [2]float64
	ConfirmationFactor     [2]float64
	EntropyUncertainty     [2]float64
	FracEntropyUncertain   [2]float64
}

// DefaultRanges returns the search bounds. The entropy threshold is bounded
// by log2(numClasses)/2: the observed maximum of the normalized prediction
// entropy is about half the Shannon maximum.
func DefaultRanges(numClasses int) Ranges {
	maxEntropy := math.Log2(float64(numClasses)) / 2
	return Ranges{
		ConfidenceConfirmation: [2]float64{0.0, 1.0},
		FracConfirmation:       [2]float64{0.0, 1.0},
		ConfidenceRefutation:   [2]float64{0.0, 1.0},
		FracRefutation:         [2]float64{0.0, 1.0},
		UniDBOverlayFrac:       [2]float64{0.5, 1.0},
		ConfirmationFactor:     [2]float64{0.5, 1.0},
		EntropyUncertainty:     [2]float64{0.0, maxEntropy},
		FracEntropyUncertain:   [2]float64{0.33, 1.0},
	}
}

// Sample draws one thresholds value from the ranges.
func (r Ranges) Sample(t Trial) building.Thresholds {
	return building.Thresholds{
		MinConfidenceConfirmation:        t.SuggestFloat("min_confidence_confirmation", r.ConfidenceConfirmation[0], r.ConfidenceConfirmation[1]),
		MinFracConfirmation:              t.SuggestFloat("min_frac_confirmation", r.FracConfirmation[0], r.FracConfirmation[1]),
		MinConfidenceRefutation:          t.SuggestFloat("min_confidence_refutation", r.ConfidenceRefutation[0], r.ConfidenceRefutation[1]),
		MinFracRefutation:                t.SuggestFloat("min_frac_refutation", r.FracRefutation[0], r.FracRefutation[1]),
		MinUniDBOverlayFrac:              t.SuggestFloat("min_uni_db_overlay_frac", r.UniDBOverlayFrac[0], r.UniDBOverlayFrac[1]),
		MinFracConfirmationFactorOverlay: t.SuggestFloat("min_frac_confirmation_factor_if_bd_uni_overlay", r.ConfirmationFactor[0], r.ConfirmationFactor[1]),
		MinEntropyUncertainty:            t.SuggestFloat("min_entropy_uncertainty", r.EntropyUncertainty[0], r.EntropyUncertainty[1]),
		MinFracEntropyUncertain:          t.SuggestFloat("min_frac_entropy_uncertain", r.FracEntropyUncertain[0], r.FracEntropyUncertain[1]),
	}
}
