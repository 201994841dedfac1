package building

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDecideDetailed(t *testing.T) {
	codes := DefaultCodes()
	// Readable thresholds: confirm at p>=0.8 (70% of points), refute at
	// p<=0.2 (70% of points), overlay majority at 95%, entropy uncertain at
	// h>=0.7 for half the points.
	th := Thresholds{
		MinConfidenceConfirmation:        0.8,
		MinFracConfirmation:              0.7,
		MinFracConfirmationFactorOverlay: 0.5,
		MinUniDBOverlayFrac:              0.95,
		MinConfidenceRefutation:          0.8,
		MinFracRefutation:                0.7,
		MinEntropyUncertainty:            0.7,
		MinFracEntropyUncertain:          0.5,
	}

	tests := []struct {
		name string
		info ClusterInfo
		want uint8
	}{
		{
			name: "confirmed by model alone",
			info: ClusterInfo{
				Probabilities: repeat(0.9, 10),
				Overlays:      repeat(0, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.IAConfirmedOnly,
		},
		{
			name: "confirmed by model and overlay",
			info: ClusterInfo{
				Probabilities: repeat(0.9, 10),
				Overlays:      repeat(1, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.BothConfirmed,
		},
		{
			name: "overlay relaxes the confirmation threshold",
			info: ClusterInfo{
				// 0.5 < 0.8 but >= 0.8*0.5 under overlay.
				Probabilities: repeat(0.5, 10),
				Overlays:      repeat(1, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.BothConfirmed,
		},
		{
			name: "refuted",
			info: ClusterInfo{
				Probabilities: repeat(0.05, 10),
				Overlays:      repeat(0, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.IARefuted,
		},
		{
			name: "refuted but under footprint",
			info: ClusterInfo{
				Probabilities: repeat(0.05, 10),
				Overlays:      repeat(1, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.IARefutedUnderDB,
		},
		{
			name: "mostly low probability is refuted despite a confident minority",
			info: ClusterInfo{
				// With these thresholds refutation (p <= 0.2) and confirmation
				// (p >= 0.8) cannot both reach 70% of a cluster; a cluster with
				// 70% of its points at 0.1 is refuted even though the other
				// 30% sit above the confirmation bar.
				Probabilities: append(repeat(0.1, 7), repeat(0.9, 3)...),
				Overlays:      repeat(0, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.IARefuted,
		},
		{
			name: "unsure model under footprint",
			info: ClusterInfo{
				Probabilities: repeat(0.5, 10),
				Overlays:      repeat(1, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.BothConfirmed, // relaxed overlay confirmation
		},
		{
			name: "undecided but overlayed",
			info: ClusterInfo{
				Probabilities: repeat(0.3, 10),
				Overlays:      repeat(1, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.DBOverlayedOnly,
		},
		{
			name: "high entropy forces unsure despite confident model",
			info: ClusterInfo{
				Probabilities: repeat(0.95, 10),
				Overlays:      repeat(0, 10),
				Entropies:     repeat(0.9, 10),
			},
			want: codes.Detailed.UnsureByEntropy,
		},
		{
			name: "high entropy under overlay stays overlayed",
			info: ClusterInfo{
				Probabilities: repeat(0.95, 10),
				Overlays:      repeat(1, 10),
				Entropies:     repeat(0.9, 10),
			},
			want: codes.Detailed.DBOverlayedOnly,
		},
		{
			name: "nothing decides",
			info: ClusterInfo{
				Probabilities: repeat(0.5, 10),
				Overlays:      repeat(0, 10),
				Entropies:     repeat(0.1, 10),
			},
			want: codes.Detailed.BothUnsure,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecideDetailed(tc.info, th, codes))
		})
	}
}

func TestDecideFinalMapsDetailedCodes(t *testing.T) {
	codes := DefaultCodes()
	th := DefaultThresholds()

	info := ClusterInfo{
		Probabilities: repeat(0.99, 10),
		Overlays:      repeat(1, 10),
		Entropies:     repeat(0.0, 10),
	}
	assert.Equal(t, codes.Final.Building, DecideFinal(info, th, codes))

	info = ClusterInfo{
		Probabilities: repeat(0.01, 10),
		Overlays:      repeat(0, 10),
		Entropies:     repeat(0.0, 10),
	}
	assert.Equal(t, codes.Final.NotBuilding, DecideFinal(info, th, codes))
}

func TestWeakInequalities(t *testing.T) {
	codes := DefaultCodes()
	// Exactly at every bound: weak inequalities decide, not strict ones.
	th := Thresholds{
		MinConfidenceConfirmation: 0.6,
		MinFracConfirmation:       1.0,
		MinUniDBOverlayFrac:       1.0,
		MinConfidenceRefutation:   1.0,
		MinFracRefutation:         1.0,
		MinEntropyUncertainty:     1.0,
		MinFracEntropyUncertain:   1.0,
	}
	info := ClusterInfo{
		Probabilities: repeat(0.6, 4), // exactly the confirmation bound
		Overlays:      repeat(0, 4),
		Entropies:     repeat(0.0, 4),
	}
	assert.Equal(t, codes.Detailed.IAConfirmedOnly, DecideDetailed(info, th, codes))
}
