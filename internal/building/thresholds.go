package building

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/lidarclass/internal/fsutil"
)

// Thresholds are the eight scalar decision parameters of the cluster-level
// decision. A Thresholds value is immutable once built; the validator swaps
// whole values between runs. building_proba is not assumed calibrated — the
// threshold search absorbs mis-calibration.
type Thresholds struct {
	MinConfidenceConfirmation        float64 `yaml:"min_confidence_confirmation"`
	MinFracConfirmation              float64 `yaml:"min_frac_confirmation"`
	MinFracConfirmationFactorOverlay float64 `yaml:"min_frac_confirmation_factor_if_bd_uni_overlay"`
	MinUniDBOverlayFrac              float64 `yaml:"min_uni_db_overlay_frac"`
	MinConfidenceRefutation          float64 `yaml:"min_confidence_refutation"`
	MinFracRefutation                float64 `yaml:"min_frac_refutation"`
	MinEntropyUncertainty            float64 `yaml:"min_entropy_uncertainty"`
	MinFracEntropyUncertain          float64 `yaml:"min_frac_entropy_uncertain"`
}

// DefaultThresholds returns the production defaults. These sit inside the
// optimizer's search ranges; an optimizer run replaces them wholesale.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidenceConfirmation:        0.60,
		MinFracConfirmation:              0.70,
		MinFracConfirmationFactorOverlay: 0.97,
		MinUniDBOverlayFrac:              0.95,
		MinConfidenceRefutation:          0.60,
		MinFracRefutation:                0.70,
		MinEntropyUncertainty:            0.60,
		MinFracEntropyUncertain:          0.50,
	}
}

// LoadThresholds reads a thresholds YAML file. Unknown keys are rejected so a
// typo cannot silently fall back to a zero threshold.
func LoadThresholds(path string) (Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Thresholds{}, fmt.Errorf("read thresholds %s: %w", path, err)
	}
	var t Thresholds
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds %s: %w", path, err)
	}
	return t, nil
}

// Dump writes the thresholds as YAML, atomically. Loading the result yields a
// bitwise-equal value on all eight fields.
func (t Thresholds) Dump(fsys fsutil.FileSystem, path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	return fsutil.WriteFileAtomic(fsys, path, data, 0o644)
}
