// Package config enumerates every recognized option of the building pipeline
// and the threshold optimizer as typed structs with explicit defaults. The
// JSON schema uses pointer fields so partial configs are safe: omitted fields
// keep their defaults through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration document.
type Config struct {
	Footprint      *FootprintConfig      `json:"footprint,omitempty"`
	Codes          *CodesConfig          `json:"codes,omitempty"`
	Validation     *ValidationConfig     `json:"validation,omitempty"`
	Completion     *CompletionConfig     `json:"completion,omitempty"`
	Identification *IdentificationConfig `json:"identification,omitempty"`
	Cleaning       *CleaningConfig       `json:"cleaning,omitempty"`
	Stages         *StagesConfig         `json:"stages,omitempty"`
	Optimization   *OptimizationConfig   `json:"optimization,omitempty"`
}

// FootprintConfig selects and tunes the footprint source.
type FootprintConfig struct {
	// Location is a database DSN, or "file://path.shp" for an on-disk
	// shapefile.
	Location *string `json:"location,omitempty"`
	// Query overrides the default envelope query for database sources.
	Query *string `json:"query,omitempty"`
	// Timeout is a duration string bounding one fetch, like "30s".
	Timeout *string `json:"timeout,omitempty"`
	// Buffer expands the tile bbox for the query, metres.
	Buffer *float64 `json:"buffer,omitempty"`
	// CRS is the EPSG code a file-based source is stored in.
	CRS *int `json:"crs,omitempty"`
}

// CodesConfig overrides the classification code set.
type CodesConfig struct {
	Candidates []uint8 `json:"candidates,omitempty"`
}

// ValidationConfig tunes the validator stage.
type ValidationConfig struct {
	MinPoints     *int     `json:"min_points,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	Is3D          *bool    `json:"is3d,omitempty"`
	UseFinalCodes *bool    `json:"use_final_codes,omitempty"`
}

// CompletionConfig tunes the completion stage.
type CompletionConfig struct {
	MinPoints            *int     `json:"min_points,omitempty"`
	Tolerance            *float64 `json:"tolerance,omitempty"`
	Is3D                 *bool    `json:"is3d,omitempty"`
	MinBuildingProba     *float64 `json:"min_building_proba,omitempty"`
	RelaxationIfOverlay  *float64 `json:"min_building_proba_relaxation_if_bd_uni_overlay,omitempty"`
	PromoteNonCandidates *bool    `json:"promote_non_candidates,omitempty"`
}

// IdentificationConfig tunes the identification stage.
type IdentificationConfig struct {
	MinPoints           *int     `json:"min_points,omitempty"`
	Tolerance           *float64 `json:"tolerance,omitempty"`
	Is3D                *bool    `json:"is3d,omitempty"`
	MinBuildingProba    *float64 `json:"min_building_proba,omitempty"`
	RelaxationIfOverlay *float64 `json:"min_frac_confirmation_factor_if_bd_uni_overlay,omitempty"`
}

// CleaningConfig lists the extra dimensions the cleaner preserves.
type CleaningConfig struct {
	Keep []string `json:"keep,omitempty"`
}

// StagesConfig enables or disables the pipeline stages independently.
type StagesConfig struct {
	Validation     *bool `json:"validation,omitempty"`
	Completion     *bool `json:"completion,omitempty"`
	Identification *bool `json:"identification,omitempty"`
	Cleaning       *bool `json:"cleaning,omitempty"`
}

// GroundTruthConfig folds hand-corrected labels into cluster targets.
type GroundTruthConfig struct {
	// TruePositives are the corrected codes counting toward tp_frac.
	TruePositives []uint8 `json:"true_positives,omitempty"`
	// FalsePositives are the corrected codes of refuted candidates; together
	// with TruePositives they define the optimizer's candidate set.
	FalsePositives []uint8  `json:"false_positives,omitempty"`
	MinFracTP      *float64 `json:"min_frac_true_positives,omitempty"`
	MinFracFP      *float64 `json:"min_frac_false_positives,omitempty"`
}

// OptimizationConfig tunes the threshold optimizer.
type OptimizationConfig struct {
	// Todo selects the phases to run, as a comma-separated subset of
	// "prepare,optimize,evaluate,update".
	Todo        *string            `json:"todo,omitempty"`
	NTrials     *int               `json:"n_trials,omitempty"`
	Seed        *int64             `json:"seed,omitempty"`
	NumClasses  *int               `json:"num_classes,omitempty"`
	GroundTruth *GroundTruthConfig `json:"ground_truth,omitempty"`

	// Constraint floors on the three objectives.
	MinPrecision  *float64 `json:"min_precision_constraint,omitempty"`
	MinRecall     *float64 `json:"min_recall_constraint,omitempty"`
	MinAutomation *float64 `json:"min_automation_constraint,omitempty"`
}

// Load reads a JSON config file. Fields omitted from the file keep their
// defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns an empty config: every accessor serves its default.
func Default() *Config { return &Config{} }

// Validate checks configured values.
func (c *Config) Validate() error {
	if f := c.Footprint; f != nil {
		if f.Timeout != nil && *f.Timeout != "" {
			if _, err := time.ParseDuration(*f.Timeout); err != nil {
				return fmt.Errorf("invalid footprint timeout '%s': %w", *f.Timeout, err)
			}
		}
		if f.Buffer != nil && *f.Buffer < 0 {
			return fmt.Errorf("footprint buffer must be non-negative, got %f", *f.Buffer)
		}
	}
	for name, pair := range map[string]struct {
		minPoints *int
		tolerance *float64
	}{
		"validation":     {minPointsOf(c.Validation), toleranceOf(c.Validation)},
		"completion":     {minPointsOfC(c.Completion), toleranceOfC(c.Completion)},
		"identification": {minPointsOfI(c.Identification), toleranceOfI(c.Identification)},
	} {
		if pair.minPoints != nil && *pair.minPoints < 1 {
			return fmt.Errorf("%s min_points must be >= 1, got %d", name, *pair.minPoints)
		}
		if pair.tolerance != nil && *pair.tolerance <= 0 {
			return fmt.Errorf("%s tolerance must be positive, got %f", name, *pair.tolerance)
		}
	}
	if o := c.Optimization; o != nil {
		if o.NTrials != nil && *o.NTrials < 1 {
			return fmt.Errorf("n_trials must be >= 1, got %d", *o.NTrials)
		}
		if o.NumClasses != nil && *o.NumClasses < 2 {
			return fmt.Errorf("num_classes must be >= 2, got %d", *o.NumClasses)
		}
		for name, v := range map[string]*float64{
			"min_precision_constraint":  o.MinPrecision,
			"min_recall_constraint":     o.MinRecall,
			"min_automation_constraint": o.MinAutomation,
		} {
			if v != nil && (*v < 0 || *v > 1) {
				return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
			}
		}
	}
	return nil
}

func minPointsOf(v *ValidationConfig) *int {
	if v == nil {
		return nil
	}
	return v.MinPoints
}

func toleranceOf(v *ValidationConfig) *float64 {
	if v == nil {
		return nil
	}
	return v.Tolerance
}

func minPointsOfC(v *CompletionConfig) *int {
	if v == nil {
		return nil
	}
	return v.MinPoints
}

func toleranceOfC(v *CompletionConfig) *float64 {
	if v == nil {
		return nil
	}
	return v.Tolerance
}

func minPointsOfI(v *IdentificationConfig) *int {
	if v == nil {
		return nil
	}
	return v.MinPoints
}

func toleranceOfI(v *IdentificationConfig) *float64 {
	if v == nil {
		return nil
	}
	return v.Tolerance
}
