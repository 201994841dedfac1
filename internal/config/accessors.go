package config

import "time"

// Footprint accessors.

// GetFootprintLocation returns the footprint source location or the default
// local database.
func (c *Config) GetFootprintLocation() string {
	if c.Footprint == nil || c.Footprint.Location == nil {
		return "footprints.db"
	}
	return *c.Footprint.Location
}

// GetFootprintQuery returns the query override, empty for the default.
func (c *Config) GetFootprintQuery() string {
	if c.Footprint == nil || c.Footprint.Query == nil {
		return ""
	}
	return *c.Footprint.Query
}

// GetFootprintTimeout returns the fetch timeout.
func (c *Config) GetFootprintTimeout() time.Duration {
	if c.Footprint == nil || c.Footprint.Timeout == nil || *c.Footprint.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.Footprint.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetFootprintBuffer returns the bbox buffer in metres.
func (c *Config) GetFootprintBuffer() float64 {
	if c.Footprint == nil || c.Footprint.Buffer == nil {
		return 50
	}
	return *c.Footprint.Buffer
}

// GetFootprintCRS returns the EPSG code of a file-based footprint source.
func (c *Config) GetFootprintCRS() int {
	if c.Footprint == nil || c.Footprint.CRS == nil {
		return 2154
	}
	return *c.Footprint.CRS
}

// Code accessors.

// GetCandidateCodes returns the input codes marking rule-based candidates.
func (c *Config) GetCandidateCodes() []uint8 {
	if c.Codes == nil || len(c.Codes.Candidates) == 0 {
		return []uint8{202}
	}
	return c.Codes.Candidates
}

// Validation accessors.

func (c *Config) GetValidationMinPoints() int {
	if c.Validation == nil || c.Validation.MinPoints == nil {
		return 10
	}
	return *c.Validation.MinPoints
}

func (c *Config) GetValidationTolerance() float64 {
	if c.Validation == nil || c.Validation.Tolerance == nil {
		return 0.5
	}
	return *c.Validation.Tolerance
}

func (c *Config) GetValidationIs3D() bool {
	if c.Validation == nil || c.Validation.Is3D == nil {
		return true
	}
	return *c.Validation.Is3D
}

func (c *Config) GetUseFinalCodes() bool {
	if c.Validation == nil || c.Validation.UseFinalCodes == nil {
		return true
	}
	return *c.Validation.UseFinalCodes
}

// Completion accessors. Clustering is relaxed relative to validation: 2D and
// a larger tolerance.

func (c *Config) GetCompletionMinPoints() int {
	if c.Completion == nil || c.Completion.MinPoints == nil {
		return 10
	}
	return *c.Completion.MinPoints
}

func (c *Config) GetCompletionTolerance() float64 {
	if c.Completion == nil || c.Completion.Tolerance == nil {
		return 2.0
	}
	return *c.Completion.Tolerance
}

func (c *Config) GetCompletionIs3D() bool {
	if c.Completion == nil || c.Completion.Is3D == nil {
		return false
	}
	return *c.Completion.Is3D
}

func (c *Config) GetCompletionMinBuildingProba() float64 {
	if c.Completion == nil || c.Completion.MinBuildingProba == nil {
		return 0.75
	}
	return *c.Completion.MinBuildingProba
}

func (c *Config) GetCompletionRelaxationIfOverlay() float64 {
	if c.Completion == nil || c.Completion.RelaxationIfOverlay == nil {
		return 1.0
	}
	return *c.Completion.RelaxationIfOverlay
}

func (c *Config) GetCompletionPromoteNonCandidates() bool {
	if c.Completion == nil || c.Completion.PromoteNonCandidates == nil {
		return false
	}
	return *c.Completion.PromoteNonCandidates
}

// Identification accessors.

func (c *Config) GetIdentificationMinPoints() int {
	if c.Identification == nil || c.Identification.MinPoints == nil {
		return 50
	}
	return *c.Identification.MinPoints
}

func (c *Config) GetIdentificationTolerance() float64 {
	if c.Identification == nil || c.Identification.Tolerance == nil {
		return 0.75
	}
	return *c.Identification.Tolerance
}

func (c *Config) GetIdentificationIs3D() bool {
	if c.Identification == nil || c.Identification.Is3D == nil {
		return false
	}
	return *c.Identification.Is3D
}

func (c *Config) GetIdentificationMinBuildingProba() float64 {
	if c.Identification == nil || c.Identification.MinBuildingProba == nil {
		return 0.75
	}
	return *c.Identification.MinBuildingProba
}

func (c *Config) GetIdentificationRelaxationIfOverlay() float64 {
	if c.Identification == nil || c.Identification.RelaxationIfOverlay == nil {
		return 1.0
	}
	return *c.Identification.RelaxationIfOverlay
}

// Cleaning accessors.

// GetCleaningKeep returns the extra dimensions the cleaner preserves.
func (c *Config) GetCleaningKeep() []string {
	if c.Cleaning == nil {
		return []string{"building_proba", "entropy"}
	}
	return c.Cleaning.Keep
}

// Stage enables.

func (c *Config) GetStageValidation() bool {
	if c.Stages == nil || c.Stages.Validation == nil {
		return true
	}
	return *c.Stages.Validation
}

func (c *Config) GetStageCompletion() bool {
	if c.Stages == nil || c.Stages.Completion == nil {
		return true
	}
	return *c.Stages.Completion
}

func (c *Config) GetStageIdentification() bool {
	if c.Stages == nil || c.Stages.Identification == nil {
		return true
	}
	return *c.Stages.Identification
}

func (c *Config) GetStageCleaning() bool {
	if c.Stages == nil || c.Stages.Cleaning == nil {
		return false
	}
	return *c.Stages.Cleaning
}

// Optimization accessors.

func (c *Config) GetOptimizationTodo() string {
	if c.Optimization == nil || c.Optimization.Todo == nil {
		return "prepare,optimize,evaluate,update"
	}
	return *c.Optimization.Todo
}

func (c *Config) GetOptimizationNTrials() int {
	if c.Optimization == nil || c.Optimization.NTrials == nil {
		return 300
	}
	return *c.Optimization.NTrials
}

func (c *Config) GetOptimizationSeed() int64 {
	if c.Optimization == nil || c.Optimization.Seed == nil {
		return 1
	}
	return *c.Optimization.Seed
}

func (c *Config) GetOptimizationNumClasses() int {
	if c.Optimization == nil || c.Optimization.NumClasses == nil {
		return 7
	}
	return *c.Optimization.NumClasses
}

func (c *Config) GetMinPrecisionConstraint() float64 {
	if c.Optimization == nil || c.Optimization.MinPrecision == nil {
		return 0.98
	}
	return *c.Optimization.MinPrecision
}

func (c *Config) GetMinRecallConstraint() float64 {
	if c.Optimization == nil || c.Optimization.MinRecall == nil {
		return 0.98
	}
	return *c.Optimization.MinRecall
}

func (c *Config) GetMinAutomationConstraint() float64 {
	if c.Optimization == nil || c.Optimization.MinAutomation == nil {
		return 0.35
	}
	return *c.Optimization.MinAutomation
}

// Ground-truth accessors.

func (c *Config) groundTruth() *GroundTruthConfig {
	if c.Optimization == nil {
		return nil
	}
	return c.Optimization.GroundTruth
}

// GetGroundTruthTruePositives returns the corrected codes counting as
// confirmed buildings.
func (c *Config) GetGroundTruthTruePositives() []uint8 {
	if gt := c.groundTruth(); gt != nil && len(gt.TruePositives) > 0 {
		return gt.TruePositives
	}
	return []uint8{19}
}

// GetGroundTruthFalsePositives returns the corrected codes of refuted
// candidates.
func (c *Config) GetGroundTruthFalsePositives() []uint8 {
	if gt := c.groundTruth(); gt != nil && len(gt.FalsePositives) > 0 {
		return gt.FalsePositives
	}
	return []uint8{20}
}

func (c *Config) GetGroundTruthMinFracTP() float64 {
	if gt := c.groundTruth(); gt != nil && gt.MinFracTP != nil {
		return *gt.MinFracTP
	}
	return 0.95
}

func (c *Config) GetGroundTruthMinFracFP() float64 {
	if gt := c.groundTruth(); gt != nil && gt.MinFracFP != nil {
		return *gt.MinFracFP
	}
	return 0.05
}
