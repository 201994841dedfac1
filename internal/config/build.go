package config

import (
	"github.com/banshee-data/lidarclass/internal/building"
	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/footprint"
)

// BuildSource constructs the configured footprint source.
func (c *Config) BuildSource(crs int) footprint.Source {
	src := footprint.FromPath(c.GetFootprintLocation(), crs)
	if db, ok := src.(*footprint.DBSource); ok {
		db.Query = c.GetFootprintQuery()
		db.Timeout = c.GetFootprintTimeout()
	}
	return src
}

// BuildCodes constructs the code set with configured candidate codes.
func (c *Config) BuildCodes() building.Codes {
	codes := building.DefaultCodes()
	codes.Candidates = c.GetCandidateCodes()
	return codes
}

// BuildValidator constructs the validator stage.
func (c *Config) BuildValidator(src footprint.Source, thresholds building.Thresholds) *building.Validator {
	return &building.Validator{
		Cluster: cloud.ClusterParams{
			MinPoints: c.GetValidationMinPoints(),
			Tolerance: c.GetValidationTolerance(),
			Is3D:      c.GetValidationIs3D(),
		},
		Buffer:        c.GetFootprintBuffer(),
		Source:        src,
		Codes:         c.BuildCodes(),
		Dims:          building.DefaultDims(),
		Thresholds:    thresholds,
		UseFinalCodes: c.GetUseFinalCodes(),
	}
}

// BuildCompleter constructs the completion stage.
func (c *Config) BuildCompleter() *building.Completer {
	return &building.Completer{
		Cluster: cloud.ClusterParams{
			MinPoints: c.GetCompletionMinPoints(),
			Tolerance: c.GetCompletionTolerance(),
			Is3D:      c.GetCompletionIs3D(),
		},
		MinBuildingProba:     c.GetCompletionMinBuildingProba(),
		RelaxationIfOverlay:  c.GetCompletionRelaxationIfOverlay(),
		PromoteNonCandidates: c.GetCompletionPromoteNonCandidates(),
		Codes:                c.BuildCodes(),
		Dims:                 building.DefaultDims(),
	}
}

// BuildIdentifier constructs the identification stage.
func (c *Config) BuildIdentifier() *building.Identifier {
	return &building.Identifier{
		Cluster: cloud.ClusterParams{
			MinPoints: c.GetIdentificationMinPoints(),
			Tolerance: c.GetIdentificationTolerance(),
			Is3D:      c.GetIdentificationIs3D(),
		},
		MinBuildingProba:    c.GetIdentificationMinBuildingProba(),
		RelaxationIfOverlay: c.GetIdentificationRelaxationIfOverlay(),
		Codes:               c.BuildCodes(),
		Dims:                building.DefaultDims(),
	}
}

// BuildCleaner constructs the cleaning stage.
func (c *Config) BuildCleaner() *building.Cleaner {
	return &building.Cleaner{
		Keep: c.GetCleaningKeep(),
		Dims: building.DefaultDims(),
	}
}

// BuildPipeline wires the full per-tile pipeline with the configured stage
// enables.
func (c *Config) BuildPipeline(src footprint.Source, thresholds building.Thresholds) *building.Pipeline {
	return &building.Pipeline{
		Validator:            c.BuildValidator(src, thresholds),
		Completer:            c.BuildCompleter(),
		Identifier:           c.BuildIdentifier(),
		Cleaner:              c.BuildCleaner(),
		EnableValidation:     c.GetStageValidation(),
		EnableCompletion:     c.GetStageCompletion(),
		EnableIdentification: c.GetStageIdentification(),
		EnableCleaning:       c.GetStageCleaning(),
	}
}
