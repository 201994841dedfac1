package main

import (
	"context"
	"path/filepath"

	"github.com/banshee-data/lidarclass/internal/building"
	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/config"
	"github.com/banshee-data/lidarclass/internal/footprint"
	"github.com/banshee-data/lidarclass/internal/fsutil"
	"github.com/banshee-data/lidarclass/internal/monitoring"
	"github.com/banshee-data/lidarclass/internal/optimize"
)

func loadThresholds(cfg *config.Config) (building.Thresholds, error) {
	if *thresholdsPath == "" {
		return building.DefaultThresholds(), nil
	}
	return building.LoadThresholds(*thresholdsPath)
}

func buildSource(cfg *config.Config) footprint.Source {
	return cfg.BuildSource(cfg.GetFootprintCRS())
}

// runApply executes the full four-stage pipeline over the input tiles.
func runApply(ctx context.Context, cfg *config.Config) error {
	thresholds, err := loadThresholds(cfg)
	if err != nil {
		return err
	}
	src := buildSource(cfg)
	if db, ok := src.(*footprint.DBSource); ok {
		defer db.Close()
	}
	pipeline := cfg.BuildPipeline(src, thresholds)
	return pipeline.RunPath(ctx, *input, *output)
}

// runCleaning strips extra dimensions from the input tiles, keeping the
// configured keep-list.
func runCleaning(ctx context.Context, cfg *config.Config) error {
	pipeline := &building.Pipeline{
		Cleaner:        cfg.BuildCleaner(),
		EnableCleaning: true,
	}
	return pipeline.RunPath(ctx, *input, *output)
}

// runOptimize searches the decision thresholds over a corpus of
// hand-corrected tiles.
func runOptimize(ctx context.Context, cfg *config.Config) error {
	thresholds, err := loadThresholds(cfg)
	if err != nil {
		return err
	}
	src := buildSource(cfg)
	if db, ok := src.(*footprint.DBSource); ok {
		defer db.Close()
	}

	phases := cfg.GetOptimizationTodo()
	if *todo != "" {
		phases = *todo
	}
	opt := &optimize.Optimizer{
		Todo:      phases,
		Paths:     optimize.Paths{InputDir: *input, OutputDir: *output},
		Validator: cfg.BuildValidator(src, thresholds),
		Design: optimize.Design{
			NTrials:       cfg.GetOptimizationNTrials(),
			Seed:          cfg.GetOptimizationSeed(),
			NumClasses:    cfg.GetOptimizationNumClasses(),
			MinPrecision:  cfg.GetMinPrecisionConstraint(),
			MinRecall:     cfg.GetMinRecallConstraint(),
			MinAutomation: cfg.GetMinAutomationConstraint(),
		},
		GroundTruth: optimize.GroundTruth{
			TruePositives:  cfg.GetGroundTruthTruePositives(),
			FalsePositives: cfg.GetGroundTruthFalsePositives(),
			MinFracTP:      cfg.GetGroundTruthMinFracTP(),
			MinFracFP:      cfg.GetGroundTruthMinFracFP(),
		},
		Sampler: optimize.NewRandomSampler(cfg.GetOptimizationSeed()),
		Codec:   cloud.NewCodec(),
	}
	return opt.Run(ctx)
}

// runGetShapefile fetches the footprints covering the input tiles and saves
// them as a shapefile under the output directory.
func runGetShapefile(ctx context.Context, cfg *config.Config) error {
	src := buildSource(cfg)
	if db, ok := src.(*footprint.DBSource); ok {
		defer db.Close()
	}

	paths, err := building.ListTiles(fsutil.OSFileSystem{}, *input)
	if err != nil {
		return err
	}
	codec := cloud.NewCodec()
	var bbox cloud.BBox
	crs := 0
	for i, path := range paths {
		store, err := codec.ReadTile(path)
		if err != nil {
			return err
		}
		b, err := store.Bounds()
		if err != nil {
			return err
		}
		if i == 0 {
			bbox = b
			crs = store.CRS
			continue
		}
		if b.XMin < bbox.XMin {
			bbox.XMin = b.XMin
		}
		if b.YMin < bbox.YMin {
			bbox.YMin = b.YMin
		}
		if b.XMax > bbox.XMax {
			bbox.XMax = b.XMax
		}
		if b.YMax > bbox.YMax {
			bbox.YMax = b.YMax
		}
	}

	bbox = bbox.Buffer(cfg.GetFootprintBuffer()).Integer()
	set, err := src.Fetch(ctx, bbox, crs)
	if err != nil {
		return err
	}

	// Build the shapefile in a scoped scratch dir, then move the parts into
	// place, so the output dir never holds a partial .shp/.shx/.dbf trio.
	fsys := fsutil.OSFileSystem{}
	if err := fsys.MkdirAll(*output, 0o755); err != nil {
		return err
	}
	scratch, err := fsutil.NewScopedDir(fsys, *output, ".footprints")
	if err != nil {
		return err
	}
	defer scratch.Release()

	if err := footprint.WriteShapefile(scratch.Join("footprints.shp"), set); err != nil {
		return err
	}
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		part := scratch.Join("footprints" + ext)
		if !fsys.Exists(part) {
			continue
		}
		if err := fsys.Rename(part, filepath.Join(*output, "footprints"+ext)); err != nil {
			return err
		}
	}
	monitoring.Logf("wrote %d footprint features to %s", len(set.Features), filepath.Join(*output, "footprints.shp"))
	return nil
}
