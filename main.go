// Command lidarclass post-processes airborne LiDAR tiles into a semantic
// building classification, fusing rule-based candidates, neural-model
// probabilities and a vector database of known footprints. One invocation
// runs one task: the full pipeline, dimension cleaning, threshold
// optimization, or a footprint export.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lidarclass/internal/config"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

var (
	task           = flag.String("task", "apply_on_building", "task to run: apply_on_building, cleaning, optimize_building, get_shapefile")
	input          = flag.String("input", "", "input tile file or directory")
	output         = flag.String("output", "out", "output directory")
	configPath     = flag.String("config", "", "optional JSON configuration file")
	thresholdsPath = flag.String("thresholds", "", "optional decision thresholds YAML file")
	todo           = flag.String("todo", "", "optimizer phases override, e.g. \"prepare,optimize\"")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%s failed: %v", *task, err)
	}
}

func run(ctx context.Context) error {
	if *input == "" {
		return fmt.Errorf("missing -input")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	switch *task {
	case "cleaning":
		return runCleaning(ctx, cfg)
	case "optimize_building":
		return runOptimize(ctx, cfg)
	case "get_shapefile":
		return runGetShapefile(ctx, cfg)
	case "identify_vegetation_unclassified":
		return fmt.Errorf("task identify_vegetation_unclassified is not part of this build")
	case "apply_on_building":
		return runApply(ctx, cfg)
	default:
		monitoring.Logf("WARNING: unknown task %q, falling back to apply_on_building", *task)
		return runApply(ctx, cfg)
	}
}
