package optimize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/lidarclass/internal/building"
	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/fsutil"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

// ErrEmptyCorpus marks an optimizer run over a corpus with no tiles or no
// candidate clusters. Fatal to the run.
var ErrEmptyCorpus = errors.New("optimizer corpus is empty")

// Paths locates the optimizer's inputs and persisted state. All intermediary
// files live under OutputDir so any phase can be rerun on its own.
type Paths struct {
	// InputDir holds the hand-corrected corpus tiles.
	InputDir string
	// OutputDir receives prepared tiles, updated tiles, the cluster-info
	// cache, the selected thresholds and the trial report.
	OutputDir string
}

// PreparedDir is where Prepare caches prepared tiles.
func (p Paths) PreparedDir() string { return filepath.Join(p.OutputDir, "prepared") }

// UpdatedDir is where Update writes re-decided tiles.
func (p Paths) UpdatedDir() string { return filepath.Join(p.OutputDir, "updated") }

// ClusterInfoPath is the serialized flat cluster list.
func (p Paths) ClusterInfoPath() string { return filepath.Join(p.OutputDir, "cluster_info.jsonl") }

// ThresholdsPath is the winning thresholds YAML.
func (p Paths) ThresholdsPath() string { return filepath.Join(p.OutputDir, "thresholds.yaml") }

// ReportPath is the trial-history HTML report.
func (p Paths) ReportPath() string { return filepath.Join(p.OutputDir, "trials.html") }

// Design parametrises the search.
type Design struct {
	NTrials    int
	Seed       int64
	NumClasses int

	// Constraint floors. A trial's penalty is the summed violation of these.
	MinPrecision  float64
	MinRecall     float64
	MinAutomation float64
}

// GroundTruth folds corrected per-point labels into a per-cluster target.
type GroundTruth struct {
	// TruePositives are corrected codes counting toward tp_frac.
	TruePositives []uint8
	// FalsePositives are corrected codes of refuted candidates. Together with
	// TruePositives they are the candidate codes of the corpus.
	FalsePositives []uint8
	MinFracTP      float64
	MinFracFP      float64
}

// Label applies the ground-truth rule to one cluster's corrected labels.
func (gt GroundTruth) Label(labels []uint8, codes building.FinalCodes) uint8 {
	if len(labels) == 0 {
		return codes.Unsure
	}
	tp := 0
	for _, l := range labels {
		for _, c := range gt.TruePositives {
			if l == c {
				tp++
				break
			}
		}
	}
	tpFrac := float64(tp) / float64(len(labels))
	switch {
	case tpFrac >= gt.MinFracTP:
		return codes.Building
	case tpFrac < gt.MinFracFP:
		return codes.NotBuilding
	default:
		return codes.Unsure
	}
}

// TrialResult records one sampled thresholds value and its objectives.
type TrialResult struct {
	Index      int
	Thresholds building.Thresholds
	Automation float64
	Precision  float64
	Recall     float64
	Penalty    float64
}

// Feasible reports whether the trial satisfies every constraint floor.
func (t TrialResult) Feasible() bool { return t.Penalty == 0 }

// Optimizer runs the four phases: prepare, optimize, evaluate, update. Each
// phase is independently runnable through the Todo selector, resuming from
// the files an earlier invocation left under OutputDir.
type Optimizer struct {
	// Todo selects phases, e.g. "prepare,optimize" or "evaluate".
	Todo        string
	Paths       Paths
	Validator   *building.Validator
	Design      Design
	GroundTruth GroundTruth
	Sampler     Sampler
	Codec       cloud.Codec
	FS          fsutil.FileSystem

	// RunID names the run in logs and the report.
	RunID string

	selected   building.Thresholds
	haveSelect bool
}

func (o *Optimizer) fs() fsutil.FileSystem {
	if o.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return o.FS
}

// Run executes the selected phases in canonical order.
func (o *Optimizer) Run(ctx context.Context) error {
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	// The corpus carries corrected labels, so candidates are recognised by
	// the corrected code set rather than the production one.
	o.Validator.Codes.Candidates = append(
		append([]uint8{}, o.GroundTruth.TruePositives...),
		o.GroundTruth.FalsePositives...,
	)
	monitoring.Logf("optimizer run %s: todo=%s", o.RunID, o.Todo)

	if strings.Contains(o.Todo, "prepare") {
		if err := o.Prepare(ctx); err != nil {
			return err
		}
	}
	if strings.Contains(o.Todo, "optimize") {
		if err := o.Optimize(); err != nil {
			return err
		}
	}
	if strings.Contains(o.Todo, "evaluate") {
		if _, err := o.Evaluate(); err != nil {
			return err
		}
	}
	if strings.Contains(o.Todo, "update") {
		if err := o.Update(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Optimizer) corpusTiles() ([]string, error) {
	paths, err := o.fs().Glob(filepath.Join(o.Paths.InputDir, "*"+cloud.TileExt))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s tiles under %s", ErrEmptyCorpus, cloud.TileExt, o.Paths.InputDir)
	}
	return paths, nil
}

// Prepare runs Validator.Prepare on every corpus tile, caches the prepared
// stores, and serializes one ClusterInfo per candidate cluster with its
// ground-truth target folded in.
func (o *Optimizer) Prepare(ctx context.Context) error {
	tiles, err := o.corpusTiles()
	if err != nil {
		return err
	}
	var clusters []building.ClusterInfo
	for _, src := range tiles {
		store, err := o.Codec.ReadTile(src)
		if err != nil {
			return err
		}
		if err := o.Validator.Prepare(ctx, store); err != nil {
			return fmt.Errorf("prepare %s: %w", src, err)
		}
		prepared := filepath.Join(o.Paths.PreparedDir(), filepath.Base(src))
		if err := o.fs().MkdirAll(o.Paths.PreparedDir(), 0o755); err != nil {
			return err
		}
		if err := o.Codec.WriteTile(prepared, store); err != nil {
			return err
		}
		tileClusters, err := o.extractClusters(store)
		if err != nil {
			return err
		}
		clusters = append(clusters, tileClusters...)
		monitoring.Logf("prepared %s: %d candidate clusters", src, len(tileClusters))
	}
	return o.dumpClusters(clusters)
}

func (o *Optimizer) extractClusters(store *cloud.Store) ([]building.ClusterInfo, error) {
	d := o.Validator.Dims
	groups, err := store.GroupBy(d.CandidateClusterID)
	if err != nil {
		return nil, err
	}
	clf, err := store.Uint8Column(d.Classification)
	if err != nil {
		return nil, err
	}
	var out []building.ClusterInfo
	for _, g := range groups {
		if g.Key == 0 {
			continue
		}
		info, err := o.Validator.ExtractClusterInfo(store, g.Idx)
		if err != nil {
			return nil, err
		}
		labels := make([]uint8, len(g.Idx))
		for n, i := range g.Idx {
			labels[n] = clf[i]
		}
		info.Target = o.GroundTruth.Label(labels, o.Validator.Codes.Final)
		info.HasTarget = true
		out = append(out, info)
	}
	return out, nil
}

func (o *Optimizer) dumpClusters(clusters []building.ClusterInfo) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range clusters {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode cluster info: %w", err)
		}
	}
	if err := fsutil.WriteFileAtomic(o.fs(), o.Paths.ClusterInfoPath(), buf.Bytes(), 0o644); err != nil {
		return err
	}
	monitoring.Logf("serialized %d cluster infos to %s", len(clusters), o.Paths.ClusterInfoPath())
	return nil
}

func (o *Optimizer) loadClusters() ([]building.ClusterInfo, error) {
	data, err := o.fs().ReadFile(o.Paths.ClusterInfoPath())
	if err != nil {
		return nil, fmt.Errorf("load cluster infos (run prepare first?): %w", err)
	}
	var clusters []building.ClusterInfo
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var c building.ClusterInfo
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode cluster info: %w", err)
		}
		clusters = append(clusters, c)
	}
	if len(clusters) == 0 {
		return nil, fmt.Errorf("%w: no candidate clusters in %s", ErrEmptyCorpus, o.Paths.ClusterInfoPath())
	}
	return clusters, nil
}

func (o *Optimizer) evaluateThresholds(clusters []building.ClusterInfo, t building.Thresholds) Metrics {
	codes := o.Validator.Codes
	targets := make([]uint8, len(clusters))
	decisions := make([]uint8, len(clusters))
	for i, c := range clusters {
		targets[i] = c.Target
		decisions[i] = building.DecideFinal(c, t, codes)
	}
	return EvaluateDecisions(targets, decisions, codes.Final)
}

func (o *Optimizer) penalty(auto, precision, recall float64) float64 {
	p := 0.0
	if precision < o.Design.MinPrecision {
		p += o.Design.MinPrecision - precision
	}
	if recall < o.Design.MinRecall {
		p += o.Design.MinRecall - recall
	}
	if auto < o.Design.MinAutomation {
		p += o.Design.MinAutomation - auto
	}
	return p
}

// Optimize samples NTrials thresholds, scores each against the cached
// clusters, and serializes the winner: the highest-automation trial with zero
// penalty, or the best metric product when no trial is feasible.
func (o *Optimizer) Optimize() error {
	clusters, err := o.loadClusters()
	if err != nil {
		return err
	}
	ranges := DefaultRanges(o.Design.NumClasses)
	trials := make([]TrialResult, 0, o.Design.NTrials)
	for i := 0; i < o.Design.NTrials; i++ {
		th := ranges.Sample(o.Sampler.Trial(i))
		m := o.evaluateThresholds(clusters, th)
		auto := nanToZero(m.Automation)
		precision := nanToZero(m.Precision)
		recall := nanToZero(m.Recall)
		trials = append(trials, TrialResult{
			Index:      i,
			Thresholds: th,
			Automation: auto,
			Precision:  precision,
			Recall:     recall,
			Penalty:    o.penalty(auto, precision, recall),
		})
	}

	best := SelectBest(trials)
	monitoring.Logf("selected trial %d: automation=%.3f precision=%.3f recall=%.3f penalty=%.3f",
		best.Index, best.Automation, best.Precision, best.Recall, best.Penalty)
	if err := best.Thresholds.Dump(o.fs(), o.Paths.ThresholdsPath()); err != nil {
		return err
	}
	if err := WriteReport(o.fs(), o.Paths.ReportPath(), o.RunID, trials, best); err != nil {
		monitoring.Logf("WARNING: trial report failed: %v", err)
	}
	o.selected = best.Thresholds
	o.haveSelect = true
	return nil
}

// SelectBest picks the winning trial. Ordering is deterministic: best-first
// by automation among feasible trials, ties broken by trial index; with no
// feasible trial, the maximum product of the three metrics wins.
func SelectBest(trials []TrialResult) TrialResult {
	bestIdx := -1
	for i, t := range trials {
		if !t.Feasible() {
			continue
		}
		if bestIdx == -1 || t.Automation > trials[bestIdx].Automation {
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		return trials[bestIdx]
	}
	monitoring.Logf("WARNING: no trial respecting constraints - returning best metrics-product")
	product := func(t TrialResult) float64 { return t.Automation * t.Precision * t.Recall }
	bestIdx = 0
	for i := 1; i < len(trials); i++ {
		if product(trials[i]) > product(trials[bestIdx]) {
			bestIdx = i
		}
	}
	return trials[bestIdx]
}

func (o *Optimizer) currentThresholds() building.Thresholds {
	if o.haveSelect {
		return o.selected
	}
	if t, err := building.LoadThresholds(o.Paths.ThresholdsPath()); err == nil {
		return t
	}
	monitoring.Logf("WARNING: no serialized thresholds found, using the validator's current values")
	return o.Validator.Thresholds
}

// Evaluate recomputes the metrics with the selected thresholds and returns
// them as a flat map.
func (o *Optimizer) Evaluate() (map[string]float64, error) {
	clusters, err := o.loadClusters()
	if err != nil {
		return nil, err
	}
	m := o.evaluateThresholds(clusters, o.currentThresholds())
	for name, value := range m.Map() {
		monitoring.Logf("%s=%.4f", name, value)
	}
	monitoring.Logf("confusion matrix (rows: target u/n/y, cols: decision u/r/c): %v", m.ConfusionCounts)
	return m.Map(), nil
}

// Update re-decides every cached prepared tile with the selected thresholds
// and writes the results.
func (o *Optimizer) Update() error {
	o.Validator.Thresholds = o.currentThresholds()
	prepared, err := o.fs().Glob(filepath.Join(o.Paths.PreparedDir(), "*"+cloud.TileExt))
	if err != nil {
		return err
	}
	if len(prepared) == 0 {
		return fmt.Errorf("%w: no prepared tiles under %s", ErrEmptyCorpus, o.Paths.PreparedDir())
	}
	if err := o.fs().MkdirAll(o.Paths.UpdatedDir(), 0o755); err != nil {
		return err
	}
	for _, src := range prepared {
		store, err := o.Codec.ReadTile(src)
		if err != nil {
			return err
		}
		if err := o.Validator.Decide(store); err != nil {
			return fmt.Errorf("update %s: %w", src, err)
		}
		dst := filepath.Join(o.Paths.UpdatedDir(), filepath.Base(src))
		if err := o.Codec.WriteTile(dst, store); err != nil {
			return err
		}
		monitoring.Logf("updated %s", dst)
	}
	return nil
}
