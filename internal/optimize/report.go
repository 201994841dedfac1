package optimize

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lidarclass/internal/fsutil"
)

// WriteReport renders the trial history as an HTML scatter of automation
// against precision, split into feasible and infeasible series, with the
// selected trial highlighted. The report sits next to the thresholds file so
// an operator can sanity-check a search before deploying its result.
func WriteReport(fsys fsutil.FileSystem, path, runID string, trials []TrialResult, best TrialResult) error {
	var feasible, infeasible []opts.ScatterData
	autos := make([]float64, 0, len(trials))
	for _, t := range trials {
		d := opts.ScatterData{Value: []interface{}{t.Automation, t.Precision}}
		if t.Feasible() {
			feasible = append(feasible, d)
		} else {
			infeasible = append(infeasible, d)
		}
		autos = append(autos, t.Automation)
	}
	selected := []opts.ScatterData{{
		Value:      []interface{}{best.Automation, best.Precision},
		SymbolSize: 14,
	}}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Threshold search trials",
			Width:     "900px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Threshold search trials",
			Subtitle: fmt.Sprintf("run=%s trials=%d feasible=%d mean_automation=%.3f",
				runID, len(trials), len(feasible), stat.Mean(autos, nil)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "automation", Min: 0, Max: 1}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "precision", Min: 0, Max: 1}),
	)
	scatter.AddSeries("feasible", feasible,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("infeasible", infeasible,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("selected", selected)

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render trial report: %w", err)
	}
	return fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644)
}
