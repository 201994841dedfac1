package optimize

import (
	"math"

	"github.com/banshee-data/lidarclass/internal/building"
)

// Confusion index order. Targets are {unsure, not_building, building} on the
// rows; predictions are {unsure, refuted, confirmed} on the columns.
const (
	clsUnsure = iota
	clsNotBuilding
	clsBuilding
)

// Metrics evaluates how good the cluster decisions were against ground
// truths. Automation counts every refuted-or-confirmed decision; precision
// and recall assume a perfect posterior decision for unsure predictions and
// ignore clusters with ambiguous ground truth.
type Metrics struct {
	GroupsCount int

	// Normalized confusion matrix (sums to 1 over all cells).
	Confusion [3][3]float64
	// Raw counts.
	ConfusionCounts [3][3]int

	Automation          float64
	ProportionUnsure    float64
	ProportionRefuted   float64
	ProportionConfirmed float64

	RefutationAccuracy   float64
	ConfirmationAccuracy float64

	Precision float64
	Recall    float64
}

func classIndex(code uint8, codes building.FinalCodes) int {
	switch code {
	case codes.NotBuilding:
		return clsNotBuilding
	case codes.Building:
		return clsBuilding
	default:
		return clsUnsure
	}
}

// EvaluateDecisions computes the full metric set from per-cluster ground
// truths and final-code decisions. Division by zero yields NaN; the optimizer
// treats NaN objectives as 0.
func EvaluateDecisions(targets, decisions []uint8, codes building.FinalCodes) Metrics {
	m := Metrics{GroupsCount: len(decisions)}
	n := len(decisions)
	if n == 0 {
		m.Precision = math.NaN()
		m.Recall = math.NaN()
		return m
	}

	for i := 0; i < n; i++ {
		m.ConfusionCounts[classIndex(targets[i], codes)][classIndex(decisions[i], codes)]++
	}
	total := float64(n)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.Confusion[r][c] = float64(m.ConfusionCounts[r][c]) / total
		}
	}

	for r := 0; r < 3; r++ {
		m.ProportionUnsure += m.Confusion[r][clsUnsure]
		m.ProportionRefuted += m.Confusion[r][clsNotBuilding]
		m.ProportionConfirmed += m.Confusion[r][clsBuilding]
	}
	m.Automation = m.ProportionRefuted + m.ProportionConfirmed

	// Accuracies normalized by prediction column.
	refutedCol := float64(m.ConfusionCounts[clsUnsure][clsNotBuilding] +
		m.ConfusionCounts[clsNotBuilding][clsNotBuilding] +
		m.ConfusionCounts[clsBuilding][clsNotBuilding])
	confirmedCol := float64(m.ConfusionCounts[clsUnsure][clsBuilding] +
		m.ConfusionCounts[clsNotBuilding][clsBuilding] +
		m.ConfusionCounts[clsBuilding][clsBuilding])
	m.RefutationAccuracy = float64(m.ConfusionCounts[clsNotBuilding][clsNotBuilding]) / refutedCol
	m.ConfirmationAccuracy = float64(m.ConfusionCounts[clsBuilding][clsBuilding]) / confirmedCol

	// Quality: drop ambiguous ground truths (target == unsure).
	yu := float64(m.ConfusionCounts[clsBuilding][clsUnsure])
	yr := float64(m.ConfusionCounts[clsBuilding][clsNotBuilding])
	yc := float64(m.ConfusionCounts[clsBuilding][clsBuilding])
	nc := float64(m.ConfusionCounts[clsNotBuilding][clsBuilding])
	m.Precision = (yu + yc) / (yu + yc + nc)
	m.Recall = (yu + yc) / (yu + yr + yc)
	return m
}

// nanToZero maps NaN onto 0 so infeasible metric values never win a
// comparison.
func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Map flattens the scalar metrics for logging and the evaluate phase result.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"groups_count":                      float64(m.GroupsCount),
		"proportion_of_automated_decisions": m.Automation,
		"proportion_of_uncertainty":         m.ProportionUnsure,
		"proportion_of_refutation":          m.ProportionRefuted,
		"proportion_of_confirmation":        m.ProportionConfirmed,
		"refutation_accuracy":               m.RefutationAccuracy,
		"confirmation_accuracy":             m.ConfirmationAccuracy,
		"precision":                         m.Precision,
		"recall":                            m.Recall,
	}
}
