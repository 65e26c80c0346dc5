package evaluation

import (
	"github.com/RishiKendai/graphsim/internal/models"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

// ScoredPair is a labeled candidate with its distance to the original
type ScoredPair struct {
	Case  string
	Path  string
	Label Label
	Score float64
}

// SweepResult holds per-threshold measures and the most accurate threshold
type SweepResult struct {
	Thresholds []models.ThresholdResult
	Best       models.ThresholdResult
}

// Sweep classifies every pair at each threshold (similar when score <= threshold)
// and picks the first threshold with the strictly highest accuracy.
// Thresholds with no pairs never win.
func Sweep(scores []ScoredPair, thresholds []float64) SweepResult {
	result := SweepResult{Thresholds: make([]models.ThresholdResult, 0, len(thresholds))}
	bestAccuracy := 0.0

	for _, threshold := range thresholds {
		var counts Counts
		for _, s := range scores {
			counts = counts.Add(s.Label, plagiarism.IsSimilar(s.Score, threshold))
		}

		tr := counts.Result(threshold)
		result.Thresholds = append(result.Thresholds, tr)

		if tr.Total > 0 && tr.Accuracy > bestAccuracy {
			bestAccuracy = tr.Accuracy
			result.Best = tr
		}
	}

	return result
}
