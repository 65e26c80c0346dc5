package evaluation

import "github.com/RishiKendai/graphsim/internal/models"

// Counts is a confusion matrix for one decision threshold.
// It is a value type: sweeps build one per threshold and sum with Merge.
type Counts struct {
	TP int
	FP int
	TN int
	FN int
}

// Add records one classified pair
func (c Counts) Add(label Label, similar bool) Counts {
	switch {
	case label == LabelPlagiarized && similar:
		c.TP++
	case label == LabelPlagiarized:
		c.FN++
	case similar:
		c.FP++
	default:
		c.TN++
	}
	return c
}

func (c Counts) Merge(o Counts) Counts {
	return Counts{
		TP: c.TP + o.TP,
		FP: c.FP + o.FP,
		TN: c.TN + o.TN,
		FN: c.FN + o.FN,
	}
}

func (c Counts) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy is the share of correctly classified pairs
func (c Counts) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

func (c Counts) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

func (c Counts) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

func (c Counts) FMeasure() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Result renders the counts at threshold as a stored model
func (c Counts) Result(threshold float64) models.ThresholdResult {
	return models.ThresholdResult{
		Threshold:      threshold,
		TruePositives:  c.TP,
		FalsePositives: c.FP,
		TrueNegatives:  c.TN,
		FalseNegatives: c.FN,
		Total:          c.Total(),
		Accuracy:       c.Accuracy(),
		Precision:      c.Precision(),
		Recall:         c.Recall(),
		FMeasure:       c.FMeasure(),
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
