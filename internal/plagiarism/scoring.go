package plagiarism

// Verdict is the classification of a scored pair against a decision threshold
type Verdict string

const (
	VerdictIdentical   Verdict = "identical"
	VerdictPlagiarized Verdict = "plagiarized"
	VerdictDistinct    Verdict = "distinct"
)

// DefaultThresholds are the candidate decision thresholds swept during evaluation
var DefaultThresholds = []float64{0.1, 0.3, 0.6}

// DefaultThreshold is used when a single comparison does not carry its own
const DefaultThreshold = 0.3

// IsSimilar reports whether a distance falls within the threshold (inclusive)
func IsSimilar(score, threshold float64) bool {
	return score <= threshold
}

// Classify maps a distance to a Verdict.
// A zero distance means the two graph embeddings coincide.
func Classify(score, threshold float64) Verdict {
	if score == 0 {
		return VerdictIdentical
	}
	if IsSimilar(score, threshold) {
		return VerdictPlagiarized
	}
	return VerdictDistinct
}
