package plagiarism

import "fmt"

// Aggregate reduces node vectors to one graph vector by element-wise arithmetic mean
func Aggregate(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyGraph
	}

	dim := len(vectors[0])
	mean := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d entries, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for j, x := range v {
			mean[j] += x
		}
	}

	n := float64(len(vectors))
	for j := range mean {
		mean[j] /= n
	}

	return mean, nil
}
