package plagiarism

import (
	"fmt"
)

// Algorithm computes raw node vectors for a graph.
// Fit returns one row per node in TokenGraph.Nodes order. Rows may be shorter or
// longer than dim; the Embedder reconciles them.
type Algorithm interface {
	Fit(g *TokenGraph, dim int) ([][]float64, error)
}

// NodeEmbeddings holds one dim-length vector per graph node
type NodeEmbeddings struct {
	Tokens  []string
	Vectors [][]float64
	Dim     int
}

// vector returns the vector for token
func (e *NodeEmbeddings) vector(token string) ([]float64, bool) {
	for i, t := range e.Tokens {
		if t == token {
			return e.Vectors[i], true
		}
	}
	return nil, false
}

func (e *NodeEmbeddings) Len() int {
	return len(e.Vectors)
}

// Embedder runs an Algorithm and normalizes its output to a uniform dimension
type Embedder struct {
	algo Algorithm
}

func NewEmbedder(algo Algorithm) *Embedder {
	if algo == nil {
		algo = NewProNE()
	}
	return &Embedder{algo: algo}
}

// Embed computes a dim-length vector for every node of g
func (e *Embedder) Embed(g *TokenGraph, dim int) (*NodeEmbeddings, error) {
	if dim <= 0 || dim > MaxEmbedDim {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if g == nil || g.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}

	raw, err := e.algo.Fit(g, dim)
	if err != nil {
		return nil, &EmbeddingError{Nodes: g.NodeCount(), Err: err}
	}
	if len(raw) != g.NodeCount() {
		return nil, &EmbeddingError{
			Nodes: g.NodeCount(),
			Err:   fmt.Errorf("algorithm returned %d rows", len(raw)),
		}
	}

	vectors := make([][]float64, len(raw))
	for i, row := range raw {
		vectors[i] = FitDimension(row, dim)
	}

	return &NodeEmbeddings{
		Tokens:  g.Nodes(),
		Vectors: vectors,
		Dim:     dim,
	}, nil
}

// FitDimension truncates v to its first dim entries or right-pads it with zeros.
// The result never aliases v.
func FitDimension(v []float64, dim int) []float64 {
	out := make([]float64, dim)
	copy(out, v)
	return out
}
