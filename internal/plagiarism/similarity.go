package plagiarism

import (
	"fmt"
	"math"
)

const (
	// DefaultEmbedDim is the embedding width used when callers do not choose one
	DefaultEmbedDim = 16
	// MaxEmbedDim bounds the width accepted from callers; each node allocates dim floats
	MaxEmbedDim = 1024
)

// Scorer computes the L1 distance between the graph embeddings of two snippets.
// Each snippet runs through its own build → embed → aggregate pipeline; nothing
// is shared between the two sides except the optional embedding cache.
// A Scorer is safe for concurrent use.
type Scorer struct {
	embedder *Embedder
	cache    *EmbeddingCache
}

type ScorerOption func(*Scorer) error

// WithEmbeddingCache memoizes per-snippet graph embeddings in an LRU of the given size.
// Results are identical with or without it.
func WithEmbeddingCache(size int) ScorerOption {
	return func(s *Scorer) error {
		if size <= 0 {
			return nil
		}
		cache, err := NewEmbeddingCache(size)
		if err != nil {
			return err
		}
		s.cache = cache
		return nil
	}
}

func NewScorer(embedder *Embedder, opts ...ScorerOption) (*Scorer, error) {
	if embedder == nil {
		embedder = NewEmbedder(nil)
	}
	s := &Scorer{embedder: embedder}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to configure scorer: %w", err)
		}
	}
	return s, nil
}

// Score returns the Manhattan distance between the two snippets' graph embeddings.
// Lower means more similar; the value is not normalized.
func (s *Scorer) Score(snippetA, snippetB string, dim int) (float64, error) {
	if dim <= 0 || dim > MaxEmbedDim {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	embA, err := s.GraphEmbedding(snippetA, dim)
	if err != nil {
		return 0, fmt.Errorf("snippet A: %w", err)
	}

	embB, err := s.GraphEmbedding(snippetB, dim)
	if err != nil {
		return 0, fmt.Errorf("snippet B: %w", err)
	}

	return Manhattan(embA, embB)
}

// GraphEmbedding runs the per-snippet pipeline and returns a dim-length vector
func (s *Scorer) GraphEmbedding(snippet string, dim int) ([]float64, error) {
	if s.cache != nil {
		if emb, ok := s.cache.Get(snippet, dim); ok {
			return emb, nil
		}
	}

	graph := BuildGraph(snippet)
	nodes, err := s.embedder.Embed(graph, dim)
	if err != nil {
		return nil, err
	}

	emb, err := Aggregate(nodes.Vectors)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(snippet, dim, emb)
	}
	return emb, nil
}

// Manhattan returns sum(|a_i - b_i|)
func Manhattan(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	sum := 0.0
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum, nil
}

var defaultScorer = &Scorer{embedder: NewEmbedder(NewProNE())}

// Score compares two snippets with ProNE embeddings of DefaultEmbedDim width
func Score(snippetA, snippetB string) (float64, error) {
	return defaultScorer.Score(snippetA, snippetB, DefaultEmbedDim)
}
