package plagiarism

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGraph is returned when a snippet has no tokens to embed
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrInvalidDimension is returned for a non-positive embedding dimension
	ErrInvalidDimension = errors.New("embedding dimension must be positive")

	// ErrDimensionMismatch is returned when vectors of different lengths are combined
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// EmbeddingError wraps a failure of the node-embedding algorithm on a non-empty graph
type EmbeddingError struct {
	Nodes int
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for graph with %d nodes: %v", e.Nodes, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
