package comparison

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/metrics"
	"github.com/RishiKendai/graphsim/internal/models"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

const (
	SourceHTTP   = "http"
	SourceStream = "stream"
)

type Store interface {
	InsertComparison(ctx context.Context, result *models.ComparisonResult) error
	GetComparison(ctx context.Context, id string) (*models.ComparisonResult, error)
	RecentComparisons(ctx context.Context, limit int64) ([]models.ComparisonResult, error)
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Service scores snippet pairs and keeps the results
type Service struct {
	scorer    *plagiarism.Scorer
	store     Store
	embedDim  int
	threshold float64
}

// NewService builds a comparison service. store may be nil, in which case
// results are returned but not persisted.
func NewService(scorer *plagiarism.Scorer, store Store, embedDim int, threshold float64) *Service {
	if embedDim <= 0 {
		embedDim = plagiarism.DefaultEmbedDim
	}
	return &Service{
		scorer:    scorer,
		store:     store,
		embedDim:  embedDim,
		threshold: threshold,
	}
}

func (s *Service) Compare(ctx context.Context, req *models.CompareRequest) (*models.ComparisonResult, error) {
	start := time.Now()

	source := req.Source
	if source == "" {
		source = SourceHTTP
	}
	dim := req.EmbedDim
	if dim <= 0 {
		dim = s.embedDim
	}
	threshold := s.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	score, err := s.scorer.Score(req.SnippetA, req.SnippetB, dim)
	metrics.ComparisonDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ComparisonsTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("failed to score pair: %w", err)
	}

	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}

	result := &models.ComparisonResult{
		ID:        id,
		Score:     score,
		EmbedDim:  dim,
		Threshold: threshold,
		Similar:   plagiarism.IsSimilar(score, threshold),
		Verdict:   string(plagiarism.Classify(score, threshold)),
		TokensA:   len(strings.Fields(req.SnippetA)),
		TokensB:   len(strings.Fields(req.SnippetB)),
		Source:    source,
		CreatedAt: time.Now(),
	}

	if s.store != nil {
		if err := s.store.InsertComparison(ctx, result); err != nil {
			metrics.ComparisonsTotal.WithLabelValues(source, "error").Inc()
			return nil, fmt.Errorf("failed to store comparison: %w", err)
		}
	}

	metrics.ComparisonsTotal.WithLabelValues(source, "success").Inc()
	log.Debug().
		Str("id", id).
		Str("source", source).
		Float64("score", score).
		Bool("similar", result.Similar).
		Msg("Comparison scored")

	return result, nil
}

// Get returns a stored comparison, or nil when it is unknown or nothing is stored
func (s *Service) Get(ctx context.Context, id string) (*models.ComparisonResult, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.GetComparison(ctx, id)
}

// Recent returns up to limit stored comparisons, newest first.
// limit is clamped to [1, MaxListLimit]; zero or less means DefaultListLimit.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.ComparisonResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if s.store == nil {
		return []models.ComparisonResult{}, nil
	}
	return s.store.RecentComparisons(ctx, int64(limit))
}
