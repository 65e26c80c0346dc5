package plagiarism

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/metrics"
)

// Pair is one comparison unit
type Pair struct {
	ID       string
	SnippetA string
	SnippetB string
}

// PairScore is the outcome of scoring one Pair
type PairScore struct {
	Pair     Pair
	Score    float64
	Err      error
	Duration time.Duration
}

// ScoreJob scores a single pair on the worker pool
type ScoreJob struct {
	Index      int
	Pair       Pair
	Dim        int
	Scorer     *Scorer
	ResultChan chan<- indexedScore
}

type indexedScore struct {
	index int
	score PairScore
}

// Execute scores the pair and reports exactly one result
func (j *ScoreJob) Execute(ctx context.Context) error {
	start := time.Now()
	score, err := j.Scorer.Score(j.Pair.SnippetA, j.Pair.SnippetB, j.Dim)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ComparisonsTotal.WithLabelValues("batch", status).Inc()
	metrics.ComparisonDuration.WithLabelValues("batch").Observe(elapsed.Seconds())

	result := indexedScore{
		index: j.Index,
		score: PairScore{Pair: j.Pair, Score: score, Err: err, Duration: elapsed},
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case j.ResultChan <- result:
		return nil
	}
}

// ScorePairs scores every pair on the pool and returns results in input order.
// If ctx ends early, unfinished pairs carry ctx.Err().
func ScorePairs(ctx context.Context, pool *WorkerPool, scorer *Scorer, pairs []Pair, dim int) []PairScore {
	results := make([]PairScore, len(pairs))
	if len(pairs) == 0 {
		return results
	}

	resultChan := make(chan indexedScore, len(pairs))
	done := make([]bool, len(pairs))
	submitted := 0

	for i, pair := range pairs {
		job := &ScoreJob{
			Index:      i,
			Pair:       pair,
			Dim:        dim,
			Scorer:     scorer,
			ResultChan: resultChan,
		}
		if err := pool.Submit(ctx, job); err != nil {
			log.Error().Err(err).Str("pairId", pair.ID).Msg("Failed to submit job")
			results[i] = PairScore{Pair: pair, Err: err}
			done[i] = true
			continue
		}
		submitted++
	}

	for received := 0; received < submitted; {
		select {
		case <-ctx.Done():
			for i, ok := range done {
				if !ok {
					results[i] = PairScore{Pair: pairs[i], Err: ctx.Err()}
				}
			}
			return results
		case r := <-resultChan:
			results[r.index] = r.score
			done[r.index] = true
			received++
		}
	}

	return results
}
