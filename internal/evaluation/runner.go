package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/models"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

// Runner scores a dataset once and sweeps decision thresholds over the scores
type Runner struct {
	scorer   *plagiarism.Scorer
	pool     *plagiarism.WorkerPool
	embedDim int
}

func NewRunner(scorer *plagiarism.Scorer, pool *plagiarism.WorkerPool, embedDim int) *Runner {
	if embedDim <= 0 {
		embedDim = plagiarism.DefaultEmbedDim
	}
	return &Runner{
		scorer:   scorer,
		pool:     pool,
		embedDim: embedDim,
	}
}

// StepFunc observes the progress of a run
type StepFunc func(step models.Step)

// Run compares every candidate with its case original and sweeps thresholds.
// Pairs in which either side has no tokens are skipped and counted; any other
// scoring failure aborts the run.
func (r *Runner) Run(ctx context.Context, ds *Dataset, thresholds []float64) (*models.EvaluationReport, error) {
	return r.RunWithDim(ctx, ds, thresholds, r.embedDim, nil)
}

func (r *Runner) RunWithDim(ctx context.Context, ds *Dataset, thresholds []float64, dim int, onStep StepFunc) (*models.EvaluationReport, error) {
	if len(thresholds) == 0 {
		thresholds = plagiarism.DefaultThresholds
	}
	if dim <= 0 {
		dim = r.embedDim
	}
	if onStep == nil {
		onStep = func(models.Step) {}
	}
	start := time.Now()

	onStep(models.StepScoring)
	scored, skipped, err := r.Score(ctx, ds, dim)
	if err != nil {
		return nil, err
	}

	onStep(models.StepSweeping)
	sweep := Sweep(scored, thresholds)

	report := &models.EvaluationReport{
		EmbedDim:     dim,
		Cases:        len(ds.Cases),
		SkippedCases: append([]string{}, ds.Skipped...),
		Pairs:        len(scored),
		SkippedPairs: skipped,
		Thresholds:   sweep.Thresholds,
		Best:         sweep.Best,
		Duration:     time.Since(start),
	}

	log.Info().
		Int("cases", report.Cases).
		Int("pairs", report.Pairs).
		Int("skippedPairs", skipped).
		Float64("bestThreshold", sweep.Best.Threshold).
		Float64("bestAccuracy", sweep.Best.Accuracy).
		Dur("duration", report.Duration).
		Msg("Evaluation finished")

	return report, nil
}

// Score computes the distance of every candidate to its original, once.
// It returns the scored pairs and the number of pairs skipped for empty snippets.
func (r *Runner) Score(ctx context.Context, ds *Dataset, dim int) ([]ScoredPair, int, error) {
	pairs := make([]plagiarism.Pair, 0, ds.PairCount())
	labels := make([]ScoredPair, 0, ds.PairCount())
	for _, c := range ds.Cases {
		for i, cand := range c.Candidates {
			pairs = append(pairs, plagiarism.Pair{
				ID:       c.Name + "#" + strconv.Itoa(i),
				SnippetA: c.Original,
				SnippetB: cand.Content,
			})
			labels = append(labels, ScoredPair{Case: c.Name, Path: cand.Path, Label: cand.Label})
		}
	}

	results := plagiarism.ScorePairs(ctx, r.pool, r.scorer, pairs, dim)
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	scored := make([]ScoredPair, 0, len(results))
	skipped := 0
	for i, res := range results {
		if errors.Is(res.Err, plagiarism.ErrEmptyGraph) {
			log.Warn().Str("path", labels[i].Path).Msg("Skipping pair with empty snippet")
			skipped++
			continue
		}
		if res.Err != nil {
			return nil, 0, fmt.Errorf("failed to score %s: %w", labels[i].Path, res.Err)
		}
		sp := labels[i]
		sp.Score = res.Score
		scored = append(scored, sp)
	}

	return scored, skipped, nil
}

// FormatSummary renders the best threshold line
func FormatSummary(name string, report *models.EvaluationReport) string {
	best := report.Best
	return fmt.Sprintf(
		"%s - The best threshold is %v with an accuracy of %.2f, Precision: %.2f, Recall: %.2f, F-measure: %.2f",
		name, best.Threshold, best.Accuracy, best.Precision, best.Recall, best.FMeasure,
	)
}
