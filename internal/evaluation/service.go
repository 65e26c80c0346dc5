package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/metrics"
	"github.com/RishiKendai/graphsim/internal/models"
)

// ErrInvalidDatasetPath is returned for paths that escape the dataset root
var ErrInvalidDatasetPath = errors.New("invalid dataset path")

type ReportStore interface {
	UpsertReport(ctx context.Context, report *models.EvaluationReport) error
	GetReport(ctx context.Context, runID string) (*models.EvaluationReport, error)
}

type StatusStore interface {
	Update(ctx context.Context, runID string, step models.Step) error
	Get(ctx context.Context, runID string) (models.Step, error)
}

// Service runs evaluations against datasets under a fixed root and records
// their progress and reports
type Service struct {
	runner     *Runner
	root       fs.FS
	reports    ReportStore
	status     StatusStore
	thresholds []float64
	extension  string
}

func NewService(runner *Runner, root fs.FS, reports ReportStore, status StatusStore, thresholds []float64, extension string) *Service {
	if extension == "" {
		extension = DefaultExtension
	}
	return &Service{
		runner:     runner,
		root:       root,
		reports:    reports,
		status:     status,
		thresholds: thresholds,
		extension:  extension,
	}
}

// Run loads the dataset at req.DatasetPath (relative to the root), scores it
// and stores the report under runID. A failed run still stores a report.
func (s *Service) Run(ctx context.Context, runID string, req models.EvaluationRequest) (*models.EvaluationReport, error) {
	start := time.Now()
	s.setStep(ctx, runID, models.StepInitiated)

	report := &models.EvaluationReport{
		RunID:       runID,
		DatasetPath: req.DatasetPath,
		EmbedDim:    req.EmbedDim,
		Status:      models.ReportStatusPending,
		CreatedAt:   start,
	}
	if err := s.reports.UpsertReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store pending report: %w", err)
	}

	result, err := s.run(ctx, runID, req)
	if err != nil {
		s.fail(ctx, report, err)
		metrics.EvaluationRuns.WithLabelValues(models.ReportStatusFailed).Inc()
		return report, err
	}

	result.RunID = runID
	result.DatasetPath = req.DatasetPath
	result.Status = models.ReportStatusCompleted
	result.CreatedAt = start
	result.CompletedAt = time.Now()

	if err := s.reports.UpsertReport(ctx, result); err != nil {
		s.setStep(ctx, runID, models.StepFailed)
		metrics.EvaluationRuns.WithLabelValues(models.ReportStatusFailed).Inc()
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	s.setStep(ctx, runID, models.StepCompleted)
	metrics.EvaluationRuns.WithLabelValues(models.ReportStatusCompleted).Inc()
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

func (s *Service) run(ctx context.Context, runID string, req models.EvaluationRequest) (*models.EvaluationReport, error) {
	if !fs.ValidPath(req.DatasetPath) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDatasetPath, req.DatasetPath)
	}
	fsys, err := fs.Sub(s.root, req.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatasetPath, err)
	}

	ext := req.Extension
	if ext == "" {
		ext = s.extension
	}
	thresholds := req.Thresholds
	if len(thresholds) == 0 {
		thresholds = s.thresholds
	}

	s.setStep(ctx, runID, models.StepLoading)
	ds, err := LoadDataset(ctx, fsys, ext)
	if err != nil {
		return nil, err
	}

	return s.runner.RunWithDim(ctx, ds, thresholds, req.EmbedDim, func(step models.Step) {
		s.setStep(ctx, runID, step)
	})
}

// fail stores report as failed, detached from ctx so a timeout still records it
func (s *Service) fail(ctx context.Context, report *models.EvaluationReport, cause error) {
	log.Error().Err(cause).Str("runId", report.RunID).Msg("Evaluation failed")

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	report.Status = models.ReportStatusFailed
	report.Error = cause.Error()
	report.CompletedAt = time.Now()
	if err := s.reports.UpsertReport(storeCtx, report); err != nil {
		log.Error().Err(err).Str("runId", report.RunID).Msg("Failed to store failed report")
	}
	s.setStep(storeCtx, report.RunID, models.StepFailed)
}

// setStep logs status errors rather than failing the run
func (s *Service) setStep(ctx context.Context, runID string, step models.Step) {
	if s.status == nil {
		return
	}
	if err := s.status.Update(ctx, runID, step); err != nil {
		log.Warn().Err(err).Str("runId", runID).Str("step", string(step)).Msg("Failed to record evaluation step")
	}
}

// Report returns the stored report, or nil when the run is unknown
func (s *Service) Report(ctx context.Context, runID string) (*models.EvaluationReport, error) {
	return s.reports.GetReport(ctx, runID)
}

func (s *Service) Status(ctx context.Context, runID string) (models.Step, error) {
	if s.status == nil {
		return models.StepIdle, nil
	}
	return s.status.Get(ctx, runID)
}
