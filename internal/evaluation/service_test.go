package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/graphsim/internal/models"
)

type memoryReports struct {
	mu      sync.Mutex
	reports map[string]models.EvaluationReport
	writes  []string
	err     error
}

func newMemoryReports() *memoryReports {
	return &memoryReports{reports: make(map[string]models.EvaluationReport)}
}

func (m *memoryReports) UpsertReport(_ context.Context, report *models.EvaluationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports[report.RunID] = *report
	m.writes = append(m.writes, report.Status)
	return nil
}

func (m *memoryReports) GetReport(_ context.Context, runID string) (*models.EvaluationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[runID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type memoryStatus struct {
	mu    sync.Mutex
	steps map[string][]models.Step
}

func newMemoryStatus() *memoryStatus {
	return &memoryStatus{steps: make(map[string][]models.Step)}
}

func (m *memoryStatus) Update(_ context.Context, runID string, step models.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID] = append(m.steps[runID], step)
	return nil
}

func (m *memoryStatus) Get(_ context.Context, runID string) (models.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := m.steps[runID]
	if len(steps) == 0 {
		return models.StepIdle, nil
	}
	return steps[len(steps)-1], nil
}

func newTestService(t *testing.T, reports ReportStore, status StatusStore) *Service {
	t.Helper()

	root := fstest.MapFS{}
	for name, f := range sampleDataset() {
		root["datasets/small/"+name] = f
	}
	return NewService(newTestRunner(t), root, reports, status, []float64{0, 1e6}, "")
}

func TestServiceRun(t *testing.T) {
	reports, status := newMemoryReports(), newMemoryStatus()
	svc := newTestService(t, reports, status)

	report, err := svc.Run(context.Background(), "run-1", models.EvaluationRequest{DatasetPath: "datasets/small"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "datasets/small", report.DatasetPath)
	assert.Equal(t, models.ReportStatusCompleted, report.Status)
	assert.Equal(t, 2, report.Pairs)
	assert.Equal(t, 1.0, report.Best.Accuracy)
	assert.False(t, report.CompletedAt.IsZero())

	assert.Equal(t, []string{models.ReportStatusPending, models.ReportStatusCompleted}, reports.writes)
	assert.Equal(t, []models.Step{
		models.StepInitiated,
		models.StepLoading,
		models.StepScoring,
		models.StepSweeping,
		models.StepCompleted,
	}, status.steps["run-1"])

	stored, err := svc.Report(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, report.Best, stored.Best)

	step, err := svc.Status(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, step)
}

func TestServiceRunRequestOverrides(t *testing.T) {
	svc := newTestService(t, newMemoryReports(), newMemoryStatus())

	report, err := svc.Run(context.Background(), "run-2", models.EvaluationRequest{
		DatasetPath: "datasets/small",
		Thresholds:  []float64{0.5},
		EmbedDim:    4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.EmbedDim)
	require.Len(t, report.Thresholds, 1)
	assert.Equal(t, 0.5, report.Thresholds[0].Threshold)
}

func TestServiceRunRejectsEscapingPath(t *testing.T) {
	reports, status := newMemoryReports(), newMemoryStatus()
	svc := newTestService(t, reports, status)

	report, err := svc.Run(context.Background(), "run-3", models.EvaluationRequest{DatasetPath: "../etc"})
	require.ErrorIs(t, err, ErrInvalidDatasetPath)
	require.NotNil(t, report)
	assert.Equal(t, models.ReportStatusFailed, report.Status)
	assert.NotEmpty(t, report.Error)

	stored, err := svc.Report(context.Background(), "run-3")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, stored.Status)

	step, err := svc.Status(context.Background(), "run-3")
	require.NoError(t, err)
	assert.Equal(t, models.StepFailed, step)
}

func TestServiceRunStoreFailure(t *testing.T) {
	reports := newMemoryReports()
	reports.err = errors.New("mongo down")
	svc := newTestService(t, reports, nil)

	_, err := svc.Run(context.Background(), "run-4", models.EvaluationRequest{DatasetPath: "datasets/small"})
	assert.ErrorContains(t, err, "mongo down")
}

func TestServiceUnknownRun(t *testing.T) {
	svc := newTestService(t, newMemoryReports(), nil)

	report, err := svc.Report(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, report)

	step, err := svc.Status(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, models.StepIdle, step)
}

func TestStatusTrackerRejectsUnknownStep(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	err := NewStatusTracker(client).Update(context.Background(), "run", models.Step("exploded"))
	assert.ErrorContains(t, err, "unknown step")
}
