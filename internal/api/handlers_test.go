package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/graphsim/internal/config"
	"github.com/RishiKendai/graphsim/internal/models"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

const (
	testSecret = "test-secret"
	testIssuer = "graphsim"
)

type fakeComparer struct {
	results   map[string]*models.ComparisonResult
	err       error
	lastLimit int
}

func (f *fakeComparer) Compare(_ context.Context, req *models.CompareRequest) (*models.ComparisonResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &models.ComparisonResult{ID: "cmp-1", Score: 0, Similar: true, Verdict: "identical", Source: "http"}
	if req.RequestID != "" {
		res.ID = req.RequestID
	}
	f.results[res.ID] = res
	return res, nil
}

func (f *fakeComparer) Get(_ context.Context, id string) (*models.ComparisonResult, error) {
	return f.results[id], nil
}

func (f *fakeComparer) Recent(_ context.Context, limit int) ([]models.ComparisonResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastLimit = limit
	out := make([]models.ComparisonResult, 0, len(f.results))
	for _, r := range f.results {
		out = append(out, *r)
	}
	return out, nil
}

type fakeEvaluator struct {
	mu      sync.Mutex
	runs    []models.EvaluationRequest
	done    chan string
	reports map[string]*models.EvaluationReport
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{
		done:    make(chan string, 4),
		reports: make(map[string]*models.EvaluationReport),
	}
}

func (f *fakeEvaluator) Run(_ context.Context, runID string, req models.EvaluationRequest) (*models.EvaluationReport, error) {
	report := &models.EvaluationReport{RunID: runID, DatasetPath: req.DatasetPath, Status: models.ReportStatusCompleted}
	f.mu.Lock()
	f.runs = append(f.runs, req)
	f.reports[runID] = report
	f.mu.Unlock()
	f.done <- runID
	return report, nil
}

func (f *fakeEvaluator) Report(_ context.Context, runID string) (*models.EvaluationReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[runID], nil
}

func (f *fakeEvaluator) Status(_ context.Context, runID string) (models.Step, error) {
	if _, err := f.Report(context.Background(), runID); err != nil {
		return "", err
	}
	return models.StepCompleted, nil
}

func setupTestRouter(t *testing.T, comparer Comparer, evaluator Evaluator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:                testSecret,
		JWTIssuer:                testIssuer,
		RateLimitRPS:             100,
		MaxConcurrentEvaluations: 1,
		EvaluationTimeout:        time.Minute,
	}
	return SetupRoutes(cfg, comparer, evaluator)
}

func signToken(t *testing.T, secret, issuer string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"api_key": "client-1",
		"iss":     issuer,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{}, newFakeEvaluator())

	w := doRequest(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{}, newFakeEvaluator())

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: signToken(t, "other", testIssuer, time.Hour)},
		{name: "wrong issuer", token: signToken(t, testSecret, "someone-else", time.Hour)},
		{name: "expired", token: signToken(t, testSecret, testIssuer, -time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, "/api/v1/comparisons/x", nil, tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)
		})
	}
}

func TestCompare(t *testing.T) {
	comparer := &fakeComparer{results: map[string]*models.ComparisonResult{}}
	router := setupTestRouter(t, comparer, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodPost, "/api/v1/compare", models.CompareRequest{
		RequestID: "req-9",
		SnippetA:  "int x ;",
		SnippetB:  "int y ;",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)

	var res models.ComparisonResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "req-9", res.ID)
	assert.True(t, res.Similar)

	w = doRequest(t, router, http.MethodGet, "/api/v1/comparisons/req-9", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/comparisons/unknown", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestCompareInvalidBody(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{results: map[string]*models.ComparisonResult{}}, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodPost, "/api/v1/compare", map[string]string{"snippetA": "x"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/compare", map[string]interface{}{
		"snippetA": "x", "snippetB": "y", "embedDim": 5000,
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompareEmbedDimBound(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{results: map[string]*models.ComparisonResult{}}, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodPost, "/api/v1/compare", models.CompareRequest{
		SnippetA: "a b", SnippetB: "a b", EmbedDim: plagiarism.MaxEmbedDim,
	}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/compare", models.CompareRequest{
		SnippetA: "a b", SnippetB: "a b", EmbedDim: plagiarism.MaxEmbedDim + 1,
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/evaluations", models.EvaluationRequest{
		DatasetPath: "IR-Plag", EmbedDim: plagiarism.MaxEmbedDim + 1,
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListComparisons(t *testing.T) {
	comparer := &fakeComparer{results: map[string]*models.ComparisonResult{
		"a": {ID: "a"},
		"b": {ID: "b"},
	}}
	router := setupTestRouter(t, comparer, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodGet, "/api/v1/comparisons?limit=5", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Comparisons []models.ComparisonResult `json:"comparisons"`
		Count       int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Comparisons, 2)
	assert.Equal(t, 5, comparer.lastLimit)

	w = doRequest(t, router, http.MethodGet, "/api/v1/comparisons", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, comparer.lastLimit)

	for _, bad := range []string{"0", "-1", "ten"} {
		w = doRequest(t, router, http.MethodGet, "/api/v1/comparisons?limit="+bad, nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", bad)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, w).Code)
	}
}

func TestListComparisonsStoreError(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{err: errors.New("mongo down")}, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodGet, "/api/v1/comparisons", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCompareErrors(t *testing.T) {
	token := signToken(t, testSecret, testIssuer, time.Hour)
	body := models.CompareRequest{SnippetA: " ", SnippetB: "x"}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "empty snippet", err: fmt.Errorf("snippet A: %w", plagiarism.ErrEmptyGraph), status: http.StatusUnprocessableEntity, code: "EMPTY_SNIPPET"},
		{name: "bad dimension", err: plagiarism.ErrInvalidDimension, status: http.StatusBadRequest, code: "INVALID_DIMENSION"},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, &fakeComparer{err: tt.err}, newFakeEvaluator())
			w := doRequest(t, router, http.MethodPost, "/api/v1/compare", body, token)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestStartEvaluation(t *testing.T) {
	evaluator := newFakeEvaluator()
	router := setupTestRouter(t, &fakeComparer{}, evaluator)
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodPost, "/api/v1/evaluations", models.EvaluationRequest{
		DatasetPath: "IR-Plag",
		Thresholds:  []float64{0.2},
	}, token)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp models.EvaluationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, models.StepInitiated, resp.Step)

	select {
	case runID := <-evaluator.done:
		assert.Equal(t, resp.RunID, runID)
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation did not run")
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/evaluations/"+resp.RunID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.EvaluationReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "IR-Plag", report.DatasetPath)

	w = doRequest(t, router, http.MethodGet, "/api/v1/evaluations/"+resp.RunID+"/status", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.StepCompleted, status.Step)
}

func TestStartEvaluationRequiresDataset(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{}, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodPost, "/api/v1/evaluations", map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEvaluationNotFound(t *testing.T) {
	router := setupTestRouter(t, &fakeComparer{}, newFakeEvaluator())
	token := signToken(t, testSecret, testIssuer, time.Hour)

	w := doRequest(t, router, http.MethodGet, "/api/v1/evaluations/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:                testSecret,
		RateLimitRPS:             0.5,
		MaxConcurrentEvaluations: 1,
		EvaluationTimeout:        time.Minute,
	}
	router := SetupRoutes(cfg, &fakeComparer{results: map[string]*models.ComparisonResult{}}, newFakeEvaluator())
	token := signToken(t, testSecret, "", time.Hour)

	first := doRequest(t, router, http.MethodGet, "/api/v1/comparisons/x", nil, token)
	assert.Equal(t, http.StatusNotFound, first.Code)

	second := doRequest(t, router, http.MethodGet, "/api/v1/comparisons/x", nil, token)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeError(t, second).Code)
}

func TestRateLimiterReusesKey(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	assert.Same(t, rl.GetLimiter("a"), rl.GetLimiter("a"))
	assert.NotSame(t, rl.GetLimiter("a"), rl.GetLimiter("b"))
}
