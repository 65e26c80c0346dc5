package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/evaluation"
	"github.com/RishiKendai/graphsim/internal/models"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

// Comparer scores and looks up single comparisons
type Comparer interface {
	Compare(ctx context.Context, req *models.CompareRequest) (*models.ComparisonResult, error)
	Get(ctx context.Context, id string) (*models.ComparisonResult, error)
	Recent(ctx context.Context, limit int) ([]models.ComparisonResult, error)
}

// Evaluator runs threshold sweeps and reports on them
type Evaluator interface {
	Run(ctx context.Context, runID string, req models.EvaluationRequest) (*models.EvaluationReport, error)
	Report(ctx context.Context, runID string) (*models.EvaluationReport, error)
	Status(ctx context.Context, runID string) (models.Step, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	comparer    Comparer
	evaluator   Evaluator
	evalSem     chan struct{}
	evalTimeout time.Duration
}

func NewHandler(comparer Comparer, evaluator Evaluator, maxConcurrentEvaluations int, evalTimeout time.Duration) *Handler {
	if maxConcurrentEvaluations <= 0 {
		maxConcurrentEvaluations = 1
	}
	return &Handler{
		comparer:    comparer,
		evaluator:   evaluator,
		evalSem:     make(chan struct{}, maxConcurrentEvaluations),
		evalTimeout: evalTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.comparer.Compare(c.Request.Context(), &req)
	switch {
	case errors.Is(err, plagiarism.ErrEmptyGraph):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: "Both snippets must contain at least one token",
			Code:  "EMPTY_SNIPPET",
		})
		return
	case errors.Is(err, plagiarism.ErrInvalidDimension):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_DIMENSION",
		})
		return
	case err != nil:
		log.Error().Err(err).Msg("Comparison failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to compare snippets",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetComparison(c *gin.Context) {
	id := c.Param("id")

	result, err := h.comparer.Get(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to get comparison")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to get comparison",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Comparison not found",
			Code:  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListComparisons returns the newest comparisons; ?limit= bounds the count
func (h *Handler) ListComparisons(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = n
	}

	results, err := h.comparer.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Int("limit", limit).Msg("Failed to list comparisons")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to list comparisons",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comparisons": results,
		"count":       len(results),
	})
}

func (h *Handler) StartEvaluation(c *gin.Context) {
	var req models.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx := c.Request.Context()

	// bounded concurrency
	select {
	case h.evalSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	runID := uuid.NewString()
	c.JSON(http.StatusAccepted, models.EvaluationResponse{
		RunID: runID,
		Step:  models.StepInitiated,
	})

	go h.processEvaluation(runID, req)
}

func (h *Handler) processEvaluation(runID string, req models.EvaluationRequest) {
	defer func() { <-h.evalSem }()

	ctx, cancel := context.WithTimeout(context.Background(), h.evalTimeout)
	defer cancel()

	report, err := h.evaluator.Run(ctx, runID, req)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Str("datasetPath", req.DatasetPath).Msg("Evaluation failed")
		return
	}

	log.Info().
		Str("runId", runID).
		Msg(evaluation.FormatSummary(req.DatasetPath, report))
}

func (h *Handler) GetEvaluation(c *gin.Context) {
	runID := c.Param("runId")

	report, err := h.evaluator.Report(c.Request.Context(), runID)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to get evaluation report")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to get evaluation report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Evaluation not found",
			Code:  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetEvaluationStatus(c *gin.Context) {
	runID := c.Param("runId")

	step, err := h.evaluator.Status(c.Request.Context(), runID)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to get evaluation status")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to get evaluation status",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		RunID: runID,
		Step:  step,
	})
}
