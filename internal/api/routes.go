package api

import (
	"github.com/gin-gonic/gin"

	"github.com/RishiKendai/graphsim/internal/config"
)

func SetupRoutes(cfg *config.Config, comparer Comparer, evaluator Evaluator) *gin.Engine {
	router := gin.Default()

	handler := NewHandler(comparer, evaluator, cfg.MaxConcurrentEvaluations, cfg.EvaluationTimeout)
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	router.Use(MetricsMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// no auth
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/compare", handler.Compare)
		api.GET("/comparisons", handler.ListComparisons)
		api.GET("/comparisons/:id", handler.GetComparison)

		api.POST("/evaluations", handler.StartEvaluation)
		api.GET("/evaluations/:runId", handler.GetEvaluation)
		api.GET("/evaluations/:runId/status", handler.GetEvaluationStatus)
	}

	return router
}
