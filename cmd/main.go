package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/api"
	"github.com/RishiKendai/graphsim/internal/comparison"
	"github.com/RishiKendai/graphsim/internal/config"
	"github.com/RishiKendai/graphsim/internal/configs/env"
	"github.com/RishiKendai/graphsim/internal/evaluation"
	"github.com/RishiKendai/graphsim/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/graphsim/internal/infra/redis"
	"github.com/RishiKendai/graphsim/internal/logger"
	"github.com/RishiKendai/graphsim/internal/metrics"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
	"github.com/RishiKendai/graphsim/internal/repository"
	"github.com/RishiKendai/graphsim/internal/stream"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Starting graphsim server")

	metrics.InitPrometheus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := api.StartServer(metricsMux, cfg.MetricsPort, "metrics")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	mongoRepo := repository.NewMongoRepository(mongoClient)
	comparisonsRepo := repository.NewComparisonsRepository(mongoRepo)
	reportsRepo := repository.NewReportsRepository(mongoRepo)

	scorer, err := plagiarism.NewScorer(
		plagiarism.NewEmbedder(cfg.ProNE()),
		plagiarism.WithEmbeddingCache(cfg.EmbeddingCacheSize),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scorer")
	}

	workerPool := plagiarism.NewWorkerPool(ctx, cfg.WorkerCount)
	defer workerPool.Close()

	comparisonSvc := comparison.NewService(scorer, comparisonsRepo, cfg.EmbedDim, cfg.SimilarityThreshold)
	evaluationSvc := evaluation.NewService(
		evaluation.NewRunner(scorer, workerPool, cfg.EmbedDim),
		os.DirFS(cfg.DatasetRoot),
		reportsRepo,
		evaluation.NewStatusTracker(redisClient.Client),
		cfg.SimilarityThresholds,
		cfg.DatasetExtension,
	)

	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey, stream.DefaultMaxRetries, stream.DefaultBaseDelay)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		comparisonSvc,
		retryHandler,
		cfg.StreamRetentionDuration,
	)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()

	router := api.SetupRoutes(cfg, comparisonSvc, evaluationSvc)
	srv := api.StartServer(router, cfg.ServerPort, "api")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down API server")
	}

	cancel()
	select {
	case <-consumerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Redis consumer did not stop in time")
	}

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
