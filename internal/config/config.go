package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/graphsim/internal/configs/env"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentEvaluations int
	WorkerCount              int

	// Evaluation
	EvaluationTimeout time.Duration
	DatasetRoot       string
	DatasetPath       string
	DatasetExtension  string

	// Embedding
	EmbedDim           int
	ProNEStep          int
	ProNEMu            float64
	ProNETheta         float64
	ProNEExponent      float64
	EmbeddingCacheSize int

	// Similarity
	SimilarityThreshold  float64
	SimilarityThresholds []float64

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "graphsim:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "graphsim:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "graphsim:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "graphsim")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentEvaluations = env.GetEnvInt("MAX_CONCURRENT_EVALUATIONS", 2)
	cfg.WorkerCount = env.GetEnvInt("WORKER_COUNT", 0)

	// Evaluation
	timeoutMinutes := env.GetEnvInt("EVALUATION_TIMEOUT_MINUTES", 30)
	cfg.EvaluationTimeout = time.Duration(timeoutMinutes) * time.Minute
	cfg.DatasetRoot = env.GetEnv("DATASET_ROOT", ".")
	cfg.DatasetPath = env.GetEnv("DATASET_PATH", "")
	cfg.DatasetExtension = env.GetEnv("DATASET_EXTENSION", ".java")

	// Embedding
	cfg.EmbedDim = env.GetEnvInt("EMBED_DIM", plagiarism.DefaultEmbedDim)
	cfg.ProNEStep = env.GetEnvInt("PRONE_STEP", plagiarism.DefaultProNEStep)
	cfg.ProNEMu = env.GetEnvFloat("PRONE_MU", plagiarism.DefaultProNEMu)
	cfg.ProNETheta = env.GetEnvFloat("PRONE_THETA", plagiarism.DefaultProNETheta)
	cfg.ProNEExponent = env.GetEnvFloat("PRONE_EXPONENT", plagiarism.DefaultProNEExponent)
	cfg.EmbeddingCacheSize = env.GetEnvInt("EMBEDDING_CACHE_SIZE", 1024)

	// Similarity
	cfg.SimilarityThreshold = env.GetEnvFloat("SIMILARITY_THRESHOLD", plagiarism.DefaultThreshold)
	cfg.SimilarityThresholds = env.GetEnvFloatSlice("SIMILARITY_THRESHOLDS", plagiarism.DefaultThresholds)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogFormat = env.GetEnv("LOG_FORMAT", "json")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

// Validate checks the settings the service needs
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentEvaluations <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_EVALUATIONS must be greater than 0")
	}
	if c.EvaluationTimeout <= 0 {
		return fmt.Errorf("EVALUATION_TIMEOUT_MINUTES must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	return c.validateEmbedding()
}

// ValidateEvaluation checks the settings the offline evaluator needs
func (c *Config) ValidateEvaluation() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("DATASET_PATH is required")
	}
	return c.validateEmbedding()
}

func (c *Config) validateEmbedding() error {
	if c.EmbedDim <= 0 || c.EmbedDim > plagiarism.MaxEmbedDim {
		return fmt.Errorf("EMBED_DIM must be between 1 and %d", plagiarism.MaxEmbedDim)
	}
	if c.ProNEStep < 0 {
		return fmt.Errorf("PRONE_STEP must not be negative")
	}
	if len(c.SimilarityThresholds) == 0 {
		return fmt.Errorf("SIMILARITY_THRESHOLDS must not be empty")
	}
	return nil
}

// ProNE returns the embedding algorithm described by the config
func (c *Config) ProNE() *plagiarism.ProNE {
	return &plagiarism.ProNE{
		Step:     c.ProNEStep,
		Mu:       c.ProNEMu,
		Theta:    c.ProNETheta,
		Exponent: c.ProNEExponent,
	}
}
