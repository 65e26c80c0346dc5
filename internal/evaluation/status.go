package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/models"
)

const (
	statusKeyPrefix = "evaluation_status:"
	statusTTL       = 12 * time.Hour
)

// StatusTracker keeps the current step of each run in Redis
type StatusTracker struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewStatusTracker(client redis.Cmdable) *StatusTracker {
	return &StatusTracker{client: client, ttl: statusTTL}
}

func (s *StatusTracker) Update(ctx context.Context, runID string, step models.Step) error {
	if !models.ValidSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	key := statusKeyPrefix + runID
	if err := s.client.Set(ctx, key, string(step), s.ttl).Err(); err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("runId", runID).
			Str("redisKey", key).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().Str("runId", runID).Str("step", string(step)).Msg("Status updated")
	return nil
}

// Get returns the run's step, or StepIdle when nothing is recorded
func (s *StatusTracker) Get(ctx context.Context, runID string) (models.Step, error) {
	val, err := s.client.Get(ctx, statusKeyPrefix+runID).Result()
	if errors.Is(err, redis.Nil) {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}
