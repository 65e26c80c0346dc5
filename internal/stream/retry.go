package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/metrics"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 200 * time.Millisecond
)

type deadLetterWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RetryHandler retries failed processing with exponential backoff and moves
// messages that keep failing to a dead-letter stream
type RetryHandler struct {
	client        deadLetterWriter
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
}

func NewRetryHandler(client deadLetterWriter, deadLetterKey string, maxRetries int, baseDelay time.Duration) *RetryHandler {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
	}
}

// IsPermanent reports errors that no retry can fix
func IsPermanent(err error) bool {
	return errors.Is(err, plagiarism.ErrEmptyGraph) ||
		errors.Is(err, plagiarism.ErrInvalidDimension) ||
		errors.Is(err, ErrInvalidMessage)
}

// RetryWithBackoff runs fn up to maxRetries times, doubling the delay each time.
// The returned error is nil once the message is either processed or dead-lettered.
func (r *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, msg *StreamMessage) error {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			break
		}

		log.Warn().
			Err(lastErr).
			Str("message_id", msg.ID).
			Int("attempt", attempt).
			Int("max_retries", r.maxRetries).
			Msg("Processing failed, retrying")

		if attempt == r.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return r.deadLetter(ctx, msg, lastErr)
}

func (r *RetryHandler) deadLetter(ctx context.Context, msg *StreamMessage, cause error) error {
	values := msg.Values()
	values["originalId"] = msg.ID
	values["error"] = cause.Error()
	values["failedAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.deadLetterKey,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter message %s: %w", msg.ID, err)
	}

	metrics.StreamMessages.WithLabelValues("dead_lettered").Inc()
	log.Error().
		Err(cause).
		Str("message_id", msg.ID).
		Str("dead_letter_key", r.deadLetterKey).
		Msg("Message moved to dead-letter stream")
	return nil
}
