package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/metrics"
	"github.com/RishiKendai/graphsim/internal/models"
)

const (
	readCount       = 10
	readBlock       = time.Second
	pendingMinIdle  = time.Minute
	pendingBatch    = 100
	pendingInterval = 30 * time.Second
	cleanupInterval = time.Hour
)

// Processor handles one comparison request read from the stream
type Processor interface {
	Compare(ctx context.Context, req *models.CompareRequest) (*models.ComparisonResult, error)
}

// Consumer reads comparison requests from a Redis stream as a member of a consumer group
type Consumer struct {
	client            redis.Cmdable
	streamKey         string
	consumerGroup     string
	consumerName      string
	processor         Processor
	retryHandler      *RetryHandler
	retentionDuration time.Duration
}

func NewConsumer(
	client redis.Cmdable,
	streamKey string,
	consumerGroup string,
	consumerName string,
	processor Processor,
	retryHandler *RetryHandler,
	retentionDuration time.Duration,
) *Consumer {
	return &Consumer{
		client:            client,
		streamKey:         streamKey,
		consumerGroup:     consumerGroup,
		consumerName:      consumerName,
		processor:         processor,
		retryHandler:      retryHandler,
		retentionDuration: retentionDuration,
	}
}

// Start blocks until ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group, may be already exists")
	}

	// entries left pending by a crashed consumer
	if err := c.recoverPending(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover pending messages on startup")
	}

	go c.runRetention(ctx)
	log.Info().
		Str("stream", c.streamKey).
		Str("group", c.consumerGroup).
		Str("consumer", c.consumerName).
		Dur("retention", c.retentionDuration).
		Msg("Stream consumer started")

	pending := time.NewTicker(pendingInterval)
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pending.C:
			if err := c.recoverPending(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to recover pending messages")
			}
		default:
			if err := c.readBatch(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Error consuming messages")
				sleep(ctx, time.Second)
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	// MKSTREAM creates the stream when missing; "$" reads only new entries
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.consumerGroup, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().Str("group", c.consumerGroup).Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.consumerGroup).
		Str("stream", c.streamKey).
		Msg("Created consumer group")
	return nil
}

// recoverPending claims entries idle in the group's PEL and processes them
func (c *Consumer) recoverPending(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.streamKey,
		Group:  c.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  pendingBatch,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Idle >= pendingMinIdle {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.streamKey,
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		MinIdle:  pendingMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to claim messages: %w", err)
	}

	log.Info().
		Int("idle", len(ids)).
		Int("claimed", len(claimed)).
		Msg("Claimed pending messages")

	for _, msg := range claimed {
		if err := c.handle(ctx, newStreamMessage(msg.ID, msg.Values)); err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to process claimed message")
		}
	}
	return nil
}

func (c *Consumer) readBatch(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, s := range streams {
		if s.Stream != c.streamKey {
			continue
		}
		for _, msg := range s.Messages {
			if err := c.handle(ctx, newStreamMessage(msg.ID, msg.Values)); err != nil {
				log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to process message")
			}
		}
	}
	return nil
}

// handle processes one entry and acknowledges it unless it is neither
// processed nor dead-lettered
func (c *Consumer) handle(ctx context.Context, msg *StreamMessage) error {
	req, err := ParseCompareRequest(msg)
	if err != nil {
		metrics.StreamMessages.WithLabelValues("invalid").Inc()
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Dropping unparseable message")
		c.acknowledge(ctx, msg.ID)
		return err
	}

	var result *models.ComparisonResult
	err = c.retryHandler.RetryWithBackoff(ctx, func() error {
		var err error
		result, err = c.processor.Compare(ctx, req)
		return err
	}, msg)
	if err != nil {
		return err
	}

	if result != nil {
		metrics.StreamMessages.WithLabelValues("processed").Inc()
		log.Debug().
			Str("message_id", msg.ID).
			Str("id", result.ID).
			Float64("score", result.Score).
			Msg("Stream comparison stored")
	}
	return c.acknowledge(ctx, msg.ID)
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.streamKey, c.consumerGroup, messageID).Err(); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return err
	}
	log.Trace().Str("message_id", messageID).Msg("Message acknowledged")
	return nil
}

// trim drops entries older than the retention window
func (c *Consumer) trim(ctx context.Context) error {
	cutoff := time.Now().Add(-c.retentionDuration)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.streamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}
	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Trimmed old stream entries")
	}
	return nil
}

func (c *Consumer) runRetention(ctx context.Context) {
	if c.retentionDuration <= 0 {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		if err := c.trim(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to trim stream")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
