// Package stream consumes chore transitions from a Redis stream.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// Client is the subset of *redis.Client used by the consumer.
type Client interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// TransitionHandler applies one transition.
type TransitionHandler interface {
	HandleTransition(ctx context.Context, t entities.ChoreTransition) (*service.Outcome, error)
}

// Config tunes the consumer.
type Config struct {
	Stream    string
	Group     string
	Consumer  string        // defaults to a random name
	Count     int64         // entries per read
	Block     time.Duration // read timeout
	MinIdle   time.Duration // pending entries older than this are reclaimed
	ClaimEach time.Duration // how often to look for stale pending entries
}

// Consumer reads a stream through a consumer group. Entries are acked only
// once handled, so delivery is at least once.
type Consumer struct {
	client  Client
	handler TransitionHandler
	cfg     Config
	logger  *zap.Logger
}

// NewConsumer creates a new Consumer.
func NewConsumer(client Client, handler TransitionHandler, cfg Config, logger *zap.Logger) *Consumer {
	if cfg.Consumer == "" {
		cfg.Consumer = "chorequest-" + uuid.NewString()[:8]
	}
	if cfg.Count <= 0 {
		cfg.Count = 16
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = time.Minute
	}
	if cfg.ClaimEach <= 0 {
		cfg.ClaimEach = cfg.MinIdle
	}

	return &Consumer{
		client:  client,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("stream", cfg.Stream), zap.String("consumer", cfg.Consumer)),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("stream consumer started", zap.String("group", c.cfg.Group))

	lastClaim := time.Time{}
	for {
		if ctx.Err() != nil {
			c.logger.Info("stream consumer stopped")
			return nil
		}

		if time.Since(lastClaim) >= c.cfg.ClaimEach {
			c.Reclaim(ctx)
			lastClaim = time.Now()
		}

		if err := c.ReadOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("read stream", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ReadOnce reads and handles one batch of new entries.
func (c *Consumer) ReadOnce(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("xreadgroup: %w", err)
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			c.handle(ctx, msg)
		}
	}

	return nil
}

// Reclaim takes over entries left pending by crashed or failed consumers.
func (c *Consumer) Reclaim(ctx context.Context) int {
	start := "0-0"
	claimed := 0

	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  c.cfg.MinIdle,
			Start:    start,
			Count:    c.cfg.Count,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.logger.Warn("xautoclaim failed", zap.Error(err))
			}
			return claimed
		}

		for _, msg := range msgs {
			c.handle(ctx, msg)
		}
		claimed += len(msgs)

		if next == "" || next == "0-0" || len(msgs) == 0 {
			break
		}
		start = next
	}

	if claimed > 0 {
		c.logger.Info("reclaimed pending entries", zap.Int("count", claimed))
	}
	return claimed
}

// handle processes one entry and acks it unless it should be redelivered.
func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) bool {
	log := c.logger.With(zap.String("entry_id", msg.ID))

	t, err := ParseMessage(msg)
	if err != nil {
		log.Warn("dropping malformed entry", zap.Error(err))
		return c.ack(ctx, msg.ID)
	}

	out, err := c.handler.HandleTransition(ctx, t)
	switch {
	case errors.Is(err, service.ErrConflictExhausted):
		log.Warn("completion left pending after conflicts", zap.String("chore_id", t.ChoreID))
		return false
	case err != nil:
		log.Error("failed to handle transition", zap.String("chore_id", t.ChoreID), zap.Error(err))
		return false
	}

	log.Debug("entry handled", zap.String("chore_id", t.ChoreID), zap.String("status", string(out.Status)))
	return c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) bool {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.logger.Error("xack failed", zap.String("entry_id", id), zap.Error(err))
		return false
	}
	return true
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}
