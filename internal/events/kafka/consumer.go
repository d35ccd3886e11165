package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultRetryDelay = time.Second

// Consumer reads the transfer log topic as part of a consumer group. Kafka
// commits are offsets, so committing a message also commits everything before
// it on the partition: a handler failure is retried on the same message until
// it succeeds or ctx ends, and nothing after it is committed meanwhile.
// Undecodable messages can never succeed; they are logged and committed.
type Consumer struct {
	reader     messageReader
	handler    events.Handler
	logger     *zap.Logger
	retryDelay time.Duration
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler events.Handler
}

func NewConsumer(config ConsumerConfig, logger *zap.Logger) *Consumer {
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: config.Brokers,
			Topic:   config.Topic,
			GroupID: config.GroupID,
		}),
		handler:    config.Handler,
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

// Start blocks until ctx is canceled or the reader fails.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("kafka consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("kafka consumer stopping")
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Info("kafka consumer stopping")
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("failed to commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// processMessage returns only once msg may be committed, or with ctx's error.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg.Value)
	if err != nil {
		c.logger.Error("skipping undecodable message",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, event)
		if err == nil {
			return nil
		}
		c.logger.Warn("failed to handle message, retrying",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
