package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events"
	modelevents "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

// Subscriber reads the stream as a member of a consumer group. Messages are
// acknowledged only after the handler succeeds. Failed ones stay pending and are
// claimed again once idle for ClaimMinIdle, which also recovers messages held by
// a consumer that died. Undecodable messages are acknowledged and dropped.
type Subscriber struct {
	client        goredis.UniversalClient
	group         string
	consumer      string
	stream        string
	handler       events.Handler
	batchSize     int64
	blockDuration time.Duration
	claimMinIdle  time.Duration
	nextClaim     time.Time
	logger        *zap.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       events.Handler
	BatchSize     int64
	BlockDuration time.Duration
	ClaimMinIdle  time.Duration
}

func NewSubscriber(client goredis.UniversalClient, config SubscriberConfig, logger *zap.Logger) *Subscriber {
	if config.Stream == "" {
		config.Stream = DefaultStream
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.ClaimMinIdle == 0 {
		config.ClaimMinIdle = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		claimMinIdle:  config.ClaimMinIdle,
		logger:        logger.With(zap.String("stream", config.Stream), zap.String("group", config.Group)),
	}
}

// EnsureGroup creates the consumer group and the stream if either is missing.
func (s *Subscriber) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Start blocks until ctx is canceled.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.EnsureGroup(ctx); err != nil {
		return err
	}

	s.logger.Info("subscriber started", zap.String("consumer", s.consumer))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("subscriber stopping")
			return ctx.Err()
		default:
			if time.Now().After(s.nextClaim) {
				if err := s.reclaimPending(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("failed to reclaim pending messages", zap.Error(err))
				}
				s.nextClaim = time.Now().Add(s.claimMinIdle)
			}
			if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("failed to read messages", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		s.handleMessages(ctx, stream.Messages)
	}
	return nil
}

// reclaimPending takes over messages pending longer than claimMinIdle and
// handles them again.
func (s *Subscriber) reclaimPending(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := s.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.claimMinIdle,
			Start:    start,
			Count:    s.batchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim pending messages: %w", err)
		}

		s.handleMessages(ctx, messages)

		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
}

func (s *Subscriber) handleMessages(ctx context.Context, messages []goredis.XMessage) {
	for _, message := range messages {
		event, err := decodeMessage(message)
		if err != nil {
			s.logger.Error("dropping undecodable message", zap.String("message_id", message.ID), zap.Error(err))
			s.ack(ctx, message.ID)
			continue
		}

		if err := s.handler(ctx, event); err != nil {
			s.logger.Error("failed to process message", zap.String("message_id", message.ID), zap.Error(err))
			continue // stays pending
		}
		s.ack(ctx, message.ID)
	}
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		s.logger.Error("failed to ack message", zap.String("message_id", id), zap.Error(err))
	}
}

func decodeMessage(message goredis.XMessage) (modelevents.TransferCompleted, error) {
	payload, ok := message.Values[eventField].(string)
	if !ok {
		return modelevents.TransferCompleted{}, errors.New("invalid message format")
	}
	return events.Decode([]byte(payload))
}
