package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	cacheredis "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/cache/redis"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/config"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events/redisstream"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/logging"
	modelevents "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

const consumerGroup = "transaction-log-processor"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle := func(ctx context.Context, event modelevents.TransferCompleted) error {
		logger.Info("transfer logged",
			zap.String("transfer_id", event.TransferID.String()),
			zap.Int64("sender_id", event.SenderID),
			zap.Int64("receiver_id", event.ReceiverID),
			zap.String("amount", event.Amount.String()),
			zap.String("status", event.Status),
			zap.Time("timestamp", event.Timestamp),
		)
		return nil
	}

	hostname, _ := os.Hostname()

	if strings.EqualFold(cfg.LogSink, config.SinkKafka) {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.TransferLogTopic,
			GroupID: consumerGroup,
			Handler: handle,
		}, logger.Named("kafka"))
		defer consumer.Close()

		run(logger, consumer.Start(ctx))
		return
	}

	rdb, err := cacheredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := redisstream.NewSubscriber(rdb, redisstream.SubscriberConfig{
		Group:    consumerGroup,
		Consumer: hostname,
		Stream:   cfg.TransferLogTopic,
		Handler:  handle,
	}, logger.Named("redisstream"))

	run(logger, subscriber.Start(ctx))
}

func run(logger *zap.Logger, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("log worker stopped", zap.Error(err))
		return
	}
	logger.Info("log worker stopped")
}
