package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cacheredis "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/cache/redis"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/config"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events/redisstream"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/handler"
	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/ledger"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/logging"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage/postgres"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode) // runs last, after every cleanup defer
		}
	}()

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

	// Database connection
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Redis connection
	rdb, err := cacheredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	publisher, closePublisher := newPublisher(cfg, rdb, logger)
	defer closePublisher()

	sink := events.NewQueue(publisher, events.QueueConfig{
		Size:    cfg.LogQueueSize,
		Workers: cfg.LogWorkers,
	}, logger.Named("log-sink"))

	store := postgres.NewPostgresLedgerStore(db)
	cache := cacheredis.NewBalanceCache(rdb, cfg.BalanceCacheTTL, cfg.RecentTransfersTTL)

	strategies := ledger.NewStrategySet(ledger.Deps{
		Store:          store,
		Cache:          cache,
		Locker:         cacheredis.NewDistributedLock(rdb),
		Logger:         logger.Named("ledger"),
		LockTTL:        cfg.TransferLockTTL,
		IsolationLevel: storage.ParseIsolationLevel(cfg.IsolationLevel),
	})

	transfers, err := ledger.NewTransferService(cfg.TransactionStrategy, strategies, sink, logger.Named("ledger"))
	if err != nil {
		logger.Fatal("failed to configure transfer service", zap.Error(err))
	}
	balances := ledger.NewBalanceService(store, cache, logger.Named("balance"))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), handler.LoggingMiddleware(logger.Named("http")))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "strategy": transfers.Strategy()})
	})
	handler.NewTransferHandler(transfers, balances, logger.Named("http")).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("server starting",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("strategy", string(transfers.Strategy())),
		zap.String("isolation_level", storage.ParseIsolationLevel(cfg.IsolationLevel).String()),
		zap.String("log_sink", cfg.LogSink),
	)
	if err := runServer(ctx, srv, sink, 10*time.Second, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		exitCode = 1
	}
}

func newPublisher(cfg config.Config, rdb *goredis.Client, logger *zap.Logger) (interfaces.EventPublisher, func()) {
	if strings.EqualFold(cfg.LogSink, config.SinkKafka) {
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.TransferLogTopic)
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Error("failed to close kafka publisher", zap.Error(err))
			}
		}
	}
	return redisstream.NewPublisher(rdb, cfg.TransferLogTopic), func() {}
}
