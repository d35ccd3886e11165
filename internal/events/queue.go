package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	modelevents "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

const (
	DefaultQueueSize      = 1024
	DefaultWorkers        = 2
	DefaultPublishTimeout = 5 * time.Second
)

// Queue is a fire-and-forget log sink. Events are buffered in memory and handed
// to the publisher by background workers. Undelivered events are lost on crash.
type Queue struct {
	publisher interfaces.EventPublisher
	logger    *zap.Logger
	timeout   time.Duration

	mu     sync.RWMutex // guards closed and sends on jobs
	closed bool
	jobs   chan modelevents.TransferCompleted
	wg     sync.WaitGroup
}

type QueueConfig struct {
	Size           int
	Workers        int
	PublishTimeout time.Duration
}

func NewQueue(publisher interfaces.EventPublisher, config QueueConfig, logger *zap.Logger) *Queue {
	if config.Size <= 0 {
		config.Size = DefaultQueueSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultPublishTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		publisher: publisher,
		logger:    logger,
		timeout:   config.PublishTimeout,
		jobs:      make(chan modelevents.TransferCompleted, config.Size),
	}
	for range config.Workers {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Enqueue never blocks. A full or closed queue drops the event.
func (q *Queue) Enqueue(ctx context.Context, event modelevents.TransferCompleted) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("log queue closed, dropping event", zap.String("transfer_id", event.TransferID.String()))
		return
	}

	select {
	case q.jobs <- event: // handed to a worker
	default:
		q.logger.Warn("log queue full, dropping event", zap.String("transfer_id", event.TransferID.String()))
	}
}

// Close stops accepting events and waits for the buffered ones to be published.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock() // exclusive: no Enqueue may send on a closed channel
	if !q.closed {
		q.closed = true
		close(q.jobs) // workers exit once the buffer is empty
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()

	for event := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.publisher.Publish(ctx, event); err != nil {
			q.logger.Error("failed to publish transfer log",
				zap.String("transfer_id", event.TransferID.String()),
				zap.Error(err),
			)
		}
		cancel()
	}
}

var _ interfaces.LogSink = (*Queue)(nil)
