package redisstream

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events"
	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	modelevents "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

const (
	DefaultStream = "transaction-logs"
	// MaxStreamLen approximately caps the stream so an idle worker cannot grow it unbounded.
	MaxStreamLen = 100000

	eventField = "event"
)

type Publisher struct {
	client goredis.UniversalClient
	stream string
}

func NewPublisher(client goredis.UniversalClient, stream string) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) Publish(ctx context.Context, event modelevents.TransferCompleted) error {
	payload, err := events.Encode(event)
	if err != nil {
		return err
	}

	args := &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: MaxStreamLen,
		Approx: true,
		Values: map[string]any{
			eventField: payload,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
