package interfaces

import (
	"context"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

// EventPublisher delivers a transfer log event to a transport.
type EventPublisher interface {
	Publish(ctx context.Context, event events.TransferCompleted) error
}

// LogSink accepts audit events fire-and-forget.
type LogSink interface {
	Enqueue(ctx context.Context, event events.TransferCompleted)
}
