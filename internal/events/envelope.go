package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	modelevents "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

// Envelope is the wire format shared by every log transport.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Handler processes one decoded transfer log event.
type Handler func(ctx context.Context, event modelevents.TransferCompleted) error

func Encode(event modelevents.TransferCompleted) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	payload, err := json.Marshal(Envelope{
		Type:      modelevents.TransferCompletedType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

func Decode(payload []byte) (modelevents.TransferCompleted, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return modelevents.TransferCompleted{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if envelope.Type != modelevents.TransferCompletedType {
		return modelevents.TransferCompleted{}, fmt.Errorf("unexpected event type %q", envelope.Type)
	}

	var event modelevents.TransferCompleted
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return modelevents.TransferCompleted{}, fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return event, nil
}
