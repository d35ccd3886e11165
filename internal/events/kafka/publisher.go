package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/events"
	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	modelevents "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

const DefaultTopic = "transaction-logs"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes transfer log events to a Kafka topic keyed by transfer id,
// so every event of one transfer lands on the same partition.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event modelevents.TransferCompleted) error {
	data, err := events.Encode(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TransferID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(modelevents.TransferCompletedType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
