package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
)

// TransferService runs transfers through the configured strategy and emits an
// audit event for each committed one.
type TransferService struct {
	name     StrategyName
	strategy Strategy
	sink     interfaces.LogSink
	logger   *zap.Logger
}

// NewTransferService resolves strategyName once. An empty or unknown name fails
// with ErrConfiguration before any account is touched.
func NewTransferService(strategyName string, strategies StrategySet, sink interfaces.LogSink, logger *zap.Logger) (*TransferService, error) {
	name, strategy, err := strategies.Select(strategyName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = discardSink{}
	}

	return &TransferService{
		name:     name,
		strategy: strategy,
		sink:     sink,
		logger:   logger,
	}, nil
}

func (s *TransferService) Strategy() StrategyName {
	return s.name
}

// Transfer moves funds and returns the committed record. Logging the event is
// fire-and-forget and never affects the result.
func (s *TransferService) Transfer(ctx context.Context, req models.TransferRequest) (models.Transfer, error) {
	transfer, err := s.strategy.Handle(ctx, req)
	if err != nil {
		s.logger.Debug("transfer failed",
			zap.String("strategy", string(s.name)),
			zap.Int64("sender_id", req.SenderID),
			zap.Int64("receiver_id", req.ReceiverID),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err),
		)
		return models.Transfer{}, err
	}

	s.logger.Debug("transfer committed",
		zap.String("strategy", string(s.name)),
		zap.String("transfer_id", transfer.ID.String()),
	)
	s.sink.Enqueue(ctx, events.TransferCompleted{
		TransferID: transfer.ID,
		SenderID:   transfer.SenderID,
		ReceiverID: transfer.ReceiverID,
		Amount:     transfer.Amount,
		Status:     string(transfer.Status),
		Timestamp:  time.Now().UTC(),
	})
	return transfer, nil
}

type discardSink struct{}

func (discardSink) Enqueue(context.Context, events.TransferCompleted) {}
