package ledger

import (
	"context"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// IsolationStrategy runs the atomic mutation without a lock and relies on the
// storage engine's isolation level. Under Serializable the engine may abort the
// transaction; that surfaces as ErrStorage for the caller to retry.
type IsolationStrategy struct {
	base
	level storage.IsolationLevel
}

func NewIsolationStrategy(d Deps) *IsolationStrategy {
	d = d.withDefaults()
	return &IsolationStrategy{
		base:  newBase(d, Isolation),
		level: d.IsolationLevel,
	}
}

func (s *IsolationStrategy) Level() storage.IsolationLevel {
	return s.level
}

func (s *IsolationStrategy) Handle(ctx context.Context, req models.TransferRequest) (models.Transfer, error) {
	transfer, err := s.execute(ctx, s.level, req)
	if err != nil {
		return models.Transfer{}, err
	}
	s.refreshCache(ctx, transfer)
	return transfer, nil
}
