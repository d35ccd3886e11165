package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// OptimisticStrategy reads without locks and guards the sender update on the
// version it observed. The loser of a race gets ErrVersionConflict.
type OptimisticStrategy struct {
	base
}

func NewOptimisticStrategy(d Deps) *OptimisticStrategy {
	d = d.withDefaults()
	return &OptimisticStrategy{base: newBase(d, Optimistic)}
}

func (s *OptimisticStrategy) Handle(ctx context.Context, req models.TransferRequest) (models.Transfer, error) {
	sender, _, err := loadPair(ctx, s.store.FindAccount, req)
	if err != nil {
		return models.Transfer{}, err
	}
	if err := checkFunds(sender, req.Amount); err != nil {
		return models.Transfer{}, err
	}

	var transfer models.Transfer
	err = s.store.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		updated, err := tx.AdjustBalanceAtVersion(ctx, req.SenderID, req.Amount.Neg(), sender.Version)
		if err != nil {
			return err
		}
		if !updated {
			return ErrVersionConflict
		}
		// The receiver carries no version guard.
		if err := tx.AdjustBalance(ctx, req.ReceiverID, req.Amount); err != nil {
			return err
		}

		transfer = models.NewTransfer(req, models.StatusSuccess, time.Now().UTC())
		return tx.CreateTransfer(ctx, transfer)
	})
	if errors.Is(err, ErrVersionConflict) {
		s.logger.Debug("version conflict", zap.Int64("sender_id", req.SenderID), zap.Int64("version", sender.Version))
		s.recordFailure(ctx, req)
		return models.Transfer{}, err
	}
	if err != nil {
		return models.Transfer{}, wrapStoreErr(err)
	}

	s.refreshCache(ctx, transfer)
	return transfer, nil
}

// recordFailure appends a FAILED record for a transfer that lost the version race.
func (s *OptimisticStrategy) recordFailure(ctx context.Context, req models.TransferRequest) {
	failed := models.NewTransfer(req, models.StatusFailed, time.Now().UTC())
	err := s.store.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		return tx.CreateTransfer(ctx, failed)
	})
	if err != nil {
		s.logger.Warn("failed to record failed transfer", zap.String("transfer_id", failed.ID.String()), zap.Error(err))
	}
}
