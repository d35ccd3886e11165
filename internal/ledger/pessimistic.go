package ledger

import (
	"context"
	"slices"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// PessimisticStrategy holds exclusive row locks on both accounts for the whole
// transaction. Rows are locked in ascending id order so two transfers over the
// same pair in opposite directions cannot deadlock.
type PessimisticStrategy struct {
	base
}

func NewPessimisticStrategy(d Deps) *PessimisticStrategy {
	d = d.withDefaults()
	return &PessimisticStrategy{base: newBase(d, Pessimistic)}
}

func (s *PessimisticStrategy) Handle(ctx context.Context, req models.TransferRequest) (models.Transfer, error) {
	var transfer models.Transfer
	err := s.store.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		locked, err := lockInOrder(ctx, tx, req.SenderID, req.ReceiverID)
		if err != nil {
			return err
		}
		transfer, err = moveFunds(ctx, tx, locked[req.SenderID], req)
		return err
	})
	if err != nil {
		return models.Transfer{}, wrapStoreErr(err)
	}

	s.refreshCache(ctx, transfer)
	return transfer, nil
}

func lockInOrder(ctx context.Context, tx interfaces.LedgerTx, ids ...int64) (map[int64]models.Account, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	locked := make(map[int64]models.Account, len(ordered))
	for _, id := range ordered {
		account, err := tx.FindAccountForUpdate(ctx, id)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		locked[id] = account
	}
	return locked, nil
}
