package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
)

// BalanceService serves balances read-through the cache. The store stays the
// source of truth; a cache failure only costs a store read.
type BalanceService struct {
	store  interfaces.LedgerStore
	cache  interfaces.BalanceCache
	logger *zap.Logger
}

func NewBalanceService(store interfaces.LedgerStore, cache interfaces.BalanceCache, logger *zap.Logger) *BalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{store: store, cache: cache, logger: logger}
}

func (s *BalanceService) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	balance, ok, err := s.cache.Balance(ctx, accountID)
	if err != nil {
		s.logger.Warn("balance cache read failed", zap.Int64("account_id", accountID), zap.Error(err))
	} else if ok {
		return balance, nil
	}

	account, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, wrapStoreErr(err)
	}

	if err := s.cache.SetBalance(ctx, accountID, account.Balance); err != nil {
		s.logger.Warn("balance cache write failed", zap.Int64("account_id", accountID), zap.Error(err))
	}
	return account.Balance, nil
}

// RecentTransfers returns the sender-side recent transfers kept in the cache, newest first.
func (s *BalanceService) RecentTransfers(ctx context.Context, accountID int64) ([]models.Transfer, error) {
	transfers, err := s.cache.RecentTransfers(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return transfers, nil
}
