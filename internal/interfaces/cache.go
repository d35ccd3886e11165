package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
)

// BalanceCache is a volatile, never authoritative mirror of account balances.
type BalanceCache interface {
	// Balance returns the cached balance and whether it was present.
	Balance(ctx context.Context, accountID int64) (decimal.Decimal, bool, error)
	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	// IncrementBalance applies delta to a cached balance and resets its TTL.
	// A balance that is not cached stays uncached.
	IncrementBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
	Invalidate(ctx context.Context, accountID int64) error
	PushRecent(ctx context.Context, accountID int64, t models.Transfer) error
	RecentTransfers(ctx context.Context, accountID int64) ([]models.Transfer, error)
}

// Locker is a cooperative mutual-exclusion primitive keyed by string.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
