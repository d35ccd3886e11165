package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// LedgerStore is the durable system of record for accounts and transfers.
type LedgerStore interface {
	// FindAccount reads an account outside of any explicit transaction.
	FindAccount(ctx context.Context, id int64) (models.Account, error)
	// WithTx runs fn atomically at the requested isolation level. It commits when
	// fn returns nil and otherwise rolls back and returns fn's error unchanged.
	WithTx(ctx context.Context, level storage.IsolationLevel, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the set of operations available inside a storage transaction.
type LedgerTx interface {
	FindAccount(ctx context.Context, id int64) (models.Account, error)
	// FindAccountForUpdate reads the account and holds an exclusive row lock until the transaction ends.
	FindAccountForUpdate(ctx context.Context, id int64) (models.Account, error)
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error
	// AdjustBalanceAtVersion applies delta and bumps the version only if the stored
	// version still equals version. It reports whether a row was updated.
	AdjustBalanceAtVersion(ctx context.Context, id int64, delta decimal.Decimal, version int64) (bool, error)
	CreateTransfer(ctx context.Context, t models.Transfer) error
}
