package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// DefaultLockTTL bounds how long an atomic transfer may hold the sender lock.
const DefaultLockTTL = 60 * time.Second

// Strategy executes one transfer end to end under a single concurrency discipline.
// No strategy retries internally.
type Strategy interface {
	Handle(ctx context.Context, req models.TransferRequest) (models.Transfer, error)
}

// Deps are the collaborators shared by every strategy.
type Deps struct {
	Store          interfaces.LedgerStore
	Cache          interfaces.BalanceCache
	Locker         interfaces.Locker
	Logger         *zap.Logger
	LockTTL        time.Duration
	IsolationLevel storage.IsolationLevel
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.LockTTL <= 0 {
		d.LockTTL = DefaultLockTTL
	}
	return d
}

// base carries what every strategy does around its own discipline: loading,
// validating and mutating the pair, then refreshing the cache after commit.
type base struct {
	store  interfaces.LedgerStore
	cache  interfaces.BalanceCache
	logger *zap.Logger
}

func newBase(d Deps, name StrategyName) base {
	return base{
		store:  d.Store,
		cache:  d.Cache,
		logger: d.Logger.With(zap.String("strategy", string(name))),
	}
}

// execute loads both accounts, validates and moves funds inside one storage
// transaction at level. It takes no lock of its own.
func (b *base) execute(ctx context.Context, level storage.IsolationLevel, req models.TransferRequest) (models.Transfer, error) {
	var transfer models.Transfer
	err := b.store.WithTx(ctx, level, func(ctx context.Context, tx interfaces.LedgerTx) error {
		sender, _, err := loadPair(ctx, tx.FindAccount, req)
		if err != nil {
			return err
		}
		transfer, err = moveFunds(ctx, tx, sender, req)
		return err
	})
	if err != nil {
		return models.Transfer{}, wrapStoreErr(err)
	}
	return transfer, nil
}

// refreshCache writes the committed deltas through to the cache. A failed
// increment invalidates the key so the next read goes to the store.
func (b *base) refreshCache(ctx context.Context, transfer models.Transfer) {
	b.applyDelta(ctx, transfer.SenderID, transfer.Amount.Neg())
	b.applyDelta(ctx, transfer.ReceiverID, transfer.Amount)

	if err := b.cache.PushRecent(ctx, transfer.SenderID, transfer); err != nil {
		b.logger.Warn("failed to cache recent transfer",
			zap.String("transfer_id", transfer.ID.String()), zap.Error(err))
	}
}

func (b *base) applyDelta(ctx context.Context, accountID int64, delta decimal.Decimal) {
	err := b.cache.IncrementBalance(ctx, accountID, delta)
	if err == nil {
		return
	}
	b.logger.Warn("failed to increment cached balance", zap.Int64("account_id", accountID), zap.Error(err))
	if err := b.cache.Invalidate(ctx, accountID); err != nil {
		b.logger.Error("failed to invalidate cached balance", zap.Int64("account_id", accountID), zap.Error(err))
	}
}

type findFunc func(ctx context.Context, id int64) (models.Account, error)

func loadPair(ctx context.Context, find findFunc, req models.TransferRequest) (sender, receiver models.Account, err error) {
	sender, err = find(ctx, req.SenderID)
	if err != nil {
		return sender, receiver, wrapStoreErr(err)
	}
	receiver, err = find(ctx, req.ReceiverID)
	if err != nil {
		return sender, receiver, wrapStoreErr(err)
	}
	return sender, receiver, nil
}

func checkFunds(sender models.Account, amount decimal.Decimal) error {
	if sender.Balance.LessThan(amount) {
		return fmt.Errorf("%w: account %d has %s, needs %s", ErrInsufficientFunds, sender.ID, sender.Balance, amount)
	}
	return nil
}

// moveFunds validates the sender snapshot, applies both legs and appends the SUCCESS record.
func moveFunds(ctx context.Context, tx interfaces.LedgerTx, sender models.Account, req models.TransferRequest) (models.Transfer, error) {
	if err := checkFunds(sender, req.Amount); err != nil {
		return models.Transfer{}, err
	}
	if err := tx.AdjustBalance(ctx, req.SenderID, req.Amount.Neg()); err != nil {
		return models.Transfer{}, err
	}
	if err := tx.AdjustBalance(ctx, req.ReceiverID, req.Amount); err != nil {
		return models.Transfer{}, err
	}

	transfer := models.NewTransfer(req, models.StatusSuccess, time.Now().UTC())
	if err := tx.CreateTransfer(ctx, transfer); err != nil {
		return models.Transfer{}, err
	}
	return transfer, nil
}
