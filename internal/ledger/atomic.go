package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// AtomicStrategy serialises transfers per sender with a distributed lock and
// runs the mutation in one ReadCommitted transaction. A busy lock fails fast.
type AtomicStrategy struct {
	base
	locker  interfaces.Locker
	lockTTL time.Duration
}

func NewAtomicStrategy(d Deps) *AtomicStrategy {
	d = d.withDefaults()
	return &AtomicStrategy{
		base:    newBase(d, Atomic),
		locker:  d.Locker,
		lockTTL: d.LockTTL,
	}
}

func (s *AtomicStrategy) Handle(ctx context.Context, req models.TransferRequest) (models.Transfer, error) {
	var transfer models.Transfer
	err := withLock(ctx, s.locker, LockKey(req.SenderID), s.lockTTL, s.logger, func(ctx context.Context) error {
		var err error
		transfer, err = s.execute(ctx, storage.ReadCommitted, req)
		if err != nil {
			return err
		}
		s.refreshCache(ctx, transfer)
		return nil
	})
	if err != nil {
		return models.Transfer{}, err
	}
	return transfer, nil
}

// LockKey is the distributed lock key guarding transfers out of accountID.
func LockKey(accountID int64) string {
	return fmt.Sprintf("lock:user:%d", accountID)
}

// withLock runs fn while holding key and releases it on every exit path.
func withLock(ctx context.Context, locker interfaces.Locker, key string, ttl time.Duration, logger *zap.Logger, fn func(ctx context.Context) error) error {
	acquired, err := locker.Acquire(ctx, key, ttl)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !acquired {
		logger.Debug("lock already held", zap.String("lock_key", key))
		return ErrLockBusy
	}

	defer func() {
		if err := locker.Release(ctx, key); err != nil {
			logger.Error("failed to release lock", zap.String("lock_key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}
