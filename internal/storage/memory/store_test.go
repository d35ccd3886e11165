package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

func seed(t *testing.T, m *MemoryLedgerStore, balance int64) models.Account {
	t.Helper()
	account, err := m.CreateAccount(context.Background(), decimal.NewFromInt(balance))
	require.NoError(t, err)
	return account
}

func TestCreateAndFindAccount(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()

	a := seed(t, m, 1000)
	b := seed(t, m, 0)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(1), a.Version)

	got, err := m.FindAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))

	_, err = m.FindAccount(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	_, err = m.CreateAccount(ctx, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, storage.ErrNegativeBalance)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()
	a := seed(t, m, 1000)
	b := seed(t, m, 100)
	boom := errors.New("boom")

	err := m.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		require.NoError(t, tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(-300)))
		ok, err := tx.AdjustBalanceAtVersion(ctx, b.ID, decimal.NewFromInt(300), 1)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.CreateTransfer(ctx, models.NewTransfer(models.TransferRequest{
			SenderID: a.ID, ReceiverID: b.ID, Amount: decimal.NewFromInt(300),
		}, models.StatusSuccess, time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	gotA, _ := m.FindAccount(ctx, a.ID)
	gotB, _ := m.FindAccount(ctx, b.ID)
	assert.True(t, gotA.Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, gotB.Balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(1), gotB.Version)
	assert.Empty(t, m.Transfers())
}

func TestAdjustBalanceAtVersion(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()
	a := seed(t, m, 1000)

	err := m.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		ok, err := tx.AdjustBalanceAtVersion(ctx, a.ID, decimal.NewFromInt(-200), 1)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.AdjustBalanceAtVersion(ctx, a.ID, decimal.NewFromInt(-300), 1)
		require.NoError(t, err)
		assert.False(t, ok, "stale version must not match")
		return nil
	})
	require.NoError(t, err)

	got, _ := m.FindAccount(ctx, a.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, int64(2), got.Version)
}

func TestAdjustBalanceRejectsNegative(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()
	a := seed(t, m, 100)

	err := m.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		return tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(-101))
	})
	assert.ErrorIs(t, err, storage.ErrNegativeBalance)

	err = m.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
		return tx.AdjustBalance(ctx, 42, decimal.NewFromInt(1))
	})
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestFindAccountForUpdateSerializesHolders(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()
	a := seed(t, m, 0)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
				if _, err := tx.FindAccountForUpdate(ctx, a.ID); err != nil {
					return err
				}
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxInside) {
					atomic.StoreInt32(&maxInside, n)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(1))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	got, _ := m.FindAccount(ctx, a.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(8)))
}

func TestWithTxCanceledContext(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.WithTx(ctx, storage.Serializable, func(ctx context.Context, tx interfaces.LedgerTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()
	a := seed(t, m, 1000)

	assert.Panics(t, func() {
		_ = m.WithTx(ctx, storage.Serializable, func(ctx context.Context, tx interfaces.LedgerTx) error {
			_, err := tx.FindAccountForUpdate(ctx, a.ID)
			require.NoError(t, err)
			require.NoError(t, tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(-400)))
			panic("boom")
		})
	})

	got, _ := m.FindAccount(ctx, a.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))

	done := make(chan error, 1)
	go func() {
		done <- m.WithTx(ctx, storage.Serializable, func(ctx context.Context, tx interfaces.LedgerTx) error {
			_, err := tx.FindAccountForUpdate(ctx, a.ID)
			return err
		})
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("row and serial locks leaked by the panicking transaction")
	}
}

func TestFindAccountForUpdateUnknownAccount(t *testing.T) {
	m := NewMemoryLedgerStore()
	ctx := context.Background()

	for id := int64(100); id < 110; id++ {
		err := m.WithTx(ctx, storage.ReadCommitted, func(ctx context.Context, tx interfaces.LedgerTx) error {
			_, err := tx.FindAccountForUpdate(ctx, id)
			return err
		})
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.rows, "unknown ids must not allocate row locks")
}
