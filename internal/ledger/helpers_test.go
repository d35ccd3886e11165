package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cacheredis "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/cache/redis"
	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models/events"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage/memory"
)

type fixture struct {
	store *memory.MemoryLedgerStore
	mr    *miniredis.Miniredis
	cache *cacheredis.BalanceCache
	lock  *cacheredis.DistributedLock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &fixture{
		store: memory.NewMemoryLedgerStore(),
		mr:    mr,
		cache: cacheredis.NewBalanceCache(client, time.Minute, time.Hour),
		lock:  cacheredis.NewDistributedLock(client),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Store:  f.store,
		Cache:  f.cache,
		Locker: f.lock,
		Logger: zap.NewNop(),
	}
}

func (f *fixture) account(t *testing.T, balance int64) models.Account {
	t.Helper()
	account, err := f.store.CreateAccount(context.Background(), decimal.NewFromInt(balance))
	require.NoError(t, err)
	return account
}

func (f *fixture) storedBalance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	account, err := f.store.FindAccount(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func (f *fixture) cachedBalance(t *testing.T, id int64) (decimal.Decimal, bool) {
	t.Helper()
	balance, ok, err := f.cache.Balance(context.Background(), id)
	require.NoError(t, err)
	return balance, ok
}

func transferOf(sender, receiver, amount int64) models.TransferRequest {
	return models.TransferRequest{
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     decimal.NewFromInt(amount),
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// barrierStore holds every sender read until parties reads have happened, so
// concurrent optimistic transfers all observe the same version.
type barrierStore struct {
	interfaces.LedgerStore
	senderID int64
	reads    sync.WaitGroup
}

func newBarrierStore(inner interfaces.LedgerStore, senderID int64, parties int) *barrierStore {
	b := &barrierStore{LedgerStore: inner, senderID: senderID}
	b.reads.Add(parties)
	return b
}

func (b *barrierStore) FindAccount(ctx context.Context, id int64) (models.Account, error) {
	account, err := b.LedgerStore.FindAccount(ctx, id)
	if id == b.senderID {
		b.reads.Done()
		b.reads.Wait()
	}
	return account, err
}

// failingStore fails every transaction before running it.
type failingStore struct {
	interfaces.LedgerStore
	err error
}

func (f failingStore) WithTx(ctx context.Context, level storage.IsolationLevel, fn func(ctx context.Context, tx interfaces.LedgerTx) error) error {
	return f.err
}

// countingStore counts store accesses and records requested isolation levels.
type countingStore struct {
	interfaces.LedgerStore
	finds  atomic.Int32
	txs    atomic.Int32
	mu     sync.Mutex
	levels []storage.IsolationLevel
}

func (c *countingStore) FindAccount(ctx context.Context, id int64) (models.Account, error) {
	c.finds.Add(1)
	return c.LedgerStore.FindAccount(ctx, id)
}

func (c *countingStore) WithTx(ctx context.Context, level storage.IsolationLevel, fn func(ctx context.Context, tx interfaces.LedgerTx) error) error {
	c.txs.Add(1)
	c.mu.Lock()
	c.levels = append(c.levels, level)
	c.mu.Unlock()
	return c.LedgerStore.WithTx(ctx, level, fn)
}

// spyLocker records the ttl of each acquisition.
type spyLocker struct {
	interfaces.Locker
	mu   sync.Mutex
	ttls []time.Duration
}

func (s *spyLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	s.ttls = append(s.ttls, ttl)
	s.mu.Unlock()
	return s.Locker.Acquire(ctx, key, ttl)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.TransferCompleted
}

func (r *recordingSink) Enqueue(ctx context.Context, event events.TransferCompleted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) Events() []events.TransferCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TransferCompleted(nil), r.events...)
}
