package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
//
// It emulates the parts of a relational engine the transfer strategies depend on:
// exclusive row locks taken by FindAccountForUpdate and held until the transaction
// ends, mutually exclusive Serializable transactions, rollback of every write made
// inside a failed transaction, and the balance >= 0 constraint. Plain updates do
// not take implicit row locks, so there is no deadlock detection to emulate.
type MemoryLedgerStore struct {
	mu        sync.Mutex               // protects accounts, transfers, rows and nextID
	serial    sync.RWMutex             // write-held by Serializable transactions, read-held by the rest
	rows      map[int64]*sync.Mutex    // one row lock per existing account
	accounts  map[int64]models.Account // accounts by id
	transfers []models.Transfer        // append-only transfer records, oldest first
	nextID    int64                    // last issued account id
}

// NewMemoryLedgerStore creates and returns an empty MemoryLedgerStore.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		rows:     make(map[int64]*sync.Mutex),
		accounts: make(map[int64]models.Account),
	}
}

// CreateAccount stores a new account with version 1.
func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, balance decimal.Decimal) (models.Account, error) {
	if balance.IsNegative() {
		return models.Account{}, storage.ErrNegativeBalance
	}

	m.mu.Lock()         // lock to issue the id and insert atomically
	defer m.mu.Unlock() // unlock automatically when function exits

	m.nextID++
	account := models.Account{
		ID:        m.nextID,
		Balance:   balance,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
	m.accounts[account.ID] = account
	return account, nil
}

func (m *MemoryLedgerStore) FindAccount(ctx context.Context, id int64) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrAccountNotFound
	}
	return account, nil
}

// Transfers returns a copy of every committed transfer record, oldest first.
func (m *MemoryLedgerStore) Transfers() []models.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.Transfer, len(m.transfers))
	copy(copied, m.transfers)
	return copied // return the copy so callers can't modify internal state
}

func (m *MemoryLedgerStore) WithTx(ctx context.Context, level storage.IsolationLevel, fn func(ctx context.Context, tx interfaces.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if level == storage.Serializable {
		m.serial.Lock()
		defer m.serial.Unlock()
	} else {
		m.serial.RLock()
		defer m.serial.RUnlock()
	}

	tx := &memoryTx{store: m, held: make(map[int64]*sync.Mutex)}
	defer tx.releaseRows() // row locks are held until the transaction ends either way

	defer func() {
		if p := recover(); p != nil {
			tx.rollback() // undo partial writes before re-panicking
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// rowLock returns the lock of an existing account. Unknown ids get no entry,
// so rows never outgrows accounts.
func (m *MemoryLedgerStore) rowLock(id int64) (*sync.Mutex, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return nil, false
	}
	if _, exists := m.rows[id]; !exists {
		m.rows[id] = &sync.Mutex{} // first FOR UPDATE on this account
	}
	return m.rows[id], true
}

// adjust applies delta to the account, optionally guarded by version. It returns
// false without error when the guard does not match.
func (m *MemoryLedgerStore) adjust(id int64, delta decimal.Decimal, version *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		if version != nil {
			return false, nil
		}
		return false, storage.ErrAccountNotFound
	}
	if version != nil && account.Version != *version {
		return false, nil
	}

	next := account.Balance.Add(delta)
	if next.IsNegative() { // mirrors the balance >= 0 CHECK constraint
		return false, storage.ErrNegativeBalance
	}
	account.Balance = next
	if version != nil {
		account.Version++
	}
	m.accounts[id] = account
	return true, nil
}

type memoryTx struct {
	store *MemoryLedgerStore
	held  map[int64]*sync.Mutex
	undo  []func()
}

func (t *memoryTx) FindAccount(ctx context.Context, id int64) (models.Account, error) {
	return t.store.FindAccount(ctx, id)
}

func (t *memoryTx) FindAccountForUpdate(ctx context.Context, id int64) (models.Account, error) {
	if _, ok := t.held[id]; !ok {
		row, exists := t.store.rowLock(id)
		if !exists {
			return models.Account{}, storage.ErrAccountNotFound
		}
		row.Lock() // blocks until the holding transaction ends
		t.held[id] = row
	}
	return t.store.FindAccount(ctx, id)
}

func (t *memoryTx) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	if _, err := t.store.adjust(id, delta, nil); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.revert(id, delta, false) })
	return nil
}

func (t *memoryTx) AdjustBalanceAtVersion(ctx context.Context, id int64, delta decimal.Decimal, version int64) (bool, error) {
	updated, err := t.store.adjust(id, delta, &version)
	if err != nil || !updated {
		return false, err
	}
	t.undo = append(t.undo, func() { t.revert(id, delta, true) })
	return true, nil
}

func (t *memoryTx) CreateTransfer(ctx context.Context, transfer models.Transfer) error {
	m := t.store
	m.mu.Lock()
	m.transfers = append(m.transfers, transfer)
	m.mu.Unlock()

	t.undo = append(t.undo, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, existing := range m.transfers {
			if existing.ID == transfer.ID {
				m.transfers = append(m.transfers[:i], m.transfers[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (t *memoryTx) revert(id int64, delta decimal.Decimal, versioned bool) {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.accounts[id]
	account.Balance = account.Balance.Sub(delta)
	if versioned {
		account.Version--
	}
	m.accounts[id] = account
}

// rollback undoes writes newest first.
func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memoryTx) releaseRows() {
	for id, row := range t.held {
		row.Unlock()
		delete(t.held, id)
	}
}

var (
	_ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
	_ interfaces.LedgerTx    = (*memoryTx)(nil)
)
