package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

const (
	selectAccount          = `SELECT id, balance, version, created_at FROM accounts WHERE id = $1`
	selectAccountForUpdate = selectAccount + ` FOR UPDATE`
)

// querier is the subset of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresLedgerStore struct {
	db *sql.DB // connection pool shared by every transaction
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// CreateAccount inserts an account with version 1.
func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, balance decimal.Decimal) (models.Account, error) {
	const query = `INSERT INTO accounts (balance) VALUES ($1) RETURNING id, balance, version, created_at`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, balance).Scan(&account.ID, &account.Balance, &account.Version, &account.CreatedAt)
	if err != nil {
		return models.Account{}, translate(err) // CHECK violations surface as ErrNegativeBalance
	}
	return account, nil
}

func (p *PostgresLedgerStore) FindAccount(ctx context.Context, id int64) (models.Account, error) {
	return findAccount(ctx, p.db, selectAccount, id)
}

func (p *PostgresLedgerStore) WithTx(ctx context.Context, level storage.IsolationLevel, fn func(ctx context.Context, tx interfaces.LedgerTx) error) (err error) {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: level.SQL()})
	if err != nil {
		return translate(err)
	}

	defer func() {
		if r := recover(); r != nil {
			dbTx.Rollback() // return the connection to the pool before re-panicking
			panic(r)
		}
		if err != nil {
			dbTx.Rollback() // rollback on any error; commit already failed or never ran
		}
	}()

	if err = fn(ctx, &postgresTx{tx: dbTx}); err != nil {
		return err
	}

	if err = dbTx.Commit(); err != nil {
		return translate(err)
	}
	return nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) FindAccount(ctx context.Context, id int64) (models.Account, error) {
	return findAccount(ctx, t.tx, selectAccount, id)
}

func (t *postgresTx) FindAccountForUpdate(ctx context.Context, id int64) (models.Account, error) {
	return findAccount(ctx, t.tx, selectAccountForUpdate, id)
}

func (t *postgresTx) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	const query = `UPDATE accounts SET balance = balance + $2 WHERE id = $1`

	result, err := t.tx.ExecContext(ctx, query, id, delta)
	if err != nil {
		return translate(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (t *postgresTx) AdjustBalanceAtVersion(ctx context.Context, id int64, delta decimal.Decimal, version int64) (bool, error) {
	const query = `UPDATE accounts SET balance = balance + $2, version = version + 1
	WHERE id = $1 AND version = $3`

	result, err := t.tx.ExecContext(ctx, query, id, delta, version)
	if err != nil {
		return false, translate(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows == 1, nil
}

func (t *postgresTx) CreateTransfer(ctx context.Context, transfer models.Transfer) error {
	const query = `INSERT INTO transfers (id, sender_id, receiver_id, amount, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := t.tx.ExecContext(ctx, query,
		transfer.ID, transfer.SenderID, transfer.ReceiverID,
		transfer.Amount, string(transfer.Status), transfer.CreatedAt,
	)
	return translate(err)
}

func findAccount(ctx context.Context, q querier, query string, id int64) (models.Account, error) {
	var account models.Account
	err := q.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.Balance, &account.Version, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, storage.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, translate(err)
	}
	return account, nil
}

// translate tags engine errors the ledger needs to recognise. The driver error stays wrapped.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailure, err)
	case "23514":
		if pqErr.Constraint == "accounts_balance_non_negative" {
			return fmt.Errorf("%w: %w", storage.ErrNegativeBalance, err)
		}
	}
	return err
}

var (
	_ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
	_ interfaces.LedgerTx    = (*postgresTx)(nil)
)
