package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
)

const (
	balanceKeyPrefix = "balance:user:"
	recentKeyPrefix  = "tx:user:"

	// RecentLimit caps the per-account recent transfer list.
	RecentLimit = 10
)

// maxIncrementAttempts bounds the WATCH retries of one increment under contention.
const maxIncrementAttempts = 10

// ErrIncrementContended means the key kept changing while an increment was retried.
var ErrIncrementContended = errors.New("balance increment contended")

func BalanceKey(accountID int64) string {
	return balanceKeyPrefix + strconv.FormatInt(accountID, 10)
}

func RecentKey(accountID int64) string {
	return recentKeyPrefix + strconv.FormatInt(accountID, 10)
}

// BalanceCache mirrors account balances and recent transfers in Redis.
type BalanceCache struct {
	client     goredis.UniversalClient
	balanceTTL time.Duration
	recentTTL  time.Duration
}

func NewBalanceCache(client goredis.UniversalClient, balanceTTL, recentTTL time.Duration) *BalanceCache {
	return &BalanceCache{
		client:     client,
		balanceTTL: balanceTTL,
		recentTTL:  recentTTL,
	}
}

func (c *BalanceCache) Balance(ctx context.Context, accountID int64) (decimal.Decimal, bool, error) {
	key := BalanceKey(accountID)
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	balance, err := decimal.NewFromString(data)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cached balance for %s: %w", key, err)
	}
	return balance, true, nil
}

func (c *BalanceCache) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	key := BalanceKey(accountID)
	if err := c.client.Set(ctx, key, balance.String(), c.balanceTTL).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// IncrementBalance adds delta with exact decimal arithmetic. The key is watched
// so a concurrent writer forces a retry instead of a lost update. A missing key
// stays missing: counting from zero would cache a wrong balance.
func (c *BalanceCache) IncrementBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	key := BalanceKey(accountID)

	increment := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		current, err := decimal.NewFromString(data)
		if err != nil {
			return fmt.Errorf("invalid cached balance for %s: %w", key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, current.Add(delta).String(), c.balanceTTL)
			return nil
		})
		return err
	}

	for range maxIncrementAttempts {
		err := c.client.Watch(ctx, increment, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue // key changed between GET and EXEC
		}
		if err != nil {
			return fmt.Errorf("failed to increment %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("failed to increment %s: %w", key, ErrIncrementContended)
}

func (c *BalanceCache) Invalidate(ctx context.Context, accountID int64) error {
	key := BalanceKey(accountID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PushRecent prepends t to the account's recent list and trims it to RecentLimit.
func (c *BalanceCache) PushRecent(ctx context.Context, accountID int64, t models.Transfer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer %s: %w", t.ID, err)
	}

	key := RecentKey(accountID)
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, RecentLimit-1)
	pipe.PExpire(ctx, key, c.recentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

// RecentTransfers returns the cached recent transfers, newest first.
func (c *BalanceCache) RecentTransfers(ctx context.Context, accountID int64) ([]models.Transfer, error) {
	key := RecentKey(accountID)
	items, err := c.client.LRange(ctx, key, 0, RecentLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	transfers := make([]models.Transfer, 0, len(items))
	for _, item := range items {
		var t models.Transfer
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("invalid cached transfer in %s: %w", key, err)
		}
		transfers = append(transfers, t)
	}
	return transfers, nil
}

var _ interfaces.BalanceCache = (*BalanceCache)(nil)
