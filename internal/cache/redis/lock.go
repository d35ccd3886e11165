package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	interfaces "github.com/sheikh-saqib/concurrent-transfers-ledger/internal/interfaces"
)

const releaseTimeout = 3 * time.Second

var (
	ErrEmptyLockKey = errors.New("lock key cannot be empty")
	ErrLockTTL      = errors.New("lock ttl must be greater than 0")
)

// DistributedLock is a set-if-absent lock with TTL-based expiry.
// Release deletes the key unconditionally.
type DistributedLock struct {
	client goredis.UniversalClient
}

func NewDistributedLock(client goredis.UniversalClient) *DistributedLock {
	return &DistributedLock{client: client}
}

// Acquire reports whether key was free and is now held for ttl.
func (l *DistributedLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyLockKey
	}
	if ttl <= 0 {
		return false, ErrLockTTL
	}

	acquired, err := l.client.SetNX(ctx, key, uuid.NewString(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	return acquired, nil
}

// Release deletes key. It runs even when ctx is already canceled.
func (l *DistributedLock) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release lock %q: %w", key, err)
	}
	return nil
}

var _ interfaces.Locker = (*DistributedLock)(nil)
