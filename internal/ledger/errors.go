package ledger

import (
	"errors"
	"fmt"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrLockBusy means another transfer from the same sender holds the lock.
	ErrLockBusy = errors.New("transfer in progress, please try again")
	// ErrVersionConflict means the sender changed between read and update.
	ErrVersionConflict = errors.New("sender was modified concurrently")
	ErrStorage         = errors.New("storage failure")
	ErrConfiguration   = errors.New("invalid transfer configuration")
)

// Kind classifies a transfer error.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserNotFound
	KindInsufficientFunds
	KindLockBusy
	KindVersionConflict
	KindStorage
	KindConfiguration
)

// RetryAdvice tells a caller what to do with a failed transfer.
type RetryAdvice int

const (
	DoNotRetry RetryAdvice = iota
	RetryNow
	RetryWithBackoff
)

// KindOf returns the kind of err, or KindUnknown for nil and foreign errors.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrLockBusy):
		return KindLockBusy
	case errors.Is(err, ErrVersionConflict):
		return KindVersionConflict
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

func (k Kind) Retry() RetryAdvice {
	switch k {
	case KindLockBusy, KindVersionConflict:
		return RetryNow
	case KindStorage, KindUnknown:
		return RetryWithBackoff
	default:
		return DoNotRetry
	}
}

func (k Kind) String() string {
	switch k {
	case KindUserNotFound:
		return "user_not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindLockBusy:
		return "lock_busy"
	case KindVersionConflict:
		return "version_conflict"
	case KindStorage:
		return "storage_failure"
	case KindConfiguration:
		return "configuration_error"
	default:
		return "unknown"
	}
}

// wrapStoreErr leaves classified errors alone, maps a missing account to
// ErrUserNotFound and tags everything else as ErrStorage keeping the cause.
func wrapStoreErr(err error) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	if errors.Is(err, storage.ErrAccountNotFound) {
		return fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
