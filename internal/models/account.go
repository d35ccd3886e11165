package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a balance-holding ledger account. Version is the optimistic
// concurrency token and only moves on guarded updates.
type Account struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
}
