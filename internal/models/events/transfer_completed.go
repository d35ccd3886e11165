package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const TransferCompletedType = "transfer.completed"

// TransferCompleted is the audit event emitted after a committed transfer.
type TransferCompleted struct {
	TransferID uuid.UUID       `json:"transferId"`
	SenderID   int64           `json:"senderId"`
	ReceiverID int64           `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
}
