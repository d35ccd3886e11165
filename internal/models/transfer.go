package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// TransferRequest is an intent to move Amount from SenderID to ReceiverID.
// It is validated before it reaches a strategy.
type TransferRequest struct {
	SenderID   int64           `json:"senderId"`
	ReceiverID int64           `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
}

// Transfer is the append-only record of a transfer that reached the mutation phase.
type Transfer struct {
	ID         uuid.UUID       `json:"id"`
	SenderID   int64           `json:"senderId"`
	ReceiverID int64           `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewTransfer builds a record for req with a fresh id.
func NewTransfer(req TransferRequest, status Status, at time.Time) Transfer {
	return Transfer{
		ID:         uuid.New(),
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Status:     status,
		CreatedAt:  at,
	}
}
