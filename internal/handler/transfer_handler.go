package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/ledger"
	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/models"
)

// TransferExecutor runs a validated transfer.
type TransferExecutor interface {
	Transfer(ctx context.Context, req models.TransferRequest) (models.Transfer, error)
}

// BalanceReader serves the read side.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	RecentTransfers(ctx context.Context, accountID int64) ([]models.Transfer, error)
}

type TransferHandler struct {
	transfers TransferExecutor
	balances  BalanceReader
	logger    *zap.Logger
}

type CreateTransferRequest struct {
	SenderID   int64           `json:"senderId" validate:"required,gt=0"`
	ReceiverID int64           `json:"receiverId" validate:"required,gt=0,nefield=SenderID"`
	Amount     decimal.Decimal `json:"amount"`
}

type BalanceResponse struct {
	UserID  int64           `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

type RecentTransfersResponse struct {
	Transfers []models.Transfer `json:"transfers"`
}

func NewTransferHandler(transfers TransferExecutor, balances BalanceReader, logger *zap.Logger) *TransferHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferHandler{transfers: transfers, balances: balances, logger: logger}
}

// Register mounts the transfer and balance routes on r.
func (h *TransferHandler) Register(r gin.IRouter) {
	r.POST("/transactions/transfer", h.CreateTransfer)
	r.GET("/users/:id/balance", h.GetBalance)
	r.GET("/users/:id/transfers/recent", h.RecentTransfers)
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := ValidateRequest(req); validationErrors != nil {
		RespondWithValidationError(c, validationErrors)
		return
	}
	// Amounts are stored with two decimal places.
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		RespondWithValidationError(c, []ValidationError{{
			Field:   "Amount",
			Message: "Value must be a positive amount with at most 2 decimal places",
			Type:    "amount",
		}})
		return
	}

	transfer, err := h.transfers.Transfer(c.Request.Context(), models.TransferRequest{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
	})
	if err != nil {
		h.respondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transfer)
}

func (h *TransferHandler) GetBalance(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	balance, err := h.balances.GetBalance(c.Request.Context(), id)
	if err != nil {
		h.respondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{UserID: id, Balance: balance})
}

func (h *TransferHandler) RecentTransfers(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	transfers, err := h.balances.RecentTransfers(c.Request.Context(), id)
	if err != nil {
		h.respondWithLedgerError(c, err)
		return
	}
	if transfers == nil {
		transfers = []models.Transfer{}
	}

	c.JSON(http.StatusOK, RecentTransfersResponse{Transfers: transfers})
}

func (h *TransferHandler) respondWithLedgerError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", ledger.KindOf(err).String()),
			zap.Error(err),
		)
	}
	RespondWithError(c, status, message)
}

func accountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondWithError(c, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}
