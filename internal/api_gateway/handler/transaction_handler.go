package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/ledger"
)

// TransactionHandler handles HTTP requests for ledger transaction operations
type TransactionHandler struct {
	ledgerService *ledger.Service
	transactions  transaction.Repository
	accounts      account.Repository
	logger        *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, ledgerService *ledger.Service, transactions transaction.Repository, accounts account.Repository) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
		transactions:  transactions,
		accounts:      accounts,
		logger:        logger,
	}
}

// Create records a new user transaction in the ledger
func (h *TransactionHandler) Create(c *gin.Context) {
	organizationID, ok := organizationID(c)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	txn, err := h.ledgerService.CreateTransaction(c.Request.Context(), ledger.CreateParams{
		OrganizationID: organizationID,
		AccountID:      accountID,
		Amount:         amount,
		Currency:       req.Currency,
		Date:           date,
		Name:           req.Name,
		Description:    req.Description,
		Note:           req.Note,
		Status:         transaction.Status(req.Status),
		Source:         transaction.SourceManual,
		Recurring:      req.Recurring,
	})
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// Update applies a partial update to a transaction
func (h *TransactionHandler) Update(c *gin.Context) {
	organizationID, ok := organizationID(c)
	if !ok {
		return
	}
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := ledger.UpdateParams{
		OrganizationID: organizationID,
		TransactionID:  transactionID,
		Name:           req.Name,
		Description:    req.Description,
		Note:           req.Note,
		Recurring:      req.Recurring,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			RespondBadRequest(c, "Invalid amount")
			return
		}
		params.Amount = &amount
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		params.Date = &date
	}
	if req.Status != nil {
		status := transaction.Status(*req.Status)
		params.Status = &status
	}

	txn, err := h.ledgerService.UpdateTransaction(c.Request.Context(), params)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// Delete removes a transaction and repairs the affected snapshot series
func (h *TransactionHandler) Delete(c *gin.Context) {
	organizationID, ok := organizationID(c)
	if !ok {
		return
	}
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	if err := h.ledgerService.DeleteTransaction(c.Request.Context(), organizationID, transactionID); err != nil {
		h.respondTransactionError(c, err)
		return
	}
	RespondNoContent(c)
}

// DeleteTransferGroup removes both legs of a transfer atomically
func (h *TransactionHandler) DeleteTransferGroup(c *gin.Context) {
	organizationID, ok := organizationID(c)
	if !ok {
		return
	}
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transfer group ID")
		return
	}

	if err := h.ledgerService.DeleteTransferGroup(c.Request.Context(), organizationID, groupID); err != nil {
		h.respondTransactionError(c, err)
		return
	}
	RespondNoContent(c)
}

// ListByAccount returns the account's transactions ordered by date. The
// account must belong to the caller's organization; a foreign account is
// indistinguishable from a missing one.
func (h *TransactionHandler) ListByAccount(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), accountID)
	if err != nil {
		var notFound account.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "")
			return
		}
		h.logger.Error("Failed to load account", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if acc.OrganizationID != orgID {
		RespondNotFound(c, "")
		return
	}

	txns, err := h.transactions.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}
	RespondOK(c, responses)
}

// respondTransactionError maps ledger domain errors to HTTP responses
func (h *TransactionHandler) respondTransactionError(c *gin.Context, err error) {
	var fingerprintConflict transaction.ErrFingerprintConflict
	var transferMember transaction.ErrTransferGroupMember
	var accountNotFound account.ErrAccountNotFound
	var transactionNotFound transaction.ErrTransactionNotFound

	switch {
	case errors.As(err, &fingerprintConflict):
		RespondConflict(c, "A transaction with the same account, amount, date and description already exists")
	case errors.As(err, &transferMember):
		RespondUnprocessable(c, "TRANSFER_GROUP_MEMBER", "Transaction belongs to a transfer, delete the transfer group instead")
	case errors.Is(err, shared.ErrInvalidTransactionConnectedAccount):
		RespondUnprocessable(c, "INVALID_TRANSACTION_CONNECTED_ACCOUNT", "Connected account accepts only synced transactions after its sync start date")
	case errors.As(err, &accountNotFound), errors.As(err, &transactionNotFound), errors.Is(err, shared.ErrOrganizationMismatch):
		RespondNotFound(c, "")
	default:
		h.logger.Error("Transaction operation failed", "error", err)
		RespondInternalError(c)
	}
}
