package handler

import (
	"time"

	"github.com/matteobad/badget-sync/internal/domain/snapshot"
	"github.com/matteobad/badget-sync/internal/domain/synclog"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/importer"
)

// dateLayout is the calendar-day format used by the API
const dateLayout = "2006-01-02"

// CreateTransactionRequest represents a request to create a ledger transaction
type CreateTransactionRequest struct {
	AccountID   string `json:"account_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency,omitempty" binding:"omitempty,len=3"`
	Date        string `json:"date" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`
	Status      string `json:"status,omitempty" binding:"omitempty,oneof=pending posted completed excluded archived"`
	Recurring   bool   `json:"recurring,omitempty"`
}

// UpdateTransactionRequest represents a partial update of a ledger
// transaction; absent fields are left untouched.
type UpdateTransactionRequest struct {
	Amount      *string `json:"amount,omitempty"`
	Date        *string `json:"date,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Note        *string `json:"note,omitempty"`
	Status      *string `json:"status,omitempty" binding:"omitempty,oneof=pending posted completed excluded archived"`
	Recurring   *bool   `json:"recurring,omitempty"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID              string `json:"id"`
	AccountID       string `json:"account_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Date            string `json:"date"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Note            string `json:"note,omitempty"`
	Status          string `json:"status"`
	Source          string `json:"source"`
	Recurring       bool   `json:"recurring"`
	TransferGroupID string `json:"transfer_group_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          txn.ID.String(),
		AccountID:   txn.AccountID.String(),
		Amount:      txn.Amount.String(),
		Currency:    txn.Currency,
		Date:        txn.Date.Format(dateLayout),
		Name:        txn.Name,
		Description: txn.Description,
		Note:        txn.Note,
		Status:      string(txn.Status),
		Source:      string(txn.Source),
		Recurring:   txn.Recurring,
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   txn.UpdatedAt.Format(time.RFC3339),
	}
	if txn.TransferGroupID != nil {
		resp.TransferGroupID = txn.TransferGroupID.String()
	}
	return resp
}

// SnapshotResponse represents one daily closing balance in API responses
type SnapshotResponse struct {
	Date           string `json:"date"`
	ClosingBalance string `json:"closing_balance"`
	Currency       string `json:"currency"`
	Source         string `json:"source"`
}

func mapSnapshotToResponse(snap *snapshot.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Date:           snap.Date.Format(dateLayout),
		ClosingBalance: snap.ClosingBalance.String(),
		Currency:       snap.Currency,
		Source:         string(snap.Source),
	}
}

// SyncRunResponse represents one recorded sync or import run
type SyncRunResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	ConnectionID string `json:"connection_id,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	ManualSync   bool   `json:"manual_sync"`
	Outcome      string `json:"outcome"`
	Error        string `json:"error,omitempty"`
	Accepted     int    `json:"accepted"`
	Duplicates   int    `json:"duplicates"`
	Rejected     int    `json:"rejected"`
	CreatedAt    string `json:"created_at"`
}

func mapSyncRunToResponse(entry *synclog.Entry) SyncRunResponse {
	resp := SyncRunResponse{
		ID:         entry.ID.String(),
		Kind:       string(entry.Kind),
		ManualSync: entry.ManualSync,
		Outcome:    string(entry.Outcome),
		Error:      entry.Error,
		Accepted:   entry.Accepted,
		Duplicates: entry.Duplicates,
		Rejected:   entry.Rejected,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.ConnectionID != nil {
		resp.ConnectionID = entry.ConnectionID.String()
	}
	if entry.AccountID != nil {
		resp.AccountID = entry.AccountID.String()
	}
	return resp
}

// ImportResponse is the outcome of one file import
type ImportResponse struct {
	Accepted   int                    `json:"accepted"`
	Duplicates int                    `json:"duplicates"`
	Rejected   int                    `json:"rejected"`
	FromDate   string                 `json:"from_date,omitempty"`
	ToDate     string                 `json:"to_date,omitempty"`
	Rows       []importer.RejectedRow `json:"rejected_rows,omitempty"`
}

func mapImportToResponse(summary *importer.Summary, rows []importer.RejectedRow) ImportResponse {
	resp := ImportResponse{
		Accepted:   summary.Accepted,
		Duplicates: summary.Duplicates,
		Rejected:   summary.Rejected,
		Rows:       rows,
	}
	if summary.FromDate != nil {
		resp.FromDate = summary.FromDate.Format(dateLayout)
	}
	if summary.ToDate != nil {
		resp.ToDate = summary.ToDate.Format(dateLayout)
	}
	return resp
}
