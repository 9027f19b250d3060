package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines the lifecycle states of a ledger transaction
type Status string

const (
	StatusPending   Status = "pending"
	StatusPosted    Status = "posted"
	StatusCompleted Status = "completed"
	StatusExcluded  Status = "excluded"
	StatusArchived  Status = "archived"
)

// Source identifies where a transaction originated from
type Source string

const (
	SourceAPI    Source = "api"
	SourceManual Source = "manual"
	SourceImport Source = "import"
)

// Transaction represents a single ledger entry on an account.
// Amount is signed: negative for outflows, positive for inflows.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	OrganizationID  uuid.UUID       `json:"organization_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Date            time.Time       `json:"date"` // calendar day, UTC midnight
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Note            string          `json:"note,omitempty"`
	Status          Status          `json:"status"`
	Fingerprint     string          `json:"fingerprint"`
	RawID           *string         `json:"raw_id,omitempty"` // external provider id
	Recurring       bool            `json:"recurring"`
	Source          Source          `json:"source"`
	TransferGroupID *uuid.UUID      `json:"transfer_group_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Booked reports whether the transaction counts toward account balances.
// Pending, excluded and archived transactions do not.
func (t *Transaction) Booked() bool {
	return t.Status == StatusPosted || t.Status == StatusCompleted
}

// DateOnly truncates a timestamp to its calendar day at UTC midnight.
// All ledger dates are stored in this canonical form so that day
// comparisons never depend on the time component.
func DateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
