package snapshot

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source identifies how a snapshot value was obtained
type Source string

const (
	// SourceDerived marks snapshots computed from the transaction set.
	SourceDerived Source = "derived"
	// SourceAPI marks snapshots anchored on a balance observed at the provider.
	SourceAPI Source = "api"
)

// Snapshot is the closing balance of one account at the end of one calendar
// day. Snapshots are owned exclusively by the balance engine: callers never
// write them directly, and the per-account series is kept contiguous from
// the earliest relevant date through today.
type Snapshot struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Date           time.Time       `json:"date"` // calendar day, UTC midnight
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Currency       string          `json:"currency"`
	Source         Source          `json:"source"`
}
