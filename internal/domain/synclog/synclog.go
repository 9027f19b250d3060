// Package synclog records the observable history of sync runs and file
// imports: what ran, what it touched and how it ended. Exhausted retries and
// terminal failures land here instead of disappearing into log lines.
package synclog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunKind identifies what produced a log entry
type RunKind string

const (
	RunKindConnectionSync RunKind = "connection_sync"
	RunKindAccountSync    RunKind = "account_sync"
	RunKindImport         RunKind = "import"
)

// Outcome is the terminal state of a run
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one recorded sync or import run
type Entry struct {
	ID             uuid.UUID  `bson:"_id" json:"id"`
	OrganizationID uuid.UUID  `bson:"organization_id" json:"organization_id"`
	Kind           RunKind    `bson:"kind" json:"kind"`
	ConnectionID   *uuid.UUID `bson:"connection_id,omitempty" json:"connection_id,omitempty"`
	AccountID      *uuid.UUID `bson:"account_id,omitempty" json:"account_id,omitempty"`
	ManualSync     bool       `bson:"manual_sync" json:"manual_sync"`
	Outcome        Outcome    `bson:"outcome" json:"outcome"`
	Error          string     `bson:"error,omitempty" json:"error,omitempty"`

	// Import / upsert accounting.
	Accepted   int `bson:"accepted" json:"accepted"`
	Duplicates int `bson:"duplicates" json:"duplicates"`
	Rejected   int `bson:"rejected" json:"rejected"`

	FromDate  *time.Time `bson:"from_date,omitempty" json:"from_date,omitempty"`
	ToDate    *time.Time `bson:"to_date,omitempty" json:"to_date,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// Repository defines sync-log persistence operations
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]*Entry, error)
}
