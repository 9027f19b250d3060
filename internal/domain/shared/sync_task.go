package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskKind discriminates the sync task messages flowing through the queue
type TaskKind string

const (
	TaskKindSyncConnection     TaskKind = "sync_connection"
	TaskKindSyncAccount        TaskKind = "sync_account"
	TaskKindUpsertTransactions TaskKind = "upsert_transactions"
	TaskKindRecalculate        TaskKind = "recalculate"
)

// MaxTaskAttempts bounds redelivery of a failed task before it is dead-lettered.
const MaxTaskAttempts = 2

// SyncTask is the envelope every sync task message travels in. Attempts
// counts deliveries so the task runtime can bound retries.
type SyncTask struct {
	Kind     TaskKind        `json:"kind"`
	Attempts int             `json:"attempts"`
	Data     json.RawMessage `json:"data"`
}

// NewSyncTask wraps a payload in a first-attempt envelope
func NewSyncTask(kind TaskKind, payload any) (*SyncTask, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return &SyncTask{Kind: kind, Attempts: 1, Data: data}, nil
}

// Decode unmarshals the task payload into v
func (t *SyncTask) Decode(v any) error {
	if err := json.Unmarshal(t.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", t.Kind, err)
	}
	return nil
}

// SyncConnectionPayload asks a worker to sync one bank connection.
// ManualSync marks user-initiated runs: full history, no fan-out throttling.
type SyncConnectionPayload struct {
	ConnectionID uuid.UUID `json:"connection_id"`
	ManualSync   bool      `json:"manual_sync"`
}

// SyncAccountPayload asks a worker to sync one account's balance and transactions
type SyncAccountPayload struct {
	AccountID      uuid.UUID `json:"account_id"`
	ConnectionID   uuid.UUID `json:"connection_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	ErrorRetries   *int      `json:"error_retries,omitempty"`
	Provider       string    `json:"provider"`
	ManualSync     bool      `json:"manual_sync"`
}

// UpsertTransactionsPayload carries one bounded batch of normalized
// transactions ready for idempotent insertion.
type UpsertTransactionsPayload struct {
	AccountID      uuid.UUID     `json:"account_id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Transactions   []UpsertEntry `json:"transactions"`
}

// UpsertEntry is the wire form of a synced transaction. Amounts travel as
// strings to keep decimal precision across the queue boundary.
type UpsertEntry struct {
	RawID       string    `json:"raw_id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Note        string    `json:"note,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Status      string    `json:"status"`
}

// RecalculatePayload asks a worker to rebuild the snapshot series of one
// account from a given date. Dispatched after the last upsert batch with the
// same message key, so it runs only once the batches have been applied.
type RecalculatePayload struct {
	AccountID uuid.UUID `json:"account_id"`
	From      time.Time `json:"from"`
}
