package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrEmptyName             = errors.New("account name cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrMissingT0             = errors.New("manual account requires t0 before offsets apply")
)

// UnhealthyRetryThreshold is the number of consecutive provider failures
// after which an account is considered unhealthy.
const UnhealthyRetryThreshold = 3

// Account is a bank account tracked in the ledger. Manual accounts are
// maintained by the user from an opening balance; connected accounts mirror
// an external provider and carry the provider's current balance.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ConnectionID   *uuid.UUID      `json:"connection_id,omitempty"`
	ExternalID     string          `json:"external_id,omitempty"` // provider-side account reference
	Name           string          `json:"name"`
	Manual         bool            `json:"manual"`
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	T0             time.Time       `json:"t0"` // boundary between historical and live synced data
	Timezone       string          `json:"timezone"`
	ErrorRetries   *int            `json:"error_retries,omitempty"` // nil = healthy
	Enabled        bool            `json:"enabled"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Connected reports whether the account mirrors an external provider.
func (a *Account) Connected() bool {
	return !a.Manual && a.ConnectionID != nil
}

// Unhealthy reports whether the account exhausted its provider error budget.
func (a *Account) Unhealthy() bool {
	return a.ErrorRetries != nil && *a.ErrorRetries >= UnhealthyRetryThreshold
}

// RecordFailure increments the consecutive provider failure counter.
func (a *Account) RecordFailure() {
	retries := 1
	if a.ErrorRetries != nil {
		retries = *a.ErrorRetries + 1
	}
	a.ErrorRetries = &retries
	a.UpdatedAt = time.Now()
}

// RecordSuccess resets the failure counter; any provider success heals the account.
func (a *Account) RecordSuccess() {
	a.ErrorRetries = nil
	a.UpdatedAt = time.Now()
}

// BalanceOffset is a manual balance adjustment applied at a specific
// effective time. Offsets exist only for manual accounts.
type BalanceOffset struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	EffectiveAt    time.Time       `json:"effective_at"`
	Note           string          `json:"note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
