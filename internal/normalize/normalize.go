// Package normalize converts raw provider and import rows into canonical
// transaction records: locale-tolerant date and amount parsing, currency
// defaulting, optional sign inversion.
package normalize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
)

// Row is a raw, string-typed transaction row as read from a provider feed
// or an import file.
type Row struct {
	Date        string
	Description string
	Amount      string
	Currency    string
	RawID       string
}

// Options is the explicit configuration for one normalization run.
// Recognized settings are enumerated here; there is no open settings map.
type Options struct {
	OrganizationID  uuid.UUID
	AccountID       uuid.UUID
	DefaultCurrency string
	Inverted        bool // flip the sign of every parsed amount
	Source          transaction.Source
}

// RowError is a field-level rejection of a single row
type RowError struct {
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Normalizer turns raw rows into structurally valid transaction drafts
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize parses one raw row into a transaction draft, or rejects it with
// a field-level reason. A missing date falls back to today with a
// data-quality warning; an unparseable one is never silently replaced.
func (n *Normalizer) Normalize(row Row, opts Options) (*transaction.Transaction, *RowError) {
	var date time.Time
	if strings.TrimSpace(row.Date) == "" {
		date = transaction.DateOnly(time.Now())
		n.logger.Warn("row has no date, defaulting to today",
			"account_id", opts.AccountID.String(),
			"description", row.Description,
		)
	} else {
		parsed, err := ParseDate(row.Date)
		if err != nil {
			return nil, &RowError{Field: "date", Reason: err.Error()}
		}
		date = parsed
	}

	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return nil, &RowError{Field: "amount", Reason: err.Error()}
	}
	if opts.Inverted {
		amount = amount.Neg()
	}

	name := strings.TrimSpace(row.Description)
	if name == "" {
		return nil, &RowError{Field: "description", Reason: "missing description"}
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = strings.ToUpper(opts.DefaultCurrency)
	}

	now := time.Now()
	txn := &transaction.Transaction{
		ID:             uuid.New(),
		OrganizationID: opts.OrganizationID,
		AccountID:      opts.AccountID,
		Amount:         amount,
		Currency:       currency,
		Date:           date,
		Name:           name,
		Status:         transaction.StatusPosted,
		Fingerprint:    transaction.Fingerprint(opts.AccountID, amount, date, name),
		Source:         opts.Source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rawID := strings.TrimSpace(row.RawID); rawID != "" {
		txn.RawID = &rawID
	}

	return txn, nil
}
