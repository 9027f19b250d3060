// Package importer turns user-uploaded CSV files into ledger transactions.
// Files are streamed in bounded chunks, rows are normalized and deduplicated
// against the account's existing fingerprints, and a single snapshot
// recalculation covers the whole imported date range.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/synclog"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/normalize"
)

// FieldMapping names the CSV columns carrying each required field.
// Header matching is case-insensitive.
type FieldMapping struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"` // optional, account currency when absent
}

// Settings tunes one import run
type Settings struct {
	Inverted bool `json:"inverted"` // file reports outflows as positive
}

// Summary is the accounting of one import run
type Summary struct {
	Accepted   int        `json:"accepted"`
	Duplicates int        `json:"duplicates"`
	Rejected   int        `json:"rejected"`
	FromDate   *time.Time `json:"from_date,omitempty"`
	ToDate     *time.Time `json:"to_date,omitempty"`
}

// RejectedRow reports why one row of the file was not imported
type RejectedRow struct {
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var (
	// ErrEmptyFile indicates a file without a header row
	ErrEmptyFile = fmt.Errorf("import file is empty")
)

// ErrMissingColumn indicates a mapped column absent from the file header
type ErrMissingColumn struct {
	Column string
}

func (e ErrMissingColumn) Error() string {
	return "mapped column not found in file header: " + e.Column
}

// Recalculator rebuilds an account's snapshot series from a date onward
type Recalculator interface {
	Recalculate(ctx context.Context, accountID uuid.UUID, from time.Time) error
}

// Service runs CSV imports against one account
type Service struct {
	accounts     account.Repository
	transactions transaction.Repository
	engine       Recalculator
	normalizer   *normalize.Normalizer
	syncLog      synclog.Repository
	chunkSize    int
	logger       *slog.Logger
}

func NewService(
	accounts account.Repository,
	transactions transaction.Repository,
	engine Recalculator,
	normalizer *normalize.Normalizer,
	syncLog synclog.Repository,
	chunkSize int,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		engine:       engine,
		normalizer:   normalizer,
		syncLog:      syncLog,
		chunkSize:    chunkSize,
		logger:       logger,
	}
}

// Params describes one import run
type Params struct {
	OrganizationID uuid.UUID
	AccountID      uuid.UUID
	Mapping        FieldMapping
	Settings       Settings
}

// Import streams the CSV file into the account's ledger. Row failures never
// abort the run: bad rows are rejected individually and reported in the
// summary alongside the rejected details.
func (s *Service) Import(ctx context.Context, params Params, file io.Reader) (*Summary, []RejectedRow, error) {
	acc, err := s.accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if acc.OrganizationID != params.OrganizationID {
		return nil, nil, shared.ErrOrganizationMismatch
	}

	seen, err := s.transactions.ListFingerprintsByAccount(ctx, params.AccountID)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are rejected per-row, not fatally
	reader.TrimLeadingSpace = true

	columns, err := s.resolveColumns(reader, params.Mapping)
	if err != nil {
		return nil, nil, err
	}

	summary := &Summary{}
	var rejected []RejectedRow
	batch := make([]*transaction.Transaction, 0, s.chunkSize)
	line := 1 // header consumed

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			summary.Rejected++
			rejected = append(rejected, RejectedRow{Line: line, Field: "row", Reason: err.Error()})
			continue
		}

		txn, rowErr := s.normalizeRecord(acc, record, columns, params.Settings)
		if rowErr != nil {
			summary.Rejected++
			rejected = append(rejected, RejectedRow{Line: line, Field: rowErr.Field, Reason: rowErr.Reason})
			continue
		}

		if acc.Connected() && txn.Date.After(acc.T0) {
			summary.Rejected++
			rejected = append(rejected, RejectedRow{Line: line, Field: "date", Reason: "connected account accepts imports only up to its sync start date"})
			continue
		}

		if _, dup := seen[txn.Fingerprint]; dup {
			summary.Duplicates++
			continue
		}
		seen[txn.Fingerprint] = struct{}{}

		summary.Accepted++
		summary.observe(txn.Date)
		batch = append(batch, txn)

		if len(batch) >= s.chunkSize {
			if err := s.transactions.UpsertBatch(ctx, batch); err != nil {
				return nil, nil, fmt.Errorf("failed to insert import batch: %w", err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.transactions.UpsertBatch(ctx, batch); err != nil {
			return nil, nil, fmt.Errorf("failed to insert import batch: %w", err)
		}
	}

	if summary.Accepted > 0 {
		if err := s.engine.Recalculate(ctx, acc.ID, *summary.FromDate); err != nil {
			return nil, nil, fmt.Errorf("failed to recalculate after import: %w", err)
		}
	}

	s.logger.Info("Import completed",
		"account_id", acc.ID.String(),
		"accepted", summary.Accepted,
		"duplicates", summary.Duplicates,
		"rejected", summary.Rejected,
	)
	s.recordRun(ctx, acc, summary)
	return summary, rejected, nil
}

// columnIndexes holds the resolved position of each mapped column
type columnIndexes struct {
	date        int
	description int
	amount      int
	currency    int // -1 when unmapped
}

// resolveColumns reads the header row and locates each mapped column
func (s *Service) resolveColumns(reader *csv.Reader, mapping FieldMapping) (*columnIndexes, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	find := func(column string) (int, error) {
		i, ok := index[strings.ToLower(strings.TrimSpace(column))]
		if !ok {
			return 0, ErrMissingColumn{Column: column}
		}
		return i, nil
	}

	cols := &columnIndexes{currency: -1}
	if cols.date, err = find(mapping.Date); err != nil {
		return nil, err
	}
	if cols.description, err = find(mapping.Description); err != nil {
		return nil, err
	}
	if cols.amount, err = find(mapping.Amount); err != nil {
		return nil, err
	}
	if mapping.Currency != "" {
		if cols.currency, err = find(mapping.Currency); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

func (s *Service) normalizeRecord(acc *account.Account, record []string, cols *columnIndexes, settings Settings) (*transaction.Transaction, *normalize.RowError) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}

	return s.normalizer.Normalize(normalize.Row{
		Date:        field(cols.date),
		Description: field(cols.description),
		Amount:      field(cols.amount),
		Currency:    field(cols.currency),
	}, normalize.Options{
		OrganizationID:  acc.OrganizationID,
		AccountID:       acc.ID,
		DefaultCurrency: acc.Currency,
		Inverted:        settings.Inverted,
		Source:          transaction.SourceImport,
	})
}

// observe widens the summary's date range to include day
func (s *Summary) observe(day time.Time) {
	if s.FromDate == nil || day.Before(*s.FromDate) {
		d := day
		s.FromDate = &d
	}
	if s.ToDate == nil || day.After(*s.ToDate) {
		d := day
		s.ToDate = &d
	}
}

func (s *Service) recordRun(ctx context.Context, acc *account.Account, summary *Summary) {
	entry := &synclog.Entry{
		ID:             uuid.New(),
		OrganizationID: acc.OrganizationID,
		Kind:           synclog.RunKindImport,
		AccountID:      &acc.ID,
		Outcome:        synclog.OutcomeSucceeded,
		Accepted:       summary.Accepted,
		Duplicates:     summary.Duplicates,
		Rejected:       summary.Rejected,
		FromDate:       summary.FromDate,
		ToDate:         summary.ToDate,
		CreatedAt:      time.Now(),
	}
	if err := s.syncLog.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record import run", "account_id", acc.ID.String(), "error", err)
	}
}
