package balance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/snapshot"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func manualAccount(opening string) *account.Account {
	return &account.Account{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Manual:         true,
		Currency:       "EUR",
		OpeningBalance: decimal.RequireFromString(opening),
	}
}

func connectedAccount(balance string) *account.Account {
	connID := uuid.New()
	return &account.Account{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		ConnectionID:   &connID,
		Currency:       "EUR",
		Balance:        decimal.RequireFromString(balance),
	}
}

func booked(acc *account.Account, amount string, date time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        uuid.New(),
		AccountID: acc.ID,
		Amount:    decimal.RequireFromString(amount),
		Date:      date,
		Status:    transaction.StatusPosted,
	}
}

func closings(series []*snapshot.Snapshot) map[string]string {
	out := make(map[string]string, len(series))
	for _, s := range series {
		out[s.Date.Format("2006-01-02")] = s.ClosingBalance.String()
	}
	return out
}

func TestComputeSeries_ForwardAccumulation(t *testing.T) {
	acc := manualAccount("100")
	txns := []*transaction.Transaction{
		booked(acc, "-30", day(3)),
	}
	offsets := []*account.BalanceOffset{
		{AccountID: acc.ID, Amount: decimal.RequireFromString("10"), EffectiveAt: day(5)},
	}

	series := ComputeSeries(acc, txns, offsets, day(1), day(6))
	require.Len(t, series, 6)

	got := closings(series)
	assert.Equal(t, "100", got["2024-03-01"])
	assert.Equal(t, "100", got["2024-03-02"])
	assert.Equal(t, "70", got["2024-03-03"], "transaction applies on its day")
	assert.Equal(t, "70", got["2024-03-04"])
	assert.Equal(t, "80", got["2024-03-05"], "offset applies on its effective day")
	assert.Equal(t, "80", got["2024-03-06"])
}

func TestComputeSeries_ReverseAccumulation(t *testing.T) {
	acc := connectedAccount("500")
	txns := []*transaction.Transaction{
		booked(acc, "50", day(6)), // after today's cutoff below
		booked(acc, "-20", day(4)),
	}

	series := ComputeSeries(acc, txns, nil, day(3), day(5))
	require.Len(t, series, 3)

	got := closings(series)
	// Walking back from today's provider balance: undo the +50 dated after
	// day 5, then the -20 dated day 4.
	assert.Equal(t, "450", got["2024-03-05"])
	assert.Equal(t, "450", got["2024-03-04"])
	assert.Equal(t, "470", got["2024-03-03"])
}

func TestComputeSeries_ReverseMarksTodayAsAPI(t *testing.T) {
	acc := connectedAccount("500")

	series := ComputeSeries(acc, nil, nil, day(3), day(5))
	require.Len(t, series, 3)

	for _, s := range series[:2] {
		assert.Equal(t, snapshot.SourceDerived, s.Source)
	}
	assert.Equal(t, snapshot.SourceAPI, series[2].Source, "today's snapshot is anchored on the observed balance")
}

func TestComputeSeries_NoGaps(t *testing.T) {
	acc := manualAccount("0")

	series := ComputeSeries(acc, nil, nil, day(1), day(10))
	require.Len(t, series, 10, "an account with no transactions still gets one snapshot per day")

	for i, s := range series {
		assert.True(t, s.Date.Equal(day(1+i)), "series must be contiguous")
		assert.Equal(t, "0", s.ClosingBalance.String())
	}
}

func TestComputeSeries_SkipsUnbookedTransactions(t *testing.T) {
	acc := manualAccount("100")
	pending := booked(acc, "-30", day(2))
	pending.Status = transaction.StatusPending
	excluded := booked(acc, "-40", day(2))
	excluded.Status = transaction.StatusExcluded

	series := ComputeSeries(acc, []*transaction.Transaction{pending, excluded}, nil, day(2), day(2))
	require.Len(t, series, 1)
	assert.Equal(t, "100", series[0].ClosingBalance.String())
}

func TestComputeSeries_ClampsFutureFrom(t *testing.T) {
	acc := manualAccount("100")

	series := ComputeSeries(acc, nil, nil, day(9), day(5))
	require.Len(t, series, 1, "a from date after today collapses to a single day")
	assert.True(t, series[0].Date.Equal(day(5)))
}

func TestComputeSeries_Idempotent(t *testing.T) {
	acc := manualAccount("100")
	txns := []*transaction.Transaction{
		booked(acc, "-30", day(3)),
		booked(acc, "15", day(4)),
	}

	first := ComputeSeries(acc, txns, nil, day(1), day(6))
	second := ComputeSeries(acc, txns, nil, day(1), day(6))

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].ClosingBalance.Equal(second[i].ClosingBalance))
		assert.True(t, first[i].Date.Equal(second[i].Date))
	}
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, Forward, StrategyFor(manualAccount("0")))
	assert.Equal(t, Reverse, StrategyFor(connectedAccount("0")))
}
