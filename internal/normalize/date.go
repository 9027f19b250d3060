package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/matteobad/badget-sync/internal/domain/transaction"
)

// dateLayouts are tried in order. Day-month-year ordering is assumed for
// slashed, dashed and dotted numeric forms, matching the providers and bank
// exports this service ingests.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/06",
	"02.01.06",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"02 Jan 06",
}

// ParseDate parses a heterogeneous provider or import date string into a
// canonical calendar day (UTC midnight). Unparseable non-empty input is an
// error; the caller decides whether that rejects the row or falls back.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return transaction.DateOnly(ts), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
