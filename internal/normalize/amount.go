package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses an amount string tolerant of thousands separators,
// decimal-comma and decimal-point conventions, currency symbols and the
// Unicode minus sign. The sign may precede or trail the digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	// Keep digits and separators, remember the sign, drop everything else
	// (currency symbols, letters, regular and non-breaking spaces, apostrophes).
	var b strings.Builder
	neg := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune(r)
		case r == '-' || r == '−': // ASCII or Unicode minus
			neg = true
		}
	}

	t := b.String()
	if t == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", raw)
	}

	t = resolveSeparators(t)

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// resolveSeparators rewrites a digits-and-separators string into plain
// decimal-point form. When both separators appear, the one occurring last is
// the decimal separator; a lone comma followed by at most two digits is a
// decimal comma, any other comma is a thousands separator.
func resolveSeparators(t string) string {
	lastComma := strings.LastIndex(t, ",")
	lastDot := strings.LastIndex(t, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// "1.234,56": dots are thousands, last comma is decimal
			t = strings.ReplaceAll(t, ".", "")
			i := strings.LastIndex(t, ",")
			t = strings.ReplaceAll(t[:i], ",", "") + "." + t[i+1:]
		} else {
			// "1,234.56": commas are thousands
			t = strings.ReplaceAll(t, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(t, ",") == 1 && len(t)-lastComma-1 <= 2 {
			t = strings.Replace(t, ",", ".", 1)
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	case strings.Count(t, ".") > 1:
		// "1.234.567": dotted thousands with no decimals
		t = strings.ReplaceAll(t, ".", "")
	}

	return t
}
