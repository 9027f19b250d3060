package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fingerprint derives the deduplication key for a transaction from its
// account, signed amount, calendar day and normalized description. Two
// records of the same logical event always produce the same fingerprint,
// no matter how the provider formatted the description.
func Fingerprint(accountID uuid.UUID, amount decimal.Decimal, date time.Time, description string) string {
	payload := strings.Join([]string{
		accountID.String(),
		amount.StringFixed(2),
		DateOnly(date).Format("2006-01-02"),
		NormalizeDescription(description),
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription lower-cases the description, strips punctuation and
// collapses runs of whitespace so provider formatting noise does not change
// the fingerprint.
func NormalizeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true // also trims leading separators
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		// Punctuation, symbols and whitespace all act as a single separator.
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}
