package banking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FingerprintLength is the stored prefix length of the dedup key
const FingerprintLength = 32

// Fingerprint derives the feed deduplication key for a statement line:
// sha256(bank_account_id | iso_date | normalized_description | amount_2dp),
// first 32 hex characters. Two imports of the same line always collide.
func Fingerprint(bankAccountID uuid.UUID, date time.Time, description string, amount decimal.Decimal) string {
	parts := []string{
		bankAccountID.String(),
		date.Format("2006-01-02"),
		NormalizeDescription(description),
		amount.StringFixed(2),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}
