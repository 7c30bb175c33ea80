package review

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/banking"
)

// BankMatchState classifies one statement line against the ledger
type BankMatchState string

const (
	BankMatched      BankMatchState = "MATCHED"
	BankPartialMatch BankMatchState = "PARTIAL_MATCH"
	BankUnmatched    BankMatchState = "UNMATCHED"
	BankDuplicate    BankMatchState = "DUPLICATE"
)

// BankLine is the slice of a bank transaction the bank pipeline needs
type BankLine struct {
	ID          uuid.UUID
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	ExternalID  *string
}

// LedgerSide is a posted journal entry projected for matching
type LedgerSide struct {
	ID          uuid.UUID
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// BankClassification is the per-line outcome
type BankClassification struct {
	LineID uuid.UUID      `json:"line_id"`
	State  BankMatchState `json:"state"`
	Reason string         `json:"reason"`
}

// BankReport is the deterministic outcome of the bank pipeline
type BankReport struct {
	Classifications []BankClassification
	Matched         int
	Partial         int
	Unmatched       int
	Duplicates      int
}

// SeverityCounts tallies the states for the run score: duplicates are
// high findings, unmatched lines medium.
func (r BankReport) SeverityCounts() (high, medium int) {
	return r.Duplicates, r.Unmatched
}

// BankAnalyzer reconciles statement lines against ledger activity
// without mutating either side.
type BankAnalyzer struct {
	CompanionEnabled bool
	FuzzyWindowDays  int
	OverlapFloor     float64
}

// NewBankAnalyzer returns an analyzer with the default fuzzy window
func NewBankAnalyzer(companionEnabled bool) *BankAnalyzer {
	return &BankAnalyzer{
		CompanionEnabled: companionEnabled,
		FuzzyWindowDays:  3,
		OverlapFloor:     0.5,
	}
}

func ledgerKey(date time.Time, amount decimal.Decimal) string {
	return date.Format("2006-01-02") + "|" + amount.Abs().Round(2).StringFixed(2)
}

// Classify keys the ledger by (date, |amount| rounded to cents) and
// walks the statement lines. Exact keys consume a ledger slot so two
// identical lines cannot both claim the same entry; repeated external
// ids are duplicates regardless of the ledger.
func (a *BankAnalyzer) Classify(lines []BankLine, ledger []LedgerSide) BankReport {
	slots := make(map[string]int, len(ledger))
	for _, l := range ledger {
		slots[ledgerKey(l.Date, l.Amount)]++
	}

	seenExternal := make(map[string]struct{})
	report := BankReport{Classifications: make([]BankClassification, 0, len(lines))}

	for _, line := range lines {
		c := BankClassification{LineID: line.ID}

		switch {
		case a.isDuplicate(line, seenExternal):
			c.State = BankDuplicate
			c.Reason = "external id already imported"
			report.Duplicates++
		case a.consumeExact(line, slots):
			c.State = BankMatched
			c.Reason = "ledger entry with the same date and amount"
			report.Matched++
		case a.partialMatch(line, slots, ledger):
			c.State = BankPartialMatch
			c.Reason = "close ledger entry by date or description"
			report.Partial++
		default:
			c.State = BankUnmatched
			c.Reason = "no ledger entry found"
			report.Unmatched++
		}
		report.Classifications = append(report.Classifications, c)
	}
	return report
}

func (a *BankAnalyzer) isDuplicate(line BankLine, seen map[string]struct{}) bool {
	if line.ExternalID == nil || *line.ExternalID == "" {
		return false
	}
	if _, dup := seen[*line.ExternalID]; dup {
		return true
	}
	seen[*line.ExternalID] = struct{}{}
	return false
}

func (a *BankAnalyzer) consumeExact(line BankLine, slots map[string]int) bool {
	key := ledgerKey(line.Date, line.Amount)
	if slots[key] > 0 {
		slots[key]--
		return true
	}
	return false
}

// partialMatch looks for the same amount on a nearby date, or, with the
// companion enabled, a same-day description overlap.
func (a *BankAnalyzer) partialMatch(line BankLine, slots map[string]int, ledger []LedgerSide) bool {
	for offset := 1; offset <= a.FuzzyWindowDays; offset++ {
		if slots[ledgerKey(line.Date.AddDate(0, 0, offset), line.Amount)] > 0 {
			return true
		}
		if slots[ledgerKey(line.Date.AddDate(0, 0, -offset), line.Amount)] > 0 {
			return true
		}
	}

	if !a.CompanionEnabled {
		return false
	}
	tokens := banking.Tokenize(line.Description)
	if len(tokens) == 0 {
		return false
	}
	day := line.Date.Format("2006-01-02")
	for _, l := range ledger {
		if l.Date.Format("2006-01-02") != day {
			continue
		}
		if banking.TokenOverlap(tokens, banking.Tokenize(l.Description)) >= a.OverlapFloor {
			return true
		}
	}
	return false
}
