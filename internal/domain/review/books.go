package review

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Finding is one deterministic observation from the books or bank
// pipeline.
type Finding struct {
	Code     string        `json:"code"`
	Severity AuditSeverity `json:"severity"`
	Message  string        `json:"message"`
	EntryIDs []uuid.UUID   `json:"entry_ids,omitempty"`
}

// Books finding codes
const (
	FindingLargeEntry     = "large_entry"
	FindingAdjustment     = "adjustment_entry"
	FindingDuplicateEntry = "duplicate_entry"
	FindingOutlierEntry   = "outlier_entry"
)

// BooksEntry is the slice of a journal entry the books pipeline needs
type BooksEntry struct {
	ID          uuid.UUID
	EntryDate   string
	Description string
	Amount      decimal.Decimal
	AccountIDs  []uuid.UUID
}

// BooksReport is the deterministic outcome over one period
type BooksReport struct {
	TotalEntries    int
	TotalAmount     decimal.Decimal
	AccountsTouched int
	Findings        []Finding
}

// SeverityCounts tallies findings for the run score
func (r BooksReport) SeverityCounts() (high, medium int) {
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}
	return high, medium
}

// BooksAnalyzer screens the period's non-void journal entries
type BooksAnalyzer struct {
	LargeThreshold   decimal.Decimal
	OutlierFactor    decimal.Decimal
	CompanionEnabled bool
}

// NewBooksAnalyzer returns an analyzer with the default thresholds
func NewBooksAnalyzer(companionEnabled bool) *BooksAnalyzer {
	return &BooksAnalyzer{
		LargeThreshold:   decimal.NewFromInt(5000),
		OutlierFactor:    decimal.NewFromInt(3),
		CompanionEnabled: companionEnabled,
	}
}

var adjustmentWords = []string{"adjust", "correction", "reclass", "write-off", "write off", "suspense"}

// Analyze computes totals and emits findings for large entries,
// adjustment language, duplicates, and outliers.
func (a *BooksAnalyzer) Analyze(entries []BooksEntry) BooksReport {
	report := BooksReport{
		TotalEntries: len(entries),
		TotalAmount:  decimal.Zero,
	}

	accounts := make(map[uuid.UUID]struct{})
	duplicates := make(map[string][]uuid.UUID)

	for _, e := range entries {
		report.TotalAmount = report.TotalAmount.Add(e.Amount)
		for _, id := range e.AccountIDs {
			accounts[id] = struct{}{}
		}

		if e.Amount.GreaterThanOrEqual(a.LargeThreshold) {
			report.Findings = append(report.Findings, Finding{
				Code:     FindingLargeEntry,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("entry of %s exceeds the review threshold", e.Amount.StringFixed(2)),
				EntryIDs: []uuid.UUID{e.ID},
			})
		}
		if containsAdjustmentWord(e.Description) {
			report.Findings = append(report.Findings, Finding{
				Code:     FindingAdjustment,
				Severity: SeverityLow,
				Message:  fmt.Sprintf("entry %q reads like a manual adjustment", e.Description),
				EntryIDs: []uuid.UUID{e.ID},
			})
		}

		key := e.EntryDate + "|" + strings.ToLower(strings.TrimSpace(e.Description)) + "|" + e.Amount.StringFixed(2)
		duplicates[key] = append(duplicates[key], e.ID)
	}
	report.AccountsTouched = len(accounts)

	for _, ids := range duplicates {
		if len(ids) > 1 {
			report.Findings = append(report.Findings, Finding{
				Code:     FindingDuplicateEntry,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("%d entries share the same date, description, and amount", len(ids)),
				EntryIDs: ids,
			})
		}
	}

	if a.CompanionEnabled {
		report.Findings = append(report.Findings, a.outliers(entries)...)
	}

	return report
}

func containsAdjustmentWord(description string) bool {
	lower := strings.ToLower(description)
	for _, w := range adjustmentWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// outliers flags entries more than OutlierFactor times the period average
func (a *BooksAnalyzer) outliers(entries []BooksEntry) []Finding {
	if len(entries) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount.Abs())
	}
	avg := total.Div(decimal.NewFromInt(int64(len(entries))))
	if avg.IsZero() {
		return nil
	}
	cutoff := avg.Mul(a.OutlierFactor)

	var findings []Finding
	for _, e := range entries {
		if e.Amount.Abs().GreaterThan(cutoff) {
			findings = append(findings, Finding{
				Code:     FindingOutlierEntry,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("entry of %s is more than %s times the period average", e.Amount.StringFixed(2), a.OutlierFactor.String()),
				EntryIDs: []uuid.UUID{e.ID},
			})
		}
	}
	return findings
}
