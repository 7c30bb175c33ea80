package companion

import (
	"github.com/shopspring/decimal"
)

// Coverage domains
const (
	CoverageReceipts = "receipts"
	CoverageInvoices = "invoices"
	CoverageBanking  = "banking"
	CoverageBooks    = "books"
)

// Coverage is how much of a domain's volume reached its terminal state
type Coverage struct {
	Domain  string          `json:"domain"`
	Covered int             `json:"covered"`
	Total   int             `json:"total"`
	Percent decimal.Decimal `json:"percent"`
}

// ComputeCoverage returns covered/total as a percentage. An empty
// domain counts as fully covered.
func ComputeCoverage(domain string, covered, total int) Coverage {
	percent := decimal.NewFromInt(100)
	if total > 0 {
		percent = decimal.NewFromInt(int64(covered)).
			Div(decimal.NewFromInt(int64(total))).
			Mul(decimal.NewFromInt(100)).Round(1)
	}
	return Coverage{Domain: domain, Covered: covered, Total: total, Percent: percent}
}

// BooksCoverage is a heuristic stand-in: full coverage minus 10 points
// per open books issue, floored at 0.
func BooksCoverage(openBooksIssues int) Coverage {
	score := int64(100 - 10*openBooksIssues)
	if score < 0 {
		score = 0
	}
	return Coverage{Domain: CoverageBooks, Percent: decimal.NewFromInt(score)}
}

// LowestCoverage returns the weakest domain, nil for an empty slice
func LowestCoverage(coverages []Coverage) *Coverage {
	var lowest *Coverage
	for i := range coverages {
		if lowest == nil || coverages[i].Percent.LessThan(lowest.Percent) {
			lowest = &coverages[i]
		}
	}
	return lowest
}
