package companion

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Close-readiness thresholds
const (
	readinessMaxUnreconciled        = 5
	readinessMaxUnreconciledPercent = 2.0
)

// CloseReadiness says whether the period can close and why not
type CloseReadiness struct {
	Ready           bool     `json:"ready"`
	BlockingReasons []string `json:"blocking_reasons,omitempty"`
}

// ReadinessInput gathers the signals the evaluation needs
type ReadinessInput struct {
	UnreconciledTransactions int
	TotalSessionTransactions int
	SuspenseBalance          decimal.Decimal
	OpenHighBankBooksIssues  int
}

// EvaluateCloseReadiness applies the close checklist: few enough
// unreconciled bank lines in absolute and relative terms, empty
// suspense accounts, and no open high-severity bank or books issues.
func EvaluateCloseReadiness(in ReadinessInput) CloseReadiness {
	var reasons []string

	if in.UnreconciledTransactions >= readinessMaxUnreconciled {
		reasons = append(reasons, fmt.Sprintf(
			"%d bank transactions are still unreconciled", in.UnreconciledTransactions))
	} else if in.TotalSessionTransactions > 0 {
		percent := float64(in.UnreconciledTransactions) / float64(in.TotalSessionTransactions) * 100
		if percent >= readinessMaxUnreconciledPercent {
			reasons = append(reasons, fmt.Sprintf(
				"%.1f%% of bank transactions are unreconciled", percent))
		}
	}

	if !in.SuspenseBalance.IsZero() {
		reasons = append(reasons, fmt.Sprintf(
			"suspense accounts hold a balance of %s", in.SuspenseBalance.StringFixed(2)))
	}

	if in.OpenHighBankBooksIssues > 0 {
		reasons = append(reasons, fmt.Sprintf(
			"%d high-severity issues are open in bank or books", in.OpenHighBankBooksIssues))
	}

	return CloseReadiness{Ready: len(reasons) == 0, BlockingReasons: reasons}
}
