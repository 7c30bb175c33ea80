package reconciliation

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/banking"
)

// ClearedContribution returns what one session transaction adds to the
// cleared sum. Fully matched lines contribute their signed amount,
// partial lines their signed allocated portion, excluded and new lines
// nothing.
func ClearedContribution(tx *banking.BankTransaction) decimal.Decimal {
	switch tx.Status {
	case banking.TransactionStatusMatchedSingle, banking.TransactionStatusMatchedMulti:
		return tx.Amount
	case banking.TransactionStatusPartial:
		if tx.Amount.IsNegative() {
			return tx.AllocatedAmount.Neg()
		}
		return tx.AllocatedAmount
	default:
		return decimal.Zero
	}
}

// Summary is the balance sheet of one session, derived from its
// transactions and the statement balances.
type Summary struct {
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	ClosingBalance    decimal.Decimal `json:"closing_balance"`
	ClearedSum        decimal.Decimal `json:"cleared_sum"`
	Difference        decimal.Decimal `json:"difference"`
	TotalCount        int             `json:"total_count"`
	ReconciledCount   int             `json:"reconciled_count"`
	UnreconciledCount int             `json:"unreconciled_count"`
	ExcludedCount     int             `json:"excluded_count"`
}

// Summarize folds the session transactions into the completion-gate
// numbers. The unreconciled count covers non-excluded transactions only.
func Summarize(s *Session, txs []*banking.BankTransaction) Summary {
	summary := Summary{
		OpeningBalance: s.OpeningOrZero(),
		ClosingBalance: s.ClosingOrZero(),
		ClearedSum:     decimal.Zero,
		TotalCount:     len(txs),
	}
	for _, tx := range txs {
		summary.ClearedSum = summary.ClearedSum.Add(ClearedContribution(tx))
		switch {
		case tx.Status == banking.TransactionStatusExcluded:
			summary.ExcludedCount++
		case tx.IsReconciled:
			summary.ReconciledCount++
		default:
			summary.UnreconciledCount++
		}
	}
	summary.Difference = s.Difference(summary.ClearedSum)
	return summary
}
