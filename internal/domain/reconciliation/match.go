package reconciliation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// MatchType records how a match row came to exist
type MatchType string

const (
	MatchTypeOneToOne   MatchType = "ONE_TO_ONE"
	MatchTypeAllocation MatchType = "ALLOCATION"
	MatchTypeAdjustment MatchType = "ADJUSTMENT"
	MatchTypeRule       MatchType = "RULE"
)

func (m MatchType) IsValid() bool {
	switch m {
	case MatchTypeOneToOne, MatchTypeAllocation, MatchTypeAdjustment, MatchTypeRule:
		return true
	}
	return false
}

func (m MatchType) String() string {
	return string(m)
}

// Match links a bank transaction to a journal entry with the amount it
// clears. A transaction may carry several rows; deleting them all resets
// the transaction to NEW.
type Match struct {
	shared.TenantAggregateRoot
	BankTransactionID        uuid.UUID       `json:"bank_transaction_id"`
	JournalEntryID           uuid.UUID       `json:"journal_entry_id"`
	MatchType                MatchType       `json:"match_type"`
	MatchConfidence          decimal.Decimal `json:"match_confidence"`
	MatchedAmount            decimal.Decimal `json:"matched_amount"`
	ReconciledBy             *uuid.UUID      `json:"reconciled_by,omitempty"`
	AdjustmentJournalEntryID *uuid.UUID      `json:"adjustment_journal_entry_id,omitempty"`
}

// NewMatch creates a match row. The matched amount must be strictly
// positive and confidence stays within [0, 1].
func NewMatch(tenantID, bankTransactionID, journalEntryID uuid.UUID, matchType MatchType, confidence, amount decimal.Decimal) (*Match, error) {
	if bankTransactionID == uuid.Nil {
		return nil, shared.NewValidationError("bank transaction is required")
	}
	if journalEntryID == uuid.Nil {
		return nil, shared.NewValidationError("journal entry is required")
	}
	if !matchType.IsValid() {
		return nil, shared.NewValidationError("invalid match type: " + matchType.String())
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("matched amount must be positive")
	}
	if confidence.IsNegative() || confidence.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewValidationError("match confidence must be between 0 and 1")
	}
	return &Match{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankTransactionID:   bankTransactionID,
		JournalEntryID:      journalEntryID,
		MatchType:           matchType,
		MatchConfidence:     confidence,
		MatchedAmount:       amount,
	}, nil
}

// SetReconciledBy records the acting user
func (m *Match) SetReconciledBy(userID uuid.UUID) {
	if userID != uuid.Nil {
		m.ReconciledBy = &userID
	}
}

// AttachAdjustment links the balancing entry created by add-as-new
func (m *Match) AttachAdjustment(entryID uuid.UUID) {
	if entryID != uuid.Nil {
		m.AdjustmentJournalEntryID = &entryID
	}
}

// SumMatchedAmounts totals the matched amounts across rows
func SumMatchedAmounts(matches []Match) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range matches {
		sum = sum.Add(m.MatchedAmount)
	}
	return sum
}
