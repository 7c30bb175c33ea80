package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// BalanceTolerance is the maximum permitted |Σdebit − Σcredit| for a
// persisted journal entry. Intermediate line amounts are stored at 4 dp.
var BalanceTolerance = decimal.NewFromFloat(0.0001)

// EntrySource records which engine produced a journal entry
type EntrySource string

const (
	EntrySourceManual         EntrySource = "MANUAL"
	EntrySourceAllocation     EntrySource = "ALLOCATION"
	EntrySourceReconciliation EntrySource = "RECONCILIATION"
)

// JournalLine is a single debit or credit against one account.
// Exactly one of Debit/Credit is non-zero in practice; both-zero lines are
// discarded when the entry is built.
type JournalLine struct {
	shared.BaseEntity
	JournalEntryID          uuid.UUID       `json:"journal_entry_id"`
	AccountID               uuid.UUID       `json:"account_id"`
	Debit                   decimal.Decimal `json:"debit"`
	Credit                  decimal.Decimal `json:"credit"`
	Description             string          `json:"description"`
	Position                int             `json:"position"`
	IsReconciled            bool            `json:"is_reconciled"`
	ReconciledAt            *time.Time      `json:"reconciled_at,omitempty"`
	ReconciliationSessionID *uuid.UUID      `json:"reconciliation_session_id,omitempty"`
}

// MarkReconciled flags the line as cleared within a session
func (l *JournalLine) MarkReconciled(sessionID uuid.UUID, at time.Time) {
	l.IsReconciled = true
	l.ReconciledAt = &at
	l.ReconciliationSessionID = &sessionID
}

// ClearReconciled removes the cleared flag on unmatch
func (l *JournalLine) ClearReconciled() {
	l.IsReconciled = false
	l.ReconciledAt = nil
	l.ReconciliationSessionID = nil
}

// JournalEntry is a balanced set of journal lines on one date.
// Voiding is a flag, not a deletion; void entries drop out of balances.
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryDate             time.Time     `json:"entry_date"`
	Description           string        `json:"description"`
	IsVoid                bool          `json:"is_void"`
	Source                EntrySource   `json:"source"`
	AllocationOperationID *string       `json:"allocation_operation_id,omitempty"`
	Lines                 []JournalLine `json:"lines"`
}

// NewJournalEntry creates an empty entry; lines are added through AddDebit/
// AddCredit and the result sealed with Validate.
func NewJournalEntry(tenantID uuid.UUID, entryDate time.Time, description string, source EntrySource) (*JournalEntry, error) {
	if entryDate.IsZero() {
		return nil, shared.NewValidationError("journal entry date is required")
	}
	if strings.TrimSpace(description) == "" {
		return nil, shared.NewValidationError("journal entry description is required")
	}
	return &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryDate:           entryDate,
		Description:         description,
		Source:              source,
		Lines:               make([]JournalLine, 0, 4),
	}, nil
}

// SetOperationID attaches the idempotency key supplied by the allocation caller
func (e *JournalEntry) SetOperationID(operationID string) {
	if operationID == "" {
		return
	}
	e.AllocationOperationID = &operationID
}

// AddDebit appends a debit line. Negative amounts are rejected as an
// invariant violation; zero amounts are silently dropped.
func (e *JournalEntry) AddDebit(accountID uuid.UUID, amount decimal.Decimal, description string) error {
	return e.addLine(accountID, amount, decimal.Zero, description)
}

// AddCredit appends a credit line with the same zero/negative handling
func (e *JournalEntry) AddCredit(accountID uuid.UUID, amount decimal.Decimal, description string) error {
	return e.addLine(accountID, decimal.Zero, amount, description)
}

func (e *JournalEntry) addLine(accountID uuid.UUID, debit, credit decimal.Decimal, description string) error {
	if accountID == uuid.Nil {
		return shared.NewValidationError("journal line requires an account")
	}
	if debit.IsNegative() || credit.IsNegative() {
		return shared.NewInvariantError(fmt.Sprintf(
			"journal line for account %s has a negative value", accountID))
	}
	if debit.IsZero() && credit.IsZero() {
		return nil
	}
	e.Lines = append(e.Lines, JournalLine{
		BaseEntity:     shared.NewBaseEntity(),
		JournalEntryID: e.ID,
		AccountID:      accountID,
		Debit:          debit.Round(4),
		Credit:         credit.Round(4),
		Description:    description,
		Position:       len(e.Lines),
	})
	return nil
}

// TotalDebits sums the debit side
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits sums the credit side
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// Imbalance returns Σdebit − Σcredit
func (e *JournalEntry) Imbalance() decimal.Decimal {
	return e.TotalDebits().Sub(e.TotalCredits())
}

// Validate enforces the balance invariant before persistence
func (e *JournalEntry) Validate() error {
	if len(e.Lines) == 0 {
		return shared.NewValidationError("journal entry has no lines")
	}
	if imbalance := e.Imbalance(); imbalance.Abs().GreaterThan(BalanceTolerance) {
		return shared.NewInvariantError(fmt.Sprintf(
			"journal entry does not balance: debits %s, credits %s",
			e.TotalDebits().StringFixed(4), e.TotalCredits().StringFixed(4)))
	}
	return nil
}

// Void flags the entry void; it stays on record but leaves all balances
func (e *JournalEntry) Void() error {
	if e.IsVoid {
		return shared.NewStateError("already_void", "journal entry is already void")
	}
	e.IsVoid = true
	return nil
}

// LinesOnAccount returns the lines posted against one account
func (e *JournalEntry) LinesOnAccount(accountID uuid.UUID) []JournalLine {
	var out []JournalLine
	for _, l := range e.Lines {
		if l.AccountID == accountID {
			out = append(out, l)
		}
	}
	return out
}
