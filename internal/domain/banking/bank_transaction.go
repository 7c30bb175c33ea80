package banking

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// TransactionStatus is the bank transaction matching lifecycle
type TransactionStatus string

const (
	TransactionStatusNew           TransactionStatus = "NEW"
	TransactionStatusPartial       TransactionStatus = "PARTIAL"
	TransactionStatusMatchedSingle TransactionStatus = "MATCHED_SINGLE"
	TransactionStatusMatchedMulti  TransactionStatus = "MATCHED_MULTI"
	TransactionStatusExcluded      TransactionStatus = "EXCLUDED"
)

// IsValid checks if the status is known
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusNew, TransactionStatusPartial, TransactionStatusMatchedSingle,
		TransactionStatusMatchedMulti, TransactionStatusExcluded:
		return true
	}
	return false
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// IsReconciled returns true for the fully matched statuses
func (s TransactionStatus) IsReconciled() bool {
	return s == TransactionStatusMatchedSingle || s == TransactionStatusMatchedMulti
}

// transitions is the explicit state table; identity transitions are
// permitted so the recompute rule can re-derive an unchanged status.
var transitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusNew:           {TransactionStatusPartial, TransactionStatusMatchedSingle, TransactionStatusMatchedMulti, TransactionStatusExcluded},
	TransactionStatusPartial:       {TransactionStatusMatchedSingle, TransactionStatusMatchedMulti, TransactionStatusNew},
	TransactionStatusMatchedSingle: {TransactionStatusNew},
	TransactionStatusMatchedMulti:  {TransactionStatusNew},
	TransactionStatusExcluded:      {TransactionStatusNew},
}

// CanTransitionTo consults the state table
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReconciliationState is the normalized display form of the status
type ReconciliationState string

const (
	ReconciliationStateUnreconciled ReconciliationState = "unreconciled"
	ReconciliationStatePartial      ReconciliationState = "partial"
	ReconciliationStateReconciled   ReconciliationState = "reconciled"
	ReconciliationStateExcluded     ReconciliationState = "excluded"
)

// NormalizeStatus maps a transaction status onto its reconciliation state
func NormalizeStatus(s TransactionStatus) ReconciliationState {
	switch {
	case s == TransactionStatusExcluded:
		return ReconciliationStateExcluded
	case s.IsReconciled():
		return ReconciliationStateReconciled
	case s == TransactionStatusPartial:
		return ReconciliationStatePartial
	default:
		return ReconciliationStateUnreconciled
	}
}

// CriticVerdict is the advisory high-risk check result
type CriticVerdict string

const (
	CriticVerdictOK   CriticVerdict = "ok"
	CriticVerdictWarn CriticVerdict = "warn"
	CriticVerdictFail CriticVerdict = "fail"
)

// IsValid checks if the verdict is known
func (v CriticVerdict) IsValid() bool {
	return v == CriticVerdictOK || v == CriticVerdictWarn || v == CriticVerdictFail
}

// CriticReasons is stored as JSONB alongside the verdict
type CriticReasons []string

// Value implements driver.Valuer for JSONB storage
func (r CriticReasons) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB retrieval
func (r *CriticReasons) Scan(value interface{}) error {
	if value == nil {
		*r = CriticReasons{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan CriticReasons: unsupported type")
	}
	if len(bytes) == 0 {
		*r = CriticReasons{}
		return nil
	}
	return json.Unmarshal(bytes, r)
}

// BankTransaction is one imported statement line and its matching state.
// Amount is signed: deposits are non-negative, withdrawals negative.
type BankTransaction struct {
	shared.TenantAggregateRoot
	BankAccountID        uuid.UUID           `json:"bank_account_id"`
	TransactionDate      time.Time           `json:"transaction_date"`
	Description          string              `json:"description"`
	Amount               decimal.Decimal     `json:"amount"`
	ExternalID           *string             `json:"external_id,omitempty"`
	Fingerprint          string              `json:"fingerprint"`
	Status               TransactionStatus   `json:"status"`
	ReconciliationState  ReconciliationState `json:"reconciliation_state"`
	AllocatedAmount      decimal.Decimal     `json:"allocated_amount"`
	IsReconciled         bool                `json:"is_reconciled"`
	ReconciledAt         *time.Time          `json:"reconciled_at,omitempty"`
	SessionID            *uuid.UUID          `json:"session_id,omitempty"`
	CategoryAccountID    *uuid.UUID          `json:"category_account_id,omitempty"`
	MatchedInvoiceID     *uuid.UUID          `json:"matched_invoice_id,omitempty"`
	MatchedBillID        *uuid.UUID          `json:"matched_bill_id,omitempty"`
	PostedJournalEntryID *uuid.UUID          `json:"posted_journal_entry_id,omitempty"`
	SuggestionConfidence *decimal.Decimal    `json:"suggestion_confidence,omitempty"`
	SuggestionReason     *string             `json:"suggestion_reason,omitempty"`
	SuggestionMatchType  *string             `json:"suggestion_match_type,omitempty"`
	CriticVerdict        *CriticVerdict      `json:"critic_verdict,omitempty"`
	CriticReasons        CriticReasons       `json:"critic_reasons,omitempty"`
}

// NewBankTransaction creates a statement line with its dedup fingerprint
func NewBankTransaction(tenantID, bankAccountID uuid.UUID, date time.Time, description string, amount decimal.Decimal, externalID *string) (*BankTransaction, error) {
	if bankAccountID == uuid.Nil {
		return nil, shared.NewValidationError("bank account is required")
	}
	if date.IsZero() {
		return nil, shared.NewValidationError("transaction date is required")
	}
	tx := &BankTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccountID:       bankAccountID,
		TransactionDate:     date,
		Description:         description,
		Amount:              amount.Round(2),
		ExternalID:          externalID,
		Status:              TransactionStatusNew,
		ReconciliationState: ReconciliationStateUnreconciled,
		AllocatedAmount:     decimal.Zero,
	}
	tx.Fingerprint = Fingerprint(bankAccountID, date, description, tx.Amount)
	return tx, nil
}

// IsDeposit returns true for non-negative amounts
func (t *BankTransaction) IsDeposit() bool {
	return !t.Amount.IsNegative()
}

// AbsoluteAmount returns |amount|
func (t *BankTransaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// RemainingUnallocated returns |amount| − allocated_amount
func (t *BankTransaction) RemainingUnallocated() decimal.Decimal {
	return t.AbsoluteAmount().Sub(t.AllocatedAmount)
}

// transition moves the status through the state table and keeps the
// derived reconciliation fields in sync.
func (t *BankTransaction) transition(next TransactionStatus) error {
	if !next.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid transaction status: %s", next))
	}
	if !t.Status.CanTransitionTo(next) {
		return shared.NewStateError("invalid_status_transition", fmt.Sprintf(
			"bank transaction cannot move from %s to %s", t.Status, next))
	}
	t.Status = next
	t.ReconciliationState = NormalizeStatus(next)
	if next.IsReconciled() {
		if !t.IsReconciled {
			now := time.Now()
			t.IsReconciled = true
			t.ReconciledAt = &now
		}
	} else {
		t.IsReconciled = false
		t.ReconciledAt = nil
	}
	return nil
}

// NormalizeReconciliationState re-derives the display state from the
// status, used when attaching legacy rows to a session.
func (t *BankTransaction) NormalizeReconciliationState() {
	t.ReconciliationState = NormalizeStatus(t.Status)
}

// ApplyMatchTotal applies the recompute rule after any match-table change.
// The allocated sum above |amount| is an invariant violation.
func (t *BankTransaction) ApplyMatchTotal(sum decimal.Decimal, matchCount int) error {
	if t.Status == TransactionStatusExcluded {
		// Excluded lines keep their status; the sum is stored for audit.
		t.AllocatedAmount = sum
		return nil
	}
	abs := t.AbsoluteAmount()
	switch {
	case sum.GreaterThan(abs):
		return shared.NewInvariantError(fmt.Sprintf(
			"allocated %s exceeds bank amount %s", sum.StringFixed(2), abs.StringFixed(2)))
	case sum.IsZero():
		if err := t.transition(TransactionStatusNew); err != nil {
			return err
		}
	case sum.LessThan(abs):
		if err := t.transition(TransactionStatusPartial); err != nil {
			return err
		}
	case matchCount > 1:
		if err := t.transition(TransactionStatusMatchedMulti); err != nil {
			return err
		}
	default:
		if err := t.transition(TransactionStatusMatchedSingle); err != nil {
			return err
		}
	}
	t.AllocatedAmount = sum
	return nil
}

// Exclude removes the line from reconciliation. It contributes zero to the
// cleared sum but counts as handled for the completion gate.
func (t *BankTransaction) Exclude() error {
	return t.transition(TransactionStatusExcluded)
}

// Include reverses an exclusion back to NEW
func (t *BankTransaction) Include() error {
	if t.Status != TransactionStatusExcluded {
		return shared.NewStateError("not_excluded", "bank transaction is not excluded")
	}
	return t.transition(TransactionStatusNew)
}

// ResetToNew clears all matching state on unmatch
func (t *BankTransaction) ResetToNew() error {
	if err := t.transition(TransactionStatusNew); err != nil {
		return err
	}
	t.AllocatedAmount = decimal.Zero
	t.MatchedInvoiceID = nil
	t.MatchedBillID = nil
	t.PostedJournalEntryID = nil
	return nil
}

// AttachToSession binds the line to a session. A line already held by a
// different session is locked until unmatched there.
func (t *BankTransaction) AttachToSession(sessionID uuid.UUID) error {
	if t.SessionID != nil && *t.SessionID != sessionID {
		return shared.NewStateError("locked_to_session", "bank transaction belongs to another reconciliation session")
	}
	t.SessionID = &sessionID
	t.NormalizeReconciliationState()
	return nil
}

// DetachFromSession releases the session hold
func (t *BankTransaction) DetachFromSession() {
	t.SessionID = nil
}

// EnsureAllocatable gates the allocation engine's entry conditions
func (t *BankTransaction) EnsureAllocatable() error {
	if t.Status == TransactionStatusExcluded {
		return shared.NewValidationError("cannot allocate an excluded bank transaction")
	}
	if t.RemainingUnallocated().LessThanOrEqual(decimal.Zero) {
		return shared.NewStateError(shared.CodeTransactionMatched, "bank transaction is already fully allocated")
	}
	return nil
}

// SetSuggestion stores the top match suggestion for display
func (t *BankTransaction) SetSuggestion(confidence decimal.Decimal, reason, matchType string) {
	t.SuggestionConfidence = &confidence
	t.SuggestionReason = &reason
	t.SuggestionMatchType = &matchType
}

// ClearSuggestion removes a stale suggestion
func (t *BankTransaction) ClearSuggestion() {
	t.SuggestionConfidence = nil
	t.SuggestionReason = nil
	t.SuggestionMatchType = nil
}

// SetCriticVerdict persists the advisory high-risk check outcome
func (t *BankTransaction) SetCriticVerdict(verdict CriticVerdict, reasons []string) error {
	if !verdict.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid critic verdict: %s", verdict))
	}
	t.CriticVerdict = &verdict
	t.CriticReasons = reasons
	return nil
}
