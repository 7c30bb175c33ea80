package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/ledger"
)

// AllocationKind tags one allocation row with its posting semantics
type AllocationKind string

const (
	AllocationKindInvoice       AllocationKind = "INVOICE"
	AllocationKindBill          AllocationKind = "BILL"
	AllocationKindDirectIncome  AllocationKind = "DIRECT_INCOME"
	AllocationKindDirectExpense AllocationKind = "DIRECT_EXPENSE"
	AllocationKindCreditNote    AllocationKind = "CREDIT_NOTE"
)

// IsValid checks if the kind is known
func (k AllocationKind) IsValid() bool {
	switch k {
	case AllocationKindInvoice, AllocationKindBill, AllocationKindDirectIncome,
		AllocationKindDirectExpense, AllocationKindCreditNote:
		return true
	}
	return false
}

// RequiresDeposit reports whether the kind only applies to money coming in
func (k AllocationKind) RequiresDeposit() bool {
	return k == AllocationKindInvoice || k == AllocationKindCreditNote || k == AllocationKindDirectIncome
}

// ==================== Allocation DTOs ====================

// AllocationInput is one row of an allocation request. Invoice and bill
// rows address a target document; direct and credit-note rows address a
// ledger account. Tax fields apply to direct rows only.
type AllocationInput struct {
	Kind         AllocationKind       `json:"kind" binding:"required"`
	Amount       decimal.Decimal      `json:"amount" binding:"required"`
	TargetID     *uuid.UUID           `json:"target_id"`
	AccountID    *uuid.UUID           `json:"account_id"`
	TaxTreatment *ledger.TaxTreatment `json:"tax_treatment"`
	TaxRateID    *uuid.UUID           `json:"tax_rate_id"`
	Description  string               `json:"description"`
}

// AllocateRequest asks the engine to post one bank transaction into the
// ledger. Fees and overpayment are magnitudes; rounding may be signed.
type AllocateRequest struct {
	Allocations       []AllocationInput `json:"allocations" binding:"required"`
	Fees              decimal.Decimal   `json:"fees"`
	Rounding          decimal.Decimal   `json:"rounding"`
	Overpayment       decimal.Decimal   `json:"overpayment"`
	FeesAccountID     *uuid.UUID        `json:"fees_account_id"`
	RoundingAccountID *uuid.UUID        `json:"rounding_account_id"`
	ToleranceCents    *int              `json:"tolerance_cents"`
	OperationID       string            `json:"operation_id"`
}

// Tolerance returns the reconciliation tolerance as a decimal amount,
// defaulting to two cents when the request leaves it unset.
func (r AllocateRequest) Tolerance() decimal.Decimal {
	cents := DefaultToleranceCents
	if r.ToleranceCents != nil {
		cents = *r.ToleranceCents
	}
	if cents < 0 {
		cents = 0
	}
	return decimal.New(int64(cents), -2)
}

// DefaultToleranceCents is the reconciliation tolerance applied when the
// caller does not supply one.
const DefaultToleranceCents = 2

// JournalLineResponse is one line of a posted entry
type JournalLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	Position    int             `json:"position"`
}

// JournalEntryResponse is a posted entry with its lines
type JournalEntryResponse struct {
	ID           uuid.UUID             `json:"id"`
	EntryDate    time.Time             `json:"entry_date"`
	Description  string                `json:"description"`
	Source       string                `json:"source"`
	IsVoid       bool                  `json:"is_void"`
	OperationID  *string               `json:"operation_id,omitempty"`
	Lines        []JournalLineResponse `json:"lines"`
	TotalDebits  decimal.Decimal       `json:"total_debits"`
	TotalCredits decimal.Decimal       `json:"total_credits"`
}

// AllocateResponse returns the posted entry and the refreshed transaction
// state. AlreadyPosted marks an idempotent replay.
type AllocateResponse struct {
	JournalEntry     JournalEntryResponse `json:"journal_entry"`
	TransactionID    uuid.UUID            `json:"transaction_id"`
	Status           string               `json:"status"`
	AllocatedAmount  decimal.Decimal      `json:"allocated_amount"`
	MatchedInvoiceID *uuid.UUID           `json:"matched_invoice_id,omitempty"`
	MatchedBillID    *uuid.UUID           `json:"matched_bill_id,omitempty"`
	AlreadyPosted    bool                 `json:"already_posted"`
}

// AccountResponse is one chart account
type AccountResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Active     bool      `json:"active"`
	SystemRole *string   `json:"system_role,omitempty"`
}

// ToJournalEntryResponse converts a journal entry to its response form
func ToJournalEntryResponse(entry *ledger.JournalEntry) JournalEntryResponse {
	lines := make([]JournalLineResponse, len(entry.Lines))
	for i, l := range entry.Lines {
		lines[i] = JournalLineResponse{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
			Position:    l.Position,
		}
	}
	return JournalEntryResponse{
		ID:           entry.ID,
		EntryDate:    entry.EntryDate,
		Description:  entry.Description,
		Source:       string(entry.Source),
		IsVoid:       entry.IsVoid,
		OperationID:  entry.AllocationOperationID,
		Lines:        lines,
		TotalDebits:  entry.TotalDebits(),
		TotalCredits: entry.TotalCredits(),
	}
}

// ToAccountResponse converts an account to its response form
func ToAccountResponse(account *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:         account.ID,
		Code:       account.Code,
		Name:       account.Name,
		Type:       string(account.Type),
		Active:     account.Active,
		SystemRole: account.SystemRole,
	}
}
