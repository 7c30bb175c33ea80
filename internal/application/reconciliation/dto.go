package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbanking "github.com/ledgerline/backend/internal/application/banking"
	appledger "github.com/ledgerline/backend/internal/application/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
)

// ResolveSessionQuery names the statement window to open or refresh
type ResolveSessionQuery struct {
	BankAccountID  uuid.UUID
	StatementStart time.Time
	StatementEnd   time.Time
}

// SetStatementBalanceRequest overrides the seeded statement balances.
// Either side may be set; omitted sides keep their current value.
type SetStatementBalanceRequest struct {
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	ClosingBalance *decimal.Decimal `json:"closing_balance"`
}

// MatchRequest pairs one feed line with one journal entry
type MatchRequest struct {
	TransactionID  uuid.UUID `json:"transaction_id" binding:"required"`
	JournalEntryID uuid.UUID `json:"journal_entry_id" binding:"required"`
}

// UnmatchRequest tears down all matches on one feed line
type UnmatchRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" binding:"required"`
}

// ExcludeRequest toggles a feed line out of or back into the session
type ExcludeRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" binding:"required"`
	Excluded      *bool     `json:"excluded" binding:"required"`
}

// AddAsNewRequest posts a balancing journal entry for a feed line with no
// ledger counterpart and matches the line against it in one step
type AddAsNewRequest struct {
	SessionID         uuid.UUID  `json:"session_id" binding:"required"`
	TransactionID     uuid.UUID  `json:"transaction_id" binding:"required"`
	CategoryAccountID *uuid.UUID `json:"category_account_id"`
	Description       string     `json:"description"`
}

// SessionView is the statement header of one session
type SessionView struct {
	ID             uuid.UUID        `json:"id"`
	BankAccountID  uuid.UUID        `json:"bank_account_id"`
	StatementStart time.Time        `json:"statement_start"`
	StatementEnd   time.Time        `json:"statement_end"`
	OpeningBalance *decimal.Decimal `json:"opening_balance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closing_balance,omitempty"`
	Status         string           `json:"status"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CompletedBy    *uuid.UUID       `json:"completed_by,omitempty"`
}

// CandidateEntry is an unreconciled journal entry offered for matching.
// Amount is the entry's signed movement on the bank's ledger account.
type CandidateEntry struct {
	ID          uuid.UUID       `json:"id"`
	EntryDate   time.Time       `json:"entry_date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
}

// SessionResponse is the full reconciliation workspace for one statement
// window: the session header, its derived summary, the attached feed lines
// and the ledger-side candidates still open for matching.
type SessionResponse struct {
	Session      SessionView                      `json:"session"`
	Summary      reconciliation.Summary           `json:"summary"`
	Transactions []appbanking.TransactionResponse `json:"transactions"`
	Candidates   []CandidateEntry                 `json:"candidates"`
}

// SummaryResponse reports the session header and summary after a mutation
type SummaryResponse struct {
	Session SessionView            `json:"session"`
	Summary reconciliation.Summary `json:"summary"`
}

// AddAsNewResponse reports the posted adjustment entry and the matched line
type AddAsNewResponse struct {
	JournalEntry appledger.JournalEntryResponse `json:"journal_entry"`
	Transaction  appbanking.TransactionResponse `json:"transaction"`
	Summary      reconciliation.Summary         `json:"summary"`
}

// ReconciliationAccountView is one bank account on the reconciliation
// landing screen, with its live ledger balance when linked
type ReconciliationAccountView struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Currency        string           `json:"currency"`
	LedgerAccountID *uuid.UUID       `json:"ledger_account_id,omitempty"`
	LedgerBalance   *decimal.Decimal `json:"ledger_balance,omitempty"`
	Active          bool             `json:"active"`
}

// PeriodBucket is one calendar month offered for reconciliation. Locked
// buckets overlap a completed session and need a staff reopen first.
type PeriodBucket struct {
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Locked bool      `json:"locked"`
}

// ToSessionView converts a session to its response header
func ToSessionView(session *reconciliation.Session) SessionView {
	return SessionView{
		ID:             session.ID,
		BankAccountID:  session.BankAccountID,
		StatementStart: session.StatementStart,
		StatementEnd:   session.StatementEnd,
		OpeningBalance: session.OpeningBalance,
		ClosingBalance: session.ClosingBalance,
		Status:         string(session.Status),
		CompletedAt:    session.CompletedAt,
		CompletedBy:    session.CompletedBy,
	}
}
