package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/banking"
)

// ImportRow is one already-parsed statement line. Parsing raw bank files is
// the upstream collaborator's job; this surface accepts clean rows only.
type ImportRow struct {
	Date        string          `json:"date" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ExternalID  *string         `json:"external_id"`
}

// ImportTransactionsRequest loads a batch of statement rows into one bank
// account's feed
type ImportTransactionsRequest struct {
	BankAccountID uuid.UUID   `json:"bank_account_id" binding:"required"`
	Rows          []ImportRow `json:"rows" binding:"required"`
}

// ImportTransactionsResponse reports the dedup and suggestion outcome
type ImportTransactionsResponse struct {
	Imported    int `json:"imported"`
	Duplicates  int `json:"duplicates"`
	Suggestions int `json:"suggestions"`
}

// ListTransactionsQuery narrows the feed listing
type ListTransactionsQuery struct {
	BankAccountID *uuid.UUID
	Status        *string
	From          *time.Time
	To            *time.Time
	Limit         int
}

// SuggestionResponse is the persisted matching hint on a transaction
type SuggestionResponse struct {
	Confidence decimal.Decimal `json:"confidence"`
	Reason     string          `json:"reason"`
	MatchType  string          `json:"match_type"`
}

// TransactionResponse is one feed line with its matching state
type TransactionResponse struct {
	ID                   uuid.UUID           `json:"id"`
	BankAccountID        uuid.UUID           `json:"bank_account_id"`
	TransactionDate      time.Time           `json:"transaction_date"`
	Description          string              `json:"description"`
	Amount               decimal.Decimal     `json:"amount"`
	ExternalID           *string             `json:"external_id,omitempty"`
	Status               string              `json:"status"`
	ReconciliationState  string              `json:"reconciliation_state"`
	AllocatedAmount      decimal.Decimal     `json:"allocated_amount"`
	RemainingUnallocated decimal.Decimal     `json:"remaining_unallocated"`
	IsReconciled         bool                `json:"is_reconciled"`
	ReconciledAt         *time.Time          `json:"reconciled_at,omitempty"`
	SessionID            *uuid.UUID          `json:"session_id,omitempty"`
	MatchedInvoiceID     *uuid.UUID          `json:"matched_invoice_id,omitempty"`
	MatchedBillID        *uuid.UUID          `json:"matched_bill_id,omitempty"`
	PostedJournalEntryID *uuid.UUID          `json:"posted_journal_entry_id,omitempty"`
	Suggestion           *SuggestionResponse `json:"suggestion,omitempty"`
	CriticVerdict        *string             `json:"critic_verdict,omitempty"`
	CriticReasons        []string            `json:"critic_reasons,omitempty"`
}

// CreateBankAccountRequest registers a feed source
type CreateBankAccountRequest struct {
	Name            string     `json:"name" binding:"required"`
	Currency        string     `json:"currency"`
	LedgerAccountID *uuid.UUID `json:"ledger_account_id"`
}

// LinkLedgerAccountRequest points a bank account at its ledger shadow
type LinkLedgerAccountRequest struct {
	LedgerAccountID uuid.UUID `json:"ledger_account_id" binding:"required"`
}

// BankAccountResponse is one feed source
type BankAccountResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Currency        string     `json:"currency"`
	LedgerAccountID *uuid.UUID `json:"ledger_account_id,omitempty"`
	Active          bool       `json:"active"`
}

// CreateRuleRequest registers a merchant pattern rule
type CreateRuleRequest struct {
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern" binding:"required"`
	AccountID uuid.UUID `json:"account_id" binding:"required"`
	Priority  int       `json:"priority"`
}

// RuleResponse is one merchant rule
type RuleResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern"`
	AccountID uuid.UUID `json:"account_id"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
}

// ToTransactionResponse converts a bank transaction to its response form
func ToTransactionResponse(tx *banking.BankTransaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                   tx.ID,
		BankAccountID:        tx.BankAccountID,
		TransactionDate:      tx.TransactionDate,
		Description:          tx.Description,
		Amount:               tx.Amount,
		ExternalID:           tx.ExternalID,
		Status:               tx.Status.String(),
		ReconciliationState:  string(tx.ReconciliationState),
		AllocatedAmount:      tx.AllocatedAmount,
		RemainingUnallocated: tx.RemainingUnallocated(),
		IsReconciled:         tx.IsReconciled,
		ReconciledAt:         tx.ReconciledAt,
		SessionID:            tx.SessionID,
		MatchedInvoiceID:     tx.MatchedInvoiceID,
		MatchedBillID:        tx.MatchedBillID,
		PostedJournalEntryID: tx.PostedJournalEntryID,
		CriticReasons:        tx.CriticReasons,
	}
	if tx.SuggestionConfidence != nil {
		resp.Suggestion = &SuggestionResponse{Confidence: *tx.SuggestionConfidence}
		if tx.SuggestionReason != nil {
			resp.Suggestion.Reason = *tx.SuggestionReason
		}
		if tx.SuggestionMatchType != nil {
			resp.Suggestion.MatchType = *tx.SuggestionMatchType
		}
	}
	if tx.CriticVerdict != nil {
		verdict := string(*tx.CriticVerdict)
		resp.CriticVerdict = &verdict
	}
	return resp
}

// ToBankAccountResponse converts a bank account to its response form
func ToBankAccountResponse(account *banking.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:              account.ID,
		Name:            account.Name,
		Currency:        string(account.Currency),
		LedgerAccountID: account.LedgerAccountID,
		Active:          account.Active,
	}
}

// ToRuleResponse converts a bank rule to its response form
func ToRuleResponse(rule *banking.BankRule) RuleResponse {
	return RuleResponse{
		ID:        rule.ID,
		Name:      rule.Name,
		Pattern:   rule.Pattern,
		AccountID: rule.AccountID,
		Priority:  rule.Priority,
		Active:    rule.Active,
	}
}
