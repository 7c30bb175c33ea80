package banking

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// BankAccount is a feed source. Its balance shadows the linked ledger
// account; an unlinked account has no ledger balance and cannot open
// reconciliation sessions.
type BankAccount struct {
	shared.TenantAggregateRoot
	Name            string               `json:"name"`
	Currency        valueobject.Currency `json:"currency"`
	LedgerAccountID *uuid.UUID           `json:"ledger_account_id,omitempty"`
	Active          bool                 `json:"active"`
}

// NewBankAccount creates a bank account for a tenant
func NewBankAccount(tenantID uuid.UUID, name string, currency valueobject.Currency) (*BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("bank account name is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Currency:            currency,
		Active:              true,
	}, nil
}

// LinkLedgerAccount points the bank account at its ledger shadow
func (a *BankAccount) LinkLedgerAccount(accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return shared.NewValidationError("ledger account id is required")
	}
	a.LedgerAccountID = &accountID
	return nil
}

// IsLinked returns true when a ledger shadow account is set
func (a *BankAccount) IsLinked() bool {
	return a.LedgerAccountID != nil
}
