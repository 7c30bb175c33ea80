// Package ledger contains the double-entry core: accounts, journal entries,
// tax calculation, and the per-tenant default chart of accounts.
package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// AccountType classifies an account on the five standard axes
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is a known axis
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsDebitNormal returns true when the account increases on the debit side.
// Balance is debits minus credits for these types, credits minus debits otherwise.
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// DefaultAccountRole names the slots the allocation and reconciliation
// engines resolve against the tenant's chart
type DefaultAccountRole string

const (
	RoleCash               DefaultAccountRole = "CASH"
	RoleAccountsReceivable DefaultAccountRole = "ACCOUNTS_RECEIVABLE"
	RoleAccountsPayable    DefaultAccountRole = "ACCOUNTS_PAYABLE"
	RoleSalesTaxPayable    DefaultAccountRole = "SALES_TAX_PAYABLE"
	RoleTaxRecoverable     DefaultAccountRole = "TAX_RECOVERABLE"
	RoleFallbackIncome     DefaultAccountRole = "FALLBACK_INCOME"
	RoleFallbackExpense    DefaultAccountRole = "FALLBACK_EXPENSE"
	RoleUncategorized      DefaultAccountRole = "UNCATEGORIZED"
)

// Account represents one ledger account within a tenant's chart
type Account struct {
	shared.TenantAggregateRoot
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Description string      `json:"description"`
	Active      bool        `json:"active"`
	SystemRole  *string     `json:"system_role,omitempty"` // set on template-materialized accounts
}

// NewAccount creates a new ledger account
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType) (*Account, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewValidationError("account code is required")
	}
	if name == "" {
		return nil, shared.NewValidationError("account name is required")
	}
	if !accountType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid account type: %s", accountType))
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		Active:              true,
	}, nil
}

// Deactivate marks the account inactive. Inactive accounts are rejected as
// allocation targets but still participate in historical balances.
func (a *Account) Deactivate() {
	a.Active = false
}

// Activate re-enables the account
func (a *Account) Activate() {
	a.Active = true
}

// Rename updates code and name after validation
func (a *Account) Rename(code, name string) error {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return shared.NewValidationError("account code and name are required")
	}
	a.Code = code
	a.Name = name
	return nil
}

// DefaultAccountSpec is one row of the chart template materialized per tenant
type DefaultAccountSpec struct {
	Code string
	Name string
	Type AccountType
	Role DefaultAccountRole
}

// UncategorizedAccountCode is the holding account created on demand for
// add-as-new postings that carry no category.
const UncategorizedAccountCode = "9999"

// DefaultChart returns the chart-of-accounts template. Materialization is
// idempotent via get-or-create on (tenant, code).
func DefaultChart() []DefaultAccountSpec {
	return []DefaultAccountSpec{
		{Code: "1000", Name: "Cash", Type: AccountTypeAsset, Role: RoleCash},
		{Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Role: RoleAccountsReceivable},
		{Code: "1400", Name: "Sales Tax Recoverable", Type: AccountTypeAsset, Role: RoleTaxRecoverable},
		{Code: "2100", Name: "Accounts Payable", Type: AccountTypeLiability, Role: RoleAccountsPayable},
		{Code: "2200", Name: "Sales Tax Payable", Type: AccountTypeLiability, Role: RoleSalesTaxPayable},
		{Code: "3000", Name: "Owner's Equity", Type: AccountTypeEquity, Role: ""},
		{Code: "4000", Name: "Sales Income", Type: AccountTypeIncome, Role: RoleFallbackIncome},
		{Code: "4900", Name: "Other Income", Type: AccountTypeIncome, Role: ""},
		{Code: "6000", Name: "General Expenses", Type: AccountTypeExpense, Role: RoleFallbackExpense},
		{Code: "6100", Name: "Bank Fees", Type: AccountTypeExpense, Role: ""},
	}
}

// UncategorizedSpec returns the on-demand holding account row
func UncategorizedSpec() DefaultAccountSpec {
	return DefaultAccountSpec{
		Code: UncategorizedAccountCode,
		Name: "Uncategorized",
		Type: AccountTypeExpense,
		Role: RoleUncategorized,
	}
}

// DefaultAccounts bundles the resolved role accounts the engines post against
type DefaultAccounts struct {
	Cash            *Account
	Receivable      *Account
	Payable         *Account
	SalesTaxPayable *Account
	TaxRecoverable  *Account
	FallbackIncome  *Account
	FallbackExpense *Account
}

// Validate ensures every role slot is populated
func (d *DefaultAccounts) Validate() error {
	if d.Cash == nil || d.Receivable == nil || d.Payable == nil ||
		d.SalesTaxPayable == nil || d.TaxRecoverable == nil ||
		d.FallbackIncome == nil || d.FallbackExpense == nil {
		return shared.NewValidationError("no default accounts configured for tenant")
	}
	return nil
}
