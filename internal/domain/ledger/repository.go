package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence for ledger accounts
type AccountRepository interface {
	// FindByIDForTenant finds an account by ID scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its chart code for a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)

	// FindAllForTenant lists all accounts for a tenant, active first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Account, error)

	// GetOrCreate returns the account with the spec's code, creating it from
	// the spec when absent. Safe under concurrent materialization.
	GetOrCreate(ctx context.Context, tenantID uuid.UUID, spec DefaultAccountSpec) (*Account, error)

	// BalanceAsOf computes the account balance over non-void journal lines
	// dated on or before the given date. Debit-normal accounts report
	// Σdebit − Σcredit, the rest Σcredit − Σdebit.
	BalanceAsOf(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
}

// JournalEntryFilter narrows journal entry queries
type JournalEntryFilter struct {
	From        *time.Time
	To          *time.Time
	IncludeVoid bool
	Source      *EntrySource
}

// JournalEntryRepository defines persistence for journal entries and lines
type JournalEntryRepository interface {
	// FindByIDForTenant loads an entry with its lines, tenant scoped
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// FindByOperationID finds the entry bearing an allocation operation id,
	// nil when no such entry exists
	FindByOperationID(ctx context.Context, tenantID uuid.UUID, operationID string) (*JournalEntry, error)

	// FindForTenant lists entries with lines for a tenant
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// FindUnreconciledOnAccount lists non-void entries carrying at least one
	// unreconciled line on the given account within the window. These are
	// the match candidates for a reconciliation session.
	FindUnreconciledOnAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) ([]JournalEntry, error)

	// Save persists an entry together with its lines
	Save(ctx context.Context, entry *JournalEntry) error

	// SetLinesReconciled flags all of the entry's lines on one account,
	// stamping the session; clearing passes a nil session
	SetLinesReconciled(ctx context.Context, tenantID, entryID, accountID uuid.UUID, sessionID *uuid.UUID, reconciled bool) error

	// ClearSessionLines removes reconciliation flags from every line stamped
	// with the session, used by session delete/reset
	ClearSessionLines(ctx context.Context, tenantID, sessionID uuid.UUID) error
}

// TaxRateRepository defines persistence for tax rates
type TaxRateRepository interface {
	// FindByIDForTenant finds a tax rate scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TaxRate, error)

	// FindAllForTenant lists tax rates for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]TaxRate, error)

	// Save creates or updates a tax rate
	Save(ctx context.Context, rate *TaxRate) error
}

// InvoiceRepository defines the receivable-target contract for allocation
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByIDForTenantLocked loads the invoice under SELECT ... FOR UPDATE
	FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindOpenForTenant lists invoices with an outstanding balance, used as
	// match candidates for incoming bank deposits
	FindOpenForTenant(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error)

	// SettlementCounts returns how many invoices are fully paid and how
	// many exist, used by the companion coverage view
	SettlementCounts(ctx context.Context, tenantID uuid.UUID) (settled, total int64, err error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error
}

// BillRepository defines the payable-target contract for allocation
type BillRepository interface {
	// FindByIDForTenant finds a bill scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)

	// FindByIDForTenantLocked loads the bill under SELECT ... FOR UPDATE
	FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)

	// FindOpenForTenant lists bills with an outstanding balance, used as
	// match candidates for outgoing bank withdrawals
	FindOpenForTenant(ctx context.Context, tenantID uuid.UUID) ([]Bill, error)

	// Save creates or updates a bill
	Save(ctx context.Context, bill *Bill) error
}
