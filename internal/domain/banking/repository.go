package banking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BankAccountRepository defines persistence for bank accounts
type BankAccountRepository interface {
	// FindByIDForTenant finds a bank account scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)

	// FindAllForTenant lists the tenant's bank accounts
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]BankAccount, error)

	// Save creates or updates a bank account
	Save(ctx context.Context, account *BankAccount) error
}

// TransactionFilter narrows bank transaction queries
type TransactionFilter struct {
	BankAccountID *uuid.UUID
	Status        *TransactionStatus
	From          *time.Time
	To            *time.Time
	Limit         int
}

// BankTransactionRepository defines persistence for statement lines
type BankTransactionRepository interface {
	// FindByIDForTenant finds a transaction scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)

	// FindByIDForTenantLocked loads the row under SELECT ... FOR UPDATE.
	// Allocation and match mutations serialize on this lock.
	FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)

	// FindForTenant lists transactions matching the filter, newest first
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]BankTransaction, error)

	// FindExistingFingerprints returns which of the given dedup keys are
	// already stored for the account
	FindExistingFingerprints(ctx context.Context, tenantID, bankAccountID uuid.UUID, fingerprints []string) (map[string]bool, error)

	// FindOrphansInWindow lists transactions on the account inside the date
	// window that belong to no session yet
	FindOrphansInWindow(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]BankTransaction, error)

	// FindBySession lists the transactions attached to a session
	FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]BankTransaction, error)

	// FirstTransactionDate returns the earliest statement date on the
	// account, nil when the feed is empty
	FirstTransactionDate(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*time.Time, error)

	// UnreconciledSessionCounts returns how many non-excluded session
	// transactions are unreconciled and the total session transaction count
	UnreconciledSessionCounts(ctx context.Context, tenantID uuid.UUID) (unreconciled, total int64, err error)

	// Save creates or updates a transaction
	Save(ctx context.Context, tx *BankTransaction) error

	// SaveAll persists a batch of imported transactions
	SaveAll(ctx context.Context, txs []*BankTransaction) error
}

// BankRuleRepository defines persistence for merchant rules
type BankRuleRepository interface {
	// FindActiveForTenant lists active rules, highest priority first
	FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]BankRule, error)

	// FindByIDForTenant finds a rule scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankRule, error)

	// Save creates or updates a rule
	Save(ctx context.Context, rule *BankRule) error
}
