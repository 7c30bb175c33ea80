package persistence

import (
	"context"

	appreconciliation "github.com/ledgerline/backend/internal/application/reconciliation"
	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"gorm.io/gorm"
)

// GormReconciliationTransactionScope implements the reconciliation
// TransactionScope using GORM transactions. Match and session teardown
// mutations commit or roll back as one unit.
type GormReconciliationTransactionScope struct {
	db *gorm.DB
}

// NewGormReconciliationTransactionScope creates a new GormReconciliationTransactionScope.
func NewGormReconciliationTransactionScope(db *gorm.DB) *GormReconciliationTransactionScope {
	return &GormReconciliationTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormReconciliationTransactionScope) Execute(ctx context.Context, fn func(repos appreconciliation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormReconciliationTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormReconciliationTransactionalRepositories provides access to all
// repositories within a transaction.
type gormReconciliationTransactionalRepositories struct {
	tx *gorm.DB
}

// Sessions returns the session repository scoped to the current transaction.
func (r *gormReconciliationTransactionalRepositories) Sessions() reconciliation.SessionRepository {
	return NewGormSessionRepository(r.tx)
}

// Matches returns the match repository scoped to the current transaction.
func (r *gormReconciliationTransactionalRepositories) Matches() reconciliation.MatchRepository {
	return NewGormMatchRepository(r.tx)
}

// BankAccounts returns the bank account repository scoped to the current transaction.
func (r *gormReconciliationTransactionalRepositories) BankAccounts() banking.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

// BankTransactions returns the bank transaction repository scoped to the current transaction.
func (r *gormReconciliationTransactionalRepositories) BankTransactions() banking.BankTransactionRepository {
	return NewGormBankTransactionRepository(r.tx)
}

// Entries returns the journal entry repository scoped to the current transaction.
func (r *gormReconciliationTransactionalRepositories) Entries() ledger.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormReconciliationTransactionalRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Ensure GormReconciliationTransactionScope implements TransactionScope
var _ appreconciliation.TransactionScope = (*GormReconciliationTransactionScope)(nil)

// Ensure gormReconciliationTransactionalRepositories implements TransactionalRepositories
var _ appreconciliation.TransactionalRepositories = (*gormReconciliationTransactionalRepositories)(nil)
