package persistence

import (
	"context"

	appledger "github.com/ledgerline/backend/internal/application/ledger"
	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"gorm.io/gorm"
)

// GormLedgerTransactionScope implements the ledger TransactionScope using
// GORM transactions. It provides atomic execution of multiple repository
// operations.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope.
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormLedgerTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormLedgerTransactionalRepositories provides access to all repositories
// within a transaction.
type gormLedgerTransactionalRepositories struct {
	tx *gorm.DB
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Entries returns the journal entry repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) Entries() ledger.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

// TaxRates returns the tax rate repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) TaxRates() ledger.TaxRateRepository {
	return NewGormTaxRateRepository(r.tx)
}

// Invoices returns the invoice repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) Invoices() ledger.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Bills returns the bill repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) Bills() ledger.BillRepository {
	return NewGormBillRepository(r.tx)
}

// BankAccounts returns the bank account repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) BankAccounts() banking.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

// BankTransactions returns the bank transaction repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) BankTransactions() banking.BankTransactionRepository {
	return NewGormBankTransactionRepository(r.tx)
}

// Matches returns the match repository scoped to the current transaction.
func (r *gormLedgerTransactionalRepositories) Matches() reconciliation.MatchRepository {
	return NewGormMatchRepository(r.tx)
}

// Ensure GormLedgerTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)

// Ensure gormLedgerTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormLedgerTransactionalRepositories)(nil)
