package ledger

import (
	"context"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
)

// TransactionScope provides transactional access to the repositories the
// allocation engine writes. When a function is executed within a scope, all
// repository operations share the same database transaction and commit or
// roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the allocation write set bound to the
// scope's transaction. Row locks taken through these repositories are held
// until the transaction ends.
type TransactionalRepositories interface {
	// Accounts returns the account repository scoped to the current transaction
	Accounts() ledger.AccountRepository
	// Entries returns the journal entry repository scoped to the current transaction
	Entries() ledger.JournalEntryRepository
	// TaxRates returns the tax rate repository scoped to the current transaction
	TaxRates() ledger.TaxRateRepository
	// Invoices returns the invoice repository scoped to the current transaction
	Invoices() ledger.InvoiceRepository
	// Bills returns the bill repository scoped to the current transaction
	Bills() ledger.BillRepository
	// BankAccounts returns the bank account repository scoped to the current transaction
	BankAccounts() banking.BankAccountRepository
	// BankTransactions returns the bank transaction repository scoped to the current transaction
	BankTransactions() banking.BankTransactionRepository
	// Matches returns the match repository scoped to the current transaction
	Matches() reconciliation.MatchRepository
}

// NoOpTransactionScope runs the function against fixed repositories without
// a real transaction. This is useful for testing.
type NoOpTransactionScope struct {
	accounts     ledger.AccountRepository
	entries      ledger.JournalEntryRepository
	taxRates     ledger.TaxRateRepository
	invoices     ledger.InvoiceRepository
	bills        ledger.BillRepository
	bankAccounts banking.BankAccountRepository
	bankTxs      banking.BankTransactionRepository
	matches      reconciliation.MatchRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	accounts ledger.AccountRepository,
	entries ledger.JournalEntryRepository,
	taxRates ledger.TaxRateRepository,
	invoices ledger.InvoiceRepository,
	bills ledger.BillRepository,
	bankAccounts banking.BankAccountRepository,
	bankTxs banking.BankTransactionRepository,
	matches reconciliation.MatchRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accounts:     accounts,
		entries:      entries,
		taxRates:     taxRates,
		invoices:     invoices,
		bills:        bills,
		bankAccounts: bankAccounts,
		bankTxs:      bankTxs,
		matches:      matches,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Accounts returns the account repository.
func (s *NoOpTransactionScope) Accounts() ledger.AccountRepository { return s.accounts }

// Entries returns the journal entry repository.
func (s *NoOpTransactionScope) Entries() ledger.JournalEntryRepository { return s.entries }

// TaxRates returns the tax rate repository.
func (s *NoOpTransactionScope) TaxRates() ledger.TaxRateRepository { return s.taxRates }

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() ledger.InvoiceRepository { return s.invoices }

// Bills returns the bill repository.
func (s *NoOpTransactionScope) Bills() ledger.BillRepository { return s.bills }

// BankAccounts returns the bank account repository.
func (s *NoOpTransactionScope) BankAccounts() banking.BankAccountRepository { return s.bankAccounts }

// BankTransactions returns the bank transaction repository.
func (s *NoOpTransactionScope) BankTransactions() banking.BankTransactionRepository { return s.bankTxs }

// Matches returns the match repository.
func (s *NoOpTransactionScope) Matches() reconciliation.MatchRepository { return s.matches }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
