package reconciliation

import (
	"context"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
)

// TransactionScope provides transactional access to the repositories the
// reconciliation engine writes. Match, unmatch and session teardown touch
// several aggregates at once; the scope keeps them atomic.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the reconciliation write set bound to the
// scope's transaction. Row locks taken through these repositories are held
// until the transaction ends.
type TransactionalRepositories interface {
	// Sessions returns the session repository scoped to the current transaction
	Sessions() reconciliation.SessionRepository
	// Matches returns the match repository scoped to the current transaction
	Matches() reconciliation.MatchRepository
	// BankAccounts returns the bank account repository scoped to the current transaction
	BankAccounts() banking.BankAccountRepository
	// BankTransactions returns the bank transaction repository scoped to the current transaction
	BankTransactions() banking.BankTransactionRepository
	// Entries returns the journal entry repository scoped to the current transaction
	Entries() ledger.JournalEntryRepository
	// Accounts returns the account repository scoped to the current transaction
	Accounts() ledger.AccountRepository
}

// NoOpTransactionScope runs the function against fixed repositories without
// a real transaction. This is useful for testing.
type NoOpTransactionScope struct {
	sessions     reconciliation.SessionRepository
	matches      reconciliation.MatchRepository
	bankAccounts banking.BankAccountRepository
	bankTxs      banking.BankTransactionRepository
	entries      ledger.JournalEntryRepository
	accounts     ledger.AccountRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	sessions reconciliation.SessionRepository,
	matches reconciliation.MatchRepository,
	bankAccounts banking.BankAccountRepository,
	bankTxs banking.BankTransactionRepository,
	entries ledger.JournalEntryRepository,
	accounts ledger.AccountRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		sessions:     sessions,
		matches:      matches,
		bankAccounts: bankAccounts,
		bankTxs:      bankTxs,
		entries:      entries,
		accounts:     accounts,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Sessions returns the session repository.
func (s *NoOpTransactionScope) Sessions() reconciliation.SessionRepository { return s.sessions }

// Matches returns the match repository.
func (s *NoOpTransactionScope) Matches() reconciliation.MatchRepository { return s.matches }

// BankAccounts returns the bank account repository.
func (s *NoOpTransactionScope) BankAccounts() banking.BankAccountRepository { return s.bankAccounts }

// BankTransactions returns the bank transaction repository.
func (s *NoOpTransactionScope) BankTransactions() banking.BankTransactionRepository { return s.bankTxs }

// Entries returns the journal entry repository.
func (s *NoOpTransactionScope) Entries() ledger.JournalEntryRepository { return s.entries }

// Accounts returns the account repository.
func (s *NoOpTransactionScope) Accounts() ledger.AccountRepository { return s.accounts }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
