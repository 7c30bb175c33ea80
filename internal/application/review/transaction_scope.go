package review

import (
	"context"

	"github.com/ledgerline/backend/internal/domain/review"
)

// TransactionScope provides transactional access to the repositories the
// review pipelines write. A run and its document items commit together;
// the advisor never runs inside this scope.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the review write set bound to the
// scope's transaction.
type TransactionalRepositories interface {
	// Runs returns the run repository scoped to the current transaction
	Runs() review.RunRepository
	// Documents returns the document review repository scoped to the current transaction
	Documents() review.DocumentReviewRepository
}

// NoOpTransactionScope runs the function against fixed repositories without
// a real transaction. This is useful for testing.
type NoOpTransactionScope struct {
	runs      review.RunRepository
	documents review.DocumentReviewRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(runs review.RunRepository, documents review.DocumentReviewRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{runs: runs, documents: documents}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Runs returns the run repository.
func (s *NoOpTransactionScope) Runs() review.RunRepository { return s.runs }

// Documents returns the document review repository.
func (s *NoOpTransactionScope) Documents() review.DocumentReviewRepository { return s.documents }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
