package persistence

import (
	"context"

	appreview "github.com/ledgerline/backend/internal/application/review"
	"github.com/ledgerline/backend/internal/domain/review"
	"gorm.io/gorm"
)

// GormReviewTransactionScope implements the review TransactionScope
// using GORM transactions. A run and its document items commit or roll
// back as one unit.
type GormReviewTransactionScope struct {
	db *gorm.DB
}

// NewGormReviewTransactionScope creates a new GormReviewTransactionScope.
func NewGormReviewTransactionScope(db *gorm.DB) *GormReviewTransactionScope {
	return &GormReviewTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormReviewTransactionScope) Execute(ctx context.Context, fn func(repos appreview.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormReviewTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormReviewTransactionalRepositories provides access to all
// repositories within a transaction.
type gormReviewTransactionalRepositories struct {
	tx *gorm.DB
}

// Runs returns the run repository scoped to the current transaction.
func (r *gormReviewTransactionalRepositories) Runs() review.RunRepository {
	return NewGormReviewRunRepository(r.tx)
}

// Documents returns the document review repository scoped to the current transaction.
func (r *gormReviewTransactionalRepositories) Documents() review.DocumentReviewRepository {
	return NewGormDocumentReviewRepository(r.tx)
}

// Ensure GormReviewTransactionScope implements TransactionScope
var _ appreview.TransactionScope = (*GormReviewTransactionScope)(nil)

// Ensure gormReviewTransactionalRepositories implements TransactionalRepositories
var _ appreview.TransactionalRepositories = (*gormReviewTransactionalRepositories)(nil)
