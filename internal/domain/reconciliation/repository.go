package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionRepository defines persistence for reconciliation sessions
type SessionRepository interface {
	// FindByIDForTenant finds a session scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Session, error)

	// FindByPeriod finds the session covering exactly this statement period
	// on the account, nil when none exists
	FindByPeriod(ctx context.Context, tenantID, bankAccountID uuid.UUID, start, end time.Time) (*Session, error)

	// FindAllForAccount lists sessions for a bank account, newest first
	FindAllForAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]Session, error)

	// FindCompletedOverlapping lists completed sessions whose statement
	// period overlaps [from, to]. Feeds the locked flag on period listings.
	FindCompletedOverlapping(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]Session, error)

	// Save creates or updates a session
	Save(ctx context.Context, session *Session) error

	// Delete removes a session record
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// MatchRepository defines persistence for match rows
type MatchRepository interface {
	// FindByTransaction lists the match rows for one bank transaction
	FindByTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) ([]Match, error)

	// SumForTransaction totals matched amounts for one bank transaction
	SumForTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) (MatchTotals, error)

	// DeleteByTransaction removes all match rows for one bank transaction
	DeleteByTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) error

	// DeleteByTransactions removes match rows for a set of transactions
	DeleteByTransactions(ctx context.Context, tenantID uuid.UUID, bankTransactionIDs []uuid.UUID) error

	// Save creates a match row
	Save(ctx context.Context, match *Match) error

	// SaveAll persists the match rows of one allocation batch
	SaveAll(ctx context.Context, matches []*Match) error
}

// MatchTotals carries the recompute-rule inputs in one query
type MatchTotals struct {
	Sum   decimal.Decimal
	Count int
}
