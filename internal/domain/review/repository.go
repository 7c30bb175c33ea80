package review

import (
	"context"

	"github.com/google/uuid"
)

// RunFilter narrows run listings
type RunFilter struct {
	RunType *RunType
	Status  *RunStatus
	Limit   int
}

// RunRepository defines persistence for review runs
type RunRepository interface {
	// FindByIDForTenant finds a run scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Run, error)

	// FindForTenant lists runs matching the filter, newest first
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter RunFilter) ([]Run, error)

	// FindLatestCompleted returns the newest completed run of a type,
	// nil when the pipeline never ran
	FindLatestCompleted(ctx context.Context, tenantID uuid.UUID, runType RunType) (*Run, error)

	// Save creates or updates a run
	Save(ctx context.Context, run *Run) error
}

// DocumentReviewRepository defines persistence for audited documents
type DocumentReviewRepository interface {
	// FindByRun lists the documents of one run, highest risk first
	FindByRun(ctx context.Context, tenantID, runID uuid.UUID) ([]DocumentReview, error)

	// FindByIDForTenant finds a document review scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*DocumentReview, error)

	// AuditStatusCounts returns how many documents audited clean and how
	// many were audited at all, used by the companion coverage view
	AuditStatusCounts(ctx context.Context, tenantID uuid.UUID) (ok, total int64, err error)

	// SaveAll persists a run's documents in one batch
	SaveAll(ctx context.Context, docs []*DocumentReview) error

	// Save creates or updates a document review
	Save(ctx context.Context, doc *DocumentReview) error
}
