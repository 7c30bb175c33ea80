package companion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IssueFilter narrows issue listings
type IssueFilter struct {
	Surface      *Surface
	Severity     *IssueSeverity
	Status       *IssueStatus
	CreatedAfter *time.Time
	Limit        int
}

// IssueRepository defines persistence for companion issues
type IssueRepository interface {
	// FindByIDForTenant finds an issue scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Issue, error)

	// FindForTenant lists issues matching the filter
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter IssueFilter) ([]Issue, error)

	// CountOpenBySurface counts open issues per surface
	CountOpenBySurface(ctx context.Context, tenantID uuid.UUID) (map[Surface]int, error)

	// CountOpenHighForSurfaces counts open high-severity issues on the
	// given surfaces
	CountOpenHighForSurfaces(ctx context.Context, tenantID uuid.UUID, surfaces []Surface) (int, error)

	// BulkCreate persists a batch of issues in one transaction
	BulkCreate(ctx context.Context, issues []*Issue) error

	// Save creates or updates an issue
	Save(ctx context.Context, issue *Issue) error
}

// StoryRepository defines persistence for the story cache
type StoryRepository interface {
	// FindStory returns the tenant's cached story, nil when absent
	FindStory(ctx context.Context, tenantID uuid.UUID) (*Story, error)

	// SaveStory upserts the tenant's cached story
	SaveStory(ctx context.Context, story *Story) error

	// FindState returns the tenant's regeneration state, nil when absent
	FindState(ctx context.Context, tenantID uuid.UUID) (*StoryState, error)

	// SaveState upserts the regeneration state
	SaveState(ctx context.Context, state *StoryState) error

	// FindDirtyTenants lists tenants whose story needs regeneration
	FindDirtyTenants(ctx context.Context, limit int) ([]uuid.UUID, error)
}
