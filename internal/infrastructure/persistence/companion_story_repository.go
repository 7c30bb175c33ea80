package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormStoryRepository implements companion.StoryRepository using GORM.
// Stories and story states are one row per tenant; the application always
// loads before saving, the tenant unique index backstops races.
type GormStoryRepository struct {
	db *gorm.DB
}

// NewGormStoryRepository creates a new GormStoryRepository
func NewGormStoryRepository(db *gorm.DB) *GormStoryRepository {
	return &GormStoryRepository{db: db}
}

// FindStory returns the tenant's cached story, nil when absent
func (r *GormStoryRepository) FindStory(ctx context.Context, tenantID uuid.UUID) (*companion.Story, error) {
	var model models.CompanionStoryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveStory upserts the tenant's cached story
func (r *GormStoryRepository) SaveStory(ctx context.Context, story *companion.Story) error {
	model := models.CompanionStoryModelFromDomain(story)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindState returns the tenant's regeneration state, nil when absent
func (r *GormStoryRepository) FindState(ctx context.Context, tenantID uuid.UUID) (*companion.StoryState, error) {
	var model models.CompanionStoryStateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveState upserts the regeneration state
func (r *GormStoryRepository) SaveState(ctx context.Context, state *companion.StoryState) error {
	model := models.CompanionStoryStateModelFromDomain(state)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindDirtyTenants lists tenants whose story needs regeneration, most
// recently requested first so interactive tenants drain ahead of idle ones
func (r *GormStoryRepository) FindDirtyTenants(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(&models.CompanionStoryStateModel{}).
		Where("needs_regeneration = ?", true).
		Order("last_requested_at DESC NULLS LAST")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("tenant_id", &tenantIDs).Error; err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// Ensure GormStoryRepository implements companion.StoryRepository
var _ companion.StoryRepository = (*GormStoryRepository)(nil)
