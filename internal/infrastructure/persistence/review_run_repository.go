package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormReviewRunRepository implements review.RunRepository using GORM
type GormReviewRunRepository struct {
	db *gorm.DB
}

// NewGormReviewRunRepository creates a new GormReviewRunRepository
func NewGormReviewRunRepository(db *gorm.DB) *GormReviewRunRepository {
	return &GormReviewRunRepository{db: db}
}

// FindByIDForTenant finds a run by ID for a specific tenant
func (r *GormReviewRunRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*review.Run, error) {
	var model models.ReviewRunModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForTenant lists runs matching the filter, newest first
func (r *GormReviewRunRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter review.RunFilter) ([]review.Run, error) {
	var runModels []models.ReviewRunModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.RunType != nil {
		query = query.Where("run_type = ?", *filter.RunType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("created_at DESC").Find(&runModels).Error; err != nil {
		return nil, err
	}
	runs := make([]review.Run, len(runModels))
	for i := range runModels {
		runs[i] = *runModels[i].ToDomain()
	}
	return runs, nil
}

// FindLatestCompleted returns the newest completed run of a type, nil when
// the pipeline never ran
func (r *GormReviewRunRepository) FindLatestCompleted(ctx context.Context, tenantID uuid.UUID, runType review.RunType) (*review.Run, error) {
	var model models.ReviewRunModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND run_type = ? AND status = ?", tenantID, runType, review.RunStatusCompleted).
		Order("completed_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a run
func (r *GormReviewRunRepository) Save(ctx context.Context, run *review.Run) error {
	model := models.ReviewRunModelFromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormReviewRunRepository implements review.RunRepository
var _ review.RunRepository = (*GormReviewRunRepository)(nil)
