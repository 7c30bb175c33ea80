package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormIssueRepository implements companion.IssueRepository using GORM
type GormIssueRepository struct {
	db *gorm.DB
}

// NewGormIssueRepository creates a new GormIssueRepository
func NewGormIssueRepository(db *gorm.DB) *GormIssueRepository {
	return &GormIssueRepository{db: db}
}

// FindByIDForTenant finds an issue by ID for a specific tenant
func (r *GormIssueRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*companion.Issue, error) {
	var model models.CompanionIssueModel
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

// FindForTenant lists issues matching the filter. Display ordering
// (severity, impact, recency) happens in the domain layer; the query
// orders by recency only.
func (r *GormIssueRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter companion.IssueFilter) ([]companion.Issue, error) {
	var issueModels []models.CompanionIssueModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.Surface != nil {
		query = query.Where("surface = ?", *filter.Surface)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("created_at DESC").Find(&issueModels).Error; err != nil {
		return nil, err
	}
	issues := make([]companion.Issue, len(issueModels))
	for i := range issueModels {
		issues[i] = *issueModels[i].ToDomain()
	}
	return issues, nil
}

// CountOpenBySurface counts open issues per surface
func (r *GormIssueRepository) CountOpenBySurface(ctx context.Context, tenantID uuid.UUID) (map[companion.Surface]int, error) {
	var rows []struct {
		Surface companion.Surface
		Count   int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CompanionIssueModel{}).
		Select("surface, COUNT(*) AS count").
		Where("tenant_id = ? AND status = ?", tenantID, companion.IssueStatusOpen).
		Group("surface").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[companion.Surface]int, len(rows))
	for _, row := range rows {
		counts[row.Surface] = row.Count
	}
	return counts, nil
}

// CountOpenHighForSurfaces counts open high-severity issues on the given surfaces
func (r *GormIssueRepository) CountOpenHighForSurfaces(ctx context.Context, tenantID uuid.UUID, surfaces []companion.Surface) (int, error) {
	if len(surfaces) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CompanionIssueModel{}).
		Where("tenant_id = ? AND status = ? AND severity = ?", tenantID, companion.IssueStatusOpen, companion.IssueSeverityHigh).
		Where("surface IN ?", surfaces).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// BulkCreate persists a batch of issues in one transaction
func (r *GormIssueRepository) BulkCreate(ctx context.Context, issues []*companion.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	issueModels := make([]*models.CompanionIssueModel, len(issues))
	for i, issue := range issues {
		issueModels[i] = models.CompanionIssueModelFromDomain(issue)
	}
	return r.db.WithContext(ctx).Create(&issueModels).Error
}

// Save creates or updates an issue
func (r *GormIssueRepository) Save(ctx context.Context, issue *companion.Issue) error {
	model := models.CompanionIssueModelFromDomain(issue)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormIssueRepository implements companion.IssueRepository
var _ companion.IssueRepository = (*GormIssueRepository)(nil)
