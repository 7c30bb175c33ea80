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

// GormDocumentReviewRepository implements review.DocumentReviewRepository using GORM
type GormDocumentReviewRepository struct {
	db *gorm.DB
}

// NewGormDocumentReviewRepository creates a new GormDocumentReviewRepository
func NewGormDocumentReviewRepository(db *gorm.DB) *GormDocumentReviewRepository {
	return &GormDocumentReviewRepository{db: db}
}

// FindByRun lists the documents of one run, highest risk first
func (r *GormDocumentReviewRepository) FindByRun(ctx context.Context, tenantID, runID uuid.UUID) ([]review.DocumentReview, error) {
	var docModels []models.DocumentReviewModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND run_id = ?", tenantID, runID).
		Order("audit_score DESC, file_name ASC").
		Find(&docModels).Error; err != nil {
		return nil, err
	}
	docs := make([]review.DocumentReview, len(docModels))
	for i := range docModels {
		docs[i] = *docModels[i].ToDomain()
	}
	return docs, nil
}

// FindByIDForTenant finds a document review by ID for a specific tenant
func (r *GormDocumentReviewRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*review.DocumentReview, error) {
	var model models.DocumentReviewModel
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

// AuditStatusCounts returns how many documents audited clean and how
// many were audited at all
func (r *GormDocumentReviewRepository) AuditStatusCounts(ctx context.Context, tenantID uuid.UUID) (ok, total int64, err error) {
	base := r.db.WithContext(ctx).
		Model(&models.DocumentReviewModel{}).
		Where("tenant_id = ?", tenantID)
	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).Where("audit_status = ?", string(review.AuditStatusOK)).Count(&ok).Error; err != nil {
		return 0, 0, err
	}
	return ok, total, nil
}

// SaveAll persists a run's documents in one batch
func (r *GormDocumentReviewRepository) SaveAll(ctx context.Context, docs []*review.DocumentReview) error {
	if len(docs) == 0 {
		return nil
	}
	docModels := make([]*models.DocumentReviewModel, len(docs))
	for i, doc := range docs {
		docModels[i] = models.DocumentReviewModelFromDomain(doc)
	}
	return r.db.WithContext(ctx).Create(&docModels).Error
}

// Save creates or updates a document review
func (r *GormDocumentReviewRepository) Save(ctx context.Context, doc *review.DocumentReview) error {
	model := models.DocumentReviewModelFromDomain(doc)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormDocumentReviewRepository implements review.DocumentReviewRepository
var _ review.DocumentReviewRepository = (*GormDocumentReviewRepository)(nil)
