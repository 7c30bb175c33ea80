package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements reconciliation.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByIDForTenant finds a session by ID for a specific tenant
func (r *GormSessionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.Session, error) {
	var model models.ReconciliationSessionModel
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

// FindByPeriod finds the session covering exactly this statement period on
// the account, nil when none exists
func (r *GormSessionRepository) FindByPeriod(ctx context.Context, tenantID, bankAccountID uuid.UUID, start, end time.Time) (*reconciliation.Session, error) {
	var model models.ReconciliationSessionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, bankAccountID).
		Where("statement_start = ? AND statement_end = ?", start, end).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForAccount lists sessions for a bank account, newest first
func (r *GormSessionRepository) FindAllForAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]reconciliation.Session, error) {
	var sessionModels []models.ReconciliationSessionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, bankAccountID).
		Order("statement_start DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, err
	}
	sessions := make([]reconciliation.Session, len(sessionModels))
	for i, model := range sessionModels {
		sessions[i] = *model.ToDomain()
	}
	return sessions, nil
}

// FindCompletedOverlapping lists completed sessions whose statement period
// overlaps [from, to]
func (r *GormSessionRepository) FindCompletedOverlapping(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]reconciliation.Session, error) {
	var sessionModels []models.ReconciliationSessionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, bankAccountID).
		Where("status = ?", reconciliation.SessionStatusCompleted).
		Where("statement_start <= ? AND statement_end >= ?", to, from).
		Order("statement_start ASC").
		Find(&sessionModels).Error; err != nil {
		return nil, err
	}
	sessions := make([]reconciliation.Session, len(sessionModels))
	for i, model := range sessionModels {
		sessions[i] = *model.ToDomain()
	}
	return sessions, nil
}

// Save creates or updates a session
func (r *GormSessionRepository) Save(ctx context.Context, session *reconciliation.Session) error {
	model := models.ReconciliationSessionModelFromDomain(session)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a session record
func (r *GormSessionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.ReconciliationSessionModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormSessionRepository implements reconciliation.SessionRepository
var _ reconciliation.SessionRepository = (*GormSessionRepository)(nil)
