package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormTaxRateRepository implements ledger.TaxRateRepository using GORM
type GormTaxRateRepository struct {
	db *gorm.DB
}

// NewGormTaxRateRepository creates a new GormTaxRateRepository
func NewGormTaxRateRepository(db *gorm.DB) *GormTaxRateRepository {
	return &GormTaxRateRepository{db: db}
}

// FindByIDForTenant finds a tax rate by ID for a specific tenant
func (r *GormTaxRateRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.TaxRate, error) {
	var model models.TaxRateModel
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

// FindAllForTenant lists tax rates for a tenant
func (r *GormTaxRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.TaxRate, error) {
	var rateModels []models.TaxRateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("active DESC, name ASC").
		Find(&rateModels).Error; err != nil {
		return nil, err
	}
	rates := make([]ledger.TaxRate, len(rateModels))
	for i, model := range rateModels {
		rates[i] = *model.ToDomain()
	}
	return rates, nil
}

// Save creates or updates a tax rate
func (r *GormTaxRateRepository) Save(ctx context.Context, rate *ledger.TaxRate) error {
	model := models.TaxRateModelFromDomain(rate)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormTaxRateRepository implements ledger.TaxRateRepository
var _ ledger.TaxRateRepository = (*GormTaxRateRepository)(nil)
