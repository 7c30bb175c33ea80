package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormBankRuleRepository implements banking.BankRuleRepository using GORM
type GormBankRuleRepository struct {
	db *gorm.DB
}

// NewGormBankRuleRepository creates a new GormBankRuleRepository
func NewGormBankRuleRepository(db *gorm.DB) *GormBankRuleRepository {
	return &GormBankRuleRepository{db: db}
}

// FindActiveForTenant lists active rules, highest priority first
func (r *GormBankRuleRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]banking.BankRule, error) {
	var ruleModels []models.BankRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("priority DESC, created_at ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	rules := make([]banking.BankRule, len(ruleModels))
	for i, model := range ruleModels {
		rules[i] = *model.ToDomain()
	}
	return rules, nil
}

// FindByIDForTenant finds a rule by ID for a specific tenant
func (r *GormBankRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankRule, error) {
	var model models.BankRuleModel
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

// Save creates or updates a rule
func (r *GormBankRuleRepository) Save(ctx context.Context, rule *banking.BankRule) error {
	model := models.BankRuleModelFromDomain(rule)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormBankRuleRepository implements banking.BankRuleRepository
var _ banking.BankRuleRepository = (*GormBankRuleRepository)(nil)
