package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormMatchRepository implements reconciliation.MatchRepository using GORM
type GormMatchRepository struct {
	db *gorm.DB
}

// NewGormMatchRepository creates a new GormMatchRepository
func NewGormMatchRepository(db *gorm.DB) *GormMatchRepository {
	return &GormMatchRepository{db: db}
}

// FindByTransaction lists the match rows for one bank transaction
func (r *GormMatchRepository) FindByTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) ([]reconciliation.Match, error) {
	var matchModels []models.ReconciliationMatchModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_transaction_id = ?", tenantID, bankTransactionID).
		Order("created_at ASC").
		Find(&matchModels).Error; err != nil {
		return nil, err
	}
	matches := make([]reconciliation.Match, len(matchModels))
	for i, model := range matchModels {
		matches[i] = *model.ToDomain()
	}
	return matches, nil
}

// SumForTransaction totals matched amounts for one bank transaction. The
// sum and row count feed the status recompute rule in one query.
func (r *GormMatchRepository) SumForTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) (reconciliation.MatchTotals, error) {
	var row struct {
		Sum   decimal.Decimal
		Count int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ReconciliationMatchModel{}).
		Select("COALESCE(SUM(matched_amount), 0) AS sum, COUNT(*) AS count").
		Where("tenant_id = ? AND bank_transaction_id = ?", tenantID, bankTransactionID).
		Scan(&row).Error; err != nil {
		return reconciliation.MatchTotals{}, err
	}
	return reconciliation.MatchTotals{Sum: row.Sum, Count: row.Count}, nil
}

// DeleteByTransaction removes all match rows for one bank transaction
func (r *GormMatchRepository) DeleteByTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_transaction_id = ?", tenantID, bankTransactionID).
		Delete(&models.ReconciliationMatchModel{}).Error
}

// DeleteByTransactions removes match rows for a set of transactions
func (r *GormMatchRepository) DeleteByTransactions(ctx context.Context, tenantID uuid.UUID, bankTransactionIDs []uuid.UUID) error {
	if len(bankTransactionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_transaction_id IN ?", tenantID, bankTransactionIDs).
		Delete(&models.ReconciliationMatchModel{}).Error
}

// Save creates a match row
func (r *GormMatchRepository) Save(ctx context.Context, match *reconciliation.Match) error {
	model := models.ReconciliationMatchModelFromDomain(match)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveAll persists the match rows of one allocation batch
func (r *GormMatchRepository) SaveAll(ctx context.Context, matches []*reconciliation.Match) error {
	if len(matches) == 0 {
		return nil
	}
	matchModels := make([]*models.ReconciliationMatchModel, len(matches))
	for i, match := range matches {
		matchModels[i] = models.ReconciliationMatchModelFromDomain(match)
	}
	return r.db.WithContext(ctx).Create(&matchModels).Error
}

// Ensure GormMatchRepository implements reconciliation.MatchRepository
var _ reconciliation.MatchRepository = (*GormMatchRepository)(nil)
