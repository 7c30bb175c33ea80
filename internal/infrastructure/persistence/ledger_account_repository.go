package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByIDForTenant finds an account by ID for a specific tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
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

// FindByCode finds an account by its chart code for a tenant
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists all accounts for a tenant, active first, then by code
func (r *GormAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.Account, error) {
	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("active DESC, code ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]ledger.Account, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// GetOrCreate returns the account with the spec's code, creating it from the
// spec when absent. ON CONFLICT handles concurrent materialization.
func (r *GormAccountRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID, spec ledger.DefaultAccountSpec) (*ledger.Account, error) {
	existing, err := r.FindByCode(ctx, tenantID, spec.Code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	account, err := ledger.NewAccount(tenantID, spec.Code, spec.Name, spec.Type)
	if err != nil {
		return nil, err
	}
	if spec.Role != "" {
		role := string(spec.Role)
		account.SystemRole = &role
	}

	model := models.AccountModelFromDomain(account)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, result.Error
	}

	// If the row wasn't created (conflict), fetch the winner
	if result.RowsAffected == 0 {
		return r.FindByCode(ctx, tenantID, spec.Code)
	}
	return account, nil
}

// BalanceAsOf computes the account balance over non-void journal lines dated
// on or before the given date
func (r *GormAccountRepository) BalanceAsOf(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	account, err := r.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	var totals struct {
		Debits  decimal.Decimal
		Credits decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Table("journal_lines jl").
		Select("COALESCE(SUM(jl.debit), 0) AS debits, COALESCE(SUM(jl.credit), 0) AS credits").
		Joins("JOIN journal_entries je ON je.id = jl.journal_entry_id").
		Where("je.tenant_id = ?", tenantID).
		Where("jl.account_id = ?", accountID).
		Where("je.is_void = ?", false).
		Where("je.entry_date <= ?", asOf).
		Scan(&totals).Error; err != nil {
		return decimal.Zero, err
	}

	if account.Type.IsDebitNormal() {
		return totals.Debits.Sub(totals.Credits), nil
	}
	return totals.Credits.Sub(totals.Debits), nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormAccountRepository implements ledger.AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
