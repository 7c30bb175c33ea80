package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormBankTransactionRepository implements banking.BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// FindByIDForTenant finds a bank transaction by ID for a specific tenant
func (r *GormBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankTransaction, error) {
	var model models.BankTransactionModel
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

// FindByIDForTenantLocked loads the row under SELECT ... FOR UPDATE.
// Allocation and match mutations serialize on this lock, so the recompute
// rule never runs on stale totals. Callers must run inside a transaction.
func (r *GormBankTransactionRepository) FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankTransaction, error) {
	var model models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForTenant lists transactions matching the filter, newest first
func (r *GormBankTransactionRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter banking.TransactionFilter) ([]banking.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("transaction_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("transaction_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("transaction_date DESC, created_at DESC").Find(&txModels).Error; err != nil {
		return nil, err
	}
	txs := make([]banking.BankTransaction, len(txModels))
	for i := range txModels {
		txs[i] = *txModels[i].ToDomain()
	}
	return txs, nil
}

// FindExistingFingerprints returns which of the given dedup keys are
// already stored for the account
func (r *GormBankTransactionRepository) FindExistingFingerprints(ctx context.Context, tenantID, bankAccountID uuid.UUID, fingerprints []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(fingerprints))
	if len(fingerprints) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND bank_account_id = ? AND fingerprint IN ?", tenantID, bankAccountID, fingerprints).
		Pluck("fingerprint", &found).Error; err != nil {
		return nil, err
	}
	for _, fp := range found {
		existing[fp] = true
	}
	return existing, nil
}

// FindOrphansInWindow lists transactions on the account inside the date
// window that belong to no session yet
func (r *GormBankTransactionRepository) FindOrphansInWindow(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]banking.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, bankAccountID).
		Where("session_id IS NULL").
		Where("transaction_date >= ? AND transaction_date <= ?", from, to).
		Order("transaction_date ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	txs := make([]banking.BankTransaction, len(txModels))
	for i := range txModels {
		txs[i] = *txModels[i].ToDomain()
	}
	return txs, nil
}

// FindBySession lists the transactions attached to a session
func (r *GormBankTransactionRepository) FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]banking.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("transaction_date ASC, created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	txs := make([]banking.BankTransaction, len(txModels))
	for i := range txModels {
		txs[i] = *txModels[i].ToDomain()
	}
	return txs, nil
}

// FirstTransactionDate returns the earliest statement date on the account
func (r *GormBankTransactionRepository) FirstTransactionDate(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*time.Time, error) {
	var model models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, bankAccountID).
		Order("transaction_date ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.TransactionDate, nil
}

// UnreconciledSessionCounts returns how many non-excluded session
// transactions are unreconciled and the total session transaction count
func (r *GormBankTransactionRepository) UnreconciledSessionCounts(ctx context.Context, tenantID uuid.UUID) (int64, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND session_id IS NOT NULL", tenantID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var unreconciled int64
	if err := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND session_id IS NOT NULL", tenantID).
		Where("status NOT IN ?", []banking.TransactionStatus{
			banking.TransactionStatusMatchedSingle,
			banking.TransactionStatusMatchedMulti,
			banking.TransactionStatusExcluded,
		}).
		Count(&unreconciled).Error; err != nil {
		return 0, 0, err
	}
	return unreconciled, total, nil
}

// Save creates or updates a transaction
func (r *GormBankTransactionRepository) Save(ctx context.Context, tx *banking.BankTransaction) error {
	model := models.BankTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveAll persists a batch of imported transactions
func (r *GormBankTransactionRepository) SaveAll(ctx context.Context, txs []*banking.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	txModels := make([]*models.BankTransactionModel, len(txs))
	for i, tx := range txs {
		txModels[i] = models.BankTransactionModelFromDomain(tx)
	}
	return r.db.WithContext(ctx).Create(&txModels).Error
}

// Ensure GormBankTransactionRepository implements banking.BankTransactionRepository
var _ banking.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
