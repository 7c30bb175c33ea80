package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/persistence/models"
)

// GormJournalEntryRepository implements ledger.JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// FindByIDForTenant loads an entry with its lines for a specific tenant
func (r *GormJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("journal_lines.position ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOperationID finds the entry bearing an allocation operation id
func (r *GormJournalEntryRepository) FindByOperationID(ctx context.Context, tenantID uuid.UUID, operationID string) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("journal_lines.position ASC")
		}).
		Where("tenant_id = ? AND allocation_operation_id = ?", tenantID, operationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForTenant lists entries with lines for a tenant, newest entry date first
func (r *GormJournalEntryRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	var entryModels []models.JournalEntryModel
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("journal_lines.position ASC")
		}).
		Where("tenant_id = ?", tenantID)

	if filter.From != nil {
		query = query.Where("entry_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("entry_date <= ?", *filter.To)
	}
	if !filter.IncludeVoid {
		query = query.Where("is_void = ?", false)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}

	if err := query.Order("entry_date DESC, created_at DESC").Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.JournalEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, nil
}

// FindUnreconciledOnAccount lists non-void entries carrying at least one
// unreconciled line on the given account within the date window
func (r *GormJournalEntryRepository) FindUnreconciledOnAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) ([]ledger.JournalEntry, error) {
	var entryIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Table("journal_lines jl").
		Select("DISTINCT jl.journal_entry_id").
		Joins("JOIN journal_entries je ON je.id = jl.journal_entry_id").
		Where("je.tenant_id = ?", tenantID).
		Where("jl.account_id = ?", accountID).
		Where("jl.is_reconciled = ?", false).
		Where("je.is_void = ?", false).
		Where("je.entry_date >= ? AND je.entry_date <= ?", from, to).
		Scan(&entryIDs).Error; err != nil {
		return nil, err
	}
	if len(entryIDs) == 0 {
		return []ledger.JournalEntry{}, nil
	}

	var entryModels []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("journal_lines.position ASC")
		}).
		Where("tenant_id = ? AND id IN ?", tenantID, entryIDs).
		Order("entry_date ASC, created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.JournalEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, nil
}

// Save persists an entry together with its lines
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// SetLinesReconciled flags all of the entry's lines on one account
func (r *GormJournalEntryRepository) SetLinesReconciled(ctx context.Context, tenantID, entryID, accountID uuid.UUID, sessionID *uuid.UUID, reconciled bool) error {
	updates := map[string]interface{}{
		"is_reconciled":             reconciled,
		"reconciliation_session_id": sessionID,
	}
	if reconciled {
		updates["reconciled_at"] = time.Now()
	} else {
		updates["reconciled_at"] = nil
	}

	return r.db.WithContext(ctx).
		Model(&models.JournalLineModel{}).
		Where("journal_entry_id = ? AND account_id = ?", entryID, accountID).
		Where("journal_entry_id IN (?)", r.db.Model(&models.JournalEntryModel{}).
			Select("id").Where("tenant_id = ? AND id = ?", tenantID, entryID)).
		Updates(updates).Error
}

// ClearSessionLines removes reconciliation flags from every line stamped
// with the session
func (r *GormJournalEntryRepository) ClearSessionLines(ctx context.Context, tenantID, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.JournalLineModel{}).
		Where("reconciliation_session_id = ?", sessionID).
		Where("journal_entry_id IN (?)", r.db.Model(&models.JournalEntryModel{}).
			Select("id").Where("tenant_id = ?", tenantID)).
		Updates(map[string]interface{}{
			"is_reconciled":             false,
			"reconciled_at":             nil,
			"reconciliation_session_id": nil,
		}).Error
}

// Ensure GormJournalEntryRepository implements ledger.JournalEntryRepository
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
