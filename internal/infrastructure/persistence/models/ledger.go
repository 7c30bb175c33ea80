package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// AccountModel is the persistence model for the ledger Account aggregate root.
type AccountModel struct {
	TenantAggregateModel
	Code        string             `gorm:"type:varchar(20);not null;uniqueIndex:idx_accounts_tenant_code,priority:2"`
	Name        string             `gorm:"type:varchar(200);not null"`
	Type        ledger.AccountType `gorm:"type:varchar(20);not null;index"`
	Description string             `gorm:"type:text"`
	Active      bool               `gorm:"not null;default:true;index"`
	SystemRole  *string            `gorm:"type:varchar(40);index"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "ledger_accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *ledger.Account {
	account := &ledger.Account{
		Code:        m.Code,
		Name:        m.Name,
		Type:        m.Type,
		Description: m.Description,
		Active:      m.Active,
		SystemRole:  m.SystemRole,
	}
	m.PopulateTenantAggregateRoot(&account.TenantAggregateRoot)
	return account
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Type = a.Type
	m.Description = a.Description
	m.Active = a.Active
	m.SystemRole = a.SystemRole
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// TaxRateModel is the persistence model for the TaxRate aggregate root.
type TaxRateModel struct {
	TenantAggregateModel
	Name        string          `gorm:"type:varchar(100);not null"`
	RatePercent decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	AppliesTo   ledger.TaxSide  `gorm:"type:varchar(20);not null;default:'BOTH'"`
	Active      bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (TaxRateModel) TableName() string {
	return "tax_rates"
}

// ToDomain converts the persistence model to a domain TaxRate entity.
func (m *TaxRateModel) ToDomain() *ledger.TaxRate {
	rate := &ledger.TaxRate{
		Name:        m.Name,
		RatePercent: m.RatePercent,
		AppliesTo:   m.AppliesTo,
		Active:      m.Active,
	}
	m.PopulateTenantAggregateRoot(&rate.TenantAggregateRoot)
	return rate
}

// FromDomain populates the persistence model from a domain TaxRate entity.
func (m *TaxRateModel) FromDomain(r *ledger.TaxRate) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Name = r.Name
	m.RatePercent = r.RatePercent
	m.AppliesTo = r.AppliesTo
	m.Active = r.Active
}

// TaxRateModelFromDomain creates a new persistence model from a domain TaxRate.
func TaxRateModelFromDomain(r *ledger.TaxRate) *TaxRateModel {
	m := &TaxRateModel{}
	m.FromDomain(r)
	return m
}

// JournalEntryModel is the persistence model for the JournalEntry aggregate root.
type JournalEntryModel struct {
	TenantAggregateModel
	EntryDate             time.Time          `gorm:"not null;index"`
	Description           string             `gorm:"type:text;not null"`
	IsVoid                bool               `gorm:"not null;default:false;index"`
	Source                ledger.EntrySource `gorm:"type:varchar(20);not null;default:'MANUAL';index"`
	AllocationOperationID *string            `gorm:"type:varchar(100);uniqueIndex:idx_journal_entries_tenant_operation,priority:2"`
	Lines                 []JournalLineModel `gorm:"foreignKey:JournalEntryID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain JournalEntry entity.
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	entry := &ledger.JournalEntry{
		EntryDate:             m.EntryDate,
		Description:           m.Description,
		IsVoid:                m.IsVoid,
		Source:                m.Source,
		AllocationOperationID: m.AllocationOperationID,
		Lines:                 make([]ledger.JournalLine, len(m.Lines)),
	}
	m.PopulateTenantAggregateRoot(&entry.TenantAggregateRoot)
	for i := range m.Lines {
		entry.Lines[i] = *m.Lines[i].ToDomain()
	}
	return entry
}

// FromDomain populates the persistence model from a domain JournalEntry entity.
func (m *JournalEntryModel) FromDomain(e *ledger.JournalEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.EntryDate = e.EntryDate
	m.Description = e.Description
	m.IsVoid = e.IsVoid
	m.Source = e.Source
	m.AllocationOperationID = e.AllocationOperationID
	m.Lines = make([]JournalLineModel, len(e.Lines))
	for i := range e.Lines {
		m.Lines[i].FromDomain(&e.Lines[i])
	}
}

// JournalEntryModelFromDomain creates a new persistence model from a domain JournalEntry.
func JournalEntryModelFromDomain(e *ledger.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{}
	m.FromDomain(e)
	return m
}

// JournalLineModel is the persistence model for a single journal line.
type JournalLineModel struct {
	BaseModel
	JournalEntryID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	Debit                   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit                  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description             string          `gorm:"type:varchar(500)"`
	Position                int             `gorm:"not null;default:0"`
	IsReconciled            bool            `gorm:"not null;default:false;index"`
	ReconciledAt            *time.Time
	ReconciliationSessionID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalLine.
func (m *JournalLineModel) ToDomain() *ledger.JournalLine {
	return &ledger.JournalLine{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		JournalEntryID:          m.JournalEntryID,
		AccountID:               m.AccountID,
		Debit:                   m.Debit,
		Credit:                  m.Credit,
		Description:             m.Description,
		Position:                m.Position,
		IsReconciled:            m.IsReconciled,
		ReconciledAt:            m.ReconciledAt,
		ReconciliationSessionID: m.ReconciliationSessionID,
	}
}

// FromDomain populates the persistence model from a domain JournalLine.
func (m *JournalLineModel) FromDomain(l *ledger.JournalLine) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.JournalEntryID = l.JournalEntryID
	m.AccountID = l.AccountID
	m.Debit = l.Debit
	m.Credit = l.Credit
	m.Description = l.Description
	m.Position = l.Position
	m.IsReconciled = l.IsReconciled
	m.ReconciledAt = l.ReconciledAt
	m.ReconciliationSessionID = l.ReconciliationSessionID
}

// InvoiceModel is the persistence model for the thin Invoice allocation target.
type InvoiceModel struct {
	TenantAggregateModel
	Number           string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_tenant_number,priority:2"`
	CounterpartyName string          `gorm:"type:varchar(200)"`
	GrandTotal       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IssueDate        time.Time       `gorm:"not null;index"`
	DueDate          *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	invoice := &ledger.Invoice{
		Number:           m.Number,
		CounterpartyName: m.CounterpartyName,
		GrandTotal:       m.GrandTotal,
		AmountPaid:       m.AmountPaid,
		IssueDate:        m.IssueDate,
		DueDate:          m.DueDate,
	}
	m.PopulateTenantAggregateRoot(&invoice.TenantAggregateRoot)
	return invoice
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(i *ledger.Invoice) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.Number = i.Number
	m.CounterpartyName = i.CounterpartyName
	m.GrandTotal = i.GrandTotal
	m.AmountPaid = i.AmountPaid
	m.IssueDate = i.IssueDate
	m.DueDate = i.DueDate
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(i *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(i)
	return m
}

// BillModel is the persistence model for the thin Bill allocation target.
type BillModel struct {
	TenantAggregateModel
	Number           string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_bills_tenant_number,priority:2"`
	CounterpartyName string          `gorm:"type:varchar(200)"`
	GrandTotal       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IssueDate        time.Time       `gorm:"not null;index"`
	DueDate          *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill entity.
func (m *BillModel) ToDomain() *ledger.Bill {
	bill := &ledger.Bill{
		Number:           m.Number,
		CounterpartyName: m.CounterpartyName,
		GrandTotal:       m.GrandTotal,
		AmountPaid:       m.AmountPaid,
		IssueDate:        m.IssueDate,
		DueDate:          m.DueDate,
	}
	m.PopulateTenantAggregateRoot(&bill.TenantAggregateRoot)
	return bill
}

// FromDomain populates the persistence model from a domain Bill entity.
func (m *BillModel) FromDomain(b *ledger.Bill) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.Number = b.Number
	m.CounterpartyName = b.CounterpartyName
	m.GrandTotal = b.GrandTotal
	m.AmountPaid = b.AmountPaid
	m.IssueDate = b.IssueDate
	m.DueDate = b.DueDate
}

// BillModelFromDomain creates a new persistence model from a domain Bill.
func BillModelFromDomain(b *ledger.Bill) *BillModel {
	m := &BillModel{}
	m.FromDomain(b)
	return m
}
