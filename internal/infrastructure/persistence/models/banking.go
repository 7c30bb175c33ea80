package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// BankAccountModel is the persistence model for the BankAccount aggregate root.
type BankAccountModel struct {
	TenantAggregateModel
	Name            string               `gorm:"type:varchar(200);not null"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	LedgerAccountID *uuid.UUID           `gorm:"type:uuid;index"`
	Active          bool                 `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount entity.
func (m *BankAccountModel) ToDomain() *banking.BankAccount {
	account := &banking.BankAccount{
		Name:            m.Name,
		Currency:        m.Currency,
		LedgerAccountID: m.LedgerAccountID,
		Active:          m.Active,
	}
	m.PopulateTenantAggregateRoot(&account.TenantAggregateRoot)
	return account
}

// FromDomain populates the persistence model from a domain BankAccount entity.
func (m *BankAccountModel) FromDomain(a *banking.BankAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Name = a.Name
	m.Currency = a.Currency
	m.LedgerAccountID = a.LedgerAccountID
	m.Active = a.Active
}

// BankAccountModelFromDomain creates a new persistence model from a domain BankAccount.
func BankAccountModelFromDomain(a *banking.BankAccount) *BankAccountModel {
	m := &BankAccountModel{}
	m.FromDomain(a)
	return m
}

// BankTransactionModel is the persistence model for the BankTransaction aggregate root.
type BankTransactionModel struct {
	TenantAggregateModel
	BankAccountID        uuid.UUID                   `gorm:"type:uuid;not null;index;uniqueIndex:idx_bank_txs_tenant_account_fp,priority:2"`
	TransactionDate      time.Time                   `gorm:"not null;index"`
	Description          string                      `gorm:"type:text"`
	Amount               decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	ExternalID           *string                     `gorm:"type:varchar(100);index"`
	Fingerprint          string                      `gorm:"type:char(32);not null;uniqueIndex:idx_bank_txs_tenant_account_fp,priority:3"`
	Status               banking.TransactionStatus   `gorm:"type:varchar(20);not null;default:'NEW';index"`
	ReconciliationState  banking.ReconciliationState `gorm:"type:varchar(20);not null;default:'unreconciled';index"`
	AllocatedAmount      decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	IsReconciled         bool                        `gorm:"not null;default:false;index"`
	ReconciledAt         *time.Time
	SessionID            *uuid.UUID             `gorm:"type:uuid;index"`
	CategoryAccountID    *uuid.UUID             `gorm:"type:uuid;index"`
	MatchedInvoiceID     *uuid.UUID             `gorm:"type:uuid;index"`
	MatchedBillID        *uuid.UUID             `gorm:"type:uuid;index"`
	PostedJournalEntryID *uuid.UUID             `gorm:"type:uuid;index"`
	SuggestionConfidence *decimal.Decimal       `gorm:"type:decimal(5,4)"`
	SuggestionReason     *string                `gorm:"type:varchar(500)"`
	SuggestionMatchType  *string                `gorm:"type:varchar(20)"`
	CriticVerdict        *banking.CriticVerdict `gorm:"type:varchar(10)"`
	CriticReasons        banking.CriticReasons  `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// ToDomain converts the persistence model to a domain BankTransaction entity.
func (m *BankTransactionModel) ToDomain() *banking.BankTransaction {
	tx := &banking.BankTransaction{
		BankAccountID:        m.BankAccountID,
		TransactionDate:      m.TransactionDate,
		Description:          m.Description,
		Amount:               m.Amount,
		ExternalID:           m.ExternalID,
		Fingerprint:          m.Fingerprint,
		Status:               m.Status,
		ReconciliationState:  m.ReconciliationState,
		AllocatedAmount:      m.AllocatedAmount,
		IsReconciled:         m.IsReconciled,
		ReconciledAt:         m.ReconciledAt,
		SessionID:            m.SessionID,
		CategoryAccountID:    m.CategoryAccountID,
		MatchedInvoiceID:     m.MatchedInvoiceID,
		MatchedBillID:        m.MatchedBillID,
		PostedJournalEntryID: m.PostedJournalEntryID,
		SuggestionConfidence: m.SuggestionConfidence,
		SuggestionReason:     m.SuggestionReason,
		SuggestionMatchType:  m.SuggestionMatchType,
		CriticVerdict:        m.CriticVerdict,
		CriticReasons:        m.CriticReasons,
	}
	m.PopulateTenantAggregateRoot(&tx.TenantAggregateRoot)
	return tx
}

// FromDomain populates the persistence model from a domain BankTransaction entity.
func (m *BankTransactionModel) FromDomain(t *banking.BankTransaction) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.BankAccountID = t.BankAccountID
	m.TransactionDate = t.TransactionDate
	m.Description = t.Description
	m.Amount = t.Amount
	m.ExternalID = t.ExternalID
	m.Fingerprint = t.Fingerprint
	m.Status = t.Status
	m.ReconciliationState = t.ReconciliationState
	m.AllocatedAmount = t.AllocatedAmount
	m.IsReconciled = t.IsReconciled
	m.ReconciledAt = t.ReconciledAt
	m.SessionID = t.SessionID
	m.CategoryAccountID = t.CategoryAccountID
	m.MatchedInvoiceID = t.MatchedInvoiceID
	m.MatchedBillID = t.MatchedBillID
	m.PostedJournalEntryID = t.PostedJournalEntryID
	m.SuggestionConfidence = t.SuggestionConfidence
	m.SuggestionReason = t.SuggestionReason
	m.SuggestionMatchType = t.SuggestionMatchType
	m.CriticVerdict = t.CriticVerdict
	m.CriticReasons = t.CriticReasons
}

// BankTransactionModelFromDomain creates a new persistence model from a domain BankTransaction.
func BankTransactionModelFromDomain(t *banking.BankTransaction) *BankTransactionModel {
	m := &BankTransactionModel{}
	m.FromDomain(t)
	return m
}

// BankRuleModel is the persistence model for the BankRule aggregate root.
type BankRuleModel struct {
	TenantAggregateModel
	Name      string    `gorm:"type:varchar(200);not null"`
	Pattern   string    `gorm:"type:varchar(200);not null"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	Priority  int       `gorm:"not null;default:0;index"`
	Active    bool      `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (BankRuleModel) TableName() string {
	return "bank_rules"
}

// ToDomain converts the persistence model to a domain BankRule entity.
func (m *BankRuleModel) ToDomain() *banking.BankRule {
	rule := &banking.BankRule{
		Name:      m.Name,
		Pattern:   m.Pattern,
		AccountID: m.AccountID,
		Priority:  m.Priority,
		Active:    m.Active,
	}
	m.PopulateTenantAggregateRoot(&rule.TenantAggregateRoot)
	return rule
}

// FromDomain populates the persistence model from a domain BankRule entity.
func (m *BankRuleModel) FromDomain(r *banking.BankRule) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Name = r.Name
	m.Pattern = r.Pattern
	m.AccountID = r.AccountID
	m.Priority = r.Priority
	m.Active = r.Active
}

// BankRuleModelFromDomain creates a new persistence model from a domain BankRule.
func BankRuleModelFromDomain(r *banking.BankRule) *BankRuleModel {
	m := &BankRuleModel{}
	m.FromDomain(r)
	return m
}
