package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/reconciliation"
)

// ReconciliationSessionModel is the persistence model for the Session aggregate root.
type ReconciliationSessionModel struct {
	TenantAggregateModel
	BankAccountID  uuid.UUID                    `gorm:"type:uuid;not null;index"`
	StatementStart time.Time                    `gorm:"not null;index"`
	StatementEnd   time.Time                    `gorm:"not null;index"`
	OpeningBalance *decimal.Decimal             `gorm:"type:decimal(18,2)"`
	ClosingBalance *decimal.Decimal             `gorm:"type:decimal(18,2)"`
	Status         reconciliation.SessionStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CompletedAt    *time.Time
	CompletedBy    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReconciliationSessionModel) TableName() string {
	return "reconciliation_sessions"
}

// ToDomain converts the persistence model to a domain Session entity.
func (m *ReconciliationSessionModel) ToDomain() *reconciliation.Session {
	session := &reconciliation.Session{
		BankAccountID:  m.BankAccountID,
		StatementStart: m.StatementStart,
		StatementEnd:   m.StatementEnd,
		OpeningBalance: m.OpeningBalance,
		ClosingBalance: m.ClosingBalance,
		Status:         m.Status,
		CompletedAt:    m.CompletedAt,
		CompletedBy:    m.CompletedBy,
	}
	m.PopulateTenantAggregateRoot(&session.TenantAggregateRoot)
	return session
}

// FromDomain populates the persistence model from a domain Session entity.
func (m *ReconciliationSessionModel) FromDomain(s *reconciliation.Session) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.BankAccountID = s.BankAccountID
	m.StatementStart = s.StatementStart
	m.StatementEnd = s.StatementEnd
	m.OpeningBalance = s.OpeningBalance
	m.ClosingBalance = s.ClosingBalance
	m.Status = s.Status
	m.CompletedAt = s.CompletedAt
	m.CompletedBy = s.CompletedBy
}

// ReconciliationSessionModelFromDomain creates a new persistence model from a domain Session.
func ReconciliationSessionModelFromDomain(s *reconciliation.Session) *ReconciliationSessionModel {
	m := &ReconciliationSessionModel{}
	m.FromDomain(s)
	return m
}

// ReconciliationMatchModel is the persistence model for the Match aggregate root.
type ReconciliationMatchModel struct {
	TenantAggregateModel
	BankTransactionID        uuid.UUID                `gorm:"type:uuid;not null;index"`
	JournalEntryID           uuid.UUID                `gorm:"type:uuid;not null;index"`
	MatchType                reconciliation.MatchType `gorm:"type:varchar(20);not null"`
	MatchConfidence          decimal.Decimal          `gorm:"type:decimal(5,4);not null"`
	MatchedAmount            decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	ReconciledBy             *uuid.UUID               `gorm:"type:uuid"`
	AdjustmentJournalEntryID *uuid.UUID               `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReconciliationMatchModel) TableName() string {
	return "reconciliation_matches"
}

// ToDomain converts the persistence model to a domain Match entity.
func (m *ReconciliationMatchModel) ToDomain() *reconciliation.Match {
	match := &reconciliation.Match{
		BankTransactionID:        m.BankTransactionID,
		JournalEntryID:           m.JournalEntryID,
		MatchType:                m.MatchType,
		MatchConfidence:          m.MatchConfidence,
		MatchedAmount:            m.MatchedAmount,
		ReconciledBy:             m.ReconciledBy,
		AdjustmentJournalEntryID: m.AdjustmentJournalEntryID,
	}
	m.PopulateTenantAggregateRoot(&match.TenantAggregateRoot)
	return match
}

// FromDomain populates the persistence model from a domain Match entity.
func (m *ReconciliationMatchModel) FromDomain(match *reconciliation.Match) {
	m.FromDomainTenantAggregateRoot(match.TenantAggregateRoot)
	m.BankTransactionID = match.BankTransactionID
	m.JournalEntryID = match.JournalEntryID
	m.MatchType = match.MatchType
	m.MatchConfidence = match.MatchConfidence
	m.MatchedAmount = match.MatchedAmount
	m.ReconciledBy = match.ReconciledBy
	m.AdjustmentJournalEntryID = match.AdjustmentJournalEntryID
}

// ReconciliationMatchModelFromDomain creates a new persistence model from a domain Match.
func ReconciliationMatchModelFromDomain(match *reconciliation.Match) *ReconciliationMatchModel {
	m := &ReconciliationMatchModel{}
	m.FromDomain(match)
	return m
}
