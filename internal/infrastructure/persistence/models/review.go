package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/review"
)

// ReviewRunModel is the persistence model for the review Run aggregate root.
type ReviewRunModel struct {
	TenantAggregateModel
	RunType          review.RunType    `gorm:"type:varchar(20);not null;index"`
	Status           review.RunStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PeriodStart      time.Time         `gorm:"not null"`
	PeriodEnd        time.Time         `gorm:"not null"`
	Metrics          review.Metrics    `gorm:"type:jsonb;default:'{}'"`
	TraceID          string            `gorm:"type:varchar(64)"`
	OverallRiskScore *decimal.Decimal  `gorm:"type:decimal(5,2)"`
	RiskLevel        *review.RiskLevel `gorm:"type:varchar(10)"`
	AdvisorSummary   *string           `gorm:"type:text"`
	AdvisorPayload   review.Metrics    `gorm:"type:jsonb;default:'{}'"`
	AdvisorModel     *string           `gorm:"type:varchar(100)"`
	AdvisorAt        *time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time `gorm:"index"`
	FailureReason    *string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ReviewRunModel) TableName() string {
	return "review_runs"
}

// ToDomain converts the persistence model to a domain Run entity.
func (m *ReviewRunModel) ToDomain() *review.Run {
	run := &review.Run{
		RunType:          m.RunType,
		Status:           m.Status,
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		Metrics:          m.Metrics,
		TraceID:          m.TraceID,
		OverallRiskScore: m.OverallRiskScore,
		RiskLevel:        m.RiskLevel,
		AdvisorSummary:   m.AdvisorSummary,
		AdvisorPayload:   m.AdvisorPayload,
		AdvisorModel:     m.AdvisorModel,
		AdvisorAt:        m.AdvisorAt,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		FailureReason:    m.FailureReason,
	}
	m.PopulateTenantAggregateRoot(&run.TenantAggregateRoot)
	return run
}

// FromDomain populates the persistence model from a domain Run entity.
func (m *ReviewRunModel) FromDomain(r *review.Run) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.RunType = r.RunType
	m.Status = r.Status
	m.PeriodStart = r.PeriodStart
	m.PeriodEnd = r.PeriodEnd
	m.Metrics = r.Metrics
	m.TraceID = r.TraceID
	m.OverallRiskScore = r.OverallRiskScore
	m.RiskLevel = r.RiskLevel
	m.AdvisorSummary = r.AdvisorSummary
	m.AdvisorPayload = r.AdvisorPayload
	m.AdvisorModel = r.AdvisorModel
	m.AdvisorAt = r.AdvisorAt
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt
	m.FailureReason = r.FailureReason
}

// ReviewRunModelFromDomain creates a new persistence model from a domain Run.
func ReviewRunModelFromDomain(r *review.Run) *ReviewRunModel {
	m := &ReviewRunModel{}
	m.FromDomain(r)
	return m
}

// DocumentReviewModel is the persistence model for the DocumentReview aggregate root.
type DocumentReviewModel struct {
	TenantAggregateModel
	RunID           uuid.UUID               `gorm:"type:uuid;not null;index"`
	FileName        string                  `gorm:"type:varchar(255);not null"`
	StorageKey      *string                 `gorm:"type:varchar(500)"`
	Extracted       review.ExtractedPayload `gorm:"type:jsonb;default:'{}'"`
	ProposedPosting *review.ProposedPosting `gorm:"type:jsonb;serializer:json"`
	AuditFlags      review.AuditFlags       `gorm:"type:jsonb;default:'[]'"`
	AuditScore      decimal.Decimal         `gorm:"type:decimal(5,2);not null"`
	AuditStatus     review.AuditStatus      `gorm:"type:varchar(10);not null;index"`
}

// TableName returns the table name for GORM
func (DocumentReviewModel) TableName() string {
	return "document_reviews"
}

// ToDomain converts the persistence model to a domain DocumentReview entity.
func (m *DocumentReviewModel) ToDomain() *review.DocumentReview {
	doc := &review.DocumentReview{
		RunID:           m.RunID,
		FileName:        m.FileName,
		StorageKey:      m.StorageKey,
		Extracted:       m.Extracted,
		ProposedPosting: m.ProposedPosting,
		AuditFlags:      m.AuditFlags,
		AuditScore:      m.AuditScore,
		AuditStatus:     m.AuditStatus,
	}
	m.PopulateTenantAggregateRoot(&doc.TenantAggregateRoot)
	return doc
}

// FromDomain populates the persistence model from a domain DocumentReview entity.
func (m *DocumentReviewModel) FromDomain(d *review.DocumentReview) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.RunID = d.RunID
	m.FileName = d.FileName
	m.StorageKey = d.StorageKey
	m.Extracted = d.Extracted
	m.ProposedPosting = d.ProposedPosting
	m.AuditFlags = d.AuditFlags
	m.AuditScore = d.AuditScore
	m.AuditStatus = d.AuditStatus
}

// DocumentReviewModelFromDomain creates a new persistence model from a domain DocumentReview.
func DocumentReviewModelFromDomain(d *review.DocumentReview) *DocumentReviewModel {
	m := &DocumentReviewModel{}
	m.FromDomain(d)
	return m
}
