package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/companion"
)

// CompanionIssueModel is the persistence model for the companion Issue aggregate root.
type CompanionIssueModel struct {
	TenantAggregateModel
	Surface           companion.Surface       `gorm:"type:varchar(20);not null;index"`
	RunType           *string                 `gorm:"type:varchar(20)"`
	RunID             *uuid.UUID              `gorm:"type:uuid;index"`
	Severity          companion.IssueSeverity `gorm:"type:varchar(10);not null;index"`
	Status            companion.IssueStatus   `gorm:"type:varchar(10);not null;default:'open';index"`
	Title             string                  `gorm:"type:varchar(255);not null"`
	Description       string                  `gorm:"type:text"`
	RecommendedAction string                  `gorm:"type:text"`
	EstimatedImpact   string                  `gorm:"type:varchar(255)"`
	Data              companion.IssueData     `gorm:"type:jsonb;default:'{}'"`
	TraceID           string                  `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (CompanionIssueModel) TableName() string {
	return "companion_issues"
}

// ToDomain converts the persistence model to a domain Issue entity.
func (m *CompanionIssueModel) ToDomain() *companion.Issue {
	issue := &companion.Issue{
		Surface:           m.Surface,
		RunType:           m.RunType,
		RunID:             m.RunID,
		Severity:          m.Severity,
		Status:            m.Status,
		Title:             m.Title,
		Description:       m.Description,
		RecommendedAction: m.RecommendedAction,
		EstimatedImpact:   m.EstimatedImpact,
		Data:              m.Data,
		TraceID:           m.TraceID,
	}
	m.PopulateTenantAggregateRoot(&issue.TenantAggregateRoot)
	return issue
}

// FromDomain populates the persistence model from a domain Issue entity.
func (m *CompanionIssueModel) FromDomain(i *companion.Issue) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.Surface = i.Surface
	m.RunType = i.RunType
	m.RunID = i.RunID
	m.Severity = i.Severity
	m.Status = i.Status
	m.Title = i.Title
	m.Description = i.Description
	m.RecommendedAction = i.RecommendedAction
	m.EstimatedImpact = i.EstimatedImpact
	m.Data = i.Data
	m.TraceID = i.TraceID
}

// CompanionIssueModelFromDomain creates a new persistence model from a domain Issue.
func CompanionIssueModelFromDomain(i *companion.Issue) *CompanionIssueModel {
	m := &CompanionIssueModel{}
	m.FromDomain(i)
	return m
}

// CompanionStoryModel is the persistence model for the cached Story aggregate root.
// One row per tenant.
type CompanionStoryModel struct {
	TenantAggregateModel
	Content     companion.StoryContent `gorm:"type:jsonb;default:'{}'"`
	Fingerprint string                 `gorm:"type:char(16);not null"`
	GeneratedAt time.Time              `gorm:"not null"`
	IsFallback  bool                   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CompanionStoryModel) TableName() string {
	return "companion_stories"
}

// ToDomain converts the persistence model to a domain Story entity.
func (m *CompanionStoryModel) ToDomain() *companion.Story {
	story := &companion.Story{
		Content:     m.Content,
		Fingerprint: m.Fingerprint,
		GeneratedAt: m.GeneratedAt,
		IsFallback:  m.IsFallback,
	}
	m.PopulateTenantAggregateRoot(&story.TenantAggregateRoot)
	return story
}

// FromDomain populates the persistence model from a domain Story entity.
func (m *CompanionStoryModel) FromDomain(s *companion.Story) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.Content = s.Content
	m.Fingerprint = s.Fingerprint
	m.GeneratedAt = s.GeneratedAt
	m.IsFallback = s.IsFallback
}

// CompanionStoryModelFromDomain creates a new persistence model from a domain Story.
func CompanionStoryModelFromDomain(s *companion.Story) *CompanionStoryModel {
	m := &CompanionStoryModel{}
	m.FromDomain(s)
	return m
}

// CompanionStoryStateModel tracks story regeneration bookkeeping per tenant.
type CompanionStoryStateModel struct {
	TenantAggregateModel
	NeedsRegeneration bool `gorm:"not null;default:true;index"`
	LastRequestedAt   *time.Time
}

// TableName returns the table name for GORM
func (CompanionStoryStateModel) TableName() string {
	return "companion_story_states"
}

// ToDomain converts the persistence model to a domain StoryState entity.
func (m *CompanionStoryStateModel) ToDomain() *companion.StoryState {
	state := &companion.StoryState{
		NeedsRegeneration: m.NeedsRegeneration,
		LastRequestedAt:   m.LastRequestedAt,
	}
	m.PopulateTenantAggregateRoot(&state.TenantAggregateRoot)
	return state
}

// FromDomain populates the persistence model from a domain StoryState entity.
func (m *CompanionStoryStateModel) FromDomain(s *companion.StoryState) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.NeedsRegeneration = s.NeedsRegeneration
	m.LastRequestedAt = s.LastRequestedAt
}

// CompanionStoryStateModelFromDomain creates a new persistence model from a domain StoryState.
func CompanionStoryStateModelFromDomain(s *companion.StoryState) *CompanionStoryStateModel {
	m := &CompanionStoryStateModel{}
	m.FromDomain(s)
	return m
}
