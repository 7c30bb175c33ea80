package companion

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/companion"
)

// ListIssuesQuery narrows the issue listing
type ListIssuesQuery struct {
	Surface  string `form:"surface"`
	Severity string `form:"severity"`
	Status   string `form:"status"`
	Limit    int    `form:"limit"`
}

// UpdateIssueRequest moves an issue through its lifecycle
type UpdateIssueRequest struct {
	Status string `json:"status" binding:"required"`
}

// IssueView is one issue in responses
type IssueView struct {
	ID                uuid.UUID           `json:"id"`
	Surface           string              `json:"surface"`
	RunType           *string             `json:"run_type,omitempty"`
	RunID             *uuid.UUID          `json:"run_id,omitempty"`
	Severity          string              `json:"severity"`
	Status            string              `json:"status"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	RecommendedAction string              `json:"recommended_action"`
	EstimatedImpact   string              `json:"estimated_impact"`
	Data              companion.IssueData `json:"data"`
	CreatedAt         time.Time           `json:"created_at"`
}

// ToIssueView converts an issue to its response form
func ToIssueView(issue *companion.Issue) IssueView {
	return IssueView{
		ID:                issue.ID,
		Surface:           string(issue.Surface),
		RunType:           issue.RunType,
		RunID:             issue.RunID,
		Severity:          string(issue.Severity),
		Status:            string(issue.Status),
		Title:             issue.Title,
		Description:       issue.Description,
		RecommendedAction: issue.RecommendedAction,
		EstimatedImpact:   issue.EstimatedImpact,
		Data:              issue.Data,
		CreatedAt:         issue.CreatedAt,
	}
}

// StoryView is the cached narrative in responses
type StoryView struct {
	Content     companion.StoryContent `json:"content"`
	GeneratedAt *time.Time             `json:"generated_at,omitempty"`
	IsFallback  bool                   `json:"is_fallback"`
}

// SummaryResponse is the composite companion view
type SummaryResponse struct {
	Radar     companion.Radar          `json:"radar"`
	Coverage  []companion.Coverage     `json:"coverage"`
	Readiness companion.CloseReadiness `json:"close_readiness"`
	Playbook  []companion.PlaybookStep `json:"playbook"`
	Issues    []IssueView              `json:"issues"`
	Story     StoryView                `json:"story"`
}
