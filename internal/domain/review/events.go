package review

import (
	"github.com/ledgerline/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeRun = "ReviewRun"

// Event type constants
const (
	EventTypeRunCompleted = "ReviewRunCompleted"
)

// RunCompletedEvent is published when a pipeline run closes. The
// companion layer listens to refresh issues and mark the story dirty.
type RunCompletedEvent struct {
	shared.BaseDomainEvent
	RunType   RunType    `json:"run_type"`
	RiskLevel *RiskLevel `json:"risk_level,omitempty"`
}

// NewRunCompletedEvent creates a new RunCompletedEvent
func NewRunCompletedEvent(r *Run) *RunCompletedEvent {
	return &RunCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunCompleted, AggregateTypeRun, r.ID, r.TenantID),
		RunType:         r.RunType,
		RiskLevel:       r.RiskLevel,
	}
}
