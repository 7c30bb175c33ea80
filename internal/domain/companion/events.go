package companion

import (
	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeIssue = "CompanionIssue"

// Event type constants
const (
	EventTypeIssuesGenerated = "CompanionIssuesGenerated"
)

// IssuesGeneratedEvent is published after a batch of issues commits.
// The story state listens and goes dirty.
type IssuesGeneratedEvent struct {
	shared.BaseDomainEvent
	Count int `json:"count"`
}

// NewIssuesGeneratedEvent creates a new IssuesGeneratedEvent
func NewIssuesGeneratedEvent(tenantID uuid.UUID, count int) *IssuesGeneratedEvent {
	return &IssuesGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIssuesGenerated, AggregateTypeIssue, tenantID, tenantID),
		Count:           count,
	}
}
