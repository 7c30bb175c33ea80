package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeSession = "ReconciliationSession"

// Event type constants
const (
	EventTypeSessionCompleted = "ReconciliationSessionCompleted"
	EventTypeSessionReopened  = "ReconciliationSessionReopened"
)

// SessionCompletedEvent is published when the completion gate passes
type SessionCompletedEvent struct {
	shared.BaseDomainEvent
	StatementStart time.Time       `json:"statement_start_date"`
	StatementEnd   time.Time       `json:"statement_end_date"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent
func NewSessionCompletedEvent(s *Session) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionCompleted, AggregateTypeSession, s.ID, s.TenantID),
		StatementStart:  s.StatementStart,
		StatementEnd:    s.StatementEnd,
		ClosingBalance:  s.ClosingOrZero(),
	}
}

// SessionReopenedEvent is published when a privileged user reopens a
// completed session.
type SessionReopenedEvent struct {
	shared.BaseDomainEvent
}

// NewSessionReopenedEvent creates a new SessionReopenedEvent
func NewSessionReopenedEvent(s *Session) *SessionReopenedEvent {
	return &SessionReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionReopened, AggregateTypeSession, s.ID, s.TenantID),
	}
}
