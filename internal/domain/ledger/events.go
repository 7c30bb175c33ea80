package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeJournalEntry = "JournalEntry"

// Event type constants
const (
	EventTypeJournalEntryPosted = "JournalEntryPosted"
	EventTypeJournalEntryVoided = "JournalEntryVoided"
)

// JournalEntryPostedEvent is published after an entry and its lines commit
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	Source      EntrySource     `json:"source"`
	LineCount   int             `json:"line_count"`
	TotalDebits decimal.Decimal `json:"total_debits"`
	OperationID *string         `json:"operation_id,omitempty"`
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(entry *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, AggregateTypeJournalEntry, entry.ID, entry.TenantID),
		Source:          entry.Source,
		LineCount:       len(entry.Lines),
		TotalDebits:     entry.TotalDebits(),
		OperationID:     entry.AllocationOperationID,
	}
}

// JournalEntryVoidedEvent is published when an entry is voided
type JournalEntryVoidedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason,omitempty"`
}

// NewJournalEntryVoidedEvent creates a new JournalEntryVoidedEvent
func NewJournalEntryVoidedEvent(tenantID, entryID uuid.UUID, reason string) *JournalEntryVoidedEvent {
	return &JournalEntryVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryVoided, AggregateTypeJournalEntry, entryID, tenantID),
		Reason:          reason,
	}
}
