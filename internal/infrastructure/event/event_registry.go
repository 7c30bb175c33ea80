package event

import (
	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/review"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Banking domain events
	serializer.Register(banking.EventTypeTransactionsImported, &banking.TransactionsImportedEvent{})
	serializer.Register(banking.EventTypeTransactionAllocated, &banking.TransactionAllocatedEvent{})
	serializer.Register(banking.EventTypeTransactionMatched, &banking.TransactionMatchedEvent{})
	serializer.Register(banking.EventTypeTransactionUnmatched, &banking.TransactionUnmatchedEvent{})
	serializer.Register(banking.EventTypeTransactionExcluded, &banking.TransactionExcludedEvent{})

	// Ledger domain events
	serializer.Register(ledger.EventTypeJournalEntryPosted, &ledger.JournalEntryPostedEvent{})
	serializer.Register(ledger.EventTypeJournalEntryVoided, &ledger.JournalEntryVoidedEvent{})

	// Reconciliation domain events
	serializer.Register(reconciliation.EventTypeSessionCompleted, &reconciliation.SessionCompletedEvent{})
	serializer.Register(reconciliation.EventTypeSessionReopened, &reconciliation.SessionReopenedEvent{})

	// Review domain events
	serializer.Register(review.EventTypeRunCompleted, &review.RunCompletedEvent{})

	// Companion domain events
	serializer.Register(companion.EventTypeIssuesGenerated, &companion.IssuesGeneratedEvent{})
}
