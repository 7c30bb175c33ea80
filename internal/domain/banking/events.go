package banking

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBankTransaction = "BankTransaction"

// Event type constants
const (
	EventTypeTransactionsImported = "BankTransactionsImported"
	EventTypeTransactionAllocated = "BankTransactionAllocated"
	EventTypeTransactionMatched   = "BankTransactionMatched"
	EventTypeTransactionUnmatched = "BankTransactionUnmatched"
	EventTypeTransactionExcluded  = "BankTransactionExcluded"
)

// TransactionsImportedEvent is published after a feed batch commits
type TransactionsImportedEvent struct {
	shared.BaseDomainEvent
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
}

// NewTransactionsImportedEvent creates a new TransactionsImportedEvent
func NewTransactionsImportedEvent(tenantID, bankAccountID uuid.UUID, imported, duplicates int) *TransactionsImportedEvent {
	return &TransactionsImportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionsImported, AggregateTypeBankTransaction, bankAccountID, tenantID),
		Imported:        imported,
		Duplicates:      duplicates,
	}
}

// TransactionAllocatedEvent is published after the allocation engine commits
type TransactionAllocatedEvent struct {
	shared.BaseDomainEvent
	Status          TransactionStatus `json:"status"`
	AllocatedAmount decimal.Decimal   `json:"allocated_amount"`
}

// NewTransactionAllocatedEvent creates a new TransactionAllocatedEvent
func NewTransactionAllocatedEvent(tx *BankTransaction) *TransactionAllocatedEvent {
	return &TransactionAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionAllocated, AggregateTypeBankTransaction, tx.ID, tx.TenantID),
		Status:          tx.Status,
		AllocatedAmount: tx.AllocatedAmount,
	}
}

// TransactionMatchedEvent is published when a manual match commits
type TransactionMatchedEvent struct {
	shared.BaseDomainEvent
	Status TransactionStatus `json:"status"`
}

// NewTransactionMatchedEvent creates a new TransactionMatchedEvent
func NewTransactionMatchedEvent(tx *BankTransaction) *TransactionMatchedEvent {
	return &TransactionMatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionMatched, AggregateTypeBankTransaction, tx.ID, tx.TenantID),
		Status:          tx.Status,
	}
}

// TransactionUnmatchedEvent is published when a match is torn down
type TransactionUnmatchedEvent struct {
	shared.BaseDomainEvent
}

// NewTransactionUnmatchedEvent creates a new TransactionUnmatchedEvent
func NewTransactionUnmatchedEvent(tx *BankTransaction) *TransactionUnmatchedEvent {
	return &TransactionUnmatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionUnmatched, AggregateTypeBankTransaction, tx.ID, tx.TenantID),
	}
}

// TransactionExcludedEvent is published when a line is excluded from
// reconciliation
type TransactionExcludedEvent struct {
	shared.BaseDomainEvent
}

// NewTransactionExcludedEvent creates a new TransactionExcludedEvent
func NewTransactionExcludedEvent(tx *BankTransaction) *TransactionExcludedEvent {
	return &TransactionExcludedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionExcluded, AggregateTypeBankTransaction, tx.ID, tx.TenantID),
	}
}
