package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// allocationIdempotencyTTL bounds how long a processed operation id stays
// in the replay fast path.
const allocationIdempotencyTTL = 24 * time.Hour

// AllocationService posts bank transactions into the ledger as balanced
// journal entries. The whole write set commits in one transaction; a
// repeated operation id replays the stored entry instead of re-posting.
type AllocationService struct {
	scope          TransactionScope
	entryRepo      ledger.JournalEntryRepository
	bankTxRepo     banking.BankTransactionRepository
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	scope TransactionScope,
	entryRepo ledger.JournalEntryRepository,
	bankTxRepo banking.BankTransactionRepository,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		scope:      scope,
		entryRepo:  entryRepo,
		bankTxRepo: bankTxRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables the cached replay probe for repeated
// operation ids
func (s *AllocationService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// Allocate runs the allocation engine for one bank transaction
func (s *AllocationService) Allocate(ctx context.Context, tenantID, userID, transactionID uuid.UUID, req AllocateRequest) (*AllocateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "allocate_bank_transaction")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBankTransactionID, transactionID.String(),
		telemetry.SpanAttrAllocationCount, len(req.Allocations),
	)

	if err := validateAllocateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// A repeated operation id short-circuits to the stored entry. The
	// cache probe spots retry storms cheaply; the database stays the
	// source of truth either way.
	if req.OperationID != "" {
		if s.idempotency != nil {
			seen, err := s.idempotency.IsProcessed(ctx, allocationIdempotencyKey(tenantID, req.OperationID))
			if err != nil {
				s.logger.Warn("allocation idempotency probe failed", zap.Error(err))
			} else if seen {
				telemetry.AddEvent(span, "allocation_replay_detected")
			}
		}
		replay, err := s.replayForOperationID(ctx, tenantID, transactionID, req.OperationID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if replay != nil {
			telemetry.SetOK(span)
			return replay, nil
		}
	}

	var (
		entry        *ledger.JournalEntry
		bankTx       *banking.BankTransaction
		replayed     *AllocateResponse
		operationErr error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationAllocate, ""), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			tx, err := repos.BankTransactions().FindByIDForTenantLocked(c, tenantID, transactionID)
			if err != nil {
				return err
			}
			if err := tx.EnsureAllocatable(); err != nil {
				return err
			}
			totals, err := repos.Matches().SumForTransaction(c, tenantID, tx.ID)
			if err != nil {
				return err
			}
			if totals.Count > 0 {
				return shared.NewStateError(shared.CodeTransactionMatched,
					"bank transaction already has reconciliation matches")
			}

			// Replays that raced past the pre-check stop here, inside
			// the row lock.
			if req.OperationID != "" {
				existing, err := repos.Entries().FindByOperationID(c, tenantID, req.OperationID)
				if err != nil {
					return err
				}
				if existing != nil {
					if tx.PostedJournalEntryID != nil && *tx.PostedJournalEntryID == existing.ID {
						replayed = buildAllocateResponse(existing, tx, true)
						return nil
					}
					return shared.NewStateError(shared.CodeOperationIDCollision,
						"operation id was already used by a different allocation")
				}
			}

			defaults, err := ResolveDefaults(c, repos.Accounts(), tenantID)
			if err != nil {
				return err
			}
			bankAccount, err := repos.BankAccounts().FindByIDForTenant(c, tenantID, tx.BankAccountID)
			if err != nil {
				return err
			}
			bankLedgerAccountID := defaults.Cash.ID
			if bankAccount.LedgerAccountID != nil {
				bankLedgerAccountID = *bankAccount.LedgerAccountID
			}

			resolved, err := loadAllocations(c, repos, tenantID, tx, req)
			if err != nil {
				return err
			}

			plan, err := buildAllocationPlan(tx, bankLedgerAccountID, resolved, req, defaults)
			if err != nil {
				return err
			}

			newEntry, err := ledger.NewJournalEntry(tenantID, tx.TransactionDate,
				allocationDescription(tx), ledger.EntrySourceAllocation)
			if err != nil {
				return err
			}
			newEntry.SetOperationID(req.OperationID)
			for _, line := range plan.lines {
				if line.debit.IsPositive() {
					err = newEntry.AddDebit(line.accountID, line.debit, line.description)
				} else {
					err = newEntry.AddCredit(line.accountID, line.credit, line.description)
				}
				if err != nil {
					return err
				}
			}
			if err := newEntry.Validate(); err != nil {
				return err
			}
			if err := repos.Entries().Save(c, newEntry); err != nil {
				return err
			}

			if err := applyTargetPayments(c, repos, resolved); err != nil {
				return err
			}

			amounts := matchRowAmounts(tx.IsDeposit(), plan.grossShares, plan.totalGross,
				req.Fees, plan.rounding, req.Overpayment, plan.bankPortion)
			matches := make([]*reconciliation.Match, 0, len(amounts))
			matchedSum := decimal.Zero
			for _, amount := range amounts {
				match, err := reconciliation.NewMatch(tenantID, tx.ID, newEntry.ID,
					reconciliation.MatchTypeAllocation, decimal.NewFromInt(1), amount)
				if err != nil {
					return err
				}
				match.SetReconciledBy(userID)
				matches = append(matches, match)
				matchedSum = matchedSum.Add(amount)
			}
			if err := repos.Matches().SaveAll(c, matches); err != nil {
				return err
			}

			entryID := newEntry.ID
			tx.PostedJournalEntryID = &entryID
			setMatchedPointers(tx, resolved)
			if err := tx.ApplyMatchTotal(matchedSum, len(matches)); err != nil {
				return err
			}
			if err := repos.BankTransactions().Save(c, tx); err != nil {
				return err
			}

			entry = newEntry
			bankTx = tx
			return nil
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	if replayed != nil {
		telemetry.SetOK(span)
		return replayed, nil
	}

	if req.OperationID != "" && s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, allocationIdempotencyKey(tenantID, req.OperationID), allocationIdempotencyTTL); err != nil {
			s.logger.Warn("failed to record allocation operation id", zap.Error(err))
		}
	}
	s.publishEvents(ctx,
		ledger.NewJournalEntryPostedEvent(entry),
		banking.NewTransactionAllocatedEvent(bankTx),
	)

	telemetry.SetAttribute(span, telemetry.SpanAttrJournalEntryID, entry.ID.String())
	telemetry.SetOK(span)
	return buildAllocateResponse(entry, bankTx, false), nil
}

// replayForOperationID resolves a previously posted operation id. It
// returns nil when the id is unused; a stored entry linked to another
// transaction is a collision.
func (s *AllocationService) replayForOperationID(ctx context.Context, tenantID, transactionID uuid.UUID, operationID string) (*AllocateResponse, error) {
	existing, err := s.entryRepo.FindByOperationID(ctx, tenantID, operationID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	tx, err := s.bankTxRepo.FindByIDForTenant(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.PostedJournalEntryID != nil && *tx.PostedJournalEntryID == existing.ID {
		return buildAllocateResponse(existing, tx, true), nil
	}
	return nil, shared.NewStateError(shared.CodeOperationIDCollision,
		"operation id was already used by a different allocation")
}

// loadAllocations validates polarity and loads every referenced row. Target
// documents load under FOR UPDATE so the over-allocation check holds until
// commit.
func loadAllocations(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, tx *banking.BankTransaction, req AllocateRequest) ([]resolvedAllocation, error) {
	deposit := tx.IsDeposit()
	tolerance := req.Tolerance()
	resolved := make([]resolvedAllocation, 0, len(req.Allocations))

	for i, input := range req.Allocations {
		if input.Kind.RequiresDeposit() != deposit {
			direction := "a withdrawal"
			if input.Kind.RequiresDeposit() {
				direction = "a deposit"
			}
			return nil, shared.NewValidationError(fmt.Sprintf(
				"allocation %d: kind %s requires %s", i+1, input.Kind, direction))
		}

		alloc := resolvedAllocation{input: input}
		switch input.Kind {
		case AllocationKindInvoice:
			invoice, err := repos.Invoices().FindByIDForTenantLocked(ctx, tenantID, *input.TargetID)
			if err != nil {
				return nil, err
			}
			if input.Amount.GreaterThan(invoice.Outstanding().Add(tolerance)) {
				return nil, shared.NewValidationError(fmt.Sprintf(
					"allocation %d exceeds the outstanding balance of invoice %s", i+1, invoice.Number))
			}
			alloc.invoice = invoice

		case AllocationKindBill:
			bill, err := repos.Bills().FindByIDForTenantLocked(ctx, tenantID, *input.TargetID)
			if err != nil {
				return nil, err
			}
			if input.Amount.GreaterThan(bill.Outstanding().Add(tolerance)) {
				return nil, shared.NewValidationError(fmt.Sprintf(
					"allocation %d exceeds the outstanding balance of bill %s", i+1, bill.Number))
			}
			alloc.bill = bill

		case AllocationKindDirectIncome, AllocationKindDirectExpense, AllocationKindCreditNote:
			account, err := repos.Accounts().FindByIDForTenant(ctx, tenantID, *input.AccountID)
			if err != nil {
				return nil, err
			}
			alloc.account = account
		}

		if input.TaxRateID != nil {
			rate, err := repos.TaxRates().FindByIDForTenant(ctx, tenantID, *input.TaxRateID)
			if err != nil {
				return nil, err
			}
			alloc.taxRate = rate
		}
		resolved = append(resolved, alloc)
	}
	return resolved, nil
}

// applyTargetPayments rolls amount_paid forward on every touched document
func applyTargetPayments(ctx context.Context, repos TransactionalRepositories, resolved []resolvedAllocation) error {
	for _, alloc := range resolved {
		switch {
		case alloc.invoice != nil:
			if err := alloc.invoice.ApplyPayment(alloc.input.Amount); err != nil {
				return err
			}
			if err := repos.Invoices().Save(ctx, alloc.invoice); err != nil {
				return err
			}
		case alloc.bill != nil:
			if err := alloc.bill.ApplyPayment(alloc.input.Amount); err != nil {
				return err
			}
			if err := repos.Bills().Save(ctx, alloc.bill); err != nil {
				return err
			}
		}
	}
	return nil
}

// setMatchedPointers records the pure single-target shortcut used by list
// views. Mixed or multi-target allocations clear both pointers.
func setMatchedPointers(tx *banking.BankTransaction, resolved []resolvedAllocation) {
	tx.MatchedInvoiceID = nil
	tx.MatchedBillID = nil
	if len(resolved) != 1 {
		return
	}
	switch {
	case resolved[0].invoice != nil:
		id := resolved[0].invoice.ID
		tx.MatchedInvoiceID = &id
	case resolved[0].bill != nil:
		id := resolved[0].bill.ID
		tx.MatchedBillID = &id
	}
}

// validateAllocateRequest rejects statically malformed requests before any
// row is loaded or locked
func validateAllocateRequest(req AllocateRequest) error {
	if len(req.Allocations) == 0 {
		return shared.NewValidationError("at least one allocation is required")
	}
	for i, input := range req.Allocations {
		if !input.Kind.IsValid() {
			return shared.NewValidationError(fmt.Sprintf(
				"allocation %d has unknown kind %q", i+1, string(input.Kind)))
		}
		if !input.Amount.IsPositive() {
			return shared.NewValidationError(fmt.Sprintf(
				"allocation %d must have a positive amount", i+1))
		}
		switch input.Kind {
		case AllocationKindInvoice, AllocationKindBill:
			if input.TargetID == nil || *input.TargetID == uuid.Nil {
				return shared.NewValidationError(fmt.Sprintf(
					"allocation %d requires a target id", i+1))
			}
			if input.TaxTreatment != nil || input.TaxRateID != nil {
				return shared.NewValidationError(fmt.Sprintf(
					"allocation %d: tax applies to direct allocations only", i+1))
			}
		case AllocationKindCreditNote:
			if input.AccountID == nil || *input.AccountID == uuid.Nil {
				return shared.NewValidationError(fmt.Sprintf(
					"allocation %d requires an account id", i+1))
			}
			if input.TaxTreatment != nil || input.TaxRateID != nil {
				return shared.NewValidationError(fmt.Sprintf(
					"allocation %d: tax applies to direct allocations only", i+1))
			}
		case AllocationKindDirectIncome, AllocationKindDirectExpense:
			if input.AccountID == nil || *input.AccountID == uuid.Nil {
				return shared.NewValidationError(fmt.Sprintf(
					"allocation %d requires an account id", i+1))
			}
			if err := validateTaxFields(i, input); err != nil {
				return err
			}
		}
	}
	if req.Fees.IsNegative() {
		return shared.NewValidationError("fees cannot be negative")
	}
	if req.Overpayment.IsNegative() {
		return shared.NewValidationError("overpayment cannot be negative")
	}
	return nil
}

// validateTaxFields requires treatment and rate to travel together
func validateTaxFields(i int, input AllocationInput) error {
	if input.TaxTreatment == nil {
		if input.TaxRateID != nil {
			return shared.NewValidationError(fmt.Sprintf(
				"allocation %d supplies a tax rate without a treatment", i+1))
		}
		return nil
	}
	if !input.TaxTreatment.IsValid() {
		return shared.NewValidationError(fmt.Sprintf(
			"allocation %d has invalid tax treatment %q", i+1, string(*input.TaxTreatment)))
	}
	if *input.TaxTreatment != ledger.TaxTreatmentNone && input.TaxRateID == nil {
		return shared.NewValidationError(fmt.Sprintf(
			"allocation %d requires a tax rate for treatment %s", i+1, *input.TaxTreatment))
	}
	return nil
}

func (s *AllocationService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish allocation event",
				zap.String("event_type", event.EventType()), zap.Error(err))
		}
	}
}

func allocationIdempotencyKey(tenantID uuid.UUID, operationID string) string {
	return fmt.Sprintf("alloc:%s:%s", tenantID, operationID)
}

func allocationDescription(tx *banking.BankTransaction) string {
	if tx.Description != "" {
		return tx.Description
	}
	return "Bank transaction allocation"
}

func buildAllocateResponse(entry *ledger.JournalEntry, tx *banking.BankTransaction, alreadyPosted bool) *AllocateResponse {
	return &AllocateResponse{
		JournalEntry:     ToJournalEntryResponse(entry),
		TransactionID:    tx.ID,
		Status:           tx.Status.String(),
		AllocatedAmount:  tx.AllocatedAmount,
		MatchedInvoiceID: tx.MatchedInvoiceID,
		MatchedBillID:    tx.MatchedBillID,
		AlreadyPosted:    alreadyPosted,
	}
}
