package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// maxImportRows bounds one feed batch. Statement exports larger than this
// arrive as multiple calls.
const maxImportRows = 1000

const importDateLayout = "2006-01-02"

// BankFeedService ingests statement rows, deduplicates them by fingerprint
// and maintains the persisted matching suggestions. Listing endpoints only
// read; suggestions are written here and by the explicit suggest call.
type BankFeedService struct {
	bankAccountRepo banking.BankAccountRepository
	bankTxRepo      banking.BankTransactionRepository
	ruleRepo        banking.BankRuleRepository
	invoiceRepo     ledger.InvoiceRepository
	billRepo        ledger.BillRepository
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewBankFeedService creates a new BankFeedService
func NewBankFeedService(
	bankAccountRepo banking.BankAccountRepository,
	bankTxRepo banking.BankTransactionRepository,
	ruleRepo banking.BankRuleRepository,
	invoiceRepo ledger.InvoiceRepository,
	billRepo ledger.BillRepository,
	logger *zap.Logger,
) *BankFeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankFeedService{
		bankAccountRepo: bankAccountRepo,
		bankTxRepo:      bankTxRepo,
		ruleRepo:        ruleRepo,
		invoiceRepo:     invoiceRepo,
		billRepo:        billRepo,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *BankFeedService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ImportTransactions loads a batch of parsed statement rows. Rows whose
// fingerprint already exists on the account, or repeats within the batch,
// count as duplicates and are skipped. Fresh rows get a matching suggestion
// before they are persisted.
func (s *BankFeedService) ImportTransactions(ctx context.Context, tenantID uuid.UUID, req ImportTransactionsRequest) (*ImportTransactionsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking", "import_transactions")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBankAccountID, req.BankAccountID.String(),
		telemetry.SpanAttrRowCount, len(req.Rows),
	)

	if req.BankAccountID == uuid.Nil {
		return nil, shared.NewValidationError("bank account is required")
	}
	if len(req.Rows) == 0 {
		return nil, shared.NewValidationError("at least one row is required")
	}
	if len(req.Rows) > maxImportRows {
		return nil, shared.NewValidationError(fmt.Sprintf(
			"import batch exceeds %d rows", maxImportRows))
	}

	account, err := s.bankAccountRepo.FindByIDForTenant(ctx, tenantID, req.BankAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	parsed, err := parseImportRows(tenantID, account.ID, req.Rows)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	fingerprints := make([]string, len(parsed))
	for i, tx := range parsed {
		fingerprints[i] = tx.Fingerprint
	}
	existing, err := s.bankTxRepo.FindExistingFingerprints(ctx, tenantID, account.ID, fingerprints)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	seen := make(map[string]bool, len(parsed))
	fresh := make([]*banking.BankTransaction, 0, len(parsed))
	duplicates := 0
	for _, tx := range parsed {
		if existing[tx.Fingerprint] || seen[tx.Fingerprint] {
			duplicates++
			continue
		}
		seen[tx.Fingerprint] = true
		fresh = append(fresh, tx)
	}

	suggestions := 0
	if len(fresh) > 0 {
		suggestions, err = s.suggestForBatch(ctx, tenantID, fresh)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.bankTxRepo.SaveAll(ctx, fresh); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	s.publishEvents(ctx, banking.NewTransactionsImportedEvent(tenantID, account.ID, len(fresh), duplicates))

	telemetry.SetOK(span)
	return &ImportTransactionsResponse{
		Imported:    len(fresh),
		Duplicates:  duplicates,
		Suggestions: suggestions,
	}, nil
}

// ListTransactions returns feed lines matching the query, newest first
func (s *BankFeedService) ListTransactions(ctx context.Context, tenantID uuid.UUID, query ListTransactionsQuery) ([]TransactionResponse, error) {
	filter := banking.TransactionFilter{
		BankAccountID: query.BankAccountID,
		From:          query.From,
		To:            query.To,
		Limit:         query.Limit,
	}
	if query.Status != nil {
		status := banking.TransactionStatus(*query.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf(
				"invalid transaction status: %s", *query.Status))
		}
		filter.Status = &status
	}

	txs, err := s.bankTxRepo.FindForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]TransactionResponse, len(txs))
	for i := range txs {
		responses[i] = ToTransactionResponse(&txs[i])
	}
	return responses, nil
}

// GetTransaction returns one feed line
func (s *BankFeedService) GetTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.bankTxRepo.FindByIDForTenant(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// SuggestMatch recomputes the persisted suggestion for one transaction
func (s *BankFeedService) SuggestMatch(ctx context.Context, tenantID, transactionID uuid.UUID) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking", "suggest_match")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrBankTransactionID, transactionID.String())

	tx, err := s.bankTxRepo.FindByIDForTenant(ctx, tenantID, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if tx.Status.IsReconciled() || tx.Status == banking.TransactionStatusExcluded {
		return nil, shared.NewStateError(shared.CodeTransactionNotOpen,
			"suggestions only apply to unreconciled transactions")
	}

	engine, candidates, err := s.matchingInputs(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if best := engine.Best(tx, candidates.forTransaction(tx)); best != nil {
		tx.SetSuggestion(best.Confidence, best.Reason, best.MatchType)
	} else {
		tx.ClearSuggestion()
	}
	if err := s.bankTxRepo.Save(ctx, tx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// suggestForBatch computes and stores suggestions on unsaved rows, returning
// how many rows received one
func (s *BankFeedService) suggestForBatch(ctx context.Context, tenantID uuid.UUID, txs []*banking.BankTransaction) (int, error) {
	engine, candidates, err := s.matchingInputs(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, tx := range txs {
		if best := engine.Best(tx, candidates.forTransaction(tx)); best != nil {
			tx.SetSuggestion(best.Confidence, best.Reason, best.MatchType)
			count++
		}
	}
	return count, nil
}

// matchCandidates holds the polarity-split candidate pools for one tenant
type matchCandidates struct {
	deposits    []banking.MatchCandidate
	withdrawals []banking.MatchCandidate
}

func (c matchCandidates) forTransaction(tx *banking.BankTransaction) []banking.MatchCandidate {
	if tx.IsDeposit() {
		return c.deposits
	}
	return c.withdrawals
}

// matchingInputs loads the rule set and open documents once per call
func (s *BankFeedService) matchingInputs(ctx context.Context, tenantID uuid.UUID) (*banking.MatchingEngine, matchCandidates, error) {
	rules, err := s.ruleRepo.FindActiveForTenant(ctx, tenantID)
	if err != nil {
		return nil, matchCandidates{}, err
	}
	invoices, err := s.invoiceRepo.FindOpenForTenant(ctx, tenantID)
	if err != nil {
		return nil, matchCandidates{}, err
	}
	bills, err := s.billRepo.FindOpenForTenant(ctx, tenantID)
	if err != nil {
		return nil, matchCandidates{}, err
	}

	candidates := matchCandidates{
		deposits:    make([]banking.MatchCandidate, 0, len(invoices)),
		withdrawals: make([]banking.MatchCandidate, 0, len(bills)),
	}
	for i := range invoices {
		invoice := &invoices[i]
		candidates.deposits = append(candidates.deposits, banking.MatchCandidate{
			ID:          invoice.ID,
			Kind:        banking.CandidateKindInvoice,
			Date:        invoice.IssueDate,
			Amount:      invoice.Outstanding(),
			Description: invoice.CounterpartyName + " " + invoice.Number,
		})
	}
	for i := range bills {
		bill := &bills[i]
		candidates.withdrawals = append(candidates.withdrawals, banking.MatchCandidate{
			ID:          bill.ID,
			Kind:        banking.CandidateKindBill,
			Date:        bill.IssueDate,
			Amount:      bill.Outstanding(),
			Description: bill.CounterpartyName + " " + bill.Number,
		})
	}
	return banking.NewMatchingEngine(rules), candidates, nil
}

// parseImportRows turns request rows into domain transactions, reporting
// the first bad row
func parseImportRows(tenantID, bankAccountID uuid.UUID, rows []ImportRow) ([]*banking.BankTransaction, error) {
	parsed := make([]*banking.BankTransaction, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(importDateLayout, row.Date)
		if err != nil {
			return nil, shared.NewValidationError(fmt.Sprintf(
				"row %d has invalid date %q, expected YYYY-MM-DD", i+1, row.Date))
		}
		tx, err := banking.NewBankTransaction(tenantID, bankAccountID, date, row.Description, row.Amount, row.ExternalID)
		if err != nil {
			return nil, shared.NewValidationError(fmt.Sprintf("row %d: %s", i+1, err.Error()))
		}
		parsed = append(parsed, tx)
	}
	return parsed, nil
}

func (s *BankFeedService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish banking event",
				zap.String("event_type", event.EventType()), zap.Error(err))
		}
	}
}
