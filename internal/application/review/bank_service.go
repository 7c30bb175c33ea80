package review

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// BankReviewService compares the statement feed against ledger activity
// for one period and classifies every line without mutating either
// side. Reconciliation itself stays with the session workflows.
type BankReviewService struct {
	scope          TransactionScope
	bankTxRepo     banking.BankTransactionRepository
	entryRepo      ledger.JournalEntryRepository
	tenantRepo     identity.TenantRepository
	advisor        advisor.Advisor
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewBankReviewService creates a new BankReviewService
func NewBankReviewService(
	scope TransactionScope,
	bankTxRepo banking.BankTransactionRepository,
	entryRepo ledger.JournalEntryRepository,
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *BankReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankReviewService{
		scope:      scope,
		bankTxRepo: bankTxRepo,
		entryRepo:  entryRepo,
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *BankReviewService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAdvisor enables the run-level advisor pass
func (s *BankReviewService) SetAdvisor(a advisor.Advisor) {
	s.advisor = a
}

// Run classifies the period's statement lines as matched, partially
// matched, unmatched, or duplicate against the ledger.
func (s *BankReviewService) Run(ctx context.Context, tenantID uuid.UUID, req BankReviewRequest) (*RunResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "review", "bank_run")
	defer span.End()

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	run, err := review.NewRun(tenantID, review.RunTypeBank, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	run.Start(telemetry.GetTraceID(ctx))

	filter := banking.TransactionFilter{From: &req.PeriodStart, To: &req.PeriodEnd}
	if req.BankAccountID != nil {
		telemetry.SetAttribute(span, telemetry.SpanAttrBankAccountID, req.BankAccountID.String())
		filter.BankAccountID = req.BankAccountID
	}
	transactions, err := s.bankTxRepo.FindForTenant(ctx, tenantID, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entries, err := s.entryRepo.FindForTenant(ctx, tenantID, ledger.JournalEntryFilter{
		From: &req.PeriodStart,
		To:   &req.PeriodEnd,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	analyzer := review.NewBankAnalyzer(tenant.CompanionEnabled())
	report := analyzer.Classify(toBankLines(transactions), toLedgerSides(entries))
	high, medium := report.SeverityCounts()

	metrics := review.Metrics{
		"lines":           len(transactions),
		"matched":         report.Matched,
		"partial":         report.Partial,
		"unmatched":       report.Unmatched,
		"duplicates":      report.Duplicates,
		"classifications": classificationsMetric(report.Classifications),
	}
	run.Complete(metrics, high, medium)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Runs().Save(ctx, run)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, run.ID.String())

	s.publishEvents(ctx, run.GetDomainEvents()...)
	run.ClearDomainEvents()

	s.advise(ctx, run, report)

	return &RunResponse{Run: ToRunView(run)}, nil
}

func toBankLines(transactions []banking.BankTransaction) []review.BankLine {
	lines := make([]review.BankLine, 0, len(transactions))
	for _, tx := range transactions {
		lines = append(lines, review.BankLine{
			ID:          tx.ID,
			Date:        tx.TransactionDate,
			Amount:      tx.Amount,
			Description: tx.Description,
			ExternalID:  tx.ExternalID,
		})
	}
	return lines
}

// toLedgerSides projects journal entries for matching; the debit total
// stands in for the entry amount since entries are balanced.
func toLedgerSides(entries []ledger.JournalEntry) []review.LedgerSide {
	sides := make([]review.LedgerSide, 0, len(entries))
	for _, e := range entries {
		sides = append(sides, review.LedgerSide{
			ID:          e.ID,
			Date:        e.EntryDate,
			Amount:      e.TotalDebits(),
			Description: e.Description,
		})
	}
	return sides
}

func classificationsMetric(classifications []review.BankClassification) []map[string]any {
	out := make([]map[string]any, 0, len(classifications))
	for _, c := range classifications {
		out = append(out, map[string]any{
			"line_id": c.LineID.String(),
			"state":   string(c.State),
			"reason":  c.Reason,
		})
	}
	return out
}

// advise sends the problem lines to the advisor; clean runs skip the
// call entirely.
func (s *BankReviewService) advise(ctx context.Context, run *review.Run, report review.BankReport) {
	if s.advisor == nil {
		return
	}

	findings := make([]advisor.Finding, 0, advisorFindingCap)
	whitelist := advisor.Whitelist{}
	for _, c := range report.Classifications {
		if c.State == review.BankMatched {
			continue
		}
		if len(findings) >= advisorFindingCap {
			break
		}
		id := c.LineID.String()
		severity := string(review.SeverityMedium)
		if c.State == review.BankDuplicate {
			severity = string(review.SeverityHigh)
		}
		whitelist.TransactionIDs = append(whitelist.TransactionIDs, id)
		findings = append(findings, advisor.Finding{
			ID:       id,
			Kind:     string(c.State),
			Severity: severity,
			Title:    c.Reason,
		})
	}
	if len(findings) == 0 {
		return
	}

	advice, err := s.advisor.Review(ctx, advisor.ReviewRequest{
		RunType:     string(run.RunType),
		PeriodStart: run.PeriodStart,
		PeriodEnd:   run.PeriodEnd,
		Metrics:     run.Metrics,
		Findings:    findings,
		Whitelist:   whitelist,
	})
	if err != nil || advice == nil {
		if err != nil {
			s.logger.Warn("advisor unavailable for bank run",
				zap.String("run_id", run.ID.String()), zap.Error(err))
		}
		return
	}

	attachAdvice(run, advice, s.advisor.Model())
	if err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Runs().Save(ctx, run)
	}); err != nil {
		s.logger.Warn("advisor result could not be stored",
			zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

func (s *BankReviewService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish review events", zap.Error(err))
	}
}
