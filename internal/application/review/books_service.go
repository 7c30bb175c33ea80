package review

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// advisorFindingCap bounds how many findings the books and bank runs
// include in the advisor payload.
const advisorFindingCap = 20

// BooksReviewService screens the period's journal activity: totals,
// large and duplicate entries, adjustment language, and companion
// outlier detection.
type BooksReviewService struct {
	scope          TransactionScope
	entryRepo      ledger.JournalEntryRepository
	tenantRepo     identity.TenantRepository
	advisor        advisor.Advisor
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewBooksReviewService creates a new BooksReviewService
func NewBooksReviewService(
	scope TransactionScope,
	entryRepo ledger.JournalEntryRepository,
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *BooksReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BooksReviewService{
		scope:      scope,
		entryRepo:  entryRepo,
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *BooksReviewService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAdvisor enables the run-level advisor pass
func (s *BooksReviewService) SetAdvisor(a advisor.Advisor) {
	s.advisor = a
}

// Run screens the period's non-void journal entries and persists the
// outcome as a books run.
func (s *BooksReviewService) Run(ctx context.Context, tenantID uuid.UUID, req BooksReviewRequest) (*RunResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "review", "books_run")
	defer span.End()

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	run, err := review.NewRun(tenantID, review.RunTypeBooks, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	run.Start(telemetry.GetTraceID(ctx))

	entries, err := s.entryRepo.FindForTenant(ctx, tenantID, ledger.JournalEntryFilter{
		From: &req.PeriodStart,
		To:   &req.PeriodEnd,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	analyzer := review.NewBooksAnalyzer(tenant.CompanionEnabled())
	report := analyzer.Analyze(toBooksEntries(entries))
	high, medium := report.SeverityCounts()

	metrics := review.Metrics{
		"total_entries":    report.TotalEntries,
		"total_amount":     report.TotalAmount.StringFixed(2),
		"accounts_touched": report.AccountsTouched,
		"findings":         findingsMetric(report.Findings),
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

	s.advise(ctx, run, report.Findings)

	return &RunResponse{Run: ToRunView(run)}, nil
}

// toBooksEntries projects journal entries into the analyzer's shape.
// The entry amount is its debit total; balanced entries make the credit
// total redundant.
func toBooksEntries(entries []ledger.JournalEntry) []review.BooksEntry {
	projected := make([]review.BooksEntry, 0, len(entries))
	for _, e := range entries {
		accountIDs := make([]uuid.UUID, 0, len(e.Lines))
		seen := make(map[uuid.UUID]struct{}, len(e.Lines))
		for _, line := range e.Lines {
			if _, dup := seen[line.AccountID]; dup {
				continue
			}
			seen[line.AccountID] = struct{}{}
			accountIDs = append(accountIDs, line.AccountID)
		}
		projected = append(projected, review.BooksEntry{
			ID:          e.ID,
			EntryDate:   e.EntryDate.Format("2006-01-02"),
			Description: e.Description,
			Amount:      e.TotalDebits(),
			AccountIDs:  accountIDs,
		})
	}
	return projected
}

// findingsMetric serializes findings into the run metrics so the
// companion layer can synthesize issues without reloading the ledger.
func findingsMetric(findings []review.Finding) []map[string]any {
	out := make([]map[string]any, 0, len(findings))
	for _, f := range findings {
		ids := make([]string, 0, len(f.EntryIDs))
		for _, id := range f.EntryIDs {
			ids = append(ids, id.String())
		}
		out = append(out, map[string]any{
			"code":     f.Code,
			"severity": string(f.Severity),
			"message":  f.Message,
			"ids":      ids,
		})
	}
	return out
}

// advise runs the optional advisor pass over the deterministic findings
func (s *BooksReviewService) advise(ctx context.Context, run *review.Run, findings []review.Finding) {
	if s.advisor == nil || len(findings) == 0 {
		return
	}
	if len(findings) > advisorFindingCap {
		findings = findings[:advisorFindingCap]
	}

	payload := make([]advisor.Finding, 0, len(findings))
	whitelist := advisor.Whitelist{}
	for _, f := range findings {
		ids := make([]string, 0, len(f.EntryIDs))
		for _, id := range f.EntryIDs {
			ids = append(ids, id.String())
		}
		whitelist.JournalEntryIDs = append(whitelist.JournalEntryIDs, ids...)
		payload = append(payload, advisor.Finding{
			ID:       f.Code + "/" + strings.Join(ids, ","),
			Kind:     f.Code,
			Severity: string(f.Severity),
			Title:    f.Message,
		})
	}

	advice, err := s.advisor.Review(ctx, advisor.ReviewRequest{
		RunType:     string(run.RunType),
		PeriodStart: run.PeriodStart,
		PeriodEnd:   run.PeriodEnd,
		Metrics:     run.Metrics,
		Findings:    payload,
		Whitelist:   whitelist,
	})
	if err != nil || advice == nil {
		if err != nil {
			s.logger.Warn("advisor unavailable for books run",
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

func (s *BooksReviewService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish review events", zap.Error(err))
	}
}
