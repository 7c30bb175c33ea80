package companion

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// summaryIssueLimit caps the issues embedded in the summary payload
const summaryIssueLimit = 10

// SummaryService composes the companion dashboard: radar, coverage,
// close readiness, playbook, top issues, and the cached story. It is a
// pure read model over data the pipelines already produced.
type SummaryService struct {
	issueRepo    companion.IssueRepository
	bankTxRepo   banking.BankTransactionRepository
	invoiceRepo  ledger.InvoiceRepository
	docRepo      review.DocumentReviewRepository
	accountRepo  ledger.AccountRepository
	storyService *StoryService
	logger       *zap.Logger
	now          func() time.Time
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(
	issueRepo companion.IssueRepository,
	bankTxRepo banking.BankTransactionRepository,
	invoiceRepo ledger.InvoiceRepository,
	docRepo review.DocumentReviewRepository,
	accountRepo ledger.AccountRepository,
	storyService *StoryService,
	logger *zap.Logger,
) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		issueRepo:    issueRepo,
		bankTxRepo:   bankTxRepo,
		invoiceRepo:  invoiceRepo,
		docRepo:      docRepo,
		accountRepo:  accountRepo,
		storyService: storyService,
		logger:       logger,
		now:          time.Now,
	}
}

// GetSummary assembles the dashboard for a tenant
func (s *SummaryService) GetSummary(ctx context.Context, tenantID uuid.UUID) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "companion", "get_summary")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrTenantID, tenantID.String())

	issues, err := s.issueRepo.FindForTenant(ctx, tenantID, companion.IssueFilter{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	companion.SortForDisplay(issues)
	radar := companion.ComputeRadar(issues, s.now())

	coverages, err := s.computeCoverage(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	readiness, err := s.evaluateReadiness(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	playbook := companion.BuildPlaybook(issues, coverages, companion.DefaultPlaybookSteps)

	top := issues
	if len(top) > summaryIssueLimit {
		top = top[:summaryIssueLimit]
	}
	issueViews := make([]IssueView, 0, len(top))
	for i := range top {
		issueViews = append(issueViews, ToIssueView(&top[i]))
	}

	story, err := s.storyService.GetStory(ctx, tenantID)
	if err != nil {
		// summary still renders without a narrative
		s.logger.Warn("story unavailable for summary",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
		story = &StoryView{Content: companion.FallbackStory(), IsFallback: true}
	}

	return &SummaryResponse{
		Radar:     radar,
		Coverage:  coverages,
		Readiness: readiness,
		Playbook:  playbook,
		Issues:    issueViews,
		Story:     *story,
	}, nil
}

// computeCoverage measures each domain's processed share: reconciled
// bank lines, settled invoices, clean receipts, and the books heuristic
// over open issues.
func (s *SummaryService) computeCoverage(ctx context.Context, tenantID uuid.UUID) ([]companion.Coverage, error) {
	unreconciled, totalBank, err := s.bankTxRepo.UnreconciledSessionCounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	settled, totalInvoices, err := s.invoiceRepo.SettlementCounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	okDocs, totalDocs, err := s.docRepo.AuditStatusCounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	openBySurface, err := s.issueRepo.CountOpenBySurface(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return []companion.Coverage{
		companion.ComputeCoverage(companion.CoverageBanking, int(totalBank-unreconciled), int(totalBank)),
		companion.ComputeCoverage(companion.CoverageInvoices, int(settled), int(totalInvoices)),
		companion.ComputeCoverage(companion.CoverageReceipts, int(okDocs), int(totalDocs)),
		companion.BooksCoverage(openBySurface[companion.SurfaceBooks]),
	}, nil
}

// evaluateReadiness runs the close checklist against live counts and
// the uncategorized suspense balance.
func (s *SummaryService) evaluateReadiness(ctx context.Context, tenantID uuid.UUID) (companion.CloseReadiness, error) {
	unreconciled, total, err := s.bankTxRepo.UnreconciledSessionCounts(ctx, tenantID)
	if err != nil {
		return companion.CloseReadiness{}, err
	}

	suspense, err := s.suspenseBalance(ctx, tenantID)
	if err != nil {
		return companion.CloseReadiness{}, err
	}

	highCount, err := s.issueRepo.CountOpenHighForSurfaces(ctx, tenantID,
		[]companion.Surface{companion.SurfaceBank, companion.SurfaceBooks})
	if err != nil {
		return companion.CloseReadiness{}, err
	}

	return companion.EvaluateCloseReadiness(companion.ReadinessInput{
		UnreconciledTransactions: int(unreconciled),
		TotalSessionTransactions: int(total),
		SuspenseBalance:          suspense,
		OpenHighBankBooksIssues:  highCount,
	}), nil
}

// suspenseBalance reads the uncategorized account balance; a tenant
// without the account has nothing parked in suspense.
func (s *SummaryService) suspenseBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accountRepo.FindByCode(ctx, tenantID, ledger.UncategorizedAccountCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return s.accountRepo.BalanceAsOf(ctx, tenantID, account.ID, s.now())
}
