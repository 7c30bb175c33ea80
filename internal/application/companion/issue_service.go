package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// IssueService synthesizes companion issues from completed review runs
// and serves the issue listing and lifecycle endpoints.
type IssueService struct {
	issueRepo      companion.IssueRepository
	docRepo        review.DocumentReviewRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewIssueService creates a new IssueService
func NewIssueService(issueRepo companion.IssueRepository, docRepo review.DocumentReviewRepository, logger *zap.Logger) *IssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		issueRepo: issueRepo,
		docRepo:   docRepo,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *IssueService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ListIssues lists issues matching the query in display order
func (s *IssueService) ListIssues(ctx context.Context, tenantID uuid.UUID, query ListIssuesQuery) ([]IssueView, error) {
	filter := companion.IssueFilter{Limit: query.Limit}
	if query.Surface != "" {
		surface := companion.Surface(query.Surface)
		if !surface.IsValid() {
			return nil, shared.NewValidationError("invalid issue surface: " + query.Surface)
		}
		filter.Surface = &surface
	}
	if query.Severity != "" {
		severity := companion.IssueSeverity(query.Severity)
		if !severity.IsValid() {
			return nil, shared.NewValidationError("invalid issue severity: " + query.Severity)
		}
		filter.Severity = &severity
	}
	if query.Status != "" {
		status := companion.IssueStatus(query.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError("invalid issue status: " + query.Status)
		}
		filter.Status = &status
	}

	issues, err := s.issueRepo.FindForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	companion.SortForDisplay(issues)

	views := make([]IssueView, 0, len(issues))
	for i := range issues {
		views = append(views, ToIssueView(&issues[i]))
	}
	return views, nil
}

// GetIssue returns one issue scoped to the tenant
func (s *IssueService) GetIssue(ctx context.Context, tenantID, issueID uuid.UUID) (*IssueView, error) {
	issue, err := s.issueRepo.FindByIDForTenant(ctx, tenantID, issueID)
	if err != nil {
		return nil, err
	}
	view := ToIssueView(issue)
	return &view, nil
}

// UpdateStatus moves an issue through its lifecycle
func (s *IssueService) UpdateStatus(ctx context.Context, tenantID, issueID uuid.UUID, req UpdateIssueRequest) (*IssueView, error) {
	issue, err := s.issueRepo.FindByIDForTenant(ctx, tenantID, issueID)
	if err != nil {
		return nil, err
	}
	if err := issue.UpdateStatus(companion.IssueStatus(req.Status)); err != nil {
		return nil, err
	}
	if err := s.issueRepo.Save(ctx, issue); err != nil {
		return nil, err
	}
	view := ToIssueView(issue)
	return &view, nil
}

// SynthesizeFromRun derives issues from a completed run and persists
// them in one batch. Document runs read the audited documents; books
// and bank runs read the findings serialized in the run metrics.
func (s *IssueService) SynthesizeFromRun(ctx context.Context, run *review.Run) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "companion", "synthesize_issues")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, run.ID.String())
	telemetry.SetAttribute(span, telemetry.SpanAttrRunType, string(run.RunType))

	var issues []*companion.Issue
	var err error
	switch run.RunType {
	case review.RunTypeReceipts, review.RunTypeInvoices:
		issues, err = s.issuesFromDocuments(ctx, run)
	case review.RunTypeBooks:
		issues, err = issuesFromFindings(run, companion.SurfaceBooks)
	case review.RunTypeBank:
		issues, err = issuesFromBankRun(run)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	if len(issues) == 0 {
		return 0, nil
	}

	if err := s.issueRepo.BulkCreate(ctx, issues); err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	s.publishEvents(ctx, companion.NewIssuesGeneratedEvent(run.TenantID, len(issues)))
	return len(issues), nil
}

// documentSurface maps document run types onto issue surfaces
func documentSurface(runType review.RunType) companion.Surface {
	if runType == review.RunTypeInvoices {
		return companion.SurfaceInvoices
	}
	return companion.SurfaceReceipts
}

// issuesFromDocuments turns flagged documents into issues. Vendors
// flagged more than once in the run count as recurring, which raises
// the derived severity.
func (s *IssueService) issuesFromDocuments(ctx context.Context, run *review.Run) ([]*companion.Issue, error) {
	docs, err := s.docRepo.FindByRun(ctx, run.TenantID, run.ID)
	if err != nil {
		return nil, err
	}

	vendorCounts := make(map[string]int)
	for i := range docs {
		if docs[i].AuditStatus == review.AuditStatusOK {
			continue
		}
		if vendor := docs[i].Extracted.Vendor; vendor != nil {
			vendorCounts[strings.ToLower(*vendor)]++
		}
	}

	surface := documentSurface(run.RunType)
	issues := make([]*companion.Issue, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		if doc.AuditStatus == review.AuditStatusOK {
			continue
		}

		amount := decimal.Zero
		if doc.Extracted.Amount != nil {
			amount = doc.Extracted.Amount.Abs()
		}
		recurring := false
		if vendor := doc.Extracted.Vendor; vendor != nil {
			recurring = vendorCounts[strings.ToLower(*vendor)] > 1
		}
		severity := companion.DeriveSeverity(amount, doc.AuditFlags.HasBlocking(), recurring)

		issue, err := companion.NewIssue(run.TenantID, surface, severity,
			fmt.Sprintf("Review %s", doc.FileName))
		if err != nil {
			return nil, err
		}
		issue.LinkRun(string(run.RunType), run.ID)
		issue.Description = flagSummary(doc.AuditFlags)
		issue.RecommendedAction = recommendedDocumentAction(doc)
		if !amount.IsZero() {
			issue.EstimatedImpact = amount.StringFixed(2) + " at risk"
		}
		issue.Data = companion.IssueData{
			"document_id": doc.ID.String(),
			"audit_score": doc.AuditScore.String(),
			"file_name":   doc.FileName,
		}
		issue.TraceID = run.TraceID
		issues = append(issues, issue)
	}
	return issues, nil
}

func flagSummary(flags review.AuditFlags) string {
	messages := make([]string, 0, len(flags))
	for _, f := range flags {
		messages = append(messages, f.Message)
	}
	return strings.Join(messages, "; ")
}

func recommendedDocumentAction(doc *review.DocumentReview) string {
	if doc.AuditFlags.HasBlocking() {
		return "Fill in the missing details before posting this document."
	}
	return "Double-check the flagged details, then approve the proposed posting."
}

// metricFinding mirrors the findings serialized into run metrics by the
// books pipeline.
type metricFinding struct {
	Code     string   `json:"code"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	IDs      []string `json:"ids"`
}

// decodeMetric reads a typed slice out of the JSONB-shaped metrics map
func decodeMetric[T any](metrics review.Metrics, key string) ([]T, error) {
	raw, ok := metrics[key]
	if !ok || raw == nil {
		return nil, nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// issuesFromFindings converts books findings into issues. Materiality
// comes from the amount embedded in the finding message when present.
func issuesFromFindings(run *review.Run, surface companion.Surface) ([]*companion.Issue, error) {
	findings, err := decodeMetric[metricFinding](run.Metrics, "findings")
	if err != nil {
		return nil, err
	}

	issues := make([]*companion.Issue, 0, len(findings))
	for _, f := range findings {
		amount := companion.ImpactMagnitude(f.Message)
		recurring := len(f.IDs) > 1
		complianceRisk := f.Code == review.FindingDuplicateEntry
		severity := companion.DeriveSeverity(amount, complianceRisk, recurring)

		issue, err := companion.NewIssue(run.TenantID, surface, severity, f.Message)
		if err != nil {
			return nil, err
		}
		issue.LinkRun(string(run.RunType), run.ID)
		issue.Description = f.Message
		issue.RecommendedAction = "Open the flagged entries and confirm they belong in the books."
		if !amount.IsZero() {
			issue.EstimatedImpact = amount.StringFixed(2) + " at risk"
		}
		issue.Data = companion.IssueData{"code": f.Code, "entry_ids": f.IDs}
		issue.TraceID = run.TraceID
		issues = append(issues, issue)
	}
	return issues, nil
}

// metricClassification mirrors the per-line outcome serialized by the
// bank pipeline.
type metricClassification struct {
	LineID string `json:"line_id"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

// issuesFromBankRun raises one issue per duplicate line and one rollup
// issue for unmatched lines.
func issuesFromBankRun(run *review.Run) ([]*companion.Issue, error) {
	classifications, err := decodeMetric[metricClassification](run.Metrics, "classifications")
	if err != nil {
		return nil, err
	}

	var issues []*companion.Issue
	var unmatched []string
	for _, c := range classifications {
		switch review.BankMatchState(c.State) {
		case review.BankDuplicate:
			issue, err := companion.NewIssue(run.TenantID, companion.SurfaceBank,
				companion.IssueSeverityHigh, "Possible duplicate bank transaction")
			if err != nil {
				return nil, err
			}
			issue.LinkRun(string(run.RunType), run.ID)
			issue.Description = c.Reason
			issue.RecommendedAction = "Compare the two imports and exclude the duplicate line."
			issue.Data = companion.IssueData{"transaction_id": c.LineID}
			issue.TraceID = run.TraceID
			issues = append(issues, issue)
		case review.BankUnmatched:
			unmatched = append(unmatched, c.LineID)
		}
	}

	if len(unmatched) > 0 {
		severity := companion.IssueSeverityMedium
		if len(unmatched) >= 10 {
			severity = companion.IssueSeverityHigh
		}
		issue, err := companion.NewIssue(run.TenantID, companion.SurfaceBank, severity,
			fmt.Sprintf("%d bank transactions have no ledger entry", len(unmatched)))
		if err != nil {
			return nil, err
		}
		issue.LinkRun(string(run.RunType), run.ID)
		issue.Description = "Statement lines in the period could not be matched to any journal entry."
		issue.RecommendedAction = "Reconcile the period or allocate the unmatched transactions."
		issue.Data = companion.IssueData{"transaction_ids": unmatched}
		issue.TraceID = run.TraceID
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *IssueService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish companion events", zap.Error(err))
	}
}
