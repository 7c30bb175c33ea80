package review

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// advisorDocumentCap bounds how many documents are included in the
// advisor payload; the rest stay deterministic-only.
const advisorDocumentCap = 20

// DocumentReviewService runs the receipts and invoices pipelines: per
// document extraction with a filename-and-hints fallback, the
// deterministic audit, and an optional advisor pass over the riskiest
// documents. The advisor never runs inside the persistence transaction.
type DocumentReviewService struct {
	scope          TransactionScope
	tenantRepo     identity.TenantRepository
	store          DocumentStore
	extractor      DocumentExtractor
	advisor        advisor.Advisor
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewDocumentReviewService creates a new DocumentReviewService
func NewDocumentReviewService(
	scope TransactionScope,
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *DocumentReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentReviewService{
		scope:      scope,
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *DocumentReviewService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAdvisor enables the run-level advisor pass
func (s *DocumentReviewService) SetAdvisor(a advisor.Advisor) {
	s.advisor = a
}

// SetExtraction wires the OCR collaborator. Without it every document
// takes the fallback path.
func (s *DocumentReviewService) SetExtraction(store DocumentStore, extractor DocumentExtractor) {
	s.store = store
	s.extractor = extractor
}

// RunReceipts audits a batch of receipts over a period
func (s *DocumentReviewService) RunReceipts(ctx context.Context, tenantID uuid.UUID, req RunDocumentsRequest) (*RunResponse, error) {
	return s.run(ctx, tenantID, review.RunTypeReceipts, req)
}

// RunInvoices audits a batch of invoices over a period
func (s *DocumentReviewService) RunInvoices(ctx context.Context, tenantID uuid.UUID, req RunDocumentsRequest) (*RunResponse, error) {
	return s.run(ctx, tenantID, review.RunTypeInvoices, req)
}

func (s *DocumentReviewService) run(ctx context.Context, tenantID uuid.UUID, runType review.RunType, req RunDocumentsRequest) (*RunResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "review", strings.ToLower(string(runType))+"_run")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrRunType, string(runType))

	if len(req.Documents) == 0 {
		err := shared.NewValidationError("at least one document is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	run, err := review.NewRun(tenantID, runType, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	run.Start(telemetry.GetTraceID(ctx))

	auditor := review.NewDocumentAuditor(string(tenant.Currency()), runType, tenant.CompanionEnabled())

	docs := make([]*review.DocumentReview, 0, len(req.Documents))
	var okCount, warningCount, errorCount int
	var highCount, mediumCount int
	totalAmount := decimal.Zero

	for _, input := range req.Documents {
		extracted := s.extract(ctx, input)
		flags, score, status := auditor.Audit(extracted)

		doc, err := review.NewDocumentReview(tenantID, run.ID, input.FileName, extracted, flags, score, status)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if input.StorageKey != nil {
			doc.SetStorageKey(*input.StorageKey)
		}
		if posting := proposePosting(runType, extracted); posting != nil {
			doc.SetProposedPosting(*posting)
		}
		docs = append(docs, doc)

		switch status {
		case review.AuditStatusOK:
			okCount++
		case review.AuditStatusWarning:
			warningCount++
		case review.AuditStatusError:
			errorCount++
		}
		high, medium, _ := flags.CountBySeverity()
		highCount += high
		mediumCount += medium
		if extracted.Amount != nil {
			totalAmount = totalAmount.Add(extracted.Amount.Abs())
		}
	}

	metrics := review.Metrics{
		"documents":     len(docs),
		"ok_count":      okCount,
		"warning_count": warningCount,
		"error_count":   errorCount,
		"total_amount":  totalAmount.StringFixed(2),
		"high_flags":    highCount,
		"medium_flags":  mediumCount,
	}
	run.Complete(metrics, highCount, mediumCount)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Runs().Save(ctx, run); err != nil {
			return err
		}
		return repos.Documents().SaveAll(ctx, docs)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, run.ID.String())

	s.publishEvents(ctx, run.GetDomainEvents()...)
	run.ClearDomainEvents()

	s.adviseDocuments(ctx, run, docs)

	response := &RunResponse{Run: ToRunView(run), Documents: make([]DocumentReviewView, 0, len(docs))}
	for _, doc := range docs {
		response.Documents = append(response.Documents, ToDocumentReviewView(doc))
	}
	return response, nil
}

// extract resolves one document's fields: OCR first when wired, merged
// with the user's hints, with the filename as last resort. Extraction
// failures are absorbed and leave a fallback marker for the audit.
func (s *DocumentReviewService) extract(ctx context.Context, input DocumentInput) review.ExtractedDocument {
	var extracted *review.ExtractedDocument

	if input.StorageKey != nil && s.store != nil && s.extractor != nil {
		content, err := s.store.Download(ctx, *input.StorageKey)
		if err != nil {
			s.logger.Warn("document download failed, falling back to hints",
				zap.String("storage_key", *input.StorageKey), zap.Error(err))
		} else {
			extracted, err = s.extractor.Extract(ctx, input.FileName, content)
			if err != nil {
				s.logger.Warn("document extraction failed, falling back to hints",
					zap.String("file_name", input.FileName), zap.Error(err))
				extracted = nil
			}
		}
	}

	if extracted == nil {
		fallback := inferFromFileName(input.FileName)
		fallback.FromFallback = true
		extracted = &fallback
	}
	mergeHints(extracted, input.Hints)
	return *extracted
}

// mergeHints fills extraction gaps with the user-supplied fields; the
// user's word wins only where the extractor came back empty.
func mergeHints(doc *review.ExtractedDocument, hints DocumentHints) {
	if doc.Vendor == nil {
		doc.Vendor = hints.Vendor
	}
	if doc.Amount == nil {
		doc.Amount = hints.Amount
	}
	if doc.Currency == "" {
		doc.Currency = hints.Currency
	}
	if doc.InvoiceNumber == nil {
		doc.InvoiceNumber = hints.InvoiceNumber
	}
	if doc.DocumentDate == nil {
		doc.DocumentDate = hints.DocumentDate
	}
	if doc.DueDate == nil {
		doc.DueDate = hints.DueDate
	}
	if doc.Category == nil {
		doc.Category = hints.Category
	}
}

var fileAmountPattern = regexp.MustCompile(`\d+\.\d{2}`)

// inferFromFileName scrapes what it can from the filename: a word-like
// stem as the vendor and the first cent-precise number as the amount.
func inferFromFileName(fileName string) review.ExtractedDocument {
	var doc review.ExtractedDocument

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if match := fileAmountPattern.FindString(stem); match != "" {
		if amount, err := decimal.NewFromString(match); err == nil && !amount.IsZero() {
			doc.Amount = &amount
		}
	}

	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stem)
	words := make([]string, 0, 4)
	for _, w := range strings.Fields(cleaned) {
		if fileAmountPattern.MatchString(w) || isNumeric(w) {
			continue
		}
		words = append(words, w)
		if len(words) == 4 {
			break
		}
	}
	if len(words) > 0 {
		vendor := strings.Join(words, " ")
		doc.Vendor = &vendor
	}
	return doc
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// proposePosting drafts the double-entry suggestion for a cleanly
// extracted document. Receipts debit the fallback expense account
// against payables; invoices debit receivables against sales income.
// The draft is display-only; posting goes through the allocation path.
func proposePosting(runType review.RunType, doc review.ExtractedDocument) *review.ProposedPosting {
	if doc.Amount == nil || doc.Amount.IsZero() || doc.Vendor == nil {
		return nil
	}
	amount := doc.Amount.Abs().Round(2)

	chart := map[ledger.DefaultAccountRole]string{}
	for _, spec := range ledger.DefaultChart() {
		if spec.Role != "" {
			chart[spec.Role] = spec.Code
		}
	}

	if runType == review.RunTypeInvoices {
		return &review.ProposedPosting{
			DebitAccountCode:  chart[ledger.RoleAccountsReceivable],
			CreditAccountCode: chart[ledger.RoleFallbackIncome],
			Amount:            amount,
			Description:       "Invoice " + *doc.Vendor,
		}
	}
	return &review.ProposedPosting{
		DebitAccountCode:  chart[ledger.RoleFallbackExpense],
		CreditAccountCode: chart[ledger.RoleAccountsPayable],
		Amount:            amount,
		Description:       "Receipt " + *doc.Vendor,
	}
}

// adviseDocuments sends the riskiest documents to the advisor after the
// run committed and stores the sanitized result in a second short
// transaction. Any failure logs and leaves the advisor fields empty.
func (s *DocumentReviewService) adviseDocuments(ctx context.Context, run *review.Run, docs []*review.DocumentReview) {
	if s.advisor == nil {
		return
	}

	ranked := make([]*review.DocumentReview, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].AuditScore.GreaterThan(ranked[b].AuditScore)
	})
	if len(ranked) > advisorDocumentCap {
		ranked = ranked[:advisorDocumentCap]
	}

	findings := make([]advisor.Finding, 0, len(ranked))
	whitelist := advisor.Whitelist{}
	for _, doc := range ranked {
		id := doc.ID.String()
		whitelist.DocumentIDs = append(whitelist.DocumentIDs, id)

		detailParts := make([]string, 0, len(doc.AuditFlags))
		severity := string(review.SeverityLow)
		for _, flag := range doc.AuditFlags {
			detailParts = append(detailParts, flag.Message)
			if flag.Severity == review.SeverityHigh {
				severity = string(review.SeverityHigh)
			} else if flag.Severity == review.SeverityMedium && severity != string(review.SeverityHigh) {
				severity = string(review.SeverityMedium)
			}
		}
		finding := advisor.Finding{
			ID:       id,
			Kind:     "document",
			Severity: severity,
			Title:    doc.FileName,
			Detail:   strings.Join(detailParts, "; "),
		}
		if doc.Extracted.Amount != nil {
			amount := *doc.Extracted.Amount
			finding.Amount = &amount
		}
		findings = append(findings, finding)
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
			s.logger.Warn("advisor unavailable for document run",
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

// attachAdvice maps the sanitized advisor output onto the run's advisor
// fields.
func attachAdvice(run *review.Run, advice *advisor.ReviewAdvice, model string) {
	payload := review.Metrics{
		"risk_narrative": advice.RiskNarrative,
		"confidence":     advice.Confidence,
	}
	if len(advice.Recommendations) > 0 {
		recs := make([]map[string]any, 0, len(advice.Recommendations))
		for _, rec := range advice.Recommendations {
			entry := map[string]any{
				"title":    rec.Title,
				"detail":   rec.Detail,
				"priority": rec.Priority,
			}
			if len(rec.JournalEntryIDs) > 0 {
				entry["journal_entry_ids"] = rec.JournalEntryIDs
			}
			if len(rec.DocumentIDs) > 0 {
				entry["document_ids"] = rec.DocumentIDs
			}
			if len(rec.AccountCodes) > 0 {
				entry["account_codes"] = rec.AccountCodes
			}
			if len(rec.TransactionIDs) > 0 {
				entry["transaction_ids"] = rec.TransactionIDs
			}
			recs = append(recs, entry)
		}
		payload["recommendations"] = recs
	}
	run.AttachAdvisor(advice.Summary, model, payload)
}

func (s *DocumentReviewService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish review events", zap.Error(err))
	}
}
