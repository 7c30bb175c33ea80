package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
)

func decPtr(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d := decimal.RequireFromString(value)
	return &d
}

func timePtr(v time.Time) *time.Time { return &v }

func cleanReceipt(t *testing.T, fileName string) DocumentInput {
	t.Helper()
	return DocumentInput{
		FileName: fileName,
		Hints: DocumentHints{
			Vendor:       strPtr("Coffee Supply Co"),
			Amount:       decPtr(t, "42.50"),
			DocumentDate: timePtr(mustDate(t, "2026-07-10")),
		},
	}
}

// stubStore serves canned bytes for any storage key
type stubStore struct{ content []byte }

func (s *stubStore) Download(ctx context.Context, storageKey string) ([]byte, error) {
	return s.content, nil
}

// stubExtractor replays one canned extraction result
type stubExtractor struct{ doc review.ExtractedDocument }

func (s *stubExtractor) Extract(ctx context.Context, fileName string, content []byte) (*review.ExtractedDocument, error) {
	doc := s.doc
	return &doc, nil
}

func TestRunReceiptsAuditsExtractedBatch(t *testing.T) {
	m := newReviewMocks()
	tenantID := uuid.New()
	m.seedTenant(t, tenantID, false)
	m.expectRunSave()

	var saved []*review.DocumentReview
	m.documents.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*review.DocumentReview")).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]*review.DocumentReview) }).
		Return(nil)

	svc := m.documentService()
	svc.SetExtraction(&stubStore{content: []byte("%PDF")}, &stubExtractor{doc: review.ExtractedDocument{
		Vendor:       strPtr("Coffee Supply Co"),
		Amount:       decPtr(t, "42.50"),
		DocumentDate: timePtr(mustDate(t, "2026-07-10")),
	}})

	resp, err := svc.RunReceipts(context.Background(), tenantID, RunDocumentsRequest{
		PeriodStart: mustDate(t, "2026-07-01"),
		PeriodEnd:   mustDate(t, "2026-07-31"),
		Documents: []DocumentInput{{
			FileName:   "coffee_supply.pdf",
			StorageKey: strPtr("tenants/docs/coffee_supply.pdf"),
		}},
	})
	require.NoError(t, err)

	require.Len(t, saved, 1)
	assert.Equal(t, review.AuditStatusOK, saved[0].AuditStatus)
	assert.True(t, saved[0].AuditScore.IsZero())
	assert.False(t, saved[0].Extracted.FromFallback)
	require.NotNil(t, saved[0].StorageKey)

	assert.Equal(t, string(review.RunStatusCompleted), resp.Run.Status)
	assert.Equal(t, 1, resp.Run.Metrics["documents"])
	assert.Equal(t, 1, resp.Run.Metrics["ok_count"])
	assert.Equal(t, 0, resp.Run.Metrics["error_count"])
	assert.Equal(t, "42.50", resp.Run.Metrics["total_amount"])
	require.NotNil(t, resp.Run.RiskLevel)
	assert.Equal(t, string(review.RiskLevelLow), *resp.Run.RiskLevel)

	require.Len(t, resp.Documents, 1)
	require.NotNil(t, resp.Documents[0].ProposedPosting)
	assert.Equal(t, "6000", resp.Documents[0].ProposedPosting.DebitAccountCode)
	assert.Equal(t, "2100", resp.Documents[0].ProposedPosting.CreditAccountCode)
	assert.Equal(t, "42.5", resp.Documents[0].ProposedPosting.Amount.String())

	events := m.publisher.GetEventsByType(review.EventTypeRunCompleted)
	require.Len(t, events, 1)
}

func TestRunReceiptsFallsBackToFileName(t *testing.T) {
	m := newReviewMocks()
	tenantID := uuid.New()
	m.seedTenant(t, tenantID, false)
	m.expectRunSave()

	var saved []*review.DocumentReview
	m.documents.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*review.DocumentReview")).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]*review.DocumentReview) }).
		Return(nil)

	_, err := m.documentService().RunReceipts(context.Background(), tenantID, RunDocumentsRequest{
		PeriodStart: mustDate(t, "2026-07-01"),
		PeriodEnd:   mustDate(t, "2026-07-31"),
		Documents: []DocumentInput{{
			FileName: "office-depot-receipt-118.40.pdf",
		}},
	})
	require.NoError(t, err)

	require.Len(t, saved, 1)
	doc := saved[0]
	assert.True(t, doc.Extracted.FromFallback)
	require.NotNil(t, doc.Extracted.Vendor)
	assert.Equal(t, "office depot receipt", *doc.Extracted.Vendor)
	require.NotNil(t, doc.Extracted.Amount)
	assert.Equal(t, "118.4", doc.Extracted.Amount.String())

	// fallback marker plus the missing date keep the document flagged
	assert.Equal(t, review.AuditStatusWarning, doc.AuditStatus)
	codes := make([]string, 0, len(doc.AuditFlags))
	for _, f := range doc.AuditFlags {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, review.FlagExtractionFallback)
	assert.Contains(t, codes, review.FlagInvalidDate)
}

func TestRunInvoicesFlagsMissingInvoiceNumber(t *testing.T) {
	m := newReviewMocks()
	tenantID := uuid.New()
	m.seedTenant(t, tenantID, false)
	m.expectRunSave()

	var saved []*review.DocumentReview
	m.documents.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*review.DocumentReview")).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]*review.DocumentReview) }).
		Return(nil)

	resp, err := m.documentService().RunInvoices(context.Background(), tenantID, RunDocumentsRequest{
		PeriodStart: mustDate(t, "2026-07-01"),
		PeriodEnd:   mustDate(t, "2026-07-31"),
		Documents: []DocumentInput{{
			FileName: "acme_invoice.pdf",
			Hints: DocumentHints{
				Vendor:       strPtr("Acme Ltd"),
				Amount:       decPtr(t, "250.00"),
				DocumentDate: timePtr(mustDate(t, "2026-07-05")),
			},
		}},
	})
	require.NoError(t, err)

	require.Len(t, saved, 1)
	assert.Equal(t, review.AuditStatusError, saved[0].AuditStatus)
	assert.True(t, saved[0].AuditFlags.HasBlocking())
	assert.Equal(t, 1, resp.Run.Metrics["error_count"])

	// invoices propose receivable against income
	require.NotNil(t, saved[0].ProposedPosting)
	assert.Equal(t, "1100", saved[0].ProposedPosting.DebitAccountCode)
	assert.Equal(t, "4000", saved[0].ProposedPosting.CreditAccountCode)
}

func TestRunReceiptsRejectsEmptyBatch(t *testing.T) {
	m := newReviewMocks()
	tenantID := uuid.New()

	_, err := m.documentService().RunReceipts(context.Background(), tenantID, RunDocumentsRequest{
		PeriodStart: mustDate(t, "2026-07-01"),
		PeriodEnd:   mustDate(t, "2026-07-31"),
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.KindValidation, domainErr.Kind)
	m.tenants.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestRunReceiptsStoresAdvisorResult(t *testing.T) {
	m := newReviewMocks()
	tenantID := uuid.New()
	m.seedTenant(t, tenantID, true)
	m.expectRunSave()

	var saved []*review.DocumentReview
	m.documents.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*review.DocumentReview")).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]*review.DocumentReview) }).
		Return(nil)

	stub := &stubAdvisor{advice: &advisor.ReviewAdvice{
		Summary:       "One receipt needs a second look.",
		RiskNarrative: "Low overall risk.",
		Confidence:    0.8,
		Recommendations: []advisor.Recommendation{{
			Title:    "Confirm the vendor",
			Priority: "medium",
		}},
	}}
	svc := m.documentService()
	svc.SetAdvisor(stub)

	resp, err := svc.RunReceipts(context.Background(), tenantID, RunDocumentsRequest{
		PeriodStart: mustDate(t, "2026-07-01"),
		PeriodEnd:   mustDate(t, "2026-07-31"),
		Documents:   []DocumentInput{cleanReceipt(t, "coffee_supply_42.50.pdf")},
	})
	require.NoError(t, err)

	calls := stub.reviewCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, string(review.RunTypeReceipts), calls[0].RunType)
	require.Len(t, saved, 1)
	assert.Equal(t, []string{saved[0].ID.String()}, calls[0].Whitelist.DocumentIDs)
	require.Len(t, calls[0].Findings, 1)
	assert.Equal(t, saved[0].ID.String(), calls[0].Findings[0].ID)

	require.NotNil(t, resp.Run.AdvisorSummary)
	assert.Equal(t, "One receipt needs a second look.", *resp.Run.AdvisorSummary)
	require.NotNil(t, resp.Run.AdvisorModel)
	assert.Equal(t, "stub", *resp.Run.AdvisorModel)
	assert.Equal(t, "Low overall risk.", resp.Run.AdvisorPayload["risk_narrative"])

	// initial save plus the advisor attachment
	m.runs.AssertNumberOfCalls(t, "Save", 2)
}

func TestRunReceiptsSurvivesAdvisorFailure(t *testing.T) {
	m := newReviewMocks()
	tenantID := uuid.New()
	m.seedTenant(t, tenantID, true)
	m.expectRunSave()
	m.documents.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*review.DocumentReview")).Return(nil)

	stub := &stubAdvisor{err: context.DeadlineExceeded}
	svc := m.documentService()
	svc.SetAdvisor(stub)

	resp, err := svc.RunReceipts(context.Background(), tenantID, RunDocumentsRequest{
		PeriodStart: mustDate(t, "2026-07-01"),
		PeriodEnd:   mustDate(t, "2026-07-31"),
		Documents:   []DocumentInput{cleanReceipt(t, "coffee_supply_42.50.pdf")},
	})
	require.NoError(t, err)

	assert.Equal(t, string(review.RunStatusCompleted), resp.Run.Status)
	assert.Nil(t, resp.Run.AdvisorSummary)
	m.runs.AssertNumberOfCalls(t, "Save", 1)
}

func TestMergeHintsOnlyFillsGaps(t *testing.T) {
	extractedVendor := "Extracted Vendor"
	doc := review.ExtractedDocument{Vendor: &extractedVendor}
	mergeHints(&doc, DocumentHints{
		Vendor:   strPtr("Hint Vendor"),
		Amount:   decPtr(t, "10.00"),
		Currency: "EUR",
	})

	assert.Equal(t, "Extracted Vendor", *doc.Vendor)
	assert.Equal(t, "10", doc.Amount.String())
	assert.Equal(t, "EUR", doc.Currency)
}

func TestInferFromFileName(t *testing.T) {
	t.Run("vendor and amount", func(t *testing.T) {
		doc := inferFromFileName("starbucks_receipt_7.85.jpg")
		require.NotNil(t, doc.Vendor)
		assert.Equal(t, "starbucks receipt", *doc.Vendor)
		require.NotNil(t, doc.Amount)
		assert.Equal(t, "7.85", doc.Amount.String())
	})

	t.Run("no amount", func(t *testing.T) {
		doc := inferFromFileName("scan_20260710.pdf")
		assert.Nil(t, doc.Amount)
		require.NotNil(t, doc.Vendor)
		assert.Equal(t, "scan", *doc.Vendor)
	})
}
