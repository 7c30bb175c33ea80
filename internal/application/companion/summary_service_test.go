package companion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// summaryMocks bundles the read-model collaborators of the summary
type summaryMocks struct {
	issues    *MockIssueRepository
	bankTxs   *MockBankTransactionRepository
	invoices  *MockInvoiceRepository
	documents *MockDocumentReviewRepository
	accounts  *MockAccountRepository
	stories   *MockStoryRepository
}

func newSummaryMocks() *summaryMocks {
	return &summaryMocks{
		issues:    new(MockIssueRepository),
		bankTxs:   new(MockBankTransactionRepository),
		invoices:  new(MockInvoiceRepository),
		documents: new(MockDocumentReviewRepository),
		accounts:  new(MockAccountRepository),
		stories:   new(MockStoryRepository),
	}
}

func (m *summaryMocks) service() *SummaryService {
	storySvc := NewStoryService(m.stories, m.issues, zap.NewNop())
	return NewSummaryService(m.issues, m.bankTxs, m.invoices, m.documents, m.accounts, storySvc, zap.NewNop())
}

// expectFallbackStory wires the story read path to a cache miss
func (m *summaryMocks) expectFallbackStory(tenantID uuid.UUID) {
	m.stories.On("FindStory", mock.Anything, tenantID).Return(nil, nil)
	m.stories.On("FindState", mock.Anything, tenantID).Return(nil, nil)
	m.stories.On("SaveState", mock.Anything, mock.Anything).Return(nil)
}

func TestGetSummaryComposesDashboard(t *testing.T) {
	m := newSummaryMocks()
	tenantID := uuid.New()

	bankIssue := openIssue(t, tenantID, companion.SurfaceBank, companion.IssueSeverityHigh,
		"Possible duplicate bank transaction", time.Now().Add(-24*time.Hour))
	bankIssue.RecommendedAction = "Compare the two imports and exclude the duplicate line."
	m.issues.On("FindForTenant", mock.Anything, tenantID, mock.AnythingOfType("companion.IssueFilter")).
		Return([]companion.Issue{bankIssue}, nil)

	m.bankTxs.On("UnreconciledSessionCounts", mock.Anything, tenantID).Return(int64(2), int64(10), nil)
	m.invoices.On("SettlementCounts", mock.Anything, tenantID).Return(int64(3), int64(4), nil)
	m.documents.On("AuditStatusCounts", mock.Anything, tenantID).Return(int64(5), int64(5), nil)
	m.issues.On("CountOpenBySurface", mock.Anything, tenantID).
		Return(map[companion.Surface]int{companion.SurfaceBooks: 1}, nil)
	m.issues.On("CountOpenHighForSurfaces", mock.Anything, tenantID,
		[]companion.Surface{companion.SurfaceBank, companion.SurfaceBooks}).Return(1, nil)
	m.accounts.On("FindByCode", mock.Anything, tenantID, ledger.UncategorizedAccountCode).
		Return(nil, shared.ErrNotFound)
	m.expectFallbackStory(tenantID)

	resp, err := m.service().GetSummary(context.Background(), tenantID)
	require.NoError(t, err)

	// one day-old high bank issue: 100 - 15 on cash, other axes intact
	require.Len(t, resp.Radar, 4)
	assert.Equal(t, companion.AxisCashReconciliation, resp.Radar[0].Axis)
	assert.Equal(t, "85", resp.Radar[0].Score.String())
	assert.Equal(t, "100", resp.Radar[1].Score.String())

	require.Len(t, resp.Coverage, 4)
	assert.Equal(t, companion.CoverageBanking, resp.Coverage[0].Domain)
	assert.Equal(t, "80", resp.Coverage[0].Percent.String())
	assert.Equal(t, "75", resp.Coverage[1].Percent.String())
	assert.Equal(t, "100", resp.Coverage[2].Percent.String())
	assert.Equal(t, "90", resp.Coverage[3].Percent.String())

	// 2 of 10 unreconciled is 20%, and a high bank issue is open
	assert.False(t, resp.Readiness.Ready)
	require.Len(t, resp.Readiness.BlockingReasons, 2)
	assert.Contains(t, resp.Readiness.BlockingReasons[0], "unreconciled")
	assert.Contains(t, resp.Readiness.BlockingReasons[1], "high-severity")

	require.NotEmpty(t, resp.Playbook)
	assert.Equal(t, "Possible duplicate bank transaction", resp.Playbook[0].Title)
	assert.Equal(t, "/banking/reconciliation", resp.Playbook[0].URL)
	// invoices sit at 75%, under the coverage-gap threshold
	last := resp.Playbook[len(resp.Playbook)-1]
	assert.Equal(t, companion.SurfaceInvoices, last.Surface)

	require.Len(t, resp.Issues, 1)
	assert.True(t, resp.Story.IsFallback)
}

func TestGetSummaryReadyWhenClean(t *testing.T) {
	m := newSummaryMocks()
	tenantID := uuid.New()

	m.issues.On("FindForTenant", mock.Anything, tenantID, mock.AnythingOfType("companion.IssueFilter")).
		Return([]companion.Issue{}, nil)
	m.bankTxs.On("UnreconciledSessionCounts", mock.Anything, tenantID).Return(int64(0), int64(120), nil)
	m.invoices.On("SettlementCounts", mock.Anything, tenantID).Return(int64(8), int64(8), nil)
	m.documents.On("AuditStatusCounts", mock.Anything, tenantID).Return(int64(0), int64(0), nil)
	m.issues.On("CountOpenBySurface", mock.Anything, tenantID).
		Return(map[companion.Surface]int{}, nil)
	m.issues.On("CountOpenHighForSurfaces", mock.Anything, tenantID, mock.Anything).Return(0, nil)
	m.accounts.On("FindByCode", mock.Anything, tenantID, ledger.UncategorizedAccountCode).
		Return(nil, shared.ErrNotFound)
	m.expectFallbackStory(tenantID)

	resp, err := m.service().GetSummary(context.Background(), tenantID)
	require.NoError(t, err)

	assert.True(t, resp.Readiness.Ready)
	assert.Empty(t, resp.Readiness.BlockingReasons)
	for _, c := range resp.Coverage {
		assert.Equal(t, "100", c.Percent.String(), c.Domain)
	}
	assert.Empty(t, resp.Playbook)
	assert.Empty(t, resp.Issues)
}

func TestGetSummarySuspenseBalanceBlocksClose(t *testing.T) {
	m := newSummaryMocks()
	tenantID := uuid.New()

	m.issues.On("FindForTenant", mock.Anything, tenantID, mock.AnythingOfType("companion.IssueFilter")).
		Return([]companion.Issue{}, nil)
	m.bankTxs.On("UnreconciledSessionCounts", mock.Anything, tenantID).Return(int64(0), int64(50), nil)
	m.invoices.On("SettlementCounts", mock.Anything, tenantID).Return(int64(1), int64(1), nil)
	m.documents.On("AuditStatusCounts", mock.Anything, tenantID).Return(int64(0), int64(0), nil)
	m.issues.On("CountOpenBySurface", mock.Anything, tenantID).
		Return(map[companion.Surface]int{}, nil)
	m.issues.On("CountOpenHighForSurfaces", mock.Anything, tenantID, mock.Anything).Return(0, nil)

	suspense, err := ledger.NewAccount(tenantID, ledger.UncategorizedAccountCode, "Uncategorized", ledger.AccountTypeExpense)
	require.NoError(t, err)
	m.accounts.On("FindByCode", mock.Anything, tenantID, ledger.UncategorizedAccountCode).
		Return(suspense, nil)
	m.accounts.On("BalanceAsOf", mock.Anything, tenantID, suspense.ID, mock.AnythingOfType("time.Time")).
		Return(decimal.RequireFromString("42.50"), nil)
	m.expectFallbackStory(tenantID)

	resp, err := m.service().GetSummary(context.Background(), tenantID)
	require.NoError(t, err)

	assert.False(t, resp.Readiness.Ready)
	require.Len(t, resp.Readiness.BlockingReasons, 1)
	assert.Contains(t, resp.Readiness.BlockingReasons[0], "42.50")
}
