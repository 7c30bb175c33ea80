package companion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
)

// MockIssueRepository is a mock implementation of companion.IssueRepository
type MockIssueRepository struct {
	mock.Mock
}

func (m *MockIssueRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*companion.Issue, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.Issue), args.Error(1)
}

func (m *MockIssueRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter companion.IssueFilter) ([]companion.Issue, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]companion.Issue), args.Error(1)
}

func (m *MockIssueRepository) CountOpenBySurface(ctx context.Context, tenantID uuid.UUID) (map[companion.Surface]int, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(map[companion.Surface]int), args.Error(1)
}

func (m *MockIssueRepository) CountOpenHighForSurfaces(ctx context.Context, tenantID uuid.UUID, surfaces []companion.Surface) (int, error) {
	args := m.Called(ctx, tenantID, surfaces)
	return args.Get(0).(int), args.Error(1)
}

func (m *MockIssueRepository) BulkCreate(ctx context.Context, issues []*companion.Issue) error {
	args := m.Called(ctx, issues)
	return args.Error(0)
}

func (m *MockIssueRepository) Save(ctx context.Context, issue *companion.Issue) error {
	args := m.Called(ctx, issue)
	return args.Error(0)
}

// MockStoryRepository is a mock implementation of companion.StoryRepository
type MockStoryRepository struct {
	mock.Mock
}

func (m *MockStoryRepository) FindStory(ctx context.Context, tenantID uuid.UUID) (*companion.Story, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.Story), args.Error(1)
}

func (m *MockStoryRepository) SaveStory(ctx context.Context, story *companion.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) FindState(ctx context.Context, tenantID uuid.UUID) (*companion.StoryState, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.StoryState), args.Error(1)
}

func (m *MockStoryRepository) SaveState(ctx context.Context, state *companion.StoryState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockStoryRepository) FindDirtyTenants(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockRunRepository is a mock implementation of review.RunRepository
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*review.Run, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Run), args.Error(1)
}

func (m *MockRunRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter review.RunFilter) ([]review.Run, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]review.Run), args.Error(1)
}

func (m *MockRunRepository) FindLatestCompleted(ctx context.Context, tenantID uuid.UUID, runType review.RunType) (*review.Run, error) {
	args := m.Called(ctx, tenantID, runType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Run), args.Error(1)
}

func (m *MockRunRepository) Save(ctx context.Context, run *review.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// MockDocumentReviewRepository is a mock implementation of review.DocumentReviewRepository
type MockDocumentReviewRepository struct {
	mock.Mock
}

func (m *MockDocumentReviewRepository) FindByRun(ctx context.Context, tenantID, runID uuid.UUID) ([]review.DocumentReview, error) {
	args := m.Called(ctx, tenantID, runID)
	return args.Get(0).([]review.DocumentReview), args.Error(1)
}

func (m *MockDocumentReviewRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*review.DocumentReview, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.DocumentReview), args.Error(1)
}

func (m *MockDocumentReviewRepository) AuditStatusCounts(ctx context.Context, tenantID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentReviewRepository) SaveAll(ctx context.Context, docs []*review.DocumentReview) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *MockDocumentReviewRepository) Save(ctx context.Context, doc *review.DocumentReview) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// MockBankTransactionRepository is a mock implementation of banking.BankTransactionRepository
type MockBankTransactionRepository struct {
	mock.Mock
}

func (m *MockBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankTransaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankTransaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter banking.TransactionFilter) ([]banking.BankTransaction, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]banking.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindExistingFingerprints(ctx context.Context, tenantID, bankAccountID uuid.UUID, fingerprints []string) (map[string]bool, error) {
	args := m.Called(ctx, tenantID, bankAccountID, fingerprints)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockBankTransactionRepository) FindOrphansInWindow(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]banking.BankTransaction, error) {
	args := m.Called(ctx, tenantID, bankAccountID, from, to)
	return args.Get(0).([]banking.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]banking.BankTransaction, error) {
	args := m.Called(ctx, tenantID, sessionID)
	return args.Get(0).([]banking.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FirstTransactionDate(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, tenantID, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockBankTransactionRepository) UnreconciledSessionCounts(ctx context.Context, tenantID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockBankTransactionRepository) Save(ctx context.Context, tx *banking.BankTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockBankTransactionRepository) SaveAll(ctx context.Context, txs []*banking.BankTransaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of ledger.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.Invoice, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) SettlementCounts(ctx context.Context, tenantID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *ledger.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID, spec ledger.DefaultAccountSpec) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) BalanceAsOf(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, accountID, asOf)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockEventPublisher records published events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// stubAdvisor replays a canned narrative and records story requests
type stubAdvisor struct {
	mu        sync.Mutex
	requests  []advisor.StoryRequest
	narrative *advisor.StoryNarrative
	err       error
}

func (s *stubAdvisor) Review(ctx context.Context, req advisor.ReviewRequest) (*advisor.ReviewAdvice, error) {
	return nil, nil
}

func (s *stubAdvisor) Critic(ctx context.Context, input advisor.CriticInput) advisor.CriticResult {
	return advisor.CriticResult{Verdict: advisor.VerdictOK}
}

func (s *stubAdvisor) Story(ctx context.Context, req advisor.StoryRequest) (*advisor.StoryNarrative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.narrative, s.err
}

func (s *stubAdvisor) Model() string { return "stub" }

func (s *stubAdvisor) storyCalls() []advisor.StoryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]advisor.StoryRequest(nil), s.requests...)
}

// openIssue builds an open issue created at the given time
func openIssue(t *testing.T, tenantID uuid.UUID, surface companion.Surface, severity companion.IssueSeverity, title string, createdAt time.Time) companion.Issue {
	t.Helper()
	issue, err := companion.NewIssue(tenantID, surface, severity, title)
	require.NoError(t, err)
	issue.CreatedAt = createdAt
	return *issue
}

func strPtr(s string) *string { return &s }

func decPtr(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d := decimal.RequireFromString(value)
	return &d
}
