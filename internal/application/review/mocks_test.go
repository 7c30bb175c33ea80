package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
)

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

// MockJournalEntryRepository is a mock implementation of ledger.JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByOperationID(ctx context.Context, tenantID uuid.UUID, operationID string) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindUnreconciledOnAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, accountID, from, to)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) SetLinesReconciled(ctx context.Context, tenantID, entryID, accountID uuid.UUID, sessionID *uuid.UUID, reconciled bool) error {
	args := m.Called(ctx, tenantID, entryID, accountID, sessionID, reconciled)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) ClearSessionLines(ctx context.Context, tenantID, sessionID uuid.UUID) error {
	args := m.Called(ctx, tenantID, sessionID)
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

// MockTenantRepository is a mock implementation of identity.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindActive(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(bool), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status identity.TenantStatus, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.Tenant, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context, status identity.TenantStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
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

// stubAdvisor records review requests and replays a canned advice result
type stubAdvisor struct {
	mu       sync.Mutex
	requests []advisor.ReviewRequest
	advice   *advisor.ReviewAdvice
	err      error
}

func (s *stubAdvisor) Review(ctx context.Context, req advisor.ReviewRequest) (*advisor.ReviewAdvice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.advice, s.err
}

func (s *stubAdvisor) Critic(ctx context.Context, input advisor.CriticInput) advisor.CriticResult {
	return advisor.CriticResult{Verdict: advisor.VerdictOK}
}

func (s *stubAdvisor) Story(ctx context.Context, req advisor.StoryRequest) (*advisor.StoryNarrative, error) {
	return nil, nil
}

func (s *stubAdvisor) Model() string { return "stub" }

func (s *stubAdvisor) reviewCalls() []advisor.ReviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]advisor.ReviewRequest(nil), s.requests...)
}

// reviewMocks bundles the pipeline collaborators behind a no-op scope
type reviewMocks struct {
	runs      *MockRunRepository
	documents *MockDocumentReviewRepository
	entries   *MockJournalEntryRepository
	bankTxs   *MockBankTransactionRepository
	tenants   *MockTenantRepository
	publisher *MockEventPublisher
}

func newReviewMocks() *reviewMocks {
	return &reviewMocks{
		runs:      new(MockRunRepository),
		documents: new(MockDocumentReviewRepository),
		entries:   new(MockJournalEntryRepository),
		bankTxs:   new(MockBankTransactionRepository),
		tenants:   new(MockTenantRepository),
		publisher: NewMockEventPublisher(),
	}
}

func (m *reviewMocks) scope() TransactionScope {
	return NewNoOpTransactionScope(m.runs, m.documents)
}

func (m *reviewMocks) documentService() *DocumentReviewService {
	svc := NewDocumentReviewService(m.scope(), m.tenants, zap.NewNop())
	svc.SetEventPublisher(m.publisher)
	return svc
}

func (m *reviewMocks) booksService() *BooksReviewService {
	svc := NewBooksReviewService(m.scope(), m.entries, m.tenants, zap.NewNop())
	svc.SetEventPublisher(m.publisher)
	return svc
}

func (m *reviewMocks) bankService() *BankReviewService {
	svc := NewBankReviewService(m.scope(), m.bankTxs, m.entries, m.tenants, zap.NewNop())
	svc.SetEventPublisher(m.publisher)
	return svc
}

// seedTenant registers a tenant, optionally with the companion enabled
func (m *reviewMocks) seedTenant(t *testing.T, tenantID uuid.UUID, companionEnabled bool) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant("ACME", "Acme Inc")
	require.NoError(t, err)
	if companionEnabled {
		tenant.EnableCompanion()
	}
	m.tenants.On("FindByID", mock.Anything, tenantID).Return(tenant, nil)
	return tenant
}

// expectRunSave accepts every run save inside the scope
func (m *reviewMocks) expectRunSave() {
	m.runs.On("Save", mock.Anything, mock.AnythingOfType("*review.Run")).Return(nil)
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func strPtr(s string) *string { return &s }
