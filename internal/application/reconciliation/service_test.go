package reconciliation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
)

// MockSessionRepository is a mock implementation of reconciliation.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.Session, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Session), args.Error(1)
}

func (m *MockSessionRepository) FindByPeriod(ctx context.Context, tenantID, bankAccountID uuid.UUID, start, end time.Time) (*reconciliation.Session, error) {
	args := m.Called(ctx, tenantID, bankAccountID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Session), args.Error(1)
}

func (m *MockSessionRepository) FindAllForAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]reconciliation.Session, error) {
	args := m.Called(ctx, tenantID, bankAccountID)
	return args.Get(0).([]reconciliation.Session), args.Error(1)
}

func (m *MockSessionRepository) FindCompletedOverlapping(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]reconciliation.Session, error) {
	args := m.Called(ctx, tenantID, bankAccountID, from, to)
	return args.Get(0).([]reconciliation.Session), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, session *reconciliation.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockMatchRepository is a mock implementation of reconciliation.MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) FindByTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) ([]reconciliation.Match, error) {
	args := m.Called(ctx, tenantID, bankTransactionID)
	return args.Get(0).([]reconciliation.Match), args.Error(1)
}

func (m *MockMatchRepository) SumForTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) (reconciliation.MatchTotals, error) {
	args := m.Called(ctx, tenantID, bankTransactionID)
	return args.Get(0).(reconciliation.MatchTotals), args.Error(1)
}

func (m *MockMatchRepository) DeleteByTransaction(ctx context.Context, tenantID, bankTransactionID uuid.UUID) error {
	args := m.Called(ctx, tenantID, bankTransactionID)
	return args.Error(0)
}

func (m *MockMatchRepository) DeleteByTransactions(ctx context.Context, tenantID uuid.UUID, bankTransactionIDs []uuid.UUID) error {
	args := m.Called(ctx, tenantID, bankTransactionIDs)
	return args.Error(0)
}

func (m *MockMatchRepository) Save(ctx context.Context, match *reconciliation.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) SaveAll(ctx context.Context, matches []*reconciliation.Match) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

// MockBankAccountRepository is a mock implementation of banking.BankAccountRepository
type MockBankAccountRepository struct {
	mock.Mock
}

func (m *MockBankAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]banking.BankAccount, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]banking.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) Save(ctx context.Context, account *banking.BankAccount) error {
	args := m.Called(ctx, account)
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

// MockEventPublisher is a mock implementation of shared.EventPublisher
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

// stubAdvisor records critic calls and replays a canned result
type stubAdvisor struct {
	mu     sync.Mutex
	inputs []advisor.CriticInput
	result advisor.CriticResult
}

func (s *stubAdvisor) Review(ctx context.Context, req advisor.ReviewRequest) (*advisor.ReviewAdvice, error) {
	return nil, nil
}

func (s *stubAdvisor) Critic(ctx context.Context, input advisor.CriticInput) advisor.CriticResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	return s.result
}

func (s *stubAdvisor) Story(ctx context.Context, req advisor.StoryRequest) (*advisor.StoryNarrative, error) {
	return nil, nil
}

func (s *stubAdvisor) Model() string { return "stub" }

func (s *stubAdvisor) criticCalls() []advisor.CriticInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]advisor.CriticInput(nil), s.inputs...)
}

// reconMocks bundles the reconciliation write set behind a no-op scope
type reconMocks struct {
	sessions     *MockSessionRepository
	matches      *MockMatchRepository
	bankAccounts *MockBankAccountRepository
	bankTxs      *MockBankTransactionRepository
	entries      *MockJournalEntryRepository
	accounts     *MockAccountRepository
	tenants      *MockTenantRepository
	publisher    *MockEventPublisher
}

func newReconMocks() *reconMocks {
	return &reconMocks{
		sessions:     new(MockSessionRepository),
		matches:      new(MockMatchRepository),
		bankAccounts: new(MockBankAccountRepository),
		bankTxs:      new(MockBankTransactionRepository),
		entries:      new(MockJournalEntryRepository),
		accounts:     new(MockAccountRepository),
		tenants:      new(MockTenantRepository),
		publisher:    NewMockEventPublisher(),
	}
}

func (m *reconMocks) service() *ReconciliationService {
	scope := NewNoOpTransactionScope(m.sessions, m.matches, m.bankAccounts, m.bankTxs, m.entries, m.accounts)
	svc := NewReconciliationService(scope, m.sessions, m.bankAccounts, m.bankTxs,
		m.entries, m.accounts, m.tenants, zap.NewNop())
	svc.SetEventPublisher(m.publisher)
	return svc
}

// seedBankAccount registers a feed source linked to a ledger shadow account
func (m *reconMocks) seedBankAccount(t *testing.T, tenantID uuid.UUID, ledgerAccountID *uuid.UUID) *banking.BankAccount {
	t.Helper()
	account, err := banking.NewBankAccount(tenantID, "Business Checking", valueobject.USD)
	require.NoError(t, err)
	if ledgerAccountID != nil {
		require.NoError(t, account.LinkLedgerAccount(*ledgerAccountID))
	}
	m.bankAccounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	return account
}

// seedSession registers an existing session over the given window
func (m *reconMocks) seedSession(t *testing.T, tenantID, bankAccountID uuid.UUID, start, end time.Time) *reconciliation.Session {
	t.Helper()
	session, err := reconciliation.NewSession(tenantID, bankAccountID, start, end)
	require.NoError(t, err)
	m.sessions.On("FindByIDForTenant", mock.Anything, tenantID, session.ID).Return(session, nil)
	return session
}

func (m *reconMocks) seedTransaction(t *testing.T, tenantID, bankAccountID uuid.UUID, date time.Time, amount string) *banking.BankTransaction {
	t.Helper()
	tx, err := banking.NewBankTransaction(tenantID, bankAccountID, date, "ACME LTD",
		decimal.RequireFromString(amount), nil)
	require.NoError(t, err)
	m.bankTxs.On("FindByIDForTenantLocked", mock.Anything, tenantID, tx.ID).Return(tx, nil)
	return tx
}

func newAssetAccount(t *testing.T, tenantID uuid.UUID, code, name string) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(tenantID, code, name, ledger.AccountTypeAsset)
	require.NoError(t, err)
	return account
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func emptyFeed(m *reconMocks, tenantID uuid.UUID) {
	m.bankTxs.On("FindBySession", mock.Anything, tenantID, mock.Anything).
		Return([]banking.BankTransaction{}, nil)
}

func noCandidates(m *reconMocks, tenantID uuid.UUID) {
	m.entries.On("FindUnreconciledOnAccount", mock.Anything, tenantID,
		mock.Anything, mock.Anything, mock.Anything).Return([]ledger.JournalEntry{}, nil)
}

func TestResolveSessionCreatesAndSeedsBalances(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	checking := newAssetAccount(t, tenantID, "1010", "Checking Shadow")
	account := m.seedBankAccount(t, tenantID, &checking.ID)

	start := mustDate(t, "2026-07-01")
	end := mustDate(t, "2026-07-31")
	m.sessions.On("FindByPeriod", mock.Anything, tenantID, account.ID, start, end).Return(nil, nil)
	m.accounts.On("BalanceAsOf", mock.Anything, tenantID, checking.ID, start.AddDate(0, 0, -1)).
		Return(decimal.RequireFromString("1000.00"), nil)
	m.accounts.On("BalanceAsOf", mock.Anything, tenantID, checking.ID, end).
		Return(decimal.RequireFromString("1150.00"), nil)

	var created *reconciliation.Session
	m.sessions.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Session")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*reconciliation.Session) }).
		Return(nil)

	orphan, err := banking.NewBankTransaction(tenantID, account.ID, mustDate(t, "2026-07-10"),
		"COFFEE SUPPLY", decimal.RequireFromString("-42.50"), nil)
	require.NoError(t, err)
	m.bankTxs.On("FindOrphansInWindow", mock.Anything, tenantID, account.ID, start, end).
		Return([]banking.BankTransaction{*orphan}, nil)
	var attached []*banking.BankTransaction
	m.bankTxs.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*banking.BankTransaction")).
		Run(func(args mock.Arguments) { attached = args.Get(1).([]*banking.BankTransaction) }).
		Return(nil)
	m.bankTxs.On("FindBySession", mock.Anything, tenantID, mock.Anything).
		Return([]banking.BankTransaction{*orphan}, nil)

	candidate, err := ledger.NewJournalEntry(tenantID, mustDate(t, "2026-07-10"), "Office coffee", ledger.EntrySourceManual)
	require.NoError(t, err)
	expense, err := ledger.NewAccount(tenantID, "6000", "Supplies", ledger.AccountTypeExpense)
	require.NoError(t, err)
	require.NoError(t, candidate.AddDebit(expense.ID, decimal.RequireFromString("42.50"), ""))
	require.NoError(t, candidate.AddCredit(checking.ID, decimal.RequireFromString("42.50"), ""))
	m.entries.On("FindUnreconciledOnAccount", mock.Anything, tenantID, checking.ID, start, end).
		Return([]ledger.JournalEntry{*candidate}, nil)

	resp, err := m.service().ResolveSession(context.Background(), tenantID, ResolveSessionQuery{
		BankAccountID:  account.ID,
		StatementStart: start,
		StatementEnd:   end,
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, string(reconciliation.SessionStatusDraft), resp.Session.Status)
	require.NotNil(t, resp.Session.OpeningBalance)
	require.NotNil(t, resp.Session.ClosingBalance)
	assert.Equal(t, "1000", resp.Session.OpeningBalance.String())
	assert.Equal(t, "1150", resp.Session.ClosingBalance.String())

	require.Len(t, attached, 1)
	require.NotNil(t, attached[0].SessionID)
	assert.Equal(t, created.ID, *attached[0].SessionID)

	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "COFFEE SUPPLY", resp.Transactions[0].Description)

	// the candidate's movement on the bank shadow account is the credit side
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "-42.5", resp.Candidates[0].Amount.String())

	// nothing cleared yet: difference is closing - opening
	assert.Equal(t, "150", resp.Summary.Difference.String())
	assert.Equal(t, 1, resp.Summary.UnreconciledCount)
}

func TestResolveSessionBackfillsOpeningBalance(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	checking := newAssetAccount(t, tenantID, "1010", "Checking Shadow")
	account := m.seedBankAccount(t, tenantID, &checking.ID)

	start := mustDate(t, "2026-06-01")
	end := mustDate(t, "2026-06-30")
	stored, err := reconciliation.NewSession(tenantID, account.ID, start, end)
	require.NoError(t, err)
	stored.SeedClosingBalance(decimal.RequireFromString("500.00"))
	m.sessions.On("FindByPeriod", mock.Anything, tenantID, account.ID, start, end).Return(stored, nil)

	m.accounts.On("BalanceAsOf", mock.Anything, tenantID, checking.ID, start.AddDate(0, 0, -1)).
		Return(decimal.RequireFromString("250.00"), nil)
	m.sessions.On("Save", mock.Anything, stored).Return(nil)
	m.bankTxs.On("FindOrphansInWindow", mock.Anything, tenantID, account.ID, start, end).
		Return([]banking.BankTransaction{}, nil)
	emptyFeed(m, tenantID)
	noCandidates(m, tenantID)

	resp, err := m.service().ResolveSession(context.Background(), tenantID, ResolveSessionQuery{
		BankAccountID:  account.ID,
		StatementStart: start,
		StatementEnd:   end,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Session.OpeningBalance)
	assert.Equal(t, "250", resp.Session.OpeningBalance.String())
	m.sessions.AssertCalled(t, "Save", mock.Anything, stored)
}

func TestResolveSessionSkipsAttachForCompletedSession(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	checking := newAssetAccount(t, tenantID, "1010", "Checking Shadow")
	account := m.seedBankAccount(t, tenantID, &checking.ID)

	start := mustDate(t, "2026-05-01")
	end := mustDate(t, "2026-05-31")
	stored, err := reconciliation.NewSession(tenantID, account.ID, start, end)
	require.NoError(t, err)
	stored.SeedOpeningBalance(decimal.RequireFromString("100.00"))
	stored.SeedClosingBalance(decimal.RequireFromString("100.00"))
	stored.Status = reconciliation.SessionStatusCompleted
	m.sessions.On("FindByPeriod", mock.Anything, tenantID, account.ID, start, end).Return(stored, nil)
	emptyFeed(m, tenantID)
	noCandidates(m, tenantID)

	resp, err := m.service().ResolveSession(context.Background(), tenantID, ResolveSessionQuery{
		BankAccountID:  account.ID,
		StatementStart: start,
		StatementEnd:   end,
	})
	require.NoError(t, err)

	assert.Equal(t, string(reconciliation.SessionStatusCompleted), resp.Session.Status)
	m.bankTxs.AssertNotCalled(t, "FindOrphansInWindow",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestResolveSessionValidation(t *testing.T) {
	tenantID := uuid.New()
	start := mustDate(t, "2026-07-01")
	end := mustDate(t, "2026-07-31")

	t.Run("requires bank account", func(t *testing.T) {
		m := newReconMocks()
		_, err := m.service().ResolveSession(context.Background(), tenantID, ResolveSessionQuery{
			StatementStart: start, StatementEnd: end,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.KindValidation, domainErr.Kind)
	})

	t.Run("requires statement period", func(t *testing.T) {
		m := newReconMocks()
		_, err := m.service().ResolveSession(context.Background(), tenantID, ResolveSessionQuery{
			BankAccountID: uuid.New(), StatementStart: start,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "statement period")
	})

	t.Run("rejects inverted period", func(t *testing.T) {
		m := newReconMocks()
		_, err := m.service().ResolveSession(context.Background(), tenantID, ResolveSessionQuery{
			BankAccountID: uuid.New(), StatementStart: end, StatementEnd: start,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "start date")
	})
}

func TestSetStatementBalanceRecomputesSummary(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	session := m.seedSession(t, tenantID, uuid.New(), mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	session.SeedOpeningBalance(decimal.RequireFromString("1000.00"))
	session.SeedClosingBalance(decimal.RequireFromString("1150.00"))
	m.sessions.On("Save", mock.Anything, session).Return(nil)
	emptyFeed(m, tenantID)

	closing := decimal.RequireFromString("2000.00")
	resp, err := m.service().SetStatementBalance(context.Background(), tenantID, session.ID,
		SetStatementBalanceRequest{ClosingBalance: &closing})
	require.NoError(t, err)

	assert.Equal(t, "2000", resp.Summary.ClosingBalance.String())
	assert.Equal(t, "1000", resp.Summary.OpeningBalance.String())
	assert.Equal(t, "1000", resp.Summary.Difference.String())
	assert.Equal(t, string(reconciliation.SessionStatusInProgress), resp.Session.Status)
}

func TestSetStatementBalanceRequiresABalance(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	_, err := m.service().SetStatementBalance(context.Background(), tenantID, uuid.New(),
		SetStatementBalanceRequest{})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.KindValidation, domainErr.Kind)
	m.sessions.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatementBalanceRejectsCompletedSession(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	session := m.seedSession(t, tenantID, uuid.New(), mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	session.Status = reconciliation.SessionStatusCompleted

	closing := decimal.RequireFromString("2000.00")
	_, err := m.service().SetStatementBalance(context.Background(), tenantID, session.ID,
		SetStatementBalanceRequest{ClosingBalance: &closing})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeSessionCompleted, domainErr.Code)
	m.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCompleteSessionHappyPath(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()
	m := newReconMocks()

	accountID := uuid.New()
	session := m.seedSession(t, tenantID, accountID, mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	session.SeedOpeningBalance(decimal.RequireFromString("100.00"))
	session.SeedClosingBalance(decimal.RequireFromString("215.00"))

	cleared, err := banking.NewBankTransaction(tenantID, accountID, mustDate(t, "2026-07-10"),
		"ACME LTD", decimal.RequireFromString("115.00"), nil)
	require.NoError(t, err)
	require.NoError(t, cleared.ApplyMatchTotal(decimal.RequireFromString("115.00"), 1))
	m.bankTxs.On("FindBySession", mock.Anything, tenantID, session.ID).
		Return([]banking.BankTransaction{*cleared}, nil)
	m.sessions.On("Save", mock.Anything, session).Return(nil)

	resp, err := m.service().Complete(context.Background(), tenantID, userID, session.ID)
	require.NoError(t, err)

	assert.Equal(t, string(reconciliation.SessionStatusCompleted), resp.Session.Status)
	require.NotNil(t, resp.Session.CompletedBy)
	assert.Equal(t, userID, *resp.Session.CompletedBy)
	assert.NotNil(t, resp.Session.CompletedAt)
	assert.True(t, resp.Summary.Difference.IsZero())

	events := m.publisher.GetEventsByType(reconciliation.EventTypeSessionCompleted)
	require.Len(t, events, 1)
	assert.Empty(t, session.GetDomainEvents())
}

func TestCompleteSessionRejectsNonzeroDifference(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	session := m.seedSession(t, tenantID, uuid.New(), mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	session.SeedOpeningBalance(decimal.RequireFromString("100.00"))
	session.SeedClosingBalance(decimal.RequireFromString("225.00"))
	emptyFeed(m, tenantID)

	_, err := m.service().Complete(context.Background(), tenantID, uuid.New(), session.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeDifferenceNotZero, domainErr.Code)
	m.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCompleteSessionRejectsUnreconciledTransactions(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	accountID := uuid.New()
	session := m.seedSession(t, tenantID, accountID, mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	session.SeedOpeningBalance(decimal.RequireFromString("100.00"))
	session.SeedClosingBalance(decimal.RequireFromString("100.00"))

	open, err := banking.NewBankTransaction(tenantID, accountID, mustDate(t, "2026-07-10"),
		"UNMATCHED", decimal.RequireFromString("50.00"), nil)
	require.NoError(t, err)
	m.bankTxs.On("FindBySession", mock.Anything, tenantID, session.ID).
		Return([]banking.BankTransaction{*open}, nil)

	_, err = m.service().Complete(context.Background(), tenantID, uuid.New(), session.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeUnreconciledRemaining, domainErr.Code)
}

func TestCompleteSessionIgnoresExcludedTransactions(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	accountID := uuid.New()
	session := m.seedSession(t, tenantID, accountID, mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	session.SeedOpeningBalance(decimal.RequireFromString("100.00"))
	session.SeedClosingBalance(decimal.RequireFromString("100.00"))

	excluded, err := banking.NewBankTransaction(tenantID, accountID, mustDate(t, "2026-07-15"),
		"PERSONAL SPEND", decimal.RequireFromString("-20.00"), nil)
	require.NoError(t, err)
	require.NoError(t, excluded.Exclude())
	m.bankTxs.On("FindBySession", mock.Anything, tenantID, session.ID).
		Return([]banking.BankTransaction{*excluded}, nil)
	m.sessions.On("Save", mock.Anything, session).Return(nil)

	resp, err := m.service().Complete(context.Background(), tenantID, uuid.New(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.ExcludedCount)
	assert.Equal(t, 0, resp.Summary.UnreconciledCount)
}

func TestReopenRequiresStaff(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	_, err := m.service().Reopen(context.Background(), tenantID, uuid.New(), uuid.New(), false)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.KindForbidden, domainErr.Kind)
	m.sessions.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestReopenCompletedSession(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	session := m.seedSession(t, tenantID, uuid.New(), mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	now := time.Now()
	session.Status = reconciliation.SessionStatusCompleted
	session.CompletedAt = &now
	m.sessions.On("Save", mock.Anything, session).Return(nil)
	emptyFeed(m, tenantID)

	resp, err := m.service().Reopen(context.Background(), tenantID, uuid.New(), session.ID, true)
	require.NoError(t, err)

	assert.Equal(t, string(reconciliation.SessionStatusInProgress), resp.Session.Status)
	assert.Nil(t, resp.Session.CompletedAt)
	events := m.publisher.GetEventsByType(reconciliation.EventTypeSessionReopened)
	require.Len(t, events, 1)
}

func TestReopenRejectsActiveSession(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	session := m.seedSession(t, tenantID, uuid.New(), mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))

	_, err := m.service().Reopen(context.Background(), tenantID, uuid.New(), session.ID, true)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeSessionNotCompleted, domainErr.Code)
}

func TestDeleteSessionDetachesAndResets(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	accountID := uuid.New()
	session := m.seedSession(t, tenantID, accountID, mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))

	matched, err := banking.NewBankTransaction(tenantID, accountID, mustDate(t, "2026-07-10"),
		"ACME LTD", decimal.RequireFromString("115.00"), nil)
	require.NoError(t, err)
	require.NoError(t, matched.AttachToSession(session.ID))
	require.NoError(t, matched.ApplyMatchTotal(decimal.RequireFromString("115.00"), 1))
	entryID := uuid.New()
	matched.PostedJournalEntryID = &entryID

	m.entries.On("ClearSessionLines", mock.Anything, tenantID, session.ID).Return(nil)
	m.bankTxs.On("FindBySession", mock.Anything, tenantID, session.ID).
		Return([]banking.BankTransaction{*matched}, nil)
	m.matches.On("DeleteByTransactions", mock.Anything, tenantID, []uuid.UUID{matched.ID}).Return(nil)
	var detached []*banking.BankTransaction
	m.bankTxs.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*banking.BankTransaction")).
		Run(func(args mock.Arguments) { detached = args.Get(1).([]*banking.BankTransaction) }).
		Return(nil)
	m.sessions.On("Delete", mock.Anything, tenantID, session.ID).Return(nil)

	err = m.service().DeleteSession(context.Background(), tenantID, uuid.New(), session.ID, true)
	require.NoError(t, err)

	require.Len(t, detached, 1)
	assert.Equal(t, banking.TransactionStatusNew, detached[0].Status)
	assert.Nil(t, detached[0].SessionID)
	assert.Nil(t, detached[0].PostedJournalEntryID)
	assert.True(t, detached[0].AllocatedAmount.IsZero())
	m.sessions.AssertCalled(t, "Delete", mock.Anything, tenantID, session.ID)
}

func TestDeleteSessionRequiresStaff(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	err := m.service().DeleteSession(context.Background(), tenantID, uuid.New(), uuid.New(), false)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.KindForbidden, domainErr.Kind)
	m.sessions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
