package reconciliation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
)

// matchFixture wires a session, a linked bank account and a ledger shadow
// account, the shape every match operation starts from
type matchFixture struct {
	*reconMocks
	tenantID uuid.UUID
	userID   uuid.UUID
	checking *ledger.Account
	account  *banking.BankAccount
	session  *reconciliation.Session
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()
	f := &matchFixture{
		reconMocks: newReconMocks(),
		tenantID:   uuid.New(),
		userID:     uuid.New(),
	}
	f.checking = newAssetAccount(t, f.tenantID, "1010", "Checking Shadow")
	f.account = f.seedBankAccount(t, f.tenantID, &f.checking.ID)
	f.session = f.seedSession(t, f.tenantID, f.account.ID,
		mustDate(t, "2026-07-01"), mustDate(t, "2026-07-31"))
	return f
}

func (f *matchFixture) seedEntry(t *testing.T, date, description string) *ledger.JournalEntry {
	t.Helper()
	entry, err := ledger.NewJournalEntry(f.tenantID, mustDate(t, date), description, ledger.EntrySourceManual)
	require.NoError(t, err)
	f.entries.On("FindByIDForTenant", mock.Anything, f.tenantID, entry.ID).Return(entry, nil)
	return entry
}

func (f *matchFixture) expectWrites() {
	f.sessions.On("Save", mock.Anything, f.session).Return(nil)
	f.bankTxs.On("Save", mock.Anything, mock.AnythingOfType("*banking.BankTransaction")).Return(nil)
	emptyFeed(f.reconMocks, f.tenantID)
}

func (f *matchFixture) noExistingMatches(txID uuid.UUID) {
	f.matches.On("FindByTransaction", mock.Anything, f.tenantID, txID).
		Return([]reconciliation.Match{}, nil)
}

func sessionPointer(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(p *uuid.UUID) bool { return p != nil && *p == id })
}

func TestMatchTransactionHappyPath(t *testing.T) {
	f := newMatchFixture(t)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	entry := f.seedEntry(t, "2026-07-10", "Invoice payment")

	f.noExistingMatches(tx.ID)
	var captured *reconciliation.Match
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*reconciliation.Match) }).
		Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, entry.ID, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	resp, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, reconciliation.MatchTypeOneToOne, captured.MatchType)
	assert.Equal(t, tx.ID, captured.BankTransactionID)
	assert.Equal(t, entry.ID, captured.JournalEntryID)
	assert.Equal(t, "115", captured.MatchedAmount.String())
	assert.Equal(t, "1", captured.MatchConfidence.String())
	require.NotNil(t, captured.ReconciledBy)
	assert.Equal(t, f.userID, *captured.ReconciledBy)

	assert.Equal(t, banking.TransactionStatusMatchedSingle, tx.Status)
	assert.True(t, tx.IsReconciled)
	assert.Equal(t, "115", tx.AllocatedAmount.String())
	require.NotNil(t, tx.SessionID)
	assert.Equal(t, f.session.ID, *tx.SessionID)

	assert.Equal(t, string(reconciliation.SessionStatusInProgress), resp.Session.Status)
	events := f.publisher.GetEventsByType(banking.EventTypeTransactionMatched)
	require.Len(t, events, 1)

	// no advisor registered: the critic path stays cold
	f.tenants.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestMatchReplacesExistingMatches(t *testing.T) {
	f := newMatchFixture(t)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	require.NoError(t, tx.ApplyMatchTotal(decimal.RequireFromString("115.00"), 1))
	entry := f.seedEntry(t, "2026-07-12", "Corrected invoice payment")

	oldEntryID := uuid.New()
	old, err := reconciliation.NewMatch(f.tenantID, tx.ID, oldEntryID,
		reconciliation.MatchTypeOneToOne, decimal.NewFromInt(1), decimal.RequireFromString("115.00"))
	require.NoError(t, err)
	f.matches.On("FindByTransaction", mock.Anything, f.tenantID, tx.ID).
		Return([]reconciliation.Match{*old}, nil)

	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, oldEntryID, f.checking.ID,
		(*uuid.UUID)(nil), false).Return(nil)
	f.matches.On("DeleteByTransaction", mock.Anything, f.tenantID, tx.ID).Return(nil)

	var captured *reconciliation.Match
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*reconciliation.Match) }).
		Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, entry.ID, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	_, err = f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	require.NoError(t, err)

	f.matches.AssertCalled(t, "DeleteByTransaction", mock.Anything, f.tenantID, tx.ID)
	f.entries.AssertCalled(t, "SetLinesReconciled", mock.Anything, f.tenantID, oldEntryID,
		f.checking.ID, (*uuid.UUID)(nil), false)
	require.NotNil(t, captured)
	assert.Equal(t, entry.ID, captured.JournalEntryID)
	assert.Equal(t, banking.TransactionStatusMatchedSingle, tx.Status)
}

func TestMatchRejectsDateOutsidePeriod(t *testing.T) {
	t.Run("transaction outside", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-08-05"), "115.00")

		_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
			MatchRequest{TransactionID: tx.ID, JournalEntryID: uuid.New()})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "bank transaction date")
		f.entries.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("entry outside", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
		entry := f.seedEntry(t, "2026-08-05", "Late payment")

		_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
			MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "journal entry date")
	})
}

func TestMatchRejectsVoidEntry(t *testing.T) {
	f := newMatchFixture(t)
	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	entry := f.seedEntry(t, "2026-07-10", "Voided payment")
	require.NoError(t, entry.Void())

	_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Message, "void")
}

func TestMatchRejectsExcludedTransaction(t *testing.T) {
	f := newMatchFixture(t)
	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	require.NoError(t, tx.Exclude())

	_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: uuid.New()})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeTransactionNotOpen, domainErr.Code)
}

func TestMatchRejectsCompletedSession(t *testing.T) {
	f := newMatchFixture(t)
	f.session.Status = reconciliation.SessionStatusCompleted

	_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: uuid.New(), JournalEntryID: uuid.New()})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeSessionCompleted, domainErr.Code)
	f.bankTxs.AssertNotCalled(t, "FindByIDForTenantLocked", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchRejectsTransactionLockedToAnotherSession(t *testing.T) {
	f := newMatchFixture(t)
	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	require.NoError(t, tx.AttachToSession(uuid.New()))
	entry := f.seedEntry(t, "2026-07-10", "Invoice payment")

	_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "locked_to_session", domainErr.Code)
}

func TestMatchRejectsCrossAccountTransaction(t *testing.T) {
	f := newMatchFixture(t)
	tx := f.seedTransaction(t, f.tenantID, uuid.New(), mustDate(t, "2026-07-10"), "115.00")

	_, err := f.service().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: uuid.New()})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Message, "different bank account")
}

func TestUnmatchResetsTransaction(t *testing.T) {
	f := newMatchFixture(t)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	require.NoError(t, tx.ApplyMatchTotal(decimal.RequireFromString("115.00"), 1))

	entryID := uuid.New()
	old, err := reconciliation.NewMatch(f.tenantID, tx.ID, entryID,
		reconciliation.MatchTypeOneToOne, decimal.NewFromInt(1), decimal.RequireFromString("115.00"))
	require.NoError(t, err)
	f.matches.On("FindByTransaction", mock.Anything, f.tenantID, tx.ID).
		Return([]reconciliation.Match{*old}, nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, entryID, f.checking.ID,
		(*uuid.UUID)(nil), false).Return(nil)
	f.matches.On("DeleteByTransaction", mock.Anything, f.tenantID, tx.ID).Return(nil)
	f.expectWrites()

	_, err = f.service().Unmatch(context.Background(), f.tenantID, f.session.ID,
		UnmatchRequest{TransactionID: tx.ID})
	require.NoError(t, err)

	assert.Equal(t, banking.TransactionStatusNew, tx.Status)
	assert.False(t, tx.IsReconciled)
	assert.True(t, tx.AllocatedAmount.IsZero())
	events := f.publisher.GetEventsByType(banking.EventTypeTransactionUnmatched)
	require.Len(t, events, 1)
}

func TestExcludeAndInclude(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }

	t.Run("exclude", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-15"), "-20.00")
		f.expectWrites()

		resp, err := f.service().Exclude(context.Background(), f.tenantID, f.session.ID,
			ExcludeRequest{TransactionID: tx.ID, Excluded: boolPtr(true)})
		require.NoError(t, err)

		assert.Equal(t, banking.TransactionStatusExcluded, tx.Status)
		assert.NotNil(t, resp)
		events := f.publisher.GetEventsByType(banking.EventTypeTransactionExcluded)
		require.Len(t, events, 1)
	})

	t.Run("include", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-15"), "-20.00")
		require.NoError(t, tx.Exclude())
		f.expectWrites()

		_, err := f.service().Exclude(context.Background(), f.tenantID, f.session.ID,
			ExcludeRequest{TransactionID: tx.ID, Excluded: boolPtr(false)})
		require.NoError(t, err)

		assert.Equal(t, banking.TransactionStatusNew, tx.Status)
		assert.Empty(t, f.publisher.GetEventsByType(banking.EventTypeTransactionExcluded))
	})

	t.Run("missing flag", func(t *testing.T) {
		f := newMatchFixture(t)
		_, err := f.service().Exclude(context.Background(), f.tenantID, f.session.ID,
			ExcludeRequest{TransactionID: uuid.New()})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.KindValidation, domainErr.Kind)
	})

	t.Run("exclude matched line", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-15"), "115.00")
		require.NoError(t, tx.ApplyMatchTotal(decimal.RequireFromString("115.00"), 1))

		_, err := f.service().Exclude(context.Background(), f.tenantID, f.session.ID,
			ExcludeRequest{TransactionID: tx.ID, Excluded: boolPtr(true)})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "invalid_status_transition", domainErr.Code)
	})
}

func TestAddAsNewPostsBalancedEntry(t *testing.T) {
	f := newMatchFixture(t)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-20"), "115.00")
	category, err := ledger.NewAccount(f.tenantID, "4000", "Sales Revenue", ledger.AccountTypeIncome)
	require.NoError(t, err)
	f.accounts.On("FindByIDForTenant", mock.Anything, f.tenantID, category.ID).Return(category, nil)

	var entry *ledger.JournalEntry
	f.entries.On("Save", mock.Anything, mock.AnythingOfType("*ledger.JournalEntry")).
		Run(func(args mock.Arguments) { entry = args.Get(1).(*ledger.JournalEntry) }).
		Return(nil)
	f.noExistingMatches(tx.ID)
	var match *reconciliation.Match
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).
		Run(func(args mock.Arguments) { match = args.Get(1).(*reconciliation.Match) }).
		Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, mock.Anything, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	resp, err := f.service().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
		SessionID:         f.session.ID,
		TransactionID:     tx.ID,
		CategoryAccountID: &category.ID,
		Description:       "Walk-in sale",
	})
	require.NoError(t, err)

	require.NotNil(t, entry)
	assert.Equal(t, ledger.EntrySourceReconciliation, entry.Source)
	assert.Equal(t, "Walk-in sale", entry.Description)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, f.checking.ID, entry.Lines[0].AccountID)
	assert.Equal(t, "115", entry.Lines[0].Debit.String())
	assert.Equal(t, category.ID, entry.Lines[1].AccountID)
	assert.Equal(t, "115", entry.Lines[1].Credit.String())

	require.NotNil(t, match)
	assert.Equal(t, reconciliation.MatchTypeAdjustment, match.MatchType)
	require.NotNil(t, match.AdjustmentJournalEntryID)
	assert.Equal(t, entry.ID, *match.AdjustmentJournalEntryID)

	require.NotNil(t, tx.PostedJournalEntryID)
	assert.Equal(t, entry.ID, *tx.PostedJournalEntryID)
	require.NotNil(t, tx.CategoryAccountID)
	assert.Equal(t, category.ID, *tx.CategoryAccountID)
	assert.Equal(t, banking.TransactionStatusMatchedSingle, tx.Status)

	assert.Equal(t, entry.ID, resp.JournalEntry.ID)
	assert.Equal(t, string(ledger.EntrySourceReconciliation), resp.JournalEntry.Source)

	require.Len(t, f.publisher.GetEventsByType(ledger.EventTypeJournalEntryPosted), 1)
	require.Len(t, f.publisher.GetEventsByType(banking.EventTypeTransactionMatched), 1)
}

func TestAddAsNewWithdrawalFallsBackToUncategorized(t *testing.T) {
	f := newMatchFixture(t)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-22"), "-42.50")
	uncategorized, err := ledger.NewAccount(f.tenantID, ledger.UncategorizedAccountCode,
		"Uncategorized", ledger.AccountTypeExpense)
	require.NoError(t, err)
	f.accounts.On("GetOrCreate", mock.Anything, f.tenantID, ledger.UncategorizedSpec()).
		Return(uncategorized, nil)

	var entry *ledger.JournalEntry
	f.entries.On("Save", mock.Anything, mock.AnythingOfType("*ledger.JournalEntry")).
		Run(func(args mock.Arguments) { entry = args.Get(1).(*ledger.JournalEntry) }).
		Return(nil)
	f.noExistingMatches(tx.ID)
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, mock.Anything, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	_, err = f.service().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
		SessionID:     f.session.ID,
		TransactionID: tx.ID,
	})
	require.NoError(t, err)

	// withdrawal: expense side debits, bank side credits
	require.NotNil(t, entry)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, uncategorized.ID, entry.Lines[0].AccountID)
	assert.Equal(t, "42.5", entry.Lines[0].Debit.String())
	assert.Equal(t, f.checking.ID, entry.Lines[1].AccountID)
	assert.Equal(t, "42.5", entry.Lines[1].Credit.String())
	assert.Equal(t, "ACME LTD", entry.Description)
	assert.Nil(t, tx.CategoryAccountID)
}

func TestAddAsNewRejections(t *testing.T) {
	t.Run("already matched", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-20"), "115.00")
		require.NoError(t, tx.ApplyMatchTotal(decimal.RequireFromString("115.00"), 1))

		_, err := f.service().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
			SessionID: f.session.ID, TransactionID: tx.ID,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeTransactionMatched, domainErr.Code)
	})

	t.Run("excluded", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-20"), "115.00")
		require.NoError(t, tx.Exclude())

		_, err := f.service().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
			SessionID: f.session.ID, TransactionID: tx.ID,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeTransactionNotOpen, domainErr.Code)
	})

	t.Run("zero amount", func(t *testing.T) {
		f := newMatchFixture(t)
		tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-20"), "0")

		_, err := f.service().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
			SessionID: f.session.ID, TransactionID: tx.ID,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "zero-amount")
	})
}

// criticFixture extends the match fixture with a companion-enabled tenant
// and a recording advisor stub
type criticFixture struct {
	*matchFixture
	stub   *stubAdvisor
	tenant *identity.Tenant
}

func newCriticFixture(t *testing.T, companionEnabled bool) *criticFixture {
	t.Helper()
	f := &criticFixture{
		matchFixture: newMatchFixture(t),
		stub: &stubAdvisor{result: advisor.CriticResult{
			Verdict:   string(banking.CriticVerdictWarn),
			Reasons:   []string{"unusually large manual posting"},
			CalledLLM: true,
		}},
	}
	tenant, err := identity.NewTenant("ACME", "Acme Inc")
	require.NoError(t, err)
	if companionEnabled {
		tenant.EnableCompanion()
	}
	f.tenant = tenant
	f.tenants.On("FindByID", mock.Anything, f.tenantID).Return(tenant, nil)
	return f
}

func (f *criticFixture) criticService() *ReconciliationService {
	svc := f.service()
	svc.SetAdvisor(f.stub)
	return svc
}

func TestMatchRunsCriticForHighRiskPosting(t *testing.T) {
	f := newCriticFixture(t, true)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "7500.00")
	entry := f.seedEntry(t, "2026-07-10", "Equipment purchase")
	expense, err := ledger.NewAccount(f.tenantID, "6000", "General Expenses", ledger.AccountTypeExpense)
	require.NoError(t, err)
	require.NoError(t, entry.AddDebit(f.checking.ID, decimal.RequireFromString("7500.00"), ""))
	require.NoError(t, entry.AddCredit(expense.ID, decimal.RequireFromString("7500.00"), ""))
	f.accounts.On("FindByIDForTenant", mock.Anything, f.tenantID, f.checking.ID).Return(f.checking, nil)
	f.accounts.On("FindByIDForTenant", mock.Anything, f.tenantID, expense.ID).Return(expense, nil)

	f.noExistingMatches(tx.ID)
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, entry.ID, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()
	f.bankTxs.On("FindByIDForTenant", mock.Anything, f.tenantID, tx.ID).Return(tx, nil)

	_, err = f.criticService().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	require.NoError(t, err)

	calls := f.stub.criticCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "7500", calls[0].Amount.String())
	assert.Equal(t, "USD", calls[0].Currency)
	assert.Equal(t, "1010", calls[0].DebitAccount)
	assert.Equal(t, "6000", calls[0].CreditAccount)
	assert.Equal(t, "reconciliation_match", calls[0].Source)
	assert.False(t, calls[0].IsBulkAdjustment)

	require.NotNil(t, tx.CriticVerdict)
	assert.Equal(t, banking.CriticVerdictWarn, *tx.CriticVerdict)
}

func TestAddAsNewReplacingMatchesRunsCritic(t *testing.T) {
	f := newCriticFixture(t, true)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-20"), "115.00")
	require.NoError(t, tx.ApplyMatchTotal(decimal.RequireFromString("50.00"), 1))
	category, err := ledger.NewAccount(f.tenantID, "4000", "Sales Revenue", ledger.AccountTypeIncome)
	require.NoError(t, err)
	f.accounts.On("FindByIDForTenant", mock.Anything, f.tenantID, category.ID).Return(category, nil)
	f.accounts.On("FindByIDForTenant", mock.Anything, f.tenantID, f.checking.ID).Return(f.checking, nil)

	oldEntryID := uuid.New()
	old, err := reconciliation.NewMatch(f.tenantID, tx.ID, oldEntryID,
		reconciliation.MatchTypeOneToOne, decimal.NewFromInt(1), decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	f.matches.On("FindByTransaction", mock.Anything, f.tenantID, tx.ID).
		Return([]reconciliation.Match{*old}, nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, oldEntryID, f.checking.ID,
		(*uuid.UUID)(nil), false).Return(nil)
	f.matches.On("DeleteByTransaction", mock.Anything, f.tenantID, tx.ID).Return(nil)

	f.entries.On("Save", mock.Anything, mock.AnythingOfType("*ledger.JournalEntry")).Return(nil)
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, mock.Anything, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()
	f.bankTxs.On("FindByIDForTenant", mock.Anything, f.tenantID, tx.ID).Return(tx, nil)

	_, err = f.criticService().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
		SessionID:         f.session.ID,
		TransactionID:     tx.ID,
		CategoryAccountID: &category.ID,
		Description:       "Replaced partial match",
	})
	require.NoError(t, err)

	// 115 is well under the amount threshold; replacing match rows alone
	// routes the adjustment to the critic.
	calls := f.stub.criticCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "reconciliation_adjustment", calls[0].Source)
	assert.True(t, calls[0].IsBulkAdjustment)
	assert.Equal(t, "115", calls[0].Amount.String())
	assert.Equal(t, "1010", calls[0].DebitAccount)
	assert.Equal(t, "4000", calls[0].CreditAccount)

	require.NotNil(t, tx.CriticVerdict)
	assert.Equal(t, banking.CriticVerdictWarn, *tx.CriticVerdict)
}

func TestAddAsNewWithoutPriorMatchesSkipsCritic(t *testing.T) {
	f := newCriticFixture(t, true)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-20"), "115.00")
	category, err := ledger.NewAccount(f.tenantID, "4000", "Sales Revenue", ledger.AccountTypeIncome)
	require.NoError(t, err)
	f.accounts.On("FindByIDForTenant", mock.Anything, f.tenantID, category.ID).Return(category, nil)

	f.entries.On("Save", mock.Anything, mock.AnythingOfType("*ledger.JournalEntry")).Return(nil)
	f.noExistingMatches(tx.ID)
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, mock.Anything, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	_, err = f.criticService().AddAsNew(context.Background(), f.tenantID, f.userID, AddAsNewRequest{
		SessionID:         f.session.ID,
		TransactionID:     tx.ID,
		CategoryAccountID: &category.ID,
	})
	require.NoError(t, err)

	assert.Empty(t, f.stub.criticCalls())
	assert.Nil(t, tx.CriticVerdict)
}

func TestMatchSkipsCriticBelowThreshold(t *testing.T) {
	f := newCriticFixture(t, true)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "115.00")
	entry := f.seedEntry(t, "2026-07-10", "Invoice payment")

	f.noExistingMatches(tx.ID)
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, entry.ID, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	_, err := f.criticService().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	require.NoError(t, err)

	assert.Empty(t, f.stub.criticCalls())
	f.tenants.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	assert.Nil(t, tx.CriticVerdict)
}

func TestMatchSkipsCriticWhenCompanionDisabled(t *testing.T) {
	f := newCriticFixture(t, false)

	tx := f.seedTransaction(t, f.tenantID, f.account.ID, mustDate(t, "2026-07-10"), "7500.00")
	entry := f.seedEntry(t, "2026-07-10", "Equipment purchase")

	f.noExistingMatches(tx.ID)
	f.matches.On("Save", mock.Anything, mock.AnythingOfType("*reconciliation.Match")).Return(nil)
	f.entries.On("SetLinesReconciled", mock.Anything, f.tenantID, entry.ID, f.checking.ID,
		sessionPointer(f.session.ID), true).Return(nil)
	f.expectWrites()

	_, err := f.criticService().Match(context.Background(), f.tenantID, f.userID, f.session.ID,
		MatchRequest{TransactionID: tx.ID, JournalEntryID: entry.ID})
	require.NoError(t, err)

	f.tenants.AssertCalled(t, "FindByID", mock.Anything, f.tenantID)
	assert.Empty(t, f.stub.criticCalls())
	assert.Nil(t, tx.CriticVerdict)
}
