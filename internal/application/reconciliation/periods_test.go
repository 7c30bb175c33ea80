package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

func TestListAccountsIncludesLedgerBalance(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()

	linked, err := banking.NewBankAccount(tenantID, "Business Checking", valueobject.USD)
	require.NoError(t, err)
	ledgerAccountID := uuid.New()
	require.NoError(t, linked.LinkLedgerAccount(ledgerAccountID))

	unlinked, err := banking.NewBankAccount(tenantID, "Petty Cash", valueobject.USD)
	require.NoError(t, err)

	m.bankAccounts.On("FindAllForTenant", mock.Anything, tenantID).
		Return([]banking.BankAccount{*linked, *unlinked}, nil)
	m.accounts.On("BalanceAsOf", mock.Anything, tenantID, ledgerAccountID, mock.Anything).
		Return(decimal.RequireFromString("1234.56"), nil)

	views, err := m.service().ListAccounts(context.Background(), tenantID)
	require.NoError(t, err)

	require.Len(t, views, 2)
	assert.Equal(t, "Business Checking", views[0].Name)
	assert.Equal(t, "USD", views[0].Currency)
	require.NotNil(t, views[0].LedgerBalance)
	assert.Equal(t, "1234.56", views[0].LedgerBalance.String())
	assert.Nil(t, views[1].LedgerBalance)
}

func TestListPeriodsEmptyFeed(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()
	account := m.seedBankAccount(t, tenantID, nil)

	m.bankTxs.On("FirstTransactionDate", mock.Anything, tenantID, account.ID).Return(nil, nil)

	buckets, err := m.service().ListPeriods(context.Background(), tenantID, account.ID)
	require.NoError(t, err)

	assert.Empty(t, buckets)
	m.sessions.AssertNotCalled(t, "FindCompletedOverlapping",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListPeriodsBucketsAndLocks(t *testing.T) {
	tenantID := uuid.New()
	m := newReconMocks()
	account := m.seedBankAccount(t, tenantID, nil)

	now := time.Now().UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	oldestMonth := currentMonth.AddDate(0, -2, 0)
	middleMonth := currentMonth.AddDate(0, -1, 0)

	firstTx := oldestMonth.AddDate(0, 0, 14)
	m.bankTxs.On("FirstTransactionDate", mock.Anything, tenantID, account.ID).Return(&firstTx, nil)

	completed, err := reconciliation.NewSession(tenantID, account.ID,
		middleMonth, middleMonth.AddDate(0, 1, -1))
	require.NoError(t, err)
	completed.Status = reconciliation.SessionStatusCompleted
	m.sessions.On("FindCompletedOverlapping", mock.Anything, tenantID, account.ID,
		mock.Anything, mock.Anything).Return([]reconciliation.Session{*completed}, nil)

	buckets, err := m.service().ListPeriods(context.Background(), tenantID, account.ID)
	require.NoError(t, err)

	// newest first, back to the month of the first feed line
	require.Len(t, buckets, 3)
	assert.Equal(t, currentMonth, buckets[0].Start)
	assert.Equal(t, middleMonth, buckets[1].Start)
	assert.Equal(t, oldestMonth, buckets[2].Start)
	assert.Equal(t, middleMonth.AddDate(0, 1, -1), buckets[1].End)
	assert.Equal(t, middleMonth.Format("January 2006"), buckets[1].Label)

	assert.False(t, buckets[0].Locked)
	assert.True(t, buckets[1].Locked)
	assert.False(t, buckets[2].Locked)
}
