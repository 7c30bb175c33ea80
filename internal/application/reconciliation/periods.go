package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/reconciliation"
)

// ListAccounts returns the tenant's bank accounts for the reconciliation
// landing screen, each with the live balance of its ledger shadow account
// when one is linked.
func (s *ReconciliationService) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]ReconciliationAccountView, error) {
	accounts, err := s.bankAccountRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]ReconciliationAccountView, 0, len(accounts))
	for i := range accounts {
		account := &accounts[i]
		view := ReconciliationAccountView{
			ID:              account.ID,
			Name:            account.Name,
			Currency:        string(account.Currency),
			LedgerAccountID: account.LedgerAccountID,
			Active:          account.Active,
		}
		if account.LedgerAccountID != nil {
			balance, err := s.accountRepo.BalanceAsOf(ctx, tenantID, *account.LedgerAccountID, time.Now())
			if err != nil {
				s.logger.Warn("ledger balance lookup failed",
					zap.String("bank_account_id", account.ID.String()), zap.Error(err))
			} else {
				view.LedgerBalance = &balance
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// ListPeriods returns the calendar months available for reconciliation on
// one bank account, newest first, from the month of the earliest feed line
// through the current month. A month overlapping a completed session is
// locked until a staff reopen.
func (s *ReconciliationService) ListPeriods(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]PeriodBucket, error) {
	account, err := s.bankAccountRepo.FindByIDForTenant(ctx, tenantID, bankAccountID)
	if err != nil {
		return nil, err
	}
	first, err := s.bankTxRepo.FirstTransactionDate(ctx, tenantID, account.ID)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return []PeriodBucket{}, nil
	}

	from := firstOfMonth(*first)
	current := firstOfMonth(time.Now().UTC())
	completed, err := s.sessionRepo.FindCompletedOverlapping(ctx, tenantID, account.ID, from, endOfMonth(current))
	if err != nil {
		return nil, err
	}

	var buckets []PeriodBucket
	for cursor := current; !cursor.Before(from); cursor = cursor.AddDate(0, -1, 0) {
		start := cursor
		end := endOfMonth(cursor)
		buckets = append(buckets, PeriodBucket{
			Label:  cursor.Format("January 2006"),
			Start:  start,
			End:    end,
			Locked: overlapsCompleted(completed, start, end),
		})
	}
	return buckets, nil
}

func overlapsCompleted(sessions []reconciliation.Session, start, end time.Time) bool {
	for i := range sessions {
		if !sessions[i].StatementStart.After(end) && !sessions[i].StatementEnd.Before(start) {
			return true
		}
	}
	return false
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func endOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, -1)
}
