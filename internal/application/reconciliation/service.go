package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appbanking "github.com/ledgerline/backend/internal/application/banking"
	appledger "github.com/ledgerline/backend/internal/application/ledger"
	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/identity"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// ReconciliationService drives the statement reconciliation workspace: it
// materializes sessions over statement windows, pairs feed lines with
// journal entries, and enforces the completion gate. All multi-aggregate
// mutations run inside the transaction scope.
type ReconciliationService struct {
	scope           TransactionScope
	sessionRepo     reconciliation.SessionRepository
	bankAccountRepo banking.BankAccountRepository
	bankTxRepo      banking.BankTransactionRepository
	entryRepo       ledger.JournalEntryRepository
	accountRepo     ledger.AccountRepository
	tenantRepo      identity.TenantRepository
	advisor         advisor.Advisor
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	scope TransactionScope,
	sessionRepo reconciliation.SessionRepository,
	bankAccountRepo banking.BankAccountRepository,
	bankTxRepo banking.BankTransactionRepository,
	entryRepo ledger.JournalEntryRepository,
	accountRepo ledger.AccountRepository,
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		scope:           scope,
		sessionRepo:     sessionRepo,
		bankAccountRepo: bankAccountRepo,
		bankTxRepo:      bankTxRepo,
		entryRepo:       entryRepo,
		accountRepo:     accountRepo,
		tenantRepo:      tenantRepo,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ReconciliationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAdvisor routes high-risk postings through the companion critic
func (s *ReconciliationService) SetAdvisor(a advisor.Advisor) {
	s.advisor = a
}

// ResolveSession returns the reconciliation workspace for one statement
// window, creating the session on first access. New sessions seed both
// statement balances from the ledger balance of the bank's shadow account;
// older sessions stored without an opening balance are backfilled the same
// way. Feed lines in the window that belong to no session yet are pulled in
// on every call while the session is still mutable.
func (s *ReconciliationService) ResolveSession(ctx context.Context, tenantID uuid.UUID, query ResolveSessionQuery) (*SessionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "resolve_session")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrBankAccountID, query.BankAccountID.String())

	if query.BankAccountID == uuid.Nil {
		err := shared.NewValidationError("bank account is required")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if query.StatementStart.IsZero() || query.StatementEnd.IsZero() {
		err := shared.NewValidationError("statement period is required")
		telemetry.RecordError(span, err)
		return nil, err
	}
	start := dayOf(query.StatementStart)
	end := dayOf(query.StatementEnd)
	if start.After(end) {
		err := shared.NewValidationError("statement start date must not be after the end date")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		session             *reconciliation.Session
		feed                []*banking.BankTransaction
		candidates          []ledger.JournalEntry
		bankLedgerAccountID uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.BankAccounts().FindByIDForTenant(ctx, tenantID, query.BankAccountID)
		if err != nil {
			return err
		}
		bankLedgerAccountID, err = resolveBankLedgerAccount(ctx, repos.Accounts(), tenantID, account)
		if err != nil {
			return err
		}

		session, err = repos.Sessions().FindByPeriod(ctx, tenantID, account.ID, start, end)
		if err != nil {
			return err
		}
		if session == nil {
			session, err = reconciliation.NewSession(tenantID, account.ID, start, end)
			if err != nil {
				return err
			}
			opening, err := repos.Accounts().BalanceAsOf(ctx, tenantID, bankLedgerAccountID, start.AddDate(0, 0, -1))
			if err != nil {
				return err
			}
			closing, err := repos.Accounts().BalanceAsOf(ctx, tenantID, bankLedgerAccountID, end)
			if err != nil {
				return err
			}
			session.SeedOpeningBalance(opening)
			session.SeedClosingBalance(closing)
			if err := repos.Sessions().Save(ctx, session); err != nil {
				return err
			}
		} else if session.OpeningBalance == nil {
			opening, err := repos.Accounts().BalanceAsOf(ctx, tenantID, bankLedgerAccountID, session.StatementStart.AddDate(0, 0, -1))
			if err != nil {
				return err
			}
			session.SeedOpeningBalance(opening)
			if err := repos.Sessions().Save(ctx, session); err != nil {
				return err
			}
		}

		if session.Status != reconciliation.SessionStatusCompleted {
			if err := attachOrphans(ctx, repos.BankTransactions(), tenantID, session); err != nil {
				return err
			}
		}

		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		if err != nil {
			return err
		}
		candidates, err = repos.Entries().FindUnreconciledOnAccount(ctx, tenantID, bankLedgerAccountID,
			session.StatementStart, session.StatementEnd)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrSessionID, session.ID.String())
	telemetry.SetOK(span)
	return buildSessionResponse(session, feed, candidates, bankLedgerAccountID), nil
}

// SetStatementBalance overrides the seeded statement balances on a mutable
// session and returns the recomputed summary
func (s *ReconciliationService) SetStatementBalance(ctx context.Context, tenantID, sessionID uuid.UUID, req SetStatementBalanceRequest) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "set_statement_balance")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSessionID, sessionID.String())

	if req.OpeningBalance == nil && req.ClosingBalance == nil {
		err := shared.NewValidationError("an opening or closing balance is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		session *reconciliation.Session
		feed    []*banking.BankTransaction
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.Sessions().FindByIDForTenant(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if req.OpeningBalance != nil {
			if err := session.SetOpeningBalance(*req.OpeningBalance); err != nil {
				return err
			}
		}
		if req.ClosingBalance != nil {
			if err := session.SetClosingBalance(*req.ClosingBalance); err != nil {
				return err
			}
		}
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return summaryResponse(session, feed), nil
}

// Complete closes the session once the statement difference is within
// tolerance and every non-excluded feed line is reconciled
func (s *ReconciliationService) Complete(ctx context.Context, tenantID, userID, sessionID uuid.UUID) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "complete_session")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSessionID, sessionID.String())

	var (
		session      *reconciliation.Session
		summary      reconciliation.Summary
		operationErr error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationCompleteSession, ""), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			session, err = repos.Sessions().FindByIDForTenant(c, tenantID, sessionID)
			if err != nil {
				return err
			}
			feed, err := sessionFeed(c, repos.BankTransactions(), tenantID, session.ID)
			if err != nil {
				return err
			}
			summary = reconciliation.Summarize(session, feed)
			if err := session.Complete(summary.ClearedSum, summary.UnreconciledCount, userID); err != nil {
				return err
			}
			return repos.Sessions().Save(c, session)
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	s.publishSessionEvents(ctx, session)
	s.logger.Info("reconciliation session completed",
		zap.String("session_id", session.ID.String()),
		zap.String("difference", summary.Difference.StringFixed(2)))

	telemetry.SetOK(span)
	return &SummaryResponse{Session: ToSessionView(session), Summary: summary}, nil
}

// Reopen reverses a completed session. Staff only; the reopened session
// accepts mutations again.
func (s *ReconciliationService) Reopen(ctx context.Context, tenantID, userID, sessionID uuid.UUID, staff bool) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reopen_session")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSessionID, sessionID.String())

	if !staff {
		err := shared.NewForbiddenError("only staff can reopen a completed reconciliation session")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		session *reconciliation.Session
		feed    []*banking.BankTransaction
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.Sessions().FindByIDForTenant(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if err := session.Reopen(); err != nil {
			return err
		}
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishSessionEvents(ctx, session)
	s.logger.Info("reconciliation session reopened",
		zap.String("session_id", session.ID.String()),
		zap.String("reopened_by", userID.String()))

	telemetry.SetOK(span)
	return summaryResponse(session, feed), nil
}

// DeleteSession tears a session down regardless of its status. Staff only:
// every feed line is detached and reset, the session's match rows and
// journal-line flags are removed, then the session record itself.
func (s *ReconciliationService) DeleteSession(ctx context.Context, tenantID, userID, sessionID uuid.UUID, staff bool) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "delete_session")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSessionID, sessionID.String())

	if !staff {
		err := shared.NewForbiddenError("only staff can delete a reconciliation session")
		telemetry.RecordError(span, err)
		return err
	}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.Sessions().FindByIDForTenant(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if err := repos.Entries().ClearSessionLines(ctx, tenantID, session.ID); err != nil {
			return err
		}
		txs, err := repos.BankTransactions().FindBySession(ctx, tenantID, session.ID)
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			ids := make([]uuid.UUID, 0, len(txs))
			detached := make([]*banking.BankTransaction, 0, len(txs))
			for i := range txs {
				tx := &txs[i]
				ids = append(ids, tx.ID)
				if err := tx.ResetToNew(); err != nil {
					return err
				}
				tx.DetachFromSession()
				detached = append(detached, tx)
			}
			if err := repos.Matches().DeleteByTransactions(ctx, tenantID, ids); err != nil {
				return err
			}
			if err := repos.BankTransactions().SaveAll(ctx, detached); err != nil {
				return err
			}
		}
		return repos.Sessions().Delete(ctx, tenantID, session.ID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("reconciliation session deleted",
		zap.String("session_id", sessionID.String()),
		zap.String("deleted_by", userID.String()))

	telemetry.SetOK(span)
	return nil
}

// resolveBankLedgerAccount returns the ledger account the bank feed posts
// against: the linked shadow account when set, the cash role account
// otherwise.
func resolveBankLedgerAccount(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID, account *banking.BankAccount) (uuid.UUID, error) {
	if account.LedgerAccountID != nil {
		return *account.LedgerAccountID, nil
	}
	defaults, err := appledger.ResolveDefaults(ctx, accounts, tenantID)
	if err != nil {
		return uuid.Nil, err
	}
	return defaults.Cash.ID, nil
}

// attachOrphans pulls feed lines dated inside the statement window that
// belong to no session yet into this one
func attachOrphans(ctx context.Context, bankTxs banking.BankTransactionRepository, tenantID uuid.UUID, session *reconciliation.Session) error {
	orphans, err := bankTxs.FindOrphansInWindow(ctx, tenantID, session.BankAccountID,
		session.StatementStart, session.StatementEnd)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}
	attached := make([]*banking.BankTransaction, 0, len(orphans))
	for i := range orphans {
		tx := &orphans[i]
		if err := tx.AttachToSession(session.ID); err != nil {
			return err
		}
		attached = append(attached, tx)
	}
	return bankTxs.SaveAll(ctx, attached)
}

// sessionFeed loads the session's transactions as pointers for summarizing
func sessionFeed(ctx context.Context, bankTxs banking.BankTransactionRepository, tenantID, sessionID uuid.UUID) ([]*banking.BankTransaction, error) {
	rows, err := bankTxs.FindBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	feed := make([]*banking.BankTransaction, len(rows))
	for i := range rows {
		feed[i] = &rows[i]
	}
	return feed, nil
}

func buildSessionResponse(session *reconciliation.Session, feed []*banking.BankTransaction, candidates []ledger.JournalEntry, bankLedgerAccountID uuid.UUID) *SessionResponse {
	resp := &SessionResponse{
		Session:      ToSessionView(session),
		Summary:      reconciliation.Summarize(session, feed),
		Transactions: make([]appbanking.TransactionResponse, 0, len(feed)),
		Candidates:   make([]CandidateEntry, 0, len(candidates)),
	}
	for _, tx := range feed {
		resp.Transactions = append(resp.Transactions, appbanking.ToTransactionResponse(tx))
	}
	for i := range candidates {
		entry := &candidates[i]
		resp.Candidates = append(resp.Candidates, CandidateEntry{
			ID:          entry.ID,
			EntryDate:   entry.EntryDate,
			Description: entry.Description,
			Amount:      entryMovement(entry, bankLedgerAccountID),
			Source:      string(entry.Source),
		})
	}
	return resp
}

func summaryResponse(session *reconciliation.Session, feed []*banking.BankTransaction) *SummaryResponse {
	return &SummaryResponse{
		Session: ToSessionView(session),
		Summary: reconciliation.Summarize(session, feed),
	}
}

// entryMovement returns the entry's signed effect on the bank's ledger
// account: debits increase the bank asset, credits decrease it.
func entryMovement(entry *ledger.JournalEntry, accountID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, line := range entry.LinesOnAccount(accountID) {
		total = total.Add(line.Debit).Sub(line.Credit)
	}
	return total
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// publishSessionEvents drains the aggregate's pending events after commit
func (s *ReconciliationService) publishSessionEvents(ctx context.Context, session *reconciliation.Session) {
	events := session.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	s.publishEvents(ctx, events...)
	session.ClearDomainEvents()
}

func (s *ReconciliationService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish reconciliation event",
				zap.String("event_type", event.EventType()), zap.Error(err))
		}
	}
}
