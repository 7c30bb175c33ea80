package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appbanking "github.com/ledgerline/backend/internal/application/banking"
	appledger "github.com/ledgerline/backend/internal/application/ledger"
	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/reconciliation"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// criticAmountThreshold is the absolute amount above which a manual
// reconciliation posting is routed through the companion critic.
var criticAmountThreshold = decimal.NewFromInt(5000)

// Match pairs one feed line with one journal entry. Existing matches on
// the line are torn down first, so repeating the call converges on the
// same state.
func (s *ReconciliationService) Match(ctx context.Context, tenantID, userID, sessionID uuid.UUID, req MatchRequest) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "match_transaction")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSessionID, sessionID.String(),
		telemetry.SpanAttrBankTransactionID, req.TransactionID.String(),
		telemetry.SpanAttrJournalEntryID, req.JournalEntryID.String(),
	)

	var (
		session *reconciliation.Session
		feed    []*banking.BankTransaction
		matched *banking.BankTransaction
		entry   *ledger.JournalEntry
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.Sessions().FindByIDForTenant(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if err := session.EnsureMutable(); err != nil {
			return err
		}

		tx, err := repos.BankTransactions().FindByIDForTenantLocked(ctx, tenantID, req.TransactionID)
		if err != nil {
			return err
		}
		if tx.BankAccountID != session.BankAccountID {
			return shared.NewValidationError("bank transaction belongs to a different bank account")
		}
		if tx.Status == banking.TransactionStatusExcluded {
			return shared.NewStateError(shared.CodeTransactionNotOpen,
				"an excluded bank transaction cannot be matched")
		}
		if !session.ContainsDate(tx.TransactionDate) {
			return shared.NewValidationError("bank transaction date falls outside the statement period")
		}

		entry, err = repos.Entries().FindByIDForTenant(ctx, tenantID, req.JournalEntryID)
		if err != nil {
			return err
		}
		if entry.IsVoid {
			return shared.NewValidationError("a void journal entry cannot be matched")
		}
		if !session.ContainsDate(entry.EntryDate) {
			return shared.NewValidationError("journal entry date falls outside the statement period")
		}

		if err := tx.AttachToSession(session.ID); err != nil {
			return err
		}

		account, err := repos.BankAccounts().FindByIDForTenant(ctx, tenantID, tx.BankAccountID)
		if err != nil {
			return err
		}
		bankLedgerAccountID, err := resolveBankLedgerAccount(ctx, repos.Accounts(), tenantID, account)
		if err != nil {
			return err
		}

		if _, err := tearDownMatches(ctx, repos, tenantID, tx, bankLedgerAccountID); err != nil {
			return err
		}
		if err := tx.ResetToNew(); err != nil {
			return err
		}

		match, err := reconciliation.NewMatch(tenantID, tx.ID, entry.ID,
			reconciliation.MatchTypeOneToOne, decimal.NewFromInt(1), tx.AbsoluteAmount())
		if err != nil {
			return err
		}
		match.SetReconciledBy(userID)
		if err := repos.Matches().Save(ctx, match); err != nil {
			return err
		}
		if err := tx.ApplyMatchTotal(tx.AbsoluteAmount(), 1); err != nil {
			return err
		}
		if err := repos.Entries().SetLinesReconciled(ctx, tenantID, entry.ID, bankLedgerAccountID, &session.ID, true); err != nil {
			return err
		}

		session.Begin()
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		if err := repos.BankTransactions().Save(ctx, tx); err != nil {
			return err
		}
		matched = tx
		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, banking.NewTransactionMatchedEvent(matched))
	s.reviewHighRisk(ctx, tenantID, matched, entry, "reconciliation_match", false)

	telemetry.SetOK(span)
	return summaryResponse(session, feed), nil
}

// Unmatch tears down every match on the feed line and returns it to NEW
func (s *ReconciliationService) Unmatch(ctx context.Context, tenantID, sessionID uuid.UUID, req UnmatchRequest) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "unmatch_transaction")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSessionID, sessionID.String(),
		telemetry.SpanAttrBankTransactionID, req.TransactionID.String(),
	)

	var (
		session   *reconciliation.Session
		feed      []*banking.BankTransaction
		unmatched *banking.BankTransaction
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.Sessions().FindByIDForTenant(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if err := session.EnsureMutable(); err != nil {
			return err
		}

		tx, err := repos.BankTransactions().FindByIDForTenantLocked(ctx, tenantID, req.TransactionID)
		if err != nil {
			return err
		}
		if tx.BankAccountID != session.BankAccountID {
			return shared.NewValidationError("bank transaction belongs to a different bank account")
		}
		if tx.Status == banking.TransactionStatusExcluded {
			return shared.NewStateError(shared.CodeTransactionNotOpen,
				"an excluded bank transaction cannot be unmatched")
		}
		if err := tx.AttachToSession(session.ID); err != nil {
			return err
		}

		account, err := repos.BankAccounts().FindByIDForTenant(ctx, tenantID, tx.BankAccountID)
		if err != nil {
			return err
		}
		bankLedgerAccountID, err := resolveBankLedgerAccount(ctx, repos.Accounts(), tenantID, account)
		if err != nil {
			return err
		}

		if _, err := tearDownMatches(ctx, repos, tenantID, tx, bankLedgerAccountID); err != nil {
			return err
		}
		if err := tx.ResetToNew(); err != nil {
			return err
		}

		session.Begin()
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		if err := repos.BankTransactions().Save(ctx, tx); err != nil {
			return err
		}
		unmatched = tx
		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, banking.NewTransactionUnmatchedEvent(unmatched))

	telemetry.SetOK(span)
	return summaryResponse(session, feed), nil
}

// Exclude toggles a feed line out of or back into the reconciliation.
// Excluded lines contribute nothing to the cleared sum but count as
// handled for the completion gate.
func (s *ReconciliationService) Exclude(ctx context.Context, tenantID, sessionID uuid.UUID, req ExcludeRequest) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "exclude_transaction")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSessionID, sessionID.String(),
		telemetry.SpanAttrBankTransactionID, req.TransactionID.String(),
	)

	if req.Excluded == nil {
		err := shared.NewValidationError("excluded flag is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		session *reconciliation.Session
		feed    []*banking.BankTransaction
		toggled *banking.BankTransaction
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.Sessions().FindByIDForTenant(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if err := session.EnsureMutable(); err != nil {
			return err
		}

		tx, err := repos.BankTransactions().FindByIDForTenantLocked(ctx, tenantID, req.TransactionID)
		if err != nil {
			return err
		}
		if tx.BankAccountID != session.BankAccountID {
			return shared.NewValidationError("bank transaction belongs to a different bank account")
		}
		if err := tx.AttachToSession(session.ID); err != nil {
			return err
		}

		if *req.Excluded {
			if err := tx.Exclude(); err != nil {
				return err
			}
		} else {
			if err := tx.Include(); err != nil {
				return err
			}
		}

		session.Begin()
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		if err := repos.BankTransactions().Save(ctx, tx); err != nil {
			return err
		}
		toggled = tx
		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if *req.Excluded {
		s.publishEvents(ctx, banking.NewTransactionExcludedEvent(toggled))
	}

	telemetry.SetOK(span)
	return summaryResponse(session, feed), nil
}

// AddAsNew posts a balanced journal entry for a feed line that has no
// ledger counterpart and matches the line against it in one step. The
// offset side is the line's category account, falling back to the
// on-demand uncategorized account.
func (s *ReconciliationService) AddAsNew(ctx context.Context, tenantID, userID uuid.UUID, req AddAsNewRequest) (*AddAsNewResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "add_as_new")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSessionID, req.SessionID.String(),
		telemetry.SpanAttrBankTransactionID, req.TransactionID.String(),
	)

	var (
		session         *reconciliation.Session
		feed            []*banking.BankTransaction
		posted          *banking.BankTransaction
		entry           *ledger.JournalEntry
		replacedMatches bool
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.Sessions().FindByIDForTenant(ctx, tenantID, req.SessionID)
		if err != nil {
			return err
		}
		if err := session.EnsureMutable(); err != nil {
			return err
		}

		tx, err := repos.BankTransactions().FindByIDForTenantLocked(ctx, tenantID, req.TransactionID)
		if err != nil {
			return err
		}
		if tx.BankAccountID != session.BankAccountID {
			return shared.NewValidationError("bank transaction belongs to a different bank account")
		}
		if tx.IsReconciled {
			return shared.NewStateError(shared.CodeTransactionMatched,
				"bank transaction already has reconciliation matches")
		}
		if tx.Status == banking.TransactionStatusExcluded {
			return shared.NewStateError(shared.CodeTransactionNotOpen,
				"an excluded bank transaction cannot be posted")
		}
		if !session.ContainsDate(tx.TransactionDate) {
			return shared.NewValidationError("bank transaction date falls outside the statement period")
		}
		amount := tx.AbsoluteAmount()
		if amount.IsZero() {
			return shared.NewValidationError("a zero-amount bank transaction cannot be posted")
		}
		if err := tx.AttachToSession(session.ID); err != nil {
			return err
		}

		account, err := repos.BankAccounts().FindByIDForTenant(ctx, tenantID, tx.BankAccountID)
		if err != nil {
			return err
		}
		bankLedgerAccountID, err := resolveBankLedgerAccount(ctx, repos.Accounts(), tenantID, account)
		if err != nil {
			return err
		}

		category, err := resolveCategoryAccount(ctx, repos.Accounts(), tenantID, req.CategoryAccountID, tx)
		if err != nil {
			return err
		}

		description := req.Description
		if description == "" {
			description = tx.Description
		}
		if description == "" {
			description = "Reconciliation adjustment"
		}

		entry, err = ledger.NewJournalEntry(tenantID, tx.TransactionDate, description, ledger.EntrySourceReconciliation)
		if err != nil {
			return err
		}
		if tx.IsDeposit() {
			err = entry.AddDebit(bankLedgerAccountID, amount, description)
			if err == nil {
				err = entry.AddCredit(category.ID, amount, description)
			}
		} else {
			err = entry.AddDebit(category.ID, amount, description)
			if err == nil {
				err = entry.AddCredit(bankLedgerAccountID, amount, description)
			}
		}
		if err != nil {
			return err
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if err := repos.Entries().Save(ctx, entry); err != nil {
			return err
		}

		replaced, err := tearDownMatches(ctx, repos, tenantID, tx, bankLedgerAccountID)
		if err != nil {
			return err
		}
		replacedMatches = replaced > 0
		if err := tx.ResetToNew(); err != nil {
			return err
		}

		match, err := reconciliation.NewMatch(tenantID, tx.ID, entry.ID,
			reconciliation.MatchTypeAdjustment, decimal.NewFromInt(1), amount)
		if err != nil {
			return err
		}
		match.SetReconciledBy(userID)
		match.AttachAdjustment(entry.ID)
		if err := repos.Matches().Save(ctx, match); err != nil {
			return err
		}

		entryID := entry.ID
		tx.PostedJournalEntryID = &entryID
		if req.CategoryAccountID != nil {
			tx.CategoryAccountID = req.CategoryAccountID
		}
		if err := tx.ApplyMatchTotal(amount, 1); err != nil {
			return err
		}
		if err := repos.Entries().SetLinesReconciled(ctx, tenantID, entry.ID, bankLedgerAccountID, &session.ID, true); err != nil {
			return err
		}

		session.Begin()
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		if err := repos.BankTransactions().Save(ctx, tx); err != nil {
			return err
		}
		posted = tx
		feed, err = sessionFeed(ctx, repos.BankTransactions(), tenantID, session.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx,
		ledger.NewJournalEntryPostedEvent(entry),
		banking.NewTransactionMatchedEvent(posted),
	)
	// An adjustment that swept aside existing match rows is routed to the
	// critic regardless of amount.
	s.reviewHighRisk(ctx, tenantID, posted, entry, "reconciliation_adjustment", replacedMatches)

	telemetry.SetAttribute(span, telemetry.SpanAttrJournalEntryID, entry.ID.String())
	telemetry.SetOK(span)
	return &AddAsNewResponse{
		JournalEntry: appledger.ToJournalEntryResponse(entry),
		Transaction:  appbanking.ToTransactionResponse(posted),
		Summary:      reconciliation.Summarize(session, feed),
	}, nil
}

// resolveCategoryAccount picks the offset account for an adjustment entry:
// the explicit request choice, then the line's stored category, then the
// on-demand uncategorized account.
func resolveCategoryAccount(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID, requested *uuid.UUID, tx *banking.BankTransaction) (*ledger.Account, error) {
	switch {
	case requested != nil:
		return accounts.FindByIDForTenant(ctx, tenantID, *requested)
	case tx.CategoryAccountID != nil:
		return accounts.FindByIDForTenant(ctx, tenantID, *tx.CategoryAccountID)
	default:
		return appledger.ResolveUncategorized(ctx, accounts, tenantID)
	}
}

// tearDownMatches removes every match row on the transaction and clears
// the reconciled flags those rows left on their journal lines. It returns
// the number of match rows removed.
func tearDownMatches(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, tx *banking.BankTransaction, bankLedgerAccountID uuid.UUID) (int, error) {
	matches, err := repos.Matches().FindByTransaction(ctx, tenantID, tx.ID)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}
	seen := make(map[uuid.UUID]bool, len(matches))
	for _, match := range matches {
		if seen[match.JournalEntryID] {
			continue
		}
		seen[match.JournalEntryID] = true
		if err := repos.Entries().SetLinesReconciled(ctx, tenantID, match.JournalEntryID, bankLedgerAccountID, nil, false); err != nil {
			return 0, err
		}
	}
	return len(matches), repos.Matches().DeleteByTransaction(ctx, tenantID, tx.ID)
}

// reviewHighRisk routes a manual posting through the companion critic and
// stores the verdict on the feed line. The verdict is advisory only;
// lookup or advisor failures never unwind the posting.
func (s *ReconciliationService) reviewHighRisk(ctx context.Context, tenantID uuid.UUID, tx *banking.BankTransaction, entry *ledger.JournalEntry, source string, isBulk bool) {
	if s.advisor == nil {
		return
	}
	if !isBulk && tx.AbsoluteAmount().LessThanOrEqual(criticAmountThreshold) {
		return
	}
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		s.logger.Warn("critic tenant lookup failed", zap.Error(err))
		return
	}
	if !tenant.CompanionEnabled() {
		return
	}

	debitCode, creditCode := s.criticAccounts(ctx, tenantID, entry)
	result := s.advisor.Critic(ctx, advisor.CriticInput{
		Amount:           tx.Amount,
		Currency:         string(tenant.Currency()),
		DebitAccount:     debitCode,
		CreditAccount:    creditCode,
		Memo:             tx.Description,
		Source:           source,
		IsBulkAdjustment: isBulk,
	})

	fresh, err := s.bankTxRepo.FindByIDForTenant(ctx, tenantID, tx.ID)
	if err != nil {
		s.logger.Warn("critic verdict could not be stored", zap.Error(err))
		return
	}
	if err := fresh.SetCriticVerdict(banking.CriticVerdict(result.Verdict), result.Reasons); err != nil {
		s.logger.Warn("critic verdict rejected", zap.Error(err))
		return
	}
	if err := s.bankTxRepo.Save(ctx, fresh); err != nil {
		s.logger.Warn("critic verdict could not be stored", zap.Error(err))
		return
	}
	s.logger.Info("critic reviewed high-risk posting",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("verdict", result.Verdict),
		zap.Bool("called_llm", result.CalledLLM))
}

// criticAccounts names the dominant debit and credit accounts of an entry
// for the critic prompt. Lookup failures degrade to empty codes.
func (s *ReconciliationService) criticAccounts(ctx context.Context, tenantID uuid.UUID, entry *ledger.JournalEntry) (string, string) {
	var debitID, creditID uuid.UUID
	maxDebit, maxCredit := decimal.Zero, decimal.Zero
	for _, line := range entry.Lines {
		if line.Debit.GreaterThan(maxDebit) {
			maxDebit, debitID = line.Debit, line.AccountID
		}
		if line.Credit.GreaterThan(maxCredit) {
			maxCredit, creditID = line.Credit, line.AccountID
		}
	}
	return s.accountCode(ctx, tenantID, debitID), s.accountCode(ctx, tenantID, creditID)
}

func (s *ReconciliationService) accountCode(ctx context.Context, tenantID, accountID uuid.UUID) string {
	if accountID == uuid.Nil {
		return ""
	}
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return ""
	}
	return account.Code
}
