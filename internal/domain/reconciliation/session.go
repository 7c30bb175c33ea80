// Package reconciliation holds the statement reconciliation session, its
// match rows, and the cleared-balance arithmetic behind the completion
// gate.
package reconciliation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// SessionStatus is the reconciliation session lifecycle
type SessionStatus string

const (
	SessionStatusDraft      SessionStatus = "DRAFT"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusDraft, SessionStatusInProgress, SessionStatusCompleted:
		return true
	}
	return false
}

func (s SessionStatus) String() string {
	return string(s)
}

// CompletionTolerance is the largest absolute difference between the
// statement closing balance and opening + cleared sum that still counts
// as reconciled.
var CompletionTolerance = decimal.NewFromFloat(0.01)

// Session reconciles one bank account against one statement period.
// A COMPLETED session is immutable until a privileged reopen.
type Session struct {
	shared.TenantAggregateRoot
	BankAccountID  uuid.UUID        `json:"bank_account_id"`
	StatementStart time.Time        `json:"statement_start_date"`
	StatementEnd   time.Time        `json:"statement_end_date"`
	OpeningBalance *decimal.Decimal `json:"opening_balance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closing_balance,omitempty"`
	Status         SessionStatus    `json:"status"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CompletedBy    *uuid.UUID       `json:"completed_by,omitempty"`
}

// NewSession opens a DRAFT session over an inclusive statement period
func NewSession(tenantID, bankAccountID uuid.UUID, start, end time.Time) (*Session, error) {
	if bankAccountID == uuid.Nil {
		return nil, shared.NewValidationError("bank account is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, shared.NewValidationError("statement period is required")
	}
	start = truncateToDay(start)
	end = truncateToDay(end)
	if start.After(end) {
		return nil, shared.NewValidationError("statement start date must not be after the end date")
	}
	return &Session{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccountID:       bankAccountID,
		StatementStart:      start,
		StatementEnd:        end,
		Status:              SessionStatusDraft,
	}, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EnsureMutable rejects mutation of a completed session. Every mutating
// path checks this first so callers always see the same code.
func (s *Session) EnsureMutable() error {
	if s.Status == SessionStatusCompleted {
		return shared.NewStateError(shared.CodeSessionCompleted,
			"reconciliation session is completed and can no longer be modified")
	}
	return nil
}

// Begin moves a draft session to IN_PROGRESS on its first mutation
func (s *Session) Begin() {
	if s.Status == SessionStatusDraft {
		s.Status = SessionStatusInProgress
	}
}

// ContainsDate reports whether a date falls inside the statement period,
// boundaries included.
func (s *Session) ContainsDate(t time.Time) bool {
	d := truncateToDay(t)
	return !d.Before(s.StatementStart) && !d.After(s.StatementEnd)
}

// SeedOpeningBalance fills the opening balance when unset. Used on session
// creation and as a backfill for sessions stored before the balance was
// captured.
func (s *Session) SeedOpeningBalance(balance decimal.Decimal) {
	if s.OpeningBalance == nil {
		s.OpeningBalance = &balance
	}
}

// SeedClosingBalance fills the closing balance when unset
func (s *Session) SeedClosingBalance(balance decimal.Decimal) {
	if s.ClosingBalance == nil {
		s.ClosingBalance = &balance
	}
}

// SetClosingBalance overrides the statement closing balance
func (s *Session) SetClosingBalance(balance decimal.Decimal) error {
	if err := s.EnsureMutable(); err != nil {
		return err
	}
	s.Begin()
	s.ClosingBalance = &balance
	return nil
}

// SetOpeningBalance overrides the statement opening balance
func (s *Session) SetOpeningBalance(balance decimal.Decimal) error {
	if err := s.EnsureMutable(); err != nil {
		return err
	}
	s.Begin()
	s.OpeningBalance = &balance
	return nil
}

// OpeningOrZero returns the opening balance, zero when unset
func (s *Session) OpeningOrZero() decimal.Decimal {
	if s.OpeningBalance == nil {
		return decimal.Zero
	}
	return *s.OpeningBalance
}

// ClosingOrZero returns the closing balance, zero when unset
func (s *Session) ClosingOrZero() decimal.Decimal {
	if s.ClosingBalance == nil {
		return decimal.Zero
	}
	return *s.ClosingBalance
}

// Difference returns closing − (opening + clearedSum)
func (s *Session) Difference(clearedSum decimal.Decimal) decimal.Decimal {
	return s.ClosingOrZero().Sub(s.OpeningOrZero().Add(clearedSum))
}

// Complete closes the session. The difference must be within tolerance
// and every non-excluded session transaction must already be reconciled.
func (s *Session) Complete(clearedSum decimal.Decimal, unreconciledCount int, completedBy uuid.UUID) error {
	if err := s.EnsureMutable(); err != nil {
		return err
	}
	if diff := s.Difference(clearedSum); diff.Abs().GreaterThan(CompletionTolerance) {
		return shared.NewStateError(shared.CodeDifferenceNotZero, fmt.Sprintf(
			"statement difference of %s must be zero before completing", diff.StringFixed(2)))
	}
	if unreconciledCount > 0 {
		return shared.NewStateError(shared.CodeUnreconciledRemaining, fmt.Sprintf(
			"%d transactions are still unreconciled", unreconciledCount))
	}
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.CompletedAt = &now
	if completedBy != uuid.Nil {
		s.CompletedBy = &completedBy
	}
	s.AddDomainEvent(NewSessionCompletedEvent(s))
	return nil
}

// Reopen reverses completion. Role enforcement happens at the service
// boundary; the aggregate only guards the state.
func (s *Session) Reopen() error {
	if s.Status != SessionStatusCompleted {
		return shared.NewStateError(shared.CodeSessionNotCompleted,
			"only a completed reconciliation session can be reopened")
	}
	s.Status = SessionStatusInProgress
	s.CompletedAt = nil
	s.CompletedBy = nil
	s.AddDomainEvent(NewSessionReopenedEvent(s))
	return nil
}
