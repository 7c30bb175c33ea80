// Package review implements the deterministic review pipelines over
// receipts, invoices, books, and bank activity: audit rules, risk
// scoring, and the run/item records they persist.
package review

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// RunType names the pipeline that produced a run
type RunType string

const (
	RunTypeReceipts RunType = "RECEIPTS"
	RunTypeInvoices RunType = "INVOICES"
	RunTypeBooks    RunType = "BOOKS"
	RunTypeBank     RunType = "BANK"
)

// IsValid checks if the run type is known
func (r RunType) IsValid() bool {
	switch r {
	case RunTypeReceipts, RunTypeInvoices, RunTypeBooks, RunTypeBank:
		return true
	}
	return false
}

// String returns the string representation of RunType
func (r RunType) String() string {
	return string(r)
}

// RunStatus is the pipeline run lifecycle
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// RiskLevel buckets an overall risk score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// OverallRisk derives the run score from severity counts:
// 5 + 20 per high + 10 per medium, capped at 100.
func OverallRisk(highCount, mediumCount int) decimal.Decimal {
	score := 5 + 20*highCount + 10*mediumCount
	if score > 100 {
		score = 100
	}
	return decimal.NewFromInt(int64(score)).Round(2)
}

// RiskLevelFor maps a score onto its band
func RiskLevelFor(score decimal.Decimal) RiskLevel {
	switch {
	case score.GreaterThanOrEqual(decimal.NewFromInt(70)):
		return RiskLevelHigh
	case score.GreaterThanOrEqual(decimal.NewFromInt(40)):
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Metrics is the run's free-form measurement payload, stored as JSONB
type Metrics map[string]any

// Value implements driver.Valuer for JSONB storage
func (m Metrics) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval
func (m *Metrics) Scan(value interface{}) error {
	if value == nil {
		*m = Metrics{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Metrics: unsupported type")
	}
	if len(bytes) == 0 {
		*m = Metrics{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Run is one execution of a review pipeline over a period. Advisor
// fields stay empty when the advisor is unavailable; the deterministic
// outcome stands on its own.
type Run struct {
	shared.TenantAggregateRoot
	RunType          RunType          `json:"run_type"`
	Status           RunStatus        `json:"status"`
	PeriodStart      time.Time        `json:"period_start"`
	PeriodEnd        time.Time        `json:"period_end"`
	Metrics          Metrics          `json:"metrics"`
	TraceID          string           `json:"trace_id"`
	OverallRiskScore *decimal.Decimal `json:"overall_risk_score,omitempty"`
	RiskLevel        *RiskLevel       `json:"risk_level,omitempty"`
	AdvisorSummary   *string          `json:"advisor_summary,omitempty"`
	AdvisorPayload   Metrics          `json:"advisor_payload,omitempty"`
	AdvisorModel     *string          `json:"advisor_model,omitempty"`
	AdvisorAt        *time.Time       `json:"advisor_at,omitempty"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	FailureReason    *string          `json:"failure_reason,omitempty"`
}

// NewRun creates a pending run over an inclusive period
func NewRun(tenantID uuid.UUID, runType RunType, periodStart, periodEnd time.Time) (*Run, error) {
	if !runType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid run type: %s", runType))
	}
	if periodStart.IsZero() || periodEnd.IsZero() {
		return nil, shared.NewValidationError("review period is required")
	}
	if periodStart.After(periodEnd) {
		return nil, shared.NewValidationError("review period start must not be after the end")
	}
	return &Run{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RunType:             runType,
		Status:              RunStatusPending,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		Metrics:             Metrics{},
	}, nil
}

// Start marks the run as running
func (r *Run) Start(traceID string) {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
	r.TraceID = traceID
}

// Complete stores the deterministic outcome and closes the run
func (r *Run) Complete(metrics Metrics, highCount, mediumCount int) {
	now := time.Now()
	score := OverallRisk(highCount, mediumCount)
	level := RiskLevelFor(score)
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.Metrics = metrics
	r.OverallRiskScore = &score
	r.RiskLevel = &level
	r.AddDomainEvent(NewRunCompletedEvent(r))
}

// Fail closes the run with a reason
func (r *Run) Fail(reason string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.CompletedAt = &now
	r.FailureReason = &reason
}

// AttachAdvisor stores the sanitized advisor result after the run
// committed. Never called when the advisor returned nothing.
func (r *Run) AttachAdvisor(summary, model string, payload Metrics) {
	now := time.Now()
	r.AdvisorSummary = &summary
	r.AdvisorModel = &model
	r.AdvisorPayload = payload
	r.AdvisorAt = &now
}
