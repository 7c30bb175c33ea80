// Package companion derives the guidance layer from review and
// reconciliation outcomes: issues, the four-axis radar, coverage,
// close-readiness, the playbook, and the cached story.
package companion

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// Surface names the bookkeeping area an issue belongs to
type Surface string

const (
	SurfaceBank     Surface = "bank"
	SurfaceInvoices Surface = "invoices"
	SurfaceReceipts Surface = "receipts"
	SurfaceBooks    Surface = "books"
)

// IsValid checks if the surface is known
func (s Surface) IsValid() bool {
	switch s {
	case SurfaceBank, SurfaceInvoices, SurfaceReceipts, SurfaceBooks:
		return true
	}
	return false
}

// IssueSeverity grades an issue
type IssueSeverity string

const (
	IssueSeverityLow    IssueSeverity = "low"
	IssueSeverityMedium IssueSeverity = "medium"
	IssueSeverityHigh   IssueSeverity = "high"
)

// IsValid checks if the severity is known
func (s IssueSeverity) IsValid() bool {
	return s == IssueSeverityLow || s == IssueSeverityMedium || s == IssueSeverityHigh
}

// rank orders severities for display, high first
func (s IssueSeverity) rank() int {
	switch s {
	case IssueSeverityHigh:
		return 0
	case IssueSeverityMedium:
		return 1
	default:
		return 2
	}
}

// IssueStatus is the issue lifecycle
type IssueStatus string

const (
	IssueStatusOpen      IssueStatus = "open"
	IssueStatusSnoozed   IssueStatus = "snoozed"
	IssueStatusResolved  IssueStatus = "resolved"
	IssueStatusDismissed IssueStatus = "dismissed"
)

// IsValid checks if the status is known
func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusSnoozed, IssueStatusResolved, IssueStatusDismissed:
		return true
	}
	return false
}

// IssueData carries surface-specific context as JSONB
type IssueData map[string]any

// Value implements driver.Valuer for JSONB storage
func (d IssueData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval
func (d *IssueData) Scan(value interface{}) error {
	if value == nil {
		*d = IssueData{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan IssueData: unsupported type")
	}
	if len(bytes) == 0 {
		*d = IssueData{}
		return nil
	}
	return json.Unmarshal(bytes, d)
}

// Issue is one actionable observation surfaced to the user
type Issue struct {
	shared.TenantAggregateRoot
	Surface           Surface       `json:"surface"`
	RunType           *string       `json:"run_type,omitempty"`
	RunID             *uuid.UUID    `json:"run_id,omitempty"`
	Severity          IssueSeverity `json:"severity"`
	Status            IssueStatus   `json:"status"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	RecommendedAction string        `json:"recommended_action"`
	EstimatedImpact   string        `json:"estimated_impact"`
	Data              IssueData     `json:"data"`
	TraceID           string        `json:"trace_id"`
}

// NewIssue creates an open issue
func NewIssue(tenantID uuid.UUID, surface Surface, severity IssueSeverity, title string) (*Issue, error) {
	if !surface.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid issue surface: %s", surface))
	}
	if !severity.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid issue severity: %s", severity))
	}
	if strings.TrimSpace(title) == "" {
		return nil, shared.NewValidationError("issue title is required")
	}
	return &Issue{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Surface:             surface,
		Severity:            severity,
		Status:              IssueStatusOpen,
		Title:               title,
		Data:                IssueData{},
	}, nil
}

// LinkRun attaches the producing review run
func (i *Issue) LinkRun(runType string, runID uuid.UUID) {
	i.RunType = &runType
	i.RunID = &runID
}

// UpdateStatus moves the issue through its lifecycle
func (i *Issue) UpdateStatus(status IssueStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid issue status: %s", status))
	}
	i.Status = status
	return nil
}

// IsOpen reports whether the issue still needs attention
func (i *Issue) IsOpen() bool {
	return i.Status == IssueStatusOpen
}

// DeriveSeverity grades an issue from materiality, compliance risk, and
// recurrence.
func DeriveSeverity(amount decimal.Decimal, complianceRisk, recurring bool) IssueSeverity {
	amount = amount.Abs()
	switch {
	case complianceRisk,
		amount.GreaterThanOrEqual(decimal.NewFromInt(1000)),
		recurring && amount.GreaterThanOrEqual(decimal.NewFromInt(500)):
		return IssueSeverityHigh
	case amount.GreaterThanOrEqual(decimal.NewFromInt(250)), recurring:
		return IssueSeverityMedium
	default:
		return IssueSeverityLow
	}
}

var leadingNumeric = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

// ImpactMagnitude parses the leading numeric of an estimated-impact
// string, zero when none is present. "$1,250.50 at risk" reads as
// 1250.50.
func ImpactMagnitude(impact string) decimal.Decimal {
	match := leadingNumeric.FindString(impact)
	if match == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return value
}

// SortForDisplay orders issues by severity, then estimated-impact
// magnitude, then creation time, newest first.
func SortForDisplay(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		ia, ib := issues[a], issues[b]
		if ia.Severity.rank() != ib.Severity.rank() {
			return ia.Severity.rank() < ib.Severity.rank()
		}
		ma, mb := ImpactMagnitude(ia.EstimatedImpact), ImpactMagnitude(ib.EstimatedImpact)
		if !ma.Equal(mb) {
			return ma.GreaterThan(mb)
		}
		return ia.CreatedAt.After(ib.CreatedAt)
	})
}
