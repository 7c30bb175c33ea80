package companion

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPlaybookSteps caps the playbook length
const DefaultPlaybookSteps = 4

// coverageGapThreshold triggers the coverage step
var coverageGapThreshold = decimal.NewFromInt(80)

// PlaybookStep is one prioritized action
type PlaybookStep struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Surface     Surface    `json:"surface"`
	URL         string     `json:"url"`
	IssueID     *uuid.UUID `json:"issue_id,omitempty"`
}

// surfaceURL is where the UI sends the user for each surface
var surfaceURL = map[Surface]string{
	SurfaceBank:     "/banking/reconciliation",
	SurfaceInvoices: "/invoices/review",
	SurfaceReceipts: "/receipts/review",
	SurfaceBooks:    "/books/review",
}

// coverageSurface maps coverage domains back onto surfaces
var coverageSurface = map[string]Surface{
	CoverageReceipts: SurfaceReceipts,
	CoverageInvoices: SurfaceInvoices,
	CoverageBanking:  SurfaceBank,
	CoverageBooks:    SurfaceBooks,
}

// BuildPlaybook picks the top open issues by severity and recency, and
// reserves the last slot for a coverage-gap step when the weakest
// domain sits under the threshold.
func BuildPlaybook(issues []Issue, coverages []Coverage, maxSteps int) []PlaybookStep {
	if maxSteps <= 0 {
		maxSteps = DefaultPlaybookSteps
	}

	open := make([]Issue, 0, len(issues))
	for _, i := range issues {
		if i.IsOpen() {
			open = append(open, i)
		}
	}
	sort.SliceStable(open, func(a, b int) bool {
		if open[a].Severity.rank() != open[b].Severity.rank() {
			return open[a].Severity.rank() < open[b].Severity.rank()
		}
		return open[a].CreatedAt.After(open[b].CreatedAt)
	})

	var gap *Coverage
	if lowest := LowestCoverage(coverages); lowest != nil && lowest.Percent.LessThan(coverageGapThreshold) {
		gap = lowest
	}

	budget := maxSteps
	if gap != nil {
		budget--
	}

	steps := make([]PlaybookStep, 0, maxSteps)
	for i := range open {
		if len(steps) >= budget {
			break
		}
		issue := open[i]
		id := issue.ID
		steps = append(steps, PlaybookStep{
			Title:       issue.Title,
			Description: issue.RecommendedAction,
			Surface:     issue.Surface,
			URL:         surfaceURL[issue.Surface],
			IssueID:     &id,
		})
	}

	if gap != nil {
		surface := coverageSurface[gap.Domain]
		steps = append(steps, PlaybookStep{
			Title: fmt.Sprintf("Catch up on %s", gap.Domain),
			Description: fmt.Sprintf(
				"Only %s%% of %s is fully processed. Work through the backlog to close the gap.",
				gap.Percent.String(), gap.Domain),
			Surface: surface,
			URL:     surfaceURL[surface],
		})
	}
	return steps
}
