package companion

import (
	"time"

	"github.com/shopspring/decimal"
)

// Radar axes
const (
	AxisCashReconciliation = "cash_reconciliation"
	AxisRevenueInvoices    = "revenue_invoices"
	AxisExpensesReceipts   = "expenses_receipts"
	AxisTaxCompliance      = "tax_compliance"
)

// surfaceAxis maps issue surfaces onto radar axes
var surfaceAxis = map[Surface]string{
	SurfaceBank:     AxisCashReconciliation,
	SurfaceInvoices: AxisRevenueInvoices,
	SurfaceReceipts: AxisExpensesReceipts,
	SurfaceBooks:    AxisTaxCompliance,
}

// AxisForSurface returns the radar axis of a surface
func AxisForSurface(s Surface) string {
	return surfaceAxis[s]
}

// RadarWindowDays is how far back open issues weigh on the radar
const RadarWindowDays = 30

// AxisScore is one radar axis with its health score
type AxisScore struct {
	Axis  string          `json:"axis"`
	Score decimal.Decimal `json:"score"`
}

// Radar is the four-axis health picture, axes in a fixed order
type Radar []AxisScore

// severityPenalty is the base deduction per open issue
func severityPenalty(s IssueSeverity) int64 {
	switch s {
	case IssueSeverityHigh:
		return 15
	case IssueSeverityMedium:
		return 8
	default:
		return 3
	}
}

// ComputeRadar scores each axis from 100 down. Every open issue created
// in the window deducts its severity penalty plus 2 per full week of
// age; scores floor at 0.
func ComputeRadar(issues []Issue, now time.Time) Radar {
	scores := map[string]int64{
		AxisCashReconciliation: 100,
		AxisRevenueInvoices:    100,
		AxisExpensesReceipts:   100,
		AxisTaxCompliance:      100,
	}

	cutoff := now.AddDate(0, 0, -RadarWindowDays)
	for _, issue := range issues {
		if !issue.IsOpen() || issue.CreatedAt.Before(cutoff) {
			continue
		}
		axis, ok := surfaceAxis[issue.Surface]
		if !ok {
			continue
		}
		ageDays := int64(now.Sub(issue.CreatedAt).Hours() / 24)
		if ageDays < 0 {
			ageDays = 0
		}
		scores[axis] -= severityPenalty(issue.Severity) + 2*(ageDays/7)
	}

	radar := make(Radar, 0, 4)
	for _, axis := range []string{AxisCashReconciliation, AxisRevenueInvoices, AxisExpensesReceipts, AxisTaxCompliance} {
		score := scores[axis]
		if score < 0 {
			score = 0
		}
		radar = append(radar, AxisScore{Axis: axis, Score: decimal.NewFromInt(score)})
	}
	return radar
}
