package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// TaxTreatment controls how a tax rate is applied to an allocation amount
type TaxTreatment string

const (
	// TaxTreatmentNone applies no tax: net = gross = base.
	TaxTreatmentNone TaxTreatment = "NONE"
	// TaxTreatmentIncluded treats the base as tax-inclusive: gross = base.
	TaxTreatmentIncluded TaxTreatment = "INCLUDED"
	// TaxTreatmentOnTop treats the base as net: gross = base + tax.
	TaxTreatmentOnTop TaxTreatment = "ON_TOP"
)

// IsValid checks if the treatment is known
func (t TaxTreatment) IsValid() bool {
	switch t {
	case TaxTreatmentNone, TaxTreatmentIncluded, TaxTreatmentOnTop:
		return true
	}
	return false
}

// String returns the string representation of TaxTreatment
func (t TaxTreatment) String() string {
	return string(t)
}

// TaxSide restricts which side of the ledger a rate may be applied to
type TaxSide string

const (
	TaxSideSales     TaxSide = "SALES"
	TaxSidePurchases TaxSide = "PURCHASES"
	TaxSideBoth      TaxSide = "BOTH"
)

// IsValid checks if the tax side is known
func (s TaxSide) IsValid() bool {
	return s == TaxSideSales || s == TaxSidePurchases || s == TaxSideBoth
}

// AllowsSales returns true when the rate may tax income-side lines
func (s TaxSide) AllowsSales() bool {
	return s == TaxSideSales || s == TaxSideBoth
}

// AllowsPurchases returns true when the rate may tax expense-side lines
func (s TaxSide) AllowsPurchases() bool {
	return s == TaxSidePurchases || s == TaxSideBoth
}

// TaxRate is a tenant-configured percentage rate with an applicability side
type TaxRate struct {
	shared.TenantAggregateRoot
	Name        string          `json:"name"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	AppliesTo   TaxSide         `json:"applies_to"`
	Active      bool            `json:"active"`
}

// NewTaxRate creates a tax rate after validating the percentage and side
func NewTaxRate(tenantID uuid.UUID, name string, ratePercent decimal.Decimal, appliesTo TaxSide) (*TaxRate, error) {
	if name == "" {
		return nil, shared.NewValidationError("tax rate name is required")
	}
	if ratePercent.IsNegative() {
		return nil, shared.NewValidationError("tax rate percent cannot be negative")
	}
	if !appliesTo.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid tax side: %s", appliesTo))
	}
	return &TaxRate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		RatePercent:         ratePercent,
		AppliesTo:           appliesTo,
		Active:              true,
	}, nil
}

// EnsureUsableFor validates the rate is active and applicable to the given
// side. Income allocations are the sales side, expense allocations the
// purchases side.
func (r *TaxRate) EnsureUsableFor(side TaxSide) error {
	if !r.Active {
		return shared.NewValidationError(fmt.Sprintf("tax rate %q is inactive", r.Name))
	}
	switch side {
	case TaxSideSales:
		if !r.AppliesTo.AllowsSales() {
			return shared.NewValidationError(fmt.Sprintf("tax rate %q does not apply to sales", r.Name))
		}
	case TaxSidePurchases:
		if !r.AppliesTo.AllowsPurchases() {
			return shared.NewValidationError(fmt.Sprintf("tax rate %q does not apply to purchases", r.Name))
		}
	}
	return nil
}

// TaxBreakdown is the result of splitting an amount by a treatment
type TaxBreakdown struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Gross decimal.Decimal `json:"gross"`
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTax splits base into (net, tax, gross) under the given treatment,
// half-up rounded to 2 dp. The identity net + tax == gross holds exactly
// after rounding: the net absorbs the cent delta.
func ComputeTax(base decimal.Decimal, treatment TaxTreatment, ratePercent decimal.Decimal) (TaxBreakdown, error) {
	if !treatment.IsValid() {
		return TaxBreakdown{}, shared.NewValidationError(fmt.Sprintf("invalid tax treatment: %s", treatment))
	}
	if base.IsNegative() {
		return TaxBreakdown{}, shared.NewValidationError("tax base cannot be negative")
	}
	if ratePercent.IsNegative() {
		return TaxBreakdown{}, shared.NewValidationError("tax rate percent cannot be negative")
	}

	base = base.Round(2)

	if treatment == TaxTreatmentNone || ratePercent.IsZero() {
		return TaxBreakdown{Net: base, Tax: decimal.Zero.Round(2), Gross: base}, nil
	}

	rate := ratePercent.Div(oneHundred)

	var net, tax, gross decimal.Decimal
	switch treatment {
	case TaxTreatmentOnTop:
		net = base
		tax = base.Mul(rate).Round(2)
		gross = net.Add(tax)
	case TaxTreatmentIncluded:
		gross = base
		net = base.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
		tax = gross.Sub(net)
	}

	// The identity can only drift through rounding; fold any residual cent
	// into the net so the three parts always reconcile.
	if delta := gross.Sub(net.Add(tax)); !delta.IsZero() {
		net = net.Add(delta)
	}

	return TaxBreakdown{Net: net, Tax: tax, Gross: gross}, nil
}
