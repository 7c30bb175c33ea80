package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// Invoice is the thin receivable-side contract the allocation engine
// consumes. The platform's invoice CRUD lives elsewhere; the engine only
// needs totals, the paid counter, and tenant ownership.
type Invoice struct {
	shared.TenantAggregateRoot
	Number           string          `json:"number"`
	CounterpartyName string          `json:"counterparty_name"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	IssueDate        time.Time       `json:"issue_date"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
}

// Outstanding returns grand total minus amount paid
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.GrandTotal.Sub(i.AmountPaid)
}

// ApplyPayment increases the paid counter, allowing overshoot up to the
// engine's tolerance. Over-tolerance checks happen before this is called.
func (i *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewInvariantError(fmt.Sprintf(
			"negative payment %s against invoice %s", amount.StringFixed(2), i.Number))
	}
	i.AmountPaid = i.AmountPaid.Add(amount)
	return nil
}

// Bill is the payable-side twin of Invoice
type Bill struct {
	shared.TenantAggregateRoot
	Number           string          `json:"number"`
	CounterpartyName string          `json:"counterparty_name"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	IssueDate        time.Time       `json:"issue_date"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
}

// Outstanding returns grand total minus amount paid
func (b *Bill) Outstanding() decimal.Decimal {
	return b.GrandTotal.Sub(b.AmountPaid)
}

// ApplyPayment increases the paid counter
func (b *Bill) ApplyPayment(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewInvariantError(fmt.Sprintf(
			"negative payment %s against bill %s", amount.StringFixed(2), b.Number))
	}
	b.AmountPaid = b.AmountPaid.Add(amount)
	return nil
}

// NewInvoice creates a thin invoice, used by fixtures and the import surface
func NewInvoice(tenantID uuid.UUID, number, counterparty string, grandTotal decimal.Decimal, issueDate time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewValidationError("invoice number is required")
	}
	if grandTotal.IsNegative() {
		return nil, shared.NewValidationError("invoice grand total cannot be negative")
	}
	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CounterpartyName:    counterparty,
		GrandTotal:          grandTotal,
		AmountPaid:          decimal.Zero,
		IssueDate:           issueDate,
	}, nil
}

// NewBill creates a thin bill
func NewBill(tenantID uuid.UUID, number, counterparty string, grandTotal decimal.Decimal, issueDate time.Time) (*Bill, error) {
	if number == "" {
		return nil, shared.NewValidationError("bill number is required")
	}
	if grandTotal.IsNegative() {
		return nil, shared.NewValidationError("bill grand total cannot be negative")
	}
	return &Bill{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CounterpartyName:    counterparty,
		GrandTotal:          grandTotal,
		AmountPaid:          decimal.Zero,
		IssueDate:           issueDate,
	}, nil
}
