package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// resolvedAllocation pairs one request row with the rows loaded for it.
// Exactly one of invoice/bill/account is set, depending on the kind.
type resolvedAllocation struct {
	input   AllocationInput
	invoice *ledger.Invoice
	bill    *ledger.Bill
	account *ledger.Account
	taxRate *ledger.TaxRate
}

// planLine is one journal line before it is appended to the entry
type planLine struct {
	accountID   uuid.UUID
	debit       decimal.Decimal
	credit      decimal.Decimal
	description string
}

func debitLine(accountID uuid.UUID, amount decimal.Decimal, description string) planLine {
	return planLine{accountID: accountID, debit: amount, description: description}
}

func creditLine(accountID uuid.UUID, amount decimal.Decimal, description string) planLine {
	return planLine{accountID: accountID, credit: amount, description: description}
}

// allocationPlan is the computed posting for one allocation call
type allocationPlan struct {
	// lines in canonical order: bank side, targets, taxes, fees,
	// rounding, overpayment
	lines []planLine
	// grossShares carries the per-row gross amount, aligned with the
	// request rows, for the proportional match split
	grossShares []decimal.Decimal
	// totalGross is the sum of grossShares
	totalGross decimal.Decimal
	// bankPortion is the absolute cash movement being cleared
	bankPortion decimal.Decimal
	// rounding is the effective signed rounding after the fold
	rounding decimal.Decimal
}

// buildAllocationPlan computes the journal lines for an allocation against
// the loaded transaction. Polarity is already validated and every
// referenced row loaded; this stage owns tax expansion, the account-type
// safety substitution, the expected-amount check and the canonical line
// order.
func buildAllocationPlan(
	tx *banking.BankTransaction,
	bankLedgerAccountID uuid.UUID,
	resolved []resolvedAllocation,
	req AllocateRequest,
	defaults *ledger.DefaultAccounts,
) (*allocationPlan, error) {
	deposit := tx.IsDeposit()
	if !deposit && req.Overpayment.IsPositive() {
		return nil, shared.NewValidationError("overpayment is only valid for deposits")
	}

	var targetLines, taxLines []planLine
	grossShares := make([]decimal.Decimal, 0, len(resolved))
	totalGross := decimal.Zero

	for i, alloc := range resolved {
		gross := alloc.input.Amount
		switch alloc.input.Kind {
		case AllocationKindInvoice:
			targetLines = append(targetLines, creditLine(defaults.Receivable.ID, gross,
				lineDescription(alloc.input, "Payment for invoice "+alloc.invoice.Number)))

		case AllocationKindCreditNote:
			targetLines = append(targetLines, creditLine(alloc.account.ID, gross,
				lineDescription(alloc.input, "Credit note applied")))

		case AllocationKindBill:
			targetLines = append(targetLines, debitLine(defaults.Payable.ID, gross,
				lineDescription(alloc.input, "Payment for bill "+alloc.bill.Number)))

		case AllocationKindDirectIncome:
			account := alloc.account
			if account.Type != ledger.AccountTypeIncome {
				// Upstream categories are user-editable; never post
				// income to another axis.
				account = defaults.FallbackIncome
			}
			net := alloc.input.Amount
			if breakdown, ok, err := expandTax(alloc, ledger.TaxSideSales); err != nil {
				return nil, err
			} else if ok {
				net = breakdown.Net
				gross = breakdown.Gross
				taxLines = append(taxLines, creditLine(defaults.SalesTaxPayable.ID, breakdown.Tax,
					"Sales tax ("+alloc.taxRate.Name+")"))
			}
			targetLines = append(targetLines, creditLine(account.ID, net,
				lineDescription(alloc.input, "Direct income")))

		case AllocationKindDirectExpense:
			account := alloc.account
			if account.Type != ledger.AccountTypeExpense {
				account = defaults.FallbackExpense
			}
			net := alloc.input.Amount
			if breakdown, ok, err := expandTax(alloc, ledger.TaxSidePurchases); err != nil {
				return nil, err
			} else if ok {
				net = breakdown.Net
				gross = breakdown.Gross
				taxLines = append(taxLines, debitLine(defaults.TaxRecoverable.ID, breakdown.Tax,
					"Recoverable tax ("+alloc.taxRate.Name+")"))
			}
			targetLines = append(targetLines, debitLine(account.ID, net,
				lineDescription(alloc.input, "Direct expense")))

		default:
			return nil, shared.NewValidationError(fmt.Sprintf(
				"allocation %d has unknown kind %s", i+1, alloc.input.Kind))
		}
		grossShares = append(grossShares, gross)
		totalGross = totalGross.Add(gross)
	}

	// Expected bank-side amount versus what is left to allocate. A delta
	// within tolerance is folded into the rounding line; anything larger
	// means the caller's numbers do not add up.
	rounding := req.Rounding
	expected := expectedBankAmount(deposit, totalGross, req.Fees, rounding, req.Overpayment)
	remaining := tx.RemainingUnallocated()
	diff := remaining.Sub(expected)
	if diff.Abs().GreaterThan(req.Tolerance()) {
		return nil, shared.NewValidationError("Allocations do not reconcile with the bank amount.")
	}
	if !diff.IsZero() {
		if deposit {
			rounding = rounding.Sub(diff)
		} else {
			rounding = rounding.Add(diff)
		}
	}

	lines := make([]planLine, 0, len(targetLines)+len(taxLines)+4)
	if deposit {
		lines = append(lines, debitLine(bankLedgerAccountID, remaining, "Bank deposit: "+tx.Description))
	} else {
		lines = append(lines, creditLine(bankLedgerAccountID, remaining, "Bank withdrawal: "+tx.Description))
	}
	lines = append(lines, targetLines...)
	lines = append(lines, taxLines...)

	if req.Fees.IsPositive() {
		feesAccount := defaults.FallbackExpense.ID
		if req.FeesAccountID != nil {
			feesAccount = *req.FeesAccountID
		}
		lines = append(lines, debitLine(feesAccount, req.Fees, "Bank fees"))
	}

	if !rounding.IsZero() {
		lines = append(lines, roundingLine(rounding, req.RoundingAccountID, defaults))
	}

	if req.Overpayment.IsPositive() {
		lines = append(lines, creditLine(defaults.Receivable.ID, req.Overpayment, "Overpayment received"))
	}

	return &allocationPlan{
		lines:       lines,
		grossShares: grossShares,
		totalGross:  totalGross,
		bankPortion: remaining,
		rounding:    rounding,
	}, nil
}

// expandTax computes the (net, tax, gross) split for a direct allocation
// carrying tax fields. ok is false when the row has no tax to apply.
func expandTax(alloc resolvedAllocation, side ledger.TaxSide) (ledger.TaxBreakdown, bool, error) {
	if alloc.taxRate == nil || alloc.input.TaxTreatment == nil ||
		*alloc.input.TaxTreatment == ledger.TaxTreatmentNone {
		return ledger.TaxBreakdown{}, false, nil
	}
	if err := alloc.taxRate.EnsureUsableFor(side); err != nil {
		return ledger.TaxBreakdown{}, false, err
	}
	breakdown, err := ledger.ComputeTax(alloc.input.Amount, *alloc.input.TaxTreatment, alloc.taxRate.RatePercent)
	if err != nil {
		return ledger.TaxBreakdown{}, false, err
	}
	if breakdown.Tax.IsZero() {
		return ledger.TaxBreakdown{}, false, nil
	}
	return breakdown, true, nil
}

// expectedBankAmount is the absolute cash movement the allocation implies
func expectedBankAmount(deposit bool, totalGross, fees, rounding, overpayment decimal.Decimal) decimal.Decimal {
	if deposit {
		return totalGross.Add(overpayment).Sub(fees).Sub(rounding)
	}
	return totalGross.Add(fees).Add(rounding)
}

// roundingLine places the signed rounding on the correct side. A positive
// value is expense-side; a negative one credits income. The caller's
// rounding account, when supplied, is used for either direction.
func roundingLine(rounding decimal.Decimal, accountID *uuid.UUID, defaults *ledger.DefaultAccounts) planLine {
	if rounding.IsPositive() {
		account := defaults.FallbackExpense.ID
		if accountID != nil {
			account = *accountID
		}
		return debitLine(account, rounding, "Rounding difference")
	}
	account := defaults.FallbackIncome.ID
	if accountID != nil {
		account = *accountID
	}
	return creditLine(account, rounding.Neg(), "Rounding difference")
}

// lineDescription prefers the caller's text for a line
func lineDescription(input AllocationInput, fallback string) string {
	if input.Description != "" {
		return input.Description
	}
	return fallback
}

// matchRowAmounts returns the complete set of match row amounts for the
// allocation: one per target with its proportional share of fees and
// rounding folded in, plus one row for any overpayment. The final target
// row absorbs residual cents, so the rows always sum to the bank portion.
// Non-positive rows cannot exist and are folded away.
func matchRowAmounts(deposit bool, grossShares []decimal.Decimal, totalGross, fees, rounding, overpayment, bankPortion decimal.Decimal) []decimal.Decimal {
	if len(grossShares) == 0 || !bankPortion.IsPositive() {
		return nil
	}
	targetTotal := bankPortion.Sub(overpayment)
	if !targetTotal.IsPositive() {
		return []decimal.Decimal{bankPortion}
	}
	adjustment := fees.Add(rounding)

	amounts := make([]decimal.Decimal, 0, len(grossShares)+1)
	sum := decimal.Zero
	for _, gross := range grossShares {
		share := decimal.Zero
		if totalGross.IsPositive() {
			share = adjustment.Mul(gross).Div(totalGross).Round(2)
		}
		net := gross.Add(share)
		if deposit {
			net = gross.Sub(share)
		}
		if net.IsPositive() {
			amounts = append(amounts, net)
			sum = sum.Add(net)
		}
	}
	if len(amounts) == 0 {
		amounts = append(amounts, targetTotal)
	} else {
		last := len(amounts) - 1
		amounts[last] = amounts[last].Add(targetTotal.Sub(sum))
		if !amounts[last].IsPositive() {
			amounts = []decimal.Decimal{targetTotal}
		}
	}
	if overpayment.IsPositive() {
		amounts = append(amounts, overpayment)
	}
	return amounts
}
