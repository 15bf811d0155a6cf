package billing

import "math"

// The ledger arithmetic lives here as pure functions so every mutation path
// derives totals the same way.
//
// Per line: gross = quantity * unit_price, discounted by discount_pct, then
// taxed at tax_pct. Bill totals aggregate the lines; the net amount rounds
// to the nearest rupee and round_off carries the remainder so the stored
// figures always reconcile.

// ComputeLine fills the derived fields of a line item from its inputs.
func ComputeLine(li *LineItem) {
	gross := li.Quantity * li.UnitPrice
	base := gross * (1 - li.DiscountPct/100)
	li.TaxAmount = base * li.TaxPct / 100
	li.LineTotal = base + li.TaxAmount
}

// RecomputeTotals rebuilds every derived figure on the bill from its line
// items, advance deposit and paid amount. Status is re-derived afterwards.
func RecomputeTotals(b *Bill) {
	var subTotal, totalDiscount, totalTax float64
	for i := range b.Items {
		ComputeLine(&b.Items[i])
		gross := b.Items[i].Quantity * b.Items[i].UnitPrice
		subTotal += gross
		totalDiscount += gross * b.Items[i].DiscountPct / 100
		totalTax += b.Items[i].TaxAmount
	}
	b.SubTotal = subTotal
	b.TotalDiscount = totalDiscount
	b.TotalTax = totalTax
	b.TotalAmount = subTotal - totalDiscount + totalTax

	payable := b.TotalAmount - b.AdvanceDeposit
	b.NetAmount = math.Round(payable)
	b.RoundOff = b.NetAmount - payable
	b.BalanceDue = b.NetAmount - b.PaidAmount
	b.Status = DeriveStatus(b.Status, b.PaidAmount, b.NetAmount)
}

// DeriveStatus returns the payment status implied by paid vs net. Terminal
// statuses and unissued drafts are left alone; a bill never leaves paid
// except through refund or cancellation.
func DeriveStatus(current string, paid, net float64) string {
	switch current {
	case StatusDraft, StatusCancelled, StatusRefunded, StatusWrittenOff:
		return current
	}
	switch {
	case net <= 0 || paid >= net:
		return StatusPaid
	case paid > 0:
		return StatusPartiallyPaid
	default:
		if current == StatusOverdue {
			return StatusOverdue
		}
		return StatusGenerated
	}
}
