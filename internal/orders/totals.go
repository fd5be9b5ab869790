package orders

import "github.com/shopspring/decimal"

// ComputeTotals derives the order totals from its lines. Zero-quantity lines
// are skipped. Positive lines whose label is a cancellation word are skipped
// entirely (legacy label-only cancellations that never produced an audit
// line). Everything else, including negative audit lines, accumulates.
//
// Tax rounds once per unit: perUnitTax = floor(unitPrice * rate), then
// scales by quantity. This matches the per-unit price display on receipts;
// rounding the line total instead would drift from it.
func ComputeTotals(lines []Line, defaultRate decimal.Decimal) Totals {
	var t Totals
	for _, l := range lines {
		if l.Quantity == 0 {
			continue
		}
		if l.Quantity > 0 && IsCancelWord(l.Status) {
			continue
		}
		rate := defaultRate
		if l.TaxRate != nil {
			rate = *l.TaxRate
		}
		perUnitTax := decimal.NewFromInt(l.UnitPrice).Mul(rate).Floor().IntPart()
		t.Subtotal += l.UnitPrice * l.Quantity
		t.TaxAmount += perUnitTax * l.Quantity
	}
	t.Total = t.Subtotal + t.TaxAmount
	return t
}
