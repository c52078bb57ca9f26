package shared

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineAmounts are the derived figures of one invoice line.
type LineAmounts struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CalculateLineTotals derives line amounts rounded to cents. Tax applies to
// the discounted amount, so Subtotal - Discount + Tax == Total always holds.
func CalculateLineTotals(quantity, unitPrice, discountPercent, taxPercent decimal.Decimal) LineAmounts {
	gross := quantity.Mul(unitPrice).Round(2)
	discount := gross.Mul(discountPercent).Div(hundred).Round(2)
	net := gross.Sub(discount)
	tax := net.Mul(taxPercent).Div(hundred).Round(2)
	return LineAmounts{
		Subtotal: gross,
		Discount: discount,
		Tax:      tax,
		Total:    net.Add(tax),
	}
}

// Sum adds line amounts together.
func Sum(lines []LineAmounts) LineAmounts {
	var out LineAmounts
	for _, l := range lines {
		out.Subtotal = out.Subtotal.Add(l.Subtotal)
		out.Discount = out.Discount.Add(l.Discount)
		out.Tax = out.Tax.Add(l.Tax)
		out.Total = out.Total.Add(l.Total)
	}
	return out
}
