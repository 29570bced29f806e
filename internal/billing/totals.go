// Package billing holds the money arithmetic shared by transactions,
// invoices and payments. Amounts are rounded to two places.
package billing

import (
	"github.com/shopspring/decimal"
)

const MoneyPlaces = 2

var (
	hundred    = decimal.NewFromInt(100)
	dppNumer   = decimal.NewFromInt(11)
	dppDenom   = decimal.NewFromInt(12)
	ppnRate    = decimal.NewFromInt(12)
	stampLimit = decimal.NewFromInt(5_000_000)
	stampFee   = decimal.NewFromInt(10_000)
)

// Line is one quantity/price pair of a transaction.
type Line struct {
	Qty   int
	Price decimal.Decimal
}

type Totals struct {
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	StampDuty  decimal.Decimal
	GrandTotal decimal.Decimal
}

func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Subtotal returns Σ qty × price.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return Money(sum)
}

// TransactionTotals derives subtotal and grand total from the lines.
func TransactionTotals(lines []Line, taxAmount, stampDuty decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	taxAmount = Money(taxAmount)
	stampDuty = Money(stampDuty)
	return Totals{
		Subtotal:   subtotal,
		TaxAmount:  taxAmount,
		StampDuty:  stampDuty,
		GrandTotal: subtotal.Add(taxAmount).Add(stampDuty),
	}
}

type InvoiceTotals struct {
	Percentage decimal.Decimal
	Subtotal   decimal.Decimal
	DPP        decimal.Decimal
	TaxAmount  decimal.Decimal
	StampDuty  decimal.Decimal
	GrandTotal decimal.Decimal
}

// InvoiceTotalsFor sums the billed transactions and applies percentage to
// subtotal and tax. Stamp duty is a flat fee and is carried unscaled.
func InvoiceTotalsFor(sources []Totals, percentage decimal.Decimal) InvoiceTotals {
	percentage = percentage.Round(MoneyPlaces)
	subtotal, tax, stamp := decimal.Zero, decimal.Zero, decimal.Zero
	for _, s := range sources {
		subtotal = subtotal.Add(s.Subtotal)
		tax = tax.Add(s.TaxAmount)
		stamp = stamp.Add(s.StampDuty)
	}

	if !percentage.Equal(hundred) {
		subtotal = Money(subtotal.Mul(percentage).Div(hundred))
		tax = Money(tax.Mul(percentage).Div(hundred))
	}

	return InvoiceTotals{
		Percentage: percentage,
		Subtotal:   subtotal,
		DPP:        DPP(subtotal),
		TaxAmount:  tax,
		StampDuty:  stamp,
		GrandTotal: subtotal.Add(tax).Add(stamp),
	}
}

// DPP is the VAT base: 11/12 of the subtotal.
func DPP(subtotal decimal.Decimal) decimal.Decimal {
	return Money(subtotal.Mul(dppNumer).Div(dppDenom))
}

// PPN is VAT at 12% of the DPP.
func PPN(dpp decimal.Decimal) decimal.Decimal {
	return Money(dpp.Mul(ppnRate).Div(hundred))
}

// StampDutyFor returns the stamp fee due on a document of the given amount.
func StampDutyFor(amount decimal.Decimal) decimal.Decimal {
	if amount.GreaterThan(stampLimit) {
		return stampFee
	}
	return decimal.Zero
}

// PercentageOf returns round(part / whole × 100), or 0 when whole is zero.
func PercentageOf(part, whole decimal.Decimal) int64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(0).IntPart()
}
