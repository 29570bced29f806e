package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places every money field is
// rendered with.
const AmountPlaces = 2

// Amount renders a decimal as a quoted string with exactly two places,
// e.g. "250.00".
type Amount decimal.Decimal

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + decimal.Decimal(a).StringFixed(AmountPlaces) + `"`), nil
}

func amountPtr(d *decimal.Decimal) *Amount {
	if d == nil {
		return nil
	}
	a := Amount(*d)
	return &a
}

// The types below shadow their decimal fields with Amount through a
// method-less copy of the struct, keeping every other field and tag as is.

type productJSON Product

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		productJSON
		Price Amount `json:"price"`
	}{productJSON(p), Amount(p.Price)})
}

type transactionJSON Transaction

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		transactionJSON
		Subtotal   Amount `json:"subtotal"`
		TaxAmount  Amount `json:"taxAmount"`
		StampDuty  Amount `json:"stampDuty"`
		GrandTotal Amount `json:"grandTotal"`
	}{transactionJSON(t), Amount(t.Subtotal), Amount(t.TaxAmount), Amount(t.StampDuty), Amount(t.GrandTotal)})
}

type transactionItemJSON TransactionItem

func (i TransactionItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		transactionItemJSON
		Price Amount `json:"price"`
	}{transactionItemJSON(i), Amount(i.Price)})
}

type invoiceSummaryJSON TransactionInvoiceSummary

func (s TransactionInvoiceSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		invoiceSummaryJSON
		GrandTotal      Amount `json:"grandTotal"`
		InvoicedAmount  Amount `json:"invoicedAmount"`
		RemainingAmount Amount `json:"remainingAmount"`
	}{invoiceSummaryJSON(s), Amount(s.GrandTotal), Amount(s.InvoicedAmount), Amount(s.RemainingAmount)})
}

type invoiceJSON Invoice

type invoiceView struct {
	invoiceJSON
	Percentage Amount `json:"percentage"`
	Subtotal   Amount `json:"subtotal"`
	DPP        Amount `json:"dpp"`
	TaxAmount  Amount `json:"taxAmount"`
	StampDuty  Amount `json:"stampDuty"`
	GrandTotal Amount `json:"grandTotal"`
}

func (inv Invoice) view() invoiceView {
	return invoiceView{
		invoiceJSON: invoiceJSON(inv),
		Percentage:  Amount(inv.Percentage),
		Subtotal:    Amount(inv.Subtotal),
		DPP:         Amount(inv.DPP),
		TaxAmount:   Amount(inv.TaxAmount),
		StampDuty:   Amount(inv.StampDuty),
		GrandTotal:  Amount(inv.GrandTotal),
	}
}

func (inv Invoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(inv.view())
}

func (d InvoiceDetail) MarshalJSON() ([]byte, error) {
	var base invoiceView
	if d.Invoice != nil {
		base = d.Invoice.view()
	}
	return json.Marshal(struct {
		invoiceView
		TotalPaid   Amount `json:"totalPaid"`
		Outstanding Amount `json:"outstanding"`
	}{base, Amount(d.TotalPaid), Amount(d.Outstanding)})
}

type paymentJSON Payment

func (p Payment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		paymentJSON
		TotalPaid Amount `json:"totalPaid"`
	}{paymentJSON(p), Amount(p.TotalPaid)})
}

type paymentInvoiceJSON PaymentInvoice

func (pi PaymentInvoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		paymentInvoiceJSON
		AmountPaid Amount `json:"amountPaid"`
	}{paymentInvoiceJSON(pi), Amount(pi.AmountPaid)})
}

type allocationOutcomeJSON AllocationOutcome

func (o AllocationOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		allocationOutcomeJSON
		AmountPaid Amount  `json:"amountPaid"`
		PaidToDate *Amount `json:"paidToDate,omitempty"`
	}{allocationOutcomeJSON(o), Amount(o.AmountPaid), amountPtr(o.PaidToDate)})
}
