package billing

import (
	"github.com/shopspring/decimal"

	"crm-backoffice/internal/models"
)

// InvoiceStatusFor derives an invoice status from its cumulative payments.
func InvoiceStatusFor(paid, grandTotal decimal.Decimal) models.InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(grandTotal):
		return models.InvoicePaid
	case paid.IsPositive():
		return models.InvoicePartiallyPaid
	default:
		return models.InvoiceUnpaid
	}
}

func Outstanding(grandTotal, paid decimal.Decimal) decimal.Decimal {
	return grandTotal.Sub(paid)
}

// OutstandingResult builds the tagged outstanding answer for an invoice.
func OutstandingResult(inv *models.Invoice, paid decimal.Decimal) *models.OutstandingResult {
	result := &models.OutstandingResult{
		InvoiceNo:  inv.InvoiceNo,
		InvoiceID:  inv.ID,
		GrandTotal: inv.GrandTotal.StringFixed(MoneyPlaces),
		TotalPaid:  paid.StringFixed(MoneyPlaces),
	}

	outstanding := Outstanding(inv.GrandTotal, paid)
	if !outstanding.IsPositive() {
		result.Status = models.OutstandingFullyPaid
		return result
	}
	result.Status = models.OutstandingOpen
	result.Outstanding = outstanding.StringFixed(MoneyPlaces)
	return result
}

const (
	ReasonInvoiceNotFound = "invoice not found"
	ReasonOtherCustomer   = "invoice belongs to another customer"
)

// AllocationPlan splits requested allocations into the ones that can be
// applied and the ones that must be skipped, keeping request order.
type AllocationPlan struct {
	Applied  []models.PaymentAllocationInput
	Outcomes []models.AllocationOutcome
}

func PlanAllocations(customerID int64, requested []models.PaymentAllocationInput, invoices map[int64]*models.Invoice) AllocationPlan {
	var plan AllocationPlan
	for _, alloc := range requested {
		outcome := models.AllocationOutcome{
			InvoiceID:  alloc.InvoiceID,
			AmountPaid: alloc.AmountPaid,
			Outcome:    models.AllocationApplied,
		}

		inv, ok := invoices[alloc.InvoiceID]
		switch {
		case !ok:
			outcome.Outcome = models.AllocationSkipped
			outcome.Reason = ReasonInvoiceNotFound
		case inv.CustomerID != customerID:
			outcome.Outcome = models.AllocationSkipped
			outcome.Reason = ReasonOtherCustomer
		default:
			plan.Applied = append(plan.Applied, alloc)
		}
		plan.Outcomes = append(plan.Outcomes, outcome)
	}
	return plan
}

// SumAllocations returns Σ amountPaid.
func SumAllocations(allocs []models.PaymentAllocationInput) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.AmountPaid)
	}
	return sum
}
