package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"crm-backoffice/internal/billing"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/logger"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

const paymentPrefix = "PAY"

type PaymentService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
	now   Clock
}

func NewPaymentService(tx database.TxRunner, repos *repositories.Repositories, now Clock) *PaymentService {
	return &PaymentService{
		tx:    tx,
		repos: repos,
		now:   now,
	}
}

// GeneratePaymentNumber draws the next PAY-YYYY-NNN inside the caller's
// transaction.
func (s *PaymentService) GeneratePaymentNumber(ctx context.Context, q database.Querier) (string, error) {
	year := s.now().Year()
	seq, err := s.repos.Counters.Next(ctx, q, paymentPrefix, year)
	if err != nil {
		return "", fmt.Errorf("failed to draw payment number: %w", err)
	}
	return documentNumber(paymentPrefix, year, seq), nil
}

// CreatePayment records a payment, applies its allocations and settles the
// status of every touched invoice from its cumulative payments. Allocations
// to unknown invoices or to another customer's invoices are skipped and
// reported.
func (s *PaymentService) CreatePayment(ctx context.Context, input models.CreatePaymentInput) (*models.PaymentResult, error) {
	const op = "CreatePayment"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]int64, 0, len(input.Allocations))
	for _, alloc := range input.Allocations {
		ids = append(ids, alloc.InvoiceID)
	}
	if len(uniqueIDs(ids)) != len(ids) {
		return nil, fmt.Errorf("%s: %w", op, ErrDuplicateAllocation)
	}
	if billing.SumAllocations(input.Allocations).GreaterThan(input.TotalPaid) {
		return nil, fmt.Errorf("%s: %w", op, ErrAllocationExceedsTotal)
	}

	var result *models.PaymentResult
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		if _, err := s.repos.Customers.GetByID(ctx, q, input.CustomerID); err != nil {
			return notFound(err, ErrCustomerNotFound)
		}

		locked, err := s.repos.Invoices.LockByIDs(ctx, q, ids)
		if err != nil {
			return err
		}
		invoices := make(map[int64]*models.Invoice, len(locked))
		for _, inv := range locked {
			invoices[inv.ID] = inv
		}

		plan := billing.PlanAllocations(input.CustomerID, input.Allocations, invoices)
		if len(plan.Applied) == 0 {
			return ErrNoApplicableAllocation
		}

		payment := &models.Payment{
			CustomerID:    input.CustomerID,
			PaymentMethod: input.PaymentMethod,
			PaymentDate:   dateOrNow(input.PaymentDate, s.now),
			TotalPaid:     billing.Money(input.TotalPaid),
			Notes:         input.Notes,
		}
		if payment.PaymentNo, err = s.GeneratePaymentNumber(ctx, q); err != nil {
			return err
		}
		if err := s.repos.Payments.Create(ctx, q, payment); err != nil {
			return uniqueAs(err, ErrDuplicatePaymentNumber)
		}

		for _, applied := range plan.Applied {
			alloc := &models.PaymentInvoice{
				PaymentID:  payment.ID,
				InvoiceID:  applied.InvoiceID,
				InvoiceNo:  invoices[applied.InvoiceID].InvoiceNo,
				AmountPaid: billing.Money(applied.AmountPaid),
			}
			if err := s.repos.Payments.InsertAllocation(ctx, q, alloc); err != nil {
				return err
			}
			payment.Allocations = append(payment.Allocations, alloc)
		}

		outcomes := plan.Outcomes
		for i := range outcomes {
			if outcomes[i].Outcome != models.AllocationApplied {
				continue
			}
			inv := invoices[outcomes[i].InvoiceID]
			paid, status, err := s.settle(ctx, q, inv)
			if err != nil {
				return err
			}
			outcomes[i].InvoiceStatus = status
			outcomes[i].PaidToDate = &paid
		}

		result = &models.PaymentResult{Payment: payment, Allocations: outcomes}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := logger.Ctx(ctx)
	for _, o := range result.Allocations {
		if o.Outcome == models.AllocationSkipped {
			log.Warn().Int64("invoice_id", o.InvoiceID).Str("reason", o.Reason).Msg("Payment allocation skipped")
		}
	}
	log.Info().Str("payment_no", result.Payment.PaymentNo).Str("total_paid", result.Payment.TotalPaid.String()).Msg("Payment recorded")
	return result, nil
}

// settle derives an invoice's status from every payment applied to it and
// stores it.
func (s *PaymentService) settle(ctx context.Context, q database.Querier, inv *models.Invoice) (decimal.Decimal, models.InvoiceStatus, error) {
	paid, err := s.repos.Payments.SumPaidByInvoice(ctx, q, inv.ID)
	if err != nil {
		return paid, "", err
	}
	status := billing.InvoiceStatusFor(paid, inv.GrandTotal)
	if err := s.repos.Invoices.UpdateStatus(ctx, q, inv.ID, status); err != nil {
		return paid, "", err
	}
	inv.Status = status
	return paid, status, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "GetPayment"
	q := s.tx.DB()

	payment, err := s.repos.Payments.GetByID(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, ErrPaymentNotFound))
	}
	if payment.Allocations, err = s.repos.Payments.ListAllocations(ctx, q, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, filter models.PaymentFilter, page models.PageRequest) ([]*models.Payment, *models.Pagination, error) {
	payments, total, err := s.repos.Payments.List(ctx, s.tx.DB(), filter, page)
	if err != nil {
		return nil, nil, fmt.Errorf("ListPayments: %w", err)
	}
	return payments, models.NewPagination(page, total), nil
}

// DeletePayment removes a payment with its allocations and settles the
// invoices it had paid again, down to UNPAID when nothing remains.
func (s *PaymentService) DeletePayment(ctx context.Context, id int64) error {
	const op = "DeletePayment"

	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		if _, err := s.repos.Payments.GetByID(ctx, q, id); err != nil {
			return notFound(err, ErrPaymentNotFound)
		}
		allocs, err := s.repos.Payments.ListAllocations(ctx, q, id)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(allocs))
		for _, a := range allocs {
			ids = append(ids, a.InvoiceID)
		}
		invoices, err := s.repos.Invoices.LockByIDs(ctx, q, uniqueIDs(ids))
		if err != nil {
			return err
		}

		if err := s.repos.Payments.Delete(ctx, q, id); err != nil {
			return notFound(err, ErrPaymentNotFound)
		}
		for _, inv := range invoices {
			if _, _, err := s.settle(ctx, q, inv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
