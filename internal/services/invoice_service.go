package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"crm-backoffice/internal/billing"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/importer"
	"crm-backoffice/internal/logger"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

const invoicePrefix = "INV"

var fullPercentage = decimal.NewFromInt(100)

type InvoiceService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
	now   Clock
}

func NewInvoiceService(tx database.TxRunner, repos *repositories.Repositories, now Clock) *InvoiceService {
	return &InvoiceService{
		tx:    tx,
		repos: repos,
		now:   now,
	}
}

// GenerateInvoiceNumber draws the next INV-YYYY-NNN from the counter. It must
// run inside the transaction that inserts the invoice.
func (s *InvoiceService) GenerateInvoiceNumber(ctx context.Context, q database.Querier) (string, error) {
	year := s.now().Year()
	seq, err := s.repos.Counters.Next(ctx, q, invoicePrefix, year)
	if err != nil {
		return "", fmt.Errorf("failed to draw invoice number: %w", err)
	}
	return documentNumber(invoicePrefix, year, seq), nil
}

// CreateInvoice bills PENDING transactions of one customer and marks them
// INVOICED.
func (s *InvoiceService) CreateInvoice(ctx context.Context, input models.CreateInvoiceInput) (*models.Invoice, error) {
	const op = "CreateInvoice"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var created *models.Invoice
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		ids := uniqueIDs(input.TransactionIDs)
		transactions, err := s.repos.Transactions.LockByIDs(ctx, q, ids)
		if err != nil {
			return err
		}
		inv, err := s.draft(transactions, ids, input)
		if err != nil {
			return err
		}

		if inv.InvoiceNo, err = s.GenerateInvoiceNumber(ctx, q); err != nil {
			return err
		}
		if err := s.repos.Invoices.Create(ctx, q, inv); err != nil {
			return uniqueAs(err, ErrDuplicateInvoiceNumber)
		}
		if err := s.repos.Invoices.LinkTransactions(ctx, q, inv.ID, inv.TransactionIDs); err != nil {
			return err
		}
		if err := s.repos.Transactions.UpdateStatus(ctx, q, inv.TransactionIDs, models.TransactionInvoiced); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Ctx(ctx).Info().
		Str("invoice_no", created.InvoiceNo).
		Ints64("transaction_ids", created.TransactionIDs).
		Str("grand_total", created.GrandTotal.String()).
		Msg("Invoice created")
	return created, nil
}

// PreviewInvoice computes the totals CreateInvoice would produce without
// writing anything.
func (s *InvoiceService) PreviewInvoice(ctx context.Context, input models.CreateInvoiceInput) (*models.Invoice, error) {
	const op = "PreviewInvoice"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := s.tx.DB()
	ids := uniqueIDs(input.TransactionIDs)
	transactions := make([]*models.Transaction, 0, len(ids))
	for _, id := range ids {
		t, err := s.repos.Transactions.GetByID(ctx, q, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		transactions = append(transactions, t)
	}

	inv, err := s.draft(transactions, ids, input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// draft checks that every requested transaction was found, is PENDING and
// belongs to one customer, and computes the invoice amounts.
func (s *InvoiceService) draft(transactions []*models.Transaction, requested []int64, input models.CreateInvoiceInput) (*models.Invoice, error) {
	if len(transactions) == 0 {
		return nil, ErrNoValidTransactions
	}
	found := make(map[int64]bool, len(transactions))
	for _, t := range transactions {
		found[t.ID] = true
	}
	for _, id := range requested {
		if !found[id] {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrNoValidTransactions)
		}
	}

	customerID := transactions[0].CustomerID
	sources := make([]billing.Totals, 0, len(transactions))
	ids := make([]int64, 0, len(transactions))
	for _, t := range transactions {
		if t.Status != models.TransactionPending {
			return nil, fmt.Errorf("transaction %d is %s: %w", t.ID, t.Status, ErrNoValidTransactions)
		}
		if t.CustomerID != customerID {
			return nil, ErrMixedCustomers
		}
		sources = append(sources, billing.Totals{
			Subtotal:   t.Subtotal,
			TaxAmount:  t.TaxAmount,
			StampDuty:  t.StampDuty,
			GrandTotal: t.GrandTotal,
		})
		ids = append(ids, t.ID)
	}

	percentage := fullPercentage
	if input.Percentage != nil {
		percentage = *input.Percentage
	}
	totals := billing.InvoiceTotalsFor(sources, percentage)

	return &models.Invoice{
		CustomerID:     customerID,
		Type:           input.Type,
		Percentage:     totals.Percentage,
		Subtotal:       totals.Subtotal,
		DPP:            totals.DPP,
		TaxAmount:      totals.TaxAmount,
		StampDuty:      totals.StampDuty,
		GrandTotal:     totals.GrandTotal,
		Status:         models.InvoiceUnpaid,
		InvoiceDate:    dateOrNow(input.InvoiceDate, s.now),
		DueDate:        input.DueDate,
		Notes:          input.Notes,
		TransactionIDs: ids,
	}, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*models.InvoiceDetail, error) {
	const op = "GetInvoice"
	q := s.tx.DB()

	inv, err := s.repos.Invoices.GetByID(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, ErrInvoiceNotFound))
	}
	if inv.TransactionIDs, err = s.repos.Invoices.ListTransactionIDs(ctx, q, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paid, err := s.repos.Payments.SumPaidByInvoice(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.InvoiceDetail{
		Invoice:     inv,
		TotalPaid:   paid,
		Outstanding: billing.Outstanding(inv.GrandTotal, paid),
	}, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, filter models.InvoiceFilter, page models.PageRequest) ([]*models.Invoice, *models.Pagination, error) {
	invoices, total, err := s.repos.Invoices.List(ctx, s.tx.DB(), filter, page)
	if err != nil {
		return nil, nil, fmt.Errorf("ListInvoices: %w", err)
	}
	return invoices, models.NewPagination(page, total), nil
}

// GetOutstandingInvoiceByNumber never fails on an unknown number; it answers
// with the not_found tag instead.
func (s *InvoiceService) GetOutstandingInvoiceByNumber(ctx context.Context, invoiceNo string) (*models.OutstandingResult, error) {
	const op = "GetOutstandingInvoiceByNumber"
	q := s.tx.DB()

	inv, err := s.repos.Invoices.GetByNumber(ctx, q, invoiceNo)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.OutstandingResult{Status: models.OutstandingNotFound, InvoiceNo: invoiceNo}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paid, err := s.repos.Payments.SumPaidByInvoice(ctx, q, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return billing.OutstandingResult(inv, paid), nil
}

// UpdateInvoice edits due date, notes and stamp duty. A stamp duty change
// moves the grand total, so the payment status is derived again.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id int64, input models.UpdateInvoiceInput) (*models.Invoice, error) {
	const op = "UpdateInvoice"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var updated *models.Invoice
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		locked, err := s.repos.Invoices.LockByIDs(ctx, q, []int64{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrInvoiceNotFound
		}
		inv := locked[0]

		if input.DueDate != nil {
			inv.DueDate = input.DueDate
		}
		if input.Notes != nil {
			inv.Notes = *input.Notes
		}
		if input.StampDuty != nil {
			inv.StampDuty = billing.Money(*input.StampDuty)
			inv.GrandTotal = inv.Subtotal.Add(inv.TaxAmount).Add(inv.StampDuty)
		}
		if err := s.repos.Invoices.Update(ctx, q, inv); err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}

		if input.StampDuty != nil {
			paid, err := s.repos.Payments.SumPaidByInvoice(ctx, q, id)
			if err != nil {
				return err
			}
			if status := billing.InvoiceStatusFor(paid, inv.GrandTotal); status != inv.Status {
				if err := s.repos.Invoices.UpdateStatus(ctx, q, id, status); err != nil {
					return err
				}
				inv.Status = status
			}
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *InvoiceService) DeleteInvoice(ctx context.Context, id int64) error {
	err := s.repos.Invoices.Delete(ctx, s.tx.DB(), id)
	if err != nil {
		return fmt.Errorf("DeleteInvoice: %w", deleteInvoiceErr(err))
	}
	return nil
}

// DeleteAllInvoices removes every invoice and reports how many went.
func (s *InvoiceService) DeleteAllInvoices(ctx context.Context) (int64, error) {
	n, err := s.repos.Invoices.DeleteAll(ctx, s.tx.DB())
	if err != nil {
		return 0, fmt.Errorf("DeleteAllInvoices: %w", deleteInvoiceErr(err))
	}
	logger.Ctx(ctx).Warn().Int64("deleted", n).Msg("All invoices deleted")
	return n, nil
}

func deleteInvoiceErr(err error) error {
	if database.IsForeignKeyViolation(err) {
		return ErrInvoiceHasPayments
	}
	return notFound(err, ErrInvoiceNotFound)
}

// ExportInvoices writes the filtered invoice list as an XLSX workbook.
func (s *InvoiceService) ExportInvoices(ctx context.Context, filter models.InvoiceFilter, w io.Writer) error {
	invoices, err := s.repos.Invoices.ListAll(ctx, s.tx.DB(), filter)
	if err != nil {
		return fmt.Errorf("ExportInvoices: %w", err)
	}
	if err := importer.WriteInvoices(w, invoices); err != nil {
		return fmt.Errorf("ExportInvoices: %w", err)
	}
	return nil
}
