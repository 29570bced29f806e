package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, q database.Querier, p *models.Payment) error
	InsertAllocation(ctx context.Context, q database.Querier, alloc *models.PaymentInvoice) error
	GetByID(ctx context.Context, q database.Querier, id int64) (*models.Payment, error)
	ListAllocations(ctx context.Context, q database.Querier, paymentID int64) ([]*models.PaymentInvoice, error)
	List(ctx context.Context, q database.Querier, filter models.PaymentFilter, page models.PageRequest) ([]*models.Payment, int, error)
	// Delete removes the payment; its allocations go with it.
	Delete(ctx context.Context, q database.Querier, id int64) error
	// SumPaidByInvoice returns Σ amount_paid over every allocation to the invoice.
	SumPaidByInvoice(ctx context.Context, q database.Querier, invoiceID int64) (decimal.Decimal, error)
}

type paymentRepository struct{}

func NewPaymentRepository() PaymentRepository {
	return &paymentRepository{}
}

const paymentColumns = `p.id, p.payment_no, p.customer_id, p.payment_method, p.payment_date, p.total_paid,
	p.notes, p.created_at, p.updated_at`

func scanPayment(s scanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := s.Scan(
		&p.ID,
		&p.PaymentNo,
		&p.CustomerID,
		&p.PaymentMethod,
		&p.PaymentDate,
		&p.TotalPaid,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, q database.Querier, p *models.Payment) error {
	query := `
		INSERT INTO payments (payment_no, customer_id, payment_method, payment_date, total_paid, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		p.PaymentNo,
		p.CustomerID,
		p.PaymentMethod,
		p.PaymentDate,
		p.TotalPaid,
		p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *paymentRepository) InsertAllocation(ctx context.Context, q database.Querier, alloc *models.PaymentInvoice) error {
	query := `
		INSERT INTO payment_invoices (payment_id, invoice_id, amount_paid)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return q.QueryRowContext(ctx, query, alloc.PaymentID, alloc.InvoiceID, alloc.AmountPaid).Scan(&alloc.ID, &alloc.CreatedAt)
}

func (r *paymentRepository) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1`, id))
	if err != nil {
		return nil, noRows(err)
	}
	return p, nil
}

func (r *paymentRepository) ListAllocations(ctx context.Context, q database.Querier, paymentID int64) ([]*models.PaymentInvoice, error) {
	query := `
		SELECT pi.id, pi.payment_id, pi.invoice_id, i.invoice_no, pi.amount_paid, pi.created_at
		FROM payment_invoices pi
		JOIN invoices i ON i.id = pi.invoice_id
		WHERE pi.payment_id = $1
		ORDER BY pi.id
	`
	rows, err := q.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocs []*models.PaymentInvoice
	for rows.Next() {
		a := &models.PaymentInvoice{}
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.InvoiceNo, &a.AmountPaid, &a.CreatedAt); err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func (r *paymentRepository) List(ctx context.Context, q database.Querier, filter models.PaymentFilter, page models.PageRequest) ([]*models.Payment, int, error) {
	var w database.Where
	if filter.CustomerID != 0 {
		w.Eq("p.customer_id", filter.CustomerID)
	}
	if filter.PaymentMethod != "" {
		w.Eq("p.payment_method", filter.PaymentMethod)
	}

	const from = "FROM payments p"
	total, pageSQL, err := countAndPage(ctx, q, from, &w, page)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx, "SELECT "+paymentColumns+" "+from+w.SQL()+" ORDER BY p.payment_date DESC, p.id DESC"+pageSQL, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *paymentRepository) Delete(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *paymentRepository) SumPaidByInvoice(ctx context.Context, q database.Querier, invoiceID int64) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_paid), 0) FROM payment_invoices WHERE invoice_id = $1`, invoiceID).Scan(&paid)
	return paid, err
}
