package repositories

import (
	"context"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type InvoiceRepository interface {
	Create(ctx context.Context, q database.Querier, inv *models.Invoice) error
	LinkTransactions(ctx context.Context, q database.Querier, invoiceID int64, transactionIDs []int64) error
	GetByID(ctx context.Context, q database.Querier, id int64) (*models.Invoice, error)
	GetByNumber(ctx context.Context, q database.Querier, invoiceNo string) (*models.Invoice, error)
	// LockByIDs locks and returns the invoices among ids that exist.
	LockByIDs(ctx context.Context, q database.Querier, ids []int64) ([]*models.Invoice, error)
	List(ctx context.Context, q database.Querier, filter models.InvoiceFilter, page models.PageRequest) ([]*models.Invoice, int, error)
	ListAll(ctx context.Context, q database.Querier, filter models.InvoiceFilter) ([]*models.Invoice, error)
	ListByTransaction(ctx context.Context, q database.Querier, transactionID int64) ([]*models.Invoice, error)
	ListTransactionIDs(ctx context.Context, q database.Querier, invoiceID int64) ([]int64, error)
	Update(ctx context.Context, q database.Querier, inv *models.Invoice) error
	UpdateStatus(ctx context.Context, q database.Querier, id int64, status models.InvoiceStatus) error
	Delete(ctx context.Context, q database.Querier, id int64) error
	DeleteAll(ctx context.Context, q database.Querier) (int64, error)
}

type invoiceRepository struct{}

func NewInvoiceRepository() InvoiceRepository {
	return &invoiceRepository{}
}

const invoiceColumns = `i.id, i.invoice_no, i.customer_id, i.type, i.percentage, i.subtotal, i.dpp,
	i.tax_amount, i.stamp_duty, i.grand_total, i.status, i.invoice_date, i.due_date, i.notes,
	i.created_at, i.updated_at`

func scanInvoice(s scanner) (*models.Invoice, error) {
	inv := &models.Invoice{}
	err := s.Scan(
		&inv.ID,
		&inv.InvoiceNo,
		&inv.CustomerID,
		&inv.Type,
		&inv.Percentage,
		&inv.Subtotal,
		&inv.DPP,
		&inv.TaxAmount,
		&inv.StampDuty,
		&inv.GrandTotal,
		&inv.Status,
		&inv.InvoiceDate,
		&inv.DueDate,
		&inv.Notes,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) Create(ctx context.Context, q database.Querier, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			invoice_no, customer_id, type, percentage, subtotal, dpp, tax_amount,
			stamp_duty, grand_total, status, invoice_date, due_date, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		inv.InvoiceNo,
		inv.CustomerID,
		inv.Type,
		inv.Percentage,
		inv.Subtotal,
		inv.DPP,
		inv.TaxAmount,
		inv.StampDuty,
		inv.GrandTotal,
		inv.Status,
		inv.InvoiceDate,
		inv.DueDate,
		inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

func (r *invoiceRepository) LinkTransactions(ctx context.Context, q database.Querier, invoiceID int64, transactionIDs []int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO invoice_transactions (invoice_id, transaction_id)
		SELECT $1, unnest($2::bigint[])
	`, invoiceID, transactionIDs)
	return err
}

func (r *invoiceRepository) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id))
	if err != nil {
		return nil, noRows(err)
	}
	return inv, nil
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, q database.Querier, invoiceNo string) (*models.Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.invoice_no = $1`, invoiceNo))
	if err != nil {
		return nil, noRows(err)
	}
	return inv, nil
}

func (r *invoiceRepository) LockByIDs(ctx context.Context, q database.Querier, ids []int64) ([]*models.Invoice, error) {
	return r.query(ctx, q, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = ANY($1) ORDER BY i.id FOR UPDATE`, ids)
}

func invoiceWhere(filter models.InvoiceFilter) *database.Where {
	w := &database.Where{}
	if filter.CustomerID != 0 {
		w.Eq("i.customer_id", filter.CustomerID)
	}
	if filter.Status != "" {
		w.Eq("i.status", filter.Status)
	}
	if filter.Type != "" {
		w.Eq("i.type", filter.Type)
	}
	if filter.InvoiceNo != "" {
		w.Contains("i.invoice_no", filter.InvoiceNo)
	}
	return w
}

const invoiceOrder = " ORDER BY i.invoice_date DESC, i.id DESC"

func (r *invoiceRepository) List(ctx context.Context, q database.Querier, filter models.InvoiceFilter, page models.PageRequest) ([]*models.Invoice, int, error) {
	w := invoiceWhere(filter)

	const from = "FROM invoices i"
	total, pageSQL, err := countAndPage(ctx, q, from, w, page)
	if err != nil {
		return nil, 0, err
	}

	invoices, err := r.query(ctx, q, "SELECT "+invoiceColumns+" "+from+w.SQL()+invoiceOrder+pageSQL, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *invoiceRepository) ListAll(ctx context.Context, q database.Querier, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	w := invoiceWhere(filter)
	return r.query(ctx, q, "SELECT "+invoiceColumns+" FROM invoices i"+w.SQL()+invoiceOrder, w.Args()...)
}

func (r *invoiceRepository) ListByTransaction(ctx context.Context, q database.Querier, transactionID int64) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN invoice_transactions it ON it.invoice_id = i.id
		WHERE it.transaction_id = $1
		ORDER BY i.invoice_date, i.id
	`
	return r.query(ctx, q, query, transactionID)
}

func (r *invoiceRepository) query(ctx context.Context, q database.Querier, query string, args ...any) ([]*models.Invoice, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepository) ListTransactionIDs(ctx context.Context, q database.Querier, invoiceID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT transaction_id FROM invoice_transactions WHERE invoice_id = $1 ORDER BY transaction_id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *invoiceRepository) Update(ctx context.Context, q database.Querier, inv *models.Invoice) error {
	query := `
		UPDATE invoices
		SET due_date = $1,
			notes = $2,
			stamp_duty = $3,
			grand_total = $4,
			updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`
	err := q.QueryRowContext(ctx, query,
		inv.DueDate,
		inv.Notes,
		inv.StampDuty,
		inv.GrandTotal,
		inv.ID,
	).Scan(&inv.UpdatedAt)
	return noRows(err)
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, q database.Querier, id int64, status models.InvoiceStatus) error {
	result, err := q.ExecContext(ctx, `UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *invoiceRepository) Delete(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *invoiceRepository) DeleteAll(ctx context.Context, q database.Querier) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM invoices`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
