package repositories

import (
	"context"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, q database.Querier, t *models.Transaction) error
	GetByID(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error)
	// GetForUpdate reads a transaction and holds its row lock.
	GetForUpdate(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error)
	// LockByIDs locks and returns the transactions among ids that exist.
	LockByIDs(ctx context.Context, q database.Querier, ids []int64) ([]*models.Transaction, error)
	List(ctx context.Context, q database.Querier, filter models.TransactionFilter, page models.PageRequest) ([]*models.Transaction, int, error)
	// Update writes header fields and totals in a single statement.
	Update(ctx context.Context, q database.Querier, t *models.Transaction) error
	UpdateStatus(ctx context.Context, q database.Querier, ids []int64, status models.TransactionStatus) error
	Delete(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error)
	IsInvoiced(ctx context.Context, q database.Querier, id int64) (bool, error)

	ListItems(ctx context.Context, q database.Querier, transactionID int64) ([]*models.TransactionItem, error)
	InsertItem(ctx context.Context, q database.Querier, item *models.TransactionItem) error
	UpdateItem(ctx context.Context, q database.Querier, item *models.TransactionItem) error
	DeleteItems(ctx context.Context, q database.Querier, transactionID int64, itemIDs []int64) error
	DeleteAllItems(ctx context.Context, q database.Querier, transactionID int64) error
}

type transactionRepository struct{}

func NewTransactionRepository() TransactionRepository {
	return &transactionRepository{}
}

const transactionColumns = `t.id, t.marketing_id, t.customer_id, t.transaction_date, t.subtotal, t.tax_amount,
	t.stamp_duty, t.grand_total, t.status, t.notes, t.created_at, t.updated_at`

func scanTransaction(s scanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := s.Scan(
		&t.ID,
		&t.MarketingID,
		&t.CustomerID,
		&t.TransactionDate,
		&t.Subtotal,
		&t.TaxAmount,
		&t.StampDuty,
		&t.GrandTotal,
		&t.Status,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transactionRepository) Create(ctx context.Context, q database.Querier, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			marketing_id, customer_id, transaction_date, subtotal, tax_amount,
			stamp_duty, grand_total, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		t.MarketingID,
		t.CustomerID,
		t.TransactionDate,
		t.Subtotal,
		t.TaxAmount,
		t.StampDuty,
		t.GrandTotal,
		t.Status,
		t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *transactionRepository) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, id))
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

func (r *transactionRepository) GetForUpdate(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

func (r *transactionRepository) LockByIDs(ctx context.Context, q database.Querier, ids []int64) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = ANY($1) ORDER BY t.id FOR UPDATE`
	return r.query(ctx, q, query, ids)
}

func (r *transactionRepository) List(ctx context.Context, q database.Querier, filter models.TransactionFilter, page models.PageRequest) ([]*models.Transaction, int, error) {
	var w database.Where
	if filter.CustomerID != 0 {
		w.Eq("t.customer_id", filter.CustomerID)
	}
	if filter.MarketingID != 0 {
		w.Eq("t.marketing_id", filter.MarketingID)
	}
	if filter.Status != "" {
		w.Eq("t.status", filter.Status)
	}
	if filter.DateFrom != nil {
		w.Gte("t.transaction_date", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		w.Lte("t.transaction_date", *filter.DateTo)
	}

	const from = "FROM transactions t"
	total, pageSQL, err := countAndPage(ctx, q, from, &w, page)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT " + transactionColumns + " " + from + w.SQL() + " ORDER BY t.transaction_date DESC, t.id DESC" + pageSQL
	transactions, err := r.query(ctx, q, query, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *transactionRepository) query(ctx context.Context, q database.Querier, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *transactionRepository) Update(ctx context.Context, q database.Querier, t *models.Transaction) error {
	query := `
		UPDATE transactions
		SET marketing_id = $1,
			customer_id = $2,
			subtotal = $3,
			tax_amount = $4,
			stamp_duty = $5,
			grand_total = $6,
			notes = $7,
			updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`
	err := q.QueryRowContext(ctx, query,
		t.MarketingID,
		t.CustomerID,
		t.Subtotal,
		t.TaxAmount,
		t.StampDuty,
		t.GrandTotal,
		t.Notes,
		t.ID,
	).Scan(&t.UpdatedAt)
	return noRows(err)
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, q database.Querier, ids []int64, status models.TransactionStatus) error {
	_, err := q.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = now() WHERE id = ANY($2)`, status, ids)
	return err
}

func (r *transactionRepository) Delete(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `DELETE FROM transactions t WHERE t.id = $1 RETURNING `+transactionColumns, id))
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

func (r *transactionRepository) IsInvoiced(ctx context.Context, q database.Querier, id int64) (bool, error) {
	var invoiced bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoice_transactions WHERE transaction_id = $1)`, id).Scan(&invoiced)
	return invoiced, err
}

func (r *transactionRepository) ListItems(ctx context.Context, q database.Querier, transactionID int64) ([]*models.TransactionItem, error) {
	query := `
		SELECT id, transaction_id, product_id, qty, price, created_at, updated_at
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.TransactionItem
	for rows.Next() {
		item := &models.TransactionItem{}
		err := rows.Scan(
			&item.ID,
			&item.TransactionID,
			&item.ProductID,
			&item.Qty,
			&item.Price,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *transactionRepository) InsertItem(ctx context.Context, q database.Querier, item *models.TransactionItem) error {
	query := `
		INSERT INTO transaction_items (transaction_id, product_id, qty, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		item.TransactionID,
		item.ProductID,
		item.Qty,
		item.Price,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *transactionRepository) UpdateItem(ctx context.Context, q database.Querier, item *models.TransactionItem) error {
	query := `
		UPDATE transaction_items
		SET product_id = $1, qty = $2, price = $3, updated_at = now()
		WHERE id = $4 AND transaction_id = $5
		RETURNING created_at, updated_at
	`
	err := q.QueryRowContext(ctx, query,
		item.ProductID,
		item.Qty,
		item.Price,
		item.ID,
		item.TransactionID,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	return noRows(err)
}

func (r *transactionRepository) DeleteItems(ctx context.Context, q database.Querier, transactionID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx,
		`DELETE FROM transaction_items WHERE transaction_id = $1 AND id = ANY($2)`, transactionID, itemIDs)
	return err
}

func (r *transactionRepository) DeleteAllItems(ctx context.Context, q database.Querier, transactionID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, transactionID)
	return err
}
