package repositories

import (
	"context"
	"strings"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type CustomerProductRepository interface {
	ListByCustomer(ctx context.Context, q database.Querier, customerID int64) ([]*models.CustomerProduct, error)
	DeleteByCustomer(ctx context.Context, q database.Querier, customerID int64) error
	BulkInsert(ctx context.Context, q database.Querier, rows []*models.CustomerProduct) error
}

type customerProductRepository struct{}

func NewCustomerProductRepository() CustomerProductRepository {
	return &customerProductRepository{}
}

func (r *customerProductRepository) ListByCustomer(ctx context.Context, q database.Querier, customerID int64) ([]*models.CustomerProduct, error) {
	query := `
		SELECT cp.id, cp.customer_id, cp.product_id, p.code, p.name, cp.status, cp.created_at
		FROM customer_products cp
		JOIN products p ON p.id = cp.product_id
		WHERE cp.customer_id = $1
		ORDER BY cp.status, p.name
	`
	rows, err := q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.CustomerProduct
	for rows.Next() {
		cp := &models.CustomerProduct{}
		err := rows.Scan(
			&cp.ID,
			&cp.CustomerID,
			&cp.ProductID,
			&cp.ProductCode,
			&cp.ProductName,
			&cp.Status,
			&cp.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	return result, rows.Err()
}

func (r *customerProductRepository) DeleteByCustomer(ctx context.Context, q database.Querier, customerID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM customer_products WHERE customer_id = $1`, customerID)
	return err
}

// BulkInsert writes all rows with a single multi-row INSERT.
func (r *customerProductRepository) BulkInsert(ctx context.Context, q database.Querier, rows []*models.CustomerProduct) error {
	if len(rows) == 0 {
		return nil
	}

	var w database.Where
	values := make([]string, 0, len(rows))
	for _, cp := range rows {
		values = append(values, "("+w.Arg(cp.CustomerID)+", "+w.Arg(cp.ProductID)+", "+w.Arg(cp.Status)+")")
	}

	query := `INSERT INTO customer_products (customer_id, product_id, status) VALUES ` + strings.Join(values, ", ")
	_, err := q.ExecContext(ctx, query, w.Args()...)
	return err
}
