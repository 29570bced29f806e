package repositories

import (
	"context"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, q database.Querier, p *models.Product) error
	GetByID(ctx context.Context, q database.Querier, id int64) (*models.Product, error)
	// ExistingIDs returns the subset of ids that name live products.
	ExistingIDs(ctx context.Context, q database.Querier, ids []int64) (map[int64]bool, error)
	List(ctx context.Context, q database.Querier, filter models.ProductFilter, page models.PageRequest) ([]*models.Product, int, error)
	Update(ctx context.Context, q database.Querier, p *models.Product) error
	SoftDelete(ctx context.Context, q database.Querier, id int64) error
	// ExistingCodes returns which of codes are already taken by live rows.
	ExistingCodes(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error)
}

type productRepository struct{}

func NewProductRepository() ProductRepository {
	return &productRepository{}
}

const productColumns = `p.id, p.code, p.name, p.kind, p.unit, p.price, p.description, p.created_at, p.updated_at`

func scanProduct(s scanner) (*models.Product, error) {
	p := &models.Product{}
	err := s.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Kind,
		&p.Unit,
		&p.Price,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) Create(ctx context.Context, q database.Querier, p *models.Product) error {
	query := `
		INSERT INTO products (code, name, kind, unit, price, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		p.Code,
		p.Name,
		p.Kind,
		p.Unit,
		p.Price,
		p.Description,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 AND p.deleted_at IS NULL`
	p, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, noRows(err)
	}
	return p, nil
}

func (r *productRepository) ExistingIDs(ctx context.Context, q database.Querier, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := q.QueryContext(ctx, `SELECT id FROM products WHERE id = ANY($1) AND deleted_at IS NULL`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

func (r *productRepository) List(ctx context.Context, q database.Querier, filter models.ProductFilter, page models.PageRequest) ([]*models.Product, int, error) {
	var w database.Where
	w.Raw("p.deleted_at IS NULL")
	if filter.Name != "" {
		w.Contains("p.name", filter.Name)
	}
	if filter.Code != "" {
		w.Eq("p.code", filter.Code)
	}
	if filter.Kind != "" {
		w.Eq("p.kind", filter.Kind)
	}

	const from = "FROM products p"
	total, pageSQL, err := countAndPage(ctx, q, from, &w, page)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx, "SELECT "+productColumns+" "+from+w.SQL()+" ORDER BY p.name, p.id"+pageSQL, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, q database.Querier, p *models.Product) error {
	query := `
		UPDATE products
		SET code = $1,
			name = $2,
			kind = $3,
			unit = $4,
			price = $5,
			description = $6,
			updated_at = now()
		WHERE id = $7 AND deleted_at IS NULL
		RETURNING created_at, updated_at
	`
	err := q.QueryRowContext(ctx, query,
		p.Code,
		p.Name,
		p.Kind,
		p.Unit,
		p.Price,
		p.Description,
		p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return noRows(err)
}

func (r *productRepository) SoftDelete(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *productRepository) ExistingCodes(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error) {
	return existingCodes(ctx, q, "products", codes)
}
