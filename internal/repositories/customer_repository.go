package repositories

import (
	"context"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type CustomerRepository interface {
	Create(ctx context.Context, q database.Querier, c *models.Customer) error
	GetByID(ctx context.Context, q database.Querier, id int64) (*models.Customer, error)
	List(ctx context.Context, q database.Querier, filter models.CustomerFilter, page models.PageRequest) ([]*models.Customer, int, error)
	Update(ctx context.Context, q database.Querier, c *models.Customer) error
	SoftDelete(ctx context.Context, q database.Querier, id int64) error
	// ExistingCodes returns which of codes are already taken by live rows.
	ExistingCodes(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error)
}

type customerRepository struct{}

func NewCustomerRepository() CustomerRepository {
	return &customerRepository{}
}

const customerColumns = `c.id, c.code, c.name, c.email, c.phone, c.address, c.city,
	c.pic_name, c.pic_phone, c.pic_email, c.created_at, c.updated_at`

func scanCustomer(s scanner) (*models.Customer, error) {
	c := &models.Customer{}
	err := s.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.PICName,
		&c.PICPhone,
		&c.PICEmail,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *customerRepository) Create(ctx context.Context, q database.Querier, c *models.Customer) error {
	query := `
		INSERT INTO customers (
			code, name, email, phone, address, city,
			pic_name, pic_phone, pic_email
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		c.Code,
		c.Name,
		c.Email,
		c.Phone,
		c.Address,
		c.City,
		c.PICName,
		c.PICPhone,
		c.PICEmail,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *customerRepository) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers c
		WHERE c.id = $1 AND c.deleted_at IS NULL
	`
	c, err := scanCustomer(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, noRows(err)
	}
	return c, nil
}

func (r *customerRepository) List(ctx context.Context, q database.Querier, filter models.CustomerFilter, page models.PageRequest) ([]*models.Customer, int, error) {
	var w database.Where
	w.Raw("c.deleted_at IS NULL")
	if filter.Name != "" {
		w.Contains("c.name", filter.Name)
	}
	if filter.Code != "" {
		w.Eq("c.code", filter.Code)
	}
	if filter.City != "" {
		w.Contains("c.city", filter.City)
	}

	const from = "FROM customers c"
	total, pageSQL, err := countAndPage(ctx, q, from, &w, page)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx, "SELECT "+customerColumns+" "+from+w.SQL()+" ORDER BY c.name, c.id"+pageSQL, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *customerRepository) Update(ctx context.Context, q database.Querier, c *models.Customer) error {
	query := `
		UPDATE customers
		SET code = $1,
			name = $2,
			email = $3,
			phone = $4,
			address = $5,
			city = $6,
			pic_name = $7,
			pic_phone = $8,
			pic_email = $9,
			updated_at = now()
		WHERE id = $10 AND deleted_at IS NULL
		RETURNING created_at, updated_at
	`
	err := q.QueryRowContext(ctx, query,
		c.Code,
		c.Name,
		c.Email,
		c.Phone,
		c.Address,
		c.City,
		c.PICName,
		c.PICPhone,
		c.PICEmail,
		c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return noRows(err)
}

func (r *customerRepository) SoftDelete(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE customers SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *customerRepository) ExistingCodes(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error) {
	return existingCodes(ctx, q, "customers", codes)
}
