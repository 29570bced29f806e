package repositories

import (
	"context"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

type MarketingRepository interface {
	Create(ctx context.Context, q database.Querier, m *models.Marketing) error
	GetByID(ctx context.Context, q database.Querier, id int64) (*models.Marketing, error)
	List(ctx context.Context, q database.Querier, filter models.MarketingFilter, page models.PageRequest) ([]*models.Marketing, int, error)
	Update(ctx context.Context, q database.Querier, m *models.Marketing) error
	SoftDelete(ctx context.Context, q database.Querier, id int64) error
}

type marketingRepository struct{}

func NewMarketingRepository() MarketingRepository {
	return &marketingRepository{}
}

const marketingColumns = `m.id, m.name, m.email, m.phone, m.created_at, m.updated_at`

func scanMarketing(s scanner) (*models.Marketing, error) {
	m := &models.Marketing{}
	if err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *marketingRepository) Create(ctx context.Context, q database.Querier, m *models.Marketing) error {
	query := `
		INSERT INTO marketings (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query, m.Name, m.Email, m.Phone).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *marketingRepository) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Marketing, error) {
	query := `SELECT ` + marketingColumns + ` FROM marketings m WHERE m.id = $1 AND m.deleted_at IS NULL`
	m, err := scanMarketing(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, noRows(err)
	}
	return m, nil
}

func (r *marketingRepository) List(ctx context.Context, q database.Querier, filter models.MarketingFilter, page models.PageRequest) ([]*models.Marketing, int, error) {
	var w database.Where
	w.Raw("m.deleted_at IS NULL")
	if filter.Name != "" {
		w.Contains("m.name", filter.Name)
	}

	const from = "FROM marketings m"
	total, pageSQL, err := countAndPage(ctx, q, from, &w, page)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx, "SELECT "+marketingColumns+" "+from+w.SQL()+" ORDER BY m.name, m.id"+pageSQL, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var marketings []*models.Marketing
	for rows.Next() {
		m, err := scanMarketing(rows)
		if err != nil {
			return nil, 0, err
		}
		marketings = append(marketings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return marketings, total, nil
}

func (r *marketingRepository) Update(ctx context.Context, q database.Querier, m *models.Marketing) error {
	query := `
		UPDATE marketings
		SET name = $1, email = $2, phone = $3, updated_at = now()
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING created_at, updated_at
	`
	return noRows(q.QueryRowContext(ctx, query, m.Name, m.Email, m.Phone, m.ID).Scan(&m.CreatedAt, &m.UpdatedAt))
}

func (r *marketingRepository) SoftDelete(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE marketings SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
