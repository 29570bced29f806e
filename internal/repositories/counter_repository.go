package repositories

import (
	"context"

	"crm-backoffice/internal/database"
)

// CounterRepository hands out per-prefix, per-year document sequence values.
type CounterRepository interface {
	Next(ctx context.Context, q database.Querier, prefix string, year int) (int64, error)
}

type counterRepository struct{}

func NewCounterRepository() CounterRepository {
	return &counterRepository{}
}

// Next increments and returns the counter. The upsert holds the counter row
// lock until the surrounding transaction ends, so concurrent callers
// receive distinct values.
func (r *counterRepository) Next(ctx context.Context, q database.Querier, prefix string, year int) (int64, error) {
	query := `
		INSERT INTO document_counters (prefix, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year)
		DO UPDATE SET last_value = document_counters.last_value + 1
		RETURNING last_value
	`
	var next int64
	if err := q.QueryRowContext(ctx, query, prefix, year).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}
