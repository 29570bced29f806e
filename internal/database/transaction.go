package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"crm-backoffice/internal/logger"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeInvalidCatalogName   = "3D000"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a unit of work.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner hands out the shared connection for single-statement reads and
// runs multi-statement work inside a transaction.
type TxRunner interface {
	DB() Querier
	WithinTx(ctx context.Context, fn func(q Querier) error) error
}

type Transaction struct {
	db         *sql.DB
	opts       *sql.TxOptions
	maxRetries int
	backoff    time.Duration
}

// NewTransaction returns a TxRunner that opens SERIALIZABLE transactions and
// replays the whole callback when PostgreSQL aborts it with a serialization
// failure or deadlock. fn must therefore be safe to run more than once.
func NewTransaction(db *sql.DB, maxRetries int) *Transaction {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Transaction{
		db:         db,
		opts:       &sql.TxOptions{Isolation: sql.LevelSerializable},
		maxRetries: maxRetries,
		backoff:    20 * time.Millisecond,
	}
}

func (t *Transaction) DB() Querier {
	return t.db
}

func (t *Transaction) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	var err error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) || attempt == t.maxRetries {
			return err
		}

		logger.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Msg("Retrying transaction after serialization conflict")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * t.backoff):
		}
	}
	return err
}

func (t *Transaction) runOnce(ctx context.Context, fn func(q Querier) error) error {
	tx, err := t.db.BeginTx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// IsRetryable reports whether a transaction failed only because of
// concurrent writers and can be replayed as-is.
func IsRetryable(err error) bool {
	code := pgCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}

// ConstraintName returns the violated constraint, if err carries one.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
