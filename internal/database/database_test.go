package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuildsNumberedPredicates(t *testing.T) {
	var w Where
	w.Raw("c.deleted_at IS NULL").Eq("c.city", "Bandung").Contains("c.name", "50%_off")
	limit := w.Arg(20)

	assert.Equal(t, " WHERE c.deleted_at IS NULL AND c.city = $1 AND c.name ILIKE '%' || $2 || '%'", w.SQL())
	assert.Equal(t, "$3", limit)
	assert.Equal(t, []any{"Bandung", `50\%\_off`, 20}, w.Args())
}

func TestWhereEmpty(t *testing.T) {
	var w Where
	assert.Equal(t, "", w.SQL())
	assert.Empty(t, w.Args())
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "invoices_invoice_no_key"})
	fk := &pgconn.PgError{Code: "23503"}
	serialization := &pgconn.PgError{Code: "40001"}

	assert.True(t, IsUniqueViolation(unique))
	assert.Equal(t, "invoices_invoice_no_key", ConstraintName(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsRetryable(serialization))
	assert.False(t, IsRetryable(unique))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestWithinTxCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE invoices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	runner := NewTransaction(db, 3)
	err = runner.WithinTx(context.Background(), func(q Querier) error {
		_, err := q.ExecContext(context.Background(), "UPDATE invoices SET status = 'PAID'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRetriesSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	runner := NewTransaction(db, 3)
	runner.backoff = 0

	calls := 0
	err = runner.WithinTx(context.Background(), func(q Querier) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxDoesNotRetryOtherErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	calls := 0
	err = NewTransaction(db, 3).WithinTx(context.Background(), func(q Querier) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxGivesUpWithoutFinalBackoff(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	runner := NewTransaction(db, 1)
	runner.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err = runner.WithinTx(ctx, func(q Querier) error {
		return &pgconn.PgError{Code: "40001"}
	})
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, IsRetryable(err), "got %v", err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxReturnsConflictAfterLastAttempt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	runner := NewTransaction(db, 3)
	runner.backoff = 0

	calls := 0
	err = runner.WithinTx(context.Background(), func(q Querier) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	assert.True(t, IsRetryable(err), "got %v", err)
	assert.Equal(t, 3, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
