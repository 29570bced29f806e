package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backoffice/internal/models"
)

// arrayConverter lets []int64 through as-is, the way pgx binds it to an
// int8[] parameter, and defers everything else to database/sql.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if ids, ok := v.([]int64); ok {
		return ids, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestCounterNext(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO document_counters .* ON CONFLICT \(prefix, year\)`).
		WithArgs("INV", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(4))

	next, err := NewCounterRepository().Next(context.Background(), db, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
}

func TestCustomerGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`FROM customers c\s+WHERE c.id = \$1 AND c.deleted_at IS NULL`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewCustomerRepository().GetByID(context.Background(), db, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerListAppliesFilterAndPage(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM customers c WHERE c.deleted_at IS NULL AND c.city ILIKE`).
		WithArgs("Band").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`ORDER BY c.name, c.id LIMIT \$2 OFFSET \$3`).
		WithArgs("Band", 20, 20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "name", "email", "phone", "address", "city",
			"pic_name", "pic_phone", "pic_email", "created_at", "updated_at",
		}).AddRow(21, "C-021", "PT Maju", "", "", "", "Bandung", "", "", "", now, now))

	customers, total, err := NewCustomerRepository().List(context.Background(), db,
		models.CustomerFilter{City: "Band"}, models.PageRequest{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, customers, 1)
	assert.Equal(t, "PT Maju", customers[0].Name)
}

func TestCustomerProductBulkInsert(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO customer_products \(customer_id, product_id, status\) VALUES \(\$1, \$2, \$3\), \(\$4, \$5, \$6\)`).
		WithArgs(int64(1), int64(2), "DEEPENING", int64(1), int64(3), "SUCCESS").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := NewCustomerProductRepository().BulkInsert(context.Background(), db, []*models.CustomerProduct{
		{CustomerID: 1, ProductID: 2, Status: models.CustomerProductDeepening},
		{CustomerID: 1, ProductID: 3, Status: models.CustomerProductSuccess},
	})
	require.NoError(t, err)
}

func TestInvoiceCreateReturnsGeneratedColumns(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO invoices`).
		WithArgs("INV-2026-001", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), nil, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, now, now))

	inv := &models.Invoice{
		InvoiceNo:   "INV-2026-001",
		CustomerID:  1,
		Type:        models.InvoiceFullPayment,
		Percentage:  decimal.NewFromInt(100),
		Status:      models.InvoiceUnpaid,
		InvoiceDate: now,
	}
	require.NoError(t, NewInvoiceRepository().Create(context.Background(), db, inv))
	assert.Equal(t, int64(9), inv.ID)
}

func TestInvoiceDeleteMissing(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM invoices WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewInvoiceRepository().Delete(context.Background(), db, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentSumPaidByInvoice(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_paid\), 0\) FROM payment_invoices`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("150.00"))

	paid, err := NewPaymentRepository().SumPaidByInvoice(context.Background(), db, 7)
	require.NoError(t, err)
	assert.True(t, paid.Equal(decimal.RequireFromString("150")))
}

func TestTransactionIsInvoiced(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM invoice_transactions WHERE transaction_id = \$1\)`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	invoiced, err := NewTransactionRepository().IsInvoiced(context.Background(), db, 2)
	require.NoError(t, err)
	assert.True(t, invoiced)
}

var (
	transactionRowColumns = []string{
		"id", "marketing_id", "customer_id", "transaction_date", "subtotal", "tax_amount",
		"stamp_duty", "grand_total", "status", "notes", "created_at", "updated_at",
	}
	invoiceRowColumns = []string{
		"id", "invoice_no", "customer_id", "type", "percentage", "subtotal", "dpp",
		"tax_amount", "stamp_duty", "grand_total", "status", "invoice_date", "due_date", "notes",
		"created_at", "updated_at",
	}
)

func TestTransactionLockByIDs(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM transactions t WHERE t.id = ANY\(\$1\) ORDER BY t.id FOR UPDATE`).
		WithArgs([]int64{1, 2}).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow(1, 1, 7, now, "250.00", "0.00", "0.00", "250.00", "PENDING", "", now, now).
			AddRow(2, 1, 7, now, "100.00", "11.00", "0.00", "111.00", "PENDING", "", now, now))

	locked, err := NewTransactionRepository().LockByIDs(context.Background(), db, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.Equal(t, int64(2), locked[1].ID)
	assert.Equal(t, models.TransactionPending, locked[1].Status)
	assert.True(t, locked[1].GrandTotal.Equal(decimal.RequireFromString("111")))
}

func TestTransactionUpdateStatus(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`UPDATE transactions SET status = \$1, updated_at = now\(\) WHERE id = ANY\(\$2\)`).
		WithArgs("INVOICED", []int64{3, 4}).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := NewTransactionRepository().UpdateStatus(context.Background(), db, []int64{3, 4}, models.TransactionInvoiced)
	require.NoError(t, err)
}

func TestTransactionUpdate(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	tx := &models.Transaction{
		ID:          5,
		MarketingID: 1,
		CustomerID:  2,
		Subtotal:    decimal.RequireFromString("200"),
		TaxAmount:   decimal.RequireFromString("22"),
		StampDuty:   decimal.Zero,
		GrandTotal:  decimal.RequireFromString("222"),
		Notes:       "revised",
	}

	mock.ExpectQuery(`UPDATE transactions\s+SET marketing_id = \$1,.*WHERE id = \$8\s+RETURNING updated_at`).
		WithArgs(int64(1), int64(2), tx.Subtotal, tx.TaxAmount, tx.StampDuty, tx.GrandTotal, "revised", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	require.NoError(t, NewTransactionRepository().Update(context.Background(), db, tx))
	assert.Equal(t, now, tx.UpdatedAt)

	mock.ExpectQuery(`UPDATE transactions`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	tx.ID = 6
	err := NewTransactionRepository().Update(context.Background(), db, tx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionUpdateItem(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	item := &models.TransactionItem{ID: 11, TransactionID: 5, ProductID: 3, Qty: 4, Price: decimal.RequireFromString("12.50")}

	mock.ExpectQuery(`UPDATE transaction_items\s+SET product_id = \$1, qty = \$2, price = \$3, updated_at = now\(\)\s+WHERE id = \$4 AND transaction_id = \$5`).
		WithArgs(int64(3), 4, item.Price, int64(11), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, NewTransactionRepository().UpdateItem(context.Background(), db, item))
	assert.Equal(t, now, item.UpdatedAt)

	mock.ExpectQuery(`UPDATE transaction_items`).
		WithArgs(int64(3), 4, item.Price, int64(99), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	item.ID = 99
	err := NewTransactionRepository().UpdateItem(context.Background(), db, item)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionDeleteItems(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTransactionRepository()

	require.NoError(t, repo.DeleteItems(context.Background(), db, 5, nil))

	mock.ExpectExec(`DELETE FROM transaction_items WHERE transaction_id = \$1 AND id = ANY\(\$2\)`).
		WithArgs(int64(5), []int64{7, 8}).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteItems(context.Background(), db, 5, []int64{7, 8}))
}

func TestInvoiceLinkTransactions(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO invoice_transactions \(invoice_id, transaction_id\)\s+SELECT \$1, unnest\(\$2::bigint\[\]\)`).
		WithArgs(int64(9), []int64{1, 2}).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := NewInvoiceRepository().LinkTransactions(context.Background(), db, 9, []int64{1, 2})
	require.NoError(t, err)
}

func TestInvoiceLockByIDs(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM invoices i WHERE i.id = ANY\(\$1\) ORDER BY i.id FOR UPDATE`).
		WithArgs([]int64{4}).
		WillReturnRows(sqlmock.NewRows(invoiceRowColumns).
			AddRow(4, "INV-2026-004", 7, "FULL_PAYMENT", "100.00", "250.00", "229.17",
				"0.00", "0.00", "250.00", "UNPAID", now, nil, "", now, now))

	locked, err := NewInvoiceRepository().LockByIDs(context.Background(), db, []int64{4})
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, "INV-2026-004", locked[0].InvoiceNo)
	assert.Equal(t, models.InvoiceUnpaid, locked[0].Status)
	assert.Nil(t, locked[0].DueDate)
}

func TestInvoiceListByTransaction(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`JOIN invoice_transactions it ON it.invoice_id = i.id\s+WHERE it.transaction_id = \$1\s+ORDER BY i.invoice_date, i.id`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(invoiceRowColumns).
			AddRow(1, "INV-2026-001", 7, "DOWN_PAYMENT", "30.00", "75.00", "68.75",
				"0.00", "0.00", "75.00", "PAID", now, now, "", now, now).
			AddRow(2, "INV-2026-002", 7, "FINAL_PAYMENT", "70.00", "175.00", "160.42",
				"0.00", "0.00", "175.00", "UNPAID", now, nil, "", now, now))

	invoices, err := NewInvoiceRepository().ListByTransaction(context.Background(), db, 2)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, models.InvoiceDownPayment, invoices[0].Type)
	assert.True(t, invoices[1].Percentage.Equal(decimal.NewFromInt(70)))
}

func TestPaymentInsertAllocation(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	alloc := &models.PaymentInvoice{PaymentID: 3, InvoiceID: 4, AmountPaid: decimal.RequireFromString("200.00")}

	mock.ExpectQuery(`INSERT INTO payment_invoices \(payment_id, invoice_id, amount_paid\)`).
		WithArgs(int64(3), int64(4), alloc.AmountPaid).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, now))

	require.NoError(t, NewPaymentRepository().InsertAllocation(context.Background(), db, alloc))
	assert.Equal(t, int64(12), alloc.ID)
	assert.Equal(t, now, alloc.CreatedAt)
}

func TestPaymentListAppliesFilter(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments p WHERE p.customer_id = \$1 AND p.payment_method = \$2`).
		WithArgs(int64(7), "GIRO").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY p.payment_date DESC, p.id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(int64(7), "GIRO", models.DefaultPageLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "payment_no", "customer_id", "payment_method", "payment_date", "total_paid",
			"notes", "created_at", "updated_at",
		}).AddRow(3, "PAY-2026-003", 7, "GIRO", now, "300.00", "", now, now))

	payments, total, err := NewPaymentRepository().List(context.Background(), db,
		models.PaymentFilter{CustomerID: 7, PaymentMethod: models.PaymentGiro}, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, payments, 1)
	assert.Equal(t, "PAY-2026-003", payments[0].PaymentNo)
	assert.True(t, payments[0].TotalPaid.Equal(decimal.NewFromInt(300)))
}
