package repositories

import (
	"context"
	"database/sql"
	"errors"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
)

// ErrNotFound is returned when a lookup or a targeted write matches no row.
var ErrNotFound = errors.New("record not found")

type scanner interface {
	Scan(dest ...any) error
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// countAndPage runs the COUNT for a filtered list and appends LIMIT/OFFSET
// placeholders to w for the page query that follows.
func countAndPage(ctx context.Context, q database.Querier, from string, w *database.Where, page models.PageRequest) (int, string, error) {
	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) "+from+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return 0, "", err
	}
	page = page.Normalize()
	limit := w.Arg(page.Limit)
	offset := w.Arg(page.Offset())
	return total, " LIMIT " + limit + " OFFSET " + offset, nil
}

// Repositories bundles one repository per aggregate.
type Repositories struct {
	Customers        CustomerRepository
	CustomerProducts CustomerProductRepository
	Products         ProductRepository
	Marketings       MarketingRepository
	Transactions     TransactionRepository
	Invoices         InvoiceRepository
	Payments         PaymentRepository
	Counters         CounterRepository
}

func New() *Repositories {
	return &Repositories{
		Customers:        NewCustomerRepository(),
		CustomerProducts: NewCustomerProductRepository(),
		Products:         NewProductRepository(),
		Marketings:       NewMarketingRepository(),
		Transactions:     NewTransactionRepository(),
		Invoices:         NewInvoiceRepository(),
		Payments:         NewPaymentRepository(),
		Counters:         NewCounterRepository(),
	}
}

func existingCodes(ctx context.Context, q database.Querier, table string, codes []string) (map[string]bool, error) {
	taken := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return taken, nil
	}

	rows, err := q.QueryContext(ctx, `SELECT code FROM `+table+` WHERE code = ANY($1) AND deleted_at IS NULL`, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		taken[code] = true
	}
	return taken, rows.Err()
}
