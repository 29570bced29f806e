package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

// store is an in-memory stand-in for the database behind every repository.
type store struct {
	mu     sync.Mutex
	nextID int64

	customers        map[int64]*models.Customer
	customerProducts map[int64][]*models.CustomerProduct
	products         map[int64]*models.Product
	marketings       map[int64]*models.Marketing
	transactions     map[int64]*models.Transaction
	items            map[int64]*models.TransactionItem
	invoices         map[int64]*models.Invoice
	invoiceTx        map[int64][]int64
	payments         map[int64]*models.Payment
	allocations      []*models.PaymentInvoice
	counters         map[string]int64

	// fixedCounter, when set, is returned by every counter draw.
	fixedCounter int64
}

func newStore() *store {
	return &store{
		customers:        map[int64]*models.Customer{},
		customerProducts: map[int64][]*models.CustomerProduct{},
		products:         map[int64]*models.Product{},
		marketings:       map[int64]*models.Marketing{},
		transactions:     map[int64]*models.Transaction{},
		items:            map[int64]*models.TransactionItem{},
		invoices:         map[int64]*models.Invoice{},
		invoiceTx:        map[int64][]int64{},
		payments:         map[int64]*models.Payment{},
		counters:         map[string]int64{},
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) repos() *repositories.Repositories {
	return &repositories.Repositories{
		Customers:        fakeCustomers{s},
		CustomerProducts: fakeCustomerProducts{s},
		Products:         fakeProducts{s},
		Marketings:       fakeMarketings{s},
		Transactions:     fakeTransactions{s},
		Invoices:         fakeInvoices{s},
		Payments:         fakePayments{s},
		Counters:         fakeCounters{s},
	}
}

var (
	errUnique     = &pgconn.PgError{Code: "23505"}
	errForeignKey = &pgconn.PgError{Code: "23503"}
)

type fakeTx struct{}

func (fakeTx) DB() database.Querier { return nil }

func (fakeTx) WithinTx(ctx context.Context, fn func(q database.Querier) error) error {
	return fn(nil)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type fakeCustomers struct{ s *store }

func (f fakeCustomers) Create(ctx context.Context, q database.Querier, c *models.Customer) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.customers {
		if existing.Code == c.Code {
			return errUnique
		}
	}
	c.ID = f.s.id()
	cp := *c
	f.s.customers[c.ID] = &cp
	return nil
}

func (f fakeCustomers) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Customer, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCustomers) List(ctx context.Context, q database.Querier, filter models.CustomerFilter, page models.PageRequest) ([]*models.Customer, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Customer
	for _, id := range sortedKeys(f.s.customers) {
		out = append(out, f.s.customers[id])
	}
	return out, len(out), nil
}

func (f fakeCustomers) Update(ctx context.Context, q database.Querier, c *models.Customer) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.customers[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *c
	f.s.customers[c.ID] = &cp
	return nil
}

func (f fakeCustomers) SoftDelete(ctx context.Context, q database.Querier, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.customers[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.customers, id)
	return nil
}

func (f fakeCustomers) ExistingCodes(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	taken := map[string]bool{}
	for _, c := range f.s.customers {
		taken[c.Code] = true
	}
	return taken, nil
}

type fakeCustomerProducts struct{ s *store }

func (f fakeCustomerProducts) ListByCustomer(ctx context.Context, q database.Querier, customerID int64) ([]*models.CustomerProduct, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]*models.CustomerProduct(nil), f.s.customerProducts[customerID]...), nil
}

func (f fakeCustomerProducts) DeleteByCustomer(ctx context.Context, q database.Querier, customerID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.customerProducts, customerID)
	return nil
}

func (f fakeCustomerProducts) BulkInsert(ctx context.Context, q database.Querier, rows []*models.CustomerProduct) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range rows {
		r.ID = f.s.id()
		f.s.customerProducts[r.CustomerID] = append(f.s.customerProducts[r.CustomerID], r)
	}
	return nil
}

type fakeProducts struct{ s *store }

func (f fakeProducts) Create(ctx context.Context, q database.Querier, p *models.Product) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.products {
		if existing.Code == p.Code {
			return errUnique
		}
	}
	p.ID = f.s.id()
	cp := *p
	f.s.products[p.ID] = &cp
	return nil
}

func (f fakeProducts) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProducts) ExistingIDs(ctx context.Context, q database.Querier, ids []int64) (map[int64]bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	found := map[int64]bool{}
	for _, id := range ids {
		if _, ok := f.s.products[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (f fakeProducts) List(ctx context.Context, q database.Querier, filter models.ProductFilter, page models.PageRequest) ([]*models.Product, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Product
	for _, id := range sortedKeys(f.s.products) {
		out = append(out, f.s.products[id])
	}
	return out, len(out), nil
}

func (f fakeProducts) Update(ctx context.Context, q database.Querier, p *models.Product) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.products[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *p
	f.s.products[p.ID] = &cp
	return nil
}

func (f fakeProducts) SoftDelete(ctx context.Context, q database.Querier, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.products[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.products, id)
	return nil
}

func (f fakeProducts) ExistingCodes(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	taken := map[string]bool{}
	for _, p := range f.s.products {
		taken[p.Code] = true
	}
	return taken, nil
}

type fakeMarketings struct{ s *store }

func (f fakeMarketings) Create(ctx context.Context, q database.Querier, m *models.Marketing) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m.ID = f.s.id()
	cp := *m
	f.s.marketings[m.ID] = &cp
	return nil
}

func (f fakeMarketings) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Marketing, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.marketings[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeMarketings) List(ctx context.Context, q database.Querier, filter models.MarketingFilter, page models.PageRequest) ([]*models.Marketing, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Marketing
	for _, id := range sortedKeys(f.s.marketings) {
		out = append(out, f.s.marketings[id])
	}
	return out, len(out), nil
}

func (f fakeMarketings) Update(ctx context.Context, q database.Querier, m *models.Marketing) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.marketings[m.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *m
	f.s.marketings[m.ID] = &cp
	return nil
}

func (f fakeMarketings) SoftDelete(ctx context.Context, q database.Querier, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.marketings[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.marketings, id)
	return nil
}

type fakeTransactions struct{ s *store }

func (f fakeTransactions) Create(ctx context.Context, q database.Querier, t *models.Transaction) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t.ID = f.s.id()
	cp := *t
	cp.Items = nil
	f.s.transactions[t.ID] = &cp
	return nil
}

func (f fakeTransactions) get(id int64) (*models.Transaction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.transactions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTransactions) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error) {
	return f.get(id)
}

func (f fakeTransactions) GetForUpdate(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error) {
	return f.get(id)
}

func (f fakeTransactions) LockByIDs(ctx context.Context, q database.Querier, ids []int64) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, id := range ids {
		if t, err := f.get(id); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeTransactions) List(ctx context.Context, q database.Querier, filter models.TransactionFilter, page models.PageRequest) ([]*models.Transaction, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Transaction
	for _, id := range sortedKeys(f.s.transactions) {
		t := f.s.transactions[id]
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (f fakeTransactions) Update(ctx context.Context, q database.Querier, t *models.Transaction) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.transactions[t.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *t
	cp.Items = nil
	f.s.transactions[t.ID] = &cp
	return nil
}

func (f fakeTransactions) UpdateStatus(ctx context.Context, q database.Querier, ids []int64, status models.TransactionStatus) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, id := range ids {
		if t, ok := f.s.transactions[id]; ok {
			t.Status = status
		}
	}
	return nil
}

func (f fakeTransactions) Delete(ctx context.Context, q database.Querier, id int64) (*models.Transaction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.transactions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	delete(f.s.transactions, id)
	return t, nil
}

func (f fakeTransactions) IsInvoiced(ctx context.Context, q database.Querier, id int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, txIDs := range f.s.invoiceTx {
		for _, txID := range txIDs {
			if txID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f fakeTransactions) ListItems(ctx context.Context, q database.Querier, transactionID int64) ([]*models.TransactionItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.TransactionItem
	for _, id := range sortedKeys(f.s.items) {
		if item := f.s.items[id]; item.TransactionID == transactionID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeTransactions) InsertItem(ctx context.Context, q database.Querier, item *models.TransactionItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	item.ID = f.s.id()
	cp := *item
	f.s.items[item.ID] = &cp
	return nil
}

func (f fakeTransactions) UpdateItem(ctx context.Context, q database.Querier, item *models.TransactionItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.items[item.ID]
	if !ok || existing.TransactionID != item.TransactionID {
		return repositories.ErrNotFound
	}
	cp := *item
	f.s.items[item.ID] = &cp
	return nil
}

func (f fakeTransactions) DeleteItems(ctx context.Context, q database.Querier, transactionID int64, itemIDs []int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, id := range itemIDs {
		if item, ok := f.s.items[id]; ok && item.TransactionID == transactionID {
			delete(f.s.items, id)
		}
	}
	return nil
}

func (f fakeTransactions) DeleteAllItems(ctx context.Context, q database.Querier, transactionID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, item := range f.s.items {
		if item.TransactionID == transactionID {
			delete(f.s.items, id)
		}
	}
	return nil
}

type fakeInvoices struct{ s *store }

func (f fakeInvoices) Create(ctx context.Context, q database.Querier, inv *models.Invoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.invoices {
		if existing.InvoiceNo == inv.InvoiceNo {
			return errUnique
		}
	}
	inv.ID = f.s.id()
	cp := *inv
	cp.TransactionIDs = nil
	f.s.invoices[inv.ID] = &cp
	return nil
}

func (f fakeInvoices) LinkTransactions(ctx context.Context, q database.Querier, invoiceID int64, transactionIDs []int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.invoiceTx[invoiceID] = append(f.s.invoiceTx[invoiceID], transactionIDs...)
	return nil
}

func (f fakeInvoices) get(id int64) (*models.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv, ok := f.s.invoices[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f fakeInvoices) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Invoice, error) {
	return f.get(id)
}

func (f fakeInvoices) GetByNumber(ctx context.Context, q database.Querier, invoiceNo string) (*models.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, inv := range f.s.invoices {
		if inv.InvoiceNo == invoiceNo {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeInvoices) LockByIDs(ctx context.Context, q database.Querier, ids []int64) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for _, id := range ids {
		if inv, err := f.get(id); err == nil {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f fakeInvoices) List(ctx context.Context, q database.Querier, filter models.InvoiceFilter, page models.PageRequest) ([]*models.Invoice, int, error) {
	out, err := f.ListAll(ctx, q, filter)
	return out, len(out), err
}

func (f fakeInvoices) ListAll(ctx context.Context, q database.Querier, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Invoice
	for _, id := range sortedKeys(f.s.invoices) {
		inv := f.s.invoices[id]
		if filter.CustomerID != 0 && inv.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (f fakeInvoices) ListByTransaction(ctx context.Context, q database.Querier, transactionID int64) ([]*models.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Invoice
	for _, invoiceID := range sortedKeys(f.s.invoiceTx) {
		for _, txID := range f.s.invoiceTx[invoiceID] {
			if txID == transactionID {
				out = append(out, f.s.invoices[invoiceID])
			}
		}
	}
	return out, nil
}

func (f fakeInvoices) ListTransactionIDs(ctx context.Context, q database.Querier, invoiceID int64) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]int64(nil), f.s.invoiceTx[invoiceID]...), nil
}

func (f fakeInvoices) Update(ctx context.Context, q database.Querier, inv *models.Invoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.invoices[inv.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *inv
	f.s.invoices[inv.ID] = &cp
	return nil
}

func (f fakeInvoices) UpdateStatus(ctx context.Context, q database.Querier, id int64, status models.InvoiceStatus) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv, ok := f.s.invoices[id]
	if !ok {
		return repositories.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (f fakeInvoices) Delete(ctx context.Context, q database.Querier, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.invoices[id]; !ok {
		return repositories.ErrNotFound
	}
	for _, a := range f.s.allocations {
		if a.InvoiceID == id {
			return errForeignKey
		}
	}
	delete(f.s.invoices, id)
	delete(f.s.invoiceTx, id)
	return nil
}

func (f fakeInvoices) DeleteAll(ctx context.Context, q database.Querier) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if len(f.s.allocations) > 0 {
		return 0, errForeignKey
	}
	n := int64(len(f.s.invoices))
	f.s.invoices = map[int64]*models.Invoice{}
	f.s.invoiceTx = map[int64][]int64{}
	return n, nil
}

type fakePayments struct{ s *store }

func (f fakePayments) Create(ctx context.Context, q database.Querier, p *models.Payment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.payments {
		if existing.PaymentNo == p.PaymentNo {
			return errUnique
		}
	}
	p.ID = f.s.id()
	cp := *p
	cp.Allocations = nil
	f.s.payments[p.ID] = &cp
	return nil
}

func (f fakePayments) InsertAllocation(ctx context.Context, q database.Querier, alloc *models.PaymentInvoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	alloc.ID = f.s.id()
	cp := *alloc
	f.s.allocations = append(f.s.allocations, &cp)
	return nil
}

func (f fakePayments) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Payment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakePayments) ListAllocations(ctx context.Context, q database.Querier, paymentID int64) ([]*models.PaymentInvoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.PaymentInvoice
	for _, a := range f.s.allocations {
		if a.PaymentID == paymentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakePayments) List(ctx context.Context, q database.Querier, filter models.PaymentFilter, page models.PageRequest) ([]*models.Payment, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Payment
	for _, id := range sortedKeys(f.s.payments) {
		out = append(out, f.s.payments[id])
	}
	return out, len(out), nil
}

func (f fakePayments) Delete(ctx context.Context, q database.Querier, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.payments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.payments, id)
	kept := f.s.allocations[:0]
	for _, a := range f.s.allocations {
		if a.PaymentID != id {
			kept = append(kept, a)
		}
	}
	f.s.allocations = kept
	return nil
}

func (f fakePayments) SumPaidByInvoice(ctx context.Context, q database.Querier, invoiceID int64) (decimal.Decimal, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	sum := decimal.Zero
	for _, a := range f.s.allocations {
		if a.InvoiceID == invoiceID {
			sum = sum.Add(a.AmountPaid)
		}
	}
	return sum, nil
}

type fakeCounters struct{ s *store }

func (f fakeCounters) Next(ctx context.Context, q database.Querier, prefix string, year int) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.fixedCounter > 0 {
		return f.s.fixedCounter, nil
	}
	key := fmt.Sprintf("%s-%d", prefix, year)
	f.s.counters[key]++
	return f.s.counters[key], nil
}
