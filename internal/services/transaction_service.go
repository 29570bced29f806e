package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"crm-backoffice/internal/billing"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/logger"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

type TransactionService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
	now   Clock
}

func NewTransactionService(tx database.TxRunner, repos *repositories.Repositories, now Clock) *TransactionService {
	return &TransactionService{
		tx:    tx,
		repos: repos,
		now:   now,
	}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error) {
	const op = "CreateTransaction"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var created *models.Transaction
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		if err := s.checkParties(ctx, q, input.MarketingID, input.CustomerID); err != nil {
			return err
		}
		if err := s.checkProducts(ctx, q, input.Items); err != nil {
			return err
		}

		items := make([]*models.TransactionItem, 0, len(input.Items))
		for _, in := range input.Items {
			items = append(items, &models.TransactionItem{
				ProductID: in.ProductID,
				Qty:       in.Qty,
				Price:     billing.Money(in.Price),
			})
		}

		totals := billing.TransactionTotals(itemLines(items), input.TaxAmount, input.StampDuty)
		t := &models.Transaction{
			MarketingID:     input.MarketingID,
			CustomerID:      input.CustomerID,
			TransactionDate: dateOrNow(input.TransactionDate, s.now),
			Subtotal:        totals.Subtotal,
			TaxAmount:       totals.TaxAmount,
			StampDuty:       totals.StampDuty,
			GrandTotal:      totals.GrandTotal,
			Status:          models.TransactionPending,
			Notes:           input.Notes,
		}
		if err := s.repos.Transactions.Create(ctx, q, t); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTransactionCreateFailed
			}
			return err
		}

		for _, item := range items {
			item.TransactionID = t.ID
			if err := s.repos.Transactions.InsertItem(ctx, q, item); err != nil {
				return err
			}
		}
		t.Items = items
		created = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Ctx(ctx).Info().Int64("transaction_id", created.ID).Str("grand_total", created.GrandTotal.String()).Msg("Transaction created")
	return created, nil
}

// UpdateTransaction applies header changes and an item diff to a PENDING
// transaction, then rewrites its totals from the final item set.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, input models.UpdateTransactionInput) (*models.Transaction, error) {
	const op = "UpdateTransaction"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var updated *models.Transaction
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		t, err := s.repos.Transactions.GetForUpdate(ctx, q, id)
		if err != nil {
			return notFound(err, ErrTransactionNotFound)
		}
		if t.Status != models.TransactionPending {
			return ErrTransactionNotPending
		}

		if input.MarketingID != nil {
			t.MarketingID = *input.MarketingID
		}
		if input.CustomerID != nil {
			t.CustomerID = *input.CustomerID
		}
		if input.Notes != nil {
			t.Notes = *input.Notes
		}
		if input.TaxAmount != nil {
			t.TaxAmount = *input.TaxAmount
		}
		if input.StampDuty != nil {
			t.StampDuty = *input.StampDuty
		}
		if input.MarketingID != nil || input.CustomerID != nil {
			if err := s.checkParties(ctx, q, t.MarketingID, t.CustomerID); err != nil {
				return err
			}
		}

		items, err := s.repos.Transactions.ListItems(ctx, q, id)
		if err != nil {
			return err
		}
		if input.Items != nil {
			if err := s.checkProducts(ctx, q, input.Items); err != nil {
				return err
			}
			if items, err = s.syncItems(ctx, q, id, items, input.Items); err != nil {
				return err
			}
		}

		totals := billing.TransactionTotals(itemLines(items), t.TaxAmount, t.StampDuty)
		t.Subtotal = totals.Subtotal
		t.TaxAmount = totals.TaxAmount
		t.StampDuty = totals.StampDuty
		t.GrandTotal = totals.GrandTotal

		if err := s.repos.Transactions.Update(ctx, q, t); err != nil {
			return notFound(err, ErrTransactionNotFound)
		}
		t.Items = items
		updated = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// syncItems makes the stored items match submitted: known ids are updated,
// entries without a known id are inserted and stored items that were not
// submitted are deleted.
func (s *TransactionService) syncItems(ctx context.Context, q database.Querier, transactionID int64, existing []*models.TransactionItem, submitted []models.TransactionItemInput) ([]*models.TransactionItem, error) {
	byID := make(map[int64]*models.TransactionItem, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	kept := make(map[int64]bool, len(submitted))
	result := make([]*models.TransactionItem, 0, len(submitted))
	for _, in := range submitted {
		item := &models.TransactionItem{
			TransactionID: transactionID,
			ProductID:     in.ProductID,
			Qty:           in.Qty,
			Price:         billing.Money(in.Price),
		}

		if in.ID != nil {
			if _, ok := byID[*in.ID]; ok && !kept[*in.ID] {
				item.ID = *in.ID
				kept[item.ID] = true
				if err := s.repos.Transactions.UpdateItem(ctx, q, item); err != nil {
					return nil, notFound(err, ErrUnknownItem)
				}
				result = append(result, item)
				continue
			}
		}

		if err := s.repos.Transactions.InsertItem(ctx, q, item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	var removed []int64
	for _, item := range existing {
		if !kept[item.ID] {
			removed = append(removed, item.ID)
		}
	}
	if err := s.repos.Transactions.DeleteItems(ctx, q, transactionID, removed); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	const op = "DeleteTransaction"

	var deleted *models.Transaction
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		if _, err := s.repos.Transactions.GetForUpdate(ctx, q, id); err != nil {
			return notFound(err, ErrTransactionNotFound)
		}
		invoiced, err := s.repos.Transactions.IsInvoiced(ctx, q, id)
		if err != nil {
			return err
		}
		if invoiced {
			return ErrTransactionInvoiced
		}

		if err := s.repos.Transactions.DeleteAllItems(ctx, q, id); err != nil {
			return err
		}
		t, err := s.repos.Transactions.Delete(ctx, q, id)
		if err != nil {
			return notFound(err, ErrTransactionNotFound)
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return deleted, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	const op = "GetTransaction"
	q := s.tx.DB()

	t, err := s.repos.Transactions.GetByID(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, ErrTransactionNotFound))
	}
	if t.Items, err = s.repos.Transactions.ListItems(ctx, q, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, filter models.TransactionFilter, page models.PageRequest) ([]*models.Transaction, *models.Pagination, error) {
	transactions, total, err := s.repos.Transactions.List(ctx, s.tx.DB(), filter, page)
	if err != nil {
		return nil, nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return transactions, models.NewPagination(page, total), nil
}

// GetTransactionForInvoice returns the transaction only while it is still
// PENDING, the single precondition for invoicing it.
func (s *TransactionService) GetTransactionForInvoice(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TransactionPending {
		return nil, fmt.Errorf("GetTransactionForInvoice: %w", ErrTransactionNotEligible)
	}
	return t, nil
}

// GetTransactionInvoiceSummary reports how much of a transaction has been
// billed across every invoice that references it.
func (s *TransactionService) GetTransactionInvoiceSummary(ctx context.Context, id int64) (*models.TransactionInvoiceSummary, error) {
	const op = "GetTransactionInvoiceSummary"
	q := s.tx.DB()

	t, err := s.repos.Transactions.GetByID(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, ErrTransactionNotFound))
	}
	invoices, err := s.repos.Invoices.ListByTransaction(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &models.TransactionInvoiceSummary{
		TransactionID:  t.ID,
		GrandTotal:     t.GrandTotal,
		InvoicedAmount: decimal.Zero,
		InvoiceNos:     []string{},
	}
	for _, inv := range invoices {
		summary.InvoicedAmount = summary.InvoicedAmount.Add(inv.Subtotal)
		summary.InvoiceNos = append(summary.InvoiceNos, inv.InvoiceNo)
	}
	summary.RemainingAmount = t.GrandTotal.Sub(summary.InvoicedAmount)
	summary.PercentageInvoiced = billing.PercentageOf(summary.InvoicedAmount, t.GrandTotal)
	return summary, nil
}

var allowedTransitions = map[models.TransactionStatus]models.TransactionStatus{
	models.TransactionPending:  models.TransactionCanceled,
	models.TransactionInvoiced: models.TransactionDone,
}

// ChangeTransactionStatus allows PENDING -> CANCELED and INVOICED -> DONE.
// INVOICED is only ever set by invoice creation.
func (s *TransactionService) ChangeTransactionStatus(ctx context.Context, id int64, input models.ChangeTransactionStatusInput) (*models.Transaction, error) {
	const op = "ChangeTransactionStatus"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var changed *models.Transaction
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		t, err := s.repos.Transactions.GetForUpdate(ctx, q, id)
		if err != nil {
			return notFound(err, ErrTransactionNotFound)
		}
		if next, ok := allowedTransitions[t.Status]; !ok || next != input.Status {
			return ErrInvalidStatusTransition
		}
		if err := s.repos.Transactions.UpdateStatus(ctx, q, []int64{id}, input.Status); err != nil {
			return err
		}
		t.Status = input.Status
		changed = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return changed, nil
}

func (s *TransactionService) checkParties(ctx context.Context, q database.Querier, marketingID, customerID int64) error {
	if _, err := s.repos.Marketings.GetByID(ctx, q, marketingID); err != nil {
		return notFound(err, ErrMarketingNotFound)
	}
	if _, err := s.repos.Customers.GetByID(ctx, q, customerID); err != nil {
		return notFound(err, ErrCustomerNotFound)
	}
	return nil
}

func (s *TransactionService) checkProducts(ctx context.Context, q database.Querier, items []models.TransactionItemInput) error {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	ids = uniqueIDs(ids)

	found, err := s.repos.Products.ExistingIDs(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !found[id] {
			return ErrProductNotFound
		}
	}
	return nil
}

// itemLines prices totals from the stored items, so the header always
// matches Σ qty × price of what was persisted.
func itemLines(items []*models.TransactionItem) []billing.Line {
	lines := make([]billing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, billing.Line{Qty: item.Qty, Price: item.Price})
	}
	return lines
}
