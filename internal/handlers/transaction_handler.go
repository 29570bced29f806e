package handlers

import (
	"net/http"

	"crm-backoffice/internal/models"
	"crm-backoffice/internal/services"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	var err error

	if filter.CustomerID, err = queryInt64(r, "customerId"); err != nil {
		return filter, err
	}
	if filter.MarketingID, err = queryInt64(r, "marketingId"); err != nil {
		return filter, err
	}
	if filter.DateFrom, err = queryDate(r, "dateFrom"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = queryDateEnd(r, "dateTo"); err != nil {
		return filter, err
	}
	filter.Status = models.TransactionStatus(r.URL.Query().Get("status"))
	return filter, nil
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	transactions, pagination, err := h.transactionService.ListTransactions(r.Context(), filter, pageRequest(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithPage(w, "Transactions retrieved", transactions, pagination)
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input models.CreateTransactionInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Transaction created", transaction)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	transaction, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Transaction retrieved", transaction)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.UpdateTransactionInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Transaction updated", transaction)
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	transaction, err := h.transactionService.DeleteTransaction(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Transaction deleted", transaction)
}

func (h *TransactionHandler) ChangeTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.ChangeTransactionStatusInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	transaction, err := h.transactionService.ChangeTransactionStatus(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Transaction status changed", transaction)
}

func (h *TransactionHandler) GetTransactionForInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionForInvoice(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Transaction is eligible for invoicing", transaction)
}

func (h *TransactionHandler) GetTransactionInvoiceSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	summary, err := h.transactionService.GetTransactionInvoiceSummary(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Invoice summary retrieved", summary)
}
