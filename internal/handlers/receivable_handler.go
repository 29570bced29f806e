package handlers

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"crm-backoffice/internal/models"
	"crm-backoffice/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReceivableHandler serves invoices and payments.
type ReceivableHandler struct {
	invoiceService *services.InvoiceService
	paymentService *services.PaymentService
}

func NewReceivableHandler(invoiceService *services.InvoiceService, paymentService *services.PaymentService) *ReceivableHandler {
	return &ReceivableHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

func invoiceFilter(r *http.Request) (models.InvoiceFilter, error) {
	customerID, err := queryInt64(r, "customerId")
	if err != nil {
		return models.InvoiceFilter{}, err
	}
	q := r.URL.Query()
	return models.InvoiceFilter{
		CustomerID: customerID,
		Status:     models.InvoiceStatus(q.Get("status")),
		Type:       models.InvoiceType(q.Get("type")),
		InvoiceNo:  q.Get("invoiceNo"),
	}, nil
}

func (h *ReceivableHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := invoiceFilter(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	invoices, pagination, err := h.invoiceService.ListInvoices(r.Context(), filter, pageRequest(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithPage(w, "Invoices retrieved", invoices, pagination)
}

func (h *ReceivableHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.CreateInvoiceInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Invoice created", invoice)
}

func (h *ReceivableHandler) PreviewInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.CreateInvoiceInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.PreviewInvoice(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Invoice preview", invoice)
}

func (h *ReceivableHandler) ExportInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := invoiceFilter(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.invoiceService.ExportInvoices(r.Context(), filter, &buf); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=invoices.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *ReceivableHandler) GetOutstandingInvoice(w http.ResponseWriter, r *http.Request) {
	result, err := h.invoiceService.GetOutstandingInvoiceByNumber(r.Context(), mux.Vars(r)["invoiceNo"])
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Outstanding balance retrieved", result)
}

func (h *ReceivableHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.GetInvoice(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Invoice retrieved", invoice)
}

func (h *ReceivableHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.UpdateInvoiceInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Invoice updated", invoice)
}

func (h *ReceivableHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.invoiceService.DeleteInvoice(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Invoice deleted", nil)
}

func (h *ReceivableHandler) DeleteAllInvoices(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.invoiceService.DeleteAllInvoices(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Invoices deleted", map[string]int64{"deleted": deleted})
}

func (h *ReceivableHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryInt64(r, "customerId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	filter := models.PaymentFilter{
		CustomerID:    customerID,
		PaymentMethod: models.PaymentMethod(r.URL.Query().Get("paymentMethod")),
	}

	payments, pagination, err := h.paymentService.ListPayments(r.Context(), filter, pageRequest(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithPage(w, "Payments retrieved", payments, pagination)
}

func (h *ReceivableHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var input models.CreatePaymentInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.paymentService.CreatePayment(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Payment recorded", result)
}

func (h *ReceivableHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	payment, err := h.paymentService.GetPayment(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Payment retrieved", payment)
}

func (h *ReceivableHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.paymentService.DeletePayment(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Payment deleted", nil)
}
