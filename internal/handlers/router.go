package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"crm-backoffice/internal/config"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/logger"
	"crm-backoffice/internal/repositories"
	"crm-backoffice/internal/services"
)

const requestIDHeader = "X-Request-ID"

type Handlers struct {
	MasterData  *MasterDataHandler
	Transaction *TransactionHandler
	Receivable  *ReceivableHandler
	Health      *HealthHandler
}

// SetupRouter wires repositories, services and handlers on top of db and
// returns the fully wrapped HTTP handler.
func SetupRouter(db *sql.DB, cfg *config.Config) http.Handler {
	tx := database.NewTransaction(db, cfg.Database.TxMaxRetries)
	repos := repositories.New()

	customerService := services.NewCustomerService(tx, repos)
	productService := services.NewProductService(tx, repos)
	marketingService := services.NewMarketingService(tx, repos)
	importService := services.NewImportService(tx, repos)
	transactionService := services.NewTransactionService(tx, repos, time.Now)
	invoiceService := services.NewInvoiceService(tx, repos, time.Now)
	paymentService := services.NewPaymentService(tx, repos, time.Now)

	h := Handlers{
		MasterData:  NewMasterDataHandler(customerService, productService, marketingService, importService),
		Transaction: NewTransactionHandler(transactionService),
		Receivable:  NewReceivableHandler(invoiceService, paymentService),
		Health:      NewHealthHandler(db),
	}
	return NewRouter(h, cfg.CORS.AllowedOrigins)
}

func NewRouter(h Handlers, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health.Check).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	md := api.PathPrefix("/master-data").Subrouter()
	md.HandleFunc("/marketings", h.MasterData.ListMarketings).Methods(http.MethodGet)
	md.HandleFunc("/marketings", h.MasterData.CreateMarketing).Methods(http.MethodPost)
	md.HandleFunc("/marketings/{id}", h.MasterData.GetMarketing).Methods(http.MethodGet)
	md.HandleFunc("/marketings/{id}", h.MasterData.UpdateMarketing).Methods(http.MethodPut)
	md.HandleFunc("/marketings/{id}", h.MasterData.DeleteMarketing).Methods(http.MethodDelete)

	md.HandleFunc("/customers", h.MasterData.ListCustomers).Methods(http.MethodGet)
	md.HandleFunc("/customers", h.MasterData.CreateCustomer).Methods(http.MethodPost)
	md.HandleFunc("/customers/import", h.MasterData.ImportCustomers).Methods(http.MethodPost)
	md.HandleFunc("/customers/{id}", h.MasterData.GetCustomer).Methods(http.MethodGet)
	md.HandleFunc("/customers/{id}", h.MasterData.UpdateCustomer).Methods(http.MethodPut)
	md.HandleFunc("/customers/{id}", h.MasterData.DeleteCustomer).Methods(http.MethodDelete)
	md.HandleFunc("/customers/{id}/products", h.MasterData.ListCustomerProducts).Methods(http.MethodGet)
	md.HandleFunc("/customers/{id}/products", h.MasterData.ManageCustomerProducts).Methods(http.MethodPut)

	md.HandleFunc("/products", h.MasterData.ListProducts).Methods(http.MethodGet)
	md.HandleFunc("/products", h.MasterData.CreateProduct).Methods(http.MethodPost)
	md.HandleFunc("/products/import", h.MasterData.ImportProducts).Methods(http.MethodPost)
	md.HandleFunc("/products/{id}", h.MasterData.GetProduct).Methods(http.MethodGet)
	md.HandleFunc("/products/{id}", h.MasterData.UpdateProduct).Methods(http.MethodPut)
	md.HandleFunc("/products/{id}", h.MasterData.DeleteProduct).Methods(http.MethodDelete)

	sales := api.PathPrefix("/sales").Subrouter()
	sales.HandleFunc("/transactions", h.Transaction.ListTransactions).Methods(http.MethodGet)
	sales.HandleFunc("/transactions", h.Transaction.CreateTransaction).Methods(http.MethodPost)
	sales.HandleFunc("/transactions/{id}", h.Transaction.GetTransaction).Methods(http.MethodGet)
	sales.HandleFunc("/transactions/{id}", h.Transaction.UpdateTransaction).Methods(http.MethodPut)
	sales.HandleFunc("/transactions/{id}", h.Transaction.DeleteTransaction).Methods(http.MethodDelete)
	sales.HandleFunc("/transactions/{id}/status", h.Transaction.ChangeTransactionStatus).Methods(http.MethodPatch)
	sales.HandleFunc("/transactions/{id}/invoice-eligibility", h.Transaction.GetTransactionForInvoice).Methods(http.MethodGet)
	sales.HandleFunc("/transactions/{id}/invoice-summary", h.Transaction.GetTransactionInvoiceSummary).Methods(http.MethodGet)

	ar := api.PathPrefix("/ar").Subrouter()
	ar.HandleFunc("/invoices", h.Receivable.ListInvoices).Methods(http.MethodGet)
	ar.HandleFunc("/invoices", h.Receivable.CreateInvoice).Methods(http.MethodPost)
	ar.HandleFunc("/invoices", h.Receivable.DeleteAllInvoices).Methods(http.MethodDelete)
	ar.HandleFunc("/invoices/preview", h.Receivable.PreviewInvoice).Methods(http.MethodPost)
	ar.HandleFunc("/invoices/export", h.Receivable.ExportInvoices).Methods(http.MethodGet)
	ar.HandleFunc("/invoices/outstanding/{invoiceNo}", h.Receivable.GetOutstandingInvoice).Methods(http.MethodGet)
	ar.HandleFunc("/invoices/{id}", h.Receivable.GetInvoice).Methods(http.MethodGet)
	ar.HandleFunc("/invoices/{id}", h.Receivable.UpdateInvoice).Methods(http.MethodPut)
	ar.HandleFunc("/invoices/{id}", h.Receivable.DeleteInvoice).Methods(http.MethodDelete)

	ar.HandleFunc("/payments", h.Receivable.ListPayments).Methods(http.MethodGet)
	ar.HandleFunc("/payments", h.Receivable.CreatePayment).Methods(http.MethodPost)
	ar.HandleFunc("/payments/{id}", h.Receivable.GetPayment).Methods(http.MethodGet)
	ar.HandleFunc("/payments/{id}", h.Receivable.DeletePayment).Methods(http.MethodDelete)

	var handler http.Handler = router
	handler = gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{}),
		gorillahandlers.PrintRecoveryStack(true),
	)(handler)
	handler = gorillahandlers.CustomLoggingHandler(io.Discard, handler, logRequest)
	handler = requestIDMiddleware(handler)
	handler = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(allowedOrigins),
		gorillahandlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{requestIDHeader, "Content-Disposition"}),
	)(handler)
	return handler
}

// requestIDMiddleware reuses an incoming X-Request-ID or assigns a new one,
// and stores a logger carrying it in the request context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		l := logger.WithRequestID(id)
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

func logRequest(_ io.Writer, params gorillahandlers.LogFormatterParams) {
	logger.Ctx(params.Request.Context()).Info().
		Str("method", params.Request.Method).
		Str("path", params.URL.Path).
		Int("status", params.StatusCode).
		Int("size", params.Size).
		Dur("duration", time.Since(params.TimeStamp)).
		Msg("HTTP request")
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	l := logger.WithComponent("http")
	l.Error().Msg(fmt.Sprint(v...))
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
