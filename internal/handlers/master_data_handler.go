package handlers

import (
	"context"
	"io"
	"net/http"

	"crm-backoffice/internal/apperror"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/services"
)

const maxImportSize = 10 << 20

type MasterDataHandler struct {
	customerService  *services.CustomerService
	productService   *services.ProductService
	marketingService *services.MarketingService
	importService    *services.ImportService
}

func NewMasterDataHandler(
	customerService *services.CustomerService,
	productService *services.ProductService,
	marketingService *services.MarketingService,
	importService *services.ImportService,
) *MasterDataHandler {
	return &MasterDataHandler{
		customerService:  customerService,
		productService:   productService,
		marketingService: marketingService,
		importService:    importService,
	}
}

func (h *MasterDataHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.CustomerFilter{Name: q.Get("name"), Code: q.Get("code"), City: q.Get("city")}
	page := pageRequest(r)

	customers, pagination, err := h.customerService.ListCustomers(r.Context(), filter, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithPage(w, "Customers retrieved", customers, pagination)
}

func (h *MasterDataHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var input models.CustomerInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	customer, err := h.customerService.CreateCustomer(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Customer created", customer)
}

func (h *MasterDataHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	customer, err := h.customerService.GetCustomer(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Customer retrieved", customer)
}

func (h *MasterDataHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.CustomerInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	customer, err := h.customerService.UpdateCustomer(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Customer updated", customer)
}

func (h *MasterDataHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.customerService.DeleteCustomer(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Customer deleted", nil)
}

func (h *MasterDataHandler) ListCustomerProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	products, err := h.customerService.ListCustomerProducts(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Customer products retrieved", products)
}

func (h *MasterDataHandler) ManageCustomerProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.ManageCustomerProductsInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	products, err := h.customerService.ManageCustomerProducts(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Customer products updated", products)
}

func (h *MasterDataHandler) ImportCustomers(w http.ResponseWriter, r *http.Request) {
	h.handleImport(w, r, h.importService.ImportCustomers)
}

func (h *MasterDataHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ProductFilter{Name: q.Get("name"), Code: q.Get("code"), Kind: models.ProductKind(q.Get("kind"))}
	page := pageRequest(r)

	products, pagination, err := h.productService.ListProducts(r.Context(), filter, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithPage(w, "Products retrieved", products, pagination)
}

func (h *MasterDataHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input models.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Product created", product)
}

func (h *MasterDataHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Product retrieved", product)
}

func (h *MasterDataHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Product updated", product)
}

func (h *MasterDataHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Product deleted", nil)
}

func (h *MasterDataHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	h.handleImport(w, r, h.importService.ImportProducts)
}

func (h *MasterDataHandler) ListMarketings(w http.ResponseWriter, r *http.Request) {
	filter := models.MarketingFilter{Name: r.URL.Query().Get("name")}
	page := pageRequest(r)

	marketings, pagination, err := h.marketingService.ListMarketings(r.Context(), filter, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithPage(w, "Marketings retrieved", marketings, pagination)
}

func (h *MasterDataHandler) CreateMarketing(w http.ResponseWriter, r *http.Request) {
	var input models.MarketingInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	marketing, err := h.marketingService.CreateMarketing(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Marketing created", marketing)
}

func (h *MasterDataHandler) GetMarketing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	marketing, err := h.marketingService.GetMarketing(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Marketing retrieved", marketing)
}

func (h *MasterDataHandler) UpdateMarketing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input models.MarketingInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}

	marketing, err := h.marketingService.UpdateMarketing(r.Context(), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Marketing updated", marketing)
}

func (h *MasterDataHandler) DeleteMarketing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.marketingService.DeleteMarketing(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Marketing deleted", nil)
}

type importFunc func(ctx context.Context, filename string, r io.Reader) (*services.IngestionResult, error)

func (h *MasterDataHandler) handleImport(w http.ResponseWriter, r *http.Request, run importFunc) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondWithError(w, r, apperror.Wrap(errInvalidPayload, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, r, errMissingFile)
		return
	}
	defer file.Close()

	result, err := run(r.Context(), header.Filename, file)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusPartialContent
	}
	respondWithData(w, status, "Import processed", result)
}
