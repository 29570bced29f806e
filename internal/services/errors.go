package services

import "crm-backoffice/internal/apperror"

var (
	ErrInvalidInput = apperror.BadRequest("validation failed")

	ErrMarketingNotFound = apperror.NotFound("marketing not found")
	ErrCustomerNotFound  = apperror.NotFound("customer not found")
	ErrProductNotFound   = apperror.NotFound("product not found")
	ErrDuplicateCode     = apperror.Conflict("code already exists")
	ErrProductListsClash = apperror.BadRequest("a product cannot be both deepening and success")

	ErrTransactionNotFound     = apperror.NotFound("transaction not found")
	ErrTransactionNotEligible  = apperror.NotFound("transaction is not eligible for invoicing")
	ErrTransactionNotPending   = apperror.BadRequest("only PENDING transactions can be modified")
	ErrTransactionInvoiced     = apperror.Conflict("transaction is referenced by an invoice")
	ErrTransactionCreateFailed = apperror.New(apperror.CodeInternal, "failed to create transaction")
	ErrInvalidStatusTransition = apperror.BadRequest("status transition not allowed")
	ErrUnknownItem             = apperror.BadRequest("item does not belong to the transaction")

	ErrInvoiceNotFound        = apperror.NotFound("invoice not found")
	ErrNoValidTransactions    = apperror.BadRequest("no valid transactions to invoice")
	ErrMixedCustomers         = apperror.BadRequest("transactions belong to different customers")
	ErrDuplicateInvoiceNumber = apperror.Conflict("invoice number already exists")
	ErrInvoiceHasPayments     = apperror.Conflict("invoice has payments attached")

	ErrPaymentNotFound         = apperror.NotFound("payment not found")
	ErrDuplicateAllocation     = apperror.BadRequest("allocations must reference distinct invoices")
	ErrAllocationExceedsTotal  = apperror.BadRequest("allocated amount exceeds total paid")
	ErrNoApplicableAllocation  = apperror.BadRequest("no allocation could be applied")
	ErrDuplicatePaymentNumber  = apperror.Conflict("payment number already exists")
	ErrUnsupportedImportFormat = apperror.BadRequest("unsupported import file format")
)

var ErrUnreadableImport = apperror.BadRequest("import file could not be read")
