package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceDownPayment    InvoiceType = "DOWN_PAYMENT"
	InvoicePartialPayment InvoiceType = "PARTIAL_PAYMENT"
	InvoiceFinalPayment   InvoiceType = "FINAL_PAYMENT"
	InvoiceFullPayment    InvoiceType = "FULL_PAYMENT"
)

type InvoiceStatus string

const (
	InvoiceUnpaid        InvoiceStatus = "UNPAID"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
)

// Invoice bills one or more transactions of a single customer.
type Invoice struct {
	ID             int64           `db:"id" json:"id"`
	InvoiceNo      string          `db:"invoice_no" json:"invoiceNo"`
	CustomerID     int64           `db:"customer_id" json:"customerId"`
	Type           InvoiceType     `db:"type" json:"type"`
	Percentage     decimal.Decimal `db:"percentage" json:"percentage"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DPP            decimal.Decimal `db:"dpp" json:"dpp"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	StampDuty      decimal.Decimal `db:"stamp_duty" json:"stampDuty"`
	GrandTotal     decimal.Decimal `db:"grand_total" json:"grandTotal"`
	Status         InvoiceStatus   `db:"status" json:"status"`
	InvoiceDate    time.Time       `db:"invoice_date" json:"invoiceDate"`
	DueDate        *time.Time      `db:"due_date" json:"dueDate"`
	Notes          string          `db:"notes" json:"notes"`
	TransactionIDs []int64         `json:"transactionIds,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

type InvoiceDetail struct {
	*Invoice
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type CreateInvoiceInput struct {
	TransactionIDs []int64          `json:"transactionIds" validate:"required,min=1,dive,gt=0"`
	Type           InvoiceType      `json:"type" validate:"required,oneof=DOWN_PAYMENT PARTIAL_PAYMENT FINAL_PAYMENT FULL_PAYMENT"`
	Percentage     *decimal.Decimal `json:"percentage,omitempty" validate:"omitempty,gt=0,lte=100,money"`
	InvoiceDate    *time.Time       `json:"invoiceDate,omitempty"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	Notes          string           `json:"notes" validate:"max=1000"`
}

type UpdateInvoiceInput struct {
	DueDate   *time.Time       `json:"dueDate,omitempty"`
	Notes     *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	StampDuty *decimal.Decimal `json:"stampDuty,omitempty" validate:"omitempty,gte=0,money"`
}

type InvoiceFilter struct {
	CustomerID int64
	Status     InvoiceStatus
	Type       InvoiceType
	InvoiceNo  string
}

type OutstandingStatus string

const (
	OutstandingNotFound  OutstandingStatus = "not_found"
	OutstandingFullyPaid OutstandingStatus = "fully_paid"
	OutstandingOpen      OutstandingStatus = "outstanding"
)

// OutstandingResult is the tagged answer of an outstanding-balance lookup.
// Amount fields are two-decimal strings and are empty for not_found.
type OutstandingResult struct {
	Status      OutstandingStatus `json:"status"`
	InvoiceNo   string            `json:"invoiceNo"`
	InvoiceID   int64             `json:"invoiceId,omitempty"`
	GrandTotal  string            `json:"grandTotal,omitempty"`
	TotalPaid   string            `json:"totalPaid,omitempty"`
	Outstanding string            `json:"outstanding,omitempty"`
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentGiro         PaymentMethod = "GIRO"
	PaymentCheque       PaymentMethod = "CHEQUE"
)

type Payment struct {
	ID            int64             `db:"id" json:"id"`
	PaymentNo     string            `db:"payment_no" json:"paymentNo"`
	CustomerID    int64             `db:"customer_id" json:"customerId"`
	PaymentMethod PaymentMethod     `db:"payment_method" json:"paymentMethod"`
	PaymentDate   time.Time         `db:"payment_date" json:"paymentDate"`
	TotalPaid     decimal.Decimal   `db:"total_paid" json:"totalPaid"`
	Notes         string            `db:"notes" json:"notes"`
	Allocations   []*PaymentInvoice `json:"allocations,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updatedAt"`
}

// PaymentInvoice is the amount of one payment applied to one invoice.
type PaymentInvoice struct {
	ID         int64           `db:"id" json:"id"`
	PaymentID  int64           `db:"payment_id" json:"paymentId"`
	InvoiceID  int64           `db:"invoice_id" json:"invoiceId"`
	InvoiceNo  string          `db:"invoice_no" json:"invoiceNo,omitempty"`
	AmountPaid decimal.Decimal `db:"amount_paid" json:"amountPaid"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

type PaymentAllocationInput struct {
	InvoiceID  int64           `json:"invoiceId" validate:"required,gt=0"`
	AmountPaid decimal.Decimal `json:"amountPaid" validate:"gt=0,money"`
}

type CreatePaymentInput struct {
	CustomerID    int64                    `json:"customerId" validate:"required,gt=0"`
	PaymentMethod PaymentMethod            `json:"paymentMethod" validate:"required,oneof=CASH BANK_TRANSFER GIRO CHEQUE"`
	PaymentDate   *time.Time               `json:"paymentDate,omitempty"`
	TotalPaid     decimal.Decimal          `json:"totalPaid" validate:"gt=0,money"`
	Notes         string                   `json:"notes" validate:"max=1000"`
	Allocations   []PaymentAllocationInput `json:"allocations" validate:"required,min=1,dive"`
}

type PaymentFilter struct {
	CustomerID    int64
	PaymentMethod PaymentMethod
}

type AllocationOutcomeKind string

const (
	AllocationApplied AllocationOutcomeKind = "applied"
	AllocationSkipped AllocationOutcomeKind = "skipped"
)

// AllocationOutcome reports what happened to one requested allocation.
type AllocationOutcome struct {
	InvoiceID     int64                 `json:"invoiceId"`
	AmountPaid    decimal.Decimal       `json:"amountPaid"`
	Outcome       AllocationOutcomeKind `json:"outcome"`
	Reason        string                `json:"reason,omitempty"`
	InvoiceStatus InvoiceStatus         `json:"invoiceStatus,omitempty"`
	PaidToDate    *decimal.Decimal      `json:"paidToDate,omitempty"`
}

type PaymentResult struct {
	Payment     *Payment            `json:"payment"`
	Allocations []AllocationOutcome `json:"allocations"`
}
