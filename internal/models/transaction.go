package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionInvoiced TransactionStatus = "INVOICED"
	TransactionDone     TransactionStatus = "DONE"
	TransactionCanceled TransactionStatus = "CANCELED"
)

// Transaction is a sale recorded by a marketing for a customer. Its money
// fields always satisfy GrandTotal = Subtotal + TaxAmount + StampDuty.
type Transaction struct {
	ID              int64              `db:"id" json:"id"`
	MarketingID     int64              `db:"marketing_id" json:"marketingId"`
	CustomerID      int64              `db:"customer_id" json:"customerId"`
	TransactionDate time.Time          `db:"transaction_date" json:"transactionDate"`
	Subtotal        decimal.Decimal    `db:"subtotal" json:"subtotal"`
	TaxAmount       decimal.Decimal    `db:"tax_amount" json:"taxAmount"`
	StampDuty       decimal.Decimal    `db:"stamp_duty" json:"stampDuty"`
	GrandTotal      decimal.Decimal    `db:"grand_total" json:"grandTotal"`
	Status          TransactionStatus  `db:"status" json:"status"`
	Notes           string             `db:"notes" json:"notes"`
	Items           []*TransactionItem `json:"items,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updatedAt"`
}

// TransactionItem holds the price copied from the product when the line was
// written; later product price changes do not touch it.
type TransactionItem struct {
	ID            int64           `db:"id" json:"id"`
	TransactionID int64           `db:"transaction_id" json:"transactionId"`
	ProductID     int64           `db:"product_id" json:"productId"`
	Qty           int             `db:"qty" json:"qty"`
	Price         decimal.Decimal `db:"price" json:"price"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

type TransactionItemInput struct {
	ID        *int64          `json:"id,omitempty" validate:"omitempty,gt=0"`
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Qty       int             `json:"qty" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price" validate:"gte=0,money"`
}

type CreateTransactionInput struct {
	MarketingID     int64                  `json:"marketingId" validate:"required,gt=0"`
	CustomerID      int64                  `json:"customerId" validate:"required,gt=0"`
	TransactionDate *time.Time             `json:"transactionDate,omitempty"`
	Items           []TransactionItemInput `json:"items" validate:"required,min=1,dive"`
	TaxAmount       decimal.Decimal        `json:"taxAmount" validate:"gte=0,money"`
	StampDuty       decimal.Decimal        `json:"stampDuty" validate:"gte=0,money"`
	Notes           string                 `json:"notes" validate:"max=1000"`
}

// UpdateTransactionInput leaves a field unchanged when it is nil. A non-nil
// Items replaces the item set by id.
type UpdateTransactionInput struct {
	MarketingID *int64                 `json:"marketingId,omitempty" validate:"omitempty,gt=0"`
	CustomerID  *int64                 `json:"customerId,omitempty" validate:"omitempty,gt=0"`
	TaxAmount   *decimal.Decimal       `json:"taxAmount,omitempty" validate:"omitempty,gte=0,money"`
	StampDuty   *decimal.Decimal       `json:"stampDuty,omitempty" validate:"omitempty,gte=0,money"`
	Notes       *string                `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items       []TransactionItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type ChangeTransactionStatusInput struct {
	Status TransactionStatus `json:"status" validate:"required,oneof=PENDING INVOICED DONE CANCELED"`
}

type TransactionFilter struct {
	CustomerID  int64
	MarketingID int64
	Status      TransactionStatus
	DateFrom    *time.Time
	DateTo      *time.Time
}

type TransactionInvoiceSummary struct {
	TransactionID      int64           `json:"transactionId"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
	InvoicedAmount     decimal.Decimal `json:"invoicedAmount"`
	RemainingAmount    decimal.Decimal `json:"remainingAmount"`
	PercentageInvoiced int64           `json:"percentageInvoiced"`
	InvoiceNos         []string        `json:"invoiceNos"`
}
