package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Marketing is a member of the sales staff who owns transactions.
type Marketing struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type MarketingInput struct {
	Name  string `json:"name" validate:"required,max=150"`
	Email string `json:"email" validate:"omitempty,email,max=150"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

type MarketingFilter struct {
	Name string
}

// Customer is a buyer in the customer master. PIC fields describe the
// customer's person in charge.
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	PICName   string    `db:"pic_name" json:"picName"`
	PICPhone  string    `db:"pic_phone" json:"picPhone"`
	PICEmail  string    `db:"pic_email" json:"picEmail"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CustomerInput struct {
	Code     string `json:"code" validate:"required,max=50"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"omitempty,email,max=150"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Address  string `json:"address" validate:"max=500"`
	City     string `json:"city" validate:"max=100"`
	PICName  string `json:"picName" validate:"max=150"`
	PICPhone string `json:"picPhone" validate:"omitempty,phone"`
	PICEmail string `json:"picEmail" validate:"omitempty,email,max=150"`
}

type CustomerFilter struct {
	Name string
	Code string
	City string
}

type ProductKind string

const (
	ProductKindProduct ProductKind = "PRODUCT"
	ProductKindService ProductKind = "SERVICE"
)

// Product is an entry of the products and services catalog.
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Code        string          `db:"code" json:"code"`
	Name        string          `db:"name" json:"name"`
	Kind        ProductKind     `db:"kind" json:"kind"`
	Unit        string          `db:"unit" json:"unit"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

type ProductInput struct {
	Code        string          `json:"code" validate:"required,max=50"`
	Name        string          `json:"name" validate:"required,max=200"`
	Kind        ProductKind     `json:"kind" validate:"required,oneof=PRODUCT SERVICE"`
	Unit        string          `json:"unit" validate:"max=30"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,money"`
	Description string          `json:"description" validate:"max=1000"`
}

type ProductFilter struct {
	Name string
	Code string
	Kind ProductKind
}

type CustomerProductStatus string

const (
	CustomerProductDeepening CustomerProductStatus = "DEEPENING"
	CustomerProductSuccess   CustomerProductStatus = "SUCCESS"
)

type CustomerProduct struct {
	ID          int64                 `db:"id" json:"id"`
	CustomerID  int64                 `db:"customer_id" json:"customerId"`
	ProductID   int64                 `db:"product_id" json:"productId"`
	ProductCode string                `db:"product_code" json:"productCode"`
	ProductName string                `db:"product_name" json:"productName"`
	Status      CustomerProductStatus `db:"status" json:"status"`
	CreatedAt   time.Time             `db:"created_at" json:"createdAt"`
}

type ManageCustomerProductsInput struct {
	Deepening []int64 `json:"deepening" validate:"dive,gt=0"`
	Success   []int64 `json:"success" validate:"dive,gt=0"`
}
