package clients

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes people from companies.
type Kind string

const (
	KindPerson  Kind = "PERSON"
	KindCompany Kind = "COMPANY"
)

// Client is a customer that can be invoiced.
type Client struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Kind        Kind            `json:"kind"`
	TaxID       string          `json:"tax_id"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreditDays  int             `json:"credit_days"`
	IsActive    bool            `json:"is_active"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Input creates or replaces a client.
type Input struct {
	Code        string          `json:"code" validate:"required,max=20"`
	Name        string          `json:"name" validate:"required,max=200"`
	Kind        Kind            `json:"kind" validate:"omitempty,oneof=PERSON COMPANY"`
	TaxID       string          `json:"tax_id" validate:"max=50"`
	Email       string          `json:"email" validate:"omitempty,email"`
	Phone       string          `json:"phone" validate:"max=50"`
	Address     string          `json:"address" validate:"max=300"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreditDays  *int            `json:"credit_days" validate:"omitempty,gte=0,lte=365"`
	IsActive    *bool           `json:"is_active"`
	Notes       string          `json:"notes"`
}

// ListFilters narrows client listings.
type ListFilters struct {
	Search string
	Active *bool
}
