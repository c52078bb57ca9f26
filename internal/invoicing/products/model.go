package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes goods from services.
type Kind string

const (
	KindProduct Kind = "PRODUCT"
	KindService Kind = "SERVICE"
)

// DefaultTaxRate is the VAT percentage applied to taxable products.
var DefaultTaxRate = decimal.NewFromInt(13)

// Product is something that can be sold on an invoice line.
type Product struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kind        Kind            `json:"kind"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Taxable     bool            `json:"taxable"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EffectiveTaxRate is the rate charged on invoice lines.
func (p Product) EffectiveTaxRate() decimal.Decimal {
	if !p.Taxable {
		return decimal.Zero
	}
	return p.TaxRate
}

// Input creates or replaces a product.
type Input struct {
	Code        string           `json:"code" validate:"required,max=20"`
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description"`
	Kind        Kind             `json:"kind" validate:"omitempty,oneof=PRODUCT SERVICE"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Taxable     *bool            `json:"taxable"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
	IsActive    *bool            `json:"is_active"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search string
	Kind   Kind
	Active *bool
}
