package invoices

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusIssued  Status = "ISSUED"
	StatusPaid    Status = "PAID"
	StatusOverdue Status = "OVERDUE"
	StatusVoid    Status = "VOID"
)

// Collectible reports whether the invoice still awaits payment.
func (s Status) Collectible() bool {
	return s == StatusIssued || s == StatusOverdue
}

// Counted reports whether the invoice counts as a sale.
func (s Status) Counted() bool {
	return s == StatusIssued || s == StatusOverdue || s == StatusPaid
}

// PaymentMethods lists accepted payment methods.
var PaymentMethods = []string{"CASH", "TRANSFER", "CARD", "CHECK"}

// FormatNumber renders the sequential invoice number.
func FormatNumber(n int64) string {
	return fmt.Sprintf("F-%06d", n)
}

// Invoice is a sales document addressed to a client.
type Invoice struct {
	ID                   int64           `json:"id"`
	Number               string          `json:"number"`
	ClientID             int64           `json:"client_id"`
	ClientCode           string          `json:"client_code"`
	ClientName           string          `json:"client_name"`
	IssueDate            time.Time       `json:"issue_date"`
	DueDate              time.Time       `json:"due_date"`
	Status               Status          `json:"status"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	Discount             decimal.Decimal `json:"discount"`
	Tax                  decimal.Decimal `json:"tax"`
	Total                decimal.Decimal `json:"total"`
	Notes                string          `json:"notes"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	TransactionID        *int64          `json:"transaction_id,omitempty"`
	PaymentTransactionID *int64          `json:"payment_transaction_id,omitempty"`
	CreatedBy            string          `json:"created_by"`
	IssuedAt             *time.Time      `json:"issued_at,omitempty"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	VoidedAt             *time.Time      `json:"voided_at,omitempty"`
	VoidReason           string          `json:"void_reason,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Lines                []Line          `json:"lines,omitempty"`
}

// Net is the taxable base: subtotal less discount.
func (i Invoice) Net() decimal.Decimal {
	return i.Subtotal.Sub(i.Discount)
}

// Line is one product sold on an invoice.
type Line struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	ProductID   int64           `json:"product_id"`
	ProductCode string          `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Input creates a draft invoice.
type Input struct {
	ClientID  int64       `json:"client_id" validate:"required,gt=0"`
	IssueDate string      `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate   string      `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string      `json:"notes"`
	Lines     []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// LineInput is one requested invoice line. A nil UnitPrice takes the
// product's current price.
type LineInput struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal  `json:"discount_pct"`
}

// PayInput records a payment for the whole invoice.
type PayInput struct {
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Method string `json:"method" validate:"required,oneof=CASH TRANSFER CARD CHECK"`
}

// AnnulInput voids an invoice.
type AnnulInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListFilters narrows invoice listings.
type ListFilters struct {
	Status   Status
	ClientID int64
	From     *time.Time
	To       *time.Time
	Search   string
	Page     int
	PerPage  int
}
