package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks the lifecycle of a transaction.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// Type is the business classification of a transaction.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// Kind tells how the transaction was produced.
type Kind string

const (
	KindManual     Kind = "MANUAL"
	KindInvoice    Kind = "INVOICE"
	KindAdjustment Kind = "ADJUSTMENT"
	KindPayment    Kind = "PAYMENT"
)

// Transaction groups journal entries that post together.
type Transaction struct {
	ID          int64      `json:"id"`
	PeriodID    int64      `json:"period_id"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description"`
	Type        Type       `json:"type"`
	Category    string     `json:"category"`
	Currency    string     `json:"currency"`
	Reference   string     `json:"reference"`
	Notes       string     `json:"notes"`
	Kind        Kind       `json:"kind"`
	SourceRef   *string    `json:"source_ref,omitempty"`
	Status      Status     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	PostedBy    *string    `json:"posted_by,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`
	VoidReason  string     `json:"void_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Entries     []Entry    `json:"entries,omitempty"`
}

// Totals sums both sides of the entries.
func (t Transaction) Totals() (debit, credit decimal.Decimal) {
	return Totals(t.Entries)
}

// Editable reports whether the transaction and its entries may change.
func (t Transaction) Editable() bool {
	return t.Status == StatusDraft
}

// Entry is one debit or credit line of a transaction.
type Entry struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	AccountCode   string          `json:"account_code,omitempty"`
	AccountName   string          `json:"account_name,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Memo          string          `json:"memo"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Totals sums both sides of entries.
func Totals(entries []Entry) (debit, credit decimal.Decimal) {
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// AccountRef is what posting needs to know about an account.
type AccountRef struct {
	ID              int64
	Code            string
	Name            string
	AcceptsPostings bool
	IsActive        bool
}

// PeriodRef is what posting needs to know about a period.
type PeriodRef struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Open      bool
}

// ListFilters narrows transaction listings.
type ListFilters struct {
	PeriodID *int64
	Status   Status
	Kind     Kind
	From     *time.Time
	To       *time.Time
	Search   string
	Page     int
	PerPage  int
}

// Summary counts transactions by status for the dashboard.
type Summary struct {
	Drafts int `json:"drafts"`
	Posted int `json:"posted"`
	Voided int `json:"voided"`
}
