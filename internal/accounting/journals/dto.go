package journals

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// TransactionInput is the payload for creating a draft transaction.
type TransactionInput struct {
	PeriodID    int64  `json:"period_id" validate:"required,gt=0"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"required,max=500"`
	Type        Type   `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    string `json:"category" validate:"max=100"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Reference   string `json:"reference" validate:"max=100"`
	Notes       string `json:"notes" validate:"max=2000"`
}

// TransactionUpdate holds the fields editable while a transaction is a draft.
type TransactionUpdate struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"required,max=500"`
	Type        Type   `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    string `json:"category" validate:"max=100"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Reference   string `json:"reference" validate:"max=100"`
	Notes       string `json:"notes" validate:"max=2000"`
}

// EntryInput is one journal line. Exactly one of Debit and Credit is positive.
type EntryInput struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo" validate:"max=500"`
}

// PostingInput creates and posts a balanced transaction in one step.
type PostingInput struct {
	PeriodID    int64
	Date        time.Time
	Description string
	Type        Type
	Category    string
	Reference   string
	Notes       string
	Kind        Kind
	SourceRef   string
	Lines       []EntryInput
}

// VoidInput soft deletes a transaction.
type VoidInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

type header struct {
	date        time.Time
	description string
	kind        Type
	category    string
	currency    string
	reference   string
	notes       string
}

func parseHeader(date, description string, typ Type, category, currency, reference, notes string) (header, error) {
	verr := &shared.ValidationError{}
	d, err := acctshared.ParseDate(date)
	if err != nil {
		verr.Add("date", "must be a date formatted 2006-01-02")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		verr.Add("description", "is required")
	}
	if typ != TypeIncome && typ != TypeExpense {
		verr.Add("type", "must be one of INCOME EXPENSE")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		verr.Add("currency", "must be a three letter code")
	}
	return header{
		date:        d,
		description: description,
		kind:        typ,
		category:    strings.TrimSpace(category),
		currency:    currency,
		reference:   strings.TrimSpace(reference),
		notes:       strings.TrimSpace(notes),
	}, verr.Err()
}

func (in TransactionInput) header() (header, error) {
	return parseHeader(in.Date, in.Description, in.Type, in.Category, in.Currency, in.Reference, in.Notes)
}

func (in TransactionUpdate) header() (header, error) {
	return parseHeader(in.Date, in.Description, in.Type, in.Category, in.Currency, in.Reference, in.Notes)
}
