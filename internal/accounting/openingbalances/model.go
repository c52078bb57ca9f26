package openingbalances

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
)

// Status of an opening balance.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusAnnulled Status = "ANNULLED"
)

// OpeningBalance is an account's starting position in a period, on its natural side.
type OpeningBalance struct {
	ID          int64                `json:"id"`
	PeriodID    int64                `json:"period_id"`
	AccountID   int64                `json:"account_id"`
	AccountCode string               `json:"account_code"`
	AccountName string               `json:"account_name"`
	AccountType accounts.AccountType `json:"account_type"`
	Amount      decimal.Decimal      `json:"amount"`
	Status      Status               `json:"status"`
	Notes       string               `json:"notes"`
	CreatedBy   string               `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Side reports where the amount sits.
func (o OpeningBalance) Side() accounts.Side {
	side := o.AccountType.NaturalSide()
	if o.Amount.IsNegative() {
		return side.Opposite()
	}
	return side
}

// Input creates an opening balance.
type Input struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes" validate:"max=500"`
}

// UpdateInput changes the amount or notes of an active opening balance.
type UpdateInput struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes" validate:"max=500"`
}

// AccountRef is what the rules need to know about the account.
type AccountRef struct {
	ID              int64
	Code            string
	Name            string
	Type            accounts.AccountType
	AcceptsPostings bool
	IsActive        bool
}

// PeriodRef is what the rules need to know about the period.
type PeriodRef struct {
	ID   int64
	Name string
	Open bool
}
