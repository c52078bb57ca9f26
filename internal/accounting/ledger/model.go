package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
)

// Balance is the position of one account over a period.
type Balance struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	Opening   decimal.Decimal      `json:"opening"`
	Debit     decimal.Decimal      `json:"debit"`
	Credit    decimal.Decimal      `json:"credit"`
	Closing   decimal.Decimal      `json:"closing"`
	Side      accounts.Side        `json:"side"`
}

// Movement is one posted entry in the ledger book.
type Movement struct {
	TransactionID int64           `json:"transaction_id"`
	EntryID       int64           `json:"entry_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference"`
	Memo          string          `json:"memo"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
	Side          accounts.Side   `json:"side"`
}

// Book is the chronological ledger of one account in a period.
type Book struct {
	Account   Balance    `json:"account"`
	PeriodID  int64      `json:"period_id"`
	Movements []Movement `json:"movements"`
}

// Totals are the raw sums an account accumulates in a period.
type Totals struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Opening   decimal.Decimal
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Compute returns the closing balance on the natural side of the account type.
// The opening is already expressed on the natural side.
func Compute(t accounts.AccountType, opening, debit, credit decimal.Decimal) decimal.Decimal {
	if t.NaturalSide() == accounts.SideDebit {
		return opening.Add(debit).Sub(credit)
	}
	return opening.Add(credit).Sub(debit)
}

// SideOf labels where a natural-side amount actually sits.
func SideOf(t accounts.AccountType, amount decimal.Decimal) accounts.Side {
	side := t.NaturalSide()
	if amount.IsNegative() {
		return side.Opposite()
	}
	return side
}

// FromTotals derives the balance of an account.
func FromTotals(t Totals) Balance {
	closing := Compute(t.Type, t.Opening, t.Debit, t.Credit)
	return Balance{
		AccountID: t.AccountID,
		Code:      t.Code,
		Name:      t.Name,
		Type:      t.Type,
		Opening:   t.Opening,
		Debit:     t.Debit,
		Credit:    t.Credit,
		Closing:   closing,
		Side:      SideOf(t.Type, closing),
	}
}

// RunBook fills the running balance of movements starting from opening.
func RunBook(t accounts.AccountType, opening decimal.Decimal, movements []Movement) []Movement {
	running := opening
	out := make([]Movement, len(movements))
	for i, m := range movements {
		running = Compute(t, running, m.Debit, m.Credit)
		m.Balance = running
		m.Side = SideOf(t, running)
		out[i] = m
	}
	return out
}
