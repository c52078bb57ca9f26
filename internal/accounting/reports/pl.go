package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
)

// StatementLine is one account in a financial statement section.
type StatementLine struct {
	AccountID int64           `json:"account_id,omitempty"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// Section groups statement lines of one nature.
type Section struct {
	Label string          `json:"label"`
	Lines []StatementLine `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (s *Section) add(line StatementLine) {
	s.Lines = append(s.Lines, line)
	s.Total = s.Total.Add(line.Amount)
}

func (s *Section) sort() {
	sort.Slice(s.Lines, func(i, j int) bool { return s.Lines[i].Code < s.Lines[j].Code })
}

// IncomeStatement contains the structured output for the report.
type IncomeStatement struct {
	PeriodID  int64           `json:"period_id"`
	Revenue   Section         `json:"revenue"`
	Expense   Section         `json:"expense"`
	NetIncome decimal.Decimal `json:"net_income"`
}

func line(b ledger.Balance) StatementLine {
	return StatementLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: b.Closing}
}

// BuildIncomeStatement aggregates revenue and expense accounts. Balances are
// already on their natural side, so both sections read as positive figures.
func BuildIncomeStatement(periodID int64, balances []ledger.Balance) IncomeStatement {
	revenue := Section{Label: "Revenue", Lines: []StatementLine{}}
	expense := Section{Label: "Expense", Lines: []StatementLine{}}

	for _, b := range balances {
		switch b.Type {
		case accounts.AccountTypeRevenue:
			revenue.add(line(b))
		case accounts.AccountTypeExpense:
			expense.add(line(b))
		}
	}
	revenue.sort()
	expense.sort()

	return IncomeStatement{
		PeriodID:  periodID,
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
