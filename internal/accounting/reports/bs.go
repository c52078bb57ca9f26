package reports

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
)

// CurrentEarningsCode labels the synthetic equity line carrying net income.
const CurrentEarningsCode = "RESULT"

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	PeriodID                  int64           `json:"period_id"`
	Assets                    Section         `json:"assets"`
	Liabilities               Section         `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	CurrentEarnings           decimal.Decimal `json:"current_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	Balanced                  bool            `json:"balanced"`
}

// BuildBalanceSheet aggregates balances into assets, liabilities and equity.
// The period's net income is shown as a current earnings equity line so the
// sheet balances before closing entries exist.
func BuildBalanceSheet(periodID int64, balances []ledger.Balance) BalanceSheet {
	assets := Section{Label: "Assets", Lines: []StatementLine{}}
	liabilities := Section{Label: "Liabilities", Lines: []StatementLine{}}
	equity := Section{Label: "Equity", Lines: []StatementLine{}}

	for _, b := range balances {
		switch b.Type {
		case accounts.AccountTypeAsset:
			assets.add(line(b))
		case accounts.AccountTypeLiability:
			liabilities.add(line(b))
		case accounts.AccountTypeEquity:
			equity.add(line(b))
		}
	}
	assets.sort()
	liabilities.sort()
	equity.sort()

	earnings := BuildIncomeStatement(periodID, balances).NetIncome
	if !earnings.IsZero() {
		equity.add(StatementLine{Code: CurrentEarningsCode, Name: "Current period earnings", Amount: earnings})
	}

	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		PeriodID:                  periodID,
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		CurrentEarnings:           earnings,
		TotalLiabilitiesAndEquity: total,
		Balanced:                  assets.Total.Round(2).Equal(total.Round(2)),
	}
}
