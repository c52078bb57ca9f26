package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
)

// GroupKey returns a key used for grouping trial balance rows.
func GroupKey(code string) string {
	if idx := strings.Index(code, "."); idx > 0 {
		return code[:idx]
	}
	if len(code) >= 2 {
		return code[:2]
	}
	return code
}

// TrialBalanceRow is one account of the trial balance. The closing balance is
// placed in exactly one of BalanceDebit and BalanceCredit.
type TrialBalanceRow struct {
	AccountID     int64                `json:"account_id"`
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	Type          accounts.AccountType `json:"type"`
	Opening       decimal.Decimal      `json:"opening"`
	Debit         decimal.Decimal      `json:"debit"`
	Credit        decimal.Decimal      `json:"credit"`
	BalanceDebit  decimal.Decimal      `json:"balance_debit"`
	BalanceCredit decimal.Decimal      `json:"balance_credit"`
}

// TrialBalanceGroup aggregates rows for presentation.
type TrialBalanceGroup struct {
	Key           string            `json:"key"`
	Rows          []TrialBalanceRow `json:"rows"`
	Debit         decimal.Decimal   `json:"debit"`
	Credit        decimal.Decimal   `json:"credit"`
	BalanceDebit  decimal.Decimal   `json:"balance_debit"`
	BalanceCredit decimal.Decimal   `json:"balance_credit"`
}

// TrialBalance is the final structure rendered in the UI and API.
type TrialBalance struct {
	PeriodID      int64               `json:"period_id"`
	Groups        []TrialBalanceGroup `json:"groups"`
	TotalDebit    decimal.Decimal     `json:"total_debit"`
	TotalCredit   decimal.Decimal     `json:"total_credit"`
	BalanceDebit  decimal.Decimal     `json:"balance_debit"`
	BalanceCredit decimal.Decimal     `json:"balance_credit"`
	Balanced      bool                `json:"balanced"`
	Delta         decimal.Decimal     `json:"delta"`
}

// PlaceBalance puts a natural-side closing amount into the debit or credit column.
func PlaceBalance(b ledger.Balance) (debit, credit decimal.Decimal) {
	amount := b.Closing.Abs()
	if ledger.SideOf(b.Type, b.Closing) == accounts.SideDebit {
		return amount, decimal.Zero
	}
	return decimal.Zero, amount
}

// BuildTrialBalance converts ledger balances into grouped trial balance data.
// Totals are compared after rounding to cents and are never corrected.
func BuildTrialBalance(periodID int64, balances []ledger.Balance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, b := range balances {
		key := GroupKey(b.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		balDebit, balCredit := PlaceBalance(b)
		row := TrialBalanceRow{
			AccountID:     b.AccountID,
			Code:          b.Code,
			Name:          b.Name,
			Type:          b.Type,
			Opening:       b.Opening,
			Debit:         b.Debit,
			Credit:        b.Credit,
			BalanceDebit:  balDebit,
			BalanceCredit: balCredit,
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.BalanceDebit = grp.BalanceDebit.Add(balDebit)
		grp.BalanceCredit = grp.BalanceCredit.Add(balCredit)
	}

	sort.Strings(keys)
	result := TrialBalance{PeriodID: periodID, Groups: []TrialBalanceGroup{}}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
		result.BalanceDebit = result.BalanceDebit.Add(grp.BalanceDebit)
		result.BalanceCredit = result.BalanceCredit.Add(grp.BalanceCredit)
	}
	result.Delta = result.BalanceDebit.Round(2).Sub(result.BalanceCredit.Round(2)).Abs()
	result.Balanced = result.Delta.IsZero()
	return result
}
