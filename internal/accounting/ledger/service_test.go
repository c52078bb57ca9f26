package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/cache"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeUsesNaturalSide(t *testing.T) {
	cases := []struct {
		typ                   accounts.AccountType
		opening, debit, credit string
		want                  string
	}{
		{accounts.AccountTypeAsset, "0", "100", "0", "100"},
		{accounts.AccountTypeAsset, "50", "100", "30", "120"},
		{accounts.AccountTypeExpense, "0", "10", "25", "-15"},
		{accounts.AccountTypeRevenue, "0", "0", "100", "100"},
		{accounts.AccountTypeLiability, "200", "50", "0", "150"},
		{accounts.AccountTypeEquity, "-20", "0", "5", "-15"},
	}
	for _, tc := range cases {
		got := Compute(tc.typ, d(tc.opening), d(tc.debit), d(tc.credit))
		assert.True(t, got.Equal(d(tc.want)), "%s: got %s want %s", tc.typ, got, tc.want)
	}
}

func TestSideOfFlipsOnNegative(t *testing.T) {
	assert.Equal(t, accounts.SideDebit, SideOf(accounts.AccountTypeAsset, d("5")))
	assert.Equal(t, accounts.SideCredit, SideOf(accounts.AccountTypeAsset, d("-5")))
	assert.Equal(t, accounts.SideCredit, SideOf(accounts.AccountTypeRevenue, decimal.Zero))
}

func TestRunBookKeepsRunningBalance(t *testing.T) {
	book := RunBook(accounts.AccountTypeAsset, d("100"), []Movement{
		{EntryID: 1, Debit: d("50")},
		{EntryID: 2, Credit: d("200")},
		{EntryID: 3, Debit: d("70")},
	})
	require.Len(t, book, 3)
	assert.True(t, book[0].Balance.Equal(d("150")))
	assert.True(t, book[1].Balance.Equal(d("-50")))
	assert.Equal(t, accounts.SideCredit, book[1].Side)
	assert.True(t, book[2].Balance.Equal(d("20")))
	assert.Equal(t, accounts.SideDebit, book[2].Side)
}

type stubRepo struct {
	totals []Totals
	calls  int
}

func (s *stubRepo) PeriodExists(_ context.Context, id int64) error {
	if id != 1 {
		return acctshared.ErrPeriodNotFound
	}
	return nil
}

func (s *stubRepo) Totals(context.Context, int64) ([]Totals, error) {
	s.calls++
	return s.totals, nil
}

func (s *stubRepo) AccountTotals(_ context.Context, accountID, _ int64) (Totals, error) {
	for _, t := range s.totals {
		if t.AccountID == accountID {
			return t, nil
		}
	}
	return Totals{AccountID: accountID, Code: "1102", Name: "Bancos", Type: accounts.AccountTypeAsset}, nil
}

func (s *stubRepo) Movements(context.Context, int64, int64) ([]Movement, error) { return nil, nil }

func TestCajaVentasScenario(t *testing.T) {
	repo := &stubRepo{totals: []Totals{
		{AccountID: 1, Code: "1000", Name: "Caja", Type: accounts.AccountTypeAsset, Debit: d("100")},
		{AccountID: 2, Code: "4000", Name: "Ventas", Type: accounts.AccountTypeRevenue, Credit: d("100")},
	}}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	caja, err := svc.Balance(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, caja.Closing.Equal(d("100")))
	assert.Equal(t, accounts.SideDebit, caja.Side)

	ventas, err := svc.Balance(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, ventas.Closing.Equal(d("100")))
	assert.Equal(t, accounts.SideCredit, ventas.Side)

	idle, err := svc.Balance(ctx, 3, 1)
	require.NoError(t, err)
	assert.True(t, idle.Closing.IsZero())

	_, err = svc.Balances(ctx, 9)
	assert.ErrorIs(t, err, acctshared.ErrPeriodNotFound)
}

func TestBalancesCachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &stubRepo{totals: []Totals{
		{AccountID: 1, Code: "1000", Name: "Caja", Type: accounts.AccountTypeAsset, Debit: d("100")},
	}}
	svc := NewService(repo, cache.NewVersioned(client, "ledger", time.Minute), nil)
	ctx := context.Background()

	first, err := svc.Balances(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Balances(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	require.Len(t, first, 1)
	assert.True(t, first[0].Closing.Equal(d("100")))

	repo.totals[0].Debit = d("250")
	require.NoError(t, svc.Invalidate(ctx, 1))
	after, err := svc.Balances(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	assert.True(t, after[0].Closing.Equal(d("250")))
}
