package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateLineTotals(t *testing.T) {
	cases := []struct {
		name                     string
		qty, price, disc, tax    string
		subtotal, discount, taxA string
		total                    string
	}{
		{"plain", "2", "50", "0", "13", "100", "0", "13", "113"},
		{"discounted", "3", "10.00", "10", "13", "30", "3", "3.51", "30.51"},
		{"untaxed service", "1.5", "80", "0", "0", "120", "0", "0", "120"},
		{"rounding", "3", "3.33", "5", "13", "9.99", "0.5", "1.23", "10.72"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateLineTotals(dec(tc.qty), dec(tc.price), dec(tc.disc), dec(tc.tax))
			require.True(t, got.Subtotal.Equal(dec(tc.subtotal)), "subtotal %s", got.Subtotal)
			require.True(t, got.Discount.Equal(dec(tc.discount)), "discount %s", got.Discount)
			require.True(t, got.Tax.Equal(dec(tc.taxA)), "tax %s", got.Tax)
			require.True(t, got.Total.Equal(dec(tc.total)), "total %s", got.Total)
			require.True(t, got.Subtotal.Sub(got.Discount).Add(got.Tax).Equal(got.Total))
		})
	}
}

func TestSum(t *testing.T) {
	total := Sum([]LineAmounts{
		CalculateLineTotals(dec("2"), dec("50"), dec("0"), dec("13")),
		CalculateLineTotals(dec("3"), dec("10"), dec("10"), dec("13")),
	})
	require.True(t, total.Total.Equal(dec("143.51")))
	require.True(t, total.Subtotal.Sub(total.Discount).Add(total.Tax).Equal(total.Total))
}
