package view_test

import (
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/dashboard"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/invoices"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

func TestNewEngine(t *testing.T) {
	engine, err := view.NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)

	for _, page := range []string{
		"dashboard", "error", "login",
		"accounts_list", "account_detail",
		"periods_list", "period_detail",
		"transactions_list", "transaction_detail",
		"adjustments_list", "ledger",
		"trial_balance", "balance_sheet", "income_statement",
		"invoices_list", "invoice_detail",
	} {
		assert.True(t, engine.Has(page), page)
	}
}

func render(t *testing.T, page string, data any) string {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, page, view.TemplateData{
		Title:       "Test",
		CSRFToken:   "tok",
		CurrentPath: "/",
		User:        &shared.Actor{ID: 1, Name: "Ana"},
		Flash:       &shared.FlashMessage{Kind: "success", Message: "saved"},
		Data:        data,
	}))
	return rec.Body.String()
}

func TestRenderTrialBalanceMismatchBanner(t *testing.T) {
	period := periods.Period{ID: 2, Name: "January", Status: periods.PeriodStatusOpen}
	body := render(t, "trial_balance", reports.TrialBalanceViewModel{
		Period:  period,
		Periods: []periods.Period{period},
		Report:  reports.TrialBalance{PeriodID: 2, TotalDebit: decimal.NewFromInt(100), TotalCredit: decimal.NewFromInt(90)},
		Mismatch: &acctshared.TrialBalanceMismatchError{
			PeriodID:    2,
			DebitTotal:  decimal.NewFromInt(100),
			CreditTotal: decimal.NewFromInt(90),
		},
	})
	assert.Contains(t, body, "does not balance")
	assert.Contains(t, body, "10.00")
	assert.Contains(t, body, `value="TRIAL_BALANCE"`)
	assert.Contains(t, body, "saved")
}

func TestRenderDashboardWithoutPeriod(t *testing.T) {
	body := render(t, "dashboard", dashboard.Overview{})
	assert.Contains(t, body, "No open period covers today")
}

func TestRenderLedgerWithoutPeriods(t *testing.T) {
	body := render(t, "ledger", map[string]any{"Periods": []periods.Period{}})
	assert.Contains(t, body, "No balances to show")
}

func TestRenderInvoiceDetail(t *testing.T) {
	txID := int64(31)
	body := render(t, "invoice_detail", map[string]any{
		"Invoice": invoices.Invoice{
			ID:            5,
			Number:        "F-000005",
			Status:        invoices.StatusIssued,
			Total:         decimal.RequireFromString("1130"),
			TransactionID: &txID,
		},
		"Methods": invoices.PaymentMethods,
	})
	assert.Contains(t, body, "1,130.00")
	assert.Contains(t, body, "/transactions/31")
	assert.Contains(t, body, "Record payment")
	assert.NotContains(t, body, "Confirm and post")
}

func TestRenderErrorPage(t *testing.T) {
	body := render(t, "error", httpx.ProblemFor(acctshared.ErrPeriodNotFound))
	assert.Contains(t, body, "404")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1,234,567.89", view.Money(decimal.RequireFromString("1234567.891")))
	assert.Equal(t, "-5.00", view.Money(decimal.NewFromInt(-5)))
}
