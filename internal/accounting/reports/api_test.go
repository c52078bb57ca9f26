package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
)

func serveAPI(svc *Service, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewAPI(nil, svc).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestAPIRoutes(t *testing.T) {
	r := chi.NewRouter()
	NewAPI(nil, nil).MountRoutes(r)

	var got []string
	require.NoError(t, chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+strings.TrimSuffix(route, "/"))
		return nil
	}))
	sort.Strings(got)
	assert.Equal(t, []string{
		"GET /reports/balance-sheet",
		"GET /reports/income-statement",
		"GET /reports/snapshots",
		"GET /reports/snapshots/{id}",
		"GET /reports/trial-balance",
		"POST /reports/snapshots",
	}, got)
}

func TestAPITrialBalanceMismatchCarriesReport(t *testing.T) {
	svc := NewService(stubLedger{balances: []ledger.Balance{
		balance("1000", "Caja", accounts.AccountTypeAsset, "0", "100", "0"),
		balance("4000", "Ventas", accounts.AccountTypeRevenue, "0", "0", "90"),
	}}, &memSnapshots{}, nil, nil)

	rec := serveAPI(svc, http.MethodGet, "/reports/trial-balance?period=1")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "TrialBalanceMismatch", problem.Code)
	assert.Equal(t, "10.00", problem.Meta["delta"])

	report, ok := problem.Meta["report"].(map[string]any)
	require.True(t, ok, "meta.report missing: %s", rec.Body.String())
	assert.EqualValues(t, 1, report["period_id"])
	groups, ok := report["groups"].([]any)
	require.True(t, ok)
	assert.Len(t, groups, 2)
}

func TestAPITrialBalanceBalanced(t *testing.T) {
	svc := NewService(stubLedger{balances: scenario()}, &memSnapshots{}, nil, nil)

	rec := serveAPI(svc, http.MethodGet, "/reports/trial-balance?period=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tb TrialBalance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tb))
	assert.True(t, tb.Balanced)
	assert.True(t, tb.BalanceDebit.Equal(d("1500")))
}

func TestAPIReportsRequirePeriod(t *testing.T) {
	svc := NewService(stubLedger{balances: scenario()}, &memSnapshots{}, nil, nil)
	for _, target := range []string{"/reports/trial-balance", "/reports/balance-sheet?period=x", "/reports/income-statement?period=-1"} {
		rec := serveAPI(svc, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}
