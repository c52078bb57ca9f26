package journals

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewAPI(nil, NewService(newMemRepo(), nil, nil)).MountRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
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
		"DELETE /entries/{id}",
		"DELETE /transactions/{id}",
		"GET /transactions",
		"GET /transactions/{id}",
		"POST /transactions",
		"POST /transactions/{id}/entries",
		"POST /transactions/{id}/post",
		"PUT /entries/{id}",
		"PUT /transactions/{id}",
	}, got)
}

func TestAPIUnbalancedPostThenFix(t *testing.T) {
	h := newTestAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/transactions",
		`{"period_id":1,"date":"2025-01-15","description":"Venta de contado","type":"INCOME"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusDraft, created.Status)

	rec = doJSON(t, h, http.MethodPost, "/transactions/1/entries", `{"account_id":1000,"debit":"100","credit":"0"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doJSON(t, h, http.MethodPost, "/transactions/1/entries", `{"account_id":4000,"debit":"0","credit":"90"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var credit Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &credit))

	rec = doJSON(t, h, http.MethodPost, "/transactions/1/post", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	problem := decodeProblem(t, rec)
	assert.Equal(t, "UnbalancedTransaction", problem.Code)
	assert.Equal(t, "10.00", problem.Meta["delta"])
	assert.Equal(t, "100.00", problem.Meta["debit"])
	assert.Equal(t, "90.00", problem.Meta["credit"])

	rec = doJSON(t, h, http.MethodGet, "/transactions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var still Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &still))
	assert.Equal(t, StatusDraft, still.Status)

	rec = doJSON(t, h, http.MethodPut, "/entries/"+strconv.FormatInt(credit.ID, 10), `{"account_id":4000,"debit":"0","credit":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/transactions/1/post", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var posted Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posted))
	assert.Equal(t, StatusPosted, posted.Status)

	rec = doJSON(t, h, http.MethodPost, "/transactions/1/entries", `{"account_id":1000,"debit":"1","credit":"0"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TransactionLocked", decodeProblem(t, rec).Code)
}

func TestAPIEntryValidation(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodPost, "/transactions",
		`{"period_id":1,"date":"2025-01-15","description":"Compra","type":"EXPENSE"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/transactions/1/entries", `{"account_id":1000,"debit":"10000000000000000","credit":"0"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	problem := decodeProblem(t, rec)
	assert.Equal(t, "ValidationError", problem.Code)
	fields, ok := problem.Meta["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "amount")

	rec = doJSON(t, h, http.MethodPost, "/transactions/1/entries", `{"account_id":1,"debit":"5","credit":"0"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/transactions/42/post", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
