package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/shared"
	_ "github.com/ledgerbook/ledgerbook/testing"
)

func newTestStack(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	csrf := shared.NewCSRFManager("csrf-secret")

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:         cfg,
		SessionManager: shared.NewSessionManager(client, "lb_test", time.Hour, false),
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	created := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}
	r.Post(APIPrefix+"/things", created)
	r.Post("/things", created)
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		token, err := csrf.EnsureToken(shared.SessionFromContext(r.Context()))
		require.NoError(t, err)
		_, _ = io.WriteString(w, token)
	})
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, shared.ActorFromContext(r.Context()).Name)
	})
	return r
}

func testConfig(authRequired bool) *Config {
	return &Config{AppEnv: "test", AuthRequired: authRequired, RateLimitPerMinute: 1000}
}

func TestJSONAPIMutationsSkipCSRF(t *testing.T) {
	h := newTestStack(t, testConfig(false))

	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/things", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// form encoded posts to the API still need a token
	req = httptest.NewRequest(http.MethodPost, APIPrefix+"/things", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFormPostNeedsSessionToken(t *testing.T) {
	h := newTestStack(t, testConfig(false))

	req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Body.String()
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodPost, "/things", strings.NewReader("csrf_token="+token))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthRequiredBlocksAnonymousMutations(t *testing.T) {
	h := newTestStack(t, testConfig(true))

	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/things", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Unauthorized", problem["code"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, shared.SystemActor.Name, rec.Body.String())
}

func TestIsJSONAPIRequest(t *testing.T) {
	cases := []struct {
		path, contentType string
		want              bool
	}{
		{APIPrefix + "/accounts", "application/json", true},
		{APIPrefix + "/accounts", "application/json; charset=utf-8", true},
		{APIPrefix + "/accounts", "text/plain", false},
		{"/accounts", "application/json", false},
		{APIPrefix + "/accounts", "", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.path, nil)
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		require.Equal(t, tc.want, isJSONAPIRequest(req), tc.path+" "+tc.contentType)
	}
}
