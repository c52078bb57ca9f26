package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbook/ledgerbook/internal/shared"
	_ "github.com/ledgerbook/ledgerbook/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "ledgerbook_test", time.Hour, false)
}

func TestSessionRoundTripKeepsUserAndFlash(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser(shared.Actor{ID: 9, Name: "bookkeeper"})
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "saved"})

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range res.Result().Cookies() {
		next.AddCookie(c)
	}
	loaded, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.ID != sess.ID {
		t.Fatalf("expected same session id, got %s and %s", sess.ID, loaded.ID)
	}
	user, ok := loaded.User()
	if !ok || user.Name != "bookkeeper" || user.ID != 9 {
		t.Fatalf("unexpected user %+v", user)
	}
	flash := loaded.PopFlash()
	if flash == nil || flash.Message != "saved" {
		t.Fatalf("expected flash, got %+v", flash)
	}
	if loaded.PopFlash() != nil {
		t.Fatalf("flash must be consumed once")
	}
}

func TestSessionUnknownCookieGetsFreshID(t *testing.T) {
	sm := newSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "forged"})

	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.ID == "forged" {
		t.Fatalf("client supplied session id must not be adopted")
	}
}

func TestCSRFToken(t *testing.T) {
	sm := newSessionManager(t)
	csrf := shared.NewCSRFManager("secret")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	token, err := csrf.EnsureToken(sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	again, _ := csrf.EnsureToken(sess)
	if token != again {
		t.Fatalf("token must be stable within a session")
	}
	if err := csrf.VerifyToken(sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := csrf.VerifyToken(sess, "nope"); err != shared.ErrCSRFTokenMismatch {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := csrf.VerifyToken(sess, ""); err != shared.ErrCSRFTokenMissing {
		t.Fatalf("expected missing, got %v", err)
	}
}
