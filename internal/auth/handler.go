package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// API wires the JSON authentication endpoints.
type API struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
}

// NewAPI constructs the JSON auth handler.
func NewAPI(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{logger: logger, service: service, sessions: sessions}
}

// MountRoutes registers auth routes under /auth.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.login)
		r.Post("/logout", a.logout)
		r.Get("/me", a.me)
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	user, err := a.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		a.logger.Error("session missing during login")
		httpx.Fail(a.logger, w, r, shared.ErrLoginRequired)
		return
	}
	sess.SetUser(user.Actor())
	httpx.JSON(w, http.StatusOK, user)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.ClearUser()
		a.sessions.Destroy(sess)
	}
	httpx.NoContent(w)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Fail(a.logger, w, r, shared.ErrLoginRequired)
		return
	}
	actor, ok := sess.User()
	if !ok {
		httpx.Fail(a.logger, w, r, shared.ErrLoginRequired)
		return
	}
	user, err := a.service.Get(r.Context(), actor.ID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Handler serves the dashboard login form.
type Handler struct {
	service  *Service
	sessions *shared.SessionManager
	pages    view.Responder
}

// NewHandler constructs a Handler instance.
func NewHandler(service *Service, sessions *shared.SessionManager, pages view.Responder) *Handler {
	return &Handler{service: service, sessions: sessions, pages: pages}
}

// MountRoutes registers the login pages.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	Email  string
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.pages.Page(w, r, "login", "Sign in", loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := LoginInput{Email: strings.TrimSpace(r.PostFormValue("email")), Password: r.PostFormValue("password")}
	data := loginPageData{Email: in.Email, Errors: map[string]string{}}
	if err := httpx.Validate(in); err != nil {
		if verr, ok := err.(*shared.ValidationError); ok {
			data.Errors = verr.Fields
		}
		h.pages.Page(w, r, "login", "Sign in", data, http.StatusBadRequest)
		return
	}
	user, err := h.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		data.Errors["general"] = "Invalid email or password"
		h.pages.Page(w, r, "login", "Sign in", data, http.StatusBadRequest)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(user.Actor())
	}
	h.pages.Redirect(w, r, "/", "success", "Welcome back, "+user.Actor().Name)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.ClearUser()
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
