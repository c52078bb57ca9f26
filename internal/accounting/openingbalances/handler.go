package openingbalances

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// API serves the JSON opening balance endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers opening balance routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Get("/periods/{id}/opening-balances", a.list)
	r.Post("/periods/{id}/opening-balances", a.create)
	r.Put("/opening-balances/{id}", a.update)
	r.Delete("/opening-balances/{id}", a.annul)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	periodID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	items, err := a.service.List(r.Context(), periodID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if items == nil {
		items = []OpeningBalance{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	periodID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	o, err := a.service.Create(r.Context(), periodID, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	o, err := a.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (a *API) annul(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if _, err := a.service.Annul(r.Context(), id); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.NoContent(w)
}

// PeriodGetter loads the period shown on the detail page.
type PeriodGetter interface {
	Get(ctx context.Context, id int64) (periods.Period, error)
}

// AccountLister feeds the account selector.
type AccountLister interface {
	List(ctx context.Context, filters accounts.ListFilters) ([]accounts.Account, error)
}

// Handler serves the period detail page with its opening balances.
type Handler struct {
	service  *Service
	periods  PeriodGetter
	accounts AccountLister
	pages    view.Responder
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, periods PeriodGetter, accounts AccountLister, pages view.Responder) *Handler {
	return &Handler{service: service, periods: periods, accounts: accounts, pages: pages}
}

// MountRoutes registers routes below /periods.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.show)
	r.Post("/{id}/opening-balances", h.create)
	r.Post("/{id}/opening-balances/{obID}/annul", h.annul)
}

func periodPath(id int64) string {
	return "/periods/" + strconv.FormatInt(id, 10)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	period, err := h.periods.Get(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	items, err := h.service.List(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	active, postable := true, true
	accts, err := h.accounts.List(r.Context(), accounts.ListFilters{Active: &active, Postable: &postable})
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "period_detail", period.Name, map[string]any{
		"Period":   period,
		"Openings": items,
		"Accounts": accts,
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	accountID, _ := strconv.ParseInt(r.PostFormValue("account_id"), 10, 64)
	amount, err := decimal.NewFromString(strings.TrimSpace(r.PostFormValue("amount")))
	if err != nil {
		h.pages.Redirect(w, r, periodPath(id), "danger", shared.NewValidationError("amount", "must be a number").Error())
		return
	}
	in := Input{AccountID: accountID, Amount: amount, Notes: r.PostFormValue("notes")}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, periodPath(id), "danger", err.Error())
		return
	}
	if _, err := h.service.Create(r.Context(), id, in); err != nil {
		h.pages.Redirect(w, r, periodPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, periodPath(id), "success", "Opening balance recorded")
}

func (h *Handler) annul(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	obID, err := httpx.IDParam(r, "obID")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if _, err := h.service.Annul(r.Context(), obID); err != nil {
		h.pages.Redirect(w, r, periodPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, periodPath(id), "success", "Opening balance annulled")
}
