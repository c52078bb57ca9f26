package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// PeriodParam reads the mandatory ?period= query parameter.
func PeriodParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return 0, shared.NewValidationError("period", "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError("period", "must be a positive integer")
	}
	return id, nil
}

// API serves the JSON ledger endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Get("/ledger", a.balances)
	r.Get("/ledger/{accountID}", a.book)
	r.Get("/ledger/{accountID}/balance", a.balance)
}

func (a *API) balances(w http.ResponseWriter, r *http.Request) {
	periodID, err := PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	items, err := a.service.Balances(r.Context(), periodID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) book(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpx.IDParam(r, "accountID")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	periodID, err := PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	book, err := a.service.Book(r.Context(), accountID, periodID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpx.IDParam(r, "accountID")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	periodID, err := PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	b, err := a.service.Balance(r.Context(), accountID, periodID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

// PeriodLister feeds the period selector.
type PeriodLister interface {
	List(ctx context.Context) ([]periods.Period, error)
}

// AccountLister feeds the account selector.
type AccountLister interface {
	List(ctx context.Context, filters accounts.ListFilters) ([]accounts.Account, error)
}

// SelectedPeriod picks the period named in the query, falling back to the
// most recent open one.
func SelectedPeriod(r *http.Request, ps []periods.Period) (periods.Period, bool) {
	if id, err := strconv.ParseInt(r.URL.Query().Get("period"), 10, 64); err == nil {
		for _, p := range ps {
			if p.ID == id {
				return p, true
			}
		}
	}
	for _, p := range ps {
		if p.IsOpen() {
			return p, true
		}
	}
	if len(ps) > 0 {
		return ps[0], true
	}
	return periods.Period{}, false
}

// Handler serves the ledger dashboard page.
type Handler struct {
	service  *Service
	periods  PeriodLister
	accounts AccountLister
	pages    view.Responder
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, periods PeriodLister, accounts AccountLister, pages view.Responder) *Handler {
	return &Handler{service: service, periods: periods, accounts: accounts, pages: pages}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ps, err := h.periods.List(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	postable := true
	accts, err := h.accounts.List(r.Context(), accounts.ListFilters{Postable: &postable})
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	data := map[string]any{"Periods": ps, "Accounts": accts}
	period, ok := SelectedPeriod(r, ps)
	if ok {
		data["Period"] = period
		if accountID, err := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64); err == nil && accountID > 0 {
			book, err := h.service.Book(r.Context(), accountID, period.ID)
			if err != nil {
				h.pages.Error(w, r, err)
				return
			}
			data["Book"] = book
		} else {
			balances, err := h.service.Balances(r.Context(), period.ID)
			if err != nil {
				h.pages.Error(w, r, err)
				return
			}
			data["Balances"] = balances
		}
	}
	h.pages.Page(w, r, "ledger", "General Ledger", data, http.StatusOK)
}
