package adjustments

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// API serves the JSON adjustment endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers adjustment routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/adjustments", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Get("/{id}", a.get)
		r.Post("/{id}/annul", a.annul)
	})
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{Type: Type(q.Get("type")), Status: Status(q.Get("status"))}
	if v, err := strconv.ParseInt(q.Get("period"), 10, 64); err == nil && v > 0 {
		filters.PeriodID = &v
	}
	return filters
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.List(r.Context(), filtersFromQuery(r))
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if items == nil {
		items = []Adjustment{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	adj, err := a.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	adj, err := a.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (a *API) annul(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in AnnulInput
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Fail(a.logger, w, r, err)
			return
		}
	}
	adj, err := a.service.Annul(r.Context(), id, in.Reason)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

// PeriodLister feeds the period selector.
type PeriodLister interface {
	List(ctx context.Context) ([]periods.Period, error)
}

// AccountLister feeds the line account selector.
type AccountLister interface {
	List(ctx context.Context, filters accounts.ListFilters) ([]accounts.Account, error)
}

// Handler serves the adjustments dashboard page.
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
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/annul", h.annul)
}

// formLines is the number of blank line rows offered by the form.
const formLines = 4

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)
	items, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	ps, err := h.periods.List(r.Context())
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
	h.pages.Page(w, r, "adjustments_list", "Adjusting Entries", map[string]any{
		"Adjustments": items,
		"Periods":     ps,
		"Accounts":    accts,
		"Types":       Types,
		"Lines":       formLines,
	}, http.StatusOK)
}

// linesFromForm reads the parallel account_id/debit/credit/memo fields,
// skipping rows left blank.
func linesFromForm(r *http.Request) ([]journals.EntryInput, error) {
	ids := r.PostForm["account_id"]
	debits := r.PostForm["debit"]
	credits := r.PostForm["credit"]
	memos := r.PostForm["memo"]
	at := func(values []string, i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	amount := func(raw string) (decimal.Decimal, error) {
		if raw == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, shared.NewValidationError("lines", "amounts must be numbers")
		}
		return d, nil
	}
	var lines []journals.EntryInput
	for i := range ids {
		accountID, err := strconv.ParseInt(at(ids, i), 10, 64)
		if err != nil || accountID <= 0 {
			continue
		}
		line := journals.EntryInput{AccountID: accountID, Memo: at(memos, i)}
		if line.Debit, err = amount(at(debits, i)); err != nil {
			return nil, err
		}
		if line.Credit, err = amount(at(credits, i)); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	lines, err := linesFromForm(r)
	if err != nil {
		h.pages.Redirect(w, r, "/adjustments", "danger", err.Error())
		return
	}
	periodID, _ := strconv.ParseInt(r.PostFormValue("period_id"), 10, 64)
	in := Input{
		PeriodID: periodID,
		Date:     r.PostFormValue("date"),
		Type:     Type(r.PostFormValue("type")),
		Reason:   r.PostFormValue("reason"),
		Lines:    lines,
	}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, "/adjustments", "danger", err.Error())
		return
	}
	adj, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.pages.Redirect(w, r, "/adjustments", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, "/adjustments", "success", "Adjustment "+adj.Number+" posted")
}

func (h *Handler) annul(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	adj, err := h.service.Annul(r.Context(), id, r.PostFormValue("reason"))
	if err != nil {
		h.pages.Redirect(w, r, "/adjustments", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, "/adjustments", "success", "Adjustment "+adj.Number+" annulled")
}
