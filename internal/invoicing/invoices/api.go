package invoices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// API serves the JSON invoice endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers invoice and invoicing report routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Get("/{id}", a.get)
		r.Post("/{id}/confirm", a.confirm)
		r.Post("/{id}/pay", a.pay)
		r.Post("/{id}/annul", a.annul)
	})
	r.Get("/reports/sales", a.sales)
	r.Get("/reports/receivables", a.receivables)
}

// FiltersFromQuery reads list filters from the query string.
func FiltersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{Status: Status(q.Get("status")), Search: q.Get("search")}
	filters.ClientID, _ = strconv.ParseInt(q.Get("client"), 10, 64)
	if t, err := acctshared.ParseDate(q.Get("from")); err == nil {
		filters.From = &t
	}
	if t, err := acctshared.ParseDate(q.Get("to")); err == nil {
		filters.To = &t
	}
	filters.Page, filters.PerPage = shared.PageFromQuery(q)
	return filters
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.List(r.Context(), FiltersFromQuery(r))
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
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
	inv, err := a.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	inv, err := a.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (a *API) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	inv, err := a.service.Confirm(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (a *API) pay(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in PayInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	inv, err := a.service.Pay(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (a *API) annul(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in AnnulInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	inv, err := a.service.Annul(r.Context(), id, in.Reason)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func dateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := acctshared.ParseDate(raw)
	if err != nil {
		return time.Time{}, shared.NewValidationError(name, "must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

func (a *API) sales(w http.ResponseWriter, r *http.Request) {
	today := acctshared.DateOnly(a.service.now())
	from, err := dateParam(r, "from", time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	to, err := dateParam(r, "to", today)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("client"), 10, 64)
	report, err := a.service.SalesReport(r.Context(), from, to, clientID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (a *API) receivables(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of", acctshared.DateOnly(a.service.now()))
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	report, err := a.service.Receivables(r.Context(), asOf)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
