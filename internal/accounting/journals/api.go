package journals

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// API serves the JSON transaction endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers transaction and entry routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Get("/{id}", a.get)
		r.Put("/{id}", a.update)
		r.Delete("/{id}", a.delete)
		r.Post("/{id}/post", a.post)
		r.Post("/{id}/entries", a.addEntry)
	})
	r.Put("/entries/{id}", a.updateEntry)
	r.Delete("/entries/{id}", a.deleteEntry)
}

// FiltersFromQuery reads listing filters from the query string.
func FiltersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{
		Status: Status(q.Get("status")),
		Kind:   Kind(q.Get("kind")),
		Search: q.Get("search"),
	}
	filters.Page, filters.PerPage = shared.PageFromQuery(q)
	if v, err := strconv.ParseInt(q.Get("period"), 10, 64); err == nil && v > 0 {
		filters.PeriodID = &v
	}
	if d, err := acctshared.ParseDate(q.Get("from")); err == nil {
		filters.From = &d
	}
	if d, err := acctshared.ParseDate(q.Get("to")); err == nil {
		filters.To = &d
	}
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

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	t, err := a.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	var in TransactionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	t, err := a.service.CreateTransaction(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in TransactionUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	t, err := a.service.UpdateTransaction(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in VoidInput
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Fail(a.logger, w, r, err)
			return
		}
	}
	if _, err := a.service.DeleteTransaction(r.Context(), id, in.Reason); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (a *API) post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	t, err := a.service.PostTransaction(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (a *API) addEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in EntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	e, err := a.service.AddEntry(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (a *API) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in EntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	e, err := a.service.UpdateEntry(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (a *API) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := a.service.DeleteEntry(r.Context(), id); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.NoContent(w)
}
