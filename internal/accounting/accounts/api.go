package accounts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
)

// API serves the JSON account endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers the account routes under the API router.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Get("/tree", a.tree)
		r.Get("/{id}", a.get)
		r.Put("/{id}", a.update)
		r.Delete("/{id}", a.delete)
		r.Post("/{id}/deactivate", a.deactivate)
		r.Post("/{id}/activate", a.activate)
		r.Get("/{id}/manual", a.getManual)
		r.Put("/{id}/manual", a.saveManual)
	})
	r.Get("/manual", a.listManual)
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("search"), Type: AccountType(q.Get("type"))}
	if v, err := strconv.ParseBool(q.Get("active")); err == nil {
		filters.Active = &v
	}
	if v, err := strconv.ParseBool(q.Get("postable")); err == nil {
		filters.Postable = &v
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
		items = []Account{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := a.service.Tree(r.Context())
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nodes)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	account, err := a.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func decodeInput(r *http.Request) (AccountInput, error) {
	var in AccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		return in, err
	}
	return in, httpx.Validate(in)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	account, err := a.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	in, err := decodeInput(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	account, err := a.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := a.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (a *API) deactivate(w http.ResponseWriter, r *http.Request) {
	a.toggle(w, r, a.service.Deactivate)
}

func (a *API) activate(w http.ResponseWriter, r *http.Request) {
	a.toggle(w, r, a.service.Activate)
}

func (a *API) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (Account, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	account, err := fn(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (a *API) getManual(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	manual, err := a.service.GetManual(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, manual)
}

func (a *API) saveManual(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	var in ManualInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	manual, err := a.service.SaveManual(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, manual)
}

func (a *API) listManual(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListManual(r.Context())
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if items == nil {
		items = []ManualView{}
	}
	httpx.JSON(w, http.StatusOK, items)
}
