package clients

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
)

// API serves the JSON client endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers client routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Get("/{id}", a.get)
		r.Put("/{id}", a.update)
		r.Delete("/{id}", a.delete)
	})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("search")}
	if v, err := strconv.ParseBool(q.Get("active")); err == nil {
		filters.Active = &v
	}
	items, err := a.service.List(r.Context(), filters)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if items == nil {
		items = []Client{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) decode(r *http.Request) (Input, error) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		return Input{}, err
	}
	return in, httpx.Validate(in)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	in, err := a.decode(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	c, err := a.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	c, err := a.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	in, err := a.decode(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	c, err := a.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
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
