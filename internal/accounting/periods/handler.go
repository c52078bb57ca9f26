package periods

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// API serves the JSON period endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers period routes on the API router.
func (a *API) MountRoutes(r chi.Router) {
	r.Get("/periods", a.list)
	r.Post("/periods", a.create)
	r.Get("/periods/current", a.current)
	r.Get("/periods/{id}", a.get)
	r.Put("/periods/{id}", a.update)
	r.Post("/periods/{id}/close", a.close)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.List(r.Context())
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if items == nil {
		items = []Period{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) current(w http.ResponseWriter, r *http.Request) {
	p, err := a.service.Current(r.Context())
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	p, err := a.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	var in PeriodInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	p, err := a.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
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
	p, err := a.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (a *API) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	p, err := a.service.Close(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Handler serves the period dashboard pages.
type Handler struct {
	service *Service
	pages   view.Responder
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, pages view.Responder) *Handler {
	return &Handler{service: service, pages: pages}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/close", h.close)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "periods_list", "Periods", map[string]any{
		"Periods": items,
		"Types":   PeriodTypes,
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	in := PeriodInput{
		Name:      r.PostFormValue("name"),
		Type:      PeriodType(r.PostFormValue("type")),
		StartDate: r.PostFormValue("start_date"),
		EndDate:   r.PostFormValue("end_date"),
	}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, "/periods", "danger", err.Error())
		return
	}
	if _, err := h.service.Create(r.Context(), in); err != nil {
		h.pages.Redirect(w, r, "/periods", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, "/periods", "success", "Period "+in.Name+" opened")
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	p, err := h.service.Close(r.Context(), id)
	if err != nil {
		h.pages.Redirect(w, r, "/periods", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, "/periods", "success", "Period "+p.Name+" closed")
}
