package mappings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
)

// API serves the JSON mapping endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers the mapping routes.
func (a *API) MountRoutes(r chi.Router) {
	r.Route("/mappings", func(r chi.Router) {
		r.Get("/", a.list)
		r.Get("/validate", a.validate)
		r.Put("/{module}/{key}", a.upsert)
	})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.List(r.Context(), r.URL.Query().Get("module"))
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) validate(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.Validate(r.Context())
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (a *API) upsert(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	m, err := a.service.Upsert(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "key"), in.AccountID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}
