package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/adjustments"
	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
	"github.com/ledgerbook/ledgerbook/internal/accounting/mappings"
	"github.com/ledgerbook/ledgerbook/internal/accounting/openingbalances"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	"github.com/ledgerbook/ledgerbook/internal/auth"
	"github.com/ledgerbook/ledgerbook/internal/dashboard"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/clients"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/invoices"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/products"
	"github.com/ledgerbook/ledgerbook/internal/observability"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
	"github.com/ledgerbook/ledgerbook/jobs"
	"github.com/ledgerbook/ledgerbook/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Services       *Services
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	JobHandler     *jobs.Handler
}

type mounter interface {
	MountRoutes(r chi.Router)
}

// NewRouter constructs the chi.Router serving the JSON API and the dashboard.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s := params.Services
	logger := params.Logger

	r.Route(APIPrefix, func(r chi.Router) {
		apis := []mounter{
			auth.NewAPI(logger, s.Auth, params.SessionManager),
			accounts.NewAPI(logger, s.Accounts),
			periods.NewAPI(logger, s.Periods),
			openingbalances.NewAPI(logger, s.OpeningBalances),
			journals.NewAPI(logger, s.Journals),
			adjustments.NewAPI(logger, s.Adjustments),
			ledger.NewAPI(logger, s.Ledger),
			mappings.NewAPI(logger, s.Mappings),
			reports.NewAPI(logger, s.Reports),
			clients.NewAPI(logger, s.Clients),
			products.NewAPI(logger, s.Products),
			invoices.NewAPI(logger, s.Invoices),
		}
		for _, api := range apis {
			api.MountRoutes(r)
		}
	})

	pages := view.Responder{Engine: params.Templates, CSRF: params.CSRFManager, Logger: logger}
	dashboard.NewHandler(s.Periods, s.Reports, s.Journals, s.Invoices, pages, logger).MountRoutes(r)
	auth.NewHandler(s.Auth, params.SessionManager, pages).MountRoutes(r)
	r.Route("/accounts", accounts.NewHandler(s.Accounts, pages).MountRoutes)
	r.Route("/periods", func(r chi.Router) {
		periods.NewHandler(s.Periods, pages).MountRoutes(r)
		openingbalances.NewHandler(s.OpeningBalances, s.Periods, s.Accounts, pages).MountRoutes(r)
	})
	r.Route("/transactions", journals.NewHandler(s.Journals, s.Accounts, s.Periods, pages).MountRoutes)
	r.Route("/adjustments", adjustments.NewHandler(s.Adjustments, s.Periods, s.Accounts, pages).MountRoutes)
	r.Route("/ledger", ledger.NewHandler(s.Ledger, s.Periods, s.Accounts, pages).MountRoutes)
	r.Route("/reports", reports.NewHandler(s.Reports, s.Periods, pages).MountRoutes)
	r.Route("/invoices", invoices.NewHandler(s.Invoices, s.Clients, s.Products, pages).MountRoutes)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
