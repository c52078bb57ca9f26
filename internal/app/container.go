package app

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/adjustments"
	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
	"github.com/ledgerbook/ledgerbook/internal/accounting/mappings"
	"github.com/ledgerbook/ledgerbook/internal/accounting/openingbalances"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	"github.com/ledgerbook/ledgerbook/internal/auth"
	"github.com/ledgerbook/ledgerbook/internal/integration"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/clients"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/invoices"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/products"
	"github.com/ledgerbook/ledgerbook/internal/platform/cache"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Services holds every domain service built over one pool. The server, the
// worker and the admin CLI share this wiring.
type Services struct {
	Accounts        *accounts.Service
	Periods         *periods.Service
	Journals        *journals.Service
	OpeningBalances *openingbalances.Service
	Adjustments     *adjustments.Service
	Ledger          *ledger.Service
	Reports         *reports.Service
	Mappings        *mappings.Service
	Clients         *clients.Service
	Products        *products.Service
	Invoices        *invoices.Service
	Auth            *auth.Service
}

// ServiceDeps are the infrastructure handles the services need. Redis and
// the cache observer are optional.
type ServiceDeps struct {
	Pool          *pgxpool.Pool
	Redis         *redis.Client
	CacheTTL      time.Duration
	CacheObserver cache.Observer
	Logger        *slog.Logger
}

// NewServices wires repositories and services.
func NewServices(deps ServiceDeps) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool := deps.Pool
	audit := shared.NewAuditLogger(pool)

	ledgerCache := cache.NewVersioned(deps.Redis, "ledgerbook:ledger", deps.CacheTTL)
	if deps.CacheObserver != nil {
		ledgerCache = ledgerCache.WithObserver(deps.CacheObserver)
	}
	ledgerService := ledger.NewService(ledger.NewRepository(pool), ledgerCache, logger)

	s := &Services{
		Accounts: accounts.NewService(accounts.NewRepository(pool), audit, logger),
		Periods:  periods.NewService(periods.NewRepository(pool), audit, logger),
		Journals: journals.NewService(journals.NewRepository(pool), audit, logger).WithInvalidator(ledgerService),
		Ledger:   ledgerService,
		Clients:  clients.NewService(clients.NewRepository(pool), audit, logger),
		Products: products.NewService(products.NewRepository(pool), audit, logger),
		Auth:     auth.NewService(auth.NewRepository(pool), logger),
	}
	s.Mappings = mappings.NewService(mappings.NewRepository(pool), s.Accounts, audit, logger)
	s.OpeningBalances = openingbalances.NewService(openingbalances.NewRepository(pool), audit, logger).WithInvalidator(ledgerService)
	s.Adjustments = adjustments.NewService(adjustments.NewRepository(pool), s.Journals, audit, logger)
	s.Reports = reports.NewService(ledgerService, reports.NewSnapshotStore(pool), audit, logger)

	hooks := integration.NewHooks(s.Journals, s.Periods, s.Mappings, logger)
	s.Invoices = invoices.NewService(invoices.NewRepository(pool), s.Clients, s.Products, hooks, audit, logger)
	return s
}
