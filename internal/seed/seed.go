// Package seed loads the default chart of accounts, the invoicing account
// mappings and a first accounting period.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/mappings"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the YAML seed document.
type Catalog struct {
	Accounts []AccountSeed                `yaml:"accounts"`
	Mappings map[string]map[string]string `yaml:"mappings"`
}

// AccountSeed describes one account; Parent refers to another seed code.
type AccountSeed struct {
	Code     string                `yaml:"code"`
	Name     string                `yaml:"name"`
	Type     accounts.AccountType  `yaml:"type"`
	Parent   string                `yaml:"parent"`
	Postable bool                  `yaml:"postable"`
	Manual   *accounts.ManualInput `yaml:"manual"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes and checks a catalog document. Parents must appear
// before their children.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("seed: parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Code == "" || a.Name == "" {
			return Catalog{}, fmt.Errorf("seed: account %q needs code and name", a.Code)
		}
		if seen[a.Code] {
			return Catalog{}, fmt.Errorf("seed: duplicate account %s", a.Code)
		}
		if a.Parent != "" && !seen[a.Parent] {
			return Catalog{}, fmt.Errorf("seed: account %s listed before parent %s", a.Code, a.Parent)
		}
		seen[a.Code] = true
	}
	for module, keys := range c.Mappings {
		for key, code := range keys {
			if !seen[code] {
				return Catalog{}, fmt.Errorf("seed: mapping %s/%s points to unknown account %s", module, key, code)
			}
		}
	}
	return c, nil
}

// AccountStore creates accounts and manuals.
type AccountStore interface {
	List(ctx context.Context, filters accounts.ListFilters) ([]accounts.Account, error)
	Create(ctx context.Context, in accounts.AccountInput) (accounts.Account, error)
	SaveManual(ctx context.Context, id int64, in accounts.ManualInput) (accounts.ManualView, error)
}

// PeriodStore creates periods.
type PeriodStore interface {
	List(ctx context.Context) ([]periods.Period, error)
	Create(ctx context.Context, in periods.PeriodInput) (periods.Period, error)
}

// MappingStore writes account mappings.
type MappingStore interface {
	Upsert(ctx context.Context, module, key string, accountID int64) (mappings.AccountMapping, error)
}

// Result reports what a run created.
type Result struct {
	AccountsCreated int
	AccountsSkipped int
	Mappings        int
	Period          *periods.Period
}

// Seeder applies a catalog. Running it twice is harmless: existing account
// codes are skipped and a period is only created when none exists.
type Seeder struct {
	accounts AccountStore
	periods  PeriodStore
	mappings MappingStore
	logger   *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(accountStore AccountStore, periodStore PeriodStore, mappingStore MappingStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{accounts: accountStore, periods: periodStore, mappings: mappingStore, logger: logger}
}

// Run seeds the catalog and an annual period for year.
func (s *Seeder) Run(ctx context.Context, c Catalog, year int) (Result, error) {
	var res Result
	existing, err := s.accounts.List(ctx, accounts.ListFilters{})
	if err != nil {
		return res, err
	}
	ids := make(map[string]int64, len(existing))
	for _, a := range existing {
		ids[a.Code] = a.ID
	}
	for _, seed := range c.Accounts {
		if _, ok := ids[seed.Code]; ok {
			res.AccountsSkipped++
			continue
		}
		in := accounts.AccountInput{Code: seed.Code, Name: seed.Name, Type: seed.Type, AcceptsPostings: seed.Postable}
		if seed.Manual != nil {
			in.Description = seed.Manual.Description
		}
		if seed.Parent != "" {
			parentID := ids[seed.Parent]
			in.ParentID = &parentID
		}
		created, err := s.accounts.Create(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed account %s: %w", seed.Code, err)
		}
		ids[seed.Code] = created.ID
		res.AccountsCreated++
		if seed.Manual != nil {
			if _, err := s.accounts.SaveManual(ctx, created.ID, *seed.Manual); err != nil {
				return res, fmt.Errorf("seed manual %s: %w", seed.Code, err)
			}
		}
	}

	modules := make([]string, 0, len(c.Mappings))
	for module := range c.Mappings {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	for _, module := range modules {
		keys := make([]string, 0, len(c.Mappings[module]))
		for key := range c.Mappings[module] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if _, err := s.mappings.Upsert(ctx, module, key, ids[c.Mappings[module][key]]); err != nil {
				return res, fmt.Errorf("seed mapping %s/%s: %w", module, key, err)
			}
			res.Mappings++
		}
	}

	if year > 0 {
		p, err := s.ensurePeriod(ctx, year)
		if err != nil {
			return res, err
		}
		res.Period = p
	}
	s.logger.Info("seed applied",
		slog.Int("accounts_created", res.AccountsCreated),
		slog.Int("accounts_skipped", res.AccountsSkipped),
		slog.Int("mappings", res.Mappings),
	)
	return res, nil
}

func (s *Seeder) ensurePeriod(ctx context.Context, year int) (*periods.Period, error) {
	all, err := s.periods.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return nil, nil
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	p, err := s.periods.Create(ctx, periods.PeriodInput{
		Name:      fmt.Sprintf("Fiscal year %d", year),
		Type:      periods.PeriodTypeAnnual,
		StartDate: start.Format(acctshared.DateLayout),
		EndDate:   end.Format(acctshared.DateLayout),
	})
	if errors.Is(err, acctshared.ErrPeriodOverlap) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed period: %w", err)
	}
	return &p, nil
}
