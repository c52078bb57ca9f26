package products

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the product catalog.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs the product service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns products ordered by code.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

var maxRate = decimal.NewFromInt(100)

func fromInput(in Input) (Product, error) {
	p := Product{
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Kind:        in.Kind,
		UnitPrice:   in.UnitPrice,
		Taxable:     true,
		TaxRate:     DefaultTaxRate,
		IsActive:    true,
	}
	if p.Kind == "" {
		p.Kind = KindProduct
	}
	if in.Taxable != nil {
		p.Taxable = *in.Taxable
	}
	if in.TaxRate != nil {
		p.TaxRate = *in.TaxRate
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	verr := &shared.ValidationError{}
	if p.Code == "" {
		verr.Add("code", "is required")
	}
	if p.Name == "" {
		verr.Add("name", "is required")
	}
	if p.UnitPrice.IsNegative() {
		verr.Add("unit_price", "must not be negative")
	} else if !acctshared.HasCents(p.UnitPrice) {
		verr.Add("unit_price", "must have at most 2 decimals")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(maxRate) {
		verr.Add("tax_rate", "must be between 0 and 100")
	}
	return p, verr.Err()
}

// Create adds a product.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	p, err := fromInput(in)
	if err != nil {
		return Product{}, err
	}
	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "product.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Update replaces the product's fields. Prices already on invoices keep
// their original values.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Product, error) {
	p, err := fromInput(in)
	if err != nil {
		return Product{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Product{}, err
	}
	p.ID = id
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "product.update", id, nil)
	return updated, nil
}

// Delete removes a product never sold.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.HasInvoiceLines(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return invshared.ErrInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "product.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       time.Now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
