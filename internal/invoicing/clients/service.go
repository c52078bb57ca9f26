package clients

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// DefaultCreditDays applies when the input leaves credit days unset.
const DefaultCreditDays = 30

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages clients.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs the client service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns clients ordered by code.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Client, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

func fromInput(in Input) (Client, error) {
	c := Client{
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:        strings.TrimSpace(in.Name),
		Kind:        in.Kind,
		TaxID:       strings.TrimSpace(in.TaxID),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		CreditLimit: in.CreditLimit,
		CreditDays:  DefaultCreditDays,
		IsActive:    true,
		Notes:       strings.TrimSpace(in.Notes),
	}
	if c.Kind == "" {
		c.Kind = KindCompany
	}
	if in.CreditDays != nil {
		c.CreditDays = *in.CreditDays
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	verr := &shared.ValidationError{}
	if c.Code == "" {
		verr.Add("code", "is required")
	}
	if c.Name == "" {
		verr.Add("name", "is required")
	}
	if c.CreditLimit.IsNegative() {
		verr.Add("credit_limit", "must not be negative")
	}
	return c, verr.Err()
}

// Create adds a client.
func (s *Service) Create(ctx context.Context, in Input) (Client, error) {
	c, err := fromInput(in)
	if err != nil {
		return Client{}, err
	}
	created, err := s.repo.Insert(ctx, c)
	if err != nil {
		return Client{}, err
	}
	s.record(ctx, "client.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Update replaces the client's fields.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Client, error) {
	c, err := fromInput(in)
	if err != nil {
		return Client{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Client{}, err
	}
	c.ID = id
	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return Client{}, err
	}
	s.record(ctx, "client.update", id, nil)
	return updated, nil
}

// Delete removes a client that has never been invoiced. Invoiced clients
// must be deactivated instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.HasInvoices(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return invshared.ErrInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "client.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "client",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       time.Now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
