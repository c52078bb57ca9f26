package periods

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages fiscal periods.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the period service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns periods, newest first.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// Get returns one period.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

// FindOpenPeriodByDate returns the open period covering date.
func (s *Service) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindOpenPeriodByDate(ctx, date)
}

// Current returns the open period covering today.
func (s *Service) Current(ctx context.Context) (Period, error) {
	return s.repo.FindOpenPeriodByDate(ctx, s.now())
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	verr := &shared.ValidationError{}
	from, err := acctshared.ParseDate(start)
	if err != nil {
		verr.Add("start_date", "must be a date formatted 2006-01-02")
	}
	to, err := acctshared.ParseDate(end)
	if err != nil {
		verr.Add("end_date", "must be a date formatted 2006-01-02")
	}
	if verr.Err() == nil && !to.After(from) {
		verr.Add("end_date", "must be after start_date")
	}
	return from, to, verr.Err()
}

// Create opens a new period whose range does not intersect any other.
func (s *Service) Create(ctx context.Context, in PeriodInput) (Period, error) {
	start, end, err := parseRange(in.StartDate, in.EndDate)
	if err != nil {
		return Period{}, err
	}
	var created Period
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		clash, err := tx.Overlapping(ctx, start, end, 0)
		if err != nil {
			return err
		}
		if clash != nil {
			return fmt.Errorf("%w: %s", acctshared.ErrPeriodOverlap, clash.Name)
		}
		created, err = tx.Insert(ctx, Period{
			Name:      strings.TrimSpace(in.Name),
			Type:      in.Type,
			StartDate: start,
			EndDate:   end,
			Status:    PeriodStatusOpen,
		})
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, "period.create", created.ID, map[string]any{"start": in.StartDate, "end": in.EndDate})
	return created, nil
}

// Update renames an open period and moves its dates while it is empty.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Period, error) {
	var updated Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsOpen() {
			return fmt.Errorf("%w: %s", acctshared.ErrPeriodClosed, current.Name)
		}
		next := current
		next.Name = strings.TrimSpace(in.Name)
		if in.StartDate != "" || in.EndDate != "" {
			start, end := current.StartDate.Format(acctshared.DateLayout), current.EndDate.Format(acctshared.DateLayout)
			if in.StartDate != "" {
				start = in.StartDate
			}
			if in.EndDate != "" {
				end = in.EndDate
			}
			from, to, err := parseRange(start, end)
			if err != nil {
				return err
			}
			if !from.Equal(dateOnly(current.StartDate)) || !to.Equal(dateOnly(current.EndDate)) {
				used, err := tx.HasTransactions(ctx, id)
				if err != nil {
					return err
				}
				if used {
					return shared.NewValidationError("start_date", "dates cannot change once the period has transactions")
				}
				clash, err := tx.Overlapping(ctx, from, to, id)
				if err != nil {
					return err
				}
				if clash != nil {
					return fmt.Errorf("%w: %s", acctshared.ErrPeriodOverlap, clash.Name)
				}
			}
			next.StartDate, next.EndDate = from, to
		}
		updated, err = tx.Update(ctx, next)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, "period.update", id, nil)
	return updated, nil
}

// Close moves an open period to CLOSED. Closing is terminal.
func (s *Service) Close(ctx context.Context, id int64) (Period, error) {
	actor := shared.ActorFromContext(ctx)
	var closed Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsOpen() {
			return fmt.Errorf("%w: period %s is already closed", acctshared.ErrInvalidStatus, current.Name)
		}
		closed, err = tx.Close(ctx, id, actor.Label(), s.now())
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, "period.close", id, nil)
	return closed, nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "period",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
