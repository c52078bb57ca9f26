package openingbalances

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached ledger figures of a period.
type Invalidator interface {
	Invalidate(ctx context.Context, periodID int64) error
}

// Service manages opening balances.
type Service struct {
	repo        Repository
	audit       AuditPort
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the opening balance service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithInvalidator wires the ledger cache.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// List returns the opening balances of a period, annulled ones included.
func (s *Service) List(ctx context.Context, periodID int64) ([]OpeningBalance, error) {
	return s.repo.List(ctx, periodID)
}

// Get returns one opening balance.
func (s *Service) Get(ctx context.Context, id int64) (OpeningBalance, error) {
	return s.repo.Get(ctx, id)
}

// CheckAmount applies the sign rule: debit-natured accounts never open negative.
func CheckAmount(t accounts.AccountType, amount decimal.Decimal) error {
	if !acctshared.HasCents(amount) {
		return shared.NewValidationError("amount", "must have at most two decimal places")
	}
	if !acctshared.InRange(amount) {
		return shared.NewValidationError("amount", "must be less than 10^16")
	}
	if amount.IsNegative() && t.NaturalSide() == accounts.SideDebit {
		return fmt.Errorf("%w: %s", acctshared.ErrNegativeOpening, t)
	}
	return nil
}

func openPeriod(ctx context.Context, tx TxRepository, id int64) error {
	p, err := tx.Period(ctx, id)
	if err != nil {
		return err
	}
	if !p.Open {
		return fmt.Errorf("%w: %s", acctshared.ErrPeriodClosed, p.Name)
	}
	return nil
}

// Create records an account's opening balance in an open period.
func (s *Service) Create(ctx context.Context, periodID int64, in Input) (OpeningBalance, error) {
	var created OpeningBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := openPeriod(ctx, tx, periodID); err != nil {
			return err
		}
		account, err := tx.Account(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive || !account.AcceptsPostings {
			return fmt.Errorf("%w: %s", acctshared.ErrInvalidAccount, account.Code)
		}
		if err := CheckAmount(account.Type, in.Amount); err != nil {
			return err
		}
		created, err = tx.Insert(ctx, OpeningBalance{
			PeriodID:    periodID,
			AccountID:   account.ID,
			AccountCode: account.Code,
			AccountName: account.Name,
			AccountType: account.Type,
			Amount:      in.Amount,
			Notes:       strings.TrimSpace(in.Notes),
			CreatedBy:   shared.ActorFromContext(ctx).Label(),
		})
		if err != nil {
			return err
		}
		s.invalidateAfterCommit(ctx, periodID)
		return nil
	})
	if err != nil {
		return OpeningBalance{}, err
	}
	s.record(ctx, "opening_balance.create", created.ID, map[string]any{"amount": created.Amount.StringFixed(2)})
	return created, nil
}

// Update changes an active opening balance.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (OpeningBalance, error) {
	var updated OpeningBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusActive {
			return fmt.Errorf("%w: opening balance %d is %s", acctshared.ErrInvalidStatus, id, current.Status)
		}
		if err := openPeriod(ctx, tx, current.PeriodID); err != nil {
			return err
		}
		if err := CheckAmount(current.AccountType, in.Amount); err != nil {
			return err
		}
		current.Amount = in.Amount
		current.Notes = strings.TrimSpace(in.Notes)
		if updated, err = tx.Update(ctx, current); err != nil {
			return err
		}
		s.invalidateAfterCommit(ctx, current.PeriodID)
		return nil
	})
	if err != nil {
		return OpeningBalance{}, err
	}
	s.record(ctx, "opening_balance.update", id, map[string]any{"amount": updated.Amount.StringFixed(2)})
	return updated, nil
}

// Annul retires an opening balance so the account can be opened again.
func (s *Service) Annul(ctx context.Context, id int64) (OpeningBalance, error) {
	var annulled OpeningBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusActive {
			return fmt.Errorf("%w: opening balance %d is already annulled", acctshared.ErrInvalidStatus, id)
		}
		if err := openPeriod(ctx, tx, current.PeriodID); err != nil {
			return err
		}
		if err := tx.Annul(ctx, id); err != nil {
			return err
		}
		current.Status = StatusAnnulled
		annulled = current
		s.invalidateAfterCommit(ctx, current.PeriodID)
		return nil
	})
	if err != nil {
		return OpeningBalance{}, err
	}
	s.record(ctx, "opening_balance.annul", id, nil)
	return annulled, nil
}

func (s *Service) invalidateAfterCommit(ctx context.Context, periodID int64) {
	if s.invalidator == nil {
		return
	}
	db.AfterCommit(ctx, func() {
		if err := s.invalidator.Invalidate(context.WithoutCancel(ctx), periodID); err != nil {
			s.logger.Warn("ledger invalidate failed", slog.Int64("period_id", periodID), slog.Any("error", err))
		}
	})
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "opening_balance",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
