package adjustments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Journal posts and voids the transactions carrying adjustments.
type Journal interface {
	PostBalanced(ctx context.Context, in journals.PostingInput) (journals.Transaction, error)
	VoidGenerated(ctx context.Context, id int64, reason string) (journals.Transaction, error)
	Get(ctx context.Context, id int64) (journals.Transaction, error)
}

// Service manages adjusting entries.
type Service struct {
	repo    Repository
	journal Journal
	audit   AuditPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the adjustment service.
func NewService(repo Repository, journal Journal, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, journal: journal, audit: audit, logger: logger, now: time.Now}
}

// List returns adjustments, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Adjustment, error) {
	return s.repo.List(ctx, filters)
}

// Get returns an adjustment with its carrying transaction.
func (s *Service) Get(ctx context.Context, id int64) (Adjustment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Adjustment{}, err
	}
	tx, err := s.journal.Get(ctx, a.TransactionID)
	if err != nil {
		return Adjustment{}, err
	}
	a.Transaction = &tx
	return a, nil
}

// Create numbers the adjustment and posts its lines in the same database transaction.
func (s *Service) Create(ctx context.Context, in Input) (Adjustment, error) {
	date, err := acctshared.ParseDate(in.Date)
	if err != nil {
		return Adjustment{}, shared.NewValidationError("date", "must be a date formatted 2006-01-02")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Adjustment{}, shared.NewValidationError("reason", "is required")
	}
	var created Adjustment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		posted, err := s.journal.PostBalanced(ctx, journals.PostingInput{
			PeriodID:    in.PeriodID,
			Date:        date,
			Description: "Adjustment " + number + ": " + reason,
			Type:        journals.TypeExpense,
			Category:    strings.ToLower(string(in.Type)),
			Reference:   number,
			Kind:        journals.KindAdjustment,
			SourceRef:   SourceRef(number),
			Lines:       in.Lines,
		})
		if err != nil {
			return err
		}
		created, err = tx.Insert(ctx, Adjustment{
			Number:        number,
			PeriodID:      in.PeriodID,
			Date:          date,
			Type:          in.Type,
			Reason:        reason,
			TransactionID: posted.ID,
			CreatedBy:     shared.ActorFromContext(ctx).Label(),
		})
		if err != nil {
			return err
		}
		created.Transaction = &posted
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, "adjustment.create", created.ID, map[string]any{"number": created.Number})
	return created, nil
}

// Annul retires an adjustment and voids its transaction.
func (s *Service) Annul(ctx context.Context, id int64, reason string) (Adjustment, error) {
	reason = strings.TrimSpace(reason)
	var annulled Adjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusActive {
			return fmt.Errorf("%w: adjustment %s is already annulled", acctshared.ErrInvalidStatus, current.Number)
		}
		if _, err := s.journal.VoidGenerated(ctx, current.TransactionID, "adjustment annulled: "+reason); err != nil {
			return err
		}
		at := s.now()
		if err := tx.Annul(ctx, id, reason, at); err != nil {
			return err
		}
		current.Status = StatusAnnulled
		current.AnnulledAt = &at
		current.AnnulReason = reason
		annulled = current
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, "adjustment.annul", id, map[string]any{"reason": reason})
	return annulled, nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "adjustment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
