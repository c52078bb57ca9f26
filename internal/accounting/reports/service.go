package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Ledger supplies per-account balances of a period.
type Ledger interface {
	Balances(ctx context.Context, periodID int64) ([]ledger.Balance, error)
}

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service builds financial statements on read.
type Service struct {
	ledger    Ledger
	snapshots SnapshotStore
	audit     AuditPort
	logger    *slog.Logger
}

// NewService constructs the report service.
func NewService(l Ledger, snapshots SnapshotStore, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, snapshots: snapshots, audit: audit, logger: logger}
}

// TrialBalance returns the report of the period. When the columns differ the
// report is still returned together with a *TrialBalanceMismatchError.
func (s *Service) TrialBalance(ctx context.Context, periodID int64) (TrialBalance, error) {
	balances, err := s.ledger.Balances(ctx, periodID)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(periodID, balances)
	if !tb.Balanced {
		return tb, &acctshared.TrialBalanceMismatchError{
			PeriodID:    periodID,
			DebitTotal:  tb.BalanceDebit,
			CreditTotal: tb.BalanceCredit,
		}
	}
	return tb, nil
}

// BalanceSheet returns the balance sheet of the period.
func (s *Service) BalanceSheet(ctx context.Context, periodID int64) (BalanceSheet, error) {
	balances, err := s.ledger.Balances(ctx, periodID)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BuildBalanceSheet(periodID, balances), nil
}

// IncomeStatement returns the income statement of the period.
func (s *Service) IncomeStatement(ctx context.Context, periodID int64) (IncomeStatement, error) {
	balances, err := s.ledger.Balances(ctx, periodID)
	if err != nil {
		return IncomeStatement{}, err
	}
	return BuildIncomeStatement(periodID, balances), nil
}

// SaveSnapshot generates a statement and stores it. Unbalanced trial
// balances are stored too, flagged as such.
func (s *Service) SaveSnapshot(ctx context.Context, in SnapshotInput) (Snapshot, error) {
	var (
		report   any
		balanced bool
	)
	switch in.Kind {
	case KindTrialBalance:
		tb, err := s.TrialBalance(ctx, in.PeriodID)
		var mismatch *acctshared.TrialBalanceMismatchError
		if err != nil && !errors.As(err, &mismatch) {
			return Snapshot{}, err
		}
		report, balanced = tb, tb.Balanced
	case KindBalanceSheet:
		bs, err := s.BalanceSheet(ctx, in.PeriodID)
		if err != nil {
			return Snapshot{}, err
		}
		report, balanced = bs, bs.Balanced
	case KindIncomeStatement:
		is, err := s.IncomeStatement(ctx, in.PeriodID)
		if err != nil {
			return Snapshot{}, err
		}
		report, balanced = is, true
	default:
		return Snapshot{}, shared.NewValidationError("kind", "must be one of TRIAL_BALANCE BALANCE_SHEET INCOME_STATEMENT")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reports: encode snapshot: %w", err)
	}
	actor := shared.ActorFromContext(ctx)
	saved, err := s.snapshots.Insert(ctx, Snapshot{
		PeriodID:  in.PeriodID,
		Kind:      in.Kind,
		Payload:   payload,
		Balanced:  balanced,
		CreatedBy: actor.Label(),
	})
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "statement.snapshot",
		Entity:   "financial_statement",
		EntityID: strconv.FormatInt(saved.ID, 10),
		Meta:     map[string]any{"kind": string(in.Kind), "period_id": in.PeriodID},
		At:       time.Now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", "statement.snapshot"), slog.Any("error", err))
	}
	return saved, nil
}

// ListSnapshots returns stored statements of a period, newest first. An
// empty kind lists every kind.
func (s *Service) ListSnapshots(ctx context.Context, periodID int64, kind Kind) ([]Snapshot, error) {
	return s.snapshots.List(ctx, periodID, kind)
}

// GetSnapshot returns one stored statement.
func (s *Service) GetSnapshot(ctx context.Context, id int64) (Snapshot, error) {
	return s.snapshots.Get(ctx, id)
}
