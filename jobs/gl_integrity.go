package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	jobmetrics "github.com/ledgerbook/ledgerbook/internal/jobs"
)

// PeriodSource lists the periods to check.
type PeriodSource interface {
	List(ctx context.Context) ([]periods.Period, error)
}

// TrialBalancer computes a period trial balance.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, periodID int64) (reports.TrialBalance, error)
}

// IntegrityResult summarises one integrity run.
type IntegrityResult struct {
	Checked    int
	Mismatches []*acctshared.TrialBalanceMismatchError
}

// GLIntegrityJob verifies that the trial balance of every open period balances.
type GLIntegrityJob struct {
	Periods PeriodSource
	Reports TrialBalancer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob initialises the integrity handler.
func NewGLIntegrityJob(periodSource PeriodSource, tb TrialBalancer, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Periods: periodSource, Reports: tb, Logger: logger, Metrics: metrics}
}

// Handle executes the asynq task.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("gl integrity payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	_, err := j.Run(ctx, payload.PeriodID)
	return tracker.End(err)
}

// Run checks one period, or every open period when periodID is zero.
// Mismatches are reported in the result and do not fail the run.
func (j *GLIntegrityJob) Run(ctx context.Context, periodID int64) (IntegrityResult, error) {
	var result IntegrityResult
	all, err := j.Periods.List(ctx)
	if err != nil {
		return result, err
	}
	logger := j.logger()
	for _, p := range all {
		if periodID != 0 && p.ID != periodID {
			continue
		}
		if periodID == 0 && !p.IsOpen() {
			continue
		}
		result.Checked++
		_, err := j.Reports.TrialBalance(ctx, p.ID)
		var mismatch *acctshared.TrialBalanceMismatchError
		switch {
		case errors.As(err, &mismatch):
			result.Mismatches = append(result.Mismatches, mismatch)
			j.Metrics.AddTrialBalanceMismatch(p.ID)
			logger.Error("trial balance mismatch",
				slog.Int64("period_id", p.ID),
				slog.String("period", p.Name),
				slog.String("debit", mismatch.DebitTotal.StringFixed(2)),
				slog.String("credit", mismatch.CreditTotal.StringFixed(2)),
				slog.String("delta", mismatch.Delta().StringFixed(2)),
			)
		case err != nil:
			return result, fmt.Errorf("period %d: %w", p.ID, err)
		}
	}
	logger.Info("gl integrity check executed", slog.Int("periods", result.Checked), slog.Int("mismatches", len(result.Mismatches)))
	return result, nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
