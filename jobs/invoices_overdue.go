package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	jobmetrics "github.com/ledgerbook/ledgerbook/internal/jobs"
)

// OverdueMarker flips collectible invoices past their due date.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// OverdueJob marks past due invoices every night.
type OverdueJob struct {
	Invoices OverdueMarker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueJob initialises the overdue handler.
func NewOverdueJob(invoices OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueJob {
	return &OverdueJob{
		Invoices: invoices,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the asynq task.
func (j *OverdueJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return errors.New("invoices overdue: handler not configured")
	}
	var payload OverduePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("overdue payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf := acctshared.DateOnly(j.clock())
	if payload.AsOf != "" {
		parsed, err := acctshared.ParseDate(payload.AsOf)
		if err != nil {
			return fmt.Errorf("overdue payload: %v: %w", err, asynq.SkipRetry)
		}
		asOf = parsed
	}
	tracker := j.Metrics.Track(TaskInvoicesOverdue)
	n, err := j.Invoices.MarkOverdue(ctx, asOf)
	if err != nil {
		return tracker.End(err)
	}
	j.Metrics.AddOverdue(int(n))
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("invoices marked overdue", slog.String("job", TaskInvoicesOverdue), slog.String("as_of", asOf.Format(acctshared.DateLayout)), slog.Int64("count", n))
	return tracker.End(nil)
}
