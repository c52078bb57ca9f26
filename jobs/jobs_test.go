package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	jobmetrics "github.com/ledgerbook/ledgerbook/internal/jobs"
)

type stubPeriods []periods.Period

func (s stubPeriods) List(context.Context) ([]periods.Period, error) { return s, nil }

type stubTrialBalance struct {
	unbalanced map[int64]bool
	fail       error
	seen       []int64
}

func (s *stubTrialBalance) TrialBalance(_ context.Context, periodID int64) (reports.TrialBalance, error) {
	s.seen = append(s.seen, periodID)
	if s.fail != nil {
		return reports.TrialBalance{}, s.fail
	}
	if s.unbalanced[periodID] {
		return reports.TrialBalance{}, &acctshared.TrialBalanceMismatchError{
			PeriodID:    periodID,
			DebitTotal:  decimal.NewFromInt(100),
			CreditTotal: decimal.NewFromInt(90),
		}
	}
	return reports.TrialBalance{}, nil
}

func samplePeriods() stubPeriods {
	return stubPeriods{
		{ID: 1, Name: "2024", Status: periods.PeriodStatusClosed},
		{ID: 2, Name: "2025-01", Status: periods.PeriodStatusOpen},
		{ID: 3, Name: "2025-02", Status: periods.PeriodStatusOpen},
	}
}

func TestIntegrityChecksOpenPeriodsOnly(t *testing.T) {
	tb := &stubTrialBalance{unbalanced: map[int64]bool{3: true}}
	job := NewGLIntegrityJob(samplePeriods(), tb, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	result, err := job.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, tb.seen)
	require.Equal(t, 2, result.Checked)
	require.Len(t, result.Mismatches, 1)
	require.Equal(t, int64(3), result.Mismatches[0].PeriodID)
	require.Equal(t, "10.00", result.Mismatches[0].Delta().StringFixed(2))
}

func TestIntegritySinglePeriodIncludesClosed(t *testing.T) {
	tb := &stubTrialBalance{}
	job := NewGLIntegrityJob(samplePeriods(), tb, nil, nil)

	result, err := job.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.Checked)
	require.Empty(t, result.Mismatches)
}

func TestIntegrityHandlePropagatesLedgerErrors(t *testing.T) {
	boom := errors.New("db down")
	job := NewGLIntegrityJob(samplePeriods(), &stubTrialBalance{fail: boom}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewIntegrityTask(IntegrityPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)

	bad := asynq.NewTask(TaskLedgerIntegrity, []byte("{"))
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

type stubMarker struct {
	asOf time.Time
}

func (s *stubMarker) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	s.asOf = asOf
	return 2, nil
}

func TestOverdueUsesPayloadDateOrToday(t *testing.T) {
	marker := &stubMarker{}
	job := NewOverdueJob(marker, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2025, 3, 4, 22, 15, 0, 0, time.UTC) }

	task, err := NewOverdueTask(OverduePayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), marker.asOf)

	task, err = NewOverdueTask(OverduePayload{AsOf: "2025-01-31"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), marker.asOf)

	task, err = NewOverdueTask(OverduePayload{AsOf: "31/01/2025"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestDefaultCronRegistersBothJobs(t *testing.T) {
	entries, err := DefaultCron()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, TaskLedgerIntegrity, entries[0].Task.Type())
	require.Equal(t, TaskInvoicesOverdue, entries[1].Task.Type())
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"queue":"default","size":0,"pending":0,"active":0,"scheduled":0,"retry":0,"archived":0,"failed_today":0,"processed_today":0,"paused":false}`, res.Body.String())
}
