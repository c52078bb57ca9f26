package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/invoices"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

type stubPeriods struct {
	period periods.Period
	err    error
}

func (s stubPeriods) Current(context.Context) (periods.Period, error) { return s.period, s.err }

type stubTrial struct {
	tb  reports.TrialBalance
	err error
}

func (s stubTrial) TrialBalance(context.Context, int64) (reports.TrialBalance, error) {
	return s.tb, s.err
}

type stubJournals struct{ calls int }

func (s *stubJournals) Summary(context.Context, *int64) (journals.Summary, error) {
	s.calls++
	return journals.Summary{Drafts: 2, Posted: 5}, nil
}

type stubReceivables struct{ err error }

func (s stubReceivables) Receivables(_ context.Context, asOf time.Time) (invoices.ReceivablesReport, error) {
	return invoices.ReceivablesReport{AsOf: asOf, Total: decimal.NewFromInt(300)}, s.err
}

func TestBuildWithOpenPeriod(t *testing.T) {
	j := &stubJournals{}
	tb := reports.TrialBalance{PeriodID: 3, Balanced: false}
	mismatch := &acctshared.TrialBalanceMismatchError{PeriodID: 3, DebitTotal: decimal.NewFromInt(10)}
	h := NewHandler(stubPeriods{period: periods.Period{ID: 3}}, stubTrial{tb: tb, err: mismatch}, j, stubReceivables{}, view.Responder{}, nil)

	out, err := h.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Period)
	require.True(t, out.Mismatch)
	require.Equal(t, int64(3), out.Trial.PeriodID)
	require.Equal(t, 5, out.Journals.Posted)
	require.True(t, out.Receivables.Total.Equal(decimal.NewFromInt(300)))
}

func TestBuildWithoutOpenPeriod(t *testing.T) {
	j := &stubJournals{}
	h := NewHandler(stubPeriods{err: acctshared.ErrNoOpenPeriod}, stubTrial{}, j, stubReceivables{err: errors.New("down")}, view.Responder{}, nil)

	out, err := h.Build(context.Background())
	require.NoError(t, err)
	require.Nil(t, out.Period)
	require.Nil(t, out.Trial)
	require.Nil(t, out.Receivables)
	require.Zero(t, j.calls)
}

func TestBuildPropagatesStorageErrors(t *testing.T) {
	boom := errors.New("db down")
	h := NewHandler(stubPeriods{err: boom}, stubTrial{}, &stubJournals{}, stubReceivables{}, view.Responder{}, nil)
	_, err := h.Build(context.Background())
	require.ErrorIs(t, err, boom)
}
