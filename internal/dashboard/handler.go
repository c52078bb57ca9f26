package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/reports"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/invoices"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// PeriodSource resolves the period shown on the overview.
type PeriodSource interface {
	Current(ctx context.Context) (periods.Period, error)
}

// TrialBalancer computes the trial balance of a period.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, periodID int64) (reports.TrialBalance, error)
}

// JournalSummarizer counts transactions by status.
type JournalSummarizer interface {
	Summary(ctx context.Context, periodID *int64) (journals.Summary, error)
}

// ReceivablesSource reports unpaid invoices.
type ReceivablesSource interface {
	Receivables(ctx context.Context, asOf time.Time) (invoices.ReceivablesReport, error)
}

// Overview is the data behind the landing page.
type Overview struct {
	Period      *periods.Period
	Trial       *reports.TrialBalance
	Mismatch    bool
	Journals    journals.Summary
	Receivables *invoices.ReceivablesReport
}

// Handler renders the landing page.
type Handler struct {
	periods     PeriodSource
	trial       TrialBalancer
	journals    JournalSummarizer
	receivables ReceivablesSource
	pages       view.Responder
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler constructs the overview handler.
func NewHandler(p PeriodSource, tb TrialBalancer, j JournalSummarizer, rcv ReceivablesSource, pages view.Responder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{periods: p, trial: tb, journals: j, receivables: rcv, pages: pages, logger: logger, now: time.Now}
}

// MountRoutes registers the overview at the router root.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

// Build gathers the overview. Missing periods leave the ledger sections empty.
func (h *Handler) Build(ctx context.Context) (Overview, error) {
	var out Overview
	period, err := h.periods.Current(ctx)
	switch {
	case err == nil:
		out.Period = &period
	case errors.Is(err, acctshared.ErrNoOpenPeriod), errors.Is(err, acctshared.ErrPeriodNotFound):
	default:
		return out, err
	}

	if out.Period != nil {
		tb, err := h.trial.TrialBalance(ctx, out.Period.ID)
		var mismatch *acctshared.TrialBalanceMismatchError
		if err != nil && !errors.As(err, &mismatch) {
			return out, err
		}
		out.Trial = &tb
		out.Mismatch = mismatch != nil
		out.Journals, err = h.journals.Summary(ctx, &out.Period.ID)
		if err != nil {
			return out, err
		}
	}

	rcv, err := h.receivables.Receivables(ctx, h.now())
	if err != nil {
		// the overview still renders without the invoicing panel
		h.logger.Warn("overview receivables", slog.Any("error", err))
		return out, nil
	}
	out.Receivables = &rcv
	return out, nil
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	data, err := h.Build(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "dashboard", "Overview", data, http.StatusOK)
}
