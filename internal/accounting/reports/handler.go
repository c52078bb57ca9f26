package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/accounting/ledger"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// API serves the JSON report endpoints.
type API struct {
	logger  *slog.Logger
	service *Service
}

// NewAPI constructs the JSON handler.
func NewAPI(logger *slog.Logger, service *Service) *API {
	return &API{logger: logger, service: service}
}

// MountRoutes registers report routes under /reports.
func (a *API) MountRoutes(r chi.Router) {
	r.Get("/reports/trial-balance", a.trialBalance)
	r.Get("/reports/balance-sheet", a.balanceSheet)
	r.Get("/reports/income-statement", a.incomeStatement)
	r.Get("/reports/snapshots", a.listSnapshots)
	r.Post("/reports/snapshots", a.saveSnapshot)
	r.Get("/reports/snapshots/{id}", a.getSnapshot)
}

func (a *API) trialBalance(w http.ResponseWriter, r *http.Request) {
	periodID, err := ledger.PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	tb, err := a.service.TrialBalance(r.Context(), periodID)
	var mismatch *acctshared.TrialBalanceMismatchError
	if errors.As(err, &mismatch) {
		problem := httpx.ProblemFor(err)
		problem.Meta["report"] = tb
		httpx.Problem(w, problem)
		return
	}
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (a *API) balanceSheet(w http.ResponseWriter, r *http.Request) {
	periodID, err := ledger.PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	bs, err := a.service.BalanceSheet(r.Context(), periodID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (a *API) incomeStatement(w http.ResponseWriter, r *http.Request) {
	periodID, err := ledger.PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	is, err := a.service.IncomeStatement(r.Context(), periodID)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (a *API) listSnapshots(w http.ResponseWriter, r *http.Request) {
	periodID, err := ledger.PeriodParam(r)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	items, err := a.service.ListSnapshots(r.Context(), periodID, Kind(r.URL.Query().Get("kind")))
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if items == nil {
		items = []Snapshot{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (a *API) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	var in SnapshotInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	saved, err := a.service.SaveSnapshot(r.Context(), in)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saved)
}

func (a *API) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	s, err := a.service.GetSnapshot(r.Context(), id)
	if err != nil {
		httpx.Fail(a.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// PeriodLister feeds the period selector.
type PeriodLister interface {
	List(ctx context.Context) ([]periods.Period, error)
}

// Handler renders the report pages.
type Handler struct {
	service *Service
	periods PeriodLister
	pages   view.Responder
}

// NewHandler constructs the report pages handler.
func NewHandler(service *Service, periods PeriodLister, pages view.Responder) *Handler {
	return &Handler{service: service, periods: periods, pages: pages}
}

// MountRoutes registers report pages under /reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/income-statement", h.incomeStatement)
	r.Post("/snapshots", h.saveSnapshot)
}

func (h *Handler) selection(r *http.Request) (periods.Period, []periods.Period, bool, error) {
	ps, err := h.periods.List(r.Context())
	if err != nil {
		return periods.Period{}, nil, false, err
	}
	p, ok := ledger.SelectedPeriod(r, ps)
	return p, ps, ok, nil
}

func (h *Handler) snapshots(ctx context.Context, periodID int64, kind Kind) []Snapshot {
	items, err := h.service.ListSnapshots(ctx, periodID, kind)
	if err != nil {
		h.service.logger.Warn("list snapshots", slog.Int64("period_id", periodID), slog.Any("error", err))
		return nil
	}
	return items
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	period, ps, ok, err := h.selection(r)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	vm := TrialBalanceViewModel{Period: period, Periods: ps}
	if ok {
		tb, err := h.service.TrialBalance(r.Context(), period.ID)
		var mismatch *acctshared.TrialBalanceMismatchError
		if err != nil && !errors.As(err, &mismatch) {
			h.pages.Error(w, r, err)
			return
		}
		vm.Report = tb
		vm.Mismatch = mismatch
		vm.Snapshots = h.snapshots(r.Context(), period.ID, KindTrialBalance)
	}
	h.pages.Page(w, r, "trial_balance", "Trial Balance", vm, http.StatusOK)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	period, ps, ok, err := h.selection(r)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	vm := BalanceSheetViewModel{Period: period, Periods: ps}
	if ok {
		vm.Report, err = h.service.BalanceSheet(r.Context(), period.ID)
		if err != nil {
			h.pages.Error(w, r, err)
			return
		}
		vm.Snapshots = h.snapshots(r.Context(), period.ID, KindBalanceSheet)
	}
	h.pages.Page(w, r, "balance_sheet", "Balance Sheet", vm, http.StatusOK)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	period, ps, ok, err := h.selection(r)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	vm := IncomeStatementViewModel{Period: period, Periods: ps}
	if ok {
		vm.Report, err = h.service.IncomeStatement(r.Context(), period.ID)
		if err != nil {
			h.pages.Error(w, r, err)
			return
		}
		vm.Snapshots = h.snapshots(r.Context(), period.ID, KindIncomeStatement)
	}
	h.pages.Page(w, r, "income_statement", "Income Statement", vm, http.StatusOK)
}

var snapshotPages = map[Kind]string{
	KindTrialBalance:    "/reports/trial-balance",
	KindBalanceSheet:    "/reports/balance-sheet",
	KindIncomeStatement: "/reports/income-statement",
}

func (h *Handler) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	kind := Kind(r.PostFormValue("kind"))
	back, ok := snapshotPages[kind]
	if !ok {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	periodID, err := ledger.PeriodParam(r)
	if err != nil {
		h.pages.Redirect(w, r, back, "danger", err.Error())
		return
	}
	back += "?period=" + r.URL.Query().Get("period")
	if _, err := h.service.SaveSnapshot(r.Context(), SnapshotInput{PeriodID: periodID, Kind: kind}); err != nil {
		h.pages.Redirect(w, r, back, "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, back, "success", "Snapshot saved")
}
