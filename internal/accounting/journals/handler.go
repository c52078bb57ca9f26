package journals

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// AccountLister feeds the entry form.
type AccountLister interface {
	List(ctx context.Context, filters accounts.ListFilters) ([]accounts.Account, error)
}

// PeriodLister feeds the transaction form.
type PeriodLister interface {
	List(ctx context.Context) ([]periods.Period, error)
}

// Handler serves the transaction dashboard pages.
type Handler struct {
	service  *Service
	accounts AccountLister
	periods  PeriodLister
	pages    view.Responder
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, accounts AccountLister, periods PeriodLister, pages view.Responder) *Handler {
	return &Handler{service: service, accounts: accounts, periods: periods, pages: pages}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}", h.update)
	r.Post("/{id}/post", h.post)
	r.Post("/{id}/void", h.void)
	r.Post("/{id}/entries", h.addEntry)
	r.Post("/{id}/entries/{entryID}/delete", h.deleteEntry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r)
	page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	ps, err := h.periods.List(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "transactions_list", "Transactions", map[string]any{
		"Page":    page,
		"Filters": filters,
		"Periods": ps,
		"Types":   []Type{TypeIncome, TypeExpense},
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	periodID, _ := strconv.ParseInt(r.PostFormValue("period_id"), 10, 64)
	in := TransactionInput{
		PeriodID:    periodID,
		Date:        r.PostFormValue("date"),
		Description: r.PostFormValue("description"),
		Type:        Type(r.PostFormValue("type")),
		Category:    r.PostFormValue("category"),
		Currency:    r.PostFormValue("currency"),
		Reference:   r.PostFormValue("reference"),
		Notes:       r.PostFormValue("notes"),
	}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, "/transactions", "danger", err.Error())
		return
	}
	t, err := h.service.CreateTransaction(r.Context(), in)
	if err != nil {
		h.pages.Redirect(w, r, "/transactions", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(t.ID), "success", "Draft transaction created")
}

func detailPath(id int64) string {
	return "/transactions/" + strconv.FormatInt(id, 10)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	active, postable := true, true
	accts, err := h.accounts.List(r.Context(), accounts.ListFilters{Active: &active, Postable: &postable})
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	debit, credit := t.Totals()
	h.pages.Page(w, r, "transaction_detail", "Transaction #"+strconv.FormatInt(t.ID, 10), map[string]any{
		"Transaction": t,
		"Accounts":    accts,
		"Debit":       debit,
		"Credit":      credit,
		"Delta":       debit.Sub(credit).Abs(),
		"Balanced":    debit.Equal(credit),
		"Types":       []Type{TypeIncome, TypeExpense},
	}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	in := TransactionUpdate{
		Date:        r.PostFormValue("date"),
		Description: r.PostFormValue("description"),
		Type:        Type(r.PostFormValue("type")),
		Category:    r.PostFormValue("category"),
		Currency:    r.PostFormValue("currency"),
		Reference:   r.PostFormValue("reference"),
		Notes:       r.PostFormValue("notes"),
	}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	if _, err := h.service.UpdateTransaction(r.Context(), id, in); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Transaction updated")
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if _, err := h.service.PostTransaction(r.Context(), id); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Transaction posted")
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if _, err := h.service.DeleteTransaction(r.Context(), id, r.PostFormValue("reason")); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Transaction voided")
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.NewValidationError("amount", "must be a number")
	}
	return d, nil
}

func (h *Handler) addEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	accountID, _ := strconv.ParseInt(r.PostFormValue("account_id"), 10, 64)
	in := EntryInput{AccountID: accountID, Memo: r.PostFormValue("memo")}
	if in.Debit, err = parseAmount(r.PostFormValue("debit")); err == nil {
		in.Credit, err = parseAmount(r.PostFormValue("credit"))
	}
	if err == nil {
		err = httpx.Validate(in)
	}
	if err == nil {
		_, err = h.service.AddEntry(r.Context(), id, in)
	}
	if err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Entry added")
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	entryID, err := httpx.IDParam(r, "entryID")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := h.service.DeleteEntry(r.Context(), entryID); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Entry removed")
}
