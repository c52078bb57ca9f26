package invoices

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/invoicing/clients"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/products"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// ClientLister feeds the invoice form.
type ClientLister interface {
	List(ctx context.Context, filters clients.ListFilters) ([]clients.Client, error)
}

// ProductLister feeds the invoice form.
type ProductLister interface {
	List(ctx context.Context, filters products.ListFilters) ([]products.Product, error)
}

const formLines = 5

// Handler serves the invoice dashboard pages.
type Handler struct {
	service  *Service
	clients  ClientLister
	products ProductLister
	pages    view.Responder
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, clients ClientLister, products ProductLister, pages view.Responder) *Handler {
	return &Handler{service: service, clients: clients, products: products, pages: pages}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/pay", h.pay)
	r.Post("/{id}/annul", h.annul)
}

func detailPath(id int64) string {
	return "/invoices/" + strconv.FormatInt(id, 10)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r)
	page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	active := true
	cs, err := h.clients.List(r.Context(), clients.ListFilters{Active: &active})
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	ps, err := h.products.List(r.Context(), products.ListFilters{Active: &active})
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "invoices_list", "Invoices", map[string]any{
		"Page":     page,
		"Filters":  filters,
		"Clients":  cs,
		"Products": ps,
		"Statuses": []Status{StatusDraft, StatusIssued, StatusPaid, StatusOverdue, StatusVoid},
		"Lines":    formLines,
	}, http.StatusOK)
}

func linesFromForm(r *http.Request) ([]LineInput, error) {
	productIDs := r.PostForm["product_id"]
	quantities := r.PostForm["quantity"]
	discounts := r.PostForm["discount_pct"]
	descriptions := r.PostForm["line_description"]
	at := func(values []string, i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	var out []LineInput
	for i, raw := range productIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		line := LineInput{ProductID: id, Description: at(descriptions, i)}
		line.Quantity, err = decimal.NewFromString(at(quantities, i))
		if err != nil {
			return nil, shared.NewValidationError("quantity", "must be a number")
		}
		if raw := at(discounts, i); raw != "" {
			if line.DiscountPct, err = decimal.NewFromString(raw); err != nil {
				return nil, shared.NewValidationError("discount_pct", "must be a number")
			}
		}
		out = append(out, line)
	}
	return out, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	lines, err := linesFromForm(r)
	if err != nil {
		h.pages.Redirect(w, r, "/invoices", "danger", err.Error())
		return
	}
	clientID, _ := strconv.ParseInt(r.PostFormValue("client_id"), 10, 64)
	in := Input{
		ClientID:  clientID,
		IssueDate: r.PostFormValue("issue_date"),
		DueDate:   r.PostFormValue("due_date"),
		Notes:     r.PostFormValue("notes"),
		Lines:     lines,
	}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, "/invoices", "danger", err.Error())
		return
	}
	inv, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.pages.Redirect(w, r, "/invoices", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(inv.ID), "success", "Draft invoice "+inv.Number+" created")
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "invoice_detail", "Invoice "+inv.Number, map[string]any{
		"Invoice": inv,
		"Methods": PaymentMethods,
	}, http.StatusOK)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if _, err := h.service.Confirm(r.Context(), id); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Invoice issued and posted to the ledger")
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	in := PayInput{Date: r.PostFormValue("date"), Method: r.PostFormValue("method")}
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	if _, err := h.service.Pay(r.Context(), id, in); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Payment recorded")
}

func (h *Handler) annul(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if _, err := h.service.Annul(r.Context(), id, r.PostFormValue("reason")); err != nil {
		h.pages.Redirect(w, r, detailPath(id), "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, detailPath(id), "success", "Invoice annulled")
}
