package accounts

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/view"
)

// Handler serves the chart of accounts dashboard pages.
type Handler struct {
	service *Service
	pages   view.Responder
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, pages view.Responder) *Handler {
	return &Handler{service: service, pages: pages}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}", h.update)
	r.Post("/{id}/toggle", h.toggle)
	r.Post("/{id}/manual", h.saveManual)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.Tree(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "accounts_list", "Chart of Accounts", map[string]any{
		"Tree":    nodes,
		"Parents": parentsOf(nodes),
		"Types":   AccountTypes,
	}, http.StatusOK)
}

func parentsOf(nodes []TreeNode) []TreeNode {
	var out []TreeNode
	for _, n := range nodes {
		if !n.AcceptsPostings && n.IsActive {
			out = append(out, n)
		}
	}
	return out
}

func inputFromForm(r *http.Request) AccountInput {
	in := AccountInput{
		Code:            r.PostFormValue("code"),
		Name:            r.PostFormValue("name"),
		Type:            AccountType(r.PostFormValue("type")),
		AcceptsPostings: r.PostFormValue("accepts_postings") == "on",
		Description:     r.PostFormValue("description"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("parent_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			in.ParentID = &id
		}
	}
	return in
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	in := inputFromForm(r)
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, "/accounts", "danger", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.pages.Redirect(w, r, "/accounts", "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, "/accounts", "success", "Account "+created.Code+" created")
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	manual, err := h.service.GetManual(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	nodes, err := h.service.Tree(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Page(w, r, "account_detail", manual.Account.Code+" "+manual.Account.Name, map[string]any{
		"Account": manual.Account,
		"Nature":  manual.Nature,
		"Manual":  manual.Manual,
		"Parents": parentsOf(nodes),
		"Types":   AccountTypes,
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
	back := "/accounts/" + strconv.FormatInt(id, 10)
	in := inputFromForm(r)
	if err := httpx.Validate(in); err != nil {
		h.pages.Redirect(w, r, back, "danger", err.Error())
		return
	}
	if _, err := h.service.Update(r.Context(), id, in); err != nil {
		h.pages.Redirect(w, r, back, "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, back, "success", "Account updated")
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	back := "/accounts/" + strconv.FormatInt(id, 10)
	if account.IsActive {
		_, err = h.service.Deactivate(r.Context(), id)
	} else {
		_, err = h.service.Activate(r.Context(), id)
	}
	if err != nil {
		h.pages.Redirect(w, r, back, "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, back, "success", "Account status changed")
}

func (h *Handler) saveManual(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	back := "/accounts/" + strconv.FormatInt(id, 10)
	_, err = h.service.SaveManual(r.Context(), id, ManualInput{
		Description:    r.PostFormValue("manual_description"),
		Instructions:   r.PostFormValue("instructions"),
		Examples:       r.PostFormValue("examples"),
		Classification: r.PostFormValue("classification"),
	})
	if err != nil {
		h.pages.Redirect(w, r, back, "danger", err.Error())
		return
	}
	h.pages.Redirect(w, r, back, "success", "Manual saved")
}
