package view

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Responder renders dashboard pages with session backed flash and CSRF data.
type Responder struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Logger *slog.Logger
}

// Page renders name with data inside the layout.
func (p Responder) Page(w http.ResponseWriter, r *http.Request, name, title string, data any, status int) {
	td := TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		td.Flash = sess.PopFlash()
		if p.CSRF != nil {
			if token, err := p.CSRF.EnsureToken(sess); err == nil {
				td.CSRFToken = token
			}
		}
		if user, ok := sess.User(); ok {
			td.User = &user
		}
	}
	// render into a buffer so a template failure never sends half a page
	var buf bytes.Buffer
	rec := &bufferWriter{header: w.Header(), buf: &buf}
	if err := p.Engine.Render(rec, name, td); err != nil {
		p.logger().Error("render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Redirect stores a flash message and redirects with 303.
func (p Responder) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// Error renders the error page with the status mapped from err.
func (p Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	problem := httpx.ProblemFor(err)
	if problem.Status >= http.StatusInternalServerError {
		p.logger().Error("dashboard request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	p.Page(w, r, "error", problem.Title, problem, problem.Status)
}

func (p Responder) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

type bufferWriter struct {
	header http.Header
	buf    *bytes.Buffer
}

func (b *bufferWriter) Header() http.Header         { return b.header }
func (b *bufferWriter) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *bufferWriter) WriteHeader(int)             {}
