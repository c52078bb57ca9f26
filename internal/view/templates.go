package view

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/web"
)

// Engine renders HTML pages. Each page is parsed into its own clone of the
// layout set so every page can define its own "content" block.
type Engine struct {
	pages map[string]*template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *shared.Actor
	Data        any
}

var printer = message.NewPrinter(language.English)

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"formatDateTime": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"money": Money,
		"isZero": func(d decimal.Decimal) bool {
			return d.IsZero()
		},
		"isNeg": func(d decimal.Decimal) bool {
			return d.IsNegative()
		},
		"indent": func(level int) int {
			if level <= 1 {
				return 0
			}
			return (level - 1) * 16
		},
		"active": func(current, prefix string) bool {
			if prefix == "/" {
				return current == "/"
			}
			return strings.HasPrefix(current, prefix)
		},
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"deref": func(id *int64) int64 {
			if id == nil {
				return 0
			}
			return *id
		},
	}
}

// Money formats an amount with thousands separators and two decimals.
func Money(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprintf("%.2f", f)
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	base, err := template.New("base").Funcs(FuncMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(web.Templates, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	engine := &Engine{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(web.Templates, file)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", file, err)
		}
		engine.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}
	return engine, nil
}

// Has reports whether a page exists.
func (e *Engine) Has(name string) bool {
	_, ok := e.pages[name]
	return ok
}

// Render executes the layout around the named page.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	page, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return page.ExecuteTemplate(w, "layout", data)
}
