package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"finvault/internal/log"
)

// Page names. Each page is its own template set so that every page can
// define the same "body" or "content" block.
const (
	pageLogin           = "login"
	pageRegister        = "register"
	pageHome            = "home"
	pageAbout           = "about"
	pageTransactionForm = "transaction_form"
	pageHistory         = "history"
)

var (
	baseTemplates      = []string{"templates/layout.html", "templates/partials.html"}
	dashboardTemplates = []string{"templates/dashboard.html"}

	pageTemplates = map[string][]string{
		pageLogin:           {"templates/login.html"},
		pageRegister:        {"templates/register.html"},
		pageHome:            append(dashboardTemplates, "templates/home.html"),
		pageAbout:           append(dashboardTemplates, "templates/about.html"),
		pageTransactionForm: append(dashboardTemplates, "templates/transaction_form.html"),
		pageHistory:         append(dashboardTemplates, "templates/history.html"),
	}
)

type renderer struct {
	pages map[string]*template.Template
}

// newRenderer parses every page set from fsys at startup.
func newRenderer(fsys fs.FS) (*renderer, error) {
	pages := make(map[string]*template.Template, len(pageTemplates))
	for name, files := range pageTemplates {
		patterns := append(append([]string{}, baseTemplates...), files...)
		t, err := template.New(name).ParseFS(fsys, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s templates: %w", name, err)
		}
		pages[name] = t
	}
	return &renderer{pages: pages}, nil
}

// render executes page into a buffer first so a template failure never
// leaves a half written page behind.
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentTemplate)

	t, ok := rd.pages[page]
	if !ok {
		logger.ErrorContext(r.Context(), "Unknown page template", log.FieldTemplate, page)
		InternalServerError("Something went wrong. Please try again.").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldTemplate, page,
			log.FieldError, err)
		InternalServerError("Something went wrong. Please try again.").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
