package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gesturelab/gesturelab/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	pageLanding   = "landing"
	pageLogin     = "login"
	pageRegister  = "register"
	pageHome      = "home"
	pageDashboard = "dashboard"
)

// formValues echoes non-secret form input back into a re-rendered form.
type formValues struct {
	Email    string
	Username string
}

// pageData is the model handed to every template.
type pageData struct {
	Title     string
	Error     string
	Notice    string
	Form      formValues
	Principal models.Principal
	Account   models.Account
	Users     []models.Account
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
	log   *slog.Logger
}

// NewRenderer parses every page against the shared layout.
func NewRenderer(log *slog.Logger) (*Renderer, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{pageLanding, pageLogin, pageRegister, pageHome, pageDashboard} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, log: log}, nil
}

// Render writes page with status. Output is buffered so a template failure
// never leaves a half-written page.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := v.pages[page]
	if !ok {
		v.log.ErrorContext(r.Context(), "unknown page", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.log.ErrorContext(r.Context(), "render page failed", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		v.log.DebugContext(r.Context(), "write page failed", "page", page, "error", err)
	}
}

// seeOther redirects with 303 and an empty body.
func seeOther(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusSeeOther)
}
