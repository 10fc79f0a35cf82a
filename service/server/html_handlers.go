package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/brojonat/tipjar/service/tipjar"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer holds parsed HTML templates
type TemplateRenderer struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewTemplateRenderer creates a new template renderer from embedded files
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &TemplateRenderer{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Render renders a template with the given data
func (tr *TemplateRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tr.templates.ExecuteTemplate(w, name, data)
}

type widgetPage struct {
	View     tipjar.View
	Settings tipjar.Settings
	Stats    *statsResponse
}

// handleWidgetPage serves the tip jar widget.
func handleWidgetPage(renderer *TemplateRenderer, widget *tipjar.Widget, settings tipjar.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := widget.View()
		page := widgetPage{View: view, Settings: settings}
		if view.Stats != nil {
			stats := statsToResponse(settings.TipJarID, view.Stats)
			page.Stats = &stats
		}
		if err := renderer.Render(w, "widget.html", page); err != nil {
			renderer.logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
}

// handleWidgetForm sends the amount posted from the widget form and
// redirects back to the page, which shows the resulting message.
func handleWidgetForm(widget *tipjar.Widget, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		// Same steps as the page: enter the amount, then press send.
		if err := widget.SetAmount(r.PostFormValue("amount")); err != nil {
			logger.Debug("tip form input refused", "error", err)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if _, err := widget.Send(r.Context()); err != nil {
			logger.Debug("tip form rejected", "kind", tipjar.KindOf(err), "error", err)
		}
		logger.Debug("tip form handled", "message", widget.Message().Text)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
