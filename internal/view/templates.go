package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/i18n"
	"github.com/eventdesk/eventdesk/internal/notify"
	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title         string
	CSRFToken     string
	CurrentPath   string
	Translator    i18n.Translator
	Identity      *shared.Identity
	Menu          []rbac.MenuItem
	Notifications []notify.Notification
	Confirmation  *confirm.View
	Data          any
}

// T translates key in the request language.
func (d TemplateData) T(key string) string {
	return d.Translator.T(key)
}

// Lang is the active language code.
func (d TemplateData) Lang() string {
	if lang := d.Translator.Lang(); lang != "" {
		return lang
	}
	return i18n.Fallback
}

// Number formats a figure with the grouping rules of the active language.
func (d TemplateData) Number(v any) string {
	p := message.NewPrinter(language.Make(d.Lang()))
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"millis": func(d time.Duration) int64 {
			return d.Milliseconds()
		},
		"active": func(current, path string) bool {
			return current == path
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
