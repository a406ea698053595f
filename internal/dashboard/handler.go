// Package dashboard serves the role-aware dashboard shell and its JSON API.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eventdesk/eventdesk/internal/analytics"
	"github.com/eventdesk/eventdesk/internal/i18n"
	"github.com/eventdesk/eventdesk/internal/period"
	"github.com/eventdesk/eventdesk/internal/platform/httpx"
	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/internal/view"
	"github.com/eventdesk/eventdesk/internal/workspace"
)

// StatsSource provides the base figures scaled by the period layer.
type StatsSource interface {
	GetSummary(ctx context.Context, scope analytics.Scope) (analytics.Summary, error)
}

// Config groups Handler dependencies.
type Config struct {
	Logger          *slog.Logger
	Templates       *view.Engine
	CSRF            *shared.CSRFManager
	Catalog         *i18n.Catalog
	Workspaces      *workspace.Registry
	Menu            *rbac.Menu
	Guard           rbac.Guard
	Stats           StatsSource
	DefaultLanguage string
}

// Handler wires the dashboard pages and API.
type Handler struct {
	logger          *slog.Logger
	templates       *view.Engine
	csrf            *shared.CSRFManager
	catalog         *i18n.Catalog
	workspaces      *workspace.Registry
	menu            *rbac.Menu
	guard           rbac.Guard
	stats           StatsSource
	defaultLanguage string
	validator       *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	menu := cfg.Menu
	if menu == nil {
		menu, _ = rbac.NewMenu(rbac.DefaultMenu())
	}
	return &Handler{
		logger:          logger,
		templates:       cfg.Templates,
		csrf:            cfg.CSRF,
		catalog:         cfg.Catalog,
		workspaces:      cfg.Workspaces,
		menu:            menu,
		guard:           cfg.Guard,
		stats:           cfg.Stats,
		defaultLanguage: cfg.DefaultLanguage,
		validator:       validator.New(),
	}
}

// MountAPI registers the JSON API. Every route requires a signed-in session.
func (h *Handler) MountAPI(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth, h.attachWorkspace)

		rbac.NewMenuHandler(h.logger, h.menu, h.guard).MountRoutes(r)

		r.Get("/notifications", h.listNotifications)
		r.With(h.guard.RequireAny(shared.PermNotificationsBroadcast)).Post("/notifications", h.createNotification)
		r.Delete("/notifications", h.clearNotifications)
		r.Delete("/notifications/{id}", h.removeNotification)

		r.Get("/loading", h.loadingSnapshot)
		r.Get("/loading/{key}", h.loadingKey)

		r.Get("/confirmation", h.currentConfirmation)
		r.Post("/confirmation", h.openConfirmation)
		r.Post("/confirmation/confirm", h.acceptConfirmation)
		r.Post("/confirmation/cancel", h.cancelConfirmation)

		r.Get("/translate", h.translate)
		r.Get("/stats", h.statsAPI)
		r.Get("/preferences", h.getPreferences)
		r.Put("/preferences", h.putPreferences)
	})
}

// attachWorkspace binds the session workspace to the request and moves
// pending flashes into its notification queue.
func (h *Handler) attachWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		ws, err := h.workspaces.Attach(sess.ID)
		if err != nil {
			h.logger.Error("attach workspace", slog.Any("error", err))
			if wantsJSON(r) {
				httpx.RespondError(w, err)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		ws.DrainFlashes(sess)
		next.ServeHTTP(w, r.WithContext(workspace.ContextWithWorkspace(r.Context(), ws)))
	})
}

// language picks the stored preference, then Accept-Language, then the
// configured default.
func (h *Handler) language(r *http.Request, sess *shared.Session) string {
	if sess != nil {
		if lang := sess.Get(shared.SessionKeyLanguage); lang != "" && h.catalog.Supports(lang) {
			return lang
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return h.catalog.Negotiate(accept)
	}
	return h.catalog.Resolve(h.defaultLanguage, "")
}

func (h *Handler) translator(r *http.Request) i18n.Translator {
	return h.catalog.For(h.language(r, shared.SessionFromContext(r.Context())))
}

func sessionPeriod(sess *shared.Session) period.Period {
	if sess != nil {
		if p, ok := period.Parse(sess.Get(shared.SessionKeyPeriod)); ok {
			return p
		}
	}
	return period.Default
}

func identityRole(id *shared.Identity) rbac.Role {
	if id == nil {
		return ""
	}
	role, _ := rbac.ParseRole(id.Role)
	return role
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
