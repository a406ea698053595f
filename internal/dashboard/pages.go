package dashboard

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/period"
	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/internal/view"
	"github.com/eventdesk/eventdesk/internal/workspace"
)

// actionDialogs holds the dialog copy for actions requested from HTML forms.
var actionDialogs = map[string]confirm.Options{
	ActionNotificationsClear: {Title: "notifications.clearTitle", Message: "notifications.clearMessage", Severity: "warning"},
	ActionSessionLogout:      {Title: "auth.logoutTitle", Message: "auth.logoutMessage", ConfirmLabel: "nav.logout", Severity: "info"},
	ActionEventsDelete:       {Title: "events.deleteTitle", Message: "events.deleteMessage", Severity: "danger"},
	ActionLicensesRevoke:     {Title: "licenses.revokeTitle", Message: "licenses.revokeMessage", Severity: "danger"},
}

type dashboardPage struct {
	Period  string
	Periods []string
	Stats   map[string]any
}

// MountPages registers the HTML screens and their form endpoints.
func (h *Handler) MountPages(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, rbac.DefaultRoute, http.StatusSeeOther)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth, h.attachWorkspace)
		for _, route := range h.guard.Routes.Routes() {
			page := h.sectionPage(route.Key)
			if route.Key == "dashboard" {
				page = h.dashboardPage
			}
			r.With(h.guard.RequireRoute(route.Key)).Get(route.Path, page)
		}
		r.Post("/preferences", h.submitPreferences)
		r.Post("/actions/{tag}/request", h.requestAction)
		r.Post("/confirmation/confirm", h.submitConfirm)
		r.Post("/confirmation/cancel", h.submitCancel)
	})
}

func (h *Handler) dashboardPage(w http.ResponseWriter, r *http.Request) {
	p := sessionPeriod(shared.SessionFromContext(r.Context()))
	stats, err := h.scaledStats(r, p)
	if err != nil {
		h.logger.Error("load stats", slog.Any("error", err))
		workspace.FromContext(r.Context()).Notifications.ShowError("errors.actionFailed", "")
		stats = map[string]any{}
	}
	periods := make([]string, 0, len(period.All()))
	for _, each := range period.All() {
		periods = append(periods, string(each))
	}
	h.render(w, r, "pages/dashboard.html", "nav.dashboard", dashboardPage{
		Period:  string(p),
		Periods: periods,
		Stats:   stats,
	})
}

func (h *Handler) sectionPage(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, "pages/section.html", "nav."+key, nil)
	}
}

func (h *Handler) submitPreferences(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ws := workspace.FromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if err := h.savePreferences(sess, r.PostFormValue("language"), r.PostFormValue("period")); err != nil {
		ws.Notifications.ShowError("errors.validation", "")
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (h *Handler) requestAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ws := workspace.FromContext(r.Context())
	tag := chi.URLParam(r, "tag")
	opts, ok := actionDialogs[tag]
	if !ok {
		ws.Notifications.ShowError("errors.validation", "")
		http.Redirect(w, r, backTo(r), http.StatusSeeOther)
		return
	}
	action := confirm.Action{Tag: tag}
	if id := strings.TrimSpace(r.PostFormValue("id")); id != "" {
		action.Payload = map[string]string{"id": id}
	}
	if _, err := h.open(r, ws, opts, action); err != nil {
		h.logger.Warn("open confirmation", slog.String("action", tag), slog.Any("error", err))
		ws.Notifications.ShowError("errors.forbidden", "")
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (h *Handler) submitConfirm(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	result, err := h.accept(r, ws)
	switch {
	case err != nil:
		h.logger.Debug("confirm without open request", slog.Any("error", err))
	case result.Redirect != "":
		http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (h *Handler) submitCancel(w http.ResponseWriter, r *http.Request) {
	workspace.FromContext(r.Context()).Confirmations.HandleCancel()
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	ws := workspace.FromContext(r.Context())
	var csrfToken string
	if h.csrf != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var pending *confirm.View
	if current, ok := ws.Confirmations.Current(); ok {
		pending = &current
	}
	id := sess.Identity()
	err := h.templates.Render(w, name, view.TemplateData{
		Title:         title,
		CSRFToken:     csrfToken,
		CurrentPath:   r.URL.Path,
		Translator:    h.translator(r),
		Identity:      id,
		Menu:          h.menu.Visible(identityRole(id)),
		Notifications: ws.Notifications.List(),
		Confirmation:  pending,
		Data:          data,
	})
	if err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// backTo returns the same-origin path the form was posted from.
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return rbac.DefaultRoute
	}
	if ref.Host != "" && ref.Host != r.Host {
		return rbac.DefaultRoute
	}
	return ref.Path
}
