package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eventdesk/eventdesk/internal/analytics"
	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/notify"
	"github.com/eventdesk/eventdesk/internal/period"
	"github.com/eventdesk/eventdesk/internal/platform/httpx"
	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/internal/workspace"
)

// StatsLoadingKey is the tracker key raised while figures load.
const StatsLoadingKey = "stats"

type notificationRequest struct {
	Severity   string `json:"severity" validate:"omitempty,oneof=success error info warning"`
	Title      string `json:"title" validate:"required,max=200"`
	Message    string `json:"message" validate:"max=1000"`
	DurationMS int64  `json:"durationMs" validate:"gte=0,lte=600000"`
	AutoClose  *bool  `json:"autoClose"`
}

type actionRequest struct {
	Tag     string            `json:"tag" validate:"required,max=64"`
	Payload map[string]string `json:"payload"`
}

type confirmationRequest struct {
	Title        string        `json:"title" validate:"required,max=200"`
	Message      string        `json:"message" validate:"max=1000"`
	ConfirmLabel string        `json:"confirmLabel" validate:"max=64"`
	CancelLabel  string        `json:"cancelLabel" validate:"max=64"`
	Severity     string        `json:"severity" validate:"omitempty,oneof=info warning danger"`
	Action       actionRequest `json:"action"`
}

type preferencesRequest struct {
	Language *string `json:"language" validate:"omitempty,max=16"`
	Period   *string `json:"period" validate:"omitempty,max=16"`
}

type preferencesResponse struct {
	Language  string   `json:"language"`
	Period    string   `json:"period"`
	Languages []string `json:"languages"`
	Periods   []string `json:"periods"`
}

type statsResponse struct {
	Period     string         `json:"period"`
	Label      string         `json:"label"`
	Multiplier float64        `json:"multiplier"`
	Stats      map[string]any `json:"stats"`
}

type confirmResult struct {
	Status       string        `json:"status"`
	Confirmation *confirm.View `json:"confirmation,omitempty"`
	Redirect     string        `json:"redirect,omitempty"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": ws.Notifications.List()})
}

func (h *Handler) createNotification(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	var req notificationRequest
	if !h.decode(w, r, ws, &req) {
		return
	}
	id := ws.Notifications.Add(notify.Notice{
		Severity:  req.Severity,
		Title:     req.Title,
		Message:   req.Message,
		Duration:  time.Duration(req.DurationMS) * time.Millisecond,
		AutoClose: req.AutoClose,
	})
	for _, n := range ws.Notifications.List() {
		if n.ID == id {
			httpx.JSON(w, http.StatusCreated, n)
			return
		}
	}
	// A sub-millisecond expiry can remove the entry before it is listed.
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) removeNotification(w http.ResponseWriter, r *http.Request) {
	workspace.FromContext(r.Context()).Notifications.Remove(chi.URLParam(r, "id"))
	httpx.NoContent(w)
}

func (h *Handler) clearNotifications(w http.ResponseWriter, r *http.Request) {
	workspace.FromContext(r.Context()).Notifications.ClearAll()
	httpx.NoContent(w)
}

func (h *Handler) loadingSnapshot(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"loading": ws.Loading.Snapshot()})
}

func (h *Handler) loadingKey(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	key := chi.URLParam(r, "key")
	httpx.JSON(w, http.StatusOK, map[string]any{"key": key, "loading": ws.Loading.IsLoading(key)})
}

func (h *Handler) currentConfirmation(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	view, ok := ws.Confirmations.Current()
	if !ok {
		httpx.JSON(w, http.StatusOK, confirm.View{})
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) openConfirmation(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	var req confirmationRequest
	if !h.decode(w, r, ws, &req) {
		return
	}
	view, err := h.open(r, ws, confirm.Options{
		Title:        req.Title,
		Message:      req.Message,
		ConfirmLabel: req.ConfirmLabel,
		CancelLabel:  req.CancelLabel,
		Severity:     req.Severity,
	}, confirm.Action{Tag: req.Action.Tag, Payload: req.Action.Payload})
	switch {
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission for action")
	case errors.Is(err, confirm.ErrUnknownAction):
		ws.Notifications.ShowError("errors.validation", req.Action.Tag)
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case err != nil:
		httpx.RespondError(w, err)
	default:
		httpx.JSON(w, http.StatusCreated, view)
	}
}

func (h *Handler) acceptConfirmation(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	result, err := h.accept(r, ws)
	if errors.Is(err, confirm.ErrNotOpen) {
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) cancelConfirmation(w http.ResponseWriter, r *http.Request) {
	workspace.FromContext(r.Context()).Confirmations.HandleCancel()
	httpx.NoContent(w)
}

func (h *Handler) translate(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "key is required")
		return
	}
	tr := h.translator(r)
	httpx.JSON(w, http.StatusOK, map[string]string{"key": key, "lang": tr.Lang(), "value": tr.T(key)})
}

func (h *Handler) statsAPI(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	p := sessionPeriod(sess)
	if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
		p = period.Period(strings.ToLower(raw))
	}
	stats, err := h.scaledStats(r, p)
	if err != nil {
		h.logger.Error("load stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statsResponse{
		Period:     string(p),
		Label:      h.translator(r).T(p.LabelKey()),
		Multiplier: period.Multiplier(p),
		Stats:      stats,
	})
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.preferences(r))
}

func (h *Handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromContext(r.Context())
	var req preferencesRequest
	if !h.decode(w, r, ws, &req) {
		return
	}
	var lang, per string
	if req.Language != nil {
		lang = *req.Language
	}
	if req.Period != nil {
		per = *req.Period
	}
	if err := h.savePreferences(shared.SessionFromContext(r.Context()), lang, per); err != nil {
		ws.Notifications.ShowError("errors.validation", err.Error())
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, h.preferences(r))
}

// decode reads a JSON body into dst and validates it. Failures answer 400 and
// queue an error notification for the caller.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		ws.Notifications.ShowError("errors.validation", "")
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		detail := err.Error()
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			detail = "invalid fields: " + strings.Join(fields, ", ")
		}
		ws.Notifications.ShowError("errors.validation", detail)
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", detail)
		return false
	}
	return true
}

func (h *Handler) preferences(r *http.Request) preferencesResponse {
	sess := shared.SessionFromContext(r.Context())
	periods := make([]string, 0, len(period.All()))
	for _, p := range period.All() {
		periods = append(periods, string(p))
	}
	return preferencesResponse{
		Language:  h.language(r, sess),
		Period:    string(sessionPeriod(sess)),
		Languages: h.catalog.Languages(),
		Periods:   periods,
	}
}

var (
	errUnsupportedLanguage = errors.New("unsupported language")
	errUnsupportedPeriod   = errors.New("unsupported period")
)

// savePreferences validates both values before storing either.
func (h *Handler) savePreferences(sess *shared.Session, lang, per string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	per = strings.ToLower(strings.TrimSpace(per))
	if lang != "" && !h.catalog.Supports(lang) {
		return errUnsupportedLanguage
	}
	if per != "" {
		if _, ok := period.Parse(per); !ok {
			return errUnsupportedPeriod
		}
	}
	if lang != "" {
		sess.Set(shared.SessionKeyLanguage, lang)
	}
	if per != "" {
		sess.Set(shared.SessionKeyPeriod, per)
	}
	return nil
}

// scaledStats loads the base figures under the stats loading key and scales
// them to p.
func (h *Handler) scaledStats(r *http.Request, p period.Period) (map[string]any, error) {
	ws := workspace.FromContext(r.Context())
	id := shared.SessionFromContext(r.Context()).Identity()
	var summary analytics.Summary
	err := ws.Loading.WithLoading(r.Context(), StatsLoadingKey, func(ctx context.Context) error {
		if h.stats == nil || id == nil {
			return nil
		}
		var err error
		summary, err = h.stats.GetSummary(ctx, analytics.Scope{Role: id.Role, UserID: id.ID})
		return err
	})
	if err != nil {
		return nil, err
	}
	scaled, _ := period.Scale(summary.Map(), p).(map[string]any)
	return scaled, nil
}

// open checks the caller may run action before opening the dialog.
func (h *Handler) open(r *http.Request, ws *workspace.Workspace, opts confirm.Options, action confirm.Action) (confirm.View, error) {
	id := shared.SessionFromContext(r.Context()).Identity()
	if !Permitted(id, action.Tag) {
		return confirm.View{}, httpx.ErrForbidden
	}
	if _, err := ws.Confirmations.Confirm(opts, action); err != nil {
		return confirm.View{}, err
	}
	view, _ := ws.Confirmations.Current()
	return view, nil
}

// accept runs the pending action. A failed handler leaves its request open
// and the caller gets an error notification.
func (h *Handler) accept(r *http.Request, ws *workspace.Workspace) (confirmResult, error) {
	outcome, err := ws.Confirmations.HandleConfirm(r.Context())
	if err != nil {
		return confirmResult{}, err
	}
	if shared.SessionFromContext(r.Context()).Destroyed() {
		return confirmResult{Status: string(outcome.Result), Redirect: rbac.LoginRoute}, nil
	}
	if !outcome.Failed() {
		return confirmResult{Status: string(confirm.ResultConfirmed)}, nil
	}
	result := confirmResult{Status: string(confirm.ResultFailed)}
	view, open := ws.Confirmations.Current()
	title := outcome.Action.Tag
	if open && view.ID == outcome.RequestID {
		title = view.Title
		result.Confirmation = &view
	}
	ws.Notifications.ShowError("errors.actionFailed", title)
	return result, nil
}
