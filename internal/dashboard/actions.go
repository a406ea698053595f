package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/internal/workspace"
)

// Confirmable action tags.
const (
	ActionNotificationsClear = "notifications.clear"
	ActionSessionLogout      = "session.logout"
	ActionEventsDelete       = "events.delete"
	ActionLicensesRevoke     = "licenses.revoke"
)

var (
	// ErrMissingTarget indicates an action payload without an "id".
	ErrMissingTarget = errors.New("dashboard: action target missing")
	// ErrNoWorkspace indicates an action ran outside a bound workspace.
	ErrNoWorkspace = errors.New("dashboard: no workspace in context")
)

var actionPermissions = map[string][]string{
	ActionEventsDelete:   {shared.PermEventsDelete},
	ActionLicensesRevoke: {shared.PermLicensesRevoke},
}

// Permitted reports whether id may open or run the action tagged tag.
// Tags without a permission entry only need a signed-in identity.
func Permitted(id *shared.Identity, tag string) bool {
	if id == nil {
		return false
	}
	perms := actionPermissions[tag]
	if len(perms) == 0 {
		return true
	}
	role, _ := rbac.ParseRole(id.Role)
	return role.IsWildcard() || id.Can(perms...)
}

// EventStore applies destructive changes to events and licenses.
type EventStore interface {
	DeleteEvent(ctx context.Context, id string) error
	RevokeLicense(ctx context.Context, id string) error
}

// StatsInvalidator drops cached figures after a write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Actions binds confirmable action tags to their handlers.
type Actions struct {
	Events EventStore
	Stats  StatsInvalidator
	Logout confirm.Handler
	Logger *slog.Logger
}

// Register adds every action to registry.
func (a Actions) Register(registry *confirm.Registry) error {
	handlers := map[string]confirm.Handler{
		ActionNotificationsClear: a.clearNotifications,
		ActionSessionLogout:      a.logout,
		ActionEventsDelete:       a.deleteEvent,
		ActionLicensesRevoke:     a.revokeLicense,
	}
	for _, tag := range []string{ActionNotificationsClear, ActionSessionLogout, ActionEventsDelete, ActionLicensesRevoke} {
		if err := registry.Register(tag, handlers[tag]); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

func (a Actions) clearNotifications(ctx context.Context, _ confirm.Action) error {
	ws := workspace.FromContext(ctx)
	if ws == nil {
		return ErrNoWorkspace
	}
	ws.Notifications.ClearAll()
	ws.Notifications.ShowSuccess("notifications.cleared", "")
	return nil
}

func (a Actions) logout(ctx context.Context, action confirm.Action) error {
	if a.Logout == nil {
		return nil
	}
	return a.Logout(ctx, action)
}

func (a Actions) deleteEvent(ctx context.Context, action confirm.Action) error {
	return a.mutate(ctx, action, "events.deleted", func(ctx context.Context, id string) error {
		return a.Events.DeleteEvent(ctx, id)
	})
}

func (a Actions) revokeLicense(ctx context.Context, action confirm.Action) error {
	return a.mutate(ctx, action, "licenses.revoked", func(ctx context.Context, id string) error {
		return a.Events.RevokeLicense(ctx, id)
	})
}

// mutate re-checks permissions at run time since the role may differ from
// the one that opened the dialog.
func (a Actions) mutate(ctx context.Context, action confirm.Action, success string, apply func(context.Context, string) error) error {
	ws := workspace.FromContext(ctx)
	if ws == nil {
		return ErrNoWorkspace
	}
	if !Permitted(shared.SessionFromContext(ctx).Identity(), action.Tag) {
		ws.Notifications.ShowError("errors.forbidden", "")
		return fmt.Errorf("%s: %w", action.Tag, errForbidden)
	}
	target := strings.TrimSpace(action.Payload["id"])
	if target == "" {
		ws.Notifications.ShowError("errors.missingTarget", "")
		return ErrMissingTarget
	}
	if a.Events == nil {
		return fmt.Errorf("%s: no event store", action.Tag)
	}
	if err := apply(ctx, target); err != nil {
		return fmt.Errorf("%s %s: %w", action.Tag, target, err)
	}
	if a.Stats != nil {
		if err := a.Stats.Invalidate(ctx); err != nil {
			a.logger().Warn("invalidate stats", slog.String("action", action.Tag), slog.Any("error", err))
		}
	}
	ws.Notifications.ShowSuccess(success, "")
	return nil
}

var errForbidden = errors.New("forbidden")

func (a Actions) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
