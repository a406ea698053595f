package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventdesk/eventdesk/internal/platform/httpx"
	"github.com/eventdesk/eventdesk/internal/shared"
)

// MenuHandler exposes the role-filtered navigation.
type MenuHandler struct {
	logger *slog.Logger
	menu   *Menu
	guard  Guard
}

// NewMenuHandler builds MenuHandler instance.
func NewMenuHandler(logger *slog.Logger, menu *Menu, guard Guard) *MenuHandler {
	return &MenuHandler{logger: logger, menu: menu, guard: guard}
}

// MountRoutes registers navigation routes.
func (h *MenuHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth)
		r.Get("/menu", h.listMenu)
		r.Get("/routes/{key}/authorize", h.authorize)
	})
}

type authorizeResponse struct {
	Route    string `json:"route"`
	Decision string `json:"decision"`
	Redirect string `json:"redirect,omitempty"`
}

func (h *MenuHandler) listMenu(w http.ResponseWriter, r *http.Request) {
	id := shared.SessionFromContext(r.Context()).Identity()
	role, _ := ParseRole(id.Role)
	httpx.JSON(w, http.StatusOK, map[string]any{"items": h.menu.Visible(role)})
}

func (h *MenuHandler) authorize(w http.ResponseWriter, r *http.Request) {
	id := shared.SessionFromContext(r.Context()).Identity()
	role, _ := ParseRole(id.Role)
	key := chi.URLParam(r, "key")
	decision := h.guard.Routes.Authorize(role, key)
	resp := authorizeResponse{Route: key, Decision: decision.String()}
	if decision == Deny {
		resp.Redirect = DefaultRoute
	}
	httpx.JSON(w, http.StatusOK, resp)
}
