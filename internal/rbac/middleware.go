package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/eventdesk/eventdesk/internal/platform/httpx"
	"github.com/eventdesk/eventdesk/internal/shared"
)

// LoginRoute is where unauthenticated page requests are sent.
const LoginRoute = "/auth/login"

// Guard wires RBAC authorization helpers for HTTP handlers.
type Guard struct {
	Routes *RouteTable
	Logger *slog.Logger
}

// RequireRoute only lets roles on the route's allow-list through. A denial is
// an expected outcome: pages redirect to DefaultRoute, API calls get 403.
func (g Guard) RequireRoute(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := shared.SessionFromContext(r.Context()).Identity()
			if id == nil {
				unauthenticated(w, r)
				return
			}
			role, _ := ParseRole(id.Role)
			if g.Routes.Authorize(role, key) == Allow {
				next.ServeHTTP(w, r)
				return
			}
			if wantsJSON(r) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "route not available for role")
				return
			}
			http.Redirect(w, r, DefaultRoute, http.StatusSeeOther)
		})
	}
}

// RequireAuth rejects requests without a signed-in identity.
func (g Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shared.SessionFromContext(r.Context()).Authenticated() {
			unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current identity has at least one of the required permissions.
func (g Guard) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := shared.SessionFromContext(r.Context()).Identity()
			if id == nil {
				unauthenticated(w, r)
				return
			}
			role, _ := ParseRole(id.Role)
			if len(normalized) == 0 || role.IsWildcard() || id.Can(normalized...) {
				next.ServeHTTP(w, r)
				return
			}
			if g.Logger != nil {
				g.Logger.Debug("rbac permission missing", slog.String("role", id.Role), slog.Any("required", normalized))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	http.Redirect(w, r, LoginRoute, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
