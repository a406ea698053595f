package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventdesk/eventdesk/internal/shared"
)

func TestVisibleMenuIsOrderedSubsetForEveryRole(t *testing.T) {
	items := DefaultMenu()
	for _, role := range Roles() {
		visible := VisibleMenu(role, items)
		last := -1
		for _, item := range visible {
			assert.True(t, item.Roles.Contains(role), "%s should not see %s", role, item.ID)
			idx := indexOf(items, item.ID)
			require.GreaterOrEqual(t, idx, 0)
			assert.Greater(t, idx, last, "definition order must be preserved")
			last = idx
		}
	}
}

func TestVisibleMenuWildcardBypass(t *testing.T) {
	items := DefaultMenu()
	assert.Equal(t, items, VisibleMenu(Wildcard, items))
}

func TestVisibleMenuUnknownRoleSeesNothing(t *testing.T) {
	assert.Empty(t, VisibleMenu(Role("guest"), DefaultMenu()))
	assert.Empty(t, VisibleMenu(Role(""), DefaultMenu()))
}

func TestRoleSetNeverContainsWildcard(t *testing.T) {
	set := RoleSet{RoleAdmin}
	assert.False(t, set.Contains(Wildcard))
}

func TestNewMenuValidation(t *testing.T) {
	_, err := NewMenu([]MenuItem{{ID: "a", Path: "/a"}})
	assert.ErrorIs(t, err, ErrEmptyRoleSet)

	_, err = NewMenu([]MenuItem{{ID: "a", Path: "/a", Roles: RoleSet{Wildcard}}})
	assert.ErrorIs(t, err, ErrWildcardInSet)

	_, err = NewMenu([]MenuItem{{ID: "a", Roles: RoleSet{"root"}}})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = NewMenu([]MenuItem{{ID: "a", Roles: RoleSet{RoleAdmin}}, {ID: "a", Roles: RoleSet{RoleAdmin}}})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	menu, err := NewMenu(DefaultMenu())
	require.NoError(t, err)
	assert.Len(t, menu.Items(), len(DefaultMenu()))
}

func TestAuthorizeRoute(t *testing.T) {
	assert.Equal(t, Deny, AuthorizeRoute(RoleAttendee, "customers"))
	assert.Equal(t, Allow, AuthorizeRoute(RoleAttendee, "tickets"))
	assert.Equal(t, Allow, AuthorizeRoute(RoleAdmin, "customers"))
	assert.Equal(t, Deny, AuthorizeRoute(RoleAdmin, "no-such-route"))
	assert.Equal(t, Allow, AuthorizeRoute(Wildcard, "plans"))
	assert.Equal(t, Deny, AuthorizeRoute(Wildcard, "no-such-route"))
}

func TestDefaultTableIsSharedAndComplete(t *testing.T) {
	require.NotNil(t, defaultTable)
	assert.Equal(t, DefaultRoutes(), defaultTable.Routes())
	assert.Panics(t, func() { mustRouteTable([]Route{{Key: "x", Roles: RoleSet{Wildcard}}}) })
	for _, route := range DefaultRoutes() {
		for _, role := range Roles() {
			assert.Equal(t, defaultTable.Authorize(role, route.Key), AuthorizeRoute(role, route.Key))
		}
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Organizer ")
	assert.True(t, ok)
	assert.Equal(t, RoleOrganizer, role)
	_, ok = ParseRole("guest")
	assert.False(t, ok)
}

func newSessionRequest(t *testing.T, method, target string, identity *shared.Identity) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(method, target, nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if identity != nil {
		require.NoError(t, sess.SignIn(*identity))
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func newGuard(t *testing.T) Guard {
	t.Helper()
	table, err := NewRouteTable(DefaultRoutes())
	require.NoError(t, err)
	return Guard{Routes: table}
}

func TestRequireRouteRedirectsDeniedRoleToDashboard(t *testing.T) {
	guard := newGuard(t)
	called := false
	handler := guard.RequireRoute("customers")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := newSessionRequest(t, http.MethodGet, "/customers", &shared.Identity{ID: "9", Role: string(RoleAttendee)})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, DefaultRoute, rr.Header().Get("Location"))
}

func TestRequireRouteAllowsListedRole(t *testing.T) {
	guard := newGuard(t)
	handler := guard.RequireRoute("customers")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := newSessionRequest(t, http.MethodGet, "/customers", &shared.Identity{ID: "1", Role: string(RoleClientAdmin)})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireRouteSendsAnonymousToLogin(t *testing.T) {
	guard := newGuard(t)
	handler := guard.RequireRoute("dashboard")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newSessionRequest(t, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, LoginRoute, rr.Header().Get("Location"))
}

func TestRequireRouteAPIReturnsForbidden(t *testing.T) {
	guard := newGuard(t)
	handler := guard.RequireRoute("plans")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newSessionRequest(t, http.MethodGet, "/api/plans", &shared.Identity{ID: "1", Role: string(RoleOrganizer)}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireAnyChecksPermissions(t *testing.T) {
	guard := newGuard(t)
	handler := guard.RequireAny(shared.PermNotificationsBroadcast)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newSessionRequest(t, http.MethodPost, "/api/notifications", &shared.Identity{ID: "1", Role: string(RoleAdmin)}))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newSessionRequest(t, http.MethodPost, "/api/notifications", &shared.Identity{ID: "1", Role: string(RoleAdmin), Permissions: []string{shared.PermNotificationsBroadcast}}))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMenuHandler(t *testing.T) {
	menu, err := NewMenu(DefaultMenu())
	require.NoError(t, err)
	h := NewMenuHandler(nil, menu, newGuard(t))
	router := chi.NewRouter()
	h.MountRoutes(router)

	req := newSessionRequest(t, http.MethodGet, "/menu", &shared.Identity{ID: "1", Role: string(RoleAttendee)})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Items []MenuItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	ids := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"dashboard", "tickets", "settings"}, ids)

	req = newSessionRequest(t, http.MethodGet, "/routes/customers/authorize", &shared.Identity{ID: "1", Role: string(RoleAttendee)})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var decision authorizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.Equal(t, "deny", decision.Decision)
	assert.Equal(t, DefaultRoute, decision.Redirect)
}

func indexOf(items []MenuItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
