package rbac

import "fmt"

// DefaultRoute is where denied requests are sent.
const DefaultRoute = "/dashboard"

// Route is a guarded screen.
type Route struct {
	Key   string  `json:"key"`
	Path  string  `json:"path"`
	Roles RoleSet `json:"roles"`
}

// RouteTable maps route keys to their allow-lists.
type RouteTable struct {
	routes map[string]Route
	order  []string
}

// NewRouteTable validates routes.
func NewRouteTable(routes []Route) (*RouteTable, error) {
	t := &RouteTable{routes: make(map[string]Route, len(routes))}
	for _, r := range routes {
		if err := r.Roles.validate(); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Key, err)
		}
		if _, dup := t.routes[r.Key]; dup {
			return nil, fmt.Errorf("route %q: %w", r.Key, ErrDuplicateKey)
		}
		r.Roles = append(RoleSet(nil), r.Roles...)
		t.routes[r.Key] = r
		t.order = append(t.order, r.Key)
	}
	return t, nil
}

// Authorize decides whether role may open the route with key. Unknown keys are denied.
func (t *RouteTable) Authorize(role Role, key string) Decision {
	if t == nil {
		return Deny
	}
	route, ok := t.routes[key]
	if !ok {
		return Deny
	}
	if role.IsWildcard() || route.Roles.Contains(role) {
		return Allow
	}
	return Deny
}

// Lookup returns the route registered under key.
func (t *RouteTable) Lookup(key string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	r, ok := t.routes[key]
	return r, ok
}

// Routes lists routes in registration order.
func (t *RouteTable) Routes() []Route {
	if t == nil {
		return nil
	}
	out := make([]Route, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.routes[key])
	}
	return out
}

// DefaultRoutes returns the guarded dashboard screens.
func DefaultRoutes() []Route {
	return []Route{
		{Key: "dashboard", Path: "/dashboard", Roles: everyone},
		{Key: "events", Path: "/events", Roles: staff},
		{Key: "licenses", Path: "/licenses", Roles: RoleSet{RoleSuperAdmin, RoleClientAdmin}},
		{Key: "transactions", Path: "/transactions", Roles: admins},
		{Key: "plans", Path: "/plans", Roles: RoleSet{RoleSuperAdmin}},
		{Key: "organizers", Path: "/organizers", Roles: RoleSet{RoleSuperAdmin, RoleClientAdmin}},
		{Key: "customers", Path: "/customers", Roles: admins},
		{Key: "tickets", Path: "/tickets", Roles: RoleSet{RoleAttendee}},
		{Key: "settings", Path: "/settings", Roles: everyone},
	}
}

// defaultTable is built once; DefaultRoutes is static and valid.
var defaultTable = mustRouteTable(DefaultRoutes())

func mustRouteTable(routes []Route) *RouteTable {
	table, err := NewRouteTable(routes)
	if err != nil {
		panic(fmt.Sprintf("rbac: invalid route table: %v", err))
	}
	return table
}

// AuthorizeRoute checks role against the default route table.
func AuthorizeRoute(role Role, key string) Decision {
	return defaultTable.Authorize(role, key)
}
