package rbac

import "fmt"

// MenuItem is one static sidebar entry.
type MenuItem struct {
	ID       string  `json:"id"`
	LabelKey string  `json:"labelKey"`
	Path     string  `json:"path"`
	Icon     string  `json:"icon,omitempty"`
	Roles    RoleSet `json:"roles"`
}

// Menu is an ordered, validated list of menu items.
type Menu struct {
	items []MenuItem
}

// NewMenu validates items and keeps their definition order.
func NewMenu(items []MenuItem) (*Menu, error) {
	seen := make(map[string]struct{}, len(items))
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if err := item.Roles.validate(); err != nil {
			return nil, fmt.Errorf("menu item %q: %w", item.ID, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("menu item %q: %w", item.ID, ErrDuplicateKey)
		}
		seen[item.ID] = struct{}{}
		item.Roles = append(RoleSet(nil), item.Roles...)
		out = append(out, item)
	}
	return &Menu{items: out}, nil
}

// Items returns every item in definition order.
func (m *Menu) Items() []MenuItem {
	if m == nil {
		return nil
	}
	return append([]MenuItem(nil), m.items...)
}

// Visible returns the items role may see.
func (m *Menu) Visible(role Role) []MenuItem {
	if m == nil {
		return nil
	}
	return VisibleMenu(role, m.items)
}

// VisibleMenu returns the subset of items whose allowed roles contain role,
// preserving order. The wildcard role sees every item.
func VisibleMenu(role Role, items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if role.IsWildcard() || item.Roles.Contains(role) {
			out = append(out, item)
		}
	}
	return out
}

var (
	everyone = RoleSet{RoleSuperAdmin, RoleClientAdmin, RoleOrganizer, RoleAdmin, RoleAttendee}
	staff    = RoleSet{RoleSuperAdmin, RoleClientAdmin, RoleOrganizer, RoleAdmin}
	admins   = RoleSet{RoleSuperAdmin, RoleClientAdmin, RoleAdmin}
)

// DefaultMenu returns the dashboard sidebar.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{ID: "dashboard", LabelKey: "nav.dashboard", Path: "/dashboard", Icon: "home", Roles: everyone},
		{ID: "events", LabelKey: "nav.events", Path: "/events", Icon: "calendar", Roles: staff},
		{ID: "licenses", LabelKey: "nav.licenses", Path: "/licenses", Icon: "key", Roles: RoleSet{RoleSuperAdmin, RoleClientAdmin}},
		{ID: "transactions", LabelKey: "nav.transactions", Path: "/transactions", Icon: "receipt", Roles: admins},
		{ID: "plans", LabelKey: "nav.plans", Path: "/plans", Icon: "layers", Roles: RoleSet{RoleSuperAdmin}},
		{ID: "organizers", LabelKey: "nav.organizers", Path: "/organizers", Icon: "users", Roles: RoleSet{RoleSuperAdmin, RoleClientAdmin}},
		{ID: "customers", LabelKey: "nav.customers", Path: "/customers", Icon: "user-check", Roles: admins},
		{ID: "tickets", LabelKey: "nav.tickets", Path: "/tickets", Icon: "ticket", Roles: RoleSet{RoleAttendee}},
		{ID: "settings", LabelKey: "nav.settings", Path: "/settings", Icon: "settings", Roles: everyone},
	}
}
