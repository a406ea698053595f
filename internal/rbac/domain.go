package rbac

import "strings"

// Role is the categorical tag on a session identity.
type Role string

// Known roles.
const (
	RoleSuperAdmin  Role = "super_admin"
	RoleClientAdmin Role = "client_admin"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
	RoleAttendee    Role = "attendee"
)

// Wildcard is reserved for a super-privileged actor. It is never stored in a
// role set; checks bypass set membership when they see it.
const Wildcard Role = "*"

// Roles returns every finite role in declaration order.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleClientAdmin, RoleOrganizer, RoleAdmin, RoleAttendee}
}

// ParseRole normalises raw into a Role, reporting whether it is known.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == Wildcard {
		return role, true
	}
	for _, known := range Roles() {
		if role == known {
			return role, true
		}
	}
	return role, false
}

// IsWildcard reports whether r is the reserved wildcard role.
func (r Role) IsWildcard() bool {
	return r == Wildcard
}

// Decision is the binary outcome of a route check.
type Decision bool

// Route decisions.
const (
	Allow Decision = true
	Deny  Decision = false
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// RoleSet is a finite set of roles.
type RoleSet []Role

// Contains reports plain membership; the wildcard is never a member.
func (s RoleSet) Contains(r Role) bool {
	if r.IsWildcard() {
		return false
	}
	for _, role := range s {
		if role == r {
			return true
		}
	}
	return false
}

func (s RoleSet) validate() error {
	if len(s) == 0 {
		return ErrEmptyRoleSet
	}
	for _, role := range s {
		if role.IsWildcard() {
			return ErrWildcardInSet
		}
		if _, ok := ParseRole(string(role)); !ok {
			return ErrUnknownRole
		}
	}
	return nil
}
