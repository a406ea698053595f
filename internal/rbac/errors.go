package rbac

import "errors"

var (
	// ErrEmptyRoleSet indicates a menu entry or route without allowed roles.
	ErrEmptyRoleSet = errors.New("rbac: allowed role set is empty")
	// ErrWildcardInSet indicates the wildcard was listed as a set member.
	ErrWildcardInSet = errors.New("rbac: wildcard cannot be a role set member")
	// ErrUnknownRole indicates a role outside the known enum.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrDuplicateKey indicates two entries share an id or route key.
	ErrDuplicateKey = errors.New("rbac: duplicate key")
)
