package shared

import (
	"fmt"
	"strings"
)

// Identity describes the signed-in actor.
type Identity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
}

// Validate checks the fields every session identity needs.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: identity id required", ErrInvalidIdentity)
	}
	if strings.TrimSpace(i.Role) == "" {
		return fmt.Errorf("%w: identity role required", ErrInvalidIdentity)
	}
	return nil
}

// Can reports whether the identity carries any of the given permissions.
func (i Identity) Can(perms ...string) bool {
	if len(perms) == 0 {
		return true
	}
	granted := make(map[string]struct{}, len(i.Permissions))
	for _, p := range i.Permissions {
		granted[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	for _, p := range perms {
		if _, ok := granted[strings.ToLower(strings.TrimSpace(p))]; ok {
			return true
		}
	}
	return false
}
