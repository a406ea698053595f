package auth

import (
	"strconv"
	"time"

	"github.com/eventdesk/eventdesk/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	Permissions  []string
	Avatar       string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the user onto the session identity.
func (u User) Identity() shared.Identity {
	return shared.Identity{
		ID:          strconv.FormatInt(u.ID, 10),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: append([]string(nil), u.Permissions...),
		Avatar:      u.Avatar,
	}
}
