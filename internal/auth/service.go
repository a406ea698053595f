package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
)

const maxUserAgent = 512

// Credentials is one login attempt.
type Credentials struct {
	Email    string
	Password string
}

// Client describes where a login came from.
type Client struct {
	IP        string
	UserAgent string
}

// Service owns credential checks and the login-session rows that back the
// Redis sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// decoyHash is compared against when the email is unknown so both paths pay
// for one bcrypt comparison.
var decoyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("eventdesk-decoy"), bcrypt.DefaultCost)
	return hash
})

// Authenticate checks creds. Unknown, inactive or role-less accounts and wrong
// passwords all return shared.ErrInvalidCredentials; storage failures are
// returned wrapped.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(creds.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrInvalidCredentials) {
			_ = bcrypt.CompareHashAndPassword(decoyHash(), []byte(creds.Password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if _, ok := rbac.ParseRole(user.Role); !ok || !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RecordLogin stores the login-session row for sessionID, expiring after ttl.
func (s *Service) RecordLogin(ctx context.Context, sessionID string, user *User, ttl time.Duration, client Client) error {
	ua := client.UserAgent
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}
	return s.repo.CreateSession(ctx, sessionID, user.ID, s.now().Add(ttl), client.IP, ua)
}

// EndSession deletes the login-session row for sessionID.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}
