package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventdesk/eventdesk/internal/shared"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, expiresAt, err := issuer.Issue("sess-1", shared.Identity{ID: "7", Role: "admin"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, _, err := issuer.Issue("sess-1", shared.Identity{ID: "7", Role: "admin"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRequiresSession(t *testing.T) {
	_, _, err := NewTokenIssuer("secret", time.Minute).Issue("", shared.Identity{ID: "7", Role: "admin"})
	assert.Error(t, err)
}

func TestSessionForChecksBoundIdentity(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(shared.Identity{ID: "7", Role: "admin"}))
	require.NoError(t, sm.Save(ctx, sess))

	issuer := NewTokenIssuer("secret", time.Hour)
	good, _, err := issuer.Issue(sess.ID, shared.Identity{ID: "7", Role: "admin"})
	require.NoError(t, err)
	loaded, err := issuer.SessionFor(ctx, sm, good)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)

	forged, _, err := issuer.Issue(sess.ID, shared.Identity{ID: "7", Role: "super_admin"})
	require.NoError(t, err)
	_, err = issuer.SessionFor(ctx, sm, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	missing, _, err := issuer.Issue("gone", shared.Identity{ID: "7", Role: "admin"})
	require.NoError(t, err)
	_, err = issuer.SessionFor(ctx, sm, missing)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)
	_, ok = BearerToken("Basic xyz")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}
