package shared

import "context"

type (
	sessionContextKey struct{}
	bearerContextKey  struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithBearer marks the request as authenticated by a bearer token
// rather than the session cookie.
func ContextWithBearer(ctx context.Context) context.Context {
	return context.WithValue(ctx, bearerContextKey{}, true)
}

// ViaBearer reports whether ContextWithBearer marked ctx.
func ViaBearer(ctx context.Context) bool {
	ok, _ := ctx.Value(bearerContextKey{}).(bool)
	return ok
}
