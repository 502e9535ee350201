package authgate

import (
	"context"
	"time"
)

// SecurityContext is the per-request authentication outcome produced by
// identity resolution. It is always populated, even for anonymous requests:
// resolution never rejects, it only records what it found. The authorization
// step decides what the outcome permits.
type SecurityContext struct {
	identity  Identity
	expiresAt time.Time
	anonymous bool
	failure   error
}

// NewAnonymousContext returns a context for a request with no usable
// credential. failure records why resolution produced no identity: nil when
// no token was presented, or one of the token validation errors otherwise.
func NewAnonymousContext(failure error) SecurityContext {
	return SecurityContext{anonymous: true, failure: failure}
}

// NewAuthenticatedContext returns a context carrying a verified identity.
func NewAuthenticatedContext(identity Identity, expiresAt time.Time) SecurityContext {
	return SecurityContext{identity: identity, expiresAt: expiresAt}
}

// Anonymous reports whether the request carries no verified identity.
func (s SecurityContext) Anonymous() bool {
	return s.anonymous
}

// Identity returns the verified principal. The zero Identity is returned for
// anonymous contexts; check [SecurityContext.Anonymous] first.
func (s SecurityContext) Identity() Identity {
	return s.identity
}

// ExpiresAt returns the token expiry for authenticated contexts and the zero
// time otherwise.
func (s SecurityContext) ExpiresAt() time.Time {
	return s.expiresAt
}

// Failure returns the token validation error that forced this context to be
// anonymous, or nil when no token was presented or validation succeeded.
func (s SecurityContext) Failure() error {
	return s.failure
}

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The engine uses it as
// the second login-throttle dimension and stamps it into audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
