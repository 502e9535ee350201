package authgate

import (
	"errors"

	"github.com/authgate/authgate/token"
)

var (
	// ErrInvalidCredentials is returned by Login and VerifyCredentials for
	// every credential failure: unknown identifier, wrong password, and
	// user-store timeouts alike. Callers must not be able to distinguish them.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserStore implementations when no record
	// exists for an identifier. The engine folds it into ErrInvalidCredentials
	// before it reaches external callers.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserStoreUnavailable wraps transient user-store backend failures.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	// ErrLoginRateLimited is returned when the login throttle budget for an
	// identifier or client IP is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrUnauthenticated is the deny reason for protected routes reached
	// without a verified identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInsufficientRole is the deny reason for authenticated requests whose
	// role set does not intersect the matched rule's required roles.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or incompletely constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Token validation failures, re-exported so callers can classify with
// errors.Is against either package.
var (
	// ErrTokenMalformed is an alias of [token.ErrMalformed].
	ErrTokenMalformed = token.ErrMalformed
	// ErrTokenBadSignature is an alias of [token.ErrBadSignature].
	ErrTokenBadSignature = token.ErrBadSignature
	// ErrTokenExpired is an alias of [token.ErrExpired].
	ErrTokenExpired = token.ErrExpired
)
