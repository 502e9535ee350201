package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/authgate/authgate"
)

type securityContextKey struct{}

// Resolve returns middleware that verifies the request's bearer token and
// attaches the resulting SecurityContext. Requests always proceed: a missing
// or invalid token yields an anonymous context carrying the failure, and the
// authorization layer decides the outcome.
//
// The caller's IP (from X-Forwarded-For when present, RemoteAddr otherwise)
// is attached for throttling and audit.
func Resolve(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sctx := engine.Resolve(r.Header.Get("Authorization"))

			ctx := authgate.WithClientIP(r.Context(), clientIP(r))
			ctx = context.WithValue(ctx, securityContextKey{}, sctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecurityContextFrom returns the SecurityContext attached by Resolve.
// Requests that did not pass through Resolve report an anonymous context.
func SecurityContextFrom(ctx context.Context) (authgate.SecurityContext, bool) {
	sctx, ok := ctx.Value(securityContextKey{}).(authgate.SecurityContext)
	if !ok {
		return authgate.NewAnonymousContext(nil), false
	}
	return sctx, true
}

// CurrentIdentity returns the verified caller, or false for anonymous
// requests and requests that bypassed Resolve.
func CurrentIdentity(ctx context.Context) (authgate.Identity, bool) {
	sctx, ok := ctx.Value(securityContextKey{}).(authgate.SecurityContext)
	if !ok || sctx.Anonymous() {
		return authgate.Identity{}, false
	}
	return sctx.Identity(), true
}

// Chain wraps handler with the given middlewares, outermost first.
func Chain(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
