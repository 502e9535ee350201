// Package authgate provides stateless token-based authentication and
// authorization for HTTP APIs: signed JWT access tokens, argon2id credential
// verification against a pluggable user store, and a declarative
// method/path/role rule table evaluated on every request.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// [SecurityContext], and value types. Request-facing adapters live in the
// middleware subpackage; credential storage adapters in userstore; the token
// codec, rule table, and password hashing in their own subpackages.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store encoding details in its public API.
//   - Hold per-request state beyond the SecurityContext handed to the caller.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Performance contract
//
// ValidateToken and Authorize are the hot path. Both are pure computation
// once Build has loaded the signing secret and frozen the rule table: no
// locks, no I/O, no shared mutable state. Login is allowed user-store and
// throttle round-trips.
package authgate
