// Package token implements the self-contained access-token codec: issuing
// HS256-signed JWTs carrying subject, role, and lifetime claims, and
// verifying presented tokens back into trusted claims.
//
// The verification order is a correctness invariant: a token's signature is
// checked against the configured secret before any claim — including exp —
// is trusted. Claims are never returned alongside an error.
package token
