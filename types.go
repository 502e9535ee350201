package authgate

import "context"

// Identity is the verified principal attached to a request after successful
// token validation. Values are immutable once constructed.
type Identity struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the identity carries the named role. Comparison is
// exact; role names are case-sensitive.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries at least one of the named
// roles. An empty required set matches nothing.
func (id Identity) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if id.HasRole(r) {
			return true
		}
	}
	return false
}

// UserRecord is the stored account record returned by a [UserStore]. The
// PasswordHash is a PHC-format argon2id string; plaintext passwords are never
// persisted.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Roles        []string
}

// UserStore is the credential-lookup interface callers implement to connect
// the engine to their user database.
//
// GetByIdentifier returns [ErrUserNotFound] when no record exists; any other
// error is treated as a transient backend failure. UpdatePasswordHash is
// invoked only when password upgrade-on-login is enabled.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
}

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	Token     string
	UserID    string
	Roles     []string
	ExpiresIn int64 // seconds
}
