package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned when a token cannot be parsed into three
	// segments, a segment fails to decode, or a claim requirement other than
	// expiry is not met.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature is returned when the recomputed signature does not
	// match the presented one, or the token names a different algorithm.
	ErrBadSignature = errors.New("token signature mismatch")
	// ErrExpired is returned when a correctly signed token is past its exp
	// claim.
	ErrExpired = errors.New("token expired")
)

const minSecretBytes = 32

// Config holds the immutable codec parameters. The secret is loaded once at
// construction; a missing or short secret is a construction error, never a
// per-token one.
type Config struct {
	TTL    time.Duration
	Secret []byte
	Issuer string
	Leeway time.Duration

	// Clock overrides the time source for issuing and validation.
	// Nil means time.Now. Intended for tests.
	Clock func() time.Time
}

// Claims is the verified payload of an access token.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Manager issues and verifies access tokens. Safe for concurrent use; it
// holds no mutable state after construction.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a codec bound to its secret.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("hs256 secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{config: cfg}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a token for subject with the given roles, valid for the
// configured TTL from now. Every token carries a unique jti.
func (m *Manager) Issue(subject string, roles []string) (string, error) {
	now := m.config.Clock()

	claims := Claims{
		Roles: append([]string(nil), roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			ID:        uuid.NewString(),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies tokenStr and returns its claims, or exactly one of
// [ErrMalformed], [ErrBadSignature], [ErrExpired]. The signature is verified
// before exp is evaluated, so an attacker cannot reach the expiry check with
// forged claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Clock),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

// classify collapses the parser's error classes onto the three validator
// failures. Claim-requirement failures other than expiry (missing exp,
// issuer mismatch, nbf in the future) are malformed credentials: the token
// is not acceptable as presented.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
