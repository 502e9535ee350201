package authgate

import (
	"errors"
	"time"
)

// Config defines the engine's tunable surface. Instances are configured
// before Build and treated as immutable afterwards; Build stores a private
// clone so later mutation by the caller has no effect.
type Config struct {
	Token         TokenConfig
	Password      PasswordConfig
	Authorization AuthorizationConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access-token issuing and verification.
type TokenConfig struct {
	TTL    time.Duration
	Secret []byte
	Issuer string
	Leeway time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
AUTHORIZATION CONFIG
====================================
*/

// DefaultPolicy selects the outcome for requests that match no rule.
type DefaultPolicy int

const (
	// PolicyDenyUnauthenticated rejects unmatched requests unless the caller
	// presented a valid token.
	PolicyDenyUnauthenticated DefaultPolicy = iota
	// PolicyPublic allows unmatched requests through regardless of identity.
	PolicyPublic
)

// AuthorizationConfig controls rule-table evaluation.
type AuthorizationConfig struct {
	DefaultPolicy DefaultPolicy
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the login throttle and user-store timeout knobs.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	// UserStoreTimeout bounds a single user-store lookup during Login. One
	// retry is attempted after UserStoreRetryBackoff before failing closed.
	UserStoreTimeout      time.Duration
	UserStoreRetryBackoff time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the lock-free counter set.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the starting configuration used by [New]. The token
// secret is left empty and must be set before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    15 * time.Minute,
			Leeway: 0,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Authorization: AuthorizationConfig{
			DefaultPolicy: PolicyDenyUnauthenticated,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			UserStoreTimeout:      2 * time.Second,
			UserStoreRetryBackoff: 100 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. A Config that
// fails Validate must never produce a running engine; Build refuses it.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if len(c.Token.Secret) < 32 {
		return errors.New("Token Secret must be at least 32 bytes")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}
	if c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be <= 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Authorization
	switch c.Authorization.DefaultPolicy {
	case PolicyDenyUnauthenticated, PolicyPublic:
		// valid
	default:
		return errors.New("invalid Authorization DefaultPolicy")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}
	if c.Security.UserStoreTimeout <= 0 {
		return errors.New("UserStoreTimeout must be > 0")
	}
	if c.Security.UserStoreRetryBackoff < 0 {
		return errors.New("UserStoreRetryBackoff must be >= 0")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
