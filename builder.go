package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/internal/rate"
	"github.com/authgate/authgate/password"
	"github.com/authgate/authgate/rules"
	"github.com/authgate/authgate/token"
)

// Builder assembles an [Engine]. A Builder is single-use: Build consumes it
// and a second Build returns an error.
type Builder struct {
	config Config
	redis  *redis.Client

	ruleset   []rules.Rule
	userStore UserStore
	auditSink AuditSink

	built bool
}

// New creates a Builder initialized with defaults. Callers must still supply
// a token secret, a rule set, and a user store before Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis attaches the Redis client used by the login throttle. Redis is
// optional: without it the throttle is disabled and token validation is
// unaffected, since the hot path never touches a backend.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithRules sets the authorization rule table. Declaration order is
// significant: the later of two equally specific rules wins.
func (b *Builder) WithRules(ruleset []rules.Rule) *Builder {
	b.ruleset = ruleset
	return b
}

// WithUserStore attaches the credential store consulted by Login.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithAuditSink attaches the sink receiving audit events. Implies nothing
// about audit being enabled; see [AuditConfig].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, freezes the rule table, and returns a
// ready Engine. Any configuration problem fails here, before the engine can
// see a request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userStore == nil {
		return nil, errors.New("user store required")
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttle requires redis client")
	}

	table, err := rules.NewTable(b.ruleset)
	if err != nil {
		return nil, err
	}

	tokenManager, err := token.NewManager(token.Config{
		TTL:    cfg.Token.TTL,
		Secret: cloneBytes(cfg.Token.Secret),
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// The decoy hash keeps verification cost constant for unknown
	// identifiers, so response timing does not reveal account existence.
	decoyHash, err := passwordHash.Hash("authgate-decoy-password")
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		table:        table,
		tokenManager: tokenManager,
		passwordHash: passwordHash,
		decoyHash:    decoyHash,
		userStore:    b.userStore,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	b.built = true

	return engine, nil
}
