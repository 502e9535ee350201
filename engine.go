package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/authgate/authgate/internal/rate"
	"github.com/authgate/authgate/password"
	"github.com/authgate/authgate/rules"
	"github.com/authgate/authgate/token"
)

// Engine is the runtime core. All fields are set by [Builder.Build] and
// never mutated afterwards, which is what makes ValidateToken and Authorize
// safe without locks.
type Engine struct {
	config       Config
	table        *rules.Table
	tokenManager *token.Manager
	passwordHash *password.Argon2
	decoyHash    string
	userStore    UserStore
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
}

/*
====================================
LOGIN
====================================
*/

// Login verifies the identifier+password pair against the user store and,
// on success, issues a signed access token carrying the account's roles.
//
// Every credential failure returns [ErrInvalidCredentials]: unknown
// identifier, wrong password, and user-store outages are indistinguishable
// to the caller, and verification cost is paid on every path so response
// timing does not leak account existence. Exhausted throttle budgets return
// [ErrLoginRateLimited] before any store access.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (LoginResult, error) {
	if e == nil || e.tokenManager == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			// A throttle backend outage also refuses the login: failing open
			// here would disable brute-force protection exactly when the
			// system is degraded.
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditEvent{
				EventType: EventLoginRateLimited,
				IP:        ip,
				Error:     err.Error(),
			})
			return LoginResult{}, ErrLoginRateLimited
		}
	}

	rec, lookupErr := e.lookupUser(ctx, identifier)

	match := false
	if lookupErr == nil {
		ok, err := e.passwordHash.Verify(pass, rec.PasswordHash)
		match = ok && err == nil
	} else {
		// Unknown identifier or store failure: verify against the decoy so
		// this path costs the same as a real verification.
		_, _ = e.passwordHash.Verify(pass, e.decoyHash)
	}

	if !match {
		if e.rateLimiter != nil {
			_ = e.rateLimiter.IncrementLogin(ctx, identifier, ip)
		}
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLoginFailure,
			IP:        ip,
			Error:     ErrInvalidCredentials.Error(),
		})
		return LoginResult{}, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, rec, pass)
	}

	tok, err := e.tokenManager.Issue(rec.UserID, rec.Roles)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	if e.rateLimiter != nil {
		_ = e.rateLimiter.ResetLogin(ctx, identifier, ip)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    rec.UserID,
		IP:        ip,
		Success:   true,
	})

	return LoginResult{
		Token:     tok,
		UserID:    rec.UserID,
		Roles:     append([]string(nil), rec.Roles...),
		ExpiresIn: int64(e.tokenManager.TTL() / time.Second),
	}, nil
}

// VerifyCredentials checks the pair without issuing a token. Same error
// contract as Login, minus the throttle.
func (e *Engine) VerifyCredentials(ctx context.Context, identifier, pass string) (UserRecord, error) {
	if e == nil || e.passwordHash == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rec, lookupErr := e.lookupUser(ctx, identifier)
	if lookupErr != nil {
		_, _ = e.passwordHash.Verify(pass, e.decoyHash)
		return UserRecord{}, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pass, rec.PasswordHash)
	if err != nil || !ok {
		return UserRecord{}, ErrInvalidCredentials
	}
	return rec, nil
}

// lookupUser bounds each store call with the configured timeout and retries
// once after a backoff. ErrUserNotFound is definitive and never retried.
func (e *Engine) lookupUser(ctx context.Context, identifier string) (UserRecord, error) {
	rec, err := e.lookupOnce(ctx, identifier)
	if err == nil || errors.Is(err, ErrUserNotFound) {
		return rec, err
	}

	if backoff := e.config.Security.UserStoreRetryBackoff; backoff > 0 {
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return UserRecord{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, ctx.Err())
		}
	}

	rec, err = e.lookupOnce(ctx, identifier)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	return rec, err
}

func (e *Engine) lookupOnce(ctx context.Context, identifier string) (UserRecord, error) {
	cctx, cancel := context.WithTimeout(ctx, e.config.Security.UserStoreTimeout)
	defer cancel()
	return e.userStore.GetByIdentifier(cctx, identifier)
}

// maybeUpgradeHash re-hashes the password under current parameters when the
// stored hash is weaker. Best effort: a store failure leaves the old hash in
// place and the login still succeeds.
func (e *Engine) maybeUpgradeHash(ctx context.Context, rec UserRecord, pass string) {
	needs, err := e.passwordHash.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !needs {
		return
	}
	newHash, err := e.passwordHash.Hash(pass)
	if err != nil {
		return
	}
	_ = e.userStore.UpdatePasswordHash(ctx, rec.UserID, newHash)
}

/*
====================================
TOKENS
====================================
*/

// IssueToken signs a token for subject with the given roles, bypassing
// credential verification. Intended for service accounts and tests.
func (e *Engine) IssueToken(subject string, roles []string) (string, error) {
	if e == nil || e.tokenManager == nil {
		return "", ErrEngineNotReady
	}
	return e.tokenManager.Issue(subject, roles)
}

// ValidateToken verifies tokenStr and returns the identity it asserts plus
// the token's expiry. On failure the error is exactly one of
// [ErrTokenMalformed], [ErrTokenBadSignature], [ErrTokenExpired], and the
// returned identity is zero.
func (e *Engine) ValidateToken(tokenStr string) (Identity, time.Time, error) {
	if e == nil || e.tokenManager == nil {
		return Identity{}, time.Time{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := e.tokenManager.Parse(tokenStr)

	if !start.IsZero() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			e.metrics.Inc(MetricTokenExpired)
		case errors.Is(err, ErrTokenBadSignature):
			e.metrics.Inc(MetricTokenBadSignature)
		default:
			e.metrics.Inc(MetricTokenMalformed)
		}
		return Identity{}, time.Time{}, err
	}

	e.metrics.Inc(MetricTokenValid)
	return Identity{
		Subject: claims.Subject,
		Roles:   append([]string(nil), claims.Roles...),
	}, claims.ExpiresAt.Time, nil
}

// Resolve turns an Authorization header value into a SecurityContext. It
// never rejects: a missing, malformed, or invalid credential produces an
// anonymous context with the failure recorded, and Authorize decides what
// that outcome permits.
func (e *Engine) Resolve(authorizationHeader string) SecurityContext {
	if authorizationHeader == "" {
		return NewAnonymousContext(nil)
	}

	const bearerPrefix = "bearer "
	if len(authorizationHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authorizationHeader[:len(bearerPrefix)], bearerPrefix) {
		return NewAnonymousContext(ErrTokenMalformed)
	}

	tokenStr := strings.TrimSpace(authorizationHeader[len(bearerPrefix):])
	if tokenStr == "" {
		return NewAnonymousContext(ErrTokenMalformed)
	}

	identity, expiresAt, err := e.ValidateToken(tokenStr)
	if err != nil {
		return NewAnonymousContext(err)
	}
	return NewAuthenticatedContext(identity, expiresAt)
}

/*
====================================
AUTHORIZATION
====================================
*/

// Authorize evaluates the rule table for method+path against sctx and
// returns nil when the request may proceed, [ErrUnauthenticated] when a
// protected route was reached without identity, or [ErrInsufficientRole]
// when the identity lacks every required role.
func (e *Engine) Authorize(ctx context.Context, method, path string, sctx SecurityContext) error {
	if e == nil || e.table == nil {
		return ErrEngineNotReady
	}

	rule, matched := e.table.Match(method, path)

	var required []string
	switch {
	case matched && rule.Public():
		e.metrics.Inc(MetricAuthzAllowed)
		return nil
	case matched:
		required = rule.Roles
	case e.config.Authorization.DefaultPolicy == PolicyPublic:
		e.metrics.Inc(MetricAuthzAllowed)
		return nil
	default:
		// PolicyDenyUnauthenticated: any verified identity passes.
		if sctx.Anonymous() {
			return e.deny(ctx, method, path, sctx, ErrUnauthenticated)
		}
		e.metrics.Inc(MetricAuthzAllowed)
		return nil
	}

	if sctx.Anonymous() {
		return e.deny(ctx, method, path, sctx, ErrUnauthenticated)
	}
	if !sctx.Identity().HasAnyRole(required) {
		return e.deny(ctx, method, path, sctx, ErrInsufficientRole)
	}

	e.metrics.Inc(MetricAuthzAllowed)
	return nil
}

func (e *Engine) deny(ctx context.Context, method, path string, sctx SecurityContext, reason error) error {
	event := AuditEvent{
		EventType: EventAuthzDenied,
		UserID:    sctx.Identity().Subject,
		Path:      method + " " + path,
		Error:     reason.Error(),
	}
	if errors.Is(reason, ErrUnauthenticated) {
		e.metrics.Inc(MetricAuthzUnauthenticated)
		if failure := sctx.Failure(); failure != nil {
			event.Metadata = map[string]string{"token_failure": failure.Error()}
		}
	} else {
		e.metrics.Inc(MetricAuthzForbidden)
	}
	e.emitAudit(ctx, event)
	return reason
}

/*
====================================
LIFECYCLE AND OBSERVABILITY
====================================
*/

// Close flushes and stops the audit dispatcher. The engine's other state is
// immutable and needs no teardown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Metrics exposes the engine's counter set, mainly for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTL returns the configured access-token lifetime.
func (e *Engine) TokenTTL() time.Duration {
	if e == nil || e.tokenManager == nil {
		return 0
	}
	return e.tokenManager.TTL()
}
