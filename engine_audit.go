package authgate

import (
	"context"
	"time"
)

// Audit event types emitted by the engine.
const (
	EventLoginSuccess     = "login.success"
	EventLoginFailure     = "login.failure"
	EventLoginRateLimited = "login.rate_limited"
	EventAuthzDenied      = "authz.denied"
)

// emitAudit stamps the event and hands it to the dispatcher. No-op when
// audit is disabled.
func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}
