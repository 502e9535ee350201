// Package internaldefs holds the shared metric naming tables used by the
// exporter packages. Not part of the public API.
package internaldefs

import (
	"github.com/authgate/authgate"
)

// CounterDef binds a core MetricID to an exported metric name.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram slot to an exported metric name.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricTokenValid, Name: "authgate_token_valid_total", Help: "Successful token validations."},
	{ID: authgate.MetricTokenMalformed, Name: "authgate_token_malformed_total", Help: "Tokens rejected as malformed."},
	{ID: authgate.MetricTokenBadSignature, Name: "authgate_token_bad_signature_total", Help: "Tokens rejected for signature mismatch."},
	{ID: authgate.MetricTokenExpired, Name: "authgate_token_expired_total", Help: "Tokens rejected as expired."},
	{ID: authgate.MetricAuthzAllowed, Name: "authgate_authz_allowed_total", Help: "Requests allowed by authorization."},
	{ID: authgate.MetricAuthzUnauthenticated, Name: "authgate_authz_unauthenticated_total", Help: "Requests denied for missing authentication."},
	{ID: authgate.MetricAuthzForbidden, Name: "authgate_authz_forbidden_total", Help: "Requests denied for insufficient role."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Token validation latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the
// core histogram's microsecond boundaries.
var HistogramBounds = []string{
	"0.00001",
	"0.000025",
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for backends that cannot carry a
// le label.
var HistogramBoundSuffix = []string{
	"10us",
	"25us",
	"50us",
	"100us",
	"250us",
	"500us",
	"1ms",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
