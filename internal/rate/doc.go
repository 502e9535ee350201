// Package rate enforces the login attempt budget with Redis fixed-window
// counters, keyed by identifier and optionally by client IP. Counters only
// guard the login path; token validation never touches Redis.
package rate
