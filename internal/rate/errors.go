package rate

import "errors"

var (
	// ErrRateLimited signals that the attempt budget for a key is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transient Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
