package rate

import "errors"

var (
	// ErrRateLimited is returned when an identifier or IP has exhausted its
	// sign-in attempt budget for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
