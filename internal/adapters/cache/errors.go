package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrCacheMiss          = errors.New("cache miss")
	ErrBackendUnavailable = errors.New("cache backend unavailable")
)
