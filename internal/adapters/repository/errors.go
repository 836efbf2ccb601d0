package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("participant not found")
	ErrInvalidDelta     = errors.New("delta would make a total negative")
	ErrStoreUnavailable = errors.New("store unavailable")
)
