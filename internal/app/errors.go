package service

import "errors"

// Sentinel kinds for ranking query errors.
var (
	// ErrNotInScope marks a participant that exists but is not ranked in
	// the queried scope, either because they belong elsewhere or because
	// they are hidden from rankings. Callers should render a neutral
	// empty state, not a system error.
	ErrNotInScope = errors.New("participant not in scope")

	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
