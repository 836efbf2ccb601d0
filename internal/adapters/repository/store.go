// Package repository defines the participant-metrics store and team
// roster contracts plus an in-memory implementation.
package repository

import (
	"context"

	"github.com/voltleague/voltleague/internal/domain/model"
)

// MetricsStore is the engine's only view of participant totals. The
// store owns atomic increment semantics on a single participant's row;
// the engine never does read-modify-write.
type MetricsStore interface {
	// Get returns a participant's current row.
	// Returns ErrNotFound if the participant is unknown.
	Get(ctx context.Context, participantID string) (model.ParticipantMetrics, error)

	// Increment atomically applies the deltas to a participant's totals.
	// Returns ErrInvalidDelta, applying nothing, if any total would go
	// negative.
	Increment(ctx context.Context, participantID string, pointsDelta int64, kwhDelta, co2Delta float64) error

	// Reset zeroes all three totals atomically.
	Reset(ctx context.Context, participantID string) error

	// ListByScope enumerates the participant ids in a scope without
	// scanning the whole store. Hidden participants are excluded unless
	// includeHidden is set. An unknown scope id yields an empty set,
	// not an error.
	ListByScope(ctx context.Context, scope model.Scope, includeHidden bool) ([]string, error)
}

// TeamRoster maps teams to their member participants.
type TeamRoster interface {
	// ActiveMembers returns the participant ids currently active on a
	// team. Unknown teams yield an empty set.
	ActiveMembers(ctx context.Context, teamID string) ([]string, error)

	// Teams returns team ids, filtered to one organization when
	// organizationID is non-empty.
	Teams(ctx context.Context, organizationID string) ([]string, error)
}
