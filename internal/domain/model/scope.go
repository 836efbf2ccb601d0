// Package model contains domain models passed between layers.
package model

import "fmt"

// ScopeKind identifies the population a ranking query runs over.
type ScopeKind string

// Supported scope kinds.
const (
	ScopeGlobal       ScopeKind = "global"
	ScopeRegion       ScopeKind = "region"
	ScopeOrganization ScopeKind = "organization"
	ScopeTeam         ScopeKind = "team"
)

// Scope selects the population for a leaderboard or statistic.
// The global scope has an empty ID.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// Global returns the scope covering every participant.
func Global() Scope { return Scope{Kind: ScopeGlobal} }

// Region returns the scope covering one region.
func Region(id string) Scope { return Scope{Kind: ScopeRegion, ID: id} }

// Organization returns the scope covering one organization.
func Organization(id string) Scope { return Scope{Kind: ScopeOrganization, ID: id} }

// Team returns the scope covering one team.
func Team(id string) Scope { return Scope{Kind: ScopeTeam, ID: id} }

// Key returns a stable string form used in cache keys and logs.
func (s Scope) Key() string {
	if s.Kind == ScopeGlobal {
		return string(ScopeGlobal)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}
