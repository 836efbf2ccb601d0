package repository

import (
	"context"
	"sync"

	"github.com/voltleague/voltleague/internal/domain/model"
)

// MemoryStore implements MetricsStore and TeamRoster over RWMutex-guarded
// maps. Scope index maps keep ListByScope proportional to the scope, not
// the whole population.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]model.ParticipantMetrics

	// scope indexes: scope id -> set of participant ids
	byRegion map[string]map[string]struct{}
	byOrg    map[string]map[string]struct{}
	byTeam   map[string]map[string]struct{}

	// roster state: team id -> organization id, member id -> active
	teamOrg map[string]string
	members map[string]map[string]bool
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]model.ParticipantMetrics),
		byRegion: make(map[string]map[string]struct{}),
		byOrg:    make(map[string]map[string]struct{}),
		byTeam:   make(map[string]map[string]struct{}),
		teamOrg:  make(map[string]string),
		members:  make(map[string]map[string]bool),
	}
}

// Put creates or replaces a participant row and maintains the scope
// indexes. It is the seeding path; the engine itself mutates only
// through Increment and Reset.
func (s *MemoryStore) Put(ctx context.Context, m model.ParticipantMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[m.ParticipantID]; ok {
		unindex(s.byRegion, old.RegionID, old.ParticipantID)
		unindex(s.byOrg, old.OrganizationID, old.ParticipantID)
		unindex(s.byTeam, old.TeamID, old.ParticipantID)
	}

	s.byID[m.ParticipantID] = m
	index(s.byRegion, m.RegionID, m.ParticipantID)
	index(s.byOrg, m.OrganizationID, m.ParticipantID)
	index(s.byTeam, m.TeamID, m.ParticipantID)
	return nil
}

// Get implements MetricsStore.Get.
func (s *MemoryStore) Get(ctx context.Context, participantID string) (model.ParticipantMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[participantID]
	if !ok {
		return model.ParticipantMetrics{}, ErrNotFound
	}
	return m, nil
}

// Increment implements MetricsStore.Increment. The whole delta set is
// applied under one lock hold, so concurrent increments on the same
// participant never lose updates.
func (s *MemoryStore) Increment(ctx context.Context, participantID string, pointsDelta int64, kwhDelta, co2Delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[participantID]
	if !ok {
		return ErrNotFound
	}

	if m.Points+pointsDelta < 0 || m.EnergyKWh+kwhDelta < 0 || m.CO2AvoidedKg+co2Delta < 0 {
		return ErrInvalidDelta
	}

	m.Points += pointsDelta
	m.EnergyKWh += kwhDelta
	m.CO2AvoidedKg += co2Delta
	s.byID[participantID] = m
	return nil
}

// Reset implements MetricsStore.Reset.
func (s *MemoryStore) Reset(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[participantID]
	if !ok {
		return ErrNotFound
	}

	m.Points = 0
	m.EnergyKWh = 0
	m.CO2AvoidedKg = 0
	s.byID[participantID] = m
	return nil
}

// ListByScope implements MetricsStore.ListByScope.
func (s *MemoryStore) ListByScope(ctx context.Context, scope model.Scope, includeHidden bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates map[string]struct{}
	switch scope.Kind {
	case model.ScopeGlobal:
		out := make([]string, 0, len(s.byID))
		for id, m := range s.byID {
			if includeHidden || m.Visible {
				out = append(out, id)
			}
		}
		return out, nil
	case model.ScopeRegion:
		candidates = s.byRegion[scope.ID]
	case model.ScopeOrganization:
		candidates = s.byOrg[scope.ID]
	case model.ScopeTeam:
		candidates = s.byTeam[scope.ID]
	}

	out := make([]string, 0, len(candidates))
	for id := range candidates {
		if m, ok := s.byID[id]; ok && (includeHidden || m.Visible) {
			out = append(out, id)
		}
	}
	return out, nil
}

// AddTeam registers a team and its owning organization in the roster.
func (s *MemoryStore) AddTeam(ctx context.Context, teamID, organizationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teamOrg[teamID] = organizationID
	if s.members[teamID] == nil {
		s.members[teamID] = make(map[string]bool)
	}
	return nil
}

// SetMembership records a participant's membership state on a team.
// Inactive members stay in the roster but are excluded from roll-ups.
func (s *MemoryStore) SetMembership(ctx context.Context, teamID, participantID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[teamID] == nil {
		s.members[teamID] = make(map[string]bool)
	}
	s.members[teamID][participantID] = active
	return nil
}

// ActiveMembers implements TeamRoster.ActiveMembers.
func (s *MemoryStore) ActiveMembers(ctx context.Context, teamID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.members[teamID]
	out := make([]string, 0, len(members))
	for id, active := range members {
		if active {
			out = append(out, id)
		}
	}
	return out, nil
}

// Teams implements TeamRoster.Teams.
func (s *MemoryStore) Teams(ctx context.Context, organizationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.teamOrg))
	for id, org := range s.teamOrg {
		if organizationID == "" || org == organizationID {
			out = append(out, id)
		}
	}
	return out, nil
}

func index(idx map[string]map[string]struct{}, scopeID, participantID string) {
	if scopeID == "" {
		return
	}
	if idx[scopeID] == nil {
		idx[scopeID] = make(map[string]struct{})
	}
	idx[scopeID][participantID] = struct{}{}
}

func unindex(idx map[string]map[string]struct{}, scopeID, participantID string) {
	if scopeID == "" {
		return
	}
	if set, ok := idx[scopeID]; ok {
		delete(set, participantID)
		if len(set) == 0 {
			delete(idx, scopeID)
		}
	}
}
