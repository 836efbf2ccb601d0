// Package service provides the ranking and incentive-accounting engine
// consumed by the presentation layer.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voltleague/voltleague/internal/adapters/cache"
	"github.com/voltleague/voltleague/internal/adapters/repository"
	"github.com/voltleague/voltleague/internal/domain/compare"
	"github.com/voltleague/voltleague/internal/domain/model"
	"github.com/voltleague/voltleague/internal/domain/rank"
	"github.com/voltleague/voltleague/internal/domain/scoring"
	"github.com/voltleague/voltleague/internal/domain/team"
	"github.com/voltleague/voltleague/pkg/logger"
	"github.com/voltleague/voltleague/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMaxLeaderboardLimit = 100
)

// Cache query type names; each composes into its own key family.
const (
	queryLeaderboard     = "leaderboard"
	queryRank            = "rank"
	queryTeamLeaderboard = "team_leaderboard"
	queryCompare         = "compare"
)

// Service implements the engine operations over a metrics store, a team
// roster, and a ranking cache. It holds no mutable state of its own
// beyond the cache, so concurrent readers need no coordination here;
// write serialization per participant is the store's job.
type Service struct {
	store  repository.MetricsStore
	roster repository.TeamRoster
	cache  *cache.RankingCache
	bonus  *scoring.BonusCalculator

	maxLimit int

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxLeaderboardLimit caps leaderboard query limits.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBonusCalculator overrides the energy bonus calculator.
func WithBonusCalculator(b *scoring.BonusCalculator) Option {
	return func(s *Service) {
		if b != nil {
			s.bonus = b
		}
	}
}

// New constructs a Service over its collaborators.
func New(store repository.MetricsStore, roster repository.TeamRoster, rankingCache *cache.RankingCache, opts ...Option) *Service {
	s := &Service{
		store:    store,
		roster:   roster,
		cache:    rankingCache,
		bonus:    scoring.NewBonusCalculator(),
		maxLimit: defaultMaxLeaderboardLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.Named("engine")
	}

	return s
}

// AwardPoints applies a point delta to a participant's running total.
// Negative deltas are allowed for corrections but the total never drops
// below zero; on violation nothing is applied and ErrInvalidDelta is
// returned. A successful award invalidates the participant's region,
// organization, and team scope caches.
func (s *Service) AwardPoints(ctx context.Context, participantID string, delta int64, reason string) error {
	start := time.Now()
	defer func() {
		metrics.RecordAccumulatorUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	m, err := s.store.Get(ctx, participantID)
	if err != nil {
		metrics.RecordErrorByComponent("accumulator", errorKind(err))
		return fmt.Errorf("award points: %w", err)
	}

	if err := s.store.Increment(ctx, participantID, delta, 0, 0); err != nil {
		if errors.Is(err, repository.ErrInvalidDelta) {
			metrics.RecordAccumulatorRejection()
		} else {
			metrics.RecordErrorByComponent("accumulator", errorKind(err))
		}
		return fmt.Errorf("award points: %w", err)
	}

	eventID := uuid.NewString()
	s.log.Info(ctx, "points awarded",
		logger.String("eventID", eventID),
		logger.String("participantID", participantID),
		logger.Int64("delta", delta),
		logger.String("reason", reason),
	)
	metrics.RecordAccumulatorUpdate()

	s.invalidateParticipantScopes(ctx, m)
	return nil
}

// RecordEnergy applies an energy production event: both deltas must be
// non-negative. After the totals are updated, the derived point bonus
// floor(kwh) + floor(co2*2) is routed through AwardPoints, so one
// energy event triggers exactly one point-award side effect.
func (s *Service) RecordEnergy(ctx context.Context, participantID string, kwhDelta, co2Delta float64) error {
	if kwhDelta < 0 || co2Delta < 0 {
		metrics.RecordAccumulatorRejection()
		return fmt.Errorf("record energy: %w", repository.ErrInvalidDelta)
	}

	m, err := s.store.Get(ctx, participantID)
	if err != nil {
		metrics.RecordErrorByComponent("accumulator", errorKind(err))
		return fmt.Errorf("record energy: %w", err)
	}

	if err := s.store.Increment(ctx, participantID, 0, kwhDelta, co2Delta); err != nil {
		metrics.RecordErrorByComponent("accumulator", errorKind(err))
		return fmt.Errorf("record energy: %w", err)
	}

	eventID := uuid.NewString()
	s.log.Info(ctx, "energy recorded",
		logger.String("eventID", eventID),
		logger.String("participantID", participantID),
		logger.Float64("kwhDelta", kwhDelta),
		logger.Float64("co2Delta", co2Delta),
	)
	metrics.RecordAccumulatorUpdate()
	s.invalidateParticipantScopes(ctx, m)

	if bonus := s.bonus.Bonus(kwhDelta, co2Delta); bonus > 0 {
		if err := s.AwardPoints(ctx, participantID, bonus, "energy production bonus"); err != nil {
			return fmt.Errorf("record energy: bonus: %w", err)
		}
	}
	return nil
}

// ResetParticipant zeroes all three running totals atomically and
// fires the same invalidation signal as any other mutation.
func (s *Service) ResetParticipant(ctx context.Context, participantID string) error {
	m, err := s.store.Get(ctx, participantID)
	if err != nil {
		metrics.RecordErrorByComponent("accumulator", errorKind(err))
		return fmt.Errorf("reset participant: %w", err)
	}

	if err := s.store.Reset(ctx, participantID); err != nil {
		metrics.RecordErrorByComponent("accumulator", errorKind(err))
		return fmt.Errorf("reset participant: %w", err)
	}

	s.log.Info(ctx, "participant totals reset",
		logger.String("participantID", participantID),
	)
	metrics.RecordAccumulatorUpdate()
	s.invalidateParticipantScopes(ctx, m)
	return nil
}

// Leaderboard returns up to limit ranked entries for a scope, cached.
// An unknown scope id yields an empty leaderboard, not an error.
func (s *Service) Leaderboard(ctx context.Context, scope model.Scope, limit int) ([]model.RankEntry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("leaderboard: %w", ErrInvalidLimit)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	metrics.RecordRankingQuery(queryLeaderboard)
	key := cache.Key(queryLeaderboard, scope, fmt.Sprintf("limit=%d", limit))

	if payload, ok := s.cache.Get(ctx, key); ok {
		var entries []model.RankEntry
		if err := json.Unmarshal(payload, &entries); err == nil {
			return entries, nil
		}
	}

	start := time.Now()
	rows, err := s.loadScope(ctx, scope, false)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	entries := rank.Leaderboard(rows, limit)
	metrics.RecordRankingQueryLatency(float64(time.Since(start).Milliseconds()))

	s.cachePut(ctx, scope, key, entries)
	return entries, nil
}

// RankOf returns a participant's rank, scope size, and percentile
// without materializing the full leaderboard. Hidden participants and
// non-members get ErrNotInScope.
func (s *Service) RankOf(ctx context.Context, scope model.Scope, participantID string) (model.RankResult, error) {
	metrics.RecordRankingQuery(queryRank)
	key := cache.Key(queryRank, scope, "participant="+participantID)

	if payload, ok := s.cache.Get(ctx, key); ok {
		var result model.RankResult
		if err := json.Unmarshal(payload, &result); err == nil {
			return result, nil
		}
	}

	start := time.Now()
	rows, err := s.loadScope(ctx, scope, false)
	if err != nil {
		return model.RankResult{}, fmt.Errorf("rank of: %w", err)
	}
	result, ok := rank.RankOf(rows, participantID)
	metrics.RecordRankingQueryLatency(float64(time.Since(start).Milliseconds()))
	if !ok {
		return model.RankResult{}, fmt.Errorf("rank of %s in %s: %w", participantID, scope.Key(), ErrNotInScope)
	}

	s.cachePut(ctx, scope, key, result)
	return result, nil
}

// TeamLeaderboard ranks team roll-ups, optionally filtered to one
// organization. Roll-ups sum active members only; a team with no active
// members is included with all-zero totals.
func (s *Service) TeamLeaderboard(ctx context.Context, organizationID string, limit int) ([]model.TeamRankEntry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("team leaderboard: %w", ErrInvalidLimit)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	metrics.RecordRankingQuery(queryTeamLeaderboard)
	// Registered under the organization scope when filtered, so member
	// mutations in that organization invalidate it; the unfiltered
	// variant lives under the global scope and expires by TTL.
	scope := model.Global()
	if organizationID != "" {
		scope = model.Organization(organizationID)
	}
	key := cache.Key(queryTeamLeaderboard, scope, fmt.Sprintf("limit=%d", limit))

	if payload, ok := s.cache.Get(ctx, key); ok {
		var entries []model.TeamRankEntry
		if err := json.Unmarshal(payload, &entries); err == nil {
			return entries, nil
		}
	}

	start := time.Now()
	teamIDs, err := s.roster.Teams(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("team leaderboard: %w", err)
	}

	rollups := make([]model.TeamRollup, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("team leaderboard: %w", err)
		}
		memberIDs, err := s.roster.ActiveMembers(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("team leaderboard: %w", err)
		}
		members, err := s.loadParticipants(ctx, memberIDs)
		if err != nil {
			return nil, fmt.Errorf("team leaderboard: %w", err)
		}
		rollups = append(rollups, team.Rollup(teamID, members))
	}

	entries := team.Rank(rollups, limit)
	metrics.RecordRankingQueryLatency(float64(time.Since(start).Milliseconds()))

	s.cachePut(ctx, scope, key, entries)
	return entries, nil
}

// CompareToScopeAverage expresses a participant's metrics as a
// percentage of the scope's averages. The average covers the full
// scope population including hidden participants: visibility gates
// leaderboard display, not statistics.
func (s *Service) CompareToScopeAverage(ctx context.Context, participantID string, scope model.Scope) (model.Comparison, error) {
	metrics.RecordRankingQuery(queryCompare)

	target, err := s.store.Get(ctx, participantID)
	if err != nil {
		metrics.RecordErrorByComponent("comparison", errorKind(err))
		return model.Comparison{}, fmt.Errorf("compare to scope average: %w", err)
	}

	key := cache.Key(queryCompare, scope, "participant="+participantID)
	if payload, ok := s.cache.Get(ctx, key); ok {
		var result model.Comparison
		if err := json.Unmarshal(payload, &result); err == nil {
			return result, nil
		}
	}

	rows, err := s.loadScope(ctx, scope, true)
	if err != nil {
		return model.Comparison{}, fmt.Errorf("compare to scope average: %w", err)
	}
	result := compare.ToAverage(target, rows)

	s.cachePut(ctx, scope, key, result)
	return result, nil
}

// InvalidateAllRankings clears every cached ranking this engine has
// produced without touching unrelated keys in a shared backend.
func (s *Service) InvalidateAllRankings(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}

// invalidateParticipantScopes signals the cache for each scope the
// participant belongs to. The global scope is deliberately left to TTL
// expiry: every mutation would hit it, which defeats caching.
func (s *Service) invalidateParticipantScopes(ctx context.Context, m model.ParticipantMetrics) {
	if m.RegionID != "" {
		s.cache.InvalidateScope(ctx, model.Region(m.RegionID))
	}
	if m.OrganizationID != "" {
		s.cache.InvalidateScope(ctx, model.Organization(m.OrganizationID))
	}
	if m.TeamID != "" {
		s.cache.InvalidateScope(ctx, model.Team(m.TeamID))
	}
}

// loadScope resolves a scope's candidate ids and loads their rows,
// honoring ctx cancellation on large scopes.
func (s *Service) loadScope(ctx context.Context, scope model.Scope, includeHidden bool) ([]model.ParticipantMetrics, error) {
	ids, err := s.store.ListByScope(ctx, scope, includeHidden)
	if err != nil {
		return nil, err
	}
	return s.loadParticipants(ctx, ids)
}

func (s *Service) loadParticipants(ctx context.Context, ids []string) ([]model.ParticipantMetrics, error) {
	rows := make([]model.ParticipantMetrics, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.store.Get(ctx, id)
		if err != nil {
			// A participant removed between listing and loading is not
			// an error for the scope as a whole.
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func (s *Service) cachePut(ctx context.Context, scope model.Scope, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn(ctx, "failed to encode cache payload",
			logger.String("key", key),
			logger.Error(err),
		)
		return
	}
	s.cache.Put(ctx, scope, key, data)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrInvalidDelta):
		return "invalid_delta"
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
