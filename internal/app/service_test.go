package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/voltleague/voltleague/internal/adapters/cache"
	"github.com/voltleague/voltleague/internal/adapters/repository"
	service "github.com/voltleague/voltleague/internal/app"
	"github.com/voltleague/voltleague/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// ShouldNotWrap asserts that the first argument (an error value) does not
// wrap the second argument (also an error value), per errors.Is. It is the
// negation of goconvey's ShouldWrap, which the library does not provide.
func ShouldNotWrap(actual any, expected ...any) string {
	if len(expected) != 1 {
		return fmt.Sprintf("This assertion requires exactly 1 comparison value (you provided %d).", len(expected))
	}
	actualErr, ok1 := actual.(error)
	expectedErr, ok2 := expected[0].(error)
	if !ok1 || !ok2 {
		return fmt.Sprintf("The ShouldNotWrap assertion requires errors (you provided '%v' and '%v').", actual, expected[0])
	}
	if errors.Is(actualErr, expectedErr) {
		return fmt.Sprintf(`Expected error("%s") not to wrap error("%s") but it did.`, actualErr, expectedErr)
	}
	return ""
}

// unavailableStore simulates a store outage on every call.
type unavailableStore struct{}

func (unavailableStore) Get(ctx context.Context, participantID string) (model.ParticipantMetrics, error) {
	return model.ParticipantMetrics{}, repository.ErrStoreUnavailable
}

func (unavailableStore) Increment(ctx context.Context, participantID string, pointsDelta int64, kwhDelta, co2Delta float64) error {
	return repository.ErrStoreUnavailable
}

func (unavailableStore) Reset(ctx context.Context, participantID string) error {
	return repository.ErrStoreUnavailable
}

func (unavailableStore) ListByScope(ctx context.Context, scope model.Scope, includeHidden bool) ([]string, error) {
	return nil, repository.ErrStoreUnavailable
}

func newEngine(ctx context.Context, ttl time.Duration) (*service.Service, *repository.MemoryStore, *cache.MemoryBackend) {
	store := repository.NewMemoryStore()
	backend := cache.NewMemoryBackend(ctx, cache.WithJanitorInterval(time.Second))
	rc := cache.New(backend, cache.WithTTL(ttl))
	return service.New(store, store, rc), store, backend
}

func seedOrgO(ctx context.Context, store *repository.MemoryStore) {
	for _, m := range []model.ParticipantMetrics{
		{ParticipantID: "A", Points: 100, OrganizationID: "O", RegionID: "north", Visible: true},
		{ParticipantID: "B", Points: 200, OrganizationID: "O", Visible: true},
		{ParticipantID: "C", Points: 150, OrganizationID: "O", Visible: true},
	} {
		if err := store.Put(ctx, m); err != nil {
			panic(err)
		}
	}
}

func TestAwardPoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with one participant", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "p1", Points: 100, OrganizationID: "O", Visible: true}), ShouldBeNil)

		Convey("A positive award raises the total", func() {
			So(engine.AwardPoints(ctx, "p1", 50, "manual"), ShouldBeNil)

			m, _ := store.Get(ctx, "p1")
			So(m.Points, ShouldEqual, 150)
		})

		Convey("A correcting negative award is allowed above zero", func() {
			So(engine.AwardPoints(ctx, "p1", -30, "correction"), ShouldBeNil)

			m, _ := store.Get(ctx, "p1")
			So(m.Points, ShouldEqual, 70)
		})

		Convey("An award that would go negative is rejected with no change", func() {
			err := engine.AwardPoints(ctx, "p1", -150, "bad correction")
			So(err, ShouldWrap, repository.ErrInvalidDelta)

			m, _ := store.Get(ctx, "p1")
			So(m.Points, ShouldEqual, 100)
		})

		Convey("An unknown participant is reported, never ignored", func() {
			So(engine.AwardPoints(ctx, "ghost", 10, "x"), ShouldWrap, repository.ErrNotFound)
		})

		Convey("Totals are non-decreasing under non-negative awards", func() {
			previous := int64(100)
			for _, delta := range []int64{0, 5, 17, 3} {
				So(engine.AwardPoints(ctx, "p1", delta, "grind"), ShouldBeNil)
				m, _ := store.Get(ctx, "p1")
				So(m.Points, ShouldBeGreaterThanOrEqualTo, previous)
				previous = m.Points
			}
		})
	})
}

func TestRecordEnergy(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with one participant", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "X", Visible: true}), ShouldBeNil)

		Convey("An energy event raises totals and awards the derived bonus", func() {
			So(engine.RecordEnergy(ctx, "X", 10.7, 3.2), ShouldBeNil)

			m, _ := store.Get(ctx, "X")
			So(m.EnergyKWh, ShouldAlmostEqual, 10.7)
			So(m.CO2AvoidedKg, ShouldAlmostEqual, 3.2)
			So(m.Points, ShouldEqual, 16) // floor(10.7) + floor(3.2*2)
		})

		Convey("A sub-unit event raises totals with no bonus", func() {
			So(engine.RecordEnergy(ctx, "X", 0.4, 0.2), ShouldBeNil)

			m, _ := store.Get(ctx, "X")
			So(m.EnergyKWh, ShouldAlmostEqual, 0.4)
			So(m.Points, ShouldEqual, 0)
		})

		Convey("Negative deltas are rejected", func() {
			So(engine.RecordEnergy(ctx, "X", -1.0, 0), ShouldWrap, repository.ErrInvalidDelta)
			So(engine.RecordEnergy(ctx, "X", 0, -0.1), ShouldWrap, repository.ErrInvalidDelta)

			m, _ := store.Get(ctx, "X")
			So(m.EnergyKWh, ShouldEqual, 0)
			So(m.CO2AvoidedKg, ShouldEqual, 0)
		})

		Convey("An unknown participant is reported", func() {
			So(engine.RecordEnergy(ctx, "ghost", 1, 1), ShouldWrap, repository.ErrNotFound)
		})
	})
}

func TestLeaderboardAndRankOf(t *testing.T) {
	ctx := context.Background()

	Convey("Given participants A, B, C in organization O", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()
		seedOrgO(ctx, store)
		scope := model.Organization("O")

		Convey("The leaderboard orders B, C, A with dense ranks", func() {
			entries, err := engine.Leaderboard(ctx, scope, 3)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 3)
			So(entries[0].ParticipantID, ShouldEqual, "B")
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Points, ShouldEqual, 200)
			So(entries[1].ParticipantID, ShouldEqual, "C")
			So(entries[2].ParticipantID, ShouldEqual, "A")
			So(entries[2].Rank, ShouldEqual, 3)
		})

		Convey("RankOf(A) reports rank 3 of 3, percentile 0", func() {
			result, err := engine.RankOf(ctx, scope, "A")
			So(err, ShouldBeNil)
			So(result.Rank, ShouldEqual, 3)
			So(result.Total, ShouldEqual, 3)
			So(result.Percentile, ShouldEqual, 0.0)
		})

		Convey("After awarding A 150 points", func() {
			So(engine.AwardPoints(ctx, "A", 150, "bonus"), ShouldBeNil)

			Convey("RankOf(A) reflects the new standing immediately", func() {
				result, err := engine.RankOf(ctx, scope, "A")
				So(err, ShouldBeNil)
				So(result.Rank, ShouldEqual, 1)
				So(result.Total, ShouldEqual, 3)
				So(result.Percentile, ShouldEqual, 66.7)
			})

			Convey("The organization leaderboard reflects it too", func() {
				entries, err := engine.Leaderboard(ctx, scope, 3)
				So(err, ShouldBeNil)
				So(entries[0].ParticipantID, ShouldEqual, "A")
				So(entries[0].Points, ShouldEqual, 250)
			})
		})

		Convey("An unknown scope yields an empty leaderboard", func() {
			entries, err := engine.Leaderboard(ctx, model.Organization("nowhere"), 10)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("A limit below one is invalid", func() {
			_, err := engine.Leaderboard(ctx, scope, 0)
			So(err, ShouldWrap, service.ErrInvalidLimit)
		})

		Convey("A participant outside the scope is not ranked", func() {
			So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "Z", Points: 999, OrganizationID: "other", Visible: true}), ShouldBeNil)
			_, err := engine.RankOf(ctx, scope, "Z")
			So(err, ShouldWrap, service.ErrNotInScope)
		})

		Convey("A hidden participant is not ranked", func() {
			So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "H", Points: 999, OrganizationID: "O", Visible: false}), ShouldBeNil)
			_, err := engine.RankOf(ctx, scope, "H")
			So(err, ShouldWrap, service.ErrNotInScope)

			Convey("And excluded from the leaderboard", func() {
				entries, _ := engine.Leaderboard(ctx, scope, 10)
				for _, e := range entries {
					So(e.ParticipantID, ShouldNotEqual, "H")
				}
			})
		})
	})
}

func TestCacheInvalidationBehavior(t *testing.T) {
	ctx := context.Background()

	Convey("Given cached leaderboards for two organizations", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()
		seedOrgO(ctx, store)
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "q1", Points: 10, OrganizationID: "Q", Visible: true}), ShouldBeNil)

		_, err := engine.Leaderboard(ctx, model.Organization("O"), 3)
		So(err, ShouldBeNil)
		_, err = engine.Leaderboard(ctx, model.Organization("Q"), 3)
		So(err, ShouldBeNil)

		Convey("When organization Q's data changes behind the cache", func() {
			// Raw store write, deliberately bypassing the accumulator and
			// its invalidation signal.
			So(store.Increment(ctx, "q1", 1000, 0, 0), ShouldBeNil)

			Convey("A mutation in O does not disturb Q's cached entry", func() {
				So(engine.AwardPoints(ctx, "A", 1, "poke"), ShouldBeNil)

				qEntries, err := engine.Leaderboard(ctx, model.Organization("Q"), 3)
				So(err, ShouldBeNil)
				So(qEntries[0].Points, ShouldEqual, 10) // still the cached payload

				oEntries, err := engine.Leaderboard(ctx, model.Organization("O"), 3)
				So(err, ShouldBeNil)
				So(oEntries[2].Points, ShouldEqual, 101) // A recomputed fresh
			})
		})

		Convey("Repeated reads within the TTL return identical payloads", func() {
			first, _ := engine.Leaderboard(ctx, model.Organization("O"), 3)
			second, _ := engine.Leaderboard(ctx, model.Organization("O"), 3)
			So(second, ShouldResemble, first)
		})
	})

	Convey("Given a global leaderboard, which relies on TTL alone", t, func() {
		engine, store, backend := newEngine(ctx, 30*time.Millisecond)
		defer func() { _ = backend.Close() }()
		seedOrgO(ctx, store)

		first, err := engine.Leaderboard(ctx, model.Global(), 3)
		So(err, ShouldBeNil)
		So(first[0].Points, ShouldEqual, 200)

		Convey("A mutation leaves the cached global entry in place", func() {
			So(engine.AwardPoints(ctx, "A", 500, "big award"), ShouldBeNil)

			stale, err := engine.Leaderboard(ctx, model.Global(), 3)
			So(err, ShouldBeNil)
			So(stale, ShouldResemble, first)

			Convey("Until the TTL expires", func() {
				time.Sleep(50 * time.Millisecond)

				fresh, err := engine.Leaderboard(ctx, model.Global(), 3)
				So(err, ShouldBeNil)
				So(fresh[0].ParticipantID, ShouldEqual, "A")
				So(fresh[0].Points, ShouldEqual, 600)
			})
		})
	})
}

func TestTeamLeaderboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given two teams and a deserted one", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()

		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "a", Points: 100, OrganizationID: "O", TeamID: "suns", Visible: true}), ShouldBeNil)
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "b", Points: 200, OrganizationID: "O", TeamID: "suns", Visible: true}), ShouldBeNil)
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "c", Points: 250, OrganizationID: "O", TeamID: "winds", Visible: true}), ShouldBeNil)
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "gone", Points: 10_000, OrganizationID: "O", TeamID: "winds", Visible: true}), ShouldBeNil)

		So(store.AddTeam(ctx, "suns", "O"), ShouldBeNil)
		So(store.AddTeam(ctx, "winds", "O"), ShouldBeNil)
		So(store.AddTeam(ctx, "empty", "P"), ShouldBeNil)
		So(store.SetMembership(ctx, "suns", "a", true), ShouldBeNil)
		So(store.SetMembership(ctx, "suns", "b", true), ShouldBeNil)
		So(store.SetMembership(ctx, "winds", "c", true), ShouldBeNil)
		So(store.SetMembership(ctx, "winds", "gone", false), ShouldBeNil)

		Convey("Roll-ups sum active members only", func() {
			entries, err := engine.TeamLeaderboard(ctx, "", 10)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 3)

			So(entries[0].Rollup.TeamID, ShouldEqual, "suns")
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Rollup.TotalPoints, ShouldEqual, 300)
			So(entries[0].Rollup.MemberCount, ShouldEqual, 2)
			So(entries[0].Rollup.AveragePoints, ShouldAlmostEqual, 150.0)

			So(entries[1].Rollup.TeamID, ShouldEqual, "winds")
			So(entries[1].Rollup.TotalPoints, ShouldEqual, 250) // "gone" excluded

			Convey("And the deserted team ranks last with zero totals", func() {
				So(entries[2].Rollup.TeamID, ShouldEqual, "empty")
				So(entries[2].Rollup.TotalPoints, ShouldEqual, 0)
				So(entries[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("The organization filter narrows the candidate teams", func() {
			entries, err := engine.TeamLeaderboard(ctx, "O", 10)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
		})

		Convey("A limit below one is invalid", func() {
			_, err := engine.TeamLeaderboard(ctx, "O", 0)
			So(err, ShouldWrap, service.ErrInvalidLimit)
		})

		Convey("An organization leaderboard refreshes after a member mutation", func() {
			before, err := engine.TeamLeaderboard(ctx, "O", 10)
			So(err, ShouldBeNil)
			So(before[0].Rollup.TeamID, ShouldEqual, "suns")

			So(engine.AwardPoints(ctx, "c", 100, "sprint"), ShouldBeNil)

			after, err := engine.TeamLeaderboard(ctx, "O", 10)
			So(err, ShouldBeNil)
			So(after[0].Rollup.TeamID, ShouldEqual, "winds")
			So(after[0].Rollup.TotalPoints, ShouldEqual, 350)
		})
	})
}

func TestCompareToScopeAverage(t *testing.T) {
	ctx := context.Background()

	Convey("Given an organization with a hidden high scorer", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()

		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "v", Points: 100, EnergyKWh: 10, CO2AvoidedKg: 4, OrganizationID: "O", Visible: true}), ShouldBeNil)
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "h", Points: 300, EnergyKWh: 30, CO2AvoidedKg: 12, OrganizationID: "O", Visible: false}), ShouldBeNil)

		Convey("The average includes the hidden participant", func() {
			// org average: 200 points, 20 kWh, 8 kg
			result, err := engine.CompareToScopeAverage(ctx, "v", model.Organization("O"))
			So(err, ShouldBeNil)
			So(result.PointsRatio, ShouldEqual, 50.0)
			So(result.EnergyRatio, ShouldEqual, 50.0)
			So(result.CO2Ratio, ShouldEqual, 50.0)
		})

		Convey("A hidden participant may still compare themselves", func() {
			result, err := engine.CompareToScopeAverage(ctx, "h", model.Organization("O"))
			So(err, ShouldBeNil)
			So(result.PointsRatio, ShouldEqual, 150.0)
		})

		Convey("An unknown participant is reported", func() {
			_, err := engine.CompareToScopeAverage(ctx, "ghost", model.Organization("O"))
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("A zero-average scope yields zero ratios", func() {
			So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "z", OrganizationID: "Z", Visible: true}), ShouldBeNil)
			result, err := engine.CompareToScopeAverage(ctx, "z", model.Organization("Z"))
			So(err, ShouldBeNil)
			So(result, ShouldResemble, model.Comparison{})
		})
	})
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine whose store is down", t, func() {
		roster := repository.NewMemoryStore()
		backend := cache.NewMemoryBackend(ctx, cache.WithJanitorInterval(time.Second))
		defer func() { _ = backend.Close() }()
		engine := service.New(unavailableStore{}, roster, cache.New(backend))

		Convey("Writes surface the transient failure, distinguishable from not-found", func() {
			err := engine.AwardPoints(ctx, "p1", 10, "x")
			So(err, ShouldWrap, repository.ErrStoreUnavailable)
			So(err, ShouldNotWrap, repository.ErrNotFound)
		})

		Convey("Reads surface it too rather than returning empty results", func() {
			_, err := engine.Leaderboard(ctx, model.Global(), 10)
			So(err, ShouldWrap, repository.ErrStoreUnavailable)

			_, err = engine.RankOf(ctx, model.Global(), "p1")
			So(err, ShouldWrap, repository.ErrStoreUnavailable)
		})
	})
}

func TestResetParticipant(t *testing.T) {
	ctx := context.Background()

	Convey("Given a participant with accumulated totals", t, func() {
		engine, store, backend := newEngine(ctx, time.Minute)
		defer func() { _ = backend.Close() }()
		So(store.Put(ctx, model.ParticipantMetrics{ParticipantID: "p", Points: 50, EnergyKWh: 5, CO2AvoidedKg: 2, OrganizationID: "O", Visible: true}), ShouldBeNil)

		Convey("Reset zeroes all three totals atomically", func() {
			So(engine.ResetParticipant(ctx, "p"), ShouldBeNil)

			m, _ := store.Get(ctx, "p")
			So(m.Points, ShouldEqual, 0)
			So(m.EnergyKWh, ShouldEqual, 0)
			So(m.CO2AvoidedKg, ShouldEqual, 0)
		})

		Convey("Resetting an unknown participant is reported", func() {
			So(engine.ResetParticipant(ctx, "ghost"), ShouldWrap, repository.ErrNotFound)
		})

		Convey("Reset invalidates the participant's scope caches", func() {
			before, err := engine.Leaderboard(ctx, model.Organization("O"), 5)
			So(err, ShouldBeNil)
			So(before[0].Points, ShouldEqual, 50)

			So(engine.ResetParticipant(ctx, "p"), ShouldBeNil)

			after, err := engine.Leaderboard(ctx, model.Organization("O"), 5)
			So(err, ShouldBeNil)
			So(after[0].Points, ShouldEqual, 0)
		})
	})
}
