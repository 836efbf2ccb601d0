// Package team derives team-level roll-ups and ranks them the same way
// individuals are ranked.
package team

import (
	"sort"

	"github.com/voltleague/voltleague/internal/domain/model"
)

// Rollup sums the metrics of a team's active members. A team with no
// active members gets an all-zero rollup; the average never divides by
// zero.
func Rollup(teamID string, members []model.ParticipantMetrics) model.TeamRollup {
	r := model.TeamRollup{TeamID: teamID, MemberCount: len(members)}
	for _, m := range members {
		r.TotalPoints += m.Points
		r.TotalEnergyKWh += m.EnergyKWh
		r.TotalCO2Kg += m.CO2AvoidedKg
	}
	if r.MemberCount > 0 {
		r.AveragePoints = float64(r.TotalPoints) / float64(r.MemberCount)
	}
	return r
}

// less mirrors the individual ordering: total points DESC, total CO2
// DESC, total energy DESC, team id ASC.
func less(a, b model.TeamRollup) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if a.TotalCO2Kg != b.TotalCO2Kg {
		return a.TotalCO2Kg > b.TotalCO2Kg
	}
	if a.TotalEnergyKWh != b.TotalEnergyKWh {
		return a.TotalEnergyKWh > b.TotalEnergyKWh
	}
	return a.TeamID < b.TeamID
}

// Rank orders rollups and returns at most limit entries with dense
// 1-based ranks. The input slice is not modified.
func Rank(rollups []model.TeamRollup, limit int) []model.TeamRankEntry {
	if limit < 0 {
		limit = 0
	}

	sorted := make([]model.TeamRollup, len(rollups))
	copy(sorted, rollups)
	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}

	out := make([]model.TeamRankEntry, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, model.TeamRankEntry{Rank: i + 1, Rollup: sorted[i]})
	}
	return out
}
