// Package rank orders participants and computes ranks and percentiles.
//
// Ordering: points DESC, then CO2 avoided DESC, then energy DESC, then
// participant id ASC. The id tie-break makes every ordering total and
// deterministic, so repeated calls on identical data produce identical
// leaderboards.
package rank

import (
	"math"
	"sort"

	"github.com/voltleague/voltleague/internal/domain/model"
)

// Less reports whether a ranks strictly ahead of b.
func Less(a, b model.ParticipantMetrics) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.CO2AvoidedKg != b.CO2AvoidedKg {
		return a.CO2AvoidedKg > b.CO2AvoidedKg
	}
	if a.EnergyKWh != b.EnergyKWh {
		return a.EnergyKWh > b.EnergyKWh
	}
	return a.ParticipantID < b.ParticipantID
}

// Leaderboard sorts rows into rank order and returns at most limit
// entries with dense 1-based ranks. The input slice is not modified.
func Leaderboard(rows []model.ParticipantMetrics, limit int) []model.RankEntry {
	if limit < 0 {
		limit = 0
	}

	sorted := make([]model.ParticipantMetrics, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}

	out := make([]model.RankEntry, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, model.RankEntry{
			Rank:          i + 1,
			ParticipantID: sorted[i].ParticipantID,
			Points:        sorted[i].Points,
			EnergyKWh:     sorted[i].EnergyKWh,
			CO2AvoidedKg:  sorted[i].CO2AvoidedKg,
		})
	}
	return out
}

// RankOf computes a participant's rank within rows by counting the rows
// ranked strictly ahead of it, without materializing a sorted
// leaderboard. It returns false when the participant is not in rows.
func RankOf(rows []model.ParticipantMetrics, participantID string) (model.RankResult, bool) {
	var target model.ParticipantMetrics
	found := false
	for _, r := range rows {
		if r.ParticipantID == participantID {
			target = r
			found = true
			break
		}
	}
	if !found {
		return model.RankResult{}, false
	}

	ahead := 0
	for _, r := range rows {
		if r.ParticipantID == participantID {
			continue
		}
		if Less(r, target) {
			ahead++
		}
	}

	rankPos := ahead + 1
	return model.RankResult{
		Rank:       rankPos,
		Total:      len(rows),
		Percentile: Percentile(rankPos, len(rows)),
	}, true
}

// Percentile is the fraction of the scope a participant outperforms,
// expressed 0-100 and rounded to one decimal. A zero total yields 0.
func Percentile(rankPos, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(total-rankPos) / float64(total) * 100)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
