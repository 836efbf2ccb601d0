package model

// ParticipantMetrics is one participant's running totals plus scope tags.
// Totals are cumulative and never negative; increments are the only
// mutation primitive apart from an explicit reset.
type ParticipantMetrics struct {
	ParticipantID string
	Points        int64
	EnergyKWh     float64
	CO2AvoidedKg  float64

	// Optional scope tags; empty means the participant has none.
	RegionID       string
	OrganizationID string
	TeamID         string

	// Visible gates leaderboard and percentile computations only.
	// Hidden participants still count toward raw scope averages.
	Visible bool
}

// RankEntry is a leaderboard row. Rank is dense and 1-based.
type RankEntry struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	Points        int64   `json:"points"`
	EnergyKWh     float64 `json:"energy_kwh"`
	CO2AvoidedKg  float64 `json:"co2_kg"`
}

// RankResult answers "where do I stand" for a single participant.
type RankResult struct {
	Rank       int     `json:"rank"`
	Total      int     `json:"total"`
	Percentile float64 `json:"percentile"`
}

// TeamRollup aggregates the metrics of a team's active members.
// AveragePoints is TotalPoints/MemberCount, or 0 for an empty team.
type TeamRollup struct {
	TeamID         string  `json:"team_id"`
	MemberCount    int     `json:"member_count"`
	TotalPoints    int64   `json:"total_points"`
	TotalEnergyKWh float64 `json:"total_energy_kwh"`
	TotalCO2Kg     float64 `json:"total_co2_kg"`
	AveragePoints  float64 `json:"average_points"`
}

// TeamRankEntry is a row in a team leaderboard.
type TeamRankEntry struct {
	Rank   int        `json:"rank"`
	Rollup TeamRollup `json:"rollup"`
}

// Comparison expresses a participant's metrics as a percentage of a
// scope's average, rounded to one decimal. A zero average yields 0.
type Comparison struct {
	PointsRatio float64 `json:"points_ratio"`
	EnergyRatio float64 `json:"energy_ratio"`
	CO2Ratio    float64 `json:"co2_ratio"`
}
