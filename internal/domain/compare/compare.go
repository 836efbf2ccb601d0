// Package compare expresses a participant's metrics relative to a
// scope's averages.
package compare

import (
	"math"

	"github.com/voltleague/voltleague/internal/domain/model"
)

// ToAverage returns the target's metrics as a percentage of the scope
// rows' averages, each rounded to one decimal. Averages are statistical
// facts, so rows must be the visibility-inclusive scope set. A zero
// average yields a 0 ratio, not an error.
func ToAverage(target model.ParticipantMetrics, rows []model.ParticipantMetrics) model.Comparison {
	if len(rows) == 0 {
		return model.Comparison{}
	}

	var points int64
	var energy, co2 float64
	for _, r := range rows {
		points += r.Points
		energy += r.EnergyKWh
		co2 += r.CO2AvoidedKg
	}

	n := float64(len(rows))
	return model.Comparison{
		PointsRatio: ratio(float64(target.Points), float64(points)/n),
		EnergyRatio: ratio(target.EnergyKWh, energy/n),
		CO2Ratio:    ratio(target.CO2AvoidedKg, co2/n),
	}
}

func ratio(value, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return math.Round(value/avg*100*10) / 10
}
