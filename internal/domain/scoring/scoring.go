// Package scoring computes the reward-point bonus earned by energy events.
package scoring

import "math"

// Default bonus weights. One point per whole kWh produced and two
// points per whole kg of CO2 avoided.
const (
	defaultEnergyWeight = 1.0
	defaultCO2Weight    = 2.0
)

// Option applies a configuration option to the BonusCalculator.
type Option func(*BonusCalculator)

// WithEnergyWeight sets the points-per-kWh weight.
func WithEnergyWeight(w float64) Option {
	return func(c *BonusCalculator) {
		if w >= 0 {
			c.energyWeight = w
		}
	}
}

// WithCO2Weight sets the points-per-kg-CO2 weight.
func WithCO2Weight(w float64) Option {
	return func(c *BonusCalculator) {
		if w >= 0 {
			c.co2Weight = w
		}
	}
}

// BonusCalculator turns energy deltas into point bonuses.
type BonusCalculator struct {
	energyWeight float64
	co2Weight    float64
}

// NewBonusCalculator creates a calculator with configuration options.
func NewBonusCalculator(opts ...Option) *BonusCalculator {
	c := &BonusCalculator{
		energyWeight: defaultEnergyWeight,
		co2Weight:    defaultCO2Weight,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Bonus returns the point bonus for an energy event:
// floor(kwhDelta*energyWeight) + floor(co2Delta*co2Weight).
// Negative deltas contribute nothing.
func (c *BonusCalculator) Bonus(kwhDelta, co2Delta float64) int64 {
	var bonus int64
	if kwhDelta > 0 {
		bonus += int64(math.Floor(kwhDelta * c.energyWeight))
	}
	if co2Delta > 0 {
		bonus += int64(math.Floor(co2Delta * c.co2Weight))
	}
	return bonus
}
