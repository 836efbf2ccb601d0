// Package config defines engine configuration structures and loading hooks.
package config

// Config contains engine configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CacheTTLSeconds bounds staleness of cached rankings. Global-scope
	// entries rely on this alone; narrower scopes also get explicit
	// invalidation.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheJanitorSeconds sets the memory backend's sweep interval.
	CacheJanitorSeconds int `koanf:"cache_janitor_seconds"`

	// MaxLeaderboardLimit caps leaderboard query limits.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// EnergyBonusWeight is the points awarded per whole kWh produced.
	EnergyBonusWeight float64 `koanf:"energy_bonus_weight"`

	// CO2BonusWeight is the points awarded per whole kg of CO2 avoided.
	CO2BonusWeight float64 `koanf:"co2_bonus_weight"`

	// RedisAddr selects the Redis cache backend when non-empty; the
	// in-memory backend is used otherwise.
	RedisAddr string `koanf:"redis_addr"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		CacheTTLSeconds:     300,
		CacheJanitorSeconds: 30,
		MaxLeaderboardLimit: 100,
		EnergyBonusWeight:   1.0,
		CO2BonusWeight:      2.0,
		RedisAddr:           "",
	}
}
