package middleware

import (
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
)

// Config holds rate limiter settings. Rates are requests per second for
// three tiers: global, per authenticated key, and anonymous. Burst fields
// left at 0 are computed as 2x the rate.
type Config struct {
	GlobalRPS int
	KeyRPS    int
	UnAuthRPS int

	GlobalBurst int
	KeyBurst    int
	UnAuthBurst int

	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	MaxKeys         int
}

// LoadConfig loads rate limiter settings from the environment.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("SEARCHD_GLOBAL_RPS", defaultGlobalRPS),
		KeyRPS:    config.GetEnvInt("SEARCHD_KEY_RPS", defaultKeyRPS),
		UnAuthRPS: config.GetEnvInt("SEARCHD_UNAUTH_RPS", defaultUnAuthRPS),

		GlobalBurst: config.GetEnvInt("SEARCHD_GLOBAL_BURST", 0),
		KeyBurst:    config.GetEnvInt("SEARCHD_KEY_BURST", 0),
		UnAuthBurst: config.GetEnvInt("SEARCHD_UNAUTH_BURST", 0),

		CleanupInterval: config.GetEnvDuration("SEARCHD_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval),
		IdleTimeout:     config.GetEnvDuration("SEARCHD_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxKeys:         config.GetEnvInt("SEARCHD_RATE_LIMIT_MAX_KEYS", defaultMaxKeys),
	}
}
