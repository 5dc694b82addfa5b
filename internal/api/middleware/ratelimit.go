package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstCapacityMultiplier int = 2
	defaultMaxKeys          int = 100
	defaultGlobalRPS        int = 100
	defaultKeyRPS           int = 50
	defaultUnAuthRPS        int = 10

	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterIdleTimeout     = 1 * time.Hour
)

type (
	// RateLimiter decides whether a request is allowed. keyID is the
	// authenticated API key ID, or empty for anonymous requests.
	RateLimiter interface {
		Allow(keyID string) bool
	}

	// InMemoryRateLimiter implements RateLimiter with three token-bucket
	// tiers: global, per-key, and anonymous. Idle per-key buckets are
	// swept periodically so the map stays bounded.
	InMemoryRateLimiter struct {
		global        *rate.Limiter
		perKey        map[string]*keyLimiter
		anonymous     *rate.Limiter
		mu            sync.RWMutex
		cleanupTicker *time.Ticker
		done          chan struct{}

		keyRPS          int
		keyBurst        int
		cleanupInterval time.Duration
		idleTimeout     time.Duration
		maxKeys         int
	}

	keyLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
		mu         sync.Mutex
	}
)

// NewInMemoryRateLimiter creates a rate limiter from config. Burst
// capacities default to 2x the sustained rate unless overridden.
func NewInMemoryRateLimiter(config *Config) *InMemoryRateLimiter {
	globalBurst := computeBurstCapacity(config.GlobalRPS, config.GlobalBurst)
	keyBurst := computeBurstCapacity(config.KeyRPS, config.KeyBurst)
	anonBurst := computeBurstCapacity(config.UnAuthRPS, config.UnAuthBurst)

	limiter := &InMemoryRateLimiter{
		global:          rate.NewLimiter(rate.Limit(config.GlobalRPS), globalBurst),
		perKey:          make(map[string]*keyLimiter),
		anonymous:       rate.NewLimiter(rate.Limit(config.UnAuthRPS), anonBurst),
		done:            make(chan struct{}),
		keyRPS:          config.KeyRPS,
		keyBurst:        keyBurst,
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     config.IdleTimeout,
		maxKeys:         config.MaxKeys,
	}

	limiter.startCleanup()

	return limiter
}

func computeBurstCapacity(rps, burstOverride int) int {
	if burstOverride > 0 {
		return burstOverride
	}

	return rps * burstCapacityMultiplier
}

// Allow implements RateLimiter. The global bucket is checked first, then
// the per-key or anonymous bucket.
func (rl *InMemoryRateLimiter) Allow(keyID string) bool {
	if !rl.global.Allow() {
		return false
	}

	if keyID == "" {
		return rl.anonymous.Allow()
	}

	rl.mu.RLock()
	kl, ok := rl.perKey[keyID]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		if kl, ok = rl.perKey[keyID]; !ok {
			kl = &keyLimiter{
				limiter:    rate.NewLimiter(rate.Limit(rl.keyRPS), rl.keyBurst),
				lastAccess: time.Now(),
			}

			rl.perKey[keyID] = kl

			if len(rl.perKey) >= rl.maxKeys {
				slog.Warn("rate limiter at max tracked keys",
					"current_keys", len(rl.perKey),
					"max_keys", rl.maxKeys)
			}
		}
		rl.mu.Unlock()
	}

	kl.mu.Lock()
	kl.lastAccess = time.Now()
	kl.mu.Unlock()

	return kl.limiter.Allow()
}

// Close stops the cleanup goroutine. Not part of the RateLimiter
// interface; callers that need it use a type assertion to io.Closer.
func (rl *InMemoryRateLimiter) Close() error {
	if rl.cleanupTicker != nil {
		rl.cleanupTicker.Stop()
	}

	close(rl.done)

	return nil
}

func (rl *InMemoryRateLimiter) startCleanup() {
	interval := rl.cleanupInterval
	if interval == 0 {
		interval = rateLimiterCleanupInterval
	}

	rl.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-rl.cleanupTicker.C:
				rl.cleanup()
			case <-rl.done:
				return
			}
		}
	}()
}

func (rl *InMemoryRateLimiter) cleanup() {
	idleTimeout := rl.idleTimeout
	if idleTimeout == 0 {
		idleTimeout = rateLimiterIdleTimeout
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for keyID, kl := range rl.perKey {
		kl.mu.Lock()
		lastAccess := kl.lastAccess
		kl.mu.Unlock()

		if now.Sub(lastAccess) > idleTimeout {
			delete(rl.perKey, keyID)
		}
	}
}

// RateLimit returns middleware enforcing the limiter. Must sit after the
// auth middleware so the caller's key ID is available for per-key limits.
// Rejected requests get 429 with the standard error body.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyID := ""
			if caller, ok := GetCaller(r.Context()); ok {
				keyID = caller.KeyID
			}

			if !limiter.Allow(keyID) {
				logger.Warn("request rate limited",
					slog.String("correlation_id", GetCorrelationID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.String("key_id", keyID))

				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
