package middleware

import (
	"sync"
	"time"

	"relaycast/pkg/config"
	"relaycast/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const defaultLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds one limiter per client IP and forgets clients that
// stayed quiet for idleTTL.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burstSize int
	idleTTL   time.Duration
	lastSweep time.Time
	clock     clockwork.Clock
}

func newRateLimiterStore(r rate.Limit, burst int, idleTTL time.Duration, clock clockwork.Clock) *rateLimiterStore {
	if idleTTL <= 0 {
		idleTTL = defaultLimiterIdleTTL
	}
	return &rateLimiterStore{
		limiters:  make(map[string]*clientLimiter),
		rate:      r,
		burstSize: burst,
		idleTTL:   idleTTL,
		lastSweep: clock.Now(),
		clock:     clock,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.evictIdle(now)
	}

	entry, exists := s.limiters[key]
	if !exists {
		entry = &clientLimiter{limiter: rate.NewLimiter(s.rate, s.burstSize)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdle must be called with mu held.
func (s *rateLimiterStore) evictIdle(now time.Time) {
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) >= s.idleTTL {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// NewHTTPRateLimitMiddleware applies per-client token buckets and an optional
// global concurrency cap. Clients are keyed by gin's ClientIP, so forwarded
// headers only count when the engine trusts the proxy that set them.
func NewHTTPRateLimitMiddleware(cfg *config.Config, clock clockwork.Clock) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	store := newRateLimiterStore(
		rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond),
		cfg.RateLimiting.HTTP.Burst,
		cfg.RateLimiting.HTTP.IdleTTL,
		clock,
	)
	return rateLimitHandler(store, cfg.RateLimiting.HTTP.MaxConcurrent)
}

func rateLimitHandler(store *rateLimiterStore, maxConcurrent int) gin.HandlerFunc {
	var globalSem chan struct{}
	if maxConcurrent > 0 {
		globalSem = make(chan struct{}, maxConcurrent)
	}

	return func(c *gin.Context) {
		if globalSem != nil {
			select {
			case globalSem <- struct{}{}:
				defer func() { <-globalSem }()
			default:
				abortWith(c, errors.NewServiceUnavailableError("too many concurrent requests"))
				return
			}
		}

		if !store.getLimiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			abortWith(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}
