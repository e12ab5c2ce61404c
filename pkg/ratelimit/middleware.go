package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"soxguard/internal/config"
	"soxguard/pkg/metrics"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store keeps one token bucket per client IP.
type Store struct {
	rps             float64
	burst           int
	cleanupInterval time.Duration
	maxAge          time.Duration

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	now      func() time.Time
}

// NewStore reads cleanup_interval and max_age as seconds. Unset values fall
// back to five and ten minutes.
func NewStore(cfg config.RateLimitConfig) *Store {
	cleanup := time.Duration(cfg.CleanupInterval) * time.Second
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	maxAge := time.Duration(cfg.MaxAge) * time.Second
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &Store{
		rps:             cfg.RPS,
		burst:           cfg.Burst,
		cleanupInterval: cleanup,
		maxAge:          maxAge,
		limiters:        make(map[string]*clientLimiter),
		now:             time.Now,
	}
}

func (s *Store) get(clientIP string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[clientIP]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.limiters[clientIP] = l
	}
	l.lastSeen = s.now()
	return l.limiter
}

// Cleanup forgets clients idle for longer than max age.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for ip, l := range s.limiters {
		if now.Sub(l.lastSeen) > s.maxAge {
			delete(s.limiters, ip)
			removed++
		}
	}
	return removed
}

// Run cleans up periodically until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func (s *Store) Middleware() gin.HandlerFunc {
	limit := strconv.FormatFloat(s.rps, 'f', -1, 64)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}
		limiter := s.get(clientIP)

		c.Header("X-RateLimit-Limit", limit)
		if !limiter.Allow() {
			metrics.IncRateLimitRequest("limited")
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.IncRateLimitRequest("allowed")
		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
