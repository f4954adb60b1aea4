package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/jsonpick/config"
	"github.com/use-agent/jsonpick/models"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiters holds one token bucket per identity (API key or client IP).
type Limiters struct {
	cfg config.RateLimitConfig

	mu      sync.Mutex
	entries map[string]*limiterEntry

	done     chan struct{}
	stopOnce sync.Once
}

// NewLimiters creates the bucket set and starts a goroutine that evicts
// identities idle for an hour, checked every 5 minutes, until Stop.
func NewLimiters(cfg config.RateLimitConfig) *Limiters {
	l := &Limiters{
		cfg:     cfg,
		entries: make(map[string]*limiterEntry),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop(5*time.Minute, time.Hour)
	return l
}

// Stop ends the cleanup goroutine.
func (l *Limiters) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *Limiters) get(identity string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[identity]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst),
		}
		l.entries[identity] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (l *Limiters) cleanupLoop(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-idle)
			l.mu.Lock()
			for id, entry := range l.entries {
				if entry.lastSeen.Before(cutoff) {
					delete(l.entries, id)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RateLimit returns token-bucket rate limiting middleware powered by
// golang.org/x/time/rate. Rejections carry a Retry-After header.
func RateLimit(l *Limiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		r := l.get(identity).Reserve()
		if delay := r.Delay(); !r.OK() || delay > 0 {
			r.Cancel()
			if r.OK() {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}
