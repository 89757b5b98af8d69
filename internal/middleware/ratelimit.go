package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/accountd/internal/pkg/errcode"
	"github.com/xxxsen/accountd/internal/pkg/response"
)

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

type rateLimiter struct {
	mu            sync.Mutex
	window        time.Duration
	burst         int
	last          map[string]*limiterEntry
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

// RateLimit allows burst requests per client and route, refilled at one
// request per window.
func RateLimit(window time.Duration, burst int) gin.HandlerFunc {
	return newRateLimiter(window, burst).handle
}

func newRateLimiter(window time.Duration, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		window:        window,
		burst:         burst,
		last:          make(map[string]*limiterEntry),
		sweepInterval: time.Minute,
		now:           time.Now,
	}
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	uid := "0"
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			uid = id
		}
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, uid, path}, "|")

	if !l.allow(key) {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("user_id", uid),
			zap.String("path", path),
		)
		response.Error(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	c.Next()
}

func (l *rateLimiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.sweepInterval {
		l.cleanupExpiredLocked(now)
	}
	entry, ok := l.last[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.window), l.burst)}
		l.last[key] = entry
	}
	entry.seen = now
	return entry.limiter.AllowN(now, 1)
}

// cleanupExpiredLocked drops limiters idle long enough to have refilled.
func (l *rateLimiter) cleanupExpiredLocked(now time.Time) {
	idle := l.window * time.Duration(l.burst)
	for key, entry := range l.last {
		if now.Sub(entry.seen) >= idle {
			delete(l.last, key)
		}
	}
	l.lastSweep = now
}
