package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and the last time we saw this IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorSet is a per-IP limiter table sharing one rate and burst.
type visitorSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    time.Duration
	burst    int
}

func newVisitorSet(every time.Duration, burst int) *visitorSet {
	return &visitorSet{visitors: make(map[string]*visitor), every: every, burst: burst}
}

var (
	// General API visitors: 1 request/second average, burst of 50.
	visitors = newVisitorSet(time.Second, 50)

	// Stricter visitors for sign-up / authenticate: 1 request every 10
	// seconds on average, burst of 5.
	loginVisitors = newVisitorSet(10*time.Second, 5)
)

const visitorIdleTTL = 10 * time.Minute

func (s *visitorSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	v, exists := s.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Every(s.every), s.burst)
		s.visitors[ip] = &visitor{
			limiter:  limiter,
			lastSeen: now,
		}
		return limiter
	}

	v.lastSeen = now
	return v.limiter
}

// sweep forgets visitors idle for longer than ttl.
func (s *visitorSet) sweep(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for ip, v := range s.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(s.visitors, ip)
		}
	}
}

func (s *visitorSet) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors = make(map[string]*visitor)
}

var sweeperOnce sync.Once

func startSweeper() {
	sweeperOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				visitors.sweep(visitorIdleTTL)
				loginVisitors.sweep(visitorIdleTTL)
			}
		}()
	})
}

func limitBy(set *visitorSet, message string) gin.HandlerFunc {
	startSweeper()
	return func(c *gin.Context) {
		if !set.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": message,
			})
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware applies a simple per-IP rate limit for all routes.
func RateLimitMiddleware() gin.HandlerFunc {
	return limitBy(visitors, "Too many requests. Please slow down.")
}

// LoginRateLimitMiddleware applies a stricter per-IP rate limit for auth routes.
func LoginRateLimitMiddleware() gin.HandlerFunc {
	return limitBy(loginVisitors, "Too many authentication attempts. Please wait and try again.")
}
