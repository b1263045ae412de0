package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"storyfeed-api/pkg/appenv"
	"storyfeed-api/pkg/config"
	"storyfeed-api/types"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore maps keys (author or IP) to token buckets. Entries idle for
// longer than staleAfter are dropped by Janitor.
type limiterStore struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	staleAfter time.Duration
	limit      rate.Limit
	burst      int
}

func newLimiterStore(limit rate.Limit, burst int, staleAfter time.Duration) *limiterStore {
	return &limiterStore{
		entries:    make(map[string]*limiterEntry),
		staleAfter: staleAfter,
		limit:      limit,
		burst:      burst,
	}
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	lim := rate.NewLimiter(s.limit, s.burst)
	s.entries[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim
}

func (s *limiterStore) cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.staleAfter)
	removed := 0
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// RateLimitConfig is read from RATE_LIMIT_* variables.
type RateLimitConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	Whitelist []string
}

func RateLimitConfigFromEnv() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:   config.GetEnvBool("RATE_LIMIT_ENABLED", true) && !appenv.IsTest(),
		RPS:       config.GetEnvFloat("RATE_LIMIT_RPS", 5),
		Burst:     config.GetEnvInt("RATE_LIMIT_BURST", 20),
		Whitelist: config.GetEnvList("RATE_LIMIT_WHITELIST"),
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	return cfg
}

type whitelist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseWhitelist(entries []string) whitelist {
	var w whitelist
	for _, p := range entries {
		if ip := net.ParseIP(p); ip != nil {
			w.ips = append(w.ips, ip)
			continue
		}
		if _, n, err := net.ParseCIDR(p); err == nil {
			w.nets = append(w.nets, n)
		}
	}
	return w
}

func (w whitelist) contains(clientIP string) bool {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, x := range w.ips {
		if x.Equal(ip) {
			return true
		}
	}
	for _, n := range w.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RateLimiter is a per-author (when authenticated) or per-IP token bucket.
type RateLimiter struct {
	cfg   RateLimitConfig
	allow whitelist
	store *limiterStore
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:   cfg,
		allow: parseWhitelist(cfg.Whitelist),
		store: newLimiterStore(rate.Limit(cfg.RPS), cfg.Burst, 10*time.Minute),
	}
}

// Janitor evicts idle buckets every minute until ctx is done.
func (l *RateLimiter) Janitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.store.cleanup(now)
		}
	}
}

// Middleware skips preflight, /health and /metrics. Mount it after
// AuthMiddleware to key by author.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	if !l.cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		switch {
		case c.Request.Method == http.MethodOptions,
			c.Request.URL.Path == "/health",
			c.Request.URL.Path == "/metrics":
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if l.allow.contains(clientIP) {
			c.Next()
			return
		}

		key := "ip:" + clientIP
		if id := c.GetInt(AuthorIDKey); id > 0 {
			key = "uid:" + strconv.Itoa(id)
		}

		if !l.store.get(key, time.Now()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.NewErrorResponseWithDetails(
				types.ErrorCodeRateLimited,
				"Too many requests",
				map[string]any{"retryAfterSeconds": 1, "burst": l.cfg.Burst},
			))
			return
		}
		c.Next()
	}
}
