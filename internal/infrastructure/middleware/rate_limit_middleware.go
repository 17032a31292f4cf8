package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"geolatency/pkg/config"
	apperrors "geolatency/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiterStore stores per-key (for example, per IP) rate limiters.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  make(map[string]*rate.Limiter),
		rate:      r,
		burstSize: burst,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(s.rate, s.burstSize)
		s.limiters[key] = limiter
	}
	return limiter
}

// clientIP extracts the client address, preferring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func passThrough(c *gin.Context) {
	c.Next()
}

// limit applies a global concurrency cap and a per-IP limiter.
func limit(store *rateLimiterStore, maxConcurrent int) gin.HandlerFunc {
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
				abortWithError(c, apperrors.NewServiceUnavailableError("too many concurrent requests"))
				return
			}
		}

		if !store.getLimiter(clientIP(c.Request)).Allow() {
			c.Header("Retry-After", "1")
			abortWithError(c, apperrors.NewRateLimitError())
			return
		}
		c.Next()
	}
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	store := newRateLimiterStore(
		rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond),
		cfg.RateLimiting.HTTP.Burst,
	)
	return limit(store, cfg.RateLimiting.HTTP.MaxConcurrent)
}

// NewStreamRateLimitMiddleware limits websocket upgrades per IP per minute. MaxConcurrent
// bounds the number of open streams, since the handler holds the slot until disconnect.
func NewStreamRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	perMinute := cfg.RateLimiting.Stream.ConnectionsPerMinute
	store := newRateLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return limit(store, cfg.RateLimiting.Stream.MaxConcurrent)
}
