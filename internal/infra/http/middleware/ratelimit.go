package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/northstarhq/api/internal/config"
	redisinfra "github.com/northstarhq/api/internal/infra/redis"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/logger"
)

// RateLimiter implements a per-IP rate limiter.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	log      *logger.Logger
	done     chan struct{}
	stopped  chan struct{} // signals goroutine has exited
	stopOnce sync.Once     // prevents double-close panic
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg *config.RateLimitConfig, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(cfg.RequestsPerSec),
		burst:    cfg.Burst,
		cleanup:  cfg.CleanupInterval,
		log:      log,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go rl.cleanupVisitors()

	return rl
}

// Stop stops the cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
	<-rl.stopped
}

// getVisitor retrieves or creates a rate limiter for an IP.
func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes stale visitor entries.
func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	defer close(rl.stopped)

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			limiter := rl.getVisitor(ip)

			// Get current tokens before Allow() consumes one
			tokens := limiter.Tokens()
			remaining := int(math.Max(0, math.Floor(tokens)-1))

			// Time until the bucket is full again
			tokensToRefill := float64(rl.burst) - tokens
			var resetTime time.Time
			if tokensToRefill > 0 && rl.rate > 0 {
				secondsToRefill := tokensToRefill / float64(rl.rate)
				resetTime = time.Now().Add(time.Duration(secondsToRefill * float64(time.Second)))
			} else {
				resetTime = time.Now()
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !limiter.Allow() {
				rl.log.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				apierror.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitWithStop creates a rate limiting middleware and returns a stop function.
// The stop function should be called during graceful shutdown.
func RateLimitWithStop(cfg *config.RateLimitConfig, log *logger.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}, func() {}
	}

	rl := NewRateLimiter(cfg, log)
	return rl.Middleware(), rl.Stop
}

// RateLimit creates a rate limiting middleware from config.
// Note: For proper cleanup, use RateLimitWithStop instead.
func RateLimit(cfg *config.RateLimitConfig, log *logger.Logger) func(http.Handler) http.Handler {
	mw, _ := RateLimitWithStop(cfg, log)
	return mw
}

// getClientIP extracts the real client IP from the request.
// Note: In production behind a trusted proxy, configure your proxy
// to set X-Real-IP or the rightmost X-Forwarded-For IP.
func getClientIP(r *http.Request) string {
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}

	// Warning: X-Forwarded-For can be spoofed if not behind a trusted proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// DistributedRateLimitConfig configures the distributed rate limit middleware.
type DistributedRateLimitConfig struct {
	// Limiter is the Redis-backed rate limiter adapter.
	Limiter *redisinfra.MiddlewareAdapter
	// KeyFunc extracts the rate limit key from the request.
	// Defaults to using client IP.
	KeyFunc func(r *http.Request) string
	// Logger for rate limit events.
	Logger *logger.Logger
	// SkipFunc optionally skips rate limiting for certain requests.
	SkipFunc func(r *http.Request) bool
}

// DistributedRateLimit creates middleware using Redis-backed rate limiting.
// Essential for multi-instance deployments where in-memory rate limiting
// is insufficient.
//
// Example usage:
//
//	rateLimiter, _ := redis.NewRateLimiter(client, "api", 100, time.Minute, log)
//	adapter := redis.NewMiddlewareAdapter(rateLimiter)
//	router.Use(middleware.DistributedRateLimit(middleware.DistributedRateLimitConfig{
//	    Limiter: adapter,
//	    Logger:  log,
//	}))
func DistributedRateLimit(cfg DistributedRateLimitConfig) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = getClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.SkipFunc != nil && cfg.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyFunc(r)
			result, err := cfg.Limiter.Allow(r.Context(), key)

			if err != nil {
				// Fail-open: allow request if Redis is unavailable
				if cfg.Logger != nil {
					cfg.Logger.Error("distributed rate limit check failed",
						"error", err,
						"key", key,
						"request_id", GetRequestID(r.Context()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(time.Until(result.RetryAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				if cfg.Logger != nil {
					cfg.Logger.Warn("distributed rate limit exceeded",
						"key", key,
						"retry_at", result.RetryAt,
						"request_id", GetRequestID(r.Context()),
					)
				}

				apierror.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserKeyFunc returns a key function that uses authenticated user ID.
// Falls back to IP address for unauthenticated requests.
func UserKeyFunc(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + getClientIP(r)
}

// EndpointKeyFunc returns a key function that includes the endpoint.
// Useful for per-endpoint rate limiting.
func EndpointKeyFunc(r *http.Request) string {
	base := UserKeyFunc(r)
	return base + ":" + r.Method + ":" + r.URL.Path
}

// AuthRateLimiter provides stricter rate limiting for authentication
// endpoints to slow down brute-force attempts.
type AuthRateLimiter struct {
	loginLimiter    *RateLimiter
	registerLimiter *RateLimiter
	passwordLimiter *RateLimiter
	log             *logger.Logger
}

// AuthRateLimitConfig configures auth-specific rate limits.
type AuthRateLimitConfig struct {
	// LoginRatePerMin is the max login attempts per minute per IP.
	// Default: 5
	LoginRatePerMin int
	// RegisterRatePerMin is the max registration attempts per minute per IP.
	// Default: 3
	RegisterRatePerMin int
	// PasswordResetRatePerMin is the max password reset/forgot attempts per minute per IP.
	// Default: 3
	PasswordResetRatePerMin int
	// CleanupInterval for visitor entries.
	// Default: 1 minute
	CleanupInterval time.Duration
}

// DefaultAuthRateLimitConfig returns secure defaults for auth rate limiting.
func DefaultAuthRateLimitConfig() AuthRateLimitConfig {
	return AuthRateLimitConfig{
		LoginRatePerMin:         5,
		RegisterRatePerMin:      3,
		PasswordResetRatePerMin: 3,
		CleanupInterval:         time.Minute,
	}
}

// NewAuthRateLimiter creates a rate limiter specialized for authentication endpoints.
func NewAuthRateLimiter(cfg AuthRateLimitConfig, log *logger.Logger) *AuthRateLimiter {
	if cfg.LoginRatePerMin == 0 {
		cfg.LoginRatePerMin = 5
	}
	if cfg.RegisterRatePerMin == 0 {
		cfg.RegisterRatePerMin = 3
	}
	if cfg.PasswordResetRatePerMin == 0 {
		cfg.PasswordResetRatePerMin = 3
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}

	// Convert per-minute rates to per-second for rate.Limit
	loginRate := float64(cfg.LoginRatePerMin) / 60.0
	registerRate := float64(cfg.RegisterRatePerMin) / 60.0
	passwordRate := float64(cfg.PasswordResetRatePerMin) / 60.0

	return &AuthRateLimiter{
		loginLimiter: NewRateLimiter(&config.RateLimitConfig{
			Enabled:         true,
			RequestsPerSec:  loginRate,
			Burst:           cfg.LoginRatePerMin,
			CleanupInterval: cfg.CleanupInterval,
		}, log),
		registerLimiter: NewRateLimiter(&config.RateLimitConfig{
			Enabled:         true,
			RequestsPerSec:  registerRate,
			Burst:           cfg.RegisterRatePerMin,
			CleanupInterval: cfg.CleanupInterval,
		}, log),
		passwordLimiter: NewRateLimiter(&config.RateLimitConfig{
			Enabled:         true,
			RequestsPerSec:  passwordRate,
			Burst:           cfg.PasswordResetRatePerMin,
			CleanupInterval: cfg.CleanupInterval,
		}, log),
		log: log,
	}
}

// Stop gracefully shuts down all rate limiters.
func (a *AuthRateLimiter) Stop() {
	a.loginLimiter.Stop()
	a.registerLimiter.Stop()
	a.passwordLimiter.Stop()
}

// LoginMiddleware returns middleware for login endpoints.
func (a *AuthRateLimiter) LoginMiddleware() func(http.Handler) http.Handler {
	return a.loginLimiter.Middleware()
}

// RegisterMiddleware returns middleware for registration endpoints.
func (a *AuthRateLimiter) RegisterMiddleware() func(http.Handler) http.Handler {
	return a.registerLimiter.Middleware()
}

// PasswordMiddleware returns middleware for password reset/forgot endpoints.
func (a *AuthRateLimiter) PasswordMiddleware() func(http.Handler) http.Handler {
	return a.passwordLimiter.Middleware()
}
