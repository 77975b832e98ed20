package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/northstarhq/api/pkg/logger"
)

// Sliding-window log scripts. Each request is a sorted-set member
// scored by its timestamp; pruning and counting happen inside the
// script so check-and-consume is atomic across instances.
var (
	allowScript = redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local window_ms = tonumber(ARGV[3])
		local limit = tonumber(ARGV[4])
		local request_id = ARGV[5]

		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
		local count = redis.call('ZCARD', key)

		if count < limit then
			redis.call('ZADD', key, now, request_id)
			redis.call('PEXPIRE', key, window_ms)
			return {1, limit - count - 1, now + window_ms}
		end

		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local retry_at = oldest[2] and (tonumber(oldest[2]) + window_ms) or (now + window_ms)
		return {0, 0, retry_at}
	`)

	statusScript = redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local window_ms = tonumber(ARGV[3])
		local limit = tonumber(ARGV[4])

		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
		local count = redis.call('ZCARD', key)

		local ttl = redis.call('PTTL', key)
		if ttl < 0 then
			ttl = window_ms
		end

		local remaining = limit - count
		if remaining < 0 then
			remaining = 0
		end

		local allowed = 0
		if count < limit then
			allowed = 1
		end

		return {allowed, remaining, now + ttl}
	`)
)

// RateLimiter is a Redis-backed sliding-window limiter. Unlike the
// in-memory middleware limiter, its budget is shared by every
// instance behind the load balancer.
type RateLimiter struct {
	client    *Client
	keyPrefix string
	limit     int
	window    time.Duration
	logger    *logger.Logger
}

// RateLimitResult reports one limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time

	// RetryAt is set only when the request was refused.
	RetryAt time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per window
// under the given key prefix.
func NewRateLimiter(client *Client, prefix string, limit int, window time.Duration, log *logger.Logger) (*RateLimiter, error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client is required")
	case prefix == "":
		return nil, errors.New("key prefix is required")
	case limit <= 0:
		return nil, errors.New("limit must be positive")
	case window <= 0:
		return nil, errors.New("window must be positive")
	case log == nil:
		return nil, errors.New("logger is required")
	}

	return &RateLimiter{
		client:    client,
		keyPrefix: prefix,
		limit:     limit,
		window:    window,
		logger:    log,
	}, nil
}

func (rl *RateLimiter) buildKey(key string) string {
	return fmt.Sprintf("%s:%s", rl.keyPrefix, key)
}

// Allow consumes one token for key if the window has room.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	start := time.Now()
	now := start
	res, err := allowScript.Run(ctx, rl.client.client, []string{rl.buildKey(key)},
		now.UnixMilli(), now.Add(-rl.window).UnixMilli(), rl.window.Milliseconds(),
		rl.limit, uuid.New().String()).Slice()
	if err != nil {
		DefaultMetrics.ObserveOperation("ratelimit_allow", time.Since(start), err)
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	out := decodeLimitResult(res)
	DefaultMetrics.RecordRateLimitResult(rl.keyPrefix, out.Allowed)
	DefaultMetrics.ObserveOperation("ratelimit_allow", time.Since(start), nil)

	if !out.Allowed {
		out.RetryAt = out.ResetAt
		rl.logger.Debug("rate limit exceeded", "key", key, "retry_at", out.ResetAt)
	}
	return out, nil
}

// Status reads the window without consuming a token, for exposing
// limit state to clients.
func (rl *RateLimiter) Status(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	now := time.Now()
	res, err := statusScript.Run(ctx, rl.client.client, []string{rl.buildKey(key)},
		now.UnixMilli(), now.Add(-rl.window).UnixMilli(), rl.window.Milliseconds(),
		rl.limit).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit status: %w", err)
	}
	return decodeLimitResult(res), nil
}

// Reset clears the window for key, restoring its full budget.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key is required")
	}

	if err := rl.client.client.Del(ctx, rl.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	rl.logger.Debug("rate limit reset", "key", key)
	return nil
}

// Limit returns the configured requests per window.
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Window returns the configured window duration.
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

// decodeLimitResult unpacks the {allowed, remaining, reset_ms} triple
// both scripts return.
func decodeLimitResult(res []any) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   res[0].(int64) == 1,
		Remaining: int(res[1].(int64)),
		ResetAt:   time.UnixMilli(res[2].(int64)),
	}
}

// MiddlewareAdapter exposes the limiter under the result type the
// HTTP middleware expects.
type MiddlewareAdapter struct {
	limiter *RateLimiter
}

// MiddlewareRateLimitResult mirrors RateLimitResult for the
// middleware package, which must not import this one's internals.
type MiddlewareRateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	RetryAt   time.Time
}

func NewMiddlewareAdapter(rl *RateLimiter) *MiddlewareAdapter {
	return &MiddlewareAdapter{limiter: rl}
}

func (a *MiddlewareAdapter) Allow(ctx context.Context, key string) (*MiddlewareRateLimitResult, error) {
	result, err := a.limiter.Allow(ctx, key)
	if err != nil {
		return nil, err
	}
	return &MiddlewareRateLimitResult{
		Allowed:   result.Allowed,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAt,
		RetryAt:   result.RetryAt,
	}, nil
}

func (a *MiddlewareAdapter) Limit() int {
	return a.limiter.Limit()
}
