package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter counts requests per tenant in a sliding window kept in a Redis
// sorted set. A nil client admits everything.
type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

// KEYS[1] sorted set, ARGV: window start, now (unix micro), limit, ttl seconds.
// Returns {count, allowed, oldest score}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
redis.call('EXPIRE', key, ttl)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    return {count + 1, 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {count, 0, tonumber(oldest[2]) or now}
`)

func limiterKey(tenantID string) string {
	return fmt.Sprintf("taskrouter:rl:rpm:%s", tenantID)
}

// Check records one request for tenantID and reports whether it fits in the
// window. limit <= 0 disables the check. Redis errors admit the request.
func (l *Limiter) Check(ctx context.Context, tenantID string, limit int64, window time.Duration) (LimitResult, error) {
	now := l.now()
	if l.rdb == nil || limit <= 0 {
		return LimitResult{Allowed: true, Remaining: max(limit-1, 0), ResetAt: now.Add(window)}, nil
	}

	ttlSecs := int64(window.Seconds()) + 1
	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{limiterKey(tenantID)},
		now.Add(-window).UnixMicro(), now.UnixMicro(), limit, ttlSecs,
	).Int64Slice()
	if err != nil || len(result) != 3 {
		slog.Warn("rate limit check failed, allowing request", "tenant", tenantID, "error", err)
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, nil
	}
	return windowResult(now, window, limit, result[0], result[1] == 1, result[2]), nil
}

// windowResult derives headers from the script reply. A denied request may
// retry once the oldest entry leaves the window.
func windowResult(now time.Time, window time.Duration, limit, count int64, allowed bool, oldestMicro int64) LimitResult {
	res := LimitResult{
		Allowed:   allowed,
		Remaining: max(limit-count, 0),
		ResetAt:   now.Add(window),
	}
	if allowed {
		return res
	}
	res.ResetAt = time.UnixMicro(oldestMicro).Add(window)
	res.RetryAfter = max(res.ResetAt.Sub(now), time.Second)
	return res
}
