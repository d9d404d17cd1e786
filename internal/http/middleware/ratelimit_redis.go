package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims expired members, admits when under the limit and
// reports {allowed, count, reset_ms}. Running it as one script keeps
// concurrent requests for the same key from both slipping past the cap.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, member)
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local reset = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window - now
end
return {allowed, count, reset}
`)

// RedisLimiter is a sliding-window limiter shared by every API replica.
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLimiter allows limit requests per key in any window-long interval.
func NewRedisLimiter(rdb redis.Scripter, limit int, window time.Duration, opts ...LimiterOption) *RedisLimiter {
	if rdb == nil {
		panic("middleware: redis client required")
	}
	o := buildLimiterOptions(opts)
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: o.prefix,
		now:    o.now,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	nowMs := l.now().UnixMilli()
	windowMs := l.window.Milliseconds()

	res, err := slidingWindowScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + key},
		nowMs, windowMs, l.limit, fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("middleware: redis rate limit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("middleware: redis rate limit: unexpected reply %v", res)
	}

	count := int(res[1])
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    res[0] == 1,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
