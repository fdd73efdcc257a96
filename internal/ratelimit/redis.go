package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the sorted set to the window, then adds the hit
// only when there is room.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`

type redisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

func NewRedisLimiter(rdb redis.Cmdable, prefix string, limit int, window time.Duration) Limiter {
	return &redisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(l.seq.Add(1), 10)

	res, err := l.rdb.Eval(ctx, slidingWindowScript, []string{l.prefix + key},
		now.UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		member,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("eval rate limit script: %w", err)
	}

	return res == 1, nil
}
