package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"profile-api/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const releaseTimeout = 2 * time.Second

var acquireScript = redis.NewScript(`
-- KEYS[1] = counter key
-- ARGV[1] = limit
-- ARGV[2] = ttl_ms
-- Returns 1 if a slot was taken, 0 if the limit is reached.
local current = redis.call('INCR', KEYS[1])
if current == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

var releaseScript = redis.NewScript(`
-- KEYS[1] = counter key
local current = redis.call('DECR', KEYS[1])
if current <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// RedisLimiter caps concurrent work per key across all API instances.
// Slots expire after ttl so a crashed holder cannot leak them.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	ttl    time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, prefix string, limit int, ttl time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, errors.New("throttle: redis client is nil")
	}
	if limit <= 0 {
		return nil, errors.New("throttle: limit must be > 0")
	}
	if ttl <= 0 {
		return nil, errors.New("throttle: ttl must be > 0")
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, ttl: ttl}, nil
}

func (l *RedisLimiter) Acquire(ctx context.Context, key string) (func(), bool, error) {
	if key == "" {
		return nil, false, errors.New("throttle: key is required")
	}
	k := l.prefix + key

	res, err := acquireScript.Run(ctx, l.rdb, []string{k}, l.limit, l.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, false, fmt.Errorf("throttle: acquire: %w", err)
	}
	if res != 1 {
		return nil, false, nil
	}

	release := func() {
		// The request context may already be done.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{k}).Err(); err != nil {
			logger.From(ctx).Warn("throttle: release failed", "key", k, "err", err)
		}
	}
	return release, true, nil
}
