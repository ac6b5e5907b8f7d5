package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type redisLocker struct {
	log *logger.Logger
	rdb goredis.UniversalClient
}

func NewRedisLocker(log *logger.Logger, rdb goredis.UniversalClient) (Locker, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisLocker{log: log.With("service", "RedisLocker"), rdb: rdb}, nil
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &redisLease{locker: l, key: key, token: token}, nil
}

type redisLease struct {
	locker *redisLocker
	key    string
	token  string
}

func (r *redisLease) Key() string { return r.key }

func (r *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis extend %s: %w", r.key, err)
	}
	if n == 0 {
		return ErrHeld
	}
	return nil
}

func (r *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", r.key, err)
	}
	if n == 0 {
		r.locker.log.Warn("lock already expired on release", "key", r.key)
	}
	return nil
}
