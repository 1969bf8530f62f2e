package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Locker hands out short-lived exclusive leases on a key.
// release is always non-nil when ok is true.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	fullKey := fmt.Sprintf("%s:%s", l.prefix, key)
	value := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, fullKey, value, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Detached so a cancelled caller still gives the lease back.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(relCtx, l.rdb, []string{fullKey}, value).Int64()
		if err != nil {
			log.Error().Err(err).Str("key", fullKey).Msg("failed to release lock")
			return
		}
		if deleted == 0 {
			log.Warn().Str("key", fullKey).Msg("lock expired or taken before release")
		}
	}
	return release, true, nil
}

// NoopLocker always grants the lease. Used when Redis is not configured
// and a single process owns every timer.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}
