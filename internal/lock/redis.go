package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes a lock key only if its value matches the caller's token,
// so one holder can never release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Redis implements Locker across processes using SETNX with a TTL and a
// Lua-based conditional unlock. A held key is polled until it frees up or
// the context ends.
type Redis struct {
	rdb      *redis.Client
	ttl      time.Duration
	retry    time.Duration
	unlockSc *redis.Script
}

// NewRedis creates a distributed locker. ttl bounds how long a crashed
// holder can block a key.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		rdb:      rdb,
		ttl:      ttl,
		retry:    10 * time.Millisecond,
		unlockSc: redis.NewScript(unlockLua),
	}
}

func redisKey(key string) string {
	return "lock:" + key
}

func (l *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.New().String()

	var held []string
	release := func() {
		// Use a background context so unlock succeeds even if the caller's
		// context is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, k := range held {
			_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{redisKey(k)}, token).Err()
		}
		held = nil
	}

	for _, key := range keys {
		if err := l.acquire(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Redis) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := l.rdb.SetNX(ctx, redisKey(key), token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(ErrLockHeld, ctx.Err())
			}
			return fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return errors.Join(ErrLockHeld, ctx.Err())
		}
	}
}

// Compile-time interface check.
var _ Locker = (*Redis)(nil)
