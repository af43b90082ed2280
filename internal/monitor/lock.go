package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "benchwatch:run:"

// Locker grants single-flight ownership of a project's run. Acquire returns
// entity.ErrAlreadyLocked while another holder owns key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type Lock interface {
	Release(ctx context.Context) error
}

func lockKey(projectID string) string {
	return lockPrefix + projectID
}

// MemoryLocker keeps locks in process memory. Suitable for a single instance.
type MemoryLocker struct {
	cache *cache.Cache
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{cache: cache.New(cache.NoExpiration, time.Minute)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	token := uuid.NewString()
	if err := l.cache.Add(key, token, ttl); err != nil {
		return nil, entity.ErrAlreadyLocked
	}
	return &memoryLock{cache: l.cache, key: key, token: token}, nil
}

type memoryLock struct {
	cache *cache.Cache
	key   string
	token string
}

func (l *memoryLock) Release(context.Context) error {
	if v, ok := l.cache.Get(l.key); ok && v == l.token {
		l.cache.Delete(l.key)
	}
	return nil
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker shares locks across instances through SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, entity.ErrAlreadyLocked
	}
	return &redisLock{client: l.client, key: key, token: token}, nil
}

type redisLock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
