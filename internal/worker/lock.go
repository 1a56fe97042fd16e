package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker grants at most one holder of key at a time.
type Locker interface {
	// TryLock returns acquired=false when someone else holds key. release is
	// never nil.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), acquired bool, err error)
}

// RedisLock is a SET NX lock guarded by a circuit breaker. When Redis is
// unreachable the lock degrades to "acquired" so the caller still runs.
type RedisLock struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewRedisLock builds the lock. A nil client makes every TryLock succeed.
func NewRedisLock(client redis.UniversalClient, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) *RedisLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLock{client: client, breaker: breaker, logger: logger}
}

func noopRelease(context.Context) {}

func (l *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	if l.client == nil {
		return noopRelease, true, nil
	}

	token := uuid.NewString()
	setNX := func() (interface{}, error) {
		return l.client.SetNX(ctx, key, token, ttl).Result()
	}

	var (
		res interface{}
		err error
	)
	if l.breaker != nil {
		res, err = l.breaker.Execute(setNX)
	} else {
		res, err = setNX()
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			l.logger.Warn("sweep lock breaker open; running without lock", zap.String("key", key))
		} else {
			l.logger.Warn("sweep lock unavailable; running without lock", zap.String("key", key), zap.Error(err))
		}
		return noopRelease, true, err
	}

	if ok, _ := res.(bool); !ok {
		return noopRelease, false, nil
	}

	release := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release sweep lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}
