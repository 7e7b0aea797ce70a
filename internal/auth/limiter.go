package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated failed logins per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// RedisLimiter counts failures in a fixed window stored in Redis.
type RedisLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

const limiterPrefix = "login_failures:"

// NewRedisLimiter builds a limiter. maxAttempts <= 0 disables throttling.
func NewRedisLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.maxAttempts <= 0 {
		return true, nil
	}
	n, err := l.client.Get(ctx, limiterPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return n < l.maxAttempts, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	if l.maxAttempts <= 0 {
		return nil
	}
	n, err := l.client.Incr(ctx, limiterPrefix+key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return l.client.Expire(ctx, limiterPrefix+key, l.window).Err()
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, limiterPrefix+key).Err()
}

// NoopLimiter never throttles.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (bool, error)  { return true, nil }
func (NoopLimiter) RecordFailure(context.Context, string) error { return nil }
func (NoopLimiter) Reset(context.Context, string) error         { return nil }
