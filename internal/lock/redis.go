package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// Redis is a Locker shared by every instance pointed at the same Redis.
// A lock expires after ttl even if its holder dies.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
	retry  func() redislock.RetryStrategy
}

func NewRedis(client redislock.RedisClient, ttl time.Duration) *Redis {
	return &Redis{
		client: redislock.New(client),
		ttl:    ttl,
		prefix: "stock-ledger:lock:",
		retry: func() redislock.RetryStrategy {
			return redislock.LimitRetry(redislock.ExponentialBackoff(8*time.Millisecond, 256*time.Millisecond), 64)
		},
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lk, err := r.client.Obtain(ctx, r.prefix+key, r.ttl, &redislock.Options{RetryStrategy: r.retry()})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = lk.Release(context.Background())
		})
	}, nil
}
