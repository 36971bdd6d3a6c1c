package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SameKeySerializes(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "product-a")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "only one holder at a time")
	assert.Equal(t, 0, l.held(), "slots are released once idle")
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "product-a")
	require.NoError(t, err)
	defer unlockA()

	ctxB, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctxB, "product-b")
	require.NoError(t, err, "a held lock on a must not block b")
	unlockB()
}

func TestLocal_ContextCancelWhileWaiting(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "product-a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "product-a")
	assert.ErrorIs(t, err, ErrNotObtained)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.held())
}

func TestRedis_ExclusiveAcrossLockers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewRedis(client, time.Minute)
	second := NewRedis(client, time.Minute)
	second.retry = func() redislock.RetryStrategy { return redislock.NoRetry() }

	unlock, err := first.Lock(context.Background(), "product-a")
	require.NoError(t, err)

	_, err = second.Lock(context.Background(), "product-a")
	assert.ErrorIs(t, err, ErrNotObtained, "another instance cannot take a held key")

	unlockOther, err := second.Lock(context.Background(), "product-b")
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlockAgain, err := second.Lock(context.Background(), "product-a")
	require.NoError(t, err, "released key can be taken again")
	unlockAgain()
}
