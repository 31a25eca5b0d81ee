package challenge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStorePutPeekTake(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)

	require.NoError(t, s.Put(ctx, "c1", "ABCDEF"))
	assert.True(t, mr.Exists("captcha:challenge:c1"))
	assert.Equal(t, time.Duration(0), mr.TTL("captcha:challenge:c1"))

	got, err := s.Peek(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", got)

	got, err = s.Take(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", got)

	_, err = s.Take(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Peek(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreConsume(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)
	require.NoError(t, s.Put(ctx, "c1", "ABCDEF"))

	ok, err := s.Consume(ctx, "c1", "WRONG1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("captcha:challenge:c1"))

	ok, err = s.Consume(ctx, "nope", "ABCDEF")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Consume(ctx, "c1", "ABCDEF")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("captcha:challenge:c1"))
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)
	require.NoError(t, s.Put(ctx, "c1", "ABCDEF"))
	assert.Equal(t, time.Minute, mr.TTL("captcha:challenge:c1"))

	mr.FastForward(2 * time.Minute)
	ok, err := s.Consume(ctx, "c1", "ABCDEF")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, 0)
	require.NoError(t, s.Put(ctx, "c1", "ABCDEF"))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Consume(ctx, "c1", "ABCDEF")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRedisStoreHealth(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	require.NoError(t, s.Health(context.Background()))
	mr.Close()
	assert.Error(t, s.Health(context.Background()))
}
