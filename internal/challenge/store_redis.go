package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "captcha:challenge:"

// consumeScript deletes KEYS[1] only when it holds ARGV[1].
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps challenges in Redis so several server processes can share them.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps client. A ttl of zero stores keys without expiry.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, id, answer string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+id, answer, s.ttl).Err(); err != nil {
		return fmt.Errorf("store challenge %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Peek(ctx context.Context, id string) (string, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("peek challenge %s: %w", id, err)
	}
	return v, nil
}

func (s *RedisStore) Take(ctx context.Context, id string) (string, error) {
	v, err := s.client.GetDel(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("take challenge %s: %w", id, err)
	}
	return v, nil
}

func (s *RedisStore) Consume(ctx context.Context, id, answer string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{redisKeyPrefix + id}, answer).Int()
	if err != nil {
		return false, fmt.Errorf("consume challenge %s: %w", id, err)
	}
	return n == 1, nil
}

// Health pings the backing Redis.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
