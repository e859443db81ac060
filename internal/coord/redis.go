package coord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the service.
const DefaultPrefix = "pulse:"

// Option configures the RedisStore.
type Option func(*RedisStore)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *RedisStore) { s.prefix = prefix }
}

// RedisStore implements Store on top of Redis. The caller owns the client
// lifecycle.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed coordination store.
func NewRedisStore(client redis.Cmdable, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) ListPush(ctx context.Context, key string, values ...string) error {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.RPush(ctx, s.key(key), args...).Err(); err != nil {
		return fmt.Errorf("coord/redis: list push %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListPop(ctx context.Context, key string) (string, error) {
	v, err := s.client.LPop(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("coord/redis: list pop %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) ListPopBlocking(ctx context.Context, key string, timeout time.Duration) (string, error) {
	vals, err := s.client.BLPop(ctx, timeout, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("coord/redis: blocking list pop %s: %w", key, err)
	}
	if len(vals) < 2 {
		return "", fmt.Errorf("coord/redis: unexpected BLPOP response: %v", vals)
	}
	return vals[1], nil
}

func (s *RedisStore) ListLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("coord/redis: list len %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := s.client.LRange(ctx, s.key(key), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("coord/redis: list range %s: %w", key, err)
	}
	return vals, nil
}

func (s *RedisStore) SetAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := s.client.SAdd(ctx, s.key(key), member).Result()
	if err != nil {
		return false, fmt.Errorf("coord/redis: set add %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("coord/redis: set members %s: %w", key, err)
	}
	return members, nil
}

func (s *RedisStore) SetRemove(ctx context.Context, key, member string) error {
	if err := s.client.SRem(ctx, s.key(key), member).Err(); err != nil {
		return fmt.Errorf("coord/redis: set remove %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.SCard(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("coord/redis: set card %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := s.client.IncrBy(ctx, s.key(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("coord/redis: incr %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) IncrFloat(ctx context.Context, key string, delta float64) (float64, error) {
	f, err := s.client.IncrByFloat(ctx, s.key(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("coord/redis: incr float %s: %w", key, err)
	}
	return f, nil
}

func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, s.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNil
		}
		return 0, fmt.Errorf("coord/redis: get %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) GetFloat(ctx context.Context, key string) (float64, error) {
	f, err := s.client.Get(ctx, s.key(key)).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNil
		}
		return 0, fmt.Errorf("coord/redis: get %s: %w", key, err)
	}
	return f, nil
}

func (s *RedisStore) SetInt(ctx context.Context, key string, value int64) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("coord/redis: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("coord/redis: get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("coord/redis: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) RenameIfAbsent(ctx context.Context, src, dst string) (bool, error) {
	ok, err := s.client.RenameNX(ctx, s.key(src), s.key(dst)).Result()
	if err != nil {
		// Redis answers RENAMENX on a missing source with an error rather than 0.
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return false, nil
		}
		return false, fmt.Errorf("coord/redis: renamenx %s -> %s: %w", src, dst, err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("coord/redis: delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("coord/redis: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping verifies the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
