package credential

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/viant/mailnotify"
)

// RedisStore is a durable Store backed by Redis, shared by processes using the same prefix.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A zero ttl keeps keys until cleared.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "mailnotify:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) keyAccess() string  { return s.prefix + mailnotify.AccessTokenKey }
func (s *RedisStore) keyRefresh() string { return s.prefix + mailnotify.RefreshTokenKey }

func (s *RedisStore) Load(ctx context.Context) (*Pair, error) {
	values, err := s.rdb.MGet(ctx, s.keyAccess(), s.keyRefresh()).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	ret := &Pair{}
	if len(values) == 2 {
		ret.AccessToken = asString(values[0])
		ret.RefreshToken = asString(values[1])
	}
	return ret, nil
}

func (s *RedisStore) Save(ctx context.Context, pair *Pair) error {
	if err := validate(pair); err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyAccess(), pair.AccessToken, s.ttl)
	if pair.RefreshToken == "" {
		pipe.Del(ctx, s.keyRefresh())
	} else {
		pipe.Set(ctx, s.keyRefresh(), pair.RefreshToken, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.keyAccess(), s.keyRefresh()).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
