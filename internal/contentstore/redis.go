package contentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cuihairu/playhub/internal/ports"
)

// RedisStore keeps documents as plain string values under <prefix><key>.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	owned  bool
}

// OpenRedis dials the configured server; the prefix defaults to "playhub:content:".
func OpenRedis(c Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	s := NewRedisStore(rdb, c.Prefix)
	s.owned = true
	return s, nil
}

// NewRedisStore uses an existing client, which the caller keeps ownership of.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "playhub:content:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Read(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b, err := s.rdb.Get(ctx, s.prefix+string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) Write(ctx context.Context, key ports.ContentKey, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.prefix+string(key), doc, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}
