package blobstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v7"
)

// RedisStore keeps blobs as plain string keys; the container name becomes
// a "container/" key prefix.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// RedisOpener maps containers to key prefixes on client.
func RedisOpener(client redis.Cmdable) Opener {
	return func(ctx context.Context, container string) (Store, error) {
		return NewRedisStore(client, container), nil
	}
}

func NewRedisStore(client redis.Cmdable, container string) *RedisStore {
	return &RedisStore{client: client, prefix: container + "/"}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(s.prefix + key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: could not get %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.PutTTL(ctx, key, value, 0)
}

// PutTTL writes the blob and lets Redis expire it after ttl. Zero means never.
func (s *RedisStore) PutTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: could not set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(s.prefix + key).Result()
	if err != nil {
		return fmt.Errorf("redis: could not delete %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(0, globEscaper.Replace(s.prefix+prefix)+"*", 100).Iterator()
	for iter.Next() {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: could not scan %s: %w", prefix, err)
	}
	return keys, nil
}
