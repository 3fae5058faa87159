package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements troupe.StateStore on Redis. Records live under
// "{prefix}:{namespace}:{key}" so multiple engines can share one server.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	Prefix string        // key prefix, default "troupe"
	TTL    time.Duration // optional expiry for records, 0 = keep forever
}

// NewRedisStore wraps an existing go-redis client (Client, ClusterClient
// or Ring all work).
func NewRedisStore(client redis.UniversalClient, config ...RedisStoreConfig) *RedisStore {
	cfg := RedisStoreConfig{Prefix: "troupe"}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "troupe"
	}
	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
}

// DialRedisStore connects to Redis and verifies the connection.
func DialRedisStore(addr, password string, db int, config ...RedisStoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStore(client, config...), nil
}

func (s *RedisStore) key(namespace, key string) string {
	return s.prefix + ":" + namespace + ":" + key
}

func (s *RedisStore) Get(namespace, key string) (string, error) {
	val, err := s.client.Get(context.Background(), s.key(namespace, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(namespace, key, value string) error {
	return s.client.Set(context.Background(), s.key(namespace, key), value, s.ttl).Err()
}

func (s *RedisStore) Delete(namespace, key string) error {
	return s.client.Del(context.Background(), s.key(namespace, key)).Err()
}

func (s *RedisStore) ListKeys(namespace string) ([]string, error) {
	pattern := s.prefix + ":" + namespace + ":*"
	strip := s.prefix + ":" + namespace + ":"

	var keys []string
	var cursor uint64
	ctx := context.Background()
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, strip))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
