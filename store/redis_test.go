package store

import (
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, cfg ...RedisStoreConfig) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, cfg...)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newTestRedisStore(t)

	if err := s.Set("mood", "nova", `{"label":"excited"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("mood", "nova")
	if err != nil || got != `{"label":"excited"}` {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if err := s.Delete("mood", "nova"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := s.Get("mood", "nova"); err != nil || got != "" {
		t.Fatalf("Get after delete = %q, %v; want empty", got, err)
	}
}

func TestRedisStore_MissingKeyReadsEmpty(t *testing.T) {
	s := newTestRedisStore(t)
	if got, err := s.Get("mood", "ghost"); err != nil || got != "" {
		t.Fatalf("Get = %q, %v; want empty, nil", got, err)
	}
}

func TestRedisStore_ListKeysScopedToNamespace(t *testing.T) {
	s := newTestRedisStore(t)
	s.Set("mood", "nova", "{}")
	s.Set("mood", "pixel", "{}")
	s.Set("evolution", "nova", "{}")

	keys, err := s.ListKeys("mood")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "nova" || keys[1] != "pixel" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestRedisStore_PrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	a := NewRedisStore(client, RedisStoreConfig{Prefix: "engine-a"})
	b := NewRedisStore(client, RedisStoreConfig{Prefix: "engine-b"})

	a.Set("mood", "nova", "{}")
	if got, _ := b.Get("mood", "nova"); got != "" {
		t.Fatalf("prefix leak: %q", got)
	}
	if keys, _ := b.ListKeys("mood"); len(keys) != 0 {
		t.Fatalf("prefix leak in ListKeys: %v", keys)
	}
}
