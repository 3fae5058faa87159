package troupe

import (
	"encoding/json"
	"sync"
)

// State namespaces. One logical store per entity type; keys inside a
// namespace are persona IDs, pair keys, or channel IDs.
const (
	nsMood         = "mood"
	nsEvolution    = "evolution"
	nsRelationship = "relationship"
	nsTopicMemory  = "topicmem"
	nsActivity     = "activity"
	nsSticky       = "sticky"
)

// StateStore is the pluggable durable storage backend. All records are
// JSON strings organized by namespace and key. Implementations must be
// safe for concurrent use; ordering per key is the engine's job (see
// keyLocks).
type StateStore interface {
	Get(namespace, key string) (string, error)
	Set(namespace, key, value string) error
	Delete(namespace, key string) error
	ListKeys(namespace string) ([]string, error)
}

// InMemoryStateStore is a thread-safe in-memory StateStore. Data is lost
// on restart; use store.FileStore or store.RedisStore for durability.
type InMemoryStateStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewInMemoryStateStore creates an empty in-memory store.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{data: make(map[string]map[string]string)}
}

func (s *InMemoryStateStore) Get(namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.data[namespace]; ok {
		return ns[key], nil
	}
	return "", nil
}

func (s *InMemoryStateStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[namespace] == nil {
		s.data[namespace] = make(map[string]string)
	}
	s.data[namespace][key] = value
	return nil
}

func (s *InMemoryStateStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (s *InMemoryStateStore) ListKeys(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.data[namespace]
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	return keys, nil
}

// ──────────────────────────────────────────────
// Per-key serialization
// ──────────────────────────────────────────────

// keyLocks serializes mutations per (namespace, key) so events within the
// same key are processed in arrival order while disjoint keys proceed
// concurrently. Entries are never evicted: the table grows with the number
// of distinct personas, pairs, and channels ever touched, a few dozen
// bytes each.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) lock(namespace, key string) func() {
	k.mu.Lock()
	id := namespace + "\x00" + key
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ──────────────────────────────────────────────
// JSON record helpers
// ──────────────────────────────────────────────

// getRecord unmarshals the record at namespace/key into v. Returns false
// when no record exists. A record that fails to deserialize is treated as
// StateCorruption: the record is deleted so the caller falls back to the
// default state, and the error is returned for logging only.
func getRecord(store StateStore, namespace, key string, v any) (bool, error) {
	raw, err := store.Get(namespace, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		_ = store.Delete(namespace, key)
		return false, &StateCorruption{Namespace: namespace, Key: key, Err: err}
	}
	return true, nil
}

func putRecord(store StateStore, namespace, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(namespace, key, string(data))
}
