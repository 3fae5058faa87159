// Package store provides durable StateStore backends for the behavior
// engine: a debounced JSON file store, a Redis store, and a Badger store.
// All of them satisfy the troupe.StateStore interface.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore is an in-memory state map persisted to a single JSON file.
// Writes are debounced: the file is flushed every FlushInterval or after
// FlushAfterMutations mutations, whichever comes first, always via a
// temp-file-and-rename so a kill mid-write never leaves a torn file.
type FileStore struct {
	path string

	mu        sync.RWMutex
	data      map[string]map[string]string
	mutations int
	dirty     bool

	flushInterval      time.Duration
	flushAfterMutation int

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// FileStoreConfig tunes the debounce behavior.
type FileStoreConfig struct {
	FlushInterval      time.Duration // default 5s
	FlushAfterMutation int           // default 64
}

// OpenFileStore loads (or creates) the store file and starts the
// background flush loop. Call Close to flush and stop.
func OpenFileStore(path string, config ...FileStoreConfig) (*FileStore, error) {
	cfg := FileStoreConfig{FlushInterval: 5 * time.Second, FlushAfterMutation: 64}
	if len(config) > 0 {
		if config[0].FlushInterval > 0 {
			cfg.FlushInterval = config[0].FlushInterval
		}
		if config[0].FlushAfterMutation > 0 {
			cfg.FlushAfterMutation = config[0].FlushAfterMutation
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &FileStore{
		path:               path,
		data:               make(map[string]map[string]string),
		flushInterval:      cfg.FlushInterval,
		flushAfterMutation: cfg.FlushAfterMutation,
		stopCh:             make(chan struct{}),
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			// A torn or corrupt file must not take the process down;
			// rename it aside and start fresh.
			_ = os.Rename(path, path+".corrupt")
			s.data = make(map[string]map[string]string)
		}
	case os.IsNotExist(err):
		// first run
	default:
		return nil, fmt.Errorf("read state file: %w", err)
	}

	s.wg.Add(1)
	go s.flushLoop()
	return s, nil
}

func (s *FileStore) Get(namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.data[namespace]; ok {
		return ns[key], nil
	}
	return "", nil
}

func (s *FileStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	if s.data[namespace] == nil {
		s.data[namespace] = make(map[string]string)
	}
	s.data[namespace][key] = value
	s.dirty = true
	s.mutations++
	flushNow := s.mutations >= s.flushAfterMutation
	s.mu.Unlock()

	if flushNow {
		return s.Flush()
	}
	return nil
}

func (s *FileStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
		s.dirty = true
		s.mutations++
	}
	return nil
}

func (s *FileStore) ListKeys(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.data[namespace]
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	return keys, nil
}

// Flush writes the current state to disk atomically when dirty.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.dirty = false
	s.mutations = 0
	s.mu.Unlock()
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Close flushes pending state and stops the background loop.
func (s *FileStore) Close() error {
	s.stopped.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return s.Flush()
}

func (s *FileStore) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			_ = s.Flush()
		}
	}
}
