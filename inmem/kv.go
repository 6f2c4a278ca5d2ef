package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/entry-nets/sitehub/kv"
)

type entry struct {
	value    []byte
	deadline time.Time
}

// KVStore is an in memory kv.Store used by tests and the examples.
type KVStore struct {
	mu    sync.RWMutex
	data  map[string]entry
	clock clock.Clock
}

// NewKVStore creates an instance of a KVStore.
func NewKVStore() *KVStore {
	return &KVStore{
		data:  map[string]entry{},
		clock: clock.New(),
	}
}

// WithClock sets the clock used for expiry decisions.
func (s *KVStore) WithClock(c clock.Clock) {
	s.clock = c
}

func (s *KVStore) live(e entry) bool {
	return e.deadline.IsZero() || s.clock.Now().Before(e.deadline)
}

// Get returns the live value for key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || !s.live(e) {
		return nil, kv.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set writes value under key with its expiry in one step.
func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.deadline = s.clock.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Del removes key. Absent keys are not an error.
func (s *KVStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns all live keys beginning with prefix, sorted for stable tests.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, e := range s.data {
		if strings.HasPrefix(k, prefix) && s.live(e) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
