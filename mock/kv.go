package mock

import (
	"context"
	"time"

	"github.com/entry-nets/sitehub/kv"
)

var _ kv.Store = (*KVStore)(nil)

// KVStore is a function-field mock of kv.Store, used mainly to inject
// availability failures around a real backing store.
type KVStore struct {
	GetFn  func(ctx context.Context, key string) ([]byte, error)
	SetFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DelFn  func(ctx context.Context, key string) error
	KeysFn func(ctx context.Context, prefix string) ([]string, error)
}

// Get calls GetFn, defaulting to not found.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.GetFn == nil {
		return nil, kv.ErrKeyNotFound
	}
	return s.GetFn(ctx, key)
}

// Set calls SetFn, defaulting to success.
func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.SetFn == nil {
		return nil
	}
	return s.SetFn(ctx, key, value, ttl)
}

// Del calls DelFn, defaulting to success.
func (s *KVStore) Del(ctx context.Context, key string) error {
	if s.DelFn == nil {
		return nil
	}
	return s.DelFn(ctx, key)
}

// Keys calls KeysFn, defaulting to an empty listing.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.KeysFn == nil {
		return nil, nil
	}
	return s.KeysFn(ctx, prefix)
}
