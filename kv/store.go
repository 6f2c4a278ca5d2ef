package kv

import (
	"context"
	"time"

	"github.com/entry-nets/sitehub"
)

// ErrKeyNotFound is returned when a key is absent or its entry has expired.
var ErrKeyNotFound = &sitehub.Error{
	Code: sitehub.ENotFound,
	Msg:  "key not found",
}

// ErrUnavailable wraps an infrastructure failure of the backing store. The
// wrapped error keeps the store's own failure reachable for logs.
func ErrUnavailable(err error) *sitehub.Error {
	return &sitehub.Error{
		Code: sitehub.EUnavailable,
		Msg:  "key value store unavailable",
		Err:  err,
	}
}

// IsNotFound reports whether err is the store's not-found condition, as
// opposed to an availability failure. Callers on security-sensitive paths
// must distinguish the two.
func IsNotFound(err error) bool {
	return sitehub.ErrorCode(err) == sitehub.ENotFound
}

// Store is a flat namespace of string keys to raw values with per-key TTL.
// Implementations must record the expiry atomically with the value write so
// a key can never exist without its intended expiry.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
	// Keys returns all live keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
