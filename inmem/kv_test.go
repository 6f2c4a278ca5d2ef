package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/entry-nets/sitehub/kv"
)

func TestKVStore_TTL(t *testing.T) {
	mock := clock.NewMock()
	s := NewKVStore()
	s.WithClock(mock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "csrf:tok", []byte("c"), time.Hour))

	mock.Add(time.Hour - time.Second)
	_, err := s.Get(ctx, "csrf:tok")
	require.NoError(t, err)

	mock.Add(2 * time.Second)
	_, err = s.Get(ctx, "csrf:tok")
	require.Equal(t, kv.ErrKeyNotFound, err)
}

func TestKVStore_KeysSorted(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "site:beta:client", []byte("b"), 0))
	require.NoError(t, s.Set(ctx, "site:acme:client", []byte("a"), 0))
	require.NoError(t, s.Set(ctx, "session:x", []byte("s"), 0))

	keys, err := s.Keys(ctx, "site:")
	require.NoError(t, err)
	require.Equal(t, []string{"site:acme:client", "site:beta:client"}, keys)
}
