package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	be, err := New(Config{LifeWindow: time.Minute, Shards: 16, MaxEntriesInWindow: 100, MaxEntrySize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = be.Close(context.Background()) })
	return be
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t)

	_, ok, err := be.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, be.Set(ctx, "k", []byte("v"), time.Second))
	got, ok, err := be.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, be.Del(ctx, "k"))
	_, ok, _ = be.Get(ctx, "k")
	require.False(t, ok)

	require.NoError(t, be.Del(ctx, "k"), "deleting a missing key is not an error")
}

func TestFlushAll(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t)

	require.NoError(t, be.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, be.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, be.FlushAll(ctx))

	_, ok, _ := be.Get(ctx, "a")
	require.False(t, ok)
	_, ok, _ = be.Get(ctx, "b")
	require.False(t, ok)
}
