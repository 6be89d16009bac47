package ristretto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	be, err := New(Config{NumCounters: 1000, MaxCost: 100, BufferItems: 64, SyncWrites: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = be.Close(context.Background()) })
	return be
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t)

	_, ok, err := be.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, be.Set(ctx, "k", []byte("v"), 0))
	got, ok, err := be.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, be.Del(ctx, "k"))
	_, ok, _ = be.Get(ctx, "k")
	require.False(t, ok)
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

func TestForeignValueSelfHeals(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t)

	be.c.Set("foreign", 42, 1)
	be.c.Wait()

	_, ok, err := be.Get(ctx, "foreign")
	require.NoError(t, err)
	require.False(t, ok)
	_, still := be.c.Get("foreign")
	require.False(t, still)
}
