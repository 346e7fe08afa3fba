package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendExpiry(t *testing.T) {
	b, err := NewMemoryBackend(10)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err := b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackendEviction(t *testing.T) {
	b, err := NewMemoryBackend(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, b.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, b.Set(ctx, "c", []byte("3"), 0))

	_, err = b.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryBackendKeys(t *testing.T) {
	b, err := NewMemoryBackend(0)
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []string{"search:result:1", "search:suggestions:2", "flow:module:x"} {
		require.NoError(t, b.Set(ctx, k, []byte("{}"), time.Minute))
	}

	keys, err := b.Keys(ctx, "search:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"search:result:1", "search:suggestions:2"}, keys)

	keys, err = b.Keys(ctx, "flow:module:?")
	require.NoError(t, err)
	assert.Equal(t, []string{"flow:module:x"}, keys)
}

func TestMemoryBackendClosed(t *testing.T) {
	b, err := NewMemoryBackend(0)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	ctx := context.Background()
	assert.ErrorIs(t, b.Set(ctx, "k", nil, 0), ErrUnavailable)
	assert.ErrorIs(t, b.Ping(ctx), ErrUnavailable)
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("knowledge:*", "knowledge:item:1"))
	assert.False(t, matchPattern("knowledge:*", "flow:module:1"))
	assert.True(t, matchPattern("chat:session:?", "chat:session:a"))
	assert.False(t, matchPattern("[", "["))
}
