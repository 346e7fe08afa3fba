package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	Score float64  `json:"score"`
}

func newRedisManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	backend, err := NewRedisBackend(&RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	m := NewManager(backend, Options{})
	t.Cleanup(func() { _ = m.Close() })
	return m, mr
}

func TestManagerSetGet(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	in := payload{Title: "AWB", Tags: []string{"color"}, Score: 1.5}
	require.True(t, m.Set(ctx, "knowledge:item:1", in, time.Hour))

	var out payload
	require.True(t, m.Get(ctx, "knowledge:item:1", &out))
	assert.Equal(t, in, out)
	assert.Equal(t, time.Hour, mr.TTL("knowledge:item:1"))
	assert.True(t, m.Exists(ctx, "knowledge:item:1"))
}

func TestManagerMissingKey(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	var out payload
	assert.False(t, m.Get(ctx, "knowledge:item:missing", &out))
	assert.False(t, m.Exists(ctx, "knowledge:item:missing"))
	assert.True(t, m.Delete(ctx, "knowledge:item:missing"))
	assert.Equal(t, int64(1), m.Stats(ctx).Misses)
}

func TestManagerExpiry(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	require.True(t, m.Set(ctx, "search:result:abc", payload{Title: "x"}, 5*time.Minute))
	mr.FastForward(5*time.Minute + time.Second)

	var out payload
	assert.False(t, m.Get(ctx, "search:result:abc", &out))
}

func TestManagerCorruptEntryIsMiss(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("flow:module:isp", "{not json"))

	var out payload
	assert.False(t, m.Get(ctx, "flow:module:isp", &out))
	assert.False(t, mr.Exists("flow:module:isp"))

	raw, ok := m.GetRaw(ctx, "flow:module:isp")
	assert.False(t, ok)
	assert.Nil(t, raw)
}

func TestManagerClearByPrefix(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.True(t, m.Set(ctx, fmt.Sprintf("search:result:%03d", i), i, time.Minute))
	}
	require.True(t, m.Set(ctx, "knowledge:categories", []string{"a"}, time.Minute))

	require.True(t, m.ClearByPrefix(ctx, "search:*"))
	assert.Equal(t, []string{"knowledge:categories"}, mr.Keys())

	// Nothing left to match.
	assert.True(t, m.ClearByPrefix(ctx, "search:*"))
}

func TestManagerUnreachable(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()
	mr.Close()

	var out payload
	assert.False(t, m.Get(ctx, "knowledge:categories", &out))
	assert.False(t, m.Set(ctx, "knowledge:categories", payload{}, time.Minute))
	assert.False(t, m.Delete(ctx, "knowledge:categories"))
	assert.False(t, m.Exists(ctx, "knowledge:categories"))
	assert.False(t, m.ClearByPrefix(ctx, "knowledge:*"))
	assert.Error(t, m.Ping(ctx))

	stats := m.Stats(ctx)
	assert.False(t, stats.Available)
	assert.Equal(t, "redis", stats.Backend)
	assert.GreaterOrEqual(t, stats.Errors, int64(5))
}

func TestManagerNopBackend(t *testing.T) {
	m := NewManager(nil, Options{})
	ctx := context.Background()

	var out payload
	assert.False(t, m.Get(ctx, "chat:session:s1", &out))
	assert.False(t, m.Set(ctx, "chat:session:s1", payload{}, time.Minute))
	assert.False(t, m.ClearByPrefix(ctx, "chat:*"))
	assert.Equal(t, "none", m.Stats(ctx).Backend)
	assert.NoError(t, m.Close())
}

func TestManagerIgnoresRequestCancellation(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, m.Set(ctx, "flow:architectures", []int{1}, time.Minute))
	var out []int
	assert.True(t, m.Get(ctx, "flow:architectures", &out))
}

func TestManagerStats(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	require.True(t, m.Set(ctx, "knowledge:item:1", 1, time.Minute))
	require.True(t, m.Set(ctx, "search:result:a", 1, time.Minute))
	var v int
	m.Get(ctx, "knowledge:item:1", &v)
	m.Get(ctx, "knowledge:item:2", &v)

	stats := m.Stats(ctx)
	assert.True(t, stats.Available)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
	assert.Equal(t, 1, stats.Keys[ClassKnowledge])
	assert.Equal(t, 1, stats.Keys[ClassSearch])
	assert.Equal(t, 0, stats.Keys[ClassChat])
}

// stalledBackend answers pings but hangs on scans and deletes until the
// context gives up.
type stalledBackend struct {
	*MemoryBackend
	stallKeys bool
}

func (s *stalledBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	if s.stallKeys {
		<-ctx.Done()
		return nil, unavailable(ctx.Err())
	}
	return s.MemoryBackend.Keys(ctx, pattern)
}

func (s *stalledBackend) Delete(ctx context.Context, _ ...string) error {
	<-ctx.Done()
	return unavailable(ctx.Err())
}

func TestManagerClearByPrefixIsBounded(t *testing.T) {
	for _, stallKeys := range []bool{true, false} {
		t.Run(fmt.Sprintf("stall_scan=%v", stallKeys), func(t *testing.T) {
			mem, err := NewMemoryBackend(0)
			require.NoError(t, err)
			backend := &stalledBackend{MemoryBackend: mem, stallKeys: stallKeys}
			m := NewManager(backend, Options{ClearTimeout: time.Minute})
			ctx := context.Background()
			require.True(t, m.Set(ctx, "knowledge:item:1", 1, time.Minute))

			d := NewDomain(m)
			start := time.Now()
			assert.False(t, d.Invalidate(ctx, ClassKnowledge, ClassSearch))
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}
