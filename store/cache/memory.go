package cache

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// DefaultMemoryItems bounds the in-process backend when no size is configured.
const DefaultMemoryItems = 1000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryBackend is a bounded in-process backend for single-instance
// deployments. Entries expire lazily on access.
type MemoryBackend struct {
	mu     sync.RWMutex
	lru    *lru.Cache[string, memoryEntry]
	closed bool
	now    func() time.Time
}

// NewMemoryBackend creates an LRU backend holding at most size entries.
func NewMemoryBackend(size int) (*MemoryBackend, error) {
	if size <= 0 {
		size = DefaultMemoryItems
	}
	l, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create lru cache")
	}
	return &MemoryBackend{lru: l, now: time.Now}, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if entry.expired(m.now()) {
		m.lru.Remove(key)
		return nil, ErrMiss
	}
	return entry.value, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrUnavailable
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.lru.Add(key, entry)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrUnavailable
	}
	for _, key := range keys {
		m.lru.Remove(key)
	}
	return nil
}

func (m *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrMiss):
		return false, nil
	default:
		return false, err
	}
}

func (m *MemoryBackend) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	now := m.now()
	var keys []string
	for _, key := range m.lru.Keys() {
		entry, ok := m.lru.Peek(key)
		if !ok || entry.expired(now) {
			continue
		}
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.lru.Purge()
	return nil
}

func (*MemoryBackend) Name() string {
	return "memory"
}

// matchPattern implements the subset of Redis glob syntax the key templates use.
func matchPattern(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && !strings.ContainsAny(prefix, "*?[") {
		return strings.HasPrefix(key, prefix)
	}
	matched, err := path.Match(pattern, key)
	return err == nil && matched
}
