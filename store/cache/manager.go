package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultOpTimeout bounds a single cache operation.
	DefaultOpTimeout = 250 * time.Millisecond
	// DefaultClearTimeout bounds a full prefix scan and delete. Writes clear
	// two classes in-request, so two clears stay under a second.
	DefaultClearTimeout = 400 * time.Millisecond
	// MaxClearTimeout caps Options.ClearTimeout.
	MaxClearTimeout = 900 * time.Millisecond

	startupProbeTimeout = 2 * time.Second
)

// Options configures a Manager.
type Options struct {
	OpTimeout    time.Duration
	ClearTimeout time.Duration
	// Registerer receives the operation counters. Nil disables export.
	Registerer prometheus.Registerer
}

// Stats is a point-in-time view of the cache used by the admin API.
type Stats struct {
	Backend   string        `json:"backend"`
	Available bool          `json:"available"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Errors    int64         `json:"errors"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Keys      map[Class]int `json:"keys,omitempty"`
	HitRate   float64       `json:"hit_rate"`
}

// Manager is the failure-tolerant facade over a Backend. No method returns
// a cache error: an unreachable, disabled or slow backend reads as absent
// and writes report false.
type Manager struct {
	backend      Backend
	opTimeout    time.Duration
	clearTimeout time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	errs    atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64

	ops *prometheus.CounterVec
}

// NewManager wraps backend and probes it once. A failed probe is logged and
// the manager is still returned; every operation degrades on its own.
func NewManager(backend Backend, opts Options) *Manager {
	if backend == nil {
		backend = NewNopBackend()
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.ClearTimeout <= 0 || opts.ClearTimeout > MaxClearTimeout {
		opts.ClearTimeout = DefaultClearTimeout
	}
	m := &Manager{
		backend:      backend,
		opTimeout:    opts.OpTimeout,
		clearTimeout: opts.ClearTimeout,
	}
	if opts.Registerer != nil {
		m.ops = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ispkb",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by operation and result.",
		}, []string{"op", "result"})
		if err := opts.Registerer.Register(m.ops); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				m.ops = already.ExistingCollector.(*prometheus.CounterVec)
			} else {
				slog.Warn("failed to register cache metrics", "error", err)
				m.ops = nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupProbeTimeout)
	defer cancel()
	if err := backend.Ping(ctx); err != nil {
		slog.Warn("cache backend unavailable, continuing without cache",
			slog.String("backend", backend.Name()),
			slog.String("error", err.Error()))
	} else {
		slog.Info("cache backend connected", slog.String("backend", backend.Name()))
	}
	return m
}

// Backend exposes the underlying store.
func (m *Manager) Backend() Backend {
	return m.backend
}

// GetRaw returns the stored payload for key.
func (m *Manager) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := m.opContext(ctx, m.opTimeout)
	defer cancel()

	data, err := m.backend.Get(ctx, key)
	switch {
	case err == nil:
		m.hits.Add(1)
		m.observe("get", "hit")
		return data, true
	case errors.Is(err, ErrMiss):
		m.misses.Add(1)
		m.observe("get", "miss")
	default:
		m.fail("get", key, err)
	}
	return nil, false
}

// Get decodes the entry under key into dest. A payload that does not decode
// is treated as absent and removed.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	data, ok := m.GetRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		m.fail("decode", key, errors.Wrap(ErrCorrupt, err.Error()))
		m.Delete(ctx, key)
		return false
	}
	return true
}

// Set stores value under key for ttl. ttl <= 0 stores without expiry.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		m.fail("encode", key, err)
		return false
	}

	ctx, cancel := m.opContext(ctx, m.opTimeout)
	defer cancel()
	if err := m.backend.Set(ctx, key, data, ttl); err != nil {
		m.fail("set", key, err)
		return false
	}
	m.sets.Add(1)
	m.observe("set", "ok")
	return true
}

// Delete removes key. Deleting an absent key succeeds.
func (m *Manager) Delete(ctx context.Context, key string) bool {
	ctx, cancel := m.opContext(ctx, m.opTimeout)
	defer cancel()
	if err := m.backend.Delete(ctx, key); err != nil {
		m.fail("delete", key, err)
		return false
	}
	m.deletes.Add(1)
	m.observe("delete", "ok")
	return true
}

// Exists reports whether key is present. Unreachable reads as false.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	ctx, cancel := m.opContext(ctx, m.opTimeout)
	defer cancel()
	ok, err := m.backend.Exists(ctx, key)
	if err != nil {
		m.fail("exists", key, err)
		return false
	}
	return ok
}

// ClearByPrefix deletes every key matching pattern. No matches is success.
// The scan and deletes share the clear timeout and each delete batch is also
// bounded by the op timeout.
func (m *Manager) ClearByPrefix(ctx context.Context, pattern string) bool {
	ctx, cancel := m.opContext(ctx, m.clearTimeout)
	defer cancel()

	keys, err := m.backend.Keys(ctx, pattern)
	if err != nil {
		m.fail("clear", pattern, err)
		return false
	}
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		stepCtx, stepCancel := context.WithTimeout(ctx, m.opTimeout)
		err := m.backend.Delete(stepCtx, keys[start:end]...)
		stepCancel()
		if err != nil {
			m.fail("clear", pattern, err)
			return false
		}
	}
	m.deletes.Add(int64(len(keys)))
	m.observe("clear", "ok")
	slog.Debug("cache cleared", slog.String("pattern", pattern), slog.Int("keys", len(keys)))
	return true
}

// Ping probes the backend.
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := m.opContext(ctx, m.opTimeout)
	defer cancel()
	return m.backend.Ping(ctx)
}

// Stats reports counters and, when the backend answers, key counts per class.
func (m *Manager) Stats(ctx context.Context) Stats {
	hits, misses := m.hits.Load(), m.misses.Load()
	stats := Stats{
		Backend: m.backend.Name(),
		Hits:    hits,
		Misses:  misses,
		Errors:  m.errs.Load(),
		Sets:    m.sets.Load(),
		Deletes: m.deletes.Load(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	if err := m.Ping(ctx); err != nil {
		return stats
	}
	stats.Available = true
	stats.Keys = make(map[Class]int, len(Classes))
	for _, class := range Classes {
		scanCtx, cancel := m.opContext(ctx, m.clearTimeout)
		keys, err := m.backend.Keys(scanCtx, class.Pattern())
		cancel()
		if err != nil {
			continue
		}
		stats.Keys[class] = len(keys)
	}
	return stats
}

// Close releases the backend connection.
func (m *Manager) Close() error {
	return m.backend.Close()
}

// opContext detaches from the request's cancellation so a cache call is
// bounded only by its own timeout.
func (*Manager) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (m *Manager) fail(op, key string, err error) {
	m.errs.Add(1)
	m.observe(op, "error")
	if errors.Is(err, ErrUnavailable) && m.backend.Name() == "none" {
		return
	}
	slog.Warn("cache operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()))
}

func (m *Manager) observe(op, result string) {
	if m.ops != nil {
		m.ops.WithLabelValues(op, result).Inc()
	}
}
