package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by a Backend when the key is absent or expired.
	ErrMiss = errors.New("cache: miss")
	// ErrUnavailable is returned when the backing store cannot be reached or is disabled.
	ErrUnavailable = errors.New("cache: backend unavailable")
	// ErrCorrupt is returned when a stored payload cannot be decoded.
	ErrCorrupt = errors.New("cache: corrupt entry")
)

// Backend is the raw key-value store behind the Manager.
// Implementations return ErrMiss for absent keys and wrap transport
// failures so that errors.Is(err, ErrUnavailable) holds.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Keys lists keys matching a glob pattern such as "search:*".
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
	Name() string
}

// NopBackend is a disabled cache. Every read misses and every write fails.
// It lets the Manager run without Redis.
type NopBackend struct{}

// NewNopBackend creates a disabled backend.
func NewNopBackend() *NopBackend {
	return &NopBackend{}
}

func (*NopBackend) Get(context.Context, string) ([]byte, error) {
	return nil, ErrUnavailable
}

func (*NopBackend) Set(context.Context, string, []byte, time.Duration) error {
	return ErrUnavailable
}

func (*NopBackend) Delete(context.Context, ...string) error {
	return ErrUnavailable
}

func (*NopBackend) Exists(context.Context, string) (bool, error) {
	return false, ErrUnavailable
}

func (*NopBackend) Keys(context.Context, string) ([]string, error) {
	return nil, ErrUnavailable
}

func (*NopBackend) Ping(context.Context) error {
	return ErrUnavailable
}

func (*NopBackend) Close() error {
	return nil
}

func (*NopBackend) Name() string {
	return "none"
}
