package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint for SCAN and the DEL batch size.
const scanBatch = 100

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection string. Takes precedence over Addr.
	URL          string
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
	}
}

// RedisBackend stores entries in Redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Redis backend. The connection is lazy; callers
// probe liveness with Ping.
func NewRedisBackend(config *RedisConfig) (*RedisBackend, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	var options *redis.Options
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid redis url")
		}
		options = parsed
	} else {
		options = &redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}
	}
	if config.PoolSize > 0 {
		options.PoolSize = config.PoolSize
	}
	if config.MinIdleConns > 0 {
		options.MinIdleConns = config.MinIdleConns
	}
	if config.DialTimeout > 0 {
		options.DialTimeout = config.DialTimeout
	}
	// Each operation tolerates failure on its own; the client must not retry.
	options.MaxRetries = -1

	return NewRedisBackendFromClient(redis.NewClient(options)), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, unavailable(err)
	}
	return data, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Keys walks the keyspace with SCAN so large databases are never blocked by KEYS.
func (r *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable(err)
	}
	return keys, nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (*RedisBackend) Name() string {
	return "redis"
}

func unavailable(err error) error {
	return errors.Wrap(ErrUnavailable, err.Error())
}
