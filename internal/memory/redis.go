package memory

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/roach88/codecraft/internal/ir"
)

// DefaultRedisPrefix namespaces all keys written by RedisBackend.
const DefaultRedisPrefix = "codecraft:memory:"

// RedisBackend stores entries in Redis.
//
// Layout under the prefix:
//   - entry:<key>  JSON entry
//   - index        sorted set of keys scored by insertion sequence
//   - seq          insertion counter
type RedisBackend struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		b.prefix = prefix
	}
}

// NewRedis connects a backend to the Redis server at address.
func NewRedis(address, password string, db int, opts ...RedisOption) *RedisBackend {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient creates a backend from an existing client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBackend) entryKey(key string) string {
	return b.prefix + "entry:" + key
}

func (b *RedisBackend) indexKey() string {
	return b.prefix + "index"
}

func (b *RedisBackend) seqKey() string {
	return b.prefix + "seq"
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Put stores entry under key. The index keeps the first insertion position.
func (b *RedisBackend) Put(ctx context.Context, key string, entry ir.Object) error {
	data, err := ir.MarshalValue(entry)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	seq, err := b.client.Incr(ctx, b.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("put %s: next seq: %w", key, err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.entryKey(key), data, 0)
	pipe.ZAddNX(ctx, b.indexKey(), backend.Z{
		Score:  float64(seq),
		Member: key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the entry stored under key.
func (b *RedisBackend) Get(ctx context.Context, key string) (ir.Object, bool, error) {
	data, err := b.client.Get(ctx, b.entryKey(key)).Result()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return entry, true, nil
}

// Records returns all entries in insertion order.
func (b *RedisBackend) Records(ctx context.Context) ([]Record, error) {
	keys, err := b.client.ZRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	entryKeys := make([]string, len(keys))
	for i, k := range keys {
		entryKeys[i] = b.entryKey(k)
	}
	values, err := b.client.MGet(ctx, entryKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	out := make([]Record, 0, len(keys))
	for i, raw := range values {
		data, ok := raw.(string)
		if !ok {
			// Entry expired or was removed behind our back
			continue
		}
		entry, err := decodeEntry(data)
		if err != nil {
			return nil, fmt.Errorf("records: %s: %w", keys[i], err)
		}
		out = append(out, Record{Key: keys[i], Entry: entry})
	}
	return out, nil
}

// Len returns the number of indexed entries.
func (b *RedisBackend) Len(ctx context.Context) (int, error) {
	n, err := b.client.ZCard(ctx, b.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("len: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
