package memory

import (
	"context"
	"sync"

	"github.com/roach88/codecraft/internal/ir"
)

// Record is a stored entry with its key.
type Record struct {
	Key   string
	Entry ir.Object
}

// Backend stores memory entries keyed by string.
//
// Put on an existing key replaces the entry but keeps its original
// insertion position.
type Backend interface {
	Put(ctx context.Context, key string, entry ir.Object) error
	Get(ctx context.Context, key string) (ir.Object, bool, error)
	Records(ctx context.Context) ([]Record, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// MapBackend is an in-memory Backend. Entries do not survive the process.
//
// Thread-safety: MapBackend is safe for concurrent use.
type MapBackend struct {
	mu      sync.RWMutex
	entries map[string]ir.Object
	order   []string
}

// NewMapBackend creates an empty in-memory backend.
func NewMapBackend() *MapBackend {
	return &MapBackend{entries: make(map[string]ir.Object)}
}

// Put stores entry under key.
func (b *MapBackend) Put(_ context.Context, key string, entry ir.Object) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.entries[key]; !exists {
		b.order = append(b.order, key)
	}
	b.entries[key] = entry
	return nil
}

// Get returns the entry stored under key.
func (b *MapBackend) Get(_ context.Context, key string) (ir.Object, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[key]
	return entry, ok, nil
}

// Records returns all entries in insertion order.
func (b *MapBackend) Records(_ context.Context) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Record, len(b.order))
	for i, k := range b.order {
		out[i] = Record{Key: k, Entry: b.entries[k]}
	}
	return out, nil
}

// Len returns the number of stored entries.
func (b *MapBackend) Len(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order), nil
}

// Close is a no-op.
func (b *MapBackend) Close() error {
	return nil
}
