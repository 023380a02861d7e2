package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/codecraft/internal/ident"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/logging"
)

// Entry types stored in the "type" field of every entry.
const (
	TypeEvent          = "EVENT"
	TypeShelvedContext = "SHELVED_CONTEXT"
)

// Report statuses.
const (
	StatusShelved       = "SHELVED"
	StatusSuccess       = "SUCCESS"
	StatusEternalMemory = "ETERNAL_MEMORY_CREATED"
	BindingUnbreakable  = "UNBREAKABLE"
)

// DefaultQueryLimit bounds Query when no positive limit is given.
const DefaultQueryLimit = 10

// Memory is the memory/log collaborator.
//
// Thread-safety: Memory is as safe for concurrent use as its Backend;
// all provided backends are.
type Memory struct {
	backend Backend
	clock   ident.Clock
	ids     ident.Generator
	logger  *slog.Logger
}

// Option configures a Memory.
type Option func(*Memory)

// WithClock sets the clock used for timestamps and ids.
func WithClock(c ident.Clock) Option {
	return func(m *Memory) {
		m.clock = c
	}
}

// WithIDGenerator sets the generator for entry key suffixes.
func WithIDGenerator(g ident.Generator) Option {
	return func(m *Memory) {
		m.ids = g
	}
}

// WithLogger sets the logger for memory events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Memory) {
		m.logger = l
	}
}

// New creates a Memory over backend. A nil backend uses a fresh MapBackend.
func New(backend Backend, opts ...Option) *Memory {
	if backend == nil {
		backend = NewMapBackend()
	}
	m := &Memory{
		backend: backend,
		clock:   ident.SystemClock{},
		ids:     ident.UUIDGenerator{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close releases the backend.
func (m *Memory) Close() error {
	return m.backend.Close()
}

// Shelved reports a shelved context.
type Shelved struct {
	ContextID string `json:"context_id"`
	Status    string `json:"status"`
}

// ToValue renders the report.
func (s Shelved) ToValue() ir.Object {
	return ir.NewObject(
		ir.O("context_id", ir.String(s.ContextID)),
		ir.O("status", ir.String(s.Status)),
	)
}

// ArchiveReport reports an archive pass.
type ArchiveReport struct {
	Archived  int    `json:"archived_count"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ToValue renders the report.
func (r ArchiveReport) ToValue() ir.Object {
	return ir.NewObject(
		ir.O("archived_count", ir.Int(r.Archived)),
		ir.O("status", ir.String(r.Status)),
		ir.O("timestamp", ir.String(r.Timestamp)),
	)
}

// EternalReport reports a remember-forever pass.
type EternalReport struct {
	Status   string `json:"status"`
	Memories int    `json:"memory_count"`
	Binding  string `json:"binding"`
}

// ToValue renders the report.
func (r EternalReport) ToValue() ir.Object {
	return ir.NewObject(
		ir.O("status", ir.String(r.Status)),
		ir.O("memory_count", ir.Int(r.Memories)),
		ir.O("binding", ir.String(r.Binding)),
	)
}

// LogEvent records an event with optional metadata (nil or Null for none).
// Returns true once the entry is stored.
func (m *Memory) LogEvent(ctx context.Context, event string, metadata ir.Value) (bool, error) {
	now := m.clock.Now()
	entry := ir.NewObject(
		ir.O("type", ir.String(TypeEvent)),
		ir.O("event", ir.String(event)),
		ir.O("timestamp", ir.String(ident.Timestamp(now))),
	)
	if metadata != nil {
		if _, isNull := metadata.(ir.Null); !isNull {
			entry["metadata"] = metadata
		}
	}

	key := m.newKey("evt", now.UnixMilli())
	if err := m.backend.Put(ctx, key, entry); err != nil {
		return false, fmt.Errorf("log event: %w", err)
	}

	m.logger.Info("memory event logged", "key", key, "event", event)
	return true, nil
}

// ShelveContext stores an arbitrary context value and returns its id.
func (m *Memory) ShelveContext(ctx context.Context, value ir.Value) (Shelved, error) {
	if value == nil {
		value = ir.Null{}
	}
	now := m.clock.Now()
	id := m.newKey("ctx", now.UnixMilli())
	entry := ir.NewObject(
		ir.O("type", ir.String(TypeShelvedContext)),
		ir.O("context", value),
		ir.O("timestamp", ir.String(ident.Timestamp(now))),
	)
	if err := m.backend.Put(ctx, id, entry); err != nil {
		return Shelved{}, fmt.Errorf("shelve context: %w", err)
	}

	m.logger.Info("context shelved", "context_id", id)
	return Shelved{ContextID: id, Status: StatusShelved}, nil
}

// RetrieveContext returns the entry stored under id.
// Any key may be retrieved, including logged events.
func (m *Memory) RetrieveContext(ctx context.Context, id string) (ir.Object, bool, error) {
	entry, ok, err := m.backend.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("retrieve context %s: %w", id, err)
	}
	m.logger.Debug("context lookup", "context_id", id, "found", ok)
	return entry, ok, nil
}

// Archive reports the number of stored entries.
func (m *Memory) Archive(ctx context.Context) (ArchiveReport, error) {
	n, err := m.backend.Len(ctx)
	if err != nil {
		return ArchiveReport{}, fmt.Errorf("archive: %w", err)
	}
	m.logger.Info("archiving memory fragments", "count", n)
	return ArchiveReport{
		Archived:  n,
		Status:    StatusSuccess,
		Timestamp: ident.Timestamp(m.clock.Now()),
	}, nil
}

// RememberForever reports every stored entry as eternal.
func (m *Memory) RememberForever(ctx context.Context) (EternalReport, error) {
	n, err := m.backend.Len(ctx)
	if err != nil {
		return EternalReport{}, fmt.Errorf("remember forever: %w", err)
	}
	m.logger.Info("eternal memory bond created", "count", n)
	return EternalReport{
		Status:   StatusEternalMemory,
		Memories: n,
		Binding:  BindingUnbreakable,
	}, nil
}

// Query returns up to limit entries whose JSON rendering contains query,
// compared case-insensitively and after NFC normalization. Each result carries its key under "key".
// A non-positive limit means DefaultQueryLimit.
func (m *Memory) Query(ctx context.Context, query string, limit int) ([]ir.Object, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	records, err := m.backend.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	needle := strings.ToLower(ir.Normalize(query))
	results := []ir.Object{}
	for _, rec := range records {
		if len(results) >= limit {
			break
		}
		text, err := ir.MarshalCanonical(rec.Entry)
		if err != nil {
			return nil, fmt.Errorf("query: render %s: %w", rec.Key, err)
		}
		if !strings.Contains(strings.ToLower(string(text)), needle) {
			continue
		}
		hit := make(ir.Object, len(rec.Entry)+1)
		for k, v := range rec.Entry {
			hit[k] = v
		}
		hit["key"] = ir.String(rec.Key)
		results = append(results, hit)
	}

	m.logger.Debug("memory query", "query", query, "matches", len(results))
	return results, nil
}

// newKey builds "<prefix>_<unixmilli>_<suffix>" with a 9 character suffix.
func (m *Memory) newKey(prefix string, millis int64) string {
	return fmt.Sprintf("%s_%d_%s", prefix, millis, ident.Short(m.ids, 9))
}
