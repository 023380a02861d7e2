// Package ident provides the identity and time sources used by the
// collaborators: session and context ID generators and a wall clock.
//
// Production code uses UUIDGenerator and SystemClock. Tests inject
// FixedGenerator and a testutil clock for deterministic output.
package ident

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout renders timestamps in UTC with millisecond precision,
// e.g. "2026-10-18T09:30:00.000Z".
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// UUIDGenerator generates random UUIDv4 identifiers.
//
// Every prefix of the id is random, so Short keys written in the same
// millisecond stay distinct.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate creates a new UUIDv4 and returns it as a hyphenated string.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Short returns the first n characters of the next id with hyphens removed.
// Council session ids use Short(gen, 8).
func Short(g Generator, n int) string {
	id := strings.ReplaceAll(g.Generate(), "-", "")
	if len(id) > n {
		id = id[:n]
	}
	return id
}

// Clock reports the current wall time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Timestamp formats t with TimestampLayout in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
