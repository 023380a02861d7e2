package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/codecraft/internal/compiler"
	"github.com/roach88/codecraft/internal/council"
	"github.com/roach88/codecraft/internal/emergence"
	"github.com/roach88/codecraft/internal/ident"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/logging"
	"github.com/roach88/codecraft/internal/memory"
	"github.com/roach88/codecraft/internal/parser"
	"github.com/roach88/codecraft/internal/ritual"
)

// Handler executes one instruction and returns its result.
type Handler func(ctx context.Context, in ir.Instruction) (ir.Value, error)

// Deliberator is the council collaborator used by summon.council and
// summon.vote.
type Deliberator interface {
	Deliberate(ctx context.Context, topic string) (council.Deliberation, error)
	Vote(ctx context.Context, proposal ir.Value) (map[string]bool, error)
}

// CouncilFactory seats a council for the given member names.
type CouncilFactory func(members []string) Deliberator

// Engine parses and executes ritual programs.
//
// Thread-safety: Execute and Invoke may be called concurrently; each call
// works on its own program and results. Shared state lives in the
// collaborators, which are safe for concurrent use.
//
// INVARIANTS:
//   - handlers is filled once by New and never changes afterwards
//   - KindEnforce and KindGeneric have no handler unless set with WithHandler
type Engine struct {
	handlers [ir.NumKinds]Handler

	parser   *parser.Parser
	memory   *memory.Memory
	detector *emergence.Detector
	councils CouncilFactory
	catalog  *ritual.Catalog

	clock   ident.Clock
	logger  *slog.Logger
	metrics *Metrics
	seq     sequence

	maxInstructions int
	overrides       map[ir.Kind]Handler
}

// Option configures an Engine.
type Option func(*Engine)

// WithMemory sets the memory collaborator used by bind, context and cmp.
func WithMemory(m *memory.Memory) Option {
	return func(e *Engine) {
		e.memory = m
	}
}

// WithDetector sets the emergence detector used by detect.emergence.
func WithDetector(d *emergence.Detector) Option {
	return func(e *Engine) {
		e.detector = d
	}
}

// WithCouncil sets how summon.council seats its council.
func WithCouncil(f CouncilFactory) Option {
	return func(e *Engine) {
		e.councils = f
	}
}

// WithCatalog sets the named ritual catalog used by ExecuteRitual.
func WithCatalog(c *ritual.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) Option {
	return func(e *Engine) {
		e.parser = p
	}
}

// WithClock sets the clock used to time invocations and stamp bindings.
func WithClock(c ident.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger for dispatch events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the collectors the engine records into.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMaxInstructions bounds the instructions one program may contain.
//
// Default: 0 (no limit).
func WithMaxInstructions(n int) Option {
	return func(e *Engine) {
		e.maxInstructions = n
	}
}

// WithHandler binds h to kind, replacing the built-in handler.
// A nil h unbinds the kind.
func WithHandler(kind ir.Kind, h Handler) Option {
	return func(e *Engine) {
		if e.overrides == nil {
			e.overrides = make(map[ir.Kind]Handler)
		}
		e.overrides[kind] = h
	}
}

// New creates an Engine with the built-in handlers bound.
//
// Unset collaborators get defaults: an in-memory Memory, a fresh detector,
// councils built with council.New and the built-in ritual catalog.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:  ident.SystemClock{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.parser == nil {
		e.parser = parser.New(parser.WithLogger(e.logger))
	}
	if e.memory == nil {
		e.memory = memory.New(nil, memory.WithClock(e.clock), memory.WithLogger(e.logger))
	}
	if e.detector == nil {
		e.detector = emergence.New(emergence.WithClock(e.clock), emergence.WithLogger(e.logger))
	}
	if e.councils == nil {
		logger := e.logger
		clock := e.clock
		e.councils = func(members []string) Deliberator {
			return council.New(members, council.WithLogger(logger), council.WithClock(clock))
		}
	}
	if e.catalog == nil {
		e.catalog = compiler.MustBuiltin()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics()
	}

	e.bindHandlers()
	for kind, h := range e.overrides {
		if kind >= 0 && kind < ir.NumKinds {
			e.handlers[kind] = h
		}
	}
	return e
}

// Catalog returns the named ritual catalog.
func (e *Engine) Catalog() *ritual.Catalog { return e.catalog }

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Parse turns ritual text into a program with the engine's parser.
func (e *Engine) Parse(text string) ir.Program {
	return e.parser.Parse(text)
}

// Bound reports whether kind has a handler.
func (e *Engine) Bound(kind ir.Kind) bool {
	return kind >= 0 && kind < ir.NumKinds && e.handlers[kind] != nil
}

// Execute runs program in order and aggregates the handler results.
//
// Instructions whose kind has no handler are skipped with a warning.
// Exactly one result is returned as is; any other count is returned as an
// ir.Array. A handler error stops execution and is returned wrapped in a
// *RuntimeError. Panics propagate to the caller.
func (e *Engine) Execute(ctx context.Context, program ir.Program) (ir.Value, error) {
	q := newQuota(e.maxInstructions)
	results := make(ir.Array, 0, len(program))

	for _, in := range program {
		if err := q.Check(); err != nil {
			return nil, err
		}

		h := e.handlers[in.Kind()]
		if h == nil {
			e.logger.Warn("no handler bound for category",
				"category", in.Category(),
				"command", in.Command())
			e.metrics.dropped.WithLabelValues(in.Category()).Inc()
			continue
		}

		result, err := h(ctx, in)
		if err != nil {
			return nil, &RuntimeError{
				Code:     ErrCodeHandlerFailed,
				Category: in.Category(),
				Command:  in.Command(),
				Err:      err,
			}
		}
		if result == nil {
			result = ir.Null{}
		}
		e.metrics.dispatched.WithLabelValues(in.Category()).Inc()
		results = append(results, result)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}
