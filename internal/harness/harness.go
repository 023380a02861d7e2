package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/roach88/codecraft/internal/compiler"
	"github.com/roach88/codecraft/internal/council"
	"github.com/roach88/codecraft/internal/emergence"
	"github.com/roach88/codecraft/internal/engine"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/logging"
	"github.com/roach88/codecraft/internal/memory"
	"github.com/roach88/codecraft/internal/ritual"
	"github.com/roach88/codecraft/internal/testutil"
)

// Phases recorded in trace events.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// Harness executes scenario steps against a fully deterministic engine.
type Harness struct {
	engine *engine.Engine
	memory *memory.Memory
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes engine and collaborator logs to l. Runs are silent
// by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// New builds a harness for scenario.
//
// Every run gets a fresh map-backed memory, step clocks starting at
// testutil.Epoch, sequence id generators and a council source seeded from
// the scenario, so two runs of the same scenario produce identical traces.
func New(scenario *Scenario, opts ...Option) (*Harness, error) {
	cfg := runConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	catalog, err := loadCatalog(scenario.Rituals)
	if err != nil {
		return nil, err
	}

	seed := scenario.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	sessions := testutil.NewSequenceGenerator("session")
	councilClock := testutil.NewStepClock()

	mem := memory.New(memory.NewMapBackend(),
		memory.WithClock(testutil.NewStepClock()),
		memory.WithIDGenerator(testutil.NewSequenceGenerator("id")),
		memory.WithLogger(cfg.logger),
	)

	clock := testutil.NewStepClock()
	eng := engine.New(
		engine.WithMemory(mem),
		engine.WithCatalog(catalog),
		engine.WithClock(clock),
		engine.WithLogger(cfg.logger),
		engine.WithDetector(emergence.New(emergence.WithClock(clock), emergence.WithLogger(cfg.logger))),
		engine.WithCouncil(func(members []string) engine.Deliberator {
			return council.New(members,
				council.WithRand(rng),
				council.WithIDGenerator(sessions),
				council.WithClock(councilClock),
				council.WithLogger(cfg.logger),
			)
		}),
	)

	return &Harness{engine: eng, memory: mem, logger: cfg.logger}, nil
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build a fresh deterministic engine
// 2. Execute setup steps; an error outcome aborts the run
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and final memory
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h, err := New(scenario, opts...)
	if err != nil {
		return nil, err
	}
	defer h.memory.Close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		ev, err := h.Step(ctx, PhaseSetup, i, step)
		if err != nil {
			return nil, fmt.Errorf("failed to execute setup: %w", err)
		}
		result.AddTrace(ev)
		if ev.Status != string(engine.StatusSuccess) {
			return nil, fmt.Errorf("failed to execute setup: step %d (%s): %s", i, ev.Source, describe(ev.Output))
		}
	}

	for i, step := range scenario.Flow {
		ev, err := h.Step(ctx, PhaseFlow, i, step)
		if err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
		result.AddTrace(ev)
		for _, msg := range checkExpect(i, ev, step.Expect) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{Memory: h.memory, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// Step executes one step and records it as a trace event.
//
// The instruction list is taken from the same text the engine executes:
// the raw text for invoke steps, the rendered template for ritual steps.
// Unknown ritual names and render failures are returned as errors.
func (h *Harness) Step(ctx context.Context, phase string, index int, step Step) (TraceEvent, error) {
	ev := TraceEvent{Step: index, Phase: phase, Source: step.source()}

	text := step.Invoke
	if step.Ritual != "" {
		params, err := toParams(step.Params)
		if err != nil {
			return ev, fmt.Errorf("step %d (%s): %w", index, ev.Source, err)
		}
		tmpl, err := h.engine.Catalog().Lookup(step.Ritual)
		if err != nil {
			return ev, fmt.Errorf("step %d: %w", index, err)
		}
		if text, err = ritual.Render(tmpl.Text, params); err != nil {
			return ev, fmt.Errorf("step %d (%s): %w", index, ev.Source, err)
		}
	}

	ev.Instructions = instructionNames(h.engine.Parse(text))

	outcome := h.engine.Invoke(ctx, text)
	ev.Status = string(outcome.Status)
	ev.Output = outcome.Output

	h.logger.Debug("scenario step",
		"phase", phase,
		"step", index,
		"source", ev.Source,
		"status", ev.Status)
	return ev, nil
}

// Memory returns the harness memory for inspection after a run.
func (h *Harness) Memory() *memory.Memory { return h.memory }

func loadCatalog(dir string) (*ritual.Catalog, error) {
	templates := compiler.MustBuiltin().Templates()
	if dir != "" {
		loaded, err := compiler.LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("load rituals: %w", err)
		}
		templates = append(templates, loaded.Templates...)
	}

	catalog, verrs := compiler.Catalog(templates)
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("invalid rituals: %w", errors.Join(errs...))
	}
	return catalog, nil
}

func toParams(raw map[string]any) (ir.Object, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return v.(ir.Object), nil
}

func instructionNames(program ir.Program) []string {
	names := make([]string, len(program))
	for i, in := range program {
		names[i] = in.Category() + "." + in.Command()
	}
	return names
}

// checkExpect compares an event against its expect clause.
func checkExpect(index int, ev TraceEvent, expect *ExpectClause) []string {
	if expect == nil {
		return nil
	}

	var errs []string
	if ev.Status != expect.Status {
		errs = append(errs, fmt.Sprintf("flow[%d] (%s): expected status %q, got %q: %s",
			index, ev.Source, expect.Status, ev.Status, describe(ev.Output)))
		return errs
	}

	if expect.Error != "" {
		msg, _ := ev.Output.(ir.String)
		if !strings.Contains(string(msg), expect.Error) {
			errs = append(errs, fmt.Sprintf("flow[%d] (%s): error %q does not contain %q",
				index, ev.Source, string(msg), expect.Error))
		}
	}

	if expect.Output != nil {
		want, err := ir.FromGo(expect.Output)
		if err != nil {
			errs = append(errs, fmt.Sprintf("flow[%d] (%s): expect.output: %v", index, ev.Source, err))
			return errs
		}
		if path, ok := subset(want, ev.Output, "output"); !ok {
			errs = append(errs, fmt.Sprintf("flow[%d] (%s): %s: expected %s, got %s",
				index, ev.Source, path, describe(lookup(want, path)), describe(lookup(ev.Output, path))))
		}
	}
	return errs
}

// subset reports whether got matches want. Objects match when every key
// in want matches; arrays must have equal length and match element-wise;
// scalars must be equal. On mismatch it returns the dotted path.
func subset(want, got ir.Value, path string) (string, bool) {
	switch w := want.(type) {
	case ir.Object:
		g, ok := got.(ir.Object)
		if !ok {
			return path, false
		}
		for _, k := range w.SortedKeys() {
			if p, ok := subset(w[k], g[k], path+"."+k); !ok {
				return p, false
			}
		}
		return "", true
	case ir.Array:
		g, ok := got.(ir.Array)
		if !ok || len(g) != len(w) {
			return path, false
		}
		for i := range w {
			if p, ok := subset(w[i], g[i], fmt.Sprintf("%s[%d]", path, i)); !ok {
				return p, false
			}
		}
		return "", true
	default:
		if got == nil {
			got = ir.Null{}
		}
		return path, want == got
	}
}

// lookup follows a path produced by subset. Missing elements yield nil.
func lookup(v ir.Value, path string) ir.Value {
	rest := strings.TrimPrefix(path, "output")
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			obj, ok := v.(ir.Object)
			if !ok {
				return nil
			}
			v = obj[rest[:end]]
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			i, err := strconv.Atoi(rest[1:end])
			arr, ok := v.(ir.Array)
			if err != nil || !ok || i >= len(arr) {
				return nil
			}
			v = arr[i]
			rest = rest[end+1:]
		default:
			return v
		}
	}
	return v
}

func describe(v ir.Value) string {
	if v == nil {
		return "<missing>"
	}
	b, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
