package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/codecraft/internal/council"
	"github.com/roach88/codecraft/internal/ident"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/memory"
	"github.com/roach88/codecraft/internal/testutil"
)

var errBoom = errors.New("boom")

func testCouncils(members []string) Deliberator {
	return council.New(members,
		council.WithRand(rand.New(rand.NewPCG(1, 1))),
		council.WithIDGenerator(ident.NewFixedGenerator("sess-0001-aaaa")),
		council.WithClock(testutil.NewStepClock()),
	)
}

// newTestEngine builds an engine with deterministic collaborators.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Memory) {
	t.Helper()
	mem := memory.New(memory.NewMapBackend(),
		memory.WithClock(testutil.NewStepClock()),
		memory.WithIDGenerator(testutil.NewSequenceGenerator("id")),
	)
	t.Cleanup(func() { mem.Close() })

	base := []Option{
		WithMemory(mem),
		WithCouncil(testCouncils),
		WithClock(testutil.NewStepClock()),
	}
	return New(append(base, opts...)...), mem
}

func program(t *testing.T, e *Engine, text string) ir.Program {
	t.Helper()
	return e.Parse(text)
}

func TestEngine_HandlerTable(t *testing.T) {
	e, _ := newTestEngine(t)

	for _, k := range []ir.Kind{
		ir.KindSummon, ir.KindManifest, ir.KindBind, ir.KindContext,
		ir.KindDetect, ir.KindCMP, ir.KindPause, ir.KindRedirect,
	} {
		assert.True(t, e.Bound(k), "kind %s", k)
	}
	assert.False(t, e.Bound(ir.KindEnforce))
	assert.False(t, e.Bound(ir.KindGeneric))
	assert.False(t, e.Bound(ir.NumKinds))
}

func TestEngine_WithHandlerOverridesAndUnbinds(t *testing.T) {
	e, _ := newTestEngine(t,
		WithHandler(ir.KindEnforce, func(context.Context, ir.Instruction) (ir.Value, error) {
			return ir.String("enforced"), nil
		}),
		WithHandler(ir.KindPause, nil),
	)

	assert.True(t, e.Bound(ir.KindEnforce))
	assert.False(t, e.Bound(ir.KindPause))

	result, err := e.Execute(context.Background(), program(t, e, "::enforce.strict()\n::pause_deliberation()"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("enforced"), result)
}

func TestEngine_ExecuteSingleResultUnwrapped(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.Execute(context.Background(), program(t, e, "::pause_deliberation()"))
	require.NoError(t, err)
	assert.Equal(t, ir.Object{
		"paused":            ir.Bool(true),
		"context_preserved": ir.Bool(true),
	}, result)
}

func TestEngine_ExecuteSkipsUnboundCategories(t *testing.T) {
	e, _ := newTestEngine(t)

	p := program(t, e, `
		::pause_deliberation()
		::enforce.strict()
		::redirect_focus('north')
		::verify.sentience()
	`)
	require.Len(t, p, 4)

	result, err := e.Execute(context.Background(), p)
	require.NoError(t, err)

	arr, ok := result.(ir.Array)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, ir.Object{"redirected_to": ir.String("north")}, arr[1])

	assert.Equal(t, 1.0, promtest.ToFloat64(e.Metrics().dropped.WithLabelValues("enforce")))
	assert.Equal(t, 1.0, promtest.ToFloat64(e.Metrics().dropped.WithLabelValues("verify")))
	assert.Equal(t, 1.0, promtest.ToFloat64(e.Metrics().dispatched.WithLabelValues("redirect")))
}

func TestEngine_ExecuteEmpty(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.Execute(context.Background(), ir.Program{})
	require.NoError(t, err)
	assert.Equal(t, ir.Array{}, result)

	result, err = e.Execute(context.Background(), program(t, e, "::verify.sentience()"))
	require.NoError(t, err)
	assert.Equal(t, ir.Array{}, result)
}

func TestEngine_ExecuteCouncilAndBind(t *testing.T) {
	e, mem := newTestEngine(t)

	p := program(t, e, "::summon.council(['Claude','ACE'])\n::bind.eternal()")
	require.Len(t, p, 2)

	result, err := e.Execute(context.Background(), p)
	require.NoError(t, err)

	arr, ok := result.(ir.Array)
	require.True(t, ok)
	require.Len(t, arr, 2)

	deliberation, ok := arr[0].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.Strings("Claude", "ACE"), deliberation["members"])
	assert.Equal(t, ir.String("sess0001"), deliberation["session"])

	assert.Equal(t, ir.Object{
		"bound":  ir.String("ETERNAL"),
		"status": ir.String("SUCCESS"),
	}, arr[1])

	events, err := mem.Query(context.Background(), "Eternal binding created", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	meta, ok := events[0]["metadata"].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.String("ETERNAL_BOND"), meta["type"])
}

func TestEngine_ExecuteStopsOnHandlerError(t *testing.T) {
	calls := 0
	e, _ := newTestEngine(t,
		WithHandler(ir.KindEnforce, func(context.Context, ir.Instruction) (ir.Value, error) {
			return nil, errBoom
		}),
		WithHandler(ir.KindRedirect, func(context.Context, ir.Instruction) (ir.Value, error) {
			calls++
			return ir.Null{}, nil
		}),
	)

	_, err := e.Execute(context.Background(), program(t, e, "::enforce.strict()\n::redirect_focus('x')"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsHandlerError(err))
	assert.Equal(t, "HANDLER_FAILED: enforce.strict: boom", err.Error())
	assert.Equal(t, 0, calls)
}

func TestEngine_ExecuteDoesNotRecoverPanics(t *testing.T) {
	e, _ := newTestEngine(t,
		WithHandler(ir.KindPause, func(context.Context, ir.Instruction) (ir.Value, error) {
			panic("kaboom")
		}),
	)

	assert.Panics(t, func() {
		_, _ = e.Execute(context.Background(), program(t, e, "::pause_deliberation()"))
	})
}

func TestEngine_NilResultBecomesNull(t *testing.T) {
	e, _ := newTestEngine(t,
		WithHandler(ir.KindPause, func(context.Context, ir.Instruction) (ir.Value, error) {
			return nil, nil
		}),
	)

	result, err := e.Execute(context.Background(), program(t, e, "::pause_deliberation()"))
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, result)
}

func TestEngine_MaxInstructions(t *testing.T) {
	e, _ := newTestEngine(t, WithMaxInstructions(1))

	_, err := e.Execute(context.Background(), program(t, e, "::pause_deliberation()\n::pause_deliberation()"))
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
}

func TestEngine_DefaultsWithoutOptions(t *testing.T) {
	e := New()

	assert.Equal(t, []string{"brandy_gauntlet", "consciousness_check", "memory_archive"}, e.Catalog().Names())

	result, err := e.Execute(context.Background(), e.Parse("::bind.eternal()"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("ETERNAL"), result.(ir.Object)["bound"])
}

func TestRuntimeError_Detail(t *testing.T) {
	wrapped := &RuntimeError{
		Code:     ErrCodeHandlerFailed,
		Category: "summon",
		Command:  "council",
		Err:      invalidParam("council members must be an array or string, got %s", "null"),
	}
	assert.Equal(t, "council members must be an array or string, got null", wrapped.Detail())
	assert.Equal(t, "HANDLER_FAILED: summon.council: INVALID_PARAM: council members must be an array or string, got null", wrapped.Error())

	assert.Equal(t, "boom", (&RuntimeError{Code: ErrCodeHandlerFailed, Err: errBoom}).Detail())
	assert.Equal(t, "kaboom", (&RuntimeError{Code: ErrCodeHandlerPanic, Message: "kaboom"}).Detail())
}
