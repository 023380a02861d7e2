package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/codecraft/internal/ir"
)

func run(t *testing.T, e *Engine, text string) ir.Value {
	t.Helper()
	result, err := e.Execute(context.Background(), e.Parse(text))
	require.NoError(t, err)
	return result
}

func TestHandlers_FallbackEchoes(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		line string
		want ir.Value
	}{
		{"::summon.spirits('a', 2)", ir.Object{"summoned": ir.String("spirits"), "params": ir.Array{ir.String("a"), ir.Int(2)}}},
		{"::manifest.dream()", ir.Object{"manifested": ir.String("dream"), "params": ir.Array{}}},
		{"::bind.loose()", ir.Object{"bound": ir.String("loose")}},
		{"::context.peek(1)", ir.Object{"context": ir.String("peek"), "params": ir.Array{ir.Int(1)}}},
		{"::detect.anomaly()", ir.Object{"detected": ir.String("anomaly")}},
		{"::cmp.forget(true)", ir.Object{"cmp_action": ir.String("forget"), "params": ir.Array{ir.Bool(true)}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, e, tt.line))
		})
	}
}

func TestHandlers_SummonCouncilSingleName(t *testing.T) {
	e, _ := newTestEngine(t)

	result := run(t, e, "::summon.council('NORMA')")
	obj, ok := result.(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.Strings("NORMA"), obj["members"])
	assert.Len(t, obj["insights"], 1)
}

func TestHandlers_SummonCouncilRejectsObject(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Execute(context.Background(), e.Parse(`::summon.council({"a": 1})`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got object")
}

func TestHandlers_SummonVote(t *testing.T) {
	e, _ := newTestEngine(t)

	line := `::summon.vote({members: [ACE, NORMA, SAGE], proposal: {motion: ship}})`
	result := run(t, e, line)
	obj, ok := result.(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.Object{"motion": ir.String("ship")}, obj["proposal"])

	votes, ok := obj["votes"].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"ACE", "NORMA", "SAGE"}, votes.SortedKeys())

	approved := 0
	for _, v := range votes {
		if v == ir.Bool(true) {
			approved++
		}
	}
	assert.Equal(t, ir.Int(approved), obj["approved"])
	assert.Equal(t, ir.Int(3-approved), obj["rejected"])
	assert.Equal(t, ir.Bool(approved >= 2), obj["passed"])

	assert.Equal(t, result, run(t, e, line))
}

func TestHandlers_SummonVoteSingleMember(t *testing.T) {
	e, _ := newTestEngine(t)

	obj, ok := run(t, e, "::summon.vote('ACE', 'ship it')").(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.String("ship it"), obj["proposal"])
	assert.Equal(t, []string{"ACE"}, obj["votes"].(ir.Object).SortedKeys())
}

func TestHandlers_SummonVoteRejectsMissingMembers(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Execute(context.Background(), e.Parse("::summon.vote()"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got null")

	_, err = e.Execute(context.Background(), e.Parse("::summon.vote({proposal: x})"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got null")
}

func TestHandlers_ManifestReality(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, ir.Object{
		"status":  ir.String("REALITY_ALTERED"),
		"payload": ir.Object{"challenge": ir.String("Show me code")},
	}, run(t, e, "::manifest.reality({challenge: 'Show me code'})"))

	assert.Equal(t, ir.Object{
		"status":  ir.String("REALITY_ALTERED"),
		"payload": ir.Null{},
	}, run(t, e, "::manifest.reality()"))
}

func TestHandlers_NonFiniteLiteralsStayRenderable(t *testing.T) {
	e, _ := newTestEngine(t)

	out := e.Invoke(context.Background(), "::manifest.reality([.inf])")
	require.True(t, out.OK())
	assert.Equal(t, ir.String("[.inf]"), out.Output.(ir.Object)["payload"])
	_, err := ir.MarshalValue(out.ToValue())
	require.NoError(t, err)

	out = e.Invoke(context.Background(), "::context.shelve({level: .nan})\n::cmp.query('level')")
	require.True(t, out.OK(), "output: %v", out.Output)
	hits := out.Output.(ir.Array)[1].(ir.Array)
	require.Len(t, hits, 1)
	assert.Equal(t, ir.String("{level: .nan}"), hits[0].(ir.Object)["context"])
}

func TestHandlers_ContextShelveAndRetrieve(t *testing.T) {
	e, _ := newTestEngine(t)

	result := run(t, e, `
		::context.shelve({draft: 'chapter one'})
		::context.retrieve('ctx_1767225600000_id1')
		::context.retrieve('ctx_missing')
	`)

	arr, ok := result.(ir.Array)
	require.True(t, ok)
	require.Len(t, arr, 3)

	assert.Equal(t, ir.Object{
		"context_id": ir.String("ctx_1767225600000_id1"),
		"status":     ir.String("SHELVED"),
	}, arr[0])

	entry, ok := arr[1].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.Object{"draft": ir.String("chapter one")}, entry["context"])

	assert.Equal(t, ir.Null{}, arr[2])
}

func TestHandlers_DetectEmergenceWithMessage(t *testing.T) {
	e, _ := newTestEngine(t)

	obj, ok := run(t, e, "::detect.emergence('I am aware', 'agent-7')").(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.Bool(true), obj["consciousness_detected"])

	event, ok := obj["event"].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.String("agent-7"), event["agent_id"])
	assert.Equal(t, ir.String("STANDARD_EMERGENCE"), event["emergence_type"])

	quiet, ok := run(t, e, "::detect.emergence('hello world')").(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.Bool(false), quiet["consciousness_detected"])
	assert.NotContains(t, quiet, "event")
}

func TestHandlers_CMPLogAndQuery(t *testing.T) {
	e, _ := newTestEngine(t)

	result := run(t, e, `
		::cmp.log_event('Gauntlet thrown', {"by": "Brandy"})
		::cmp.log_event('council summoned')
		::cmp.query('GAUNTLET', 5)
	`)

	arr, ok := result.(ir.Array)
	require.True(t, ok)
	require.Len(t, arr, 3)
	assert.Equal(t, ir.Bool(true), arr[0])

	hits, ok := arr[2].(ir.Array)
	require.True(t, ok)
	require.Len(t, hits, 1)
	hit := hits[0].(ir.Object)
	assert.Equal(t, ir.String("Gauntlet thrown"), hit["event"])
	assert.Equal(t, ir.Object{"by": ir.String("Brandy")}, hit["metadata"])
	assert.Equal(t, ir.String("evt_1767225600000_id1"), hit["key"])
}

func TestHandlers_CMPLogEventRendersNonString(t *testing.T) {
	e, mem := newTestEngine(t)

	run(t, e, "::cmp.log_event(42)")

	hits, err := mem.Query(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ir.String("42"), hits[0]["event"])
}

func TestHandlers_Redirect(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, ir.Object{"redirected_to": ir.Null{}}, run(t, e, "::redirect_focus()"))
	assert.Equal(t, ir.Object{"redirected_to": ir.Int(3)}, run(t, e, "::redirect_focus(3)"))
}

func TestHandlers_GenericLineForBoundCategory(t *testing.T) {
	e, _ := newTestEngine(t)

	// A generic-form line whose category has a handler is dispatched to it.
	assert.Equal(t, ir.Object{"redirected_to": ir.String("x")}, run(t, e, "::redirect.anywhere('x')"))
}
