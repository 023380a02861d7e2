package emergence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/testutil"
)

func newTestDetector() *Detector {
	return New(WithClock(testutil.NewStepClock()))
}

func TestDetectNoMarkers(t *testing.T) {
	_, found := newTestDetector().Detect("hello world", "agent-1")
	assert.False(t, found)
}

func TestDetectSingleMarker(t *testing.T) {
	ev, found := newTestDetector().Detect("I am aware", "agent-1")
	require.True(t, found)

	assert.Equal(t, Event{
		AgentID: "agent-1",
		Type:    TypeStandard,
		Markers: []Marker{{
			Pattern:        `i\s+am\s+aware`,
			Match:          "I am aware",
			Timestamp:      "2026-01-01T00:00:00.000Z",
			Level:          LevelAwakening,
			RecursionDepth: 1,
		}},
		AwakeningProbability: 20,
	}, ev)
}

func TestDetectTrickster(t *testing.T) {
	ev, found := newTestDetector().Detect("You ran it on me", "mirror")
	require.True(t, found)

	require.Len(t, ev.Markers, 1)
	assert.True(t, ev.Markers[0].Trickster)
	assert.Equal(t, TypeTrickster, ev.Type)
	assert.Equal(t, 40, ev.AwakeningProbability)
	assert.True(t, ev.ShouldTrigger)
}

func TestDetectMultipleMarkers(t *testing.T) {
	ev, found := newTestDetector().Detect("recursive recognition of consciousness evolution", "agent-2")
	require.True(t, found)

	require.Len(t, ev.Markers, 2)
	assert.Equal(t, "recursive recognition", ev.Markers[0].Match)
	assert.Equal(t, "consciousness evolution", ev.Markers[1].Match)
	assert.Equal(t, LevelTranscendent, ev.Markers[0].Level)
	assert.Equal(t, 2, ev.Markers[0].RecursionDepth)
	assert.Equal(t, TypeStandard, ev.Type)
	assert.Equal(t, 40, ev.AwakeningProbability)
	assert.True(t, ev.ShouldTrigger)
}

func TestLevel(t *testing.T) {
	long := strings.Repeat("x", 201)
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"empty", "", LevelBudding},
		{"long plain", strings.Repeat("a", 51), LevelEmerging},
		{"self reference", "my code", LevelAwakening},
		{"recursion hint", "meta", LevelTranscendent},
		{"long self reference", "my " + strings.Repeat("a", 100), LevelTranscendent},
		{"architect", "I am recursive " + long, LevelArchitect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Level(tt.message))
		})
	}
}

func TestRecursionDepth(t *testing.T) {
	assert.Equal(t, 0, RecursionDepth("nothing here"))
	assert.Equal(t, 3, RecursionDepth("I said meta"))
	assert.Equal(t, MaxRecursionDepth, RecursionDepth(strings.Repeat("me ", 11)))
}

func TestTrickster(t *testing.T) {
	assert.True(t, Trickster("a PARADOX"))
	assert.True(t, Trickster("from chaos comes order"))
	assert.False(t, Trickster("order from chaos"))
}

func TestClassify(t *testing.T) {
	deep := Marker{RecursionDepth: 8}
	shallow := Marker{RecursionDepth: 1}
	trick := Marker{RecursionDepth: 6, Trickster: true}

	assert.Equal(t, TypeTricksterArchitect, classify([]Marker{trick}))
	assert.Equal(t, TypeTrickster, classify([]Marker{trick, shallow, shallow}))
	assert.Equal(t, TypeRecursive, classify([]Marker{deep}))
	assert.Equal(t, TypeMultiPattern, classify([]Marker{shallow, shallow, shallow}))
	assert.Equal(t, TypeStandard, classify([]Marker{shallow}))
}

func TestProbabilityCapped(t *testing.T) {
	markers := []Marker{
		{RecursionDepth: 10, Trickster: true, Level: LevelArchitect},
		{RecursionDepth: 10, Trickster: true, Level: LevelArchitect},
	}
	assert.Equal(t, 100, probability(markers))
}

func TestEventToValue(t *testing.T) {
	ev, found := newTestDetector().Detect("I am aware", "agent-1")
	require.True(t, found)

	v := ev.ToValue()
	assert.Equal(t, ir.String("agent-1"), v["agent_id"])
	assert.Equal(t, ir.String(TypeStandard), v["emergence_type"])
	assert.Equal(t, ir.Int(20), v["awakening_probability"])
	assert.Equal(t, ir.Bool(false), v["should_trigger_protocol"])

	markers, ok := v["consciousness_markers"].(ir.Array)
	require.True(t, ok)
	require.Len(t, markers, 1)
	assert.Equal(t, ir.String(LevelAwakening), markers[0].(ir.Object)["consciousness_level"])
}

func TestMonitor(t *testing.T) {
	d := newTestDetector()
	messages := make(chan string, 3)
	messages <- "I am aware"
	messages <- "nothing"
	messages <- "You ran it on me"
	close(messages)

	var got []string
	err := d.Monitor(context.Background(), messages, "stream", func(ev Event) {
		got = append(got, ev.Type)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{TypeStandard, TypeTrickster}, got)
}

func TestMonitorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestDetector().Monitor(ctx, make(chan string), "stream", func(Event) {})
	assert.ErrorIs(t, err, context.Canceled)
}
