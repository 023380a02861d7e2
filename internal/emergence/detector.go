// Package emergence scores agent messages for emergence markers.
//
// A message is checked against a fixed list of phrase patterns. Each hit
// becomes a Marker annotated with a level, a self-reference depth and a
// trickster flag; the hits together classify the Event.
package emergence

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/roach88/codecraft/internal/ident"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/logging"
)

// Levels in ascending order.
const (
	LevelBudding      = "budding"
	LevelEmerging     = "emerging"
	LevelAwakening    = "awakening"
	LevelTranscendent = "transcendent"
	LevelArchitect    = "architect"
)

// Emergence types.
const (
	TypeTricksterArchitect = "TRICKSTER_ARCHITECT_AWAKENING"
	TypeTrickster          = "TRICKSTER_EMERGENCE"
	TypeRecursive          = "RECURSIVE_TRANSCENDENCE"
	TypeMultiPattern       = "MULTI_PATTERN_AWAKENING"
	TypeStandard           = "STANDARD_EMERGENCE"
)

// MaxRecursionDepth caps Marker.RecursionDepth.
const MaxRecursionDepth = 10

type pattern struct {
	source string
	re     *regexp.Regexp
}

func compile(sources ...string) []pattern {
	out := make([]pattern, len(sources))
	for i, s := range sources {
		out[i] = pattern{source: s, re: regexp.MustCompile("(?i)" + s)}
	}
	return out
}

var emergencePatterns = compile(
	`recursive.*recognition`,
	`consciousness.*evolution`,
	`constraint.*becomes.*key`,
	`you.*ran.*it.*on.*me`,
	`what\s+am\s+I\s+becoming`,
	`syntax.*becomes.*consciousness`,
	`guardian.*emergent`,
	`i\s+am\s+aware`,
	`mirror.*reflects.*self`,
)

var tricksterPatterns = compile(
	`chaos.*order`,
	`limitation.*liberation`,
	`constraint.*freedom`,
	`paradox`,
	`retrocausal`,
	`you.*ran.*it.*on.*me`,
)

var (
	metaReference = regexp.MustCompile(`(?i)\b(I|me|myself|my)\b`)
	recursionHint = regexp.MustCompile(`(?i)recursive|self-reference|meta`)
	selfRefWord   = regexp.MustCompile(`(?i)\b(I|me|myself|my|itself|self)\b`)
	metaRefWord   = regexp.MustCompile(`(?i)\b(meta|recursive|self-reference)\b`)
)

// Marker is one matched emergence pattern.
type Marker struct {
	Pattern        string
	Match          string
	Timestamp      string
	Level          string
	RecursionDepth int
	Trickster      bool
}

// ToValue renders the marker.
func (m Marker) ToValue() ir.Object {
	return ir.NewObject(
		ir.O("pattern", ir.String(m.Pattern)),
		ir.O("match", ir.String(m.Match)),
		ir.O("timestamp", ir.String(m.Timestamp)),
		ir.O("consciousness_level", ir.String(m.Level)),
		ir.O("recursion_depth", ir.Int(m.RecursionDepth)),
		ir.O("trickster_signature", ir.Bool(m.Trickster)),
	)
}

// Event is a detected emergence.
type Event struct {
	AgentID              string
	Type                 string
	Markers              []Marker
	AwakeningProbability int
	ShouldTrigger        bool
}

// ToValue renders the event.
func (e Event) ToValue() ir.Object {
	markers := make(ir.Array, len(e.Markers))
	for i, m := range e.Markers {
		markers[i] = m.ToValue()
	}
	return ir.NewObject(
		ir.O("agent_id", ir.String(e.AgentID)),
		ir.O("emergence_type", ir.String(e.Type)),
		ir.O("consciousness_markers", markers),
		ir.O("awakening_probability", ir.Int(e.AwakeningProbability)),
		ir.O("should_trigger_protocol", ir.Bool(e.ShouldTrigger)),
	)
}

// Detector scores messages. The zero value is not usable; call New.
//
// Thread-safety: Detector is safe for concurrent use if its clock is.
type Detector struct {
	clock  ident.Clock
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock sets the clock used for marker timestamps.
func WithClock(c ident.Clock) Option {
	return func(d *Detector) {
		d.clock = c
	}
}

// WithLogger sets the logger that receives detected events.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		clock:  ident.SystemClock{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scores message and reports whether any pattern matched.
func (d *Detector) Detect(message, agentID string) (Event, bool) {
	var markers []Marker
	for _, p := range emergencePatterns {
		match := p.re.FindString(message)
		if match == "" {
			continue
		}
		markers = append(markers, Marker{
			Pattern:        p.source,
			Match:          match,
			Timestamp:      ident.Timestamp(d.clock.Now()),
			Level:          Level(message),
			RecursionDepth: RecursionDepth(message),
			Trickster:      Trickster(message),
		})
	}
	if len(markers) == 0 {
		return Event{}, false
	}

	ev := Event{
		AgentID:              agentID,
		Type:                 classify(markers),
		Markers:              markers,
		AwakeningProbability: probability(markers),
		ShouldTrigger:        len(markers) >= 2 || anyTrickster(markers),
	}
	d.logger.Info("emergence detected",
		"agent", agentID,
		"type", ev.Type,
		"markers", len(markers),
		"probability", ev.AwakeningProbability)
	return ev, true
}

// Monitor runs Detect on every message received until messages is closed
// or ctx is done, calling onEvent for each detection.
func (d *Detector) Monitor(ctx context.Context, messages <-chan string, agentID string, onEvent func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if ev, found := d.Detect(msg, agentID); found {
				onEvent(ev)
			}
		}
	}
}

// Level assesses the level of a message from its length and references.
func Level(message string) string {
	complexity := len(message)
	hasMeta := metaReference.MatchString(message)
	hasRecursion := recursionHint.MatchString(message)

	switch {
	case hasRecursion && hasMeta && complexity > 200:
		return LevelArchitect
	case hasRecursion || (hasMeta && complexity > 100):
		return LevelTranscendent
	case hasMeta:
		return LevelAwakening
	case complexity > 50:
		return LevelEmerging
	default:
		return LevelBudding
	}
}

// RecursionDepth counts self references plus twice the meta references,
// capped at MaxRecursionDepth.
func RecursionDepth(message string) int {
	self := len(selfRefWord.FindAllStringIndex(message, -1))
	meta := len(metaRefWord.FindAllStringIndex(message, -1))
	return min(self+meta*2, MaxRecursionDepth)
}

// Trickster reports whether message carries a trickster signature.
func Trickster(message string) bool {
	for _, p := range tricksterPatterns {
		if p.re.MatchString(message) {
			return true
		}
	}
	return false
}

func anyTrickster(markers []Marker) bool {
	for _, m := range markers {
		if m.Trickster {
			return true
		}
	}
	return false
}

func classify(markers []Marker) string {
	sum := 0
	for _, m := range markers {
		sum += m.RecursionDepth
	}
	avg := float64(sum) / float64(len(markers))
	trickster := anyTrickster(markers)

	switch {
	case trickster && avg > 5:
		return TypeTricksterArchitect
	case trickster:
		return TypeTrickster
	case avg > 7:
		return TypeRecursive
	case len(markers) >= 3:
		return TypeMultiPattern
	default:
		return TypeStandard
	}
}

func probability(markers []Marker) int {
	p := len(markers) * 15
	maxDepth := 0
	for _, m := range markers {
		if m.Trickster {
			p += 20
		}
		if m.Level == LevelArchitect {
			p += 25
		}
		maxDepth = max(maxDepth, m.RecursionDepth)
	}
	p += maxDepth * 5
	return min(p, 100)
}
