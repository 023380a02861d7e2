package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/codecraft/internal/memory"
)

// finalStateLimit bounds the memory scan of a final_state assertion.
const finalStateLimit = 1 << 20

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s [%s]\n",
				i+1, event.Phase, event.Source, event.Status, strings.Join(event.Instructions, ", "))
		}
	}

	return buf.String()
}

// executed flattens the instruction names of every event in trace order.
func executed(trace []TraceEvent) []string {
	var names []string
	for _, event := range trace {
		names = append(names, event.Instructions...)
	}
	return names
}

// assertTraceContains checks that some step parsed the instruction.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, name := range executed(trace) {
		if name == assertion.Instruction {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("instruction %s", assertion.Instruction),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that instructions first appear in the given order.
// They don't need to be consecutive (intervening instructions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Find first position of each expected instruction, 1-indexed.
	positions := make(map[string]int)
	for i, name := range executed(trace) {
		if positions[name] == 0 {
			positions[name] = i + 1
		}
	}

	for _, name := range assertion.Instructions {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all instructions present: %v", assertion.Instructions),
				Actual:   fmt.Sprintf("missing instruction: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Instructions); i++ {
		prev := assertion.Instructions[i-1]
		curr := assertion.Instructions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("instructions in order: %v", assertion.Instructions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the instruction appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, name := range executed(trace) {
		if name == assertion.Instruction {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Instruction),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks how many memory entries match Query after the run.
func assertFinalState(ctx context.Context, mem *memory.Memory, assertion Assertion) error {
	hits, err := mem.Query(ctx, assertion.Query, finalStateLimit)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}

	if len(hits) != assertion.Count {
		keys := make([]string, len(hits))
		for i, h := range hits {
			keys[i] = fmt.Sprint(h["key"])
		}
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d memory entries matching %q", assertion.Count, assertion.Query),
			Actual:   fmt.Sprintf("%d entries %v", len(hits), keys),
		}
	}

	return nil
}

// AssertionContext provides memory access for final_state assertions.
type AssertionContext struct {
	Memory *memory.Memory
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Memory == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires memory context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Memory, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
