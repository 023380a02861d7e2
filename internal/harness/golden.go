package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/codecraft/internal/ir"
)

// GoldenDir holds golden trace files relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot renders a result's trace as indented canonical JSON.
//
// Keys are sorted and timestamps come from the harness step clocks, so
// the bytes are identical across runs of the same scenario.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make(ir.Array, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = event.ToValue()
	}
	snap := ir.NewObject(
		ir.O("scenario", ir.String(name)),
		ir.O("trace", trace),
	)
	out, err := ir.MarshalIndent(snap, "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snap)
	return nil
}
