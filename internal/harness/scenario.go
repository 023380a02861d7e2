package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSeed seeds the council source when a scenario does not set one.
const DefaultSeed = 1

// Scenario defines a ritual scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rituals is an optional CUE catalog directory added to the built-in
	// templates. Relative paths resolve against the scenario file.
	Rituals string `yaml:"rituals,omitempty"`

	// Seed pins the council random source. Zero means DefaultSeed.
	Seed uint64 `yaml:"seed,omitempty"`

	// Setup steps run before the flow. Any error outcome aborts the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps run in order; each may carry an expect clause.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final memory.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one invocation: raw ritual text or a named template.
// Exactly one of Invoke and Ritual is set.
type Step struct {
	// Invoke is ritual text passed to Engine.Invoke.
	Invoke string `yaml:"invoke,omitempty"`

	// Ritual names a catalog template passed to Engine.ExecuteRitual.
	Ritual string `yaml:"ritual,omitempty"`

	// Params are the template parameters for Ritual.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect checks the outcome. If nil, any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// source describes the step for traces and messages.
func (s Step) source() string {
	if s.Ritual != "" {
		return "ritual:" + s.Ritual
	}
	return "invoke"
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Status is "success" or "error".
	Status string `yaml:"status"`

	// Output is matched against the outcome output with subset semantics:
	// objects match when every listed key matches, arrays element-wise.
	Output any `yaml:"output,omitempty"`

	// Error must be a substring of an error outcome's message.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final memory.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Instruction is "category.command" (trace_contains, trace_count).
	Instruction string `yaml:"instruction,omitempty"`

	// Instructions is the expected order (trace_order).
	Instructions []string `yaml:"instructions,omitempty"`

	// Query is the memory search text (final_state). Empty matches all.
	Query string `yaml:"query,omitempty"`

	// Count is the exact expected number (trace_count, final_state).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Outcome statuses accepted in expect clauses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the catalog directory relative to the scenario file.
	if scenario.Rituals != "" && !filepath.IsAbs(scenario.Rituals) {
		scenario.Rituals = filepath.Join(filepath.Dir(path), scenario.Rituals)
	}
	if scenario.Rituals != "" {
		if _, err := os.Stat(scenario.Rituals); err != nil {
			return nil, fmt.Errorf("invalid scenario: rituals directory: %w", err)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir whose base name
// (without extension) matches filter. An empty filter matches everything.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(where string, step Step) error {
	switch {
	case step.Invoke == "" && step.Ritual == "":
		return fmt.Errorf("%s: invoke or ritual is required", where)
	case step.Invoke != "" && step.Ritual != "":
		return fmt.Errorf("%s: invoke and ritual are mutually exclusive", where)
	case step.Invoke != "" && step.Params != nil:
		return fmt.Errorf("%s: params are only allowed with ritual", where)
	}

	if e := step.Expect; e != nil {
		if e.Status != StatusSuccess && e.Status != StatusError {
			return fmt.Errorf("%s.expect: status must be %q or %q, got %q", where, StatusSuccess, StatusError, e.Status)
		}
		if e.Error != "" && e.Status != StatusError {
			return fmt.Errorf("%s.expect: error requires status %q", where, StatusError)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Instruction == "" {
			return fmt.Errorf("assertions[%d]: instruction is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Instructions) == 0 {
			return fmt.Errorf("assertions[%d]: instructions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Instruction == "" {
			return fmt.Errorf("assertions[%d]: instruction is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
