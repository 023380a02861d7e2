package harness

import "github.com/roach88/codecraft/internal/ir"

// TraceEvent records one executed step.
type TraceEvent struct {
	Step         int      `json:"step"`
	Phase        string   `json:"phase"`            // "setup" or "flow"
	Source       string   `json:"source"`           // "invoke" or "ritual:<name>"
	Instructions []string `json:"instructions"`     // "category.command" per parsed line
	Status       string   `json:"status"`           // outcome status
	Output       ir.Value `json:"output,omitempty"` // outcome output
}

// ToValue renders the event for snapshots.
func (e TraceEvent) ToValue() ir.Object {
	out := e.Output
	if out == nil {
		out = ir.Null{}
	}
	return ir.NewObject(
		ir.O("step", ir.Int(e.Step)),
		ir.O("phase", ir.String(e.Phase)),
		ir.O("source", ir.String(e.Source)),
		ir.O("instructions", ir.Strings(e.Instructions...)),
		ir.O("status", ir.String(e.Status)),
		ir.O("output", out),
	)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every setup and flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
