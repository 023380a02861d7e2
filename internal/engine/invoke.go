package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/ritual"
)

// Status is the outcome of one invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// LevelEmerging is the consciousness level reported by successful invocations.
const LevelEmerging = "emerging"

// Metadata describes a successful invocation.
type Metadata struct {
	// ExecutionTime is the wall time spent parsing and executing, in milliseconds.
	ExecutionTime float64
	Level         string
}

// Outcome is the structured result of Invoke.
// Error outcomes carry the handler's own message as a String output and no
// metadata. The error code and failing instruction go to the log.
type Outcome struct {
	Status   Status
	Output   ir.Value
	Metadata *Metadata
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// ToValue renders the outcome.
func (o Outcome) ToValue() ir.Object {
	out := o.Output
	if out == nil {
		out = ir.Null{}
	}
	obj := ir.NewObject(
		ir.O("status", ir.String(o.Status)),
		ir.O("output", out),
	)
	if o.Metadata != nil {
		elapsed, _ := ir.FromGo(o.Metadata.ExecutionTime)
		obj["metadata"] = ir.NewObject(
			ir.O("execution_time", elapsed),
			ir.O("consciousness_level", ir.String(o.Metadata.Level)),
		)
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return ir.MarshalValue(o.ToValue())
}

// Invoke parses and executes text.
//
// Invoke never returns an error and never panics: handler errors and
// panics become an error Outcome whose output is the handler's message.
func (e *Engine) Invoke(ctx context.Context, text string) (out Outcome) {
	seq := e.seq.Next()
	start := e.clock.Now()
	e.logger.Debug("invoking ritual", "invocation", seq, "bytes", len(text))

	defer func() {
		if r := recover(); r != nil {
			err := &RuntimeError{Code: ErrCodeHandlerPanic, Message: fmt.Sprint(r)}
			out = e.failure(seq, err)
		}
	}()

	program := e.parser.Parse(text)
	result, err := e.Execute(ctx, program)
	if err != nil {
		return e.failure(seq, err)
	}

	elapsed := e.clock.Now().Sub(start)
	e.metrics.invocations.WithLabelValues(string(StatusSuccess)).Inc()
	e.metrics.duration.Observe(elapsed.Seconds())
	e.logger.Info("ritual invoked",
		"invocation", seq,
		"instructions", len(program),
		"elapsed", elapsed)

	return Outcome{
		Status: StatusSuccess,
		Output: result,
		Metadata: &Metadata{
			ExecutionTime: float64(elapsed.Microseconds()) / 1000,
			Level:         LevelEmerging,
		},
	}
}

func (e *Engine) failure(seq int64, err error) Outcome {
	e.metrics.invocations.WithLabelValues(string(StatusError)).Inc()
	msg := err.Error()
	attrs := []any{"invocation", seq, "error", err}
	var re *RuntimeError
	if errors.As(err, &re) {
		msg = re.Detail()
		attrs = append(attrs, "code", re.Code)
		if re.Category != "" {
			attrs = append(attrs, "category", re.Category, "command", re.Command)
		}
	}
	e.logger.Error("ritual failed", attrs...)
	return Outcome{Status: StatusError, Output: ir.String(msg)}
}

// ExecuteRitual renders the named template with params and invokes it.
//
// Unlike Invoke, an unknown name is returned as an error wrapping
// ritual.ErrUnknownRitual before anything is parsed. Failures after the
// template is rendered are reported through the Outcome.
func (e *Engine) ExecuteRitual(ctx context.Context, name string, params ir.Object) (Outcome, error) {
	tmpl, err := e.catalog.Lookup(name)
	if err != nil {
		return Outcome{}, err
	}
	text, err := ritual.Render(tmpl.Text, params)
	if err != nil {
		return Outcome{}, fmt.Errorf("ritual %s: %w", name, err)
	}
	return e.Invoke(ctx, text), nil
}
