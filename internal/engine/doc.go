// Package engine dispatches parsed ritual programs to category handlers.
//
// The engine is the execution half of the ritual pipeline: the parser turns
// text into an ir.Program, and Execute walks that program one instruction at
// a time, calling the handler bound to each instruction's kind.
//
// Dispatch:
//   - Instructions run strictly in program order; a handler returns before
//     the next instruction starts. There is no fan-out.
//   - The handler table is an array indexed by ir.Kind. A kind with no
//     handler (enforce, generic) is logged, counted and skipped; it adds no
//     entry to the results.
//   - One result is returned unwrapped; otherwise results come back as an
//     ir.Array, possibly empty.
//
// Errors:
// Handler errors are wrapped in a *RuntimeError and returned from Execute.
// Panics are not recovered by Execute. Invoke is the only boundary that
// turns errors and panics into an Outcome, so callers of Invoke never see
// either.
//
// Limitations:
// The dispatch loop does not check ctx between instructions and applies no
// timeout. A handler that never returns stalls the invocation. The ctx is
// handed to collaborators, which may honour it.
package engine
