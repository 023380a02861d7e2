// Package harness runs ritual scenarios against a deterministic engine.
//
// A scenario drives an engine through setup and flow steps, records a
// trace of every step, then checks assertions over the trace and the
// final memory. Traces can be compared against golden snapshots.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: archive_after_deploy
//	description: "Logging an event makes it queryable"
//	rituals: ./rituals        # optional CUE catalog directory
//	seed: 7                   # council seed (default 1)
//	setup:
//	  - invoke: "::cmp.log_event('boot')"
//	flow:
//	  - ritual: memory_archive
//	    params: { event: deploy }
//	    expect:
//	      status: success
//	  - invoke: "::summon.council(null)"
//	    expect:
//	      status: error
//	      error: got null
//	assertions:
//	  - type: trace_contains
//	    instruction: cmp.archive
//	  - type: final_state
//	    query: deploy
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: an instruction ("category.command") ran in some step
//   - trace_order: instructions ran in the given order
//   - trace_count: an instruction ran exactly count times
//   - final_state: a memory query returns exactly count entries
//
// # Deterministic Execution
//
// Every run gets a fresh in-memory backend, a StepClock, sequence id
// generators and a seeded council source, so traces are byte-identical
// across runs.
package harness
