// Package harness provides scenario-based conformance testing for
// choreography programs.
//
// A scenario loads programs, feeds a scripted sequence of signals through
// a scheduler driven by a deterministic manual clock, records every
// emitted command, and validates assertions against the recorded trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: pigeon_flight
//	description: "Dispatch spawns, flies and destroys the pigeon"
//	programs:
//	  - path: programs/pigeon.cue
//	signals:
//	  - at: 0
//	    type: task_dispatch
//	    payload: { to: "nest" }
//	tick: 250
//	duration: 1000
//	assertions:
//	  - type: trace_contains
//	    kind: execute
//	    action: spawn
//	  - type: trace_count
//	    kind: update
//	    action: fly
//	    count: 4
//	  - type: trace_order
//	    sequence:
//	      - { kind: start, action: fly }
//	      - { kind: complete, action: fly }
//
// # Assertion Types
//
//   - trace_contains: the trace holds at least one matching command
//   - trace_count: exactly N commands match
//   - trace_order: matching commands appear in the given relative order
//
// # Deterministic Execution
//
// Scenarios run with a ManualClock and sequential performance IDs
// ("perf-1", "perf-2", ...), so the same scenario always produces a
// byte-identical trace and golden comparison is exact.
package harness
