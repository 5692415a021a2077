// Package engine implements the marionette choreography engine.
//
// The engine is the stateful heart of marionette: it matches incoming
// signals against registered choreography programs, schedules live
// performances, advances their branches against a clock, applies the
// interruption policy, and emits the command protocol to a render sink.
//
// ARCHITECTURE:
//
// Single-Threaded Tick Loop:
// All state transitions for all live performances happen synchronously
// inside one Tick invocation. This ensures:
//   - Predictable command ordering per branch
//   - Reproducible traces given the same programs and clock sequence
//   - Simple reasoning about interruption
//
// Tick Processing Flow:
//  1. Signals arriving between ticks sit in a FIFO queue
//  2. Tick drains the queue: registry lookup, when-predicate filtering,
//     interruption check, performance creation
//  3. Every live branch advances as far as the tick's delta permits
//  4. Parallel joins resolve; finished performances retire
//
// Signals arriving mid-tick (from a sink callback or another goroutine)
// are queued and applied at the start of the next tick, never interleaved
// with branch advancement. This keeps HandleSignal safe to call from
// anywhere without torn state.
//
// CRITICAL PATTERNS:
//
// Deterministic Scheduling:
// Performances advance in creation order, branches in creation order
// within a performance. Registry lookup returns programs in registration
// order. No randomness, no wall-clock reads outside Clock implementations.
//
// Fail-Open Runtime:
// A param reference that resolves to nothing degrades the step to a
// best-effort command and reports through the Diagnostics side channel.
// Runtime errors are never thrown into the tick loop; one bad step cannot
// halt other live performances.
package engine
