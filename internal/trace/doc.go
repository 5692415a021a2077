// Package trace provides SQLite-backed durable storage for emitted
// command logs.
//
// The store is a CommandSink collaborator: it observes the same protocol
// the render layer does and appends every command to an append-only log.
// The engine itself stays free of I/O; composing a trace.Store behind an
// engine.MultiSink is a deployment choice, not an engine concern.
//
// Reads always order by seq ASC so a trace replays in exactly the
// emission order, regardless of wall time.
//
// Database configuration follows the usual single-writer SQLite setup:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package trace
