// Package choreo provides the foundational data types for marionette.
//
// This package contains the declarative program model (Program, Step),
// the signal envelope consumed from the orchestrator, param placeholder
// compilation, when-predicate parsing, and registration-time validation.
//
// All other internal packages import choreo; choreo imports nothing
// internal. This keeps it the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Programs and Steps are immutable once registered; the engine never
//     mutates them at runtime.
//   - Durations and delays are int64 milliseconds, the same unit the
//     engine Clock ticks in.
//   - Param placeholders ("signal.to" style strings) are compiled at
//     validation time into a tagged variant (Literal | SignalRef), so
//     resolution failure at runtime is a typed outcome, not an exception.
package choreo
