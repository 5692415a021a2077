package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// RuntimeError represents a problem detected while the engine is running.
//
// Runtime errors are reported through the Diagnostics side channel and
// never propagate into the tick loop: the affected step degrades to a
// no-op and every other live performance keeps advancing.
//
// Categories:
//   - Unresolved reference: a params placeholder has no payload field
//   - Unknown action: defensive; validation should make this unreachable
//   - Quota exceeded: too many live performances, signal match dropped
//   - Disposed: a signal arrived after Dispose
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ProgramID identifies the program involved, when known.
	ProgramID string

	// PerformanceID identifies the affected performance, when one exists.
	PerformanceID string

	// StepID identifies the offending step (for reference/action errors).
	StepID string

	// Details carries additional context, e.g. the missing param names.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnresolvedReference indicates a "signal.x" param had no
	// matching payload field. The step proceeds without the param.
	ErrCodeUnresolvedReference RuntimeErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeUnknownAction indicates an action outside the vocabulary
	// reached the executor. Caught at validation; defensive at runtime.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeQuotaExceeded indicates the live-performance cap was hit and
	// a matching signal was dropped.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeDisposed indicates a signal was submitted after Dispose.
	ErrCodeDisposed RuntimeErrorCode = "DISPOSED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.PerformanceID != "" && e.StepID != "":
		return fmt.Sprintf("%s: %s (performance=%s, step=%s)", e.Code, e.Message, e.PerformanceID, e.StepID)
	case e.PerformanceID != "":
		return fmt.Sprintf("%s: %s (performance=%s)", e.Code, e.Message, e.PerformanceID)
	case e.ProgramID != "":
		return fmt.Sprintf("%s: %s (program=%s)", e.Code, e.Message, e.ProgramID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnresolvedReference reports whether err is an unresolved-reference
// diagnostic. Uses errors.As to handle wrapped errors.
func IsUnresolvedReference(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeUnresolvedReference
}

// IsQuotaError reports whether err is a quota diagnostic.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded
}

// Diagnostics is the side channel for runtime errors. Implementations must
// not call back into the scheduler; they run inside the tick loop.
type Diagnostics interface {
	Report(err *RuntimeError)
}

// DiagnosticsFunc adapts a function to the Diagnostics interface.
type DiagnosticsFunc func(err *RuntimeError)

// Report implements Diagnostics.
func (f DiagnosticsFunc) Report(err *RuntimeError) { f(err) }

// slogDiagnostics is the default Diagnostics: structured warnings on the
// process logger.
type slogDiagnostics struct{}

func (slogDiagnostics) Report(err *RuntimeError) {
	slog.Warn("choreography runtime error",
		"code", string(err.Code),
		"message", err.Message,
		"program_id", err.ProgramID,
		"performance_id", err.PerformanceID,
		"step_id", err.StepID,
	)
}
