package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/finchley/marionette/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation/scenario failure
	ExitCommandError = 2 // Command error (bad paths, missing database, ...)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return ExitFailure
	}
	return ExitSuccess
}

// printCommand renders one recorded command in the selected format.
func printCommand(w io.Writer, format string, cmd engine.Recorded) {
	if format == "json" {
		b, err := json.Marshal(cmd.ToMap())
		if err != nil {
			fmt.Fprintf(w, `{"kind":%q,"error":"unserializable"}`+"\n", cmd.Kind)
			return
		}
		fmt.Fprintln(w, string(b))
		return
	}

	switch cmd.Kind {
	case engine.KindUpdate:
		fmt.Fprintf(w, "%-9s %-9s %-12s progress=%.3f perf=%s\n", cmd.Kind, cmd.Action, cmd.EntityRef, cmd.Progress, cmd.PerformanceID)
	case engine.KindInterrupt:
		fmt.Fprintf(w, "%-9s %-9s %-12s perf=%s\n", cmd.Kind, "-", cmd.EntityRef, cmd.PerformanceID)
	default:
		fmt.Fprintf(w, "%-9s %-9s %-12s perf=%s params=%v\n", cmd.Kind, cmd.Action, cmd.EntityRef, cmd.PerformanceID, cmd.Params)
	}
}
