package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/compiler"
	"github.com/finchley/marionette/internal/engine"
)

// NewValidateCommand validates program files without running anything.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Validate choreography program files",
		Long: "Compiles each .cue/.json program and runs full registration-time\n" +
			"validation (action vocabulary, continuation placement, when-predicate\n" +
			"syntax, easing names). Exits non-zero if any program is rejected.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, arg := range args {
				for _, err := range validatePath(arg) {
					failed++
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", failed))
			}
			if rootOpts.Verbose {
				fmt.Fprintln(cmd.OutOrStdout(), "all programs valid")
			}
			return nil
		},
	}
}

// validatePath validates one file or every program in a directory.
func validatePath(path string) []error {
	info, err := os.Stat(path)
	if err != nil {
		return []error{WrapExitError(ExitCommandError, path, err)}
	}

	var programs []*compilerResult
	if info.IsDir() {
		loaded, err := compiler.LoadDir(path)
		if err != nil {
			return []error{err}
		}
		for _, p := range loaded {
			programs = append(programs, &compilerResult{path: path, program: p})
		}
	} else {
		p, err := compiler.LoadFile(path)
		if err != nil {
			return []error{err}
		}
		programs = append(programs, &compilerResult{path: path, program: p})
	}

	// A scratch registry runs the same validation the engine would.
	registry := engine.NewRegistry()
	var errs []error
	for _, pr := range programs {
		if err := registry.Register(pr.program); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pr.path, err))
		}
	}
	return errs
}

type compilerResult struct {
	path    string
	program *choreo.Program
}
