package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchley/marionette/internal/harness"
)

// NewTestCommand runs scenario files and reports assertion results.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run scenario files against the engine",
		Long: "Runs each YAML scenario on a deterministic manual clock and checks\n" +
			"its assertions against the recorded command trace. Exits non-zero\n" +
			"if any scenario fails.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectScenarioPaths(args)
			if err != nil {
				return WrapExitError(ExitCommandError, "collect scenarios", err)
			}
			if len(paths) == 0 {
				return NewExitError(ExitCommandError, "no scenario files found")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range paths {
				scenario, err := harness.LoadScenario(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					continue
				}
				result, err := harness.Run(scenario)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", scenario.Name, err)
					continue
				}
				if result.Pass {
					fmt.Fprintf(out, "PASS %s (%d commands)\n", scenario.Name, len(result.Commands))
				} else {
					failed++
					fmt.Fprintf(out, "FAIL %s\n", scenario.Name)
					for _, msg := range result.Errors {
						fmt.Fprintf(out, "  %s\n", msg)
					}
				}
				if rootOpts.Verbose {
					for _, diag := range result.Diagnostics {
						fmt.Fprintf(out, "  diagnostic: %s\n", diag.Error())
					}
				}
			}

			fmt.Fprintf(out, "%d scenario(s), %d failed\n", len(paths), failed)
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
			}
			return nil
		},
	}
	return cmd
}

// collectScenarioPaths expands directory arguments into the .yaml files
// beneath them, sorted for stable run order.
func collectScenarioPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".yaml" || ext == ".yml" {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}
