package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finchley/marionette/internal/trace"
)

// NewTraceCommand reads back a persisted command trace.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath    string
		perfID    string
		countOnly bool
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a persisted command trace",
		Long: "Reads commands back from a SQLite trace database in emission order.\n" +
			"With --performance only that performance's commands are shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if dbPath == "" {
				dbPath = cfg.TraceDB
			}
			if dbPath == "" {
				return NewExitError(ExitCommandError, "--db is required (or trace_db in config)")
			}

			store, err := trace.Open(dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open trace db", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if countOnly {
				n, err := store.Count()
				if err != nil {
					return WrapExitError(ExitFailure, "count trace", err)
				}
				fmt.Fprintln(out, n)
				return nil
			}

			var rows []trace.Row
			if perfID != "" {
				rows, err = store.ReadPerformance(perfID)
			} else {
				rows, err = store.ReadAll()
			}
			if err != nil {
				return WrapExitError(ExitFailure, "read trace", err)
			}
			for _, row := range rows {
				printCommand(out, rootOpts.Format, row.Command)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite trace database (required)")
	cmd.Flags().StringVar(&perfID, "performance", "", "show only this performance")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of recorded commands")

	return cmd
}
