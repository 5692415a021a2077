package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/compiler"
	"github.com/finchley/marionette/internal/engine"
	"github.com/finchley/marionette/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	ProgramsDir string
	SignalsPath string
	TraceDB     string
	Tick        int64
	Duration    int64
}

// signalLine is one JSON line of the signals file: a signal envelope plus
// its offset from the start of the run.
type signalLine struct {
	At            int64          `json:"at"`
	ID            string         `json:"id,omitempty"`
	Type          string         `json:"type"`
	Payload       map[string]any `json:"payload,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Source        string         `json:"source,omitempty"`
}

// NewRunCommand replays a signal log through the engine deterministically.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a signal log through registered programs",
		Long: "Loads programs, feeds a JSON-lines signal log through the scheduler on\n" +
			"a manual clock, and prints every emitted command. With --db the trace\n" +
			"is also persisted for later inspection with `marionette trace`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ProgramsDir, "programs", "", "directory of .cue/.json programs (required)")
	cmd.Flags().StringVar(&opts.SignalsPath, "signals", "", "JSON-lines signal log, '-' for stdin (required)")
	cmd.Flags().StringVar(&opts.TraceDB, "db", "", "SQLite trace database to append to")
	cmd.Flags().Int64Var(&opts.Tick, "tick", 0, "tick delta in ms (default from config, else 16)")
	cmd.Flags().Int64Var(&opts.Duration, "duration", 0, "run length in ms (default: last signal + 5000)")

	return cmd
}

func runReplay(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) error {
	cfg, err := rootOpts.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	programsDir := opts.ProgramsDir
	if programsDir == "" {
		programsDir = cfg.ProgramsDir
	}
	if programsDir == "" {
		return NewExitError(ExitCommandError, "--programs is required (or programs_dir in config)")
	}
	if opts.SignalsPath == "" {
		return NewExitError(ExitCommandError, "--signals is required")
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = cfg.TickInterval().Milliseconds()
	}

	programs, err := compiler.LoadDir(programsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "load programs", err)
	}
	registry := engine.NewRegistry()
	for _, p := range programs {
		if err := registry.Register(p); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("register program %s", p.ID), err)
		}
	}

	signals, err := readSignals(opts.SignalsPath, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "read signals", err)
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = 5000
		if n := len(signals); n > 0 {
			duration = signals[n-1].At + 5000
		}
	}

	out := cmd.OutOrStdout()
	printer := &printerSink{w: out, format: rootOpts.Format}
	sinks := engine.MultiSink{printer}

	traceDB := opts.TraceDB
	if traceDB == "" {
		traceDB = cfg.TraceDB
	}
	if traceDB != "" {
		store, err := trace.Open(traceDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "open trace db", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	maxPerf := cfg.MaxPerformances()
	schedOpts := []engine.Option{engine.WithIDGenerator(engine.NewSequentialGenerator("perf"))}
	if maxPerf > 0 {
		schedOpts = append(schedOpts, engine.WithMaxPerformances(maxPerf))
	}
	sched := engine.NewScheduler(registry, sinks, schedOpts...)
	clock := engine.NewManualClock()
	stop := sched.Attach(clock)
	defer stop()

	next := 0
	deliver := func(now int64) {
		for next < len(signals) && signals[next].At <= now {
			line := signals[next]
			id := line.ID
			if id == "" {
				id = fmt.Sprintf("sig-%d", next+1)
			}
			sched.HandleSignal(choreo.Signal{
				ID:            id,
				Type:          line.Type,
				Payload:       line.Payload,
				Timestamp:     line.At,
				CorrelationID: line.CorrelationID,
				Source:        line.Source,
			})
			next++
		}
	}
	for now := int64(0); now < duration; now += tick {
		deliver(now)
		clock.Advance(tick)
	}
	deliver(duration)
	clock.Advance(0)
	sched.Dispose()

	if rootOpts.Verbose {
		fmt.Fprintf(out, "replayed %d signal(s) over %dms at %dms/tick\n", len(signals), duration, tick)
	}
	return nil
}

// readSignals parses a JSON-lines signal log and sorts it by offset
// (stable, so same-offset signals keep file order).
func readSignals(path string, stdin io.Reader) ([]signalLine, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var signals []signalLine
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sig signalLine
		if err := json.Unmarshal(line, &sig); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if sig.Type == "" {
			return nil, fmt.Errorf("line %d: signal type is required", lineNo)
		}
		signals = append(signals, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(signals, func(i, j int) bool { return signals[i].At < signals[j].At })
	return signals, nil
}

// printerSink writes each command to the CLI output as it is emitted.
type printerSink struct {
	w      io.Writer
	format string
}

func (p *printerSink) OnActionStart(cmd engine.StartCommand) {
	printCommand(p.w, p.format, engine.Recorded{Kind: engine.KindStart, Action: cmd.Action, EntityRef: cmd.EntityRef, Params: cmd.Params, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (p *printerSink) OnActionUpdate(cmd engine.UpdateCommand) {
	printCommand(p.w, p.format, engine.Recorded{Kind: engine.KindUpdate, Action: cmd.Action, EntityRef: cmd.EntityRef, Progress: cmd.Progress, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (p *printerSink) OnActionComplete(cmd engine.CompleteCommand) {
	printCommand(p.w, p.format, engine.Recorded{Kind: engine.KindComplete, Action: cmd.Action, EntityRef: cmd.EntityRef, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (p *printerSink) OnActionExecute(cmd engine.ExecuteCommand) {
	printCommand(p.w, p.format, engine.Recorded{Kind: engine.KindExecute, Action: cmd.Action, EntityRef: cmd.EntityRef, Params: cmd.Params, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (p *printerSink) OnInterrupt(cmd engine.InterruptCommand) {
	printCommand(p.w, p.format, engine.Recorded{Kind: engine.KindInterrupt, EntityRef: cmd.EntityRef, PerformanceID: cmd.PerformanceID})
}
