package harness

import (
	"fmt"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/compiler"
	"github.com/finchley/marionette/internal/engine"
)

// Result is the outcome of one scenario run.
type Result struct {
	Pass bool

	// Errors holds one message per failed assertion.
	Errors []string

	// Commands is the full recorded trace in emission order.
	Commands []engine.Recorded

	// Diagnostics collects runtime errors reported during the run.
	Diagnostics []*engine.RuntimeError
}

// Run executes a scenario and validates its assertions.
//
// The run is fully deterministic: a manual clock delivers fixed-size
// ticks, performance IDs are sequential, and programs register in listed
// order. A scenario run twice produces an identical Commands slice.
func Run(scenario *Scenario) (*Result, error) {
	registry := engine.NewRegistry()
	for _, ref := range scenario.Programs {
		prog, err := compiler.LoadFile(scenario.ProgramPath(ref))
		if err != nil {
			return nil, fmt.Errorf("load program: %w", err)
		}
		if err := registry.Register(prog); err != nil {
			return nil, fmt.Errorf("register program %s: %w", prog.ID, err)
		}
	}

	result := &Result{}
	recorder := engine.NewRecorder()
	sched := engine.NewScheduler(registry, recorder,
		engine.WithIDGenerator(engine.NewSequentialGenerator("perf")),
		engine.WithDiagnostics(engine.DiagnosticsFunc(func(err *engine.RuntimeError) {
			result.Diagnostics = append(result.Diagnostics, err)
		})),
	)
	clock := engine.NewManualClock()
	stop := sched.Attach(clock)
	defer stop()

	signals := scenario.sortedSignals()
	next := 0
	deliver := func(now int64) {
		for next < len(signals) && signals[next].At <= now {
			sig := signals[next]
			sched.HandleSignal(choreo.Signal{
				ID:            fmt.Sprintf("sig-%d", next+1),
				Type:          sig.Type,
				Payload:       sig.Payload,
				Timestamp:     sig.At,
				CorrelationID: sig.CorrelationID,
			})
			next++
		}
	}

	for now := int64(0); now < scenario.Duration; now += scenario.Tick {
		deliver(now)
		clock.Advance(scenario.Tick)
	}
	// Signals scripted at the very end still dispatch, primed but not
	// advanced, so their start/execute commands appear in the trace.
	deliver(scenario.Duration)
	clock.Advance(0)

	result.Commands = recorder.Commands()
	for i := range scenario.Assertions {
		if msg := checkAssertion(&scenario.Assertions[i], result.Commands); msg != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("assertions[%d]: %s", i, msg))
		}
	}
	result.Pass = len(result.Errors) == 0
	return result, nil
}
