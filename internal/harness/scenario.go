package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario describes one scripted choreography run.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Programs name the choreography programs to register, in order.
	Programs []ProgramRef `yaml:"programs"`

	// Signals arrive at their At offsets (milliseconds from scenario
	// start). Signals sharing an offset dispatch in listed order.
	Signals []SignalStep `yaml:"signals"`

	// Tick is the clock delta per tick in milliseconds.
	Tick int64 `yaml:"tick"`

	// Duration is the total scripted time in milliseconds.
	Duration int64 `yaml:"duration"`

	Assertions []Assertion `yaml:"assertions,omitempty"`

	// basePath resolves relative program paths; set by LoadScenario.
	basePath string
}

// ProgramRef points at a program file, relative to the scenario file.
type ProgramRef struct {
	Path string `yaml:"path"`
}

// SignalStep is one scripted signal.
type SignalStep struct {
	At            int64          `yaml:"at"`
	Type          string         `yaml:"type"`
	Payload       map[string]any `yaml:"payload,omitempty"`
	CorrelationID string         `yaml:"correlation_id,omitempty"`
}

// Assertion validates the recorded trace after the run.
type Assertion struct {
	Type string `yaml:"type"`

	// Matcher fields for trace_contains and trace_count.
	Kind   string `yaml:"kind,omitempty"`
	Action string `yaml:"action,omitempty"`
	Entity string `yaml:"entity,omitempty"`
	StepID string `yaml:"step_id,omitempty"`
	Count  int    `yaml:"count,omitempty"`

	// Sequence holds ordered matchers for trace_order.
	Sequence []Matcher `yaml:"sequence,omitempty"`
}

// Matcher selects commands by any combination of fields; empty fields
// match anything.
type Matcher struct {
	Kind   string `yaml:"kind,omitempty"`
	Action string `yaml:"action,omitempty"`
	Entity string `yaml:"entity,omitempty"`
	StepID string `yaml:"step_id,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and validates a scenario YAML file. Relative program
// paths resolve against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	s.basePath = filepath.Dir(path)
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// ProgramPath resolves a program reference against the scenario location.
func (s *Scenario) ProgramPath(ref ProgramRef) string {
	if filepath.IsAbs(ref.Path) || s.basePath == "" {
		return ref.Path
	}
	return filepath.Join(s.basePath, ref.Path)
}

// sortedSignals returns signals ordered by At, stable for equal offsets.
func (s *Scenario) sortedSignals() []SignalStep {
	out := make([]SignalStep, len(s.Signals))
	copy(out, s.Signals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Programs) == 0 {
		return fmt.Errorf("at least one program is required")
	}
	for i, ref := range s.Programs {
		if ref.Path == "" {
			return fmt.Errorf("programs[%d]: path is required", i)
		}
	}
	if s.Tick <= 0 {
		return fmt.Errorf("tick must be > 0")
	}
	if s.Duration < 0 {
		return fmt.Errorf("duration must be >= 0")
	}
	for i, sig := range s.Signals {
		if sig.Type == "" {
			return fmt.Errorf("signals[%d]: type is required", i)
		}
		if sig.At < 0 {
			return fmt.Errorf("signals[%d]: at must be >= 0", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
	case AssertTraceCount:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: trace_count needs count > 0", index)
		}
	case AssertTraceOrder:
		if len(a.Sequence) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order needs at least two sequence entries", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
