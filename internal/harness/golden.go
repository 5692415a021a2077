package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/finchley/marionette/internal/choreo"
)

// TraceSnapshot is the canonical form of a scenario trace for golden
// comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []map[string]any
}

// Marshal serializes the snapshot as indented canonical JSON. Key order
// and float formatting are deterministic, so golden files diff cleanly.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	doc := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         anySlice(s.Trace),
	}
	raw, err := choreo.MarshalCanonical(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func anySlice(maps []map[string]any) []any {
	out := make([]any, len(maps))
	for i, m := range maps {
		out[i] = m
	}
	return out
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}

	snapshot := TraceSnapshot{ScenarioName: scenario.Name}
	for _, cmd := range result.Commands {
		snapshot.Trace = append(snapshot.Trace, cmd.ToMap())
	}
	data, err := snapshot.Marshal()
	if err != nil {
		t.Fatalf("scenario %s trace not serializable: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result
}
