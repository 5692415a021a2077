package trace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStore_RoundTrip tests that commands read back in emission order with
// their fields intact.
func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	s.OnActionExecute(engine.ExecuteCommand{
		Action: choreo.ActionSpawn, EntityRef: "agent",
		Params:        map[string]any{"label": "builder"},
		PerformanceID: "perf-1", StepID: "s1",
	})
	s.OnActionStart(engine.StartCommand{
		Action: choreo.ActionFly, EntityRef: "agent",
		PerformanceID: "perf-1", StepID: "s2",
	})
	s.OnActionUpdate(engine.UpdateCommand{
		Action: choreo.ActionFly, EntityRef: "agent", Progress: 0.25,
		PerformanceID: "perf-1", StepID: "s2",
	})
	s.OnActionComplete(engine.CompleteCommand{
		Action: choreo.ActionFly, EntityRef: "agent",
		PerformanceID: "perf-1", StepID: "s2",
	})
	s.OnInterrupt(engine.InterruptCommand{PerformanceID: "perf-2", EntityRef: "agent"})
	require.NoError(t, s.Err())

	rows, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, engine.KindExecute, rows[0].Command.Kind)
	assert.Equal(t, choreo.ActionSpawn, rows[0].Command.Action)
	assert.Equal(t, map[string]any{"label": "builder"}, rows[0].Command.Params)

	assert.Equal(t, engine.KindUpdate, rows[2].Command.Kind)
	assert.Equal(t, 0.25, rows[2].Command.Progress)

	assert.Equal(t, engine.KindInterrupt, rows[4].Command.Kind)
	assert.Equal(t, "perf-2", rows[4].Command.PerformanceID)

	// Sequence numbers are strictly increasing.
	for i := 1; i < len(rows); i++ {
		assert.Greater(t, rows[i].Seq, rows[i-1].Seq)
	}

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

// TestStore_ReadPerformance tests per-performance filtering.
func TestStore_ReadPerformance(t *testing.T) {
	s := openTestStore(t)
	s.OnActionExecute(engine.ExecuteCommand{Action: choreo.ActionSpawn, EntityRef: "a", PerformanceID: "perf-1", StepID: "s1"})
	s.OnActionExecute(engine.ExecuteCommand{Action: choreo.ActionSpawn, EntityRef: "b", PerformanceID: "perf-2", StepID: "s1"})
	s.OnActionExecute(engine.ExecuteCommand{Action: choreo.ActionDestroy, EntityRef: "a", PerformanceID: "perf-1", StepID: "s2"})

	rows, err := s.ReadPerformance("perf-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, choreo.ActionSpawn, rows[0].Command.Action)
	assert.Equal(t, choreo.ActionDestroy, rows[1].Command.Action)
}

// TestStore_AsSchedulerSink tests the store wired as the engine's sink.
func TestStore_AsSchedulerSink(t *testing.T) {
	s := openTestStore(t)

	registry := engine.NewRegistry()
	require.NoError(t, registry.Register(&choreo.Program{
		ID: "p1", On: "go", Steps: []choreo.Step{
			{ID: "s1", Action: choreo.ActionSpawn, Entity: "agent"},
			{ID: "s2", Action: choreo.ActionMove, Entity: "agent", Duration: 100},
		},
	}))
	sched := engine.NewScheduler(registry, s,
		engine.WithIDGenerator(engine.NewSequentialGenerator("perf")))

	sched.HandleSignal(choreo.Signal{Type: "go"})
	sched.Tick(100)

	require.NoError(t, s.Err())
	rows, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // execute, start, update(1.0), complete

	assert.Equal(t, engine.KindExecute, rows[0].Command.Kind)
	assert.Equal(t, engine.KindComplete, rows[3].Command.Kind)
}

// TestStore_PersistsAcrossOpen tests durability on a file-backed database.
func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	s, err := Open(path)
	require.NoError(t, err)
	s.OnActionExecute(engine.ExecuteCommand{Action: choreo.ActionSpawn, EntityRef: "a", PerformanceID: "perf-1", StepID: "s1"})
	require.NoError(t, s.Err())
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
