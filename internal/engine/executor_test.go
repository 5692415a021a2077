package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchley/marionette/internal/choreo"
)

// TestExecutor_AnimatedLifecycle tests the start/update/complete protocol
// of a single animated step.
func TestExecutor_AnimatedLifecycle(t *testing.T) {
	env := newTestEnv(t, flyProgram("p1", false))

	env.signal("go", nil)
	for i := 0; i < 4; i++ {
		env.sched.Tick(250)
	}

	cmds := env.rec.Commands()
	require.Equal(t, []CommandKind{
		KindStart, KindUpdate, KindUpdate, KindUpdate, KindUpdate, KindComplete,
	}, kinds(cmds))
	assert.Equal(t, 1.0, cmds[4].Progress)
	for _, cmd := range cmds {
		assert.Equal(t, "f1", cmd.StepID)
		assert.Equal(t, "agent", cmd.EntityRef)
	}
}

// TestExecutor_ProgressMonotonic tests eased progress is clamped to [0,1]
// and never decreases.
func TestExecutor_ProgressMonotonic(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "f1", Action: choreo.ActionFly, Entity: "agent", Duration: 1000, Easing: "arc"},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	for i := 0; i < 15; i++ {
		env.sched.Tick(73) // Deliberately uneven ticks.
	}

	prev := -1.0
	for _, cmd := range env.rec.Commands() {
		if cmd.Kind != KindUpdate {
			continue
		}
		assert.GreaterOrEqual(t, cmd.Progress, prev)
		assert.GreaterOrEqual(t, cmd.Progress, 0.0)
		assert.LessOrEqual(t, cmd.Progress, 1.0)
		prev = cmd.Progress
	}
	assert.Equal(t, 1.0, prev)
}

// TestExecutor_ZeroDuration tests that a zero-duration animated step emits
// its full lifecycle on its first advancing tick without dividing by zero.
func TestExecutor_ZeroDuration(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "f1", Action: choreo.ActionFlash, Entity: "agent", Duration: 0},
		{ID: "s1", Action: choreo.ActionSpawn, Entity: "marker"},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(16)

	cmds := env.rec.Commands()
	require.Equal(t, []CommandKind{KindStart, KindUpdate, KindComplete, KindExecute}, kinds(cmds))
	assert.Equal(t, 1.0, cmds[1].Progress)
}

// TestExecutor_Delay tests that a step's delay is consumed before it starts
// and the remainder of the tick flows into the step.
func TestExecutor_Delay(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "m1", Action: choreo.ActionMove, Entity: "agent", Delay: 300, Duration: 400},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(250)
	assert.Empty(t, env.rec.Commands(), "nothing should emit during the delay")

	env.sched.Tick(250)
	cmds := env.rec.Commands()
	require.Equal(t, []CommandKind{KindStart, KindUpdate}, kinds(cmds))
	assert.Equal(t, 0.5, cmds[1].Progress, "leftover 200ms of 400ms duration")
}

// TestExecutor_Wait tests the silent timer: no commands, duration consumed,
// following steps fire on time.
func TestExecutor_Wait(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "w1", Action: choreo.ActionWait, Duration: 600},
		{ID: "s1", Action: choreo.ActionSpawn, Entity: "marker"},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(500)
	assert.Empty(t, env.rec.Commands())

	env.sched.Tick(500)
	cmds := env.rec.Commands()
	require.Equal(t, []CommandKind{KindExecute}, kinds(cmds))
	assert.Equal(t, "marker", cmds[0].EntityRef)
	assert.Equal(t, 0, env.sched.LiveCount())
}

// TestExecutor_SameTickCascade tests that a step finishing mid-tick hands
// its leftover delta to the next step.
func TestExecutor_SameTickCascade(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "m1", Action: choreo.ActionMove, Entity: "agent", Duration: 100},
		{ID: "m2", Action: choreo.ActionMove, Entity: "agent", Duration: 100},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(150)

	cmds := env.rec.Commands()
	require.Equal(t, []CommandKind{
		KindStart, KindUpdate, KindComplete, // m1 finishes with 50ms left
		KindStart, KindUpdate, // m2 absorbs the leftover
	}, kinds(cmds))
	assert.Equal(t, "m1", cmds[2].StepID)
	assert.Equal(t, "m2", cmds[3].StepID)
	assert.Equal(t, 0.5, cmds[4].Progress)
}

// TestExecutor_OnArrive tests the continuation runs on natural completion,
// before the next sibling.
func TestExecutor_OnArrive(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "f1", Action: choreo.ActionFly, Entity: "agent", Duration: 100},
		{ID: "oa", Action: choreo.ActionOnArrive, Children: []choreo.Step{
			{ID: "landed", Action: choreo.ActionSpawn, Entity: "flag"},
		}},
		{ID: "s2", Action: choreo.ActionSpawn, Entity: "marker"},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(100)

	cmds := env.rec.Commands()
	require.Equal(t, []CommandKind{
		KindStart, KindUpdate, KindComplete, KindExecute, KindExecute,
	}, kinds(cmds))
	assert.Equal(t, "flag", cmds[3].EntityRef)
	assert.Equal(t, "marker", cmds[4].EntityRef)
	assert.Equal(t, 0, env.sched.LiveCount())
}

// TestExecutor_OnArriveAndOnInterruptBothAttached tests that only the
// matching continuation fires on natural completion.
func TestExecutor_OnArriveAndOnInterruptBothAttached(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "f1", Action: choreo.ActionFly, Entity: "agent", Duration: 100},
		{ID: "oi", Action: choreo.ActionOnInterrupt, Children: []choreo.Step{
			{ID: "abort", Action: choreo.ActionSpawn, Entity: "debris"},
		}},
		{ID: "oa", Action: choreo.ActionOnArrive, Children: []choreo.Step{
			{ID: "landed", Action: choreo.ActionSpawn, Entity: "flag"},
		}},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(100)

	entities := []string{}
	for _, cmd := range env.rec.Commands() {
		if cmd.Kind == KindExecute {
			entities = append(entities, cmd.EntityRef)
		}
	}
	assert.Equal(t, []string{"flag"}, entities)
	assert.Equal(t, 0, env.sched.LiveCount())
}

// TestExecutor_NestedParallel tests a parallel inside a parallel child.
func TestExecutor_NestedParallel(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "outer", Action: choreo.ActionParallel, Children: []choreo.Step{
			{ID: "inner", Action: choreo.ActionParallel, Children: []choreo.Step{
				{ID: "a", Action: choreo.ActionMove, Entity: "a", Duration: 100},
				{ID: "b", Action: choreo.ActionMove, Entity: "b", Duration: 100},
			}},
			{ID: "c", Action: choreo.ActionMove, Entity: "c", Duration: 200},
		}},
		{ID: "after", Action: choreo.ActionSpawn, Entity: "done-marker"},
	}}
	env := newTestEnv(t, p)

	env.signal("go", nil)
	env.sched.Tick(100)
	env.sched.Tick(100)

	cmds := env.rec.Commands()
	last := cmds[len(cmds)-1]
	assert.Equal(t, KindExecute, last.Kind)
	assert.Equal(t, "done-marker", last.EntityRef)
	assert.Equal(t, 0, env.sched.LiveCount())
}

// TestExecutor_ParamsResolvedOncePerStep tests that each step re-resolves
// against the snapshot independently.
func TestExecutor_ParamsResolvedOncePerStep(t *testing.T) {
	p := &choreo.Program{ID: "p1", On: "go", Steps: []choreo.Step{
		{ID: "s1", Action: choreo.ActionSpawn, Entity: "agent", Params: map[string]any{"v": "signal.x"}},
		{ID: "s2", Action: choreo.ActionPlaySound, Entity: "speaker", Params: map[string]any{"v": "signal.x", "fixed": true}},
	}}
	env := newTestEnv(t, p)

	env.signal("go", map[string]any{"x": float64(7)})
	env.sched.Tick(0)

	cmds := env.rec.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, map[string]any{"v": float64(7)}, cmds[0].Params)
	assert.Equal(t, map[string]any{"v": float64(7), "fixed": true}, cmds[1].Params)
}
