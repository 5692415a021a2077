package choreo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAction_Classification tests the vocabulary partitions cleanly.
func TestAction_Classification(t *testing.T) {
	animated := []Action{ActionMove, ActionFly, ActionFlash, ActionPulse, ActionDrawBeam, ActionTypeText}
	instant := []Action{ActionSpawn, ActionDestroy, ActionPlaySound}
	structural := []Action{ActionParallel, ActionOnArrive, ActionOnInterrupt}

	for _, a := range animated {
		assert.True(t, a.IsAnimated(), a)
		assert.False(t, a.IsInstant(), a)
		assert.False(t, a.IsStructural(), a)
		assert.True(t, a.IsKnown(), a)
	}
	for _, a := range instant {
		assert.True(t, a.IsInstant(), a)
		assert.False(t, a.IsAnimated(), a)
		assert.True(t, a.IsKnown(), a)
	}
	for _, a := range structural {
		assert.True(t, a.IsStructural(), a)
		assert.True(t, a.IsKnown(), a)
	}

	assert.True(t, ActionWait.IsKnown())
	assert.False(t, ActionWait.IsAnimated())
	assert.False(t, ActionWait.IsInstant())
	assert.False(t, ActionWait.IsStructural())

	assert.False(t, Action("teleport").IsKnown())
}

// TestStep_EntityRef tests the entity/target fallback.
func TestStep_EntityRef(t *testing.T) {
	s := Step{Entity: "agent", Target: "workbench"}
	assert.Equal(t, "agent", s.EntityRef())

	s = Step{Target: "workbench"}
	assert.Equal(t, "workbench", s.EntityRef())

	s = Step{}
	assert.Equal(t, "", s.EntityRef())
}
