package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/scenegraph/internal/engine/camera"
)

func TestNextRigMode(t *testing.T) {
	mode := camera.RigNone
	seen := map[camera.RigMode]bool{}
	for range rigCycle {
		seen[mode] = true
		mode = nextRigMode(mode)
	}
	assert.Equal(t, camera.RigNone, mode, "cycle wraps")
	assert.Len(t, seen, len(rigCycle))
	assert.Equal(t, camera.RigNone, nextRigMode(camera.RigWebVR))
}

func TestTasksRunOnDrain(t *testing.T) {
	v := &Viewer{tasks: make(chan func(), 2)}
	var ran []int
	v.post(func() { ran = append(ran, 1) })
	v.post(func() { ran = append(ran, 2) })
	v.post(func() { ran = append(ran, 3) })
	assert.Empty(t, ran)

	v.runTasks()
	assert.Equal(t, []int{1, 2}, ran, "tasks past the queue size are dropped")
	v.runTasks()
	assert.Len(t, ran, 2)
}
