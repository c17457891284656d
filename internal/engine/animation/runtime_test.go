package animation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/pkg/math"
)

type fakeTarget struct {
	values map[string]any
	dirty  []string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{values: map[string]any{}}
}

func (f *fakeTarget) AnimatedProperty(path []string) (any, bool) {
	v, ok := f.values[path[0]]
	return v, ok
}

func (f *fakeTarget) SetAnimatedProperty(path []string, value any) bool {
	f.values[path[0]] = value
	return true
}

func (f *fakeTarget) MarkAsDirty(property string) {
	f.dirty = append(f.dirty, property)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestRuntimeCycle(t *testing.T) {
	a := floatCurve(LoopCycle, 0, 0, 10, 10)
	a.FramePerSecond = 10
	target := newFakeTarget()
	r := NewRuntime(a, target, MatrixHold)

	// 1.5s at 10 fps is frame 15, which wraps to 5
	require.True(t, r.Animate(seconds(1.5), 0, 10, true, 1))
	assert.InDelta(t, 5, target.values["value"], 1e-4)
	assert.InDelta(t, 5, r.CurrentFrame(), 1e-4)
	assert.Equal(t, []string{"value"}, target.dirty)
}

func TestRuntimeRelativeAccumulates(t *testing.T) {
	a := floatCurve(LoopRelative, 0, 0, 10, 10)
	a.FramePerSecond = 10
	target := newFakeTarget()
	r := NewRuntime(a, target, MatrixHold)

	require.True(t, r.Animate(seconds(2.5), 0, 10, true, 1))
	assert.InDelta(t, 25, target.values["value"], 1e-4)
}

func TestRuntimeStopsWithoutLoop(t *testing.T) {
	a := floatCurve(LoopConstant, 0, 0, 10, 10)
	a.FramePerSecond = 10
	target := newFakeTarget()
	r := NewRuntime(a, target, MatrixHold)

	assert.True(t, r.Animate(seconds(0.5), 0, 10, false, 1))
	assert.False(t, r.Animate(seconds(2), 0, 10, false, 1))
	assert.True(t, r.IsStopped())
	assert.InDelta(t, 10, target.values["value"], 1e-6)
}

func TestRuntimeInsertsFrameZero(t *testing.T) {
	a := floatCurve(LoopCycle, 5, 1, 10, 2)
	r := NewRuntime(a, newFakeTarget(), MatrixHold)
	r.Animate(0, 0, 10, true, 1)

	require.Len(t, a.Keys(), 3)
	assert.Equal(t, float32(0), a.Keys()[0].Frame)
	assert.Equal(t, float32(1), a.Keys()[0].Value)
}

func TestRuntimeBlending(t *testing.T) {
	a := New("v", "position", 10, TypeVector3, LoopCycle)
	a.SetKeys([]Key{{Frame: 0, Value: math.Vec3{X: 10}}, {Frame: 10, Value: math.Vec3{X: 10}}})
	a.EnableBlending = true
	a.BlendingSpeed = 0.5

	target := newFakeTarget()
	target.values["position"] = math.Vec3{}
	r := NewRuntime(a, target, MatrixHold)

	r.Animate(0, 0, 10, true, 1)
	assert.InDelta(t, 0, target.values["position"].(math.Vec3).X, 1e-6)
	r.Animate(seconds(0.1), 0, 10, true, 1)
	assert.InDelta(t, 5, target.values["position"].(math.Vec3).X, 1e-6)
	r.Animate(seconds(0.2), 0, 10, true, 1)
	assert.InDelta(t, 10, target.values["position"].(math.Vec3).X, 1e-6)
}

func TestRuntimeEvents(t *testing.T) {
	a := floatCurve(LoopCycle, 0, 0, 10, 10)
	a.FramePerSecond = 10
	var fired, once int
	a.AddEvent(5, func() { fired++ }, false)
	a.AddEvent(5, func() { once++ }, true)

	r := NewRuntime(a, newFakeTarget(), MatrixHold)
	r.Animate(seconds(0.6), 0, 10, true, 1) // frame 6
	r.Animate(seconds(0.7), 0, 10, true, 1) // frame 7, already done
	r.Animate(seconds(1.2), 0, 10, true, 1) // frame 2, rearms
	r.Animate(seconds(1.6), 0, 10, true, 1) // frame 6 again

	assert.Equal(t, 2, fired)
	assert.Equal(t, 1, once)
}

func TestGoToFrame(t *testing.T) {
	a := floatCurve(LoopCycle, 0, 0, 10, 10)
	target := newFakeTarget()
	r := NewRuntime(a, target, MatrixHold)

	r.GoToFrame(20)
	assert.InDelta(t, 10, target.values["value"], 1e-6)
	r.GoToFrame(3)
	assert.InDelta(t, 3, target.values["value"], 1e-6)
}

func TestAnimatablePauseAndEnd(t *testing.T) {
	a := floatCurve(LoopCycle, 0, 0, 100, 100)
	a.FramePerSecond = 10
	target := newFakeTarget()
	ended := 0
	anim := NewAnimatable(target, 0, 100, false, 1, func() { ended++ }, []*Animation{a}, MatrixHold)

	// starts counting from the first call
	require.True(t, anim.Animate(seconds(100)))
	require.True(t, anim.Animate(seconds(100.5)))
	assert.InDelta(t, 5, target.values["value"], 1e-3)

	anim.Pause()
	require.True(t, anim.Animate(seconds(101)))
	assert.False(t, anim.Started())
	require.True(t, anim.Animate(seconds(105)))
	anim.Restart()
	// playback resumes from where the first paused frame pinned it
	require.True(t, anim.Animate(seconds(105.2)))
	assert.InDelta(t, 10, target.values["value"], 1e-3)
	require.True(t, anim.Animate(seconds(105.4)))
	assert.InDelta(t, 12, target.values["value"], 1e-3)

	assert.False(t, anim.Animate(seconds(200)))
	assert.True(t, anim.Finished())
	assert.Equal(t, 1, ended)
	assert.False(t, anim.Animate(seconds(201)))
	assert.Equal(t, 1, ended)
}

func TestAnimatableStopByName(t *testing.T) {
	a := floatCurve(LoopCycle, 0, 0, 10, 10)
	b := floatCurve(LoopCycle, 0, 0, 10, 10)
	b.Name = "other"
	ended := false
	anim := NewAnimatable(newFakeTarget(), 0, 10, true, 1, func() { ended = true }, []*Animation{a, b}, MatrixHold)

	anim.Stop("other")
	assert.Len(t, anim.Runtimes(), 1)
	assert.False(t, ended)
	assert.Same(t, a, anim.AnimationByTargetProperty("value"))

	anim.Stop("")
	assert.True(t, ended)
	assert.Empty(t, anim.Runtimes())
}
