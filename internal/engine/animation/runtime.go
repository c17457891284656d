package animation

import (
	"strconv"
	"time"

	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Target is an object whose properties can be animated. Path is the
// TargetPath of the curve.
type Target interface {
	AnimatedProperty(path []string) (any, bool)
	SetAnimatedProperty(path []string, value any) bool
}

// DirtyMarker is implemented by targets that cache derived state.
type DirtyMarker interface {
	MarkAsDirty(property string)
}

// Event fires an action once the runtime passes Frame.
type Event struct {
	Frame    float32
	Action   func()
	OnlyOnce bool
	done     bool
}

// AddEvent registers an action fired when playback reaches frame.
func (a *Animation) AddEvent(frame float32, action func(), onlyOnce bool) {
	a.events = append(a.events, &Event{Frame: frame, Action: action, OnlyOnce: onlyOnce})
}

// RemoveEvents drops every event registered at frame.
func (a *Animation) RemoveEvents(frame float32) {
	kept := a.events[:0]
	for _, e := range a.events {
		if e.Frame != frame {
			kept = append(kept, e)
		}
	}
	a.events = kept
}

// Runtime plays one curve against one target.
type Runtime struct {
	animation *Animation
	target    Target
	matrix    MatrixMode

	offsets    map[string]any
	highLimits map[string]any

	currentFrame   float32
	currentValue   any
	originalValue  any
	blendingFactor float32
	stopped        bool
}

// NewRuntime binds a to target. matrix selects how matrix curves blend.
func NewRuntime(a *Animation, target Target, matrix MatrixMode) *Runtime {
	return &Runtime{
		animation:  a,
		target:     target,
		matrix:     matrix,
		offsets:    make(map[string]any),
		highLimits: make(map[string]any),
	}
}

func (r *Runtime) Animation() *Animation { return r.animation }
func (r *Runtime) Target() Target        { return r.target }
func (r *Runtime) CurrentFrame() float32 { return r.currentFrame }
func (r *Runtime) CurrentValue() any     { return r.currentValue }
func (r *Runtime) IsStopped() bool       { return r.stopped }

// Reset clears the caches and blending state.
func (r *Runtime) Reset() {
	r.offsets = make(map[string]any)
	r.highLimits = make(map[string]any)
	r.currentFrame = 0
	r.blendingFactor = 0
	r.originalValue = nil
	r.stopped = false
	for _, e := range r.animation.events {
		e.done = false
	}
}

// GoToFrame evaluates the curve at frame and writes the value to the target.
func (r *Runtime) GoToFrame(frame float32) {
	keys := r.animation.keys
	if len(keys) == 0 {
		return
	}
	frame = math.Clamp(frame, keys[0].Frame, keys[len(keys)-1].Frame)
	r.currentFrame = frame
	r.setValue(r.animation.Evaluate(frame, State{Loop: LoopCycle, Matrix: r.matrix}))
}

// Animate advances playback to elapsed time since start, playing [from,to].
// It returns false once a non-looping runtime has passed to.
func (r *Runtime) Animate(elapsed time.Duration, from, to float32, loop bool, speedRatio float32) bool {
	a := r.animation
	if len(a.TargetPath) == 0 || a.TargetPath[0] == "" || len(a.keys) == 0 {
		r.stopped = true
		return false
	}
	running := true

	// Playback always starts at frame 0.
	if a.keys[0].Frame != 0 {
		a.keys = append([]Key{{Frame: 0, Value: a.keys[0].Value}}, a.keys...)
	}
	keys := a.keys
	first, last := keys[0].Frame, keys[len(keys)-1].Frame

	if from < first || from > last {
		from = first
	}
	if to < first || to > last {
		to = last
	}
	if from == to {
		if from > first {
			from--
		} else if to < last {
			to++
		}
	}

	span := to - from
	ratio := float32(elapsed.Seconds()) * a.FramePerSecond * speedRatio

	var offset, highLimit any
	if ((to > from && ratio > span) || (from > to && ratio < span)) && !loop {
		running = false
		highLimit = keys[len(keys)-1].Value
	} else if a.LoopMode != LoopCycle {
		cacheKey := strconv.FormatFloat(float64(to), 'g', -1, 32) + ":" + strconv.FormatFloat(float64(from), 'g', -1, 32)
		if _, ok := r.highLimits[cacheKey]; !ok {
			fromValue := a.Evaluate(from, State{Loop: LoopCycle, Matrix: r.matrix})
			toValue := a.Evaluate(to, State{Loop: LoopCycle, Matrix: r.matrix})
			r.offsets[cacheKey] = subtract(a.DataType, toValue, fromValue)
			r.highLimits[cacheKey] = toValue
		}
		highLimit = r.highLimits[cacheKey]
		offset = r.offsets[cacheKey]
	}
	if offset == nil {
		offset = zeroValue(a.DataType)
	}

	repeatCount := 0
	currentFrame := to
	if span != 0 {
		repeatCount = int(ratio / span)
		if running {
			currentFrame = from + math32.Mod(ratio, span)
		}
	}
	r.currentFrame = currentFrame

	value := a.Evaluate(currentFrame, State{
		RepeatCount: repeatCount,
		Loop:        a.LoopMode,
		Offset:      offset,
		HighLimit:   highLimit,
		Matrix:      r.matrix,
	})
	r.setValue(value)
	r.fireEvents(currentFrame, from, span)

	if !running {
		r.stopped = true
	}
	return running
}

func (r *Runtime) fireEvents(currentFrame, from, span float32) {
	a := r.animation
	for i := 0; i < len(a.events); i++ {
		e := a.events[i]
		passed := (span > 0 && currentFrame >= e.Frame && e.Frame >= from) ||
			(span < 0 && currentFrame <= e.Frame && e.Frame <= from)
		if !passed {
			if e.done && !e.OnlyOnce {
				e.done = false
			}
			continue
		}
		if e.done {
			continue
		}
		if e.OnlyOnce {
			a.events = append(a.events[:i], a.events[i+1:]...)
			i--
		}
		e.done = true
		e.Action()
	}
}

func (r *Runtime) setValue(value any) {
	if value == nil {
		return
	}
	a := r.animation
	if a.EnableBlending && r.blendingFactor <= 1 {
		if r.originalValue == nil {
			if orig, ok := r.target.AnimatedProperty(a.TargetPath); ok {
				r.originalValue = orig
			}
		}
		if r.originalValue != nil {
			value = blend(a.DataType, r.originalValue, value, r.blendingFactor)
		}
		r.blendingFactor += a.BlendingSpeed
	}
	r.currentValue = value
	r.target.SetAnimatedProperty(a.TargetPath, value)
	if d, ok := r.target.(DirtyMarker); ok {
		d.MarkAsDirty(a.TargetProperty)
	}
}

// blend moves from original toward current by factor.
func blend(t DataType, original, current any, factor float32) any {
	switch t {
	case TypeFloat:
		o := toFloat(original)
		return o*(1-factor) + toFloat(current)*factor
	case TypeVector3:
		return original.(math.Vec3).Lerp(current.(math.Vec3), factor)
	case TypeQuaternion:
		return original.(math.Quat).Slerp(current.(math.Quat), factor)
	case TypeMatrix:
		return original.(math.Mat4).Lerp(current.(math.Mat4), factor)
	case TypeColor3:
		return original.(math.Color3).Lerp(current.(math.Color3), factor)
	case TypeVector2:
		return original.(math.Vec2).Lerp(current.(math.Vec2), factor)
	case TypeSize:
		return original.(math.Size).Lerp(current.(math.Size), factor)
	}
	return current
}

// subtract returns a - b, or nil for matrices which have no offset.
func subtract(t DataType, a, b any) any {
	switch t {
	case TypeFloat:
		return toFloat(a) - toFloat(b)
	case TypeVector3:
		return a.(math.Vec3).Sub(b.(math.Vec3))
	case TypeQuaternion:
		return a.(math.Quat).Sub(b.(math.Quat))
	case TypeColor3:
		return a.(math.Color3).Sub(b.(math.Color3))
	case TypeVector2:
		return a.(math.Vec2).Sub(b.(math.Vec2))
	case TypeSize:
		return a.(math.Size).Sub(b.(math.Size))
	}
	return nil
}
