package animation

import (
	"sort"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Animation is a keyframe curve driving one property of a target.
type Animation struct {
	Name string
	// TargetProperty is the dot separated property path on the target.
	TargetProperty string
	TargetPath     []string
	FramePerSecond float32
	DataType       DataType
	LoopMode       LoopMode

	EnableBlending bool
	BlendingSpeed  float32

	keys   []Key
	ranges map[string]*Range
	easing EasingFunction
	events []*Event
}

// New creates an empty curve.
func New(name, targetProperty string, framePerSecond float32, dataType DataType, loopMode LoopMode) *Animation {
	return &Animation{
		Name:           name,
		TargetProperty: targetProperty,
		TargetPath:     strings.Split(targetProperty, "."),
		FramePerSecond: framePerSecond,
		DataType:       dataType,
		LoopMode:       loopMode,
		BlendingSpeed:  0.01,
		ranges:         make(map[string]*Range),
	}
}

// Keys returns the key array. Callers must not reorder it.
func (a *Animation) Keys() []Key {
	return a.keys
}

// SetKeys replaces the keys with a copy of keys. Keys are expected in
// ascending frame order.
func (a *Animation) SetKeys(keys []Key) {
	a.keys = append([]Key(nil), keys...)
}

// AddKey inserts k after every key with a frame <= k.Frame.
func (a *Animation) AddKey(k Key) {
	i := sort.Search(len(a.keys), func(i int) bool { return a.keys[i].Frame > k.Frame })
	a.keys = append(a.keys, Key{})
	copy(a.keys[i+1:], a.keys[i:])
	a.keys[i] = k
}

// HighestFrame returns the largest key frame, or 0 without keys.
func (a *Animation) HighestFrame() float32 {
	var highest float32
	for _, k := range a.keys {
		if highest < k.Frame {
			highest = k.Frame
		}
	}
	return highest
}

// SetEasing sets the function applied to the gradient between two keys.
func (a *Animation) SetEasing(e EasingFunction) { a.easing = e }

// Easing returns the easing function, or nil.
func (a *Animation) Easing() EasingFunction { return a.easing }

// CreateRange records a named frame range. An existing range with the same
// name is left untouched.
func (a *Animation) CreateRange(name string, from, to float32) {
	if _, ok := a.ranges[name]; ok {
		return
	}
	a.ranges[name] = &Range{Name: name, From: from, To: to}
}

// DeleteRange removes the named range and, when deleteFrames is set, every
// key whose frame lies within it.
func (a *Animation) DeleteRange(name string, deleteFrames bool) {
	r, ok := a.ranges[name]
	if !ok {
		return
	}
	if deleteFrames {
		// walk backwards so removal does not shift unvisited keys
		for i := len(a.keys) - 1; i >= 0; i-- {
			if a.keys[i].Frame >= r.From && a.keys[i].Frame <= r.To {
				a.keys = append(a.keys[:i], a.keys[i+1:]...)
			}
		}
	}
	delete(a.ranges, name)
}

// Range returns the named range or nil.
func (a *Animation) Range(name string) *Range {
	return a.ranges[name]
}

// Ranges returns all ranges ordered by name.
func (a *Animation) Ranges() []*Range {
	out := make([]*Range, 0, len(a.ranges))
	for _, r := range a.ranges {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clone returns a curve with its own key array and ranges. Key values are
// value types, so the copy is fully independent.
func (a *Animation) Clone() *Animation {
	c := New(a.Name, a.TargetProperty, a.FramePerSecond, a.DataType, a.LoopMode)
	c.EnableBlending = a.EnableBlending
	c.BlendingSpeed = a.BlendingSpeed
	c.easing = a.easing
	c.SetKeys(a.keys)
	for name, r := range a.ranges {
		c.ranges[name] = r.Clone()
	}
	for _, e := range a.events {
		c.events = append(c.events, &Event{Frame: e.Frame, Action: e.Action, OnlyOnce: e.OnlyOnce})
	}
	return c
}

// Evaluate returns the curve value at frame. It returns nil for a curve
// without keys.
//
// Frames before the first key evaluate as the first key, frames after the
// last key return the last value.
func (a *Animation) Evaluate(frame float32, st State) any {
	if st.Loop == LoopConstant && st.RepeatCount > 0 {
		return st.HighLimit
	}

	keys := a.keys
	n := len(keys)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return keys[0].Value
	}
	if frame < keys[0].Frame {
		frame = keys[0].Frame
	}

	// Estimate the bracketing key assuming evenly spaced frames, then
	// correct backwards for overshoot before scanning forward.
	start := 0
	if span := keys[n-1].Frame - keys[0].Frame; span > 0 {
		est := int(math32.Floor(float32(n)*(frame-keys[0].Frame)/span)) - 1
		start = math.Clamp(est, 0, n-1)
	}
	for start-1 >= 0 && keys[start].Frame >= frame {
		start--
	}

	for i := start; i < n-1; i++ {
		end := keys[i+1]
		if end.Frame < frame {
			continue
		}
		return a.interpolate(keys[i], end, frame, st)
	}

	return keys[n-1].Value
}

func (a *Animation) interpolate(startKey, endKey Key, frame float32, st State) any {
	if startKey.Interpolation == InterpolationStep {
		return startKey.Value
	}

	useTangent := startKey.OutTangent != nil && endKey.InTangent != nil
	frameDelta := endKey.Frame - startKey.Frame
	var gradient float32
	if frameDelta > 0 {
		gradient = (frame - startKey.Frame) / frameDelta
	}
	if a.easing != nil {
		gradient = a.easing.Ease(gradient)
	}

	switch a.DataType {
	case TypeFloat:
		start, end := toFloat(startKey.Value), toFloat(endKey.Value)
		var v float32
		if useTangent {
			v = math.Hermite(start, toFloat(startKey.OutTangent)*frameDelta, end, toFloat(endKey.InTangent)*frameDelta, gradient)
		} else {
			v = math.Lerp(start, end, gradient)
		}
		if st.Loop == LoopRelative {
			return toFloat(st.Offset)*float32(st.RepeatCount) + v
		}
		return v

	case TypeQuaternion:
		start, end := startKey.Value.(math.Quat), endKey.Value.(math.Quat)
		var v math.Quat
		if useTangent {
			v = start.Hermite(startKey.OutTangent.(math.Quat).Scale(frameDelta), end, endKey.InTangent.(math.Quat).Scale(frameDelta), gradient)
		} else {
			v = start.Slerp(end, gradient)
		}
		if st.Loop == LoopRelative {
			if off, ok := st.Offset.(math.Quat); ok {
				return v.Add(off.Scale(float32(st.RepeatCount)))
			}
		}
		return v

	case TypeVector3:
		start, end := startKey.Value.(math.Vec3), endKey.Value.(math.Vec3)
		var v math.Vec3
		if useTangent {
			v = start.Hermite(startKey.OutTangent.(math.Vec3).Scale(frameDelta), end, endKey.InTangent.(math.Vec3).Scale(frameDelta), gradient)
		} else {
			v = start.Lerp(end, gradient)
		}
		if st.Loop == LoopRelative {
			if off, ok := st.Offset.(math.Vec3); ok {
				return v.Add(off.Scale(float32(st.RepeatCount)))
			}
		}
		return v

	case TypeVector2:
		start, end := startKey.Value.(math.Vec2), endKey.Value.(math.Vec2)
		var v math.Vec2
		if useTangent {
			v = start.Hermite(startKey.OutTangent.(math.Vec2).Scale(frameDelta), end, endKey.InTangent.(math.Vec2).Scale(frameDelta), gradient)
		} else {
			v = start.Lerp(end, gradient)
		}
		if st.Loop == LoopRelative {
			if off, ok := st.Offset.(math.Vec2); ok {
				return v.Add(off.Scale(float32(st.RepeatCount)))
			}
		}
		return v

	case TypeSize:
		v := startKey.Value.(math.Size).Lerp(endKey.Value.(math.Size), gradient)
		if st.Loop == LoopRelative {
			if off, ok := st.Offset.(math.Size); ok {
				return v.Add(off.Scale(float32(st.RepeatCount)))
			}
		}
		return v

	case TypeColor3:
		v := startKey.Value.(math.Color3).Lerp(endKey.Value.(math.Color3), gradient)
		if st.Loop == LoopRelative {
			if off, ok := st.Offset.(math.Color3); ok {
				return v.Add(off.Scale(float32(st.RepeatCount)))
			}
		}
		return v

	case TypeMatrix:
		start := startKey.Value.(math.Mat4)
		if st.Loop == LoopRelative {
			return start
		}
		switch st.Matrix {
		case MatrixLerp:
			return start.Lerp(endKey.Value.(math.Mat4), gradient)
		case MatrixDecomposeLerp:
			return start.DecomposeLerp(endKey.Value.(math.Mat4), gradient)
		}
		return start
	}

	return startKey.Value
}

// PrepareAnimation builds a two-key curve from from to to over totalFrame
// frames. Matrices and unknown types yield ErrUnsupportedValue.
func PrepareAnimation(name, targetProperty string, framePerSecond, totalFrame float32, from, to any, loopMode LoopMode, easing EasingFunction) (*Animation, error) {
	dataType, err := TypeOf(from)
	if err != nil || dataType == TypeMatrix {
		return nil, ErrUnsupportedValue
	}
	if dataType == TypeFloat {
		from, to = toFloat(from), toFloat(to)
	}

	a := New(name, targetProperty, framePerSecond, dataType, loopMode)
	a.SetKeys([]Key{
		{Frame: 0, Value: from},
		{Frame: totalFrame, Value: to},
	})
	if easing != nil {
		a.SetEasing(easing)
	}
	return a, nil
}
