package animation

import (
	"fmt"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// SerializedKey is the persisted form of a Key. Values holds the key value
// followed by optional in and out tangent blocks of the same width.
type SerializedKey struct {
	Frame         float32   `json:"frame"`
	Values        []float32 `json:"values"`
	Interpolation int       `json:"interpolation,omitempty"`
}

// SerializedRange is the persisted form of a Range.
type SerializedRange struct {
	Name string  `json:"name"`
	From float32 `json:"from"`
	To   float32 `json:"to"`
}

// Serialized is the persisted form of an Animation.
type Serialized struct {
	Name           string            `json:"name"`
	Property       string            `json:"property"`
	FramePerSecond float32           `json:"framePerSecond"`
	DataType       DataType          `json:"dataType"`
	LoopBehavior   LoopMode          `json:"loopBehavior"`
	EnableBlending bool              `json:"enableBlending,omitempty"`
	BlendingSpeed  float32           `json:"blendingSpeed,omitempty"`
	Keys           []SerializedKey   `json:"keys"`
	Ranges         []SerializedRange `json:"ranges"`
}

// Serialize flattens the curve into its persisted form.
func (a *Animation) Serialize() *Serialized {
	s := &Serialized{
		Name:           a.Name,
		Property:       a.TargetProperty,
		FramePerSecond: a.FramePerSecond,
		DataType:       a.DataType,
		LoopBehavior:   a.LoopMode,
		EnableBlending: a.EnableBlending,
		BlendingSpeed:  a.BlendingSpeed,
		Keys:           make([]SerializedKey, 0, len(a.keys)),
		Ranges:         make([]SerializedRange, 0, len(a.ranges)),
	}

	width := a.DataType.components()
	for _, k := range a.keys {
		values := flatten(k.Value)
		if k.InTangent != nil || k.OutTangent != nil {
			values = append(values, tangentBlock(k.InTangent, width)...)
		}
		if k.OutTangent != nil {
			values = append(values, flatten(k.OutTangent)...)
		}
		s.Keys = append(s.Keys, SerializedKey{
			Frame:         k.Frame,
			Values:        values,
			Interpolation: int(k.Interpolation),
		})
	}

	for _, r := range a.Ranges() {
		s.Ranges = append(s.Ranges, SerializedRange{Name: r.Name, From: r.From, To: r.To})
	}
	return s
}

// Parse rebuilds a curve from its persisted form. A tangent block of all
// zeros is read as no tangent.
func Parse(s *Serialized) (*Animation, error) {
	a := New(s.Name, s.Property, s.FramePerSecond, s.DataType, s.LoopBehavior)
	a.EnableBlending = s.EnableBlending
	if s.BlendingSpeed != 0 {
		a.BlendingSpeed = s.BlendingSpeed
	}

	width := s.DataType.components()
	if width == 0 {
		return nil, fmt.Errorf("parsing animation %q: data type %d: %w", s.Name, s.DataType, ErrUnsupportedValue)
	}

	keys := make([]Key, 0, len(s.Keys))
	for i, sk := range s.Keys {
		if len(sk.Values) < width {
			return nil, fmt.Errorf("parsing animation %q key %d: %d values for %s: %w",
				s.Name, i, len(sk.Values), s.DataType, ErrMalformedKey)
		}
		k := Key{
			Frame:         sk.Frame,
			Value:         unflatten(s.DataType, sk.Values[:width]),
			Interpolation: Interpolation(sk.Interpolation),
		}
		if len(sk.Values) >= 2*width && !allZero(sk.Values[width:2*width]) {
			k.InTangent = unflatten(s.DataType, sk.Values[width:2*width])
		}
		if len(sk.Values) >= 3*width && !allZero(sk.Values[2*width:3*width]) {
			k.OutTangent = unflatten(s.DataType, sk.Values[2*width:3*width])
		}
		keys = append(keys, k)
	}
	a.SetKeys(keys)

	for _, r := range s.Ranges {
		a.CreateRange(r.Name, r.From, r.To)
	}
	return a, nil
}

func tangentBlock(v any, width int) []float32 {
	if v == nil {
		return make([]float32, width)
	}
	return flatten(v)
}

func allZero(values []float32) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

// flatten returns the component array of a value.
func flatten(v any) []float32 {
	switch t := v.(type) {
	case float32, float64, int:
		return []float32{toFloat(t)}
	case math.Vec3:
		return t.Array()
	case math.Quat:
		return t.Array()
	case math.Mat4:
		return append([]float32(nil), t[:]...)
	case math.Color3:
		return t.Array()
	case math.Vec2:
		return t.Array()
	case math.Size:
		return t.Array()
	}
	return nil
}

func unflatten(t DataType, values []float32) any {
	switch t {
	case TypeFloat:
		return values[0]
	case TypeVector3:
		return math.Vec3FromSlice(values, 0)
	case TypeQuaternion:
		return math.QuatFromSlice(values, 0)
	case TypeMatrix:
		return math.Mat4FromSlice(values, 0)
	case TypeColor3:
		return math.Color3{R: values[0], G: values[1], B: values[2]}
	case TypeVector2:
		return math.Vec2FromSlice(values, 0)
	case TypeSize:
		return math.Size{Width: values[0], Height: values[1]}
	}
	return nil
}
