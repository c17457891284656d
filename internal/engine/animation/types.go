// Package animation implements keyframe curves and the runtime that advances
// them against animated targets once per frame.
//
// Values are carried as any and hold one of float32, math.Vec3, math.Quat,
// math.Mat4, math.Color3, math.Vec2 or math.Size depending on DataType.
package animation

import (
	"errors"

	"github.com/Faultbox/scenegraph/pkg/math"
)

var (
	// ErrStepTooLarge is returned by PathCursor.Move for |step| > 1.
	ErrStepTooLarge = errors.New("animation: step size should be less than 1")
	// ErrUnsupportedValue is returned when a value cannot be classified
	// into an animatable data type.
	ErrUnsupportedValue = errors.New("animation: unsupported value type")
	// ErrMalformedKey is returned by Parse for keys with too few values.
	ErrMalformedKey = errors.New("animation: malformed key")
)

// DataType tags the type of the values a curve interpolates.
// The numeric values are part of the serialized format.
type DataType int

const (
	TypeFloat DataType = iota
	TypeVector3
	TypeQuaternion
	TypeMatrix
	TypeColor3
	TypeVector2
	TypeSize
)

func (t DataType) String() string {
	switch t {
	case TypeFloat:
		return "Float"
	case TypeVector3:
		return "Vector3"
	case TypeQuaternion:
		return "Quaternion"
	case TypeMatrix:
		return "Matrix"
	case TypeColor3:
		return "Color3"
	case TypeVector2:
		return "Vector2"
	case TypeSize:
		return "Size"
	}
	return "Unknown"
}

// components is the number of floats one value of t flattens to.
func (t DataType) components() int {
	switch t {
	case TypeFloat:
		return 1
	case TypeVector2, TypeSize:
		return 2
	case TypeVector3, TypeColor3:
		return 3
	case TypeQuaternion:
		return 4
	case TypeMatrix:
		return 16
	}
	return 0
}

// LoopMode controls what happens once a runtime passes the end of its range.
type LoopMode int

const (
	// LoopRelative restarts and accumulates the range delta each cycle.
	LoopRelative LoopMode = iota
	// LoopCycle restarts from the beginning of the range.
	LoopCycle
	// LoopConstant holds the end value.
	LoopConstant
)

// Interpolation is the per-key blending kind toward the next key.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	// InterpolationStep holds the key value until the next key.
	InterpolationStep
)

// MatrixMode selects how matrix curves blend between keys.
type MatrixMode int

const (
	// MatrixHold returns the start key matrix unchanged.
	MatrixHold MatrixMode = iota
	// MatrixLerp blends every matrix element linearly.
	MatrixLerp
	// MatrixDecomposeLerp blends scale, rotation and translation separately.
	MatrixDecomposeLerp
)

// ParseMatrixMode maps a config name to a MatrixMode. Unknown names hold.
func ParseMatrixMode(s string) MatrixMode {
	switch s {
	case "lerp":
		return MatrixLerp
	case "decompose":
		return MatrixDecomposeLerp
	default:
		return MatrixHold
	}
}

// Key is a single keyframe. Tangents are in per-frame units of the value
// type and are nil when absent.
type Key struct {
	Frame         float32
	Value         any
	InTangent     any
	OutTangent    any
	Interpolation Interpolation
}

// Range is a named frame interval.
type Range struct {
	Name string
	From float32
	To   float32
}

// Clone returns a copy of r.
func (r *Range) Clone() *Range {
	c := *r
	return &c
}

// State carries the runtime context of one Evaluate call.
type State struct {
	RepeatCount int
	Loop        LoopMode
	// Offset is the per-cycle delta added in LoopRelative mode.
	Offset any
	// HighLimit is returned in LoopConstant mode after the first cycle.
	HighLimit any
	Matrix    MatrixMode
}

// zeroValue returns the additive identity for t.
func zeroValue(t DataType) any {
	switch t {
	case TypeFloat:
		return float32(0)
	case TypeVector3:
		return math.Vec3{}
	case TypeQuaternion:
		return math.Quat{}
	case TypeColor3:
		return math.Color3{}
	case TypeVector2:
		return math.Vec2{}
	case TypeSize:
		return math.Size{}
	case TypeMatrix:
		return math.Identity()
	}
	return nil
}

// TypeOf classifies v into a DataType.
func TypeOf(v any) (DataType, error) {
	switch v.(type) {
	case float32, float64, int:
		return TypeFloat, nil
	case math.Vec3:
		return TypeVector3, nil
	case math.Quat:
		return TypeQuaternion, nil
	case math.Mat4:
		return TypeMatrix, nil
	case math.Color3:
		return TypeColor3, nil
	case math.Vec2:
		return TypeVector2, nil
	case math.Size:
		return TypeSize, nil
	}
	return 0, ErrUnsupportedValue
}

func toFloat(v any) float32 {
	switch f := v.(type) {
	case float32:
		return f
	case float64:
		return float32(f)
	case int:
		return float32(f)
	}
	return 0
}
