package animation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/pkg/math"
)

func TestSerializeRoundTripAllTypes(t *testing.T) {
	tests := []struct {
		dataType DataType
		a, b     any
	}{
		{TypeFloat, float32(1), float32(2)},
		{TypeVector3, math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3{X: 4, Y: 5, Z: 6}},
		{TypeQuaternion, math.QuatIdentity(), math.Quat{X: 0, Y: 0.7071, Z: 0, W: 0.7071}},
		{TypeMatrix, math.Identity(), math.Translate(1, 2, 3)},
		{TypeColor3, math.Color3{R: 1}, math.Color3{G: 1}},
		{TypeVector2, math.Vec2{X: 1}, math.Vec2{Y: 1}},
		{TypeSize, math.Size{Width: 1, Height: 2}, math.Size{Width: 3, Height: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.dataType.String(), func(t *testing.T) {
			a := New("anim", "prop.sub", 24, tt.dataType, LoopConstant)
			a.SetKeys([]Key{
				{Frame: 0, Value: tt.a, Interpolation: InterpolationStep},
				{Frame: 12, Value: tt.b},
			})
			a.CreateRange("idle", 0, 12)
			a.EnableBlending = true
			a.BlendingSpeed = 0.05

			data, err := json.Marshal(a.Serialize())
			require.NoError(t, err)

			var s Serialized
			require.NoError(t, json.Unmarshal(data, &s))
			parsed, err := Parse(&s)
			require.NoError(t, err)

			assert.Equal(t, a.Name, parsed.Name)
			assert.Equal(t, []string{"prop", "sub"}, parsed.TargetPath)
			assert.Equal(t, a.DataType, parsed.DataType)
			assert.Equal(t, a.LoopMode, parsed.LoopMode)
			assert.True(t, parsed.EnableBlending)
			assert.Equal(t, float32(0.05), parsed.BlendingSpeed)
			assert.Equal(t, a.Keys(), parsed.Keys())
			require.NotNil(t, parsed.Range("idle"))
			assert.Equal(t, float32(12), parsed.Range("idle").To)
		})
	}
}

func TestSerializeFieldNames(t *testing.T) {
	a := New("spin", "rotation.y", 30, TypeFloat, LoopCycle)
	a.SetKeys([]Key{{Frame: 0, Value: float32(0)}, {Frame: 30, Value: float32(6.28)}})
	a.CreateRange("r", 0, 30)

	data, err := json.Marshal(a.Serialize())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"name", "property", "framePerSecond", "dataType", "loopBehavior", "keys", "ranges"} {
		assert.Contains(t, raw, field)
	}
	assert.Equal(t, float64(1), raw["loopBehavior"])
	keys := raw["keys"].([]any)
	assert.Equal(t, []any{float64(0)}, keys[0].(map[string]any)["values"])
}

func TestQuaternionTangents(t *testing.T) {
	tangent := math.Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.4}
	a := New("q", "rotationQuaternion", 30, TypeQuaternion, LoopCycle)
	a.SetKeys([]Key{
		{Frame: 0, Value: math.QuatIdentity(), OutTangent: tangent},
		{Frame: 10, Value: math.QuatIdentity(), InTangent: tangent},
	})

	s := a.Serialize()
	assert.Len(t, s.Keys[0].Values, 12, "value, zero in block, out block")
	assert.Len(t, s.Keys[1].Values, 8, "value, in block")

	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Nil(t, parsed.Keys()[0].InTangent, "all zero block means no tangent")
	assert.Equal(t, tangent, parsed.Keys()[0].OutTangent)
	assert.Equal(t, tangent, parsed.Keys()[1].InTangent)
	assert.Nil(t, parsed.Keys()[1].OutTangent)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(&Serialized{Name: "x", DataType: TypeVector3, Keys: []SerializedKey{{Frame: 0, Values: []float32{1}}}})
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, err = Parse(&Serialized{Name: "x", DataType: DataType(42)})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}
