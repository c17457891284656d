package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/pkg/math"
)

func TestBox(t *testing.T) {
	vd := box(2)
	require.Len(t, vd.Positions, 24*3)
	require.Len(t, vd.Normals, 24*3)
	assert.Len(t, vd.UVs, 24*2)
	assert.Len(t, vd.Indices, 36)

	for i := 0; i < 24; i++ {
		p := math.Vec3FromSlice(vd.Positions, i*3)
		n := math.Vec3FromSlice(vd.Normals, i*3)
		assert.InDelta(t, 1, p.Dot(n), 1e-6, "vertex %d lies on its face", i)
		assert.InDelta(t, 1, max(abs(p.X), abs(p.Y), abs(p.Z)), 1e-6)
	}

	// each face winds counter-clockwise around its normal
	for f := 0; f < 6; f++ {
		i := vd.Indices[f*6 : f*6+3]
		a := math.Vec3FromSlice(vd.Positions, int(i[0])*3)
		b := math.Vec3FromSlice(vd.Positions, int(i[1])*3)
		c := math.Vec3FromSlice(vd.Positions, int(i[2])*3)
		n := math.Vec3FromSlice(vd.Normals, int(i[0])*3)
		assert.Positive(t, b.Sub(a).Cross(c.Sub(a)).Dot(n), "face %d", f)
	}
}

func TestGrid(t *testing.T) {
	vd := grid(10, 2)
	assert.Len(t, vd.Positions, 9*3)
	assert.Len(t, vd.Indices, 2*2*6)
	assert.Equal(t, []float32{-5, 0, -5}, vd.Positions[:3])
	assert.Equal(t, []float32{5, 0, 5}, vd.Positions[len(vd.Positions)-3:])
	assert.Equal(t, []float32{1, 1}, vd.UVs[len(vd.UVs)-2:])

	assert.Len(t, grid(1, 0).Indices, 6)
}

func TestLimb(t *testing.T) {
	vd := limb(1, 4)
	require.Len(t, vd.MatricesIndices, 24*4)
	require.Len(t, vd.MatricesWeights, 24*4)
	for i := 0; i < 24; i++ {
		y := vd.Positions[i*3+1]
		want := float32(0)
		if y > 2 {
			want = 1
		}
		assert.Equal(t, want, vd.MatricesIndices[i*4], "vertex %d at y=%v", i, y)
		assert.Equal(t, float32(1), vd.MatricesWeights[i*4])
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
