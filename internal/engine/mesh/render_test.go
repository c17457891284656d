package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/pkg/math"
)

func quadWithInstances(s *fakeScene, n int) (*Mesh, []*InstancedMesh) {
	m := newQuad(s, "quad")
	insts := make([]*InstancedMesh, n)
	for i := range insts {
		insts[i] = m.CreateInstance("i")
		insts[i].Position = math.Vec3{X: float32(i + 1)}
	}
	return m, insts
}

func lastBuffer(s *fakeScene) *gpu.RecordedBuffer {
	return s.rec.Buffers[len(s.rec.Buffers)-1]
}

func TestRenderDrawsIndexedSubMesh(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	activateFrame(s, m, true)

	var before, after, draws int
	m.OnBeforeRender.Add(func(*Mesh) { before++ })
	m.OnAfterRender.Add(func(*Mesh) { after++ })
	m.OnBeforeDraw.Add(func(*Mesh) { draws++ })

	require.True(t, m.SubMeshes()[0].Render(false))

	assert.Equal(t, []gpu.DrawCall{{Indexed: true, Fill: gpu.TriangleFillMode, Start: 0, Count: 6}}, s.rec.Draws)
	assert.Len(t, s.rec.Bindings, 1)
	assert.Equal(t, []int{1, 1, 1}, []int{before, after, draws})
	assert.Empty(t, s.rec.AlphaChanges)
}

func TestRenderEnablesMaterialAlphaMode(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(true))
	assert.Equal(t, []gpu.AlphaMode{gpu.AlphaCombine}, s.rec.AlphaChanges)
}

func TestRenderHardwareInstances(t *testing.T) {
	s := newFakeScene()
	m, _ := quadWithInstances(s, 3)
	activateFrame(s, m, true)
	sm := m.SubMeshes()[0]

	require.True(t, sm.Render(false))

	require.Len(t, s.rec.Draws, 1)
	assert.Equal(t, 4, s.rec.Draws[0].Instances)
	assert.Equal(t, 1, s.rec.Unbinds)

	buf := lastBuffer(s)
	assert.True(t, buf.Dynamic)
	assert.Equal(t, 32*16*4, buf.Capacity())
	assert.Equal(t, float32(0), buf.Vertices[12])
	assert.Equal(t, float32(1), buf.Vertices[16+12])
	assert.Equal(t, float32(3), buf.Vertices[48+12])

	bound := s.rec.Bindings[len(s.rec.Bindings)-1]
	for _, kind := range gpu.InstanceWorldKinds {
		assert.Contains(t, bound, kind)
	}

	// The batch was consumed for this render id.
	assert.False(t, sm.Render(false))
	assert.Len(t, s.rec.Draws, 1)
}

func TestRenderSkipsSecondPassInSameRenderID(t *testing.T) {
	s := newFakeScene()
	m, _ := quadWithInstances(s, 2)
	activateFrame(s, m, true)
	sm := m.SubMeshes()[0]

	require.True(t, m.Render(sm, false))
	assert.False(t, m.Render(sm, false))
	assert.Len(t, s.rec.Draws, 1)

	activateFrame(s, m, true)
	require.True(t, m.Render(sm, false))
	require.Len(t, s.rec.Draws, 2)
	assert.Equal(t, 3, s.rec.Draws[1].Instances)
}

func TestRenderInstancesWithoutSource(t *testing.T) {
	s := newFakeScene()
	m, _ := quadWithInstances(s, 3)
	activateFrame(s, m, false)

	require.True(t, m.SubMeshes()[0].Render(false))
	require.Len(t, s.rec.Draws, 1)
	assert.Equal(t, 3, s.rec.Draws[0].Instances)
	assert.Equal(t, float32(1), lastBuffer(s).Vertices[12])
}

func TestRenderInstancesBufferGrows(t *testing.T) {
	s := newFakeScene()
	m, _ := quadWithInstances(s, 3)
	activateFrame(s, m, true)
	require.True(t, m.SubMeshes()[0].Render(false))
	first := lastBuffer(s)

	for i := 0; i < 37; i++ {
		m.CreateInstance("more")
	}
	activateFrame(s, m, true)
	require.True(t, m.SubMeshes()[0].Render(false))

	second := lastBuffer(s)
	assert.True(t, first.Released)
	assert.NotSame(t, first, second)
	assert.Equal(t, 4096, m.InstancesBufferCapacity())
	assert.Equal(t, 4096, second.Capacity())
	assert.Equal(t, 41, s.rec.Draws[1].Instances)

	activateFrame(s, m, true)
	require.True(t, m.SubMeshes()[0].Render(false))
	assert.Same(t, second, lastBuffer(s))
	assert.Equal(t, 1, second.Updates)
}

func TestRenderInstancesWithoutHardwareSupport(t *testing.T) {
	s := newFakeScene()
	s.rec.Capabilities.InstancedArrays = false
	m, _ := quadWithInstances(s, 3)
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))
	require.Len(t, s.rec.Draws, 4)
	for _, d := range s.rec.Draws {
		assert.Zero(t, d.Instances)
	}
	assert.Zero(t, s.rec.Unbinds)
}

func TestRenderSkips(t *testing.T) {
	t.Run("occluded", func(t *testing.T) {
		s := newFakeScene()
		m := newQuad(s, "quad")
		m.IsOccluded = true
		activateFrame(s, m, true)
		assert.False(t, m.SubMeshes()[0].Render(false))
		assert.Empty(t, s.rec.Draws)
	})

	t.Run("released geometry", func(t *testing.T) {
		s := newFakeScene()
		m := newQuad(s, "quad")
		sm := m.SubMeshes()[0]
		m.Geometry().ReleaseForMesh(m, false)
		activateFrame(s, m, true)
		assert.False(t, sm.Render(false))
		assert.Empty(t, s.rec.Draws)
	})

	t.Run("missing sub-material", func(t *testing.T) {
		s := newFakeScene()
		m := newQuad(s, "quad")
		m.Material = material.NewMulti("multi", s)
		activateFrame(s, m, true)
		assert.False(t, m.SubMeshes()[0].Render(false))
		assert.Empty(t, s.rec.Draws)
	})

	t.Run("effect not ready", func(t *testing.T) {
		s := newFakeScene()
		m := newQuad(s, "quad")
		mat := material.NewStandard("pending", s)
		m.Material = mat
		require.True(t, mat.IsReady(m, false))
		mat.Effect().(*gpu.RecordedEffect).Ready = false

		activateFrame(s, m, true)
		assert.False(t, m.SubMeshes()[0].Render(false))
		assert.Empty(t, s.rec.Draws)
	})
}

func TestRenderMirroredMeshReversesWinding(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	m.Scaling = math.Vec3{X: -1, Y: 1, Z: 1}
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))
	require.Len(t, s.rec.States, 1)
	assert.True(t, s.rec.States[0].ReverseSide)
}

func TestRenderOverrideSideOrientation(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	cw := material.ClockWise
	m.OverrideSideOrientation = &cw
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))
	require.Len(t, s.rec.States, 1)
	assert.True(t, s.rec.States[0].ReverseSide)
}

func TestRenderSeparateCullingPass(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	mat := material.NewStandard("double", s)
	mat.Culling = false
	mat.CullingPass = true
	m.Material = mat
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))

	reverse := make([]bool, len(s.rec.States))
	for i, st := range s.rec.States {
		reverse[i] = st.ReverseSide
	}
	assert.Equal(t, []bool{false, true, false}, reverse)
	assert.Len(t, s.rec.Draws, 2)
}

func TestRenderForcedFillModes(t *testing.T) {
	t.Run("wireframe", func(t *testing.T) {
		s := newFakeScene()
		s.wireframe = true
		m := newQuad(s, "quad")
		activateFrame(s, m, true)

		require.True(t, m.SubMeshes()[0].Render(false))
		assert.Equal(t, []gpu.DrawCall{{Indexed: true, Fill: gpu.WireFrameFillMode, Start: 0, Count: 12}}, s.rec.Draws)
		assert.Equal(t, 12, m.SubMeshes()[0].LinesIndexCount())
	})

	t.Run("points", func(t *testing.T) {
		s := newFakeScene()
		s.points = true
		m := newQuad(s, "quad")
		activateFrame(s, m, true)

		require.True(t, m.SubMeshes()[0].Render(false))
		assert.Equal(t, []gpu.DrawCall{{Fill: gpu.PointFillMode, Start: 0, Count: 4}}, s.rec.Draws)
	})
}

func outlineEffect(t *testing.T, s *fakeScene) *gpu.RecordedEffect {
	t.Helper()
	for _, e := range s.rec.Enabled {
		if e.Name() == "outline" {
			return e.(*gpu.RecordedEffect)
		}
	}
	t.Fatal("outline effect never enabled")
	return nil
}

func TestRenderOutline(t *testing.T) {
	s := newFakeScene()
	s.outline = NewOutline(s)
	m := newQuad(s, "quad")
	m.RenderOutline = true
	m.OutlineWidth = 0.1
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))

	assert.Len(t, s.rec.Draws, 3)
	assert.Equal(t, []bool{false, true}, s.rec.ColorWrites)
	assert.True(t, s.rec.DepthWrite())

	effect := outlineEffect(t, s)
	assert.Equal(t, []float32{0.1, 0, 0, 0}, effect.Uniform["offset"])
	assert.Equal(t, []float32{1, 0, 0, 1}, effect.Uniform["color"])
	assert.Contains(t, effect.Uniform, "world")
}

func TestRenderOverlay(t *testing.T) {
	s := newFakeScene()
	s.outline = NewOutline(s)
	m := newQuad(s, "quad")
	m.RenderOverlay = true
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))

	assert.Len(t, s.rec.Draws, 2)
	assert.Equal(t, []gpu.AlphaMode{gpu.AlphaCombine, gpu.AlphaDisable}, s.rec.AlphaChanges)

	effect := outlineEffect(t, s)
	assert.Equal(t, []float32{0, 0, 0, 0}, effect.Uniform["offset"])
	assert.Equal(t, []float32{1, 0, 0, 0.5}, effect.Uniform["color"])
}

func TestRenderOutlineWithInstances(t *testing.T) {
	s := newFakeScene()
	s.outline = NewOutline(s)
	m, _ := quadWithInstances(s, 2)
	m.RenderOverlay = true
	activateFrame(s, m, true)

	require.True(t, m.SubMeshes()[0].Render(false))

	require.Len(t, s.rec.Draws, 2)
	for _, d := range s.rec.Draws {
		assert.Equal(t, 3, d.Instances)
	}
	assert.Contains(t, outlineEffect(t, s).Defines, "INSTANCES")
}
