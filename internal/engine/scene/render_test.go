package scene

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/pkg/math"
)

func TestRenderDrawsVisibleMeshes(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	newQuad(s, "visible", math.Vec3{})
	newQuad(s, "aside", math.Vec3{X: 1000})

	before, after := 0, 0
	s.OnBeforeRender.Add(func(*Scene) { before++ })
	s.OnAfterRender.Add(func(*Scene) { after++ })

	stats, err := s.Render(0)
	require.NoError(t, err)

	require.Len(t, rec.Draws, 1)
	assert.True(t, rec.Draws[0].Indexed)
	assert.Equal(t, 6, rec.Draws[0].Count)
	assert.Equal(t, 1, stats.Passes)
	assert.Equal(t, 1, stats.ActiveMeshes)
	assert.Equal(t, 1, stats.DrawnSubMeshes)
	assert.Equal(t, 8, stats.TotalVertices)
	assert.Equal(t, s.RenderID(), stats.RenderID)
	assert.Equal(t, 1, before)
	assert.Equal(t, 1, after)
}

func TestRenderSkipsHiddenMeshes(t *testing.T) {
	s, rec := newScene()
	cam := lookingAtOrigin(s)

	disabled := newQuad(s, "disabled", math.Vec3{})
	disabled.SetEnabled(false)
	invisible := newQuad(s, "invisible", math.Vec3{})
	invisible.IsVisible = false
	faded := newQuad(s, "faded", math.Vec3{})
	faded.Visibility = 0
	layered := newQuad(s, "layered", math.Vec3{})
	layered.LayerMask = 0x10000000
	cam.LayerMask = 0x0FFFFFFF

	stats, err := s.Render(0)
	require.NoError(t, err)
	assert.Empty(t, rec.Draws)
	assert.Zero(t, stats.ActiveMeshes)
	assert.Equal(t, 12, stats.TotalVertices, "disabled meshes are not counted")
}

func TestRenderAlwaysSelectAsActiveMesh(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	m := newQuad(s, "behind", math.Vec3{Z: -50})
	m.AlwaysSelectAsActiveMesh = true

	stats, err := s.Render(0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveMeshes)
	assert.Len(t, rec.Draws, 1)
}

func TestRenderHardwareInstances(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	m := newQuad(s, "source", math.Vec3{})
	for i := 1; i <= 3; i++ {
		inst := m.CreateInstance("copy")
		inst.Position = math.Vec3{X: float32(i)}
	}

	stats, err := s.Render(0)
	require.NoError(t, err)

	require.Len(t, rec.Draws, 1)
	assert.Equal(t, 4, rec.Draws[0].Instances)
	assert.Equal(t, 1, stats.DrawnSubMeshes)
	assert.Equal(t, 4, stats.ActiveMeshes)
}

func TestRenderSelectsLevelOfDetail(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	m := newQuad(s, "detailed", math.Vec3{})

	low := mesh.NewMesh("low", s)
	(&mesh.VertexData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:       []float32{0, 0, 1, 0, 1, 1},
		Indices:   []uint32{0, 1, 2},
	}).ApplyToMesh(low, false)
	require.True(t, m.AddLODLevel(5, low))

	stats, err := s.Render(0)
	require.NoError(t, err)
	require.Len(t, rec.Draws, 1)
	assert.Equal(t, 3, rec.Draws[0].Count)
	assert.Equal(t, 1, stats.ActiveMeshes)
	assert.Equal(t, 8, stats.TotalVertices, "levels of detail are not counted")
}

func TestRenderCulledLevelOfDetail(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	m := newQuad(s, "detailed", math.Vec3{})
	require.True(t, m.AddLODLevel(5, nil))

	stats, err := s.Render(0)
	require.NoError(t, err)
	assert.Empty(t, rec.Draws)
	assert.Zero(t, stats.ActiveMeshes)
}

func TestRenderPreparesActiveSkeletons(t *testing.T) {
	s, _ := newScene()
	lookingAtOrigin(s)
	sk := skeleton.New("rig", "rig", s)
	root := skeleton.NewBone("root", sk, nil, skeleton.BoneOptions{})
	skeleton.NewBone("arm", sk, root, skeleton.BoneOptions{})

	a := newQuad(s, "a", math.Vec3{})
	b := newQuad(s, "b", math.Vec3{X: 1})
	a.SetSkeleton(sk)
	b.SetSkeleton(sk)

	stats, err := s.Render(0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveSkeletons)
	assert.Equal(t, 2, stats.ActiveBones)
	assert.False(t, sk.IsDirty())
}

func TestRenderTransparentBackToFront(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	glass := material.NewStandard("glass", s)
	glass.Alpha = 0.5

	var order []string
	record := func(m *mesh.Mesh) { order = append(order, m.Name) }
	for name, z := range map[string]float32{"middle": 0, "far": 5, "near": -5} {
		m := newQuad(s, name, math.Vec3{Z: z})
		m.Material = glass
		m.OnBeforeRender.Add(record)
	}
	newQuad(s, "opaque", math.Vec3{Z: 8}).OnBeforeRender.Add(record)

	_, err := s.Render(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"opaque", "far", "middle", "near"}, order)
	assert.Contains(t, rec.AlphaChanges, glass.AlphaMode())
	assert.Equal(t, gpu.AlphaDisable, rec.AlphaMode())
}

func TestRenderVRRig(t *testing.T) {
	s, rec := newScene()
	cam := lookingAtOrigin(s)
	cam.SetCameraRigMode(camera.RigVR, camera.RigParams{})
	newQuad(s, "a", math.Vec3{})

	stats, err := s.Render(0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Passes)
	assert.Len(t, rec.Draws, 2)
	require.Len(t, rec.Viewports, 2)
	assert.Equal(t, float32(0.5), rec.Viewports[0].Width)
	assert.Equal(t, float32(0.5), rec.Viewports[1].X)
}

func TestRenderIntermediate(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	m := newQuad(s, "source", math.Vec3{})
	m.CreateInstance("copy").Position = math.Vec3{X: 1}

	_, err := s.Render(0)
	require.NoError(t, err)
	mainID := s.RenderID()
	view := s.ViewMatrix()

	probe := camera.New("probe", math.Vec3{Z: -20}, &otherScene{s}, nil)
	assert.Equal(t, 1, s.RenderIntermediate(probe))

	require.Len(t, rec.Draws, 2)
	assert.Equal(t, 2, rec.Draws[1].Instances, "instances of the main pass are reused")
	assert.Equal(t, mainID+1, s.RenderID())
	assert.False(t, s.IsInIntermediateRendering())
	assert.Equal(t, view, s.ViewMatrix())
	assert.Equal(t, 1, s.Stats().DrawnSubMeshes)
}

func TestRenderRunsPostedContinuations(t *testing.T) {
	s, _ := newScene()
	lookingAtOrigin(s)
	ran := false
	s.Post(func() { ran = true })

	_, err := s.Render(0)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRenderLoadsDelayedGeometryInView(t *testing.T) {
	s, rec := newScene()
	lookingAtOrigin(s)
	g := mesh.ParseGeometry(&mesh.SerializedGeometry{
		ID:               "delayed",
		DelayLoadingFile: "quad.bin",
		DelayInfo:        []string{gpu.PositionKind, gpu.NormalKind, gpu.UVKind},
	}, s)
	m := mesh.NewMesh("late", s)
	g.ApplyToMesh(m)

	_, err := s.Render(0)
	require.NoError(t, err, "nothing loads without a loader")
	assert.Equal(t, mesh.DelayLoadNotLoaded, g.DelayLoadState())

	files := make(chan string, 1)
	s.SetDelayLoader(context.Background(), func(_ context.Context, file string) (*mesh.VertexData, error) {
		files <- file
		return quadData(), nil
	})

	_, err = s.Render(0)
	require.NoError(t, err)
	assert.Empty(t, rec.Draws)
	assert.Equal(t, "quad.bin", <-files)
	assert.False(t, s.IsReady())

	require.Eventually(t, func() bool { return s.RunPosted() > 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsReady())
	assert.Equal(t, mesh.DelayLoadLoaded, g.DelayLoadState())

	_, err = s.Render(0)
	require.NoError(t, err)
	require.Len(t, rec.Draws, 1)
	assert.Equal(t, 6, rec.Draws[0].Count)
}

func TestPrepareSkeletons(t *testing.T) {
	s, _ := newScene()
	sk := skeleton.New("rig", "rig", s)
	bone := skeleton.NewBone("root", sk, nil, skeleton.BoneOptions{})
	bone.SetPosition(math.Vec3{Y: 2}, skeleton.Local, nil)

	s.PrepareSkeletons(true)
	assert.InDelta(t, 2, bone.AbsolutePosition(nil).Y, 1e-6)
}
