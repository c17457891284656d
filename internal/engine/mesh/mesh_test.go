package mesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/pkg/math"
)

type fakeScene struct {
	rec          *gpu.Recorder
	renderID     int
	intermediate bool
	wireframe    bool
	points       bool
	defaultMat   material.Material
	outline      OutlineRenderer
	meshes       []AbstractMesh
	geometries   []*Geometry
	pending      []any
	posted       chan func()
	particles    []ParticleSystem
	stopped      []any
	skeletons    []*skeleton.Skeleton
}

func newFakeScene() *fakeScene {
	s := &fakeScene{
		rec:      gpu.NewRecorder(640, 480),
		renderID: 1,
		posted:   make(chan func(), 16),
	}
	s.defaultMat = material.NewStandard("default", s)
	return s
}

func (s *fakeScene) Engine() gpu.Engine                 { return s.rec }
func (s *fakeScene) TransformMatrix() math.Mat4         { return math.Identity() }
func (s *fakeScene) RenderID() int                      { return s.renderID }
func (s *fakeScene) IsInIntermediateRendering() bool    { return s.intermediate }
func (s *fakeScene) ForceWireframe() bool               { return s.wireframe }
func (s *fakeScene) ForcePointsCloud() bool             { return s.points }
func (s *fakeScene) DefaultMaterial() material.Material { return s.defaultMat }
func (s *fakeScene) OutlineRenderer() OutlineRenderer   { return s.outline }
func (s *fakeScene) AddMesh(m AbstractMesh)             { s.meshes = append(s.meshes, m) }
func (s *fakeScene) Meshes() []AbstractMesh             { return s.meshes }
func (s *fakeScene) AddPendingData(data any)            { s.pending = append(s.pending, data) }
func (s *fakeScene) Post(fn func())                     { s.posted <- fn }
func (s *fakeScene) ParticleSystems() []ParticleSystem  { return s.particles }
func (s *fakeScene) StopAnimation(target any)           { s.stopped = append(s.stopped, target) }
func (s *fakeScene) AddSkeleton(sk *skeleton.Skeleton)  { s.skeletons = append(s.skeletons, sk) }
func (s *fakeScene) RemoveSkeleton(sk *skeleton.Skeleton) {}
func (s *fakeScene) AddActiveBones(n int)                {}

func (s *fakeScene) RemoveMesh(m AbstractMesh) {
	for i, other := range s.meshes {
		if other == m {
			s.meshes = append(s.meshes[:i], s.meshes[i+1:]...)
			return
		}
	}
}

func (s *fakeScene) AddGeometry(g *Geometry) bool {
	for _, other := range s.geometries {
		if other == g {
			return false
		}
	}
	s.geometries = append(s.geometries, g)
	return true
}

func (s *fakeScene) RemoveGeometry(g *Geometry) {
	for i, other := range s.geometries {
		if other == g {
			s.geometries = append(s.geometries[:i], s.geometries[i+1:]...)
			return
		}
	}
}

func (s *fakeScene) RemovePendingData(data any) {
	for i, other := range s.pending {
		if other == data {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// drain runs the next posted callback.
func (s *fakeScene) drain(t *testing.T) {
	t.Helper()
	select {
	case fn := <-s.posted:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("nothing posted to the scene")
	}
}

type fakeViewer struct{ pos math.Vec3 }

func (v fakeViewer) GlobalPosition() math.Vec3 { return v.pos }

type fakeParticles struct {
	name    string
	emitter any
	clones  []any
}

func (p *fakeParticles) Name() string { return p.name }
func (p *fakeParticles) Emitter() any { return p.emitter }
func (p *fakeParticles) Clone(name string, emitter any) ParticleSystem {
	p.clones = append(p.clones, emitter)
	return &fakeParticles{name: name, emitter: emitter}
}

func quadData() *VertexData {
	return &VertexData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:       []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

func newQuad(s *fakeScene, name string) *Mesh {
	m := NewMesh(name, s)
	quadData().ApplyToMesh(m, false)
	return m
}

// activateFrame advances the render id and activates m and its instances
// the way the scene does when every one of them is visible.
func activateFrame(s *fakeScene, m *Mesh, activateSelf bool) {
	s.renderID++
	m.PreActivate()
	if activateSelf {
		m.Activate(s.renderID)
	}
	viewer := fakeViewer{pos: math.Vec3{Z: 5}}
	for _, inst := range m.Instances() {
		inst.SelectLOD(viewer)
		inst.Activate(s.renderID)
	}
}

func TestNewMeshDefaults(t *testing.T) {
	s := newFakeScene()
	m := NewMesh("box", s)

	assert.Equal(t, []AbstractMesh{m}, s.meshes)
	assert.Equal(t, float32(1), m.Visibility)
	assert.Equal(t, 32*16*4, m.InstancesBufferCapacity())
	assert.Zero(t, m.TotalVertices())
	assert.Nil(t, m.Geometry())
	assert.Empty(t, m.SubMeshes())
	assert.True(t, m.IsVisibleMesh())
}

func TestApplyVertexDataCreatesGlobalSubMesh(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")

	require.NotNil(t, m.Geometry())
	assert.Equal(t, 4, m.TotalVertices())
	assert.Equal(t, 6, m.TotalIndices())
	require.Len(t, m.SubMeshes(), 1)

	sm := m.SubMeshes()[0]
	assert.True(t, sm.IsGlobal())
	assert.Equal(t, 0, sm.VerticesStart)
	assert.Equal(t, 4, sm.VerticesCount)
	assert.Equal(t, 6, sm.IndexCount)

	info := m.BoundingInfo()
	require.NotNil(t, info)
	assert.Equal(t, math.Vec3{}, info.Minimum())
	assert.Equal(t, math.Vec3{X: 1, Y: 1}, info.Maximum())
}

func TestSubdivide(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	inst := m.CreateInstance("copy")

	m.Subdivide(2)

	require.Len(t, m.SubMeshes(), 2)
	first, second := m.SubMeshes()[0], m.SubMeshes()[1]
	assert.Equal(t, [4]int{0, 3, 0, 3}, [4]int{first.VerticesStart, first.VerticesCount, first.IndexStart, first.IndexCount})
	assert.Equal(t, [4]int{0, 4, 3, 3}, [4]int{second.VerticesStart, second.VerticesCount, second.IndexStart, second.IndexCount})
	assert.Len(t, inst.SubMeshes(), 2)
	assert.Same(t, m, inst.SubMeshes()[1].RenderingMesh())
}

func TestSubMeshMaterialResolution(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	sm := m.SubMeshes()[0]

	assert.Same(t, s.defaultMat, sm.Material())

	red := material.NewStandard("red", s)
	multi := material.NewMulti("multi", s)
	multi.SubMaterials = []material.Material{red}
	m.Material = multi
	assert.Same(t, red, sm.Material())

	sm.MaterialIndex = 3
	assert.Nil(t, sm.Material())
}

func TestInstanceProxiesSource(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	m.Position = math.Vec3{X: 2}
	m.Visibility = 0.25

	inst := m.CreateInstance("i1")

	assert.Equal(t, []*InstancedMesh{inst}, m.Instances())
	assert.Equal(t, math.Vec3{X: 2}, inst.Position)
	assert.Equal(t, m.TotalVertices(), inst.TotalVertices())
	assert.Equal(t, float32(0.25), inst.MeshVisibility())
	assert.Same(t, m, inst.RenderingMesh())
	require.Len(t, inst.SubMeshes(), 1)
	assert.Same(t, m, inst.SubMeshes()[0].RenderingMesh())
	assert.Contains(t, s.meshes, AbstractMesh(inst))

	require.NoError(t, inst.Dispose(false))
	assert.Empty(t, m.Instances())
	assert.NotContains(t, s.meshes, AbstractMesh(inst))
}

func TestSetSkeletonRegistersPose(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	rig := skeleton.New("rig", "rig", s)
	rig.NeedInitialSkinMatrix = true
	skeleton.NewBone("root", rig, nil, skeleton.BoneOptions{})

	m.SetSkeleton(rig)
	assert.Equal(t, []skeleton.SkinnedMesh{m}, rig.MeshesWithPoseMatrix())
	assert.Len(t, m.BoneMatrices(), 32)

	m.SetSkeleton(nil)
	assert.Empty(t, rig.MeshesWithPoseMatrix())
	assert.Nil(t, m.BoneMatrices())
}

func TestVisibilityIsAnimatable(t *testing.T) {
	s := newFakeScene()
	m := NewMesh("m", s)

	assert.True(t, m.SetAnimatedProperty([]string{"visibility"}, float32(0.5)))
	v, ok := m.AnimatedProperty([]string{"visibility"})
	require.True(t, ok)
	assert.Equal(t, float32(0.5), v)

	assert.True(t, m.SetAnimatedProperty([]string{"position", "x"}, float32(3)))
	assert.Equal(t, float32(3), m.Position.X)
}

func TestClone(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	m.ID = "q1"
	cw := material.ClockWise
	m.OverrideSideOrientation = &cw
	m.OutlineWidth = 0.5
	m.Position = math.Vec3{Y: 3}
	child := newQuad(s, "child")
	child.SetParent(m.Node)
	ps := &fakeParticles{name: "smoke", emitter: m}
	s.particles = []ParticleSystem{ps}

	c := m.Clone("copy", nil, false, false)

	assert.Equal(t, "copy.q1", c.ID)
	assert.Same(t, m, c.Source())
	assert.Same(t, m.Geometry(), c.Geometry())
	assert.Len(t, m.Geometry().Meshes(), 2)
	assert.Equal(t, float32(0.5), c.OutlineWidth)
	require.NotNil(t, c.OverrideSideOrientation)
	assert.NotSame(t, m.OverrideSideOrientation, c.OverrideSideOrientation)
	assert.Equal(t, material.ClockWise, *c.OverrideSideOrientation)
	assert.Equal(t, math.Vec3{Y: 3}, c.Position)
	assert.Equal(t, float32(3), c.WorldMatrixFromCache().Translation().Y)

	children := c.Children()
	require.Len(t, children, 1)
	assert.Equal(t, "copy.child", children[0].Name)
	assert.Equal(t, []any{c}, ps.clones)
}

func TestDisposeReleasesEverything(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	m.CreateInstance("a")
	m.CreateInstance("b")
	child := newQuad(s, "child")
	child.SetParent(m.Node)
	clone := m.Clone("clone", nil, true, false)
	require.NoError(t, clone.Dispose(false))

	activateFrame(s, m, true)
	require.True(t, m.Render(m.SubMeshes()[0], false))
	require.NotNil(t, m.instancesBuffer)

	require.NoError(t, m.Dispose(false))

	assert.True(t, m.IsDisposed())
	assert.True(t, child.IsDisposed())
	assert.Empty(t, m.Instances())
	assert.Empty(t, s.meshes)
	assert.Empty(t, s.geometries)
	assert.Zero(t, s.rec.LiveBuffers())
	assert.Contains(t, s.stopped, any(m))
}

func TestDisposeClearsCloneSource(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	c := m.Clone("c", nil, true, false)

	require.NoError(t, m.Dispose(false))

	assert.Nil(t, c.Source())
	assert.False(t, c.Geometry().IsDisposed())
	assert.Equal(t, 4, c.TotalVertices())
}

func TestDisposeNotRecursiveDetachesChildren(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "quad")
	child := newQuad(s, "child")
	child.SetParent(m.Node)

	require.NoError(t, m.Dispose(true))

	assert.False(t, child.IsDisposed())
	assert.Nil(t, child.Parent())
}
