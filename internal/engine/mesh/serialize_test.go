package mesh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/pkg/math"
)

type fakeResolver struct {
	geometries map[string]*Geometry
	materials  map[string]material.Material
	skeletons  map[string]*skeleton.Skeleton
}

func (r fakeResolver) GeometryByID(id string) *Geometry          { return r.geometries[id] }
func (r fakeResolver) MaterialByID(id string) material.Material  { return r.materials[id] }
func (r fakeResolver) SkeletonByID(id string) *skeleton.Skeleton { return r.skeletons[id] }

// roundTrip passes v through JSON into out.
func roundTrip(t *testing.T, v, out any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestMeshSerializeRoundTrip(t *testing.T) {
	src := newFakeScene()
	m := newQuad(src, "box")
	m.ID = "box-1"
	m.Position = math.Vec3{X: 1, Y: 2, Z: 3}
	m.Visibility = 0.5
	m.RenderOutline = true
	m.OutlineColor = math.Color3{G: 1}
	mat := material.NewStandard("paint", src)
	m.Material = mat
	m.Subdivide(2)

	fade := animation.New("fade", "visibility", 30, animation.TypeFloat, animation.LoopCycle)
	fade.AddKey(animation.Key{Frame: 0, Value: float32(1)})
	fade.AddKey(animation.Key{Frame: 30, Value: float32(0)})
	fade.CreateRange("out", 0, 30)
	m.Animations = []*animation.Animation{fade}

	inst := m.CreateInstance("copy")
	inst.ID = "copy-1"
	inst.Position = math.Vec3{X: 4}

	var geomData SerializedGeometry
	roundTrip(t, m.Geometry().Serialize(), &geomData)
	var meshData Serialized
	roundTrip(t, m.Serialize(), &meshData)

	dst := newFakeScene()
	g := ParseGeometry(&geomData, dst)
	res := fakeResolver{
		geometries: map[string]*Geometry{g.ID: g},
		materials:  map[string]material.Material{mat.ID(): mat},
	}
	got, err := Parse(&meshData, dst, res)
	require.NoError(t, err)

	assert.Equal(t, "box-1", got.ID)
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 3}, got.Position)
	assert.Equal(t, float32(0.5), got.Visibility)
	assert.True(t, got.RenderOutline)
	assert.Equal(t, math.Color3{G: 1}, got.OutlineColor)
	assert.Same(t, mat, got.Material)
	assert.Same(t, g, got.Geometry())
	assert.Equal(t, 4, got.TotalVertices())

	require.Len(t, got.SubMeshes(), 2)
	assert.Equal(t, [4]int{0, 4, 3, 3}, subMeshRange(got.SubMeshes()[1]))

	require.Len(t, got.Animations, 1)
	assert.Len(t, got.Animations[0].Keys(), 2)
	assert.NotNil(t, got.Animations[0].Range("out"))

	require.Len(t, got.Instances(), 1)
	parsed := got.Instances()[0]
	assert.Equal(t, "copy-1", parsed.ID)
	assert.Equal(t, math.Vec3{X: 4}, parsed.Position)
	assert.Len(t, parsed.SubMeshes(), 2)
}

func TestParseUnresolvedReferences(t *testing.T) {
	t.Run("geometry", func(t *testing.T) {
		s := newFakeScene()
		_, err := Parse(&Serialized{Name: "lost", GeometryID: "nope"}, s, fakeResolver{})
		assert.ErrorIs(t, err, ErrUnresolved)
		assert.Empty(t, s.meshes)
	})

	t.Run("skeleton", func(t *testing.T) {
		s := newFakeScene()
		g := NewGeometry("g", s, quadData(), false, nil)
		res := fakeResolver{geometries: map[string]*Geometry{"g": g}}

		_, err := Parse(&Serialized{Name: "lost", GeometryID: "g", SkeletonID: "rig"}, s, res)
		assert.ErrorIs(t, err, ErrUnresolved)
		assert.Empty(t, s.meshes)
		assert.False(t, g.IsDisposed())
		assert.Empty(t, g.Meshes())
	})
}

func TestParseRejectsNegativeSubMeshRange(t *testing.T) {
	s := newFakeScene()
	g := NewGeometry("g", s, quadData(), false, nil)
	res := fakeResolver{geometries: map[string]*Geometry{"g": g}}

	_, err := Parse(&Serialized{
		Name:       "broken",
		GeometryID: "g",
		SubMeshes:  []SerializedSubMesh{{VerticesCount: 4, IndexStart: -3, IndexCount: 6}},
	}, s, res)
	assert.ErrorIs(t, err, ErrSubMeshRange)
	assert.Empty(t, s.meshes)
	assert.Empty(t, g.Meshes())
}

func TestExtentsIndexedClampsStart(t *testing.T) {
	positions := []float32{0, 0, 0, 2, 3, 4}
	min, max := extentsIndexed(positions, []uint32{0, 1}, -1, 3)
	assert.Equal(t, math.Vec3{}, min)
	assert.Equal(t, math.Vec3{X: 2, Y: 3, Z: 4}, max)
}

func TestParseMissingMaterialFallsBack(t *testing.T) {
	logs := observeWarnings(t)
	s := newFakeScene()
	g := NewGeometry("g", s, quadData(), false, nil)
	res := fakeResolver{geometries: map[string]*Geometry{"g": g}}

	m, err := Parse(&Serialized{Name: "plain", GeometryID: "g", MaterialID: "gone", IsEnabled: true, IsVisible: true}, s, res)
	require.NoError(t, err)

	assert.Nil(t, m.Material)
	assert.Same(t, s.defaultMat, m.SubMeshes()[0].Material())
	assert.Equal(t, 1, logs.FilterMessage("mesh material not found, using default").Len())
}

func TestLinkRestoresParentAndLevels(t *testing.T) {
	s := newFakeScene()
	root := newQuad(s, "root")
	master := newQuad(s, "master")
	near := newQuad(s, "near")
	master.SetParent(root.Node)
	require.True(t, master.AddLODLevel(20, near))
	require.True(t, master.AddLODLevel(80, nil))

	data := master.Serialize()
	assert.Equal(t, "root", data.ParentID)
	assert.Equal(t, []string{"", "near"}, data.LODMeshIDs)
	assert.Equal(t, []float32{80, 20}, data.LODDistances)

	other := newFakeScene()
	byID := map[string]AbstractMesh{
		"root": newQuad(other, "root"),
		"near": newQuad(other, "near"),
	}
	restored := newQuad(other, "master")
	require.NoError(t, Link(restored, data, func(id string) AbstractMesh { return byID[id] }))

	assert.Same(t, byID["root"].TransformNode(), restored.Parent())
	require.Len(t, restored.LODLevels(), 2)
	assert.Nil(t, restored.LODLevels()[0].Mesh)
	assert.Same(t, byID["near"], restored.LODLevels()[1].Mesh)

	data.ParentID = "missing"
	assert.ErrorIs(t, Link(newQuad(other, "orphan"), data, func(id string) AbstractMesh { return byID[id] }), ErrUnresolved)
}
