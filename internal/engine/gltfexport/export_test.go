package gltfexport

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/scene"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/pkg/math"
)

func quad(s *scene.Scene, name string) *mesh.Mesh {
	m := mesh.NewMesh(name, s)
	(&mesh.VertexData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:       []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}).ApplyToMesh(m, false)
	return m
}

func newScene() *scene.Scene {
	return scene.New(gpu.NewRecorder(1, 1), scene.DefaultConfig())
}

func TestDocumentMeshAndInstances(t *testing.T) {
	s := newScene()
	m := quad(s, "floor")
	m.Position = math.Vec3{X: 1, Y: 2, Z: 3}
	red := material.NewStandard("red", s)
	red.DiffuseColor = math.Color3{R: 1}
	m.Material = red
	m.CreateInstance("floor-copy").Position = math.Vec3{X: 5}

	doc, err := Document(m)
	require.NoError(t, err)

	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	assert.Contains(t, prim.Attributes, gltf.POSITION)
	assert.Contains(t, prim.Attributes, gltf.NORMAL)
	assert.Contains(t, prim.Attributes, "TEXCOORD_0")
	assert.NotContains(t, prim.Attributes, gltf.JOINTS_0)
	require.NotNil(t, prim.Indices)
	assert.Equal(t, uint32(6), doc.Accessors[*prim.Indices].Count)

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "floor", doc.Nodes[0].Name)
	assert.Equal(t, [3]float32{1, 2, 3}, doc.Nodes[0].Translation)
	assert.Equal(t, "floor-copy", doc.Nodes[1].Name)
	assert.Equal(t, [3]float32{5, 0, 0}, doc.Nodes[1].Translation)
	assert.Equal(t, doc.Nodes[0].Mesh, doc.Nodes[1].Mesh)
	assert.Equal(t, []uint32{0, 1}, doc.Scenes[0].Nodes)

	require.Len(t, doc.Materials, 1)
	assert.Equal(t, "red", doc.Materials[0].Name)
	assert.Equal(t, &[4]float32{1, 0, 0, 1}, doc.Materials[0].PBRMetallicRoughness.BaseColorFactor)
}

func TestDocumentMultiMaterial(t *testing.T) {
	s := newScene()
	m := quad(s, "split")
	m.ReleaseSubMeshes()
	mesh.NewSubMesh(0, 0, 4, 0, 3, m, nil, true)
	mesh.NewSubMesh(1, 0, 4, 3, 3, m, nil, true)
	multi := material.NewMulti("multi", s)
	multi.SubMaterials = []material.Material{material.NewStandard("a", s), material.NewStandard("b", s)}
	m.Material = multi

	doc, err := Document(m)
	require.NoError(t, err)
	require.Len(t, doc.Meshes[0].Primitives, 2)
	assert.Equal(t, gltf.Index(0), doc.Meshes[0].Primitives[0].Material)
	assert.Equal(t, gltf.Index(1), doc.Meshes[0].Primitives[1].Material)
	assert.Len(t, doc.Materials, 2)
}

func TestDocumentSkin(t *testing.T) {
	s := newScene()
	sk := skeleton.New("rig", "rig", s)
	root := skeleton.NewBone("root", sk, nil, skeleton.BoneOptions{})
	skeleton.NewBone("tip", sk, root, skeleton.BoneOptions{LocalMatrix: ptr(math.Translate(0, 1, 0))})

	a, b := quad(s, "a"), quad(s, "b")
	for _, m := range []*mesh.Mesh{a, b} {
		m.SetVerticesData(gpu.MatricesIndicesKind, []float32{0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}, false)
		m.SetVerticesData(gpu.MatricesWeightsKind, []float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}, false)
		m.SetSkeleton(sk)
	}

	doc, err := Document(a, b)
	require.NoError(t, err)

	require.Len(t, doc.Skins, 1, "meshes sharing a skeleton share the skin")
	skin := doc.Skins[0]
	require.Len(t, skin.Joints, 2)
	rootNode, tipNode := doc.Nodes[skin.Joints[0]], doc.Nodes[skin.Joints[1]]
	assert.Equal(t, "root", rootNode.Name)
	assert.Equal(t, []uint32{skin.Joints[1]}, rootNode.Children)
	assert.InDelta(t, 1, tipNode.Translation[1], 1e-6)
	assert.Contains(t, doc.Scenes[0].Nodes, skin.Joints[0])
	assert.NotContains(t, doc.Scenes[0].Nodes, skin.Joints[1])

	require.NotNil(t, skin.InverseBindMatrices)
	assert.Equal(t, uint32(2), doc.Accessors[*skin.InverseBindMatrices].Count)
	assert.Equal(t, gltf.AccessorMat4, doc.Accessors[*skin.InverseBindMatrices].Type)

	for _, n := range doc.Nodes {
		if n.Mesh != nil {
			assert.Equal(t, gltf.Index(0), n.Skin)
		}
	}
	assert.Contains(t, doc.Meshes[0].Primitives[0].Attributes, gltf.JOINTS_0)
	assert.Contains(t, doc.Meshes[0].Primitives[0].Attributes, gltf.WEIGHTS_0)
}

func TestDocumentMissingPositions(t *testing.T) {
	s := newScene()
	_, err := Document(mesh.NewMesh("empty", s))
	assert.ErrorIs(t, err, mesh.ErrMissingVertexData)
}

func TestWriteBinaryRoundTrip(t *testing.T) {
	s := newScene()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, true, quad(s, "floor")))
	assert.Equal(t, "glTF", buf.String()[:4])

	var doc gltf.Document
	require.NoError(t, gltf.NewDecoder(&buf).Decode(&doc))
	require.Len(t, doc.Meshes, 1)
	assert.Equal(t, "floor", doc.Meshes[0].Name)
}

func TestWriteFile(t *testing.T) {
	s := newScene()
	dir := t.TempDir()
	for _, name := range []string{"out.gltf", "out.glb"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, quad(s, "floor")))

		doc, err := gltf.Open(path)
		require.NoError(t, err, name)
		assert.Len(t, doc.Nodes, 1, name)
	}
}

func ptr[T any](v T) *T { return &v }

func TestExportable(t *testing.T) {
	s := newScene()
	hero := quad(s, "hero")
	low := quad(s, "hero-low")
	require.True(t, hero.AddLODLevel(10, low))
	hero.CreateInstance("hero-copy")

	assert.Equal(t, []*mesh.Mesh{hero}, Exportable(s.Meshes()))
}
