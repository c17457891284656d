// Package gltfexport writes meshes, their instances and skeletons as glTF
// documents.
package gltfexport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// exporter accumulates one document.
type exporter struct {
	doc       *gltf.Document
	materials map[material.Material]uint32
	skins     map[*skeleton.Skeleton]exportedSkin
}

type exportedSkin struct {
	index uint32
	remap map[int]uint16
}

// Document builds a glTF document holding every mesh of meshes. Each mesh
// becomes a node, each of its instances another node sharing the same glTF
// mesh, and a skinned mesh carries its skeleton as a joint hierarchy.
func Document(meshes ...*mesh.Mesh) (*gltf.Document, error) {
	e := &exporter{
		doc:       gltf.NewDocument(),
		materials: make(map[material.Material]uint32),
		skins:     make(map[*skeleton.Skeleton]exportedSkin),
	}
	for _, m := range meshes {
		if err := e.addMesh(m); err != nil {
			return nil, errors.Wrapf(err, "mesh %s", m.Name)
		}
	}
	return e.doc, nil
}

// Write encodes the document of meshes to w, as GLB when binary is set.
func Write(w io.Writer, binary bool, meshes ...*mesh.Mesh) error {
	doc, err := Document(meshes...)
	if err != nil {
		return err
	}
	if !binary {
		for _, b := range doc.Buffers {
			b.EmbeddedResource()
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	return errors.Wrap(enc.Encode(doc), "encoding gltf")
}

// WriteFile saves the meshes to path. A .glb extension selects the binary
// container.
func WriteFile(path string, meshes ...*mesh.Mesh) (err error) {
	binary := strings.EqualFold(filepath.Ext(path), ".glb")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating gltf file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing gltf file")
		}
	}()
	return Write(f, binary, meshes...)
}

// Exportable returns the meshes of a scene list that export as their own
// node: instances travel with their source and levels of detail with
// their master.
func Exportable(meshes []mesh.AbstractMesh) []*mesh.Mesh {
	var out []*mesh.Mesh
	for _, am := range meshes {
		if m, ok := am.(*mesh.Mesh); ok && !m.IsBlocked() {
			out = append(out, m)
		}
	}
	return out
}

func (e *exporter) addMesh(m *mesh.Mesh) error {
	positions := m.VerticesData(gpu.PositionKind, false)
	if len(positions) == 0 {
		return errors.Wrap(mesh.ErrMissingVertexData, gpu.PositionKind)
	}
	attributes := gltf.Attribute{
		gltf.POSITION: modeler.WritePosition(e.doc, vec3s(positions)),
	}
	if normals := m.VerticesData(gpu.NormalKind, false); len(normals) > 0 {
		attributes[gltf.NORMAL] = modeler.WriteNormal(e.doc, vec3s(normals))
	}
	for i, kind := range []string{gpu.UVKind, gpu.UV2Kind} {
		if uvs := m.VerticesData(kind, false); len(uvs) > 0 {
			attributes[fmt.Sprintf("TEXCOORD_%d", i)] = modeler.WriteTextureCoord(e.doc, vec2s(uvs))
		}
	}
	if colors := m.VerticesData(gpu.ColorKind, false); len(colors) > 0 {
		attributes["COLOR_0"] = modeler.WriteColor(e.doc, vec4s(colors))
	}

	var skinIndex *uint32
	if sk := m.Skeleton(); sk != nil && len(sk.Bones) > 0 {
		joints := m.VerticesData(gpu.MatricesIndicesKind, false)
		weights := m.VerticesData(gpu.MatricesWeightsKind, false)
		if len(joints) > 0 && len(weights) > 0 {
			idx, remap, err := e.addSkin(sk)
			if err != nil {
				return err
			}
			attributes[gltf.JOINTS_0] = modeler.WriteJoints(e.doc, jointIndices(joints, remap))
			attributes[gltf.WEIGHTS_0] = modeler.WriteWeights(e.doc, vec4s(weights))
			skinIndex = gltf.Index(idx)
		}
	}

	gm := &gltf.Mesh{Name: m.Name}
	indices := m.Indices(false)
	var indicesAccessor *uint32
	if !m.IsUnIndexed() && len(indices) > 0 {
		indicesAccessor = gltf.Index(modeler.WriteIndices(e.doc, indices))
	}
	subMeshes := m.SubMeshes()
	if len(subMeshes) <= 1 || indicesAccessor == nil {
		gm.Primitives = append(gm.Primitives, &gltf.Primitive{
			Attributes: attributes,
			Indices:    indicesAccessor,
			Material:   e.material(m, 0),
		})
	} else {
		for _, sm := range subMeshes {
			part := indices[sm.IndexStart : sm.IndexStart+sm.IndexCount]
			gm.Primitives = append(gm.Primitives, &gltf.Primitive{
				Attributes: attributes,
				Indices:    gltf.Index(modeler.WriteIndices(e.doc, part)),
				Material:   e.material(m, sm.MaterialIndex),
			})
		}
	}
	meshIndex := uint32(len(e.doc.Meshes))
	e.doc.Meshes = append(e.doc.Meshes, gm)

	e.addNode(m.Node, m.Name, meshIndex, skinIndex)
	for _, inst := range m.Instances() {
		e.addNode(inst.Node, inst.Name, meshIndex, skinIndex)
	}
	return nil
}

func (e *exporter) addNode(n *mesh.Node, name string, meshIndex uint32, skin *uint32) {
	rotation := math.QuatFromYawPitchRoll(n.Rotation.Y, n.Rotation.X, n.Rotation.Z)
	if n.RotationQuaternion != nil {
		rotation = *n.RotationQuaternion
	}
	e.appendRoot(&gltf.Node{
		Name:        name,
		Mesh:        gltf.Index(meshIndex),
		Skin:        skin,
		Translation: [3]float32{n.Position.X, n.Position.Y, n.Position.Z},
		Rotation:    [4]float32{rotation.X, rotation.Y, rotation.Z, rotation.W},
		Scale:       [3]float32{n.Scaling.X, n.Scaling.Y, n.Scaling.Z},
	})
}

func (e *exporter) appendRoot(node *gltf.Node) uint32 {
	idx := uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, node)
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, idx)
	return idx
}

// addSkin writes the bones of sk as joint nodes and returns the skin index
// with the map from bone slot to joint index. Meshes sharing a skeleton
// share the skin.
func (e *exporter) addSkin(sk *skeleton.Skeleton) (uint32, map[int]uint16, error) {
	if s, ok := e.skins[sk]; ok {
		return s.index, s.remap, nil
	}
	sk.ComputeAbsoluteTransforms(true)

	nodes := make(map[*skeleton.Bone]uint32, len(sk.Bones))
	joints := make([]uint32, 0, len(sk.Bones))
	inverseBinds := make([][4][4]float32, 0, len(sk.Bones))
	remap := make(map[int]uint16, len(sk.Bones))

	for _, b := range sk.Bones {
		scale, rotation, translation, ok := b.LocalMatrix().Decompose()
		if !ok {
			return 0, nil, errors.Errorf("bone %s: matrix cannot be decomposed", b.Name)
		}
		idx := uint32(len(e.doc.Nodes))
		e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: [3]float32{translation.X, translation.Y, translation.Z},
			Rotation:    [4]float32{rotation.X, rotation.Y, rotation.Z, rotation.W},
			Scale:       [3]float32{scale.X, scale.Y, scale.Z},
		})
		nodes[b] = idx
		if slot := b.Index(); slot >= 0 {
			remap[slot] = uint16(len(joints))
		}
		joints = append(joints, idx)
		inverseBinds = append(inverseBinds, columns(b.InvertedAbsoluteTransform()))
	}
	for _, b := range sk.Bones {
		if p := b.Parent(); p != nil {
			parent := e.doc.Nodes[nodes[p]]
			parent.Children = append(parent.Children, nodes[b])
		} else {
			e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, nodes[b])
		}
	}

	skin := &gltf.Skin{
		Name:                sk.Name,
		Joints:              joints,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(e.doc, gltf.TargetNone, inverseBinds)),
	}
	idx := uint32(len(e.doc.Skins))
	e.doc.Skins = append(e.doc.Skins, skin)
	e.skins[sk] = exportedSkin{index: idx, remap: remap}
	return idx, remap, nil
}

// material returns the document material for the sub-material at index,
// or nil when the mesh has none.
func (e *exporter) material(m *mesh.Mesh, index int) *uint32 {
	mat := m.Material
	if multi, ok := mat.(*material.Multi); ok {
		mat = multi.SubMaterial(index)
	}
	if mat == nil {
		return nil
	}
	if idx, ok := e.materials[mat]; ok {
		return gltf.Index(idx)
	}

	out := &gltf.Material{Name: mat.Name(), DoubleSided: !mat.BackFaceCulling()}
	if std, ok := mat.(*material.Standard); ok {
		out.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{std.DiffuseColor.R, std.DiffuseColor.G, std.DiffuseColor.B, std.Alpha},
		}
	}
	if mat.NeedAlphaBlending() {
		out.AlphaMode = gltf.AlphaBlend
	}
	idx := uint32(len(e.doc.Materials))
	e.doc.Materials = append(e.doc.Materials, out)
	e.materials[mat] = idx
	return gltf.Index(idx)
}

func columns(m math.Mat4) [4][4]float32 {
	var out [4][4]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c][r] = m[c*4+r]
		}
	}
	return out
}

func jointIndices(data []float32, remap map[int]uint16) [][4]uint16 {
	out := make([][4]uint16, len(data)/4)
	for i := range out {
		for j := 0; j < 4; j++ {
			out[i][j] = remap[int(data[i*4+j])]
		}
	}
	return out
}

func vec2s(data []float32) [][2]float32 {
	out := make([][2]float32, len(data)/2)
	for i := range out {
		out[i] = [2]float32{data[i*2], data[i*2+1]}
	}
	return out
}

func vec3s(data []float32) [][3]float32 {
	out := make([][3]float32, len(data)/3)
	for i := range out {
		out[i] = [3]float32{data[i*3], data[i*3+1], data[i*3+2]}
	}
	return out
}

func vec4s(data []float32) [][4]float32 {
	out := make([][4]float32, len(data)/4)
	for i := range out {
		out[i] = [4]float32{data[i*4], data[i*4+1], data[i*4+2], data[i*4+3]}
	}
	return out
}
