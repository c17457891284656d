package mesh

import (
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// BakeTransformIntoVertices applies transform to the positions and normals
// of the geometry. Sub-meshes are preserved and the winding is flipped
// when the transform mirrors the mesh.
func (m *Mesh) BakeTransformIntoVertices(transform math.Mat4) error {
	if !m.IsVerticesDataPresent(gpu.PositionKind) {
		return ErrMissingVertexData
	}
	saved := m.subMeshes
	m.subMeshes = nil

	data := m.VerticesData(gpu.PositionKind, false)
	out := make([]float32, len(data))
	for i := 0; i+2 < len(data); i += 3 {
		transform.TransformPoint(math.Vec3FromSlice(data, i)).PutSlice(out, i)
	}
	m.SetVerticesData(gpu.PositionKind, out, m.IsVertexBufferUpdatable(gpu.PositionKind))

	if m.IsVerticesDataPresent(gpu.NormalKind) {
		data = m.VerticesData(gpu.NormalKind, false)
		out = make([]float32, len(data))
		for i := 0; i+2 < len(data); i += 3 {
			transform.TransformDirection(math.Vec3FromSlice(data, i)).Normalize().PutSlice(out, i)
		}
		m.SetVerticesData(gpu.NormalKind, out, m.IsVertexBufferUpdatable(gpu.NormalKind))
	}

	var err error
	if transform[0]*transform[5]*transform[10] < 0 {
		err = m.FlipFaces(false)
	}

	m.ReleaseSubMeshes()
	m.subMeshes = saved
	return err
}

// BakeCurrentTransformIntoVertices bakes the world matrix and resets the
// transform to identity.
func (m *Mesh) BakeCurrentTransformIntoVertices() error {
	if err := m.BakeTransformIntoVertices(m.ComputeWorldMatrix(true)); err != nil {
		return err
	}
	m.ResetTransform()
	return nil
}

// FlipFaces reverses the winding of every triangle and, with flipNormals,
// negates the normals.
func (m *Mesh) FlipFaces(flipNormals bool) error {
	if !m.IsVerticesDataPresent(gpu.PositionKind) {
		return ErrMissingVertexData
	}
	vd := ExtractFromMesh(m, true)
	if flipNormals && vd.Normals != nil {
		normals := append([]float32(nil), vd.Normals...)
		for i := range normals {
			normals[i] = -normals[i]
		}
		vd.Normals = normals
	}
	if vd.Indices != nil {
		indices := append([]uint32(nil), vd.Indices...)
		for i := 0; i+2 < len(indices); i += 3 {
			indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
		}
		vd.Indices = indices
	}
	vd.ApplyToMesh(m, m.IsVertexBufferUpdatable(gpu.PositionKind))
	return nil
}

// expandIndexed rewrites every stream except the skipped kinds so that
// each index gets its own vertex.
func (m *Mesh) expandIndexed(skip string) (map[string][]float32, []uint32, error) {
	indices := m.Indices(false)
	if !m.IsVerticesDataPresent(gpu.PositionKind) || indices == nil {
		return nil, nil, ErrMissingVertexData
	}
	streams := make(map[string][]float32)
	for _, kind := range m.VerticesDataKinds() {
		if kind == skip {
			continue
		}
		data := m.VerticesData(kind, false)
		stride := len(data) / max(m.TotalVertices(), 1)
		out := make([]float32, 0, len(indices)*stride)
		for _, idx := range indices {
			off := int(idx) * stride
			out = append(out, data[off:off+stride]...)
		}
		streams[kind] = out
	}
	sequential := make([]uint32, len(indices))
	for i := range sequential {
		sequential[i] = uint32(i)
	}
	return streams, sequential, nil
}

// rebuildSubMeshes recreates the sub-meshes for expanded buffers, where
// vertex and index ranges coincide.
func (m *Mesh) rebuildSubMeshes(previous []*SubMesh) {
	type part struct{ materialIndex, start, count int }
	parts := make([]part, len(previous))
	for i, sm := range previous {
		parts[i] = part{sm.MaterialIndex, sm.IndexStart, sm.IndexCount}
	}
	m.ReleaseSubMeshes()
	for _, p := range parts {
		NewSubMesh(p.materialIndex, p.start, p.count, p.start, p.count, m, m, true)
	}
}

// ConvertToFlatShadedMesh unshares vertices and gives every triangle its
// face normal.
func (m *Mesh) ConvertToFlatShadedMesh() error {
	normalsUpdatable := m.IsVertexBufferUpdatable(gpu.NormalKind)
	streams, indices, err := m.expandIndexed(gpu.NormalKind)
	if err != nil {
		return err
	}
	previous := append([]*SubMesh(nil), m.subMeshes...)

	positions := streams[gpu.PositionKind]
	normals := make([]float32, len(positions))
	for i := 0; i+8 < len(positions); i += 9 {
		p1 := math.Vec3FromSlice(positions, i)
		p2 := math.Vec3FromSlice(positions, i+3)
		p3 := math.Vec3FromSlice(positions, i+6)
		n := p1.Sub(p2).Cross(p3.Sub(p2)).Normalize()
		for k := 0; k < 3; k++ {
			n.PutSlice(normals, i+k*3)
		}
	}

	m.SetIndices(indices, -1)
	m.SetVerticesData(gpu.NormalKind, normals, normalsUpdatable)
	for _, kind := range Kinds {
		if data, ok := streams[kind]; ok {
			m.SetVerticesData(kind, data, m.IsVertexBufferUpdatable(kind))
		}
	}

	m.rebuildSubMeshes(previous)
	m.SynchronizeInstances()
	return nil
}

// ConvertToUnIndexedMesh unshares vertices and draws the mesh without an
// index buffer.
func (m *Mesh) ConvertToUnIndexedMesh() error {
	streams, indices, err := m.expandIndexed("")
	if err != nil {
		return err
	}
	previous := append([]*SubMesh(nil), m.subMeshes...)

	m.SetIndices(indices, -1)
	for _, kind := range Kinds {
		if data, ok := streams[kind]; ok {
			m.SetVerticesData(kind, data, m.IsVertexBufferUpdatable(kind))
		}
	}

	m.rebuildSubMeshes(previous)
	m.unIndexed = true
	m.SynchronizeInstances()
	return nil
}
