package mesh

import (
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// SubMesh is a range of a mesh's vertex and index buffers drawn with one
// material.
type SubMesh struct {
	MaterialIndex int
	VerticesStart int
	VerticesCount int
	IndexStart    int
	IndexCount    int

	// Effect overrides the material effect when set.
	Effect gpu.Effect

	id               int
	mesh             AbstractMesh
	renderingMesh    *Mesh
	boundingInfo     *bounds.Info
	linesIndexBuffer gpu.Buffer
	linesIndexCount  int
	currentMaterial  material.Material
	attributesDirty  bool
}

// NewSubMesh appends a sub-mesh to m. renderingMesh holds the buffers and
// defaults to m.
func NewSubMesh(materialIndex, verticesStart, verticesCount, indexStart, indexCount int, m AbstractMesh, renderingMesh *Mesh, createBoundingBox bool) *SubMesh {
	if renderingMesh == nil {
		renderingMesh = m.RenderingMesh()
	}
	sm := &SubMesh{
		MaterialIndex: materialIndex,
		VerticesStart: verticesStart,
		VerticesCount: verticesCount,
		IndexStart:    indexStart,
		IndexCount:    indexCount,
		mesh:          m,
		renderingMesh: renderingMesh,
	}
	sm.id = m.base().appendSubMesh(sm)
	if createBoundingBox {
		sm.RefreshBoundingInfo()
		m.TransformNode().ComputeWorldMatrix(true)
	}
	return sm
}

// ID is the position of the sub-mesh in its mesh at creation.
func (sm *SubMesh) ID() int              { return sm.id }
func (sm *SubMesh) Mesh() AbstractMesh   { return sm.mesh }
func (sm *SubMesh) RenderingMesh() *Mesh { return sm.renderingMesh }
func (sm *SubMesh) LinesIndexCount() int { return sm.linesIndexCount }

// IsGlobal reports whether the sub-mesh covers every vertex of the mesh.
func (sm *SubMesh) IsGlobal() bool {
	return sm.VerticesStart == 0 && sm.VerticesCount == sm.mesh.TotalVertices()
}

// BoundingInfo returns the mesh volumes for a global sub-mesh, its own
// otherwise.
func (sm *SubMesh) BoundingInfo() *bounds.Info {
	if sm.IsGlobal() {
		return sm.mesh.BoundingInfo()
	}
	return sm.boundingInfo
}

func (sm *SubMesh) SetBoundingInfo(info *bounds.Info) { sm.boundingInfo = info }

// Material resolves the material: the sub-material for a multi-material,
// the scene default when the mesh has none.
func (sm *SubMesh) Material() material.Material {
	root := sm.renderingMesh.Material
	if root == nil {
		return sm.mesh.Scene().DefaultMaterial()
	}
	if multi, ok := root.(*material.Multi); ok {
		effective := multi.SubMaterial(sm.MaterialIndex)
		if sm.currentMaterial != effective {
			sm.currentMaterial = effective
			sm.attributesDirty = true
		}
		return effective
	}
	return root
}

// RefreshBoundingInfo recomputes the local extents of the indexed range.
func (sm *SubMesh) RefreshBoundingInfo() {
	if sm.IsGlobal() || sm.renderingMesh == nil || sm.renderingMesh.geometry == nil {
		return
	}
	data := sm.renderingMesh.VerticesData(gpu.PositionKind, false)
	if data == nil {
		sm.boundingInfo = sm.mesh.BoundingInfo()
		return
	}
	indices := sm.renderingMesh.Indices(false)
	var min, max math.Vec3
	if sm.IndexStart == 0 && sm.IndexCount == len(indices) {
		if info := sm.renderingMesh.BoundingInfo(); info != nil {
			min, max = info.Minimum(), info.Maximum()
		}
	} else {
		min, max = extentsIndexed(data, indices, sm.IndexStart, sm.IndexCount)
	}
	sm.boundingInfo = bounds.NewInfo(min, max)
}

func extentsIndexed(positions []float32, indices []uint32, start, count int) (min, max math.Vec3) {
	first := true
	if start < 0 {
		count += start
		start = 0
	}
	for i := start; i < start+count && i < len(indices); i++ {
		off := int(indices[i]) * 3
		if off+2 >= len(positions) {
			continue
		}
		v := math.Vec3FromSlice(positions, off)
		if first {
			min, max, first = v, v, false
			continue
		}
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max
}

// UpdateBoundingInfo moves the volumes to world.
func (sm *SubMesh) UpdateBoundingInfo(world math.Mat4) {
	info := sm.BoundingInfo()
	if info == nil {
		sm.RefreshBoundingInfo()
		info = sm.BoundingInfo()
	}
	if info != nil {
		info.Update(world)
	}
}

// IsInFrustum tests the sub-mesh volumes against planes.
func (sm *SubMesh) IsInFrustum(planes [6]math.Plane) bool {
	info := sm.BoundingInfo()
	if info == nil {
		return false
	}
	return info.IsInFrustum(planes)
}

// Render draws the sub-mesh through its rendering mesh and reports
// whether anything was drawn.
func (sm *SubMesh) Render(enableAlphaMode bool) bool {
	return sm.renderingMesh.Render(sm, enableAlphaMode)
}

// linesIndices lazily builds the wireframe index buffer: every
// triangle becomes its three edges.
func (sm *SubMesh) linesIndices(indices []uint32, engine gpu.Engine) gpu.Buffer {
	if sm.linesIndexBuffer != nil {
		return sm.linesIndexBuffer
	}
	lines := make([]uint32, 0, sm.IndexCount*2)
	for i := sm.IndexStart; i < sm.IndexStart+sm.IndexCount && i+2 < len(indices); i += 3 {
		lines = append(lines,
			indices[i], indices[i+1],
			indices[i+1], indices[i+2],
			indices[i+2], indices[i])
	}
	sm.linesIndexBuffer = engine.CreateIndexBuffer(lines)
	sm.linesIndexCount = len(lines)
	return sm.linesIndexBuffer
}

// Clone copies the partition onto newMesh drawing from newRendering.
func (sm *SubMesh) Clone(newMesh AbstractMesh, newRendering *Mesh) *SubMesh {
	c := NewSubMesh(sm.MaterialIndex, sm.VerticesStart, sm.VerticesCount, sm.IndexStart, sm.IndexCount, newMesh, newRendering, false)
	if !sm.IsGlobal() {
		if info := sm.BoundingInfo(); info != nil {
			c.boundingInfo = bounds.NewInfo(info.Minimum(), info.Maximum())
		}
	}
	return c
}

// Dispose releases the wireframe buffer and removes the sub-mesh from its
// mesh.
func (sm *SubMesh) Dispose() {
	if sm.linesIndexBuffer != nil {
		if err := sm.mesh.Scene().Engine().ReleaseBuffer(sm.linesIndexBuffer); err != nil {
			logger.Warn("release lines index buffer", zap.Error(err))
		}
		sm.linesIndexBuffer = nil
	}
	sm.mesh.base().removeSubMesh(sm)
}
