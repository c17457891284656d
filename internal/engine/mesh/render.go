package mesh

import (
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// drawHook runs before each draw of the mesh or one of its instances.
type drawHook func(isInstance bool, world math.Mat4)

func (m *Mesh) hasDrawableGeometry() bool {
	g := m.geometry
	if g == nil || len(g.VertexBuffers()) == 0 {
		return false
	}
	return g.IndexBuffer() != nil || m.unIndexed
}

// Render draws sm together with the instances visible for it this frame.
// It reports false when a precondition skips the draw: the mesh is
// occluded, the sub-mesh was already drawn with its instances, buffers are
// missing or the material is not ready.
func (m *Mesh) Render(sm *SubMesh, enableAlphaMode bool) bool {
	if m.IsOccluded {
		return false
	}
	batch := m.instancesRenderList(sm.id)
	if batch.MustReturn {
		return false
	}
	if !m.hasDrawableGeometry() {
		return false
	}

	m.OnBeforeRender.Notify(m)

	scene := m.scene
	engine := scene.Engine()
	hardware := engine.Caps().InstancedArrays && batch.VisibleInstances[sm.id] != nil

	mat := sm.Material()
	if mat == nil || !mat.IsReady(m, hardware) {
		return false
	}

	if enableAlphaMode {
		engine.SetAlphaMode(mat.AlphaMode())
	}

	outline := scene.OutlineRenderer()
	savedDepthWrite := engine.DepthWrite()
	if m.RenderOutline && outline != nil {
		engine.SetDepthWrite(false)
		outline.Render(sm, batch, false)
		engine.SetDepthWrite(savedDepthWrite)
	}

	effect := sm.Effect
	if effect == nil {
		effect = mat.Effect()
	}
	if effect == nil {
		return false
	}

	fill := mat.FillMode()
	switch {
	case scene.ForcePointsCloud():
		fill = gpu.PointFillMode
	case scene.ForceWireframe():
		fill = gpu.WireFrameFillMode
	}

	if !hardware {
		m.bind(sm, effect, fill)
	}

	world := m.effectiveWorldMatrix()
	orientation := mat.SideOrientation()
	if m.OverrideSideOrientation != nil {
		orientation = *m.OverrideSideOrientation
	}
	if world.Determinant() < 0 {
		orientation = orientation.Flip()
	}
	reverse := mat.PreBind(effect, orientation)
	if mat.ForceDepthWrite() {
		engine.SetDepthWrite(true)
	}

	mat.Bind(world, m)
	hook := func(isInstance bool, w math.Mat4) {
		if isInstance {
			mat.Bind(w, m)
		}
	}

	if !mat.BackFaceCulling() && mat.SeparateCullingPass() {
		engine.SetState(true, mat.ZOffset(), false, !reverse)
		m.processRendering(sm, effect, fill, batch, hardware, hook)
		engine.SetState(true, mat.ZOffset(), false, reverse)
	}
	m.processRendering(sm, effect, fill, batch, hardware, hook)
	mat.Unbind()

	if m.RenderOutline && savedDepthWrite && outline != nil {
		engine.SetDepthWrite(true)
		engine.SetColorWrite(false)
		outline.Render(sm, batch, false)
		engine.SetColorWrite(true)
	}
	if m.RenderOverlay && outline != nil {
		current := engine.AlphaMode()
		engine.SetAlphaMode(gpu.AlphaCombine)
		outline.Render(sm, batch, true)
		engine.SetAlphaMode(current)
	}

	m.OnAfterRender.Notify(m)
	return true
}

// effectiveWorldMatrix is the world matrix of the master mesh for a level
// of detail, which is drawn where its master stands.
func (m *Mesh) effectiveWorldMatrix() math.Mat4 {
	if m.masterMesh != nil {
		return m.masterMesh.WorldMatrix()
	}
	return m.WorldMatrix()
}

// vertexBuffers merges the geometry streams with the instancing views.
func (m *Mesh) vertexBuffers() map[string]*gpu.VertexBuffer {
	vbs := m.geometry.VertexBuffers()
	if len(m.instanceVBs) == 0 {
		return vbs
	}
	merged := make(map[string]*gpu.VertexBuffer, len(vbs)+len(m.instanceVBs))
	for k, v := range vbs {
		merged[k] = v
	}
	for k, v := range m.instanceVBs {
		merged[k] = v
	}
	return merged
}

func (m *Mesh) bind(sm *SubMesh, effect gpu.Effect, fill gpu.FillMode) {
	engine := m.scene.Engine()
	var index gpu.Buffer
	if !m.unIndexed {
		switch fill {
		case gpu.PointFillMode:
		case gpu.WireFrameFillMode:
			index = sm.linesIndices(m.Indices(false), engine)
		default:
			index = m.geometry.IndexBuffer()
		}
	}
	engine.BindBuffers(m.vertexBuffers(), index, effect)
}

func (m *Mesh) draw(sm *SubMesh, fill gpu.FillMode, instancesCount int) bool {
	if !m.hasDrawableGeometry() {
		return false
	}
	m.OnBeforeDraw.Notify(m)

	engine := m.scene.Engine()
	switch {
	case m.unIndexed || fill == gpu.PointFillMode:
		engine.DrawArraysType(fill, sm.VerticesStart, sm.VerticesCount, instancesCount)
	case fill == gpu.WireFrameFillMode:
		engine.DrawElementsType(fill, 0, sm.linesIndexCount, instancesCount)
	default:
		engine.DrawElementsType(fill, sm.IndexStart, sm.IndexCount, instancesCount)
	}
	return true
}

func (m *Mesh) processRendering(sm *SubMesh, effect gpu.Effect, fill gpu.FillMode, batch *InstancesBatch, hardware bool, hook drawHook) {
	if hardware {
		m.renderWithInstances(sm, effect, fill, batch)
		return
	}
	if batch.RenderSelf[sm.id] {
		if hook != nil {
			hook(false, m.WorldMatrixFromCache())
		}
		m.draw(sm, fill, 0)
	}
	for _, inst := range batch.VisibleInstances[sm.id] {
		if hook != nil {
			hook(true, inst.WorldMatrix())
		}
		m.draw(sm, fill, 0)
	}
}

// renderWithInstances uploads the world matrices of the mesh and its
// visible instances and draws them in one call. The buffer doubles until
// every matrix fits.
func (m *Mesh) renderWithInstances(sm *SubMesh, effect gpu.Effect, fill gpu.FillMode, batch *InstancesBatch) {
	visible := batch.VisibleInstances[sm.id]
	bufferSize := (len(visible) + 1) * 16 * 4
	previous := m.instancesBufferSize
	for m.instancesBufferSize < bufferSize {
		m.instancesBufferSize *= 2
	}
	if m.instancesData == nil || previous != m.instancesBufferSize {
		m.instancesData = make([]float32, m.instancesBufferSize/4)
	}

	offset, count := 0, 0
	if batch.RenderSelf[sm.id] {
		m.WorldMatrixFromCache().PutSlice(m.instancesData, offset)
		offset += 16
		count++
	}
	for _, inst := range visible {
		inst.WorldMatrix().PutSlice(m.instancesData, offset)
		offset += 16
		count++
	}

	engine := m.scene.Engine()
	if m.instancesBuffer == nil || previous != m.instancesBufferSize {
		if m.instancesBuffer != nil {
			if err := m.instancesBuffer.Dispose(); err != nil {
				logger.Warn("dispose instances buffer", zap.String("mesh", m.Name), zap.Error(err))
			}
		}
		m.instancesBuffer = gpu.NewDataBuffer(engine, m.instancesData, true, 16, true)
		m.instanceVBs = make(map[string]*gpu.VertexBuffer, len(gpu.InstanceWorldKinds))
		for i, kind := range gpu.InstanceWorldKinds {
			m.instanceVBs[kind] = m.instancesBuffer.CreateVertexBuffer(kind, i*4, 4)
		}
	} else {
		m.instancesBuffer.UpdateDirectly(m.instancesData, 0, count)
	}

	m.bind(sm, effect, fill)
	m.draw(sm, fill, count)
	engine.UnbindInstanceAttributes()
}
