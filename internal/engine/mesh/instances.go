package mesh

import (
	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
)

// InstancesBatch is the per sub-mesh draw list of a frame: whether the
// mesh itself is drawn and which instances are drawn with it.
type InstancesBatch struct {
	// MustReturn is set when the sub-mesh was already drawn with its
	// instances during the current render id.
	MustReturn       bool
	RenderSelf       map[int]bool
	VisibleInstances map[int][]*InstancedMesh
}

func newInstancesBatch() *InstancesBatch {
	return &InstancesBatch{
		RenderSelf:       make(map[int]bool),
		VisibleInstances: make(map[int][]*InstancedMesh),
	}
}

// visibleInstances records the instances activated per render id.
type visibleInstances struct {
	byRenderID                  map[int][]*InstancedMesh
	defaultRenderID             int
	selfDefaultRenderID         int
	intermediateDefaultRenderID int
}

func (m *Mesh) registerInstanceForRenderID(inst *InstancedMesh, renderID int) {
	if m.visibleInstances == nil {
		m.visibleInstances = &visibleInstances{
			byRenderID:          make(map[int][]*InstancedMesh),
			defaultRenderID:     renderID,
			selfDefaultRenderID: m.renderID,
		}
	}
	vi := m.visibleInstances
	vi.byRenderID[renderID] = append(vi.byRenderID[renderID], inst)
}

// PreActivate resets the visible instances once per frame.
func (m *Mesh) PreActivate() {
	id := m.scene.RenderID()
	if m.preActivateID == id {
		return
	}
	m.preActivateID = id
	m.visibleInstances = nil
}

// PreActivateForIntermediateRendering makes renderID the fallback list
// for intermediate passes such as shadow maps.
func (m *Mesh) PreActivateForIntermediateRendering(renderID int) {
	if m.visibleInstances != nil {
		m.visibleInstances.intermediateDefaultRenderID = renderID
	}
}

// Activate marks the mesh as drawn for renderID.
func (m *Mesh) Activate(renderID int) { m.renderID = renderID }

// instancesRenderList builds the batch for a sub-mesh in the current
// render id. Without instances registered for the current id the list of
// the default id is used, which lets intermediate passes reuse the
// instances selected for the main pass.
func (m *Mesh) instancesRenderList(subMeshID int) *InstancesBatch {
	scene := m.scene
	b := m.batch
	b.MustReturn = false
	b.RenderSelf[subMeshID] = m.IsEnabled() && m.IsVisible
	delete(b.VisibleInstances, subMeshID)

	vi := m.visibleInstances
	if vi == nil {
		return b
	}
	current := scene.RenderID()
	defaultID := vi.defaultRenderID
	if scene.IsInIntermediateRendering() {
		defaultID = vi.intermediateDefaultRenderID
	}
	list := vi.byRenderID[current]
	selfID := m.renderID
	if len(list) == 0 && defaultID != 0 {
		list = vi.byRenderID[defaultID]
		current = max(defaultID, current)
		selfID = max(vi.selfDefaultRenderID, current)
	}

	if len(list) > 0 {
		if last, ok := m.renderIDForInstances[subMeshID]; ok && last == current {
			b.MustReturn = true
			return b
		}
		b.VisibleInstances[subMeshID] = list
		if current != selfID {
			b.RenderSelf[subMeshID] = false
		}
	}
	m.renderIDForInstances[subMeshID] = current
	return b
}

// CreateInstance creates an instance drawing this mesh's geometry.
func (m *Mesh) CreateInstance(name string) *InstancedMesh {
	return NewInstancedMesh(name, m)
}

// InstancedMesh is a transform that reuses the geometry and material of a
// source mesh.
type InstancedMesh struct {
	*meshBase

	source     *Mesh
	currentLOD *Mesh
}

// NewInstancedMesh creates an instance of source at the source transform.
func NewInstancedMesh(name string, source *Mesh) *InstancedMesh {
	inst := &InstancedMesh{source: source}
	inst.meshBase = newMeshBase(name, source.scene, inst)
	source.instances = append(source.instances, inst)
	inst.copyTransform(source.Node)
	inst.RefreshBoundingInfo()
	inst.syncSubMeshes()
	source.scene.AddMesh(inst)
	return inst
}

func (i *InstancedMesh) SourceMesh() *Mesh            { return i.source }
func (i *InstancedMesh) RenderingMesh() *Mesh         { return i.source }
func (i *InstancedMesh) CurrentLOD() *Mesh            { return i.currentLOD }
func (i *InstancedMesh) TotalVertices() int           { return i.source.TotalVertices() }
func (i *InstancedMesh) MeshVisibility() float32      { return i.source.Visibility }
func (i *InstancedMesh) Material() material.Material  { return i.source.Material }
func (i *InstancedMesh) Skeleton() *skeleton.Skeleton { return i.source.skeleton }
func (i *InstancedMesh) IsBlocked() bool              { return false }
func (i *InstancedMesh) Indices(copyWhenShared bool) []uint32 {
	return i.source.Indices(copyWhenShared)
}

func (i *InstancedMesh) VerticesData(kind string, copyWhenShared bool) []float32 {
	return i.source.VerticesData(kind, copyWhenShared)
}

func (i *InstancedMesh) IsVerticesDataPresent(kind string) bool {
	return i.source.IsVerticesDataPresent(kind)
}

// SetVerticesData writes through to the source mesh.
func (i *InstancedMesh) SetVerticesData(kind string, data []float32, updatable bool) {
	i.source.SetVerticesData(kind, data, updatable)
}

// SetIndices writes through to the source mesh.
func (i *InstancedMesh) SetIndices(indices []uint32, totalVertices int) {
	i.source.SetIndices(indices, totalVertices)
}

// RefreshBoundingInfo copies the source local volumes.
func (i *InstancedMesh) RefreshBoundingInfo() {
	info := i.source.BoundingInfo()
	if info == nil {
		return
	}
	i.boundingInfo = bounds.NewInfo(info.Minimum(), info.Maximum())
	i.updateBoundingInfo()
}

func (i *InstancedMesh) syncSubMeshes() {
	i.ReleaseSubMeshes()
	for _, sm := range i.source.subMeshes {
		sm.Clone(i, i.source)
	}
}

// SelectLOD picks the source level for the instance position. The
// instance itself is returned while the source is selected.
func (i *InstancedMesh) SelectLOD(viewer Viewer) AbstractMesh {
	if viewer == nil {
		return i
	}
	var sphere *bounds.Sphere
	if i.boundingInfo != nil {
		sphere = i.boundingInfo.Sphere
	}
	i.currentLOD = i.source.GetLOD(viewer, sphere)
	if i.currentLOD == i.source {
		return i
	}
	if i.currentLOD == nil {
		return nil
	}
	return i.currentLOD
}

func (i *InstancedMesh) PreActivate() {
	if i.currentLOD != nil {
		i.currentLOD.PreActivate()
	}
}

// Activate registers the instance with the selected level for renderID.
func (i *InstancedMesh) Activate(renderID int) {
	i.renderID = renderID
	if i.currentLOD != nil {
		i.currentLOD.registerInstanceForRenderID(i, renderID)
	}
}

// Clone creates a new instance of the same source.
func (i *InstancedMesh) Clone(name string, parent *Node, doNotCloneChildren bool) *InstancedMesh {
	c := i.source.CreateInstance(name)
	c.copyTransform(i.Node)
	c.Metadata = i.Metadata
	c.enabled = i.enabled
	c.IsVisible = i.IsVisible
	c.LayerMask = i.LayerMask
	if parent != nil {
		c.SetParent(parent)
	}
	if !doNotCloneChildren {
		for _, child := range i.Descendants(true) {
			switch o := child.Owner().(type) {
			case *Mesh:
				o.Clone(name+"."+o.Name, c.Node, false, false)
			case *InstancedMesh:
				o.Clone(name+"."+o.Name, c.Node, false)
			}
		}
	}
	c.ComputeWorldMatrix(true)
	return c
}

// Dispose detaches the instance from its source.
func (i *InstancedMesh) Dispose(doNotRecurse bool) error {
	if i.IsDisposed() {
		return nil
	}
	for idx, inst := range i.source.instances {
		if inst == i {
			i.source.instances = append(i.source.instances[:idx], i.source.instances[idx+1:]...)
			break
		}
	}
	i.currentLOD = nil
	return disposeAbstract(i, doNotRecurse)
}
