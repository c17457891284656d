package mesh

import (
	"context"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/internal/engine/event"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// DefaultInstancesCapacity is the number of world matrices the instancing
// buffer of a new mesh holds before it first grows.
var DefaultInstancesCapacity = 32

// Appearance groups the per-mesh rendering options copied by Clone.
type Appearance struct {
	Visibility     float32
	ReceiveShadows bool

	RenderOutline bool
	OutlineWidth  float32
	OutlineColor  math.Color3

	RenderOverlay bool
	OverlayColor  math.Color3
	OverlayAlpha  float32

	// OverrideSideOrientation replaces the material winding when set.
	OverrideSideOrientation *material.Orientation
}

// LODSelection is passed to Mesh.OnLODLevelSelection.
type LODSelection struct {
	Distance float32
	Mesh     *Mesh
	// Selected is nil when nothing should be drawn.
	Selected *Mesh
}

// Mesh owns a geometry, a material and the sub-meshes that partition the
// geometry for drawing.
type Mesh struct {
	*meshBase
	Appearance

	Material           material.Material
	MorphTargetManager *MorphTargetManager
	PhysicsImpostor    PhysicsImpostor
	RenderTargets      []RenderTarget

	OnBeforeRender      event.Observable[*Mesh]
	OnAfterRender       event.Observable[*Mesh]
	OnBeforeDraw        event.Observable[*Mesh]
	OnLODLevelSelection event.Observable[LODSelection]

	geometry     *Geometry
	skeleton     *skeleton.Skeleton
	poseMatrix   math.Mat4
	boneMatrices []float32
	unIndexed    bool

	source     *Mesh
	masterMesh *Mesh
	lodLevels  []*LODLevel

	instances            []*InstancedMesh
	visibleInstances     *visibleInstances
	renderIDForInstances map[int]int
	batch                *InstancesBatch
	preActivateID        int

	instancesBuffer     *gpu.DataBuffer
	instancesData       []float32
	instancesBufferSize int
	instanceVBs         map[string]*gpu.VertexBuffer
}

// NewMesh creates an empty mesh registered in scene.
func NewMesh(name string, scene Scene) *Mesh {
	m := &Mesh{
		Appearance: Appearance{
			Visibility:   1,
			OutlineWidth: 0.02,
			OutlineColor: math.Color3{R: 1},
			OverlayColor: math.Color3{R: 1},
			OverlayAlpha: 0.5,
		},
		poseMatrix:           math.Identity(),
		renderIDForInstances: make(map[int]int),
		batch:                newInstancesBatch(),
		preActivateID:        -1,
		instancesBufferSize:  DefaultInstancesCapacity * 16 * 4,
	}
	m.meshBase = newMeshBase(name, scene, m)
	scene.AddMesh(m)
	return m
}

func (m *Mesh) RenderingMesh() *Mesh             { return m }
func (m *Mesh) Geometry() *Geometry              { return m.geometry }
func (m *Mesh) Source() *Mesh                    { return m.source }
func (m *Mesh) Instances() []*InstancedMesh      { return m.instances }
func (m *Mesh) HasInstances() bool               { return len(m.instances) > 0 }
func (m *Mesh) MeshVisibility() float32          { return m.Visibility }
func (m *Mesh) LocalScaling() math.Vec3          { return m.Scaling }
func (m *Mesh) IsUnIndexed() bool                { return m.unIndexed }
func (m *Mesh) SetUnIndexed(v bool)              { m.unIndexed = v }
func (m *Mesh) PoseMatrix() math.Mat4            { return m.poseMatrix }
func (m *Mesh) UpdatePoseMatrix(p math.Mat4)     { m.poseMatrix = p }
func (m *Mesh) BoneTransformMatrices() []float32 { return m.boneMatrices }

func (m *Mesh) SetBoneTransformMatrices(b []float32) { m.boneMatrices = b }

// InstancesBufferCapacity returns the size in bytes of the instancing
// buffer.
func (m *Mesh) InstancesBufferCapacity() int { return m.instancesBufferSize }

// SetInstancesCapacity sets how many world matrices the instancing buffer
// starts with. It has no effect once the buffer exists.
func (m *Mesh) SetInstancesCapacity(n int) {
	if m.instancesBuffer != nil || n < 1 {
		return
	}
	m.instancesBufferSize = n * 16 * 4
}

// Skeleton returns the skeleton deforming the mesh.
func (m *Mesh) Skeleton() *skeleton.Skeleton { return m.skeleton }

// SetSkeleton binds s, moving the pose registration from the previous
// skeleton.
func (m *Mesh) SetSkeleton(s *skeleton.Skeleton) {
	if m.skeleton != nil && m.skeleton.NeedInitialSkinMatrix {
		m.skeleton.UnregisterMeshWithPoseMatrix(m)
	}
	if s != nil && s.NeedInitialSkinMatrix {
		s.RegisterMeshWithPoseMatrix(m)
	}
	m.skeleton = s
	if s == nil {
		m.boneMatrices = nil
	}
	m.markSubMeshesAsAttributesDirty()
}

// BoneMatrices returns the skinning palette for this mesh.
func (m *Mesh) BoneMatrices() []float32 {
	if m.skeleton == nil {
		return nil
	}
	return m.skeleton.TransformMatrices(m)
}

// IsBlocked reports whether the mesh is a level of detail of another mesh
// and therefore never selected on its own.
func (m *Mesh) IsBlocked() bool { return m.masterMesh != nil }

func (m *Mesh) TotalVertices() int {
	if m.geometry == nil {
		return 0
	}
	return m.geometry.TotalVertices()
}

func (m *Mesh) TotalIndices() int {
	if m.geometry == nil {
		return 0
	}
	return m.geometry.TotalIndices()
}

func (m *Mesh) VerticesData(kind string, copyWhenShared bool) []float32 {
	if m.geometry == nil {
		return nil
	}
	return m.geometry.VerticesData(kind, copyWhenShared)
}

func (m *Mesh) VertexBuffer(kind string) *gpu.VertexBuffer {
	if m.geometry == nil {
		return nil
	}
	return m.geometry.VertexBuffer(kind)
}

func (m *Mesh) IsVerticesDataPresent(kind string) bool {
	if m.geometry == nil {
		return false
	}
	return m.geometry.IsVerticesDataPresent(kind)
}

func (m *Mesh) IsVertexBufferUpdatable(kind string) bool {
	if m.geometry == nil {
		return false
	}
	return m.geometry.IsVertexBufferUpdatable(kind)
}

func (m *Mesh) VerticesDataKinds() []string {
	if m.geometry == nil {
		return nil
	}
	return m.geometry.VerticesDataKinds()
}

func (m *Mesh) Indices(copyWhenShared bool) []uint32 {
	if m.geometry == nil {
		return nil
	}
	return m.geometry.Indices(copyWhenShared)
}

// SetVerticesData sets a stream, creating a geometry for the mesh when it
// has none.
func (m *Mesh) SetVerticesData(kind string, data []float32, updatable bool) {
	if m.geometry == nil {
		vd := &VertexData{}
		vd.Set(kind, data)
		NewGeometry(uuid.NewString(), m.scene, vd, updatable, m)
		return
	}
	m.geometry.SetVerticesData(kind, data, updatable)
}

// UpdateVerticesData overwrites an existing stream. With makeItUnique a
// shared geometry is first copied for this mesh alone.
func (m *Mesh) UpdateVerticesData(kind string, data []float32, updateExtends, makeItUnique bool) bool {
	if m.geometry == nil {
		return false
	}
	if makeItUnique {
		m.MakeGeometryUnique()
	}
	return m.geometry.UpdateVerticesData(kind, data, updateExtends)
}

// MakeGeometryUnique gives the mesh a private copy of its geometry.
func (m *Mesh) MakeGeometryUnique() {
	if m.geometry == nil || len(m.geometry.Meshes()) < 2 {
		return
	}
	old := m.geometry
	g := old.Copy(uuid.NewString())
	old.ReleaseForMesh(m, true)
	g.ApplyToMesh(m)
}

// SetIndices sets the index buffer, creating a geometry when needed.
// totalVertices < 0 keeps the current vertex count.
func (m *Mesh) SetIndices(indices []uint32, totalVertices int) {
	if m.geometry == nil {
		NewGeometry(uuid.NewString(), m.scene, &VertexData{Indices: indices}, false, m)
		return
	}
	m.geometry.SetIndices(indices, totalVertices)
}

// createGlobalSubMesh ensures the mesh has sub-meshes covering its
// buffers. Existing sub-meshes are kept unless force is set or one of them
// overruns the buffers.
func (m *Mesh) createGlobalSubMesh(force bool) *SubMesh {
	totalVertices := m.TotalVertices()
	if totalVertices == 0 || m.Indices(false) == nil {
		return nil
	}
	if len(m.subMeshes) > 0 {
		totalIndices := len(m.Indices(false))
		needed := false
		if !force {
			for _, sm := range m.subMeshes {
				if sm.IndexStart+sm.IndexCount >= totalIndices || sm.VerticesStart+sm.VerticesCount >= totalVertices {
					needed = true
					break
				}
			}
			if !needed {
				return nil
			}
		}
	}
	m.ReleaseSubMeshes()
	return NewSubMesh(0, 0, totalVertices, 0, m.TotalIndices(), m, m, true)
}

// Subdivide splits the indices into count sub-meshes of whole triangles.
func (m *Mesh) Subdivide(count int) {
	if count < 1 {
		return
	}
	totalIndices := m.TotalIndices()
	size := totalIndices / count
	for size%3 != 0 {
		size++
	}
	m.ReleaseSubMeshes()
	for i, offset := 0, 0; i < count && offset < totalIndices; i, offset = i+1, offset+size {
		m.CreateSubMeshFromIndices(0, offset, min(size, totalIndices-offset))
	}
	m.SynchronizeInstances()
}

// CreateSubMeshFromIndices creates a sub-mesh for an index range, deriving
// the vertex range from the indices it references.
func (m *Mesh) CreateSubMeshFromIndices(materialIndex, indexStart, indexCount int) *SubMesh {
	indices := m.Indices(false)
	lo, hi := -1, -1
	for i := indexStart; i < indexStart+indexCount && i < len(indices); i++ {
		v := int(indices[i])
		if lo < 0 || v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo < 0 {
		lo, hi = 0, -1
	}
	return NewSubMesh(materialIndex, lo, hi-lo+1, indexStart, indexCount, m, m, true)
}

func (m *Mesh) markSubMeshesAsAttributesDirty() {
	for _, sm := range m.subMeshes {
		sm.attributesDirty = true
	}
}

// RefreshBoundingInfo recomputes the local volumes from the positions.
func (m *Mesh) RefreshBoundingInfo() {
	data := m.VerticesData(gpu.PositionKind, false)
	if data != nil {
		min, max := bounds.Extents(data, 0, m.TotalVertices())
		m.boundingInfo = bounds.NewInfo(min, max)
	}
	for _, sm := range m.subMeshes {
		sm.RefreshBoundingInfo()
	}
	m.updateBoundingInfo()
}

// SynchronizeInstances rebuilds the sub-meshes of every instance from the
// mesh.
func (m *Mesh) SynchronizeInstances() {
	for _, inst := range m.instances {
		inst.syncSubMeshes()
	}
}

// IsReady reports whether the geometry is loaded and every sub-mesh
// material can draw.
func (m *Mesh) IsReady(forceInstancing bool) bool {
	if m.geometry == nil || !m.geometry.IsReady() {
		return false
	}
	hardware := m.scene.Engine().Caps().InstancedArrays && (len(m.instances) > 0 || forceInstancing)
	for _, sm := range m.subMeshes {
		mat := sm.Material()
		if mat != nil && !mat.IsReady(m, hardware) {
			return false
		}
	}
	return true
}

// CheckDelayState starts loading a delayed geometry.
func (m *Mesh) CheckDelayState(ctx context.Context, load LoadFunc) {
	if m.geometry == nil || m.geometry.DelayLoadState() != DelayLoadNotLoaded {
		return
	}
	m.geometry.Load(ctx, load, nil, nil)
}

// AnimatedProperty extends the node properties with visibility.
func (m *Mesh) AnimatedProperty(path []string) (any, bool) {
	if len(path) == 1 && path[0] == "visibility" {
		return m.Visibility, true
	}
	return m.Node.AnimatedProperty(path)
}

func (m *Mesh) SetAnimatedProperty(path []string, value any) bool {
	if len(path) == 1 && path[0] == "visibility" {
		f, ok := value.(float32)
		if ok {
			m.Visibility = f
		}
		return ok
	}
	return m.Node.SetAnimatedProperty(path, value)
}

// Clone copies the mesh. The geometry and material are shared; children
// are cloned unless doNotCloneChildren is set.
func (m *Mesh) Clone(name string, parent *Node, doNotCloneChildren, clonePhysicsImpostor bool) *Mesh {
	c := NewMesh(name, m.scene)
	if m.geometry != nil {
		m.geometry.ApplyToMesh(c)
	}
	if err := copier.CopyWithOption(&c.Appearance, &m.Appearance, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("clone mesh appearance", zap.String("mesh", m.Name), zap.Error(err))
	}
	c.copyTransform(m.Node)
	c.Metadata = m.Metadata
	c.enabled = m.enabled
	c.IsVisible = m.IsVisible
	c.LayerMask = m.LayerMask
	c.AlwaysSelectAsActiveMesh = m.AlwaysSelectAsActiveMesh
	c.poseMatrix = m.poseMatrix
	c.unIndexed = m.unIndexed
	c.source = m
	c.ID = name + "." + m.ID
	c.Material = m.Material
	c.MorphTargetManager = m.MorphTargetManager
	for _, a := range m.Animations {
		c.Animations = append(c.Animations, a.Clone())
	}

	if !doNotCloneChildren {
		for _, child := range m.Descendants(true) {
			switch o := child.Owner().(type) {
			case *Mesh:
				o.Clone(name+"."+o.Name, c.Node, false, clonePhysicsImpostor)
			case *InstancedMesh:
				o.Clone(name+"."+o.Name, c.Node, false)
			}
		}
	}

	if clonePhysicsImpostor && m.PhysicsImpostor != nil {
		c.PhysicsImpostor = m.PhysicsImpostor.Clone(c)
	}
	for _, ps := range m.scene.ParticleSystems() {
		if e, ok := ps.Emitter().(*Mesh); ok && e == m {
			ps.Clone(ps.Name(), c)
		}
	}

	c.RefreshBoundingInfo()
	c.ComputeWorldMatrix(true)
	if parent != nil {
		c.SetParent(parent)
	}
	return c
}

// Dispose releases the geometry, the instancing buffer, the instances and
// the level of detail links. Children are disposed unless doNotRecurse is
// set.
func (m *Mesh) Dispose(doNotRecurse bool) error {
	if m.IsDisposed() {
		return nil
	}
	var err error
	m.MorphTargetManager = nil

	if m.geometry != nil {
		m.geometry.ReleaseForMesh(m, true)
	}
	for _, other := range m.scene.Meshes() {
		if o, ok := other.(*Mesh); ok && o.source == m {
			o.source = nil
		}
	}
	m.source = nil

	if m.instancesBuffer != nil {
		err = multierr.Append(err, m.instancesBuffer.Dispose())
		m.instancesBuffer = nil
		m.instanceVBs = nil
	}
	for len(m.instances) > 0 {
		err = multierr.Append(err, m.instances[0].Dispose(false))
	}
	for _, rt := range m.RenderTargets {
		err = multierr.Append(err, rt.Dispose())
	}
	m.RenderTargets = nil

	if m.masterMesh != nil {
		m.masterMesh.RemoveLODLevel(m)
	}
	for _, l := range m.lodLevels {
		if l.Mesh != nil {
			l.Mesh.masterMesh = nil
		}
	}
	m.lodLevels = nil

	if m.skeleton != nil {
		m.SetSkeleton(nil)
	}
	if m.PhysicsImpostor != nil {
		m.PhysicsImpostor.Dispose()
		m.PhysicsImpostor = nil
	}
	m.OnBeforeRender.Clear()
	m.OnAfterRender.Clear()
	m.OnBeforeDraw.Clear()
	m.OnLODLevelSelection.Clear()

	return multierr.Append(err, disposeAbstract(m, doNotRecurse))
}

// disposeAbstract is the part of Dispose shared by meshes and instances.
func disposeAbstract(am AbstractMesh, doNotRecurse bool) error {
	b := am.base()
	var err error
	b.scene.StopAnimation(am)
	b.ReleaseSubMeshes()

	children := append([]*Node(nil), b.Descendants(true)...)
	for _, child := range children {
		if doNotRecurse {
			child.SetParent(nil)
			child.ComputeWorldMatrix(true)
			continue
		}
		if cm, ok := child.Owner().(AbstractMesh); ok {
			err = multierr.Append(err, cm.Dispose(false))
		}
	}

	b.scene.RemoveMesh(am)
	b.Node.dispose()
	return err
}
