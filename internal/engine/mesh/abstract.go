package mesh

import (
	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Viewer is the camera side of level-of-detail selection.
type Viewer interface {
	GlobalPosition() math.Vec3
}

// AbstractMesh is implemented by Mesh and InstancedMesh.
type AbstractMesh interface {
	TransformNode() *Node
	Scene() Scene
	SubMeshes() []*SubMesh
	BoundingInfo() *bounds.Info
	TotalVertices() int
	IsEnabled() bool
	IsVisibleMesh() bool
	MeshVisibility() float32
	IsBlocked() bool
	IsInFrustum(planes [6]math.Plane) bool
	// SelectLOD returns the mesh to render for viewer, or nil to render
	// nothing.
	SelectLOD(viewer Viewer) AbstractMesh
	PreActivate()
	Activate(renderID int)
	RenderingMesh() *Mesh
	Dispose(doNotRecurse bool) error

	base() *meshBase
}

// meshBase is the state shared by meshes and instances.
type meshBase struct {
	*Node

	IsVisible bool
	// IsOccluded is set by an occlusion query and skips rendering.
	IsOccluded               bool
	LayerMask                uint32
	AlwaysSelectAsActiveMesh bool

	scene        Scene
	subMeshes    []*SubMesh
	boundingInfo *bounds.Info
	renderID     int
}

func newMeshBase(name string, scene Scene, owner any) *meshBase {
	b := &meshBase{
		Node:      newNode(name, scene, owner),
		IsVisible: true,
		LayerMask: 0x0FFFFFFF,
		scene:     scene,
		renderID:  -1,
	}
	b.OnAfterWorldMatrixUpdate.Add(func(*Node) { b.updateBoundingInfo() })
	return b
}

func (b *meshBase) base() *meshBase            { return b }
func (b *meshBase) TransformNode() *Node       { return b.Node }
func (b *meshBase) Scene() Scene               { return b.scene }
func (b *meshBase) SubMeshes() []*SubMesh      { return b.subMeshes }
func (b *meshBase) BoundingInfo() *bounds.Info { return b.boundingInfo }
func (b *meshBase) RenderID() int              { return b.renderID }
func (b *meshBase) IsVisibleMesh() bool        { return b.IsVisible }

func (b *meshBase) setBoundingInfo(info *bounds.Info) {
	b.boundingInfo = info
}

// updateBoundingInfo moves the bounding volumes of the mesh and its
// partial sub-meshes to the current world matrix.
func (b *meshBase) updateBoundingInfo() {
	world := b.WorldMatrixFromCache()
	if b.boundingInfo != nil {
		b.boundingInfo.Update(world)
	}
	for _, sm := range b.subMeshes {
		if !sm.IsGlobal() {
			sm.UpdateBoundingInfo(world)
		}
	}
}

// IsInFrustum reports whether the bounding volumes intersect planes.
func (b *meshBase) IsInFrustum(planes [6]math.Plane) bool {
	if b.boundingInfo == nil {
		return true
	}
	return b.boundingInfo.IsInFrustum(planes)
}

// ReleaseSubMeshes disposes every sub-mesh.
func (b *meshBase) ReleaseSubMeshes() {
	for len(b.subMeshes) > 0 {
		b.subMeshes[0].Dispose()
	}
}

func (b *meshBase) appendSubMesh(sm *SubMesh) int {
	b.subMeshes = append(b.subMeshes, sm)
	return len(b.subMeshes) - 1
}

func (b *meshBase) removeSubMesh(sm *SubMesh) {
	for i, s := range b.subMeshes {
		if s == sm {
			b.subMeshes = append(b.subMeshes[:i], b.subMeshes[i+1:]...)
			return
		}
	}
}
