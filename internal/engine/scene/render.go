package scene

import (
	"cmp"
	"time"

	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// FrameStats counts the work of the last Render call, summed over the
// camera passes.
type FrameStats struct {
	RenderID        int
	Passes          int
	TotalVertices   int
	ActiveMeshes    int
	ActiveSkeletons int
	ActiveBones     int
	DrawnSubMeshes  int
}

// Stats returns the counters of the last frame.
func (s *Scene) Stats() FrameStats { return s.stats }

// Render draws one frame at the animation time now: queued continuations
// run, animations advance, then every eye of the active camera (or the
// camera itself) is rendered in its own render id.
func (s *Scene) Render(now time.Duration) (FrameStats, error) {
	s.RunPosted()
	s.stats = FrameStats{}
	s.activeBones = 0

	cam := s.activeCamera
	if cam == nil {
		return s.stats, ErrNoCamera
	}
	s.OnBeforeRender.Notify(s)
	s.Animate(now)
	cam.Update()

	if rigs := cam.RigCameras(); len(rigs) > 0 {
		for _, eye := range rigs {
			if !eye.SkipRendering {
				s.renderForCamera(eye)
			}
		}
	} else {
		s.renderForCamera(cam)
	}

	s.stats.RenderID = s.renderID
	s.stats.ActiveBones = s.activeBones
	s.OnAfterRender.Notify(s)
	return s.stats, nil
}

func (s *Scene) renderForCamera(cam *camera.Camera) {
	s.IncrementRenderID()
	s.stats.Passes++

	s.engine.SetViewport(cam.Viewport)
	s.SetTransformMatrix(cam.ViewMatrix(false), cam.ProjectionMatrix(false))
	s.updateAlternateTransformMatrix(cam.AlternateCamera)

	s.evaluateActiveMeshes(cam)
	for _, sk := range s.activeSkeletons {
		sk.Prepare()
	}
	s.stats.ActiveMeshes += len(s.activeMeshes)
	s.stats.ActiveSkeletons += len(s.activeSkeletons)

	s.renderLists(cam.GlobalPosition())
}

// selection returns the layer mask and the always-active flag of m.
func selection(m mesh.AbstractMesh) (uint32, bool) {
	switch v := m.(type) {
	case *mesh.Mesh:
		return v.LayerMask, v.AlwaysSelectAsActiveMesh
	case *mesh.InstancedMesh:
		return v.LayerMask, v.AlwaysSelectAsActiveMesh
	}
	return 0x0FFFFFFF, false
}

// isReady reports whether m can draw, starting the load of a delayed
// geometry once the mesh enters the frustum.
func (s *Scene) isReady(m mesh.AbstractMesh, planes [6]math.Plane) bool {
	mm, ok := m.(*mesh.Mesh)
	if !ok {
		mm = m.RenderingMesh()
	}
	if g := mm.Geometry(); g != nil && g.DelayLoadState() == mesh.DelayLoadNotLoaded {
		if s.loader != nil && m.IsInFrustum(planes) {
			mm.CheckDelayState(s.loadCtx, s.loader)
		}
		return false
	}
	return mm.IsReady(false)
}

func (s *Scene) evaluateActiveMeshes(cam *camera.Camera) {
	s.activeMeshes = s.activeMeshes[:0]
	s.activeSkeletons = s.activeSkeletons[:0]
	s.opaque = s.opaque[:0]
	s.transparent = s.transparent[:0]

	planes := cam.FrustumPlanes()
	for _, m := range s.meshes {
		if m.IsBlocked() {
			continue
		}
		s.stats.TotalVertices += m.TotalVertices()
		if !m.IsEnabled() {
			continue
		}
		m.TransformNode().ComputeWorldMatrix(false)
		if !s.isReady(m, planes) {
			continue
		}

		lod := m.SelectLOD(cam)
		if lod == nil {
			continue
		}
		m.PreActivate()

		layer, always := selection(m)
		if always || m.IsVisibleMesh() && m.MeshVisibility() > 0 &&
			layer&cam.LayerMask != 0 && m.IsInFrustum(planes) {
			s.activeMeshes = append(s.activeMeshes, m)
			m.Activate(s.renderID)
			s.activeMesh(m, lod, planes)
		}
	}
}

func (s *Scene) activeMesh(m, lod mesh.AbstractMesh, planes [6]math.Plane) {
	if sk := m.RenderingMesh().Skeleton(); sk != nil && !slices.Contains(s.activeSkeletons, sk) {
		s.activeSkeletons = append(s.activeSkeletons, sk)
	}
	subMeshes := lod.SubMeshes()
	for _, sm := range subMeshes {
		if len(subMeshes) == 1 || sm.IsInFrustum(planes) {
			s.evaluateSubMesh(sm)
		}
	}
}

func (s *Scene) evaluateSubMesh(sm *mesh.SubMesh) {
	mat := sm.Material()
	if mat == nil {
		return
	}
	if mat.NeedAlphaBlending() || sm.Mesh().MeshVisibility() < 1 {
		s.transparent = append(s.transparent, sm)
		return
	}
	s.opaque = append(s.opaque, sm)
}

// renderLists draws the opaque sub-meshes, then the transparent ones from
// back to front.
func (s *Scene) renderLists(eye math.Vec3) {
	for _, sm := range s.opaque {
		if sm.Render(false) {
			s.stats.DrawnSubMeshes++
		}
	}
	if len(s.transparent) == 0 {
		return
	}

	distance := func(sm *mesh.SubMesh) float32 {
		info := sm.BoundingInfo()
		if info == nil {
			return 0
		}
		return info.Sphere.CenterWorld.Distance(eye)
	}
	slices.SortStableFunc(s.transparent, func(a, b *mesh.SubMesh) int {
		return cmp.Compare(distance(b), distance(a))
	})
	for _, sm := range s.transparent {
		if sm.Render(true) {
			s.stats.DrawnSubMeshes++
		}
	}
	s.engine.SetAlphaMode(gpu.AlphaDisable)
}

// RenderIntermediate draws the sub-meshes selected by the last frame from
// cam, in a new render id flagged as intermediate. Instances reuse the
// lists of the main pass. It returns the number of sub-meshes drawn.
func (s *Scene) RenderIntermediate(cam *camera.Camera) int {
	mainID := s.renderID
	view, projection := s.view, s.projection

	s.intermediate = true
	s.IncrementRenderID()
	s.SetTransformMatrix(cam.ViewMatrix(false), cam.ProjectionMatrix(false))
	for _, m := range s.activeMeshes {
		m.RenderingMesh().PreActivateForIntermediateRendering(mainID)
	}

	before := s.stats.DrawnSubMeshes
	s.renderLists(cam.GlobalPosition())
	drawn := s.stats.DrawnSubMeshes - before
	s.stats.DrawnSubMeshes = before

	s.SetTransformMatrix(view, projection)
	s.intermediate = false
	return drawn
}

// PrepareSkeletons refreshes the absolute transforms of every skeleton
// for the current render id, for callers that query bone positions
// between frames.
func (s *Scene) PrepareSkeletons(force bool) {
	for _, sk := range s.skeletons {
		sk.ComputeAbsoluteTransforms(force)
	}
}
