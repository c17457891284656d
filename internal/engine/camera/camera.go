// Package camera provides the scene cameras: cached view and projection
// matrices, stereo and VR rigs, and the post-process chain rendered behind
// each camera.
package camera

import (
	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/internal/engine/event"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/postprocess"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Mode is the projection kind.
type Mode int

const (
	Perspective Mode = iota
	Orthographic
)

// FovMode selects which axis keeps the field of view fixed.
type FovMode int

const (
	FovVerticalFixed FovMode = iota
	FovHorizontalFixed
)

// Scene is what a camera needs from the scene that owns it.
type Scene interface {
	Engine() gpu.Engine
	RenderID() int
	UseRightHandedSystem() bool
	AddCamera(c *Camera)
	RemoveCamera(c *Camera)
	StopAnimation(target any)
}

// Parent is anything a camera can be attached to.
type Parent interface {
	WorldMatrix() math.Mat4
}

// Controller supplies the behavior that differs between camera kinds. A
// camera without a controller has an identity view and no rig support.
type Controller interface {
	// ComputeViewMatrix computes the view matrix of c.
	ComputeViewMatrix(c *Camera) math.Mat4
	// IsViewSynchronized reports whether the controller inputs are
	// unchanged since the last ComputeViewMatrix call.
	IsViewSynchronized(c *Camera) bool
	// CreateRigCamera returns one eye of a rig, or nil when rigs are not
	// supported.
	CreateRigCamera(c *Camera, name string, eye int) *Camera
	// UpdateRigCameras positions the rig cameras of c.
	UpdateRigCameras(c *Camera)
	// CheckInputs applies pending movement once per frame.
	CheckInputs(c *Camera)
}

type viewCache struct {
	valid       bool
	position    math.Vec3
	up          math.Vec3
	parent      Parent
	parentWorld math.Mat4
}

type projectionCache struct {
	valid        bool
	mode         Mode
	minZ, maxZ   float32
	fov          float32
	fovMode      FovMode
	aspect       float32
	orthoLeft    *float32
	orthoRight   *float32
	orthoBottom  *float32
	orthoTop     *float32
	renderWidth  int
	renderHeight int
}

// Camera is the scene graph camera.
type Camera struct {
	ID   string
	Name string

	Position math.Vec3
	UpVector math.Vec3
	Fov      float32
	MinZ     float32
	MaxZ     float32
	Inertia  float32
	Mode     Mode
	FovMode  FovMode

	// Orthographic bounds; nil uses half the render target size.
	OrthoLeft, OrthoRight, OrthoBottom, OrthoTop *float32

	Viewport  gpu.Viewport
	LayerMask uint32

	// IsIntermediate marks a camera whose output feeds another pass and
	// is never presented.
	IsIntermediate bool
	// SkipRendering is set on an eye rendered by its sibling's alternate
	// pass.
	SkipRendering bool
	// AlternateCamera is rendered in the same pass as this camera.
	AlternateCamera *Camera

	OnViewMatrixChanged       event.Observable[*Camera]
	OnProjectionMatrixChanged event.Observable[*Camera]
	OnAfterCheckInputs        event.Observable[*Camera]

	uniqueID   string
	scene      Scene
	controller Controller
	parent     Parent

	view           math.Mat4
	projection     math.Mat4
	world          math.Mat4
	transform      math.Mat4
	globalPosition math.Vec3
	planes         [6]math.Plane
	planesDirty    bool

	viewCache       viewCache
	projCache       projectionCache
	projFrozen      bool
	currentRenderID int
	childRenderID   int

	rigMode        RigMode
	rig            rigState
	rigCameras     []*Camera
	rigParent      *Camera
	rigPostProcess postprocess.PostProcess
	postProcesses  []postprocess.PostProcess
	strategy       ProjectionStrategy

	disposed bool
}

var _ postprocess.Owner = (*Camera)(nil)

// New creates a camera and registers it with scene. controller may be nil.
func New(name string, position math.Vec3, scene Scene, controller Controller) *Camera {
	c := newCamera(name, position, scene, controller)
	scene.AddCamera(c)
	return c
}

func newCamera(name string, position math.Vec3, scene Scene, controller Controller) *Camera {
	return &Camera{
		ID:          name,
		Name:        name,
		Position:    position,
		UpVector:    math.AxisY,
		Fov:         0.8,
		MinZ:        1,
		MaxZ:        10000,
		Inertia:     0.9,
		Viewport:    gpu.FullViewport(),
		LayerMask:   0x0FFFFFFF,
		uniqueID:    uuid.NewString(),
		scene:       scene,
		controller:  controller,
		view:        math.Identity(),
		projection:  math.Identity(),
		world:       math.Identity(),
		transform:   math.Identity(),
		planesDirty: true,
	}
}

func (c *Camera) UniqueID() string                       { return c.uniqueID }
func (c *Camera) Scene() Scene                           { return c.scene }
func (c *Camera) Controller() Controller                 { return c.controller }
func (c *Camera) Parent() Parent                         { return c.parent }
func (c *Camera) SetParent(p Parent)                     { c.parent = p }
func (c *Camera) IsDisposed() bool                       { return c.disposed }
func (c *Camera) CurrentRenderID() int                   { return c.currentRenderID }
func (c *Camera) ChildRenderID() int                     { return c.childRenderID }
func (c *Camera) RigMode() RigMode                       { return c.rigMode }
func (c *Camera) RigCameras() []*Camera                  { return c.rigCameras }
func (c *Camera) RigParent() *Camera                     { return c.rigParent }
func (c *Camera) IsRigCamera() bool                      { return c.rigParent != nil }
func (c *Camera) ProjectionStrategy() ProjectionStrategy { return c.strategy }

// GlobalPosition is the world position of the camera after the last view
// computation.
func (c *Camera) GlobalPosition() math.Vec3 { return c.globalPosition }

func (c *Camera) rightHanded() bool { return c.scene.UseRightHandedSystem() }

func (c *Camera) isSynchronizedWithParent() bool {
	vc := &c.viewCache
	if vc.parent != c.parent {
		return false
	}
	if c.parent == nil {
		return true
	}
	return vc.parentWorld == c.parent.WorldMatrix()
}

func (c *Camera) isSynchronizedViewMatrix() bool {
	if c.strategy == ProjectionWebVR && c.rig.frame != nil {
		// Device frame data changes every frame.
		return false
	}
	vc := &c.viewCache
	if !vc.valid || vc.position != c.Position || vc.up != c.UpVector || !c.isSynchronizedWithParent() {
		return false
	}
	return c.controller == nil || c.controller.IsViewSynchronized(c)
}

func (c *Camera) updateViewCache() {
	c.viewCache = viewCache{
		valid:    true,
		position: c.Position,
		up:       c.UpVector,
		parent:   c.parent,
	}
	if c.parent != nil {
		c.viewCache.parentWorld = c.parent.WorldMatrix()
	}
}

// ViewMatrix returns the view matrix, recomputing it when force is set or
// the position, up vector, parent or controller state changed.
func (c *Camera) ViewMatrix(force bool) math.Mat4 {
	if !force && c.isSynchronizedViewMatrix() {
		return c.view
	}

	c.updateViewCache()
	c.view = c.computeViewMatrix()

	c.currentRenderID = c.scene.RenderID()
	c.childRenderID = c.currentRenderID
	c.planesDirty = true

	if c.rig.preView != nil {
		c.view = c.rig.preView.Mul(c.view)
	}

	c.OnViewMatrixChanged.Notify(c)

	c.world = c.view.Inverse()
	c.globalPosition = c.world.Translation()
	return c.view
}

func (c *Camera) computeViewMatrix() math.Mat4 {
	if c.strategy == ProjectionWebVR && c.rig.frame != nil {
		return c.webVRViewMatrix()
	}
	if c.controller == nil {
		return math.Identity()
	}
	return c.controller.ComputeViewMatrix(c)
}

// WorldMatrix is the inverse of the view matrix.
func (c *Camera) WorldMatrix() math.Mat4 {
	if !c.isSynchronizedViewMatrix() {
		c.ViewMatrix(false)
	}
	return c.world
}

func (c *Camera) isSynchronizedProjectionMatrix() bool {
	pc := &c.projCache
	if !pc.valid || pc.mode != c.Mode || pc.minZ != c.MinZ || pc.maxZ != c.MaxZ {
		return false
	}
	engine := c.scene.Engine()
	if c.Mode == Perspective {
		return pc.fov == c.Fov && pc.fovMode == c.FovMode && pc.aspect == engine.AspectRatio(c.Viewport)
	}
	return sameBound(pc.orthoLeft, c.OrthoLeft) && sameBound(pc.orthoRight, c.OrthoRight) &&
		sameBound(pc.orthoBottom, c.OrthoBottom) && sameBound(pc.orthoTop, c.OrthoTop) &&
		pc.renderWidth == engine.RenderWidth() && pc.renderHeight == engine.RenderHeight()
}

func sameBound(a, b *float32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyBound(v *float32) *float32 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func boundOr(v *float32, fallback float32) float32 {
	if v == nil {
		return fallback
	}
	return *v
}

// ProjectionMatrix returns the projection matrix, recomputing it when force
// is set or any projection input changed. A frozen projection is returned
// as is.
func (c *Camera) ProjectionMatrix(force bool) math.Mat4 {
	if c.projFrozen {
		return c.projection
	}
	switch c.strategy {
	case ProjectionVR:
		return c.vrProjectionMatrix()
	case ProjectionWebVR:
		if c.rig.frame != nil {
			return c.webVRProjectionMatrix()
		}
	}
	if !force && c.isSynchronizedProjectionMatrix() {
		return c.projection
	}

	engine := c.scene.Engine()
	c.projCache = projectionCache{valid: true, mode: c.Mode, maxZ: c.MaxZ}
	c.planesDirty = true

	if c.Mode == Perspective {
		if c.MinZ <= 0 {
			c.MinZ = 0.1
		}
		aspect := engine.AspectRatio(c.Viewport)
		c.projCache.fov = c.Fov
		c.projCache.fovMode = c.FovMode
		c.projCache.aspect = aspect

		vertical := c.FovMode == FovVerticalFixed
		if c.rightHanded() {
			c.projection = math.PerspectiveFovRH(c.Fov, aspect, c.MinZ, c.MaxZ, vertical)
		} else {
			c.projection = math.PerspectiveFovLH(c.Fov, aspect, c.MinZ, c.MaxZ, vertical)
		}
	} else {
		w, h := engine.RenderWidth(), engine.RenderHeight()
		halfW, halfH := float32(w)/2, float32(h)/2
		left, right := boundOr(c.OrthoLeft, -halfW), boundOr(c.OrthoRight, halfW)
		bottom, top := boundOr(c.OrthoBottom, -halfH), boundOr(c.OrthoTop, halfH)
		if c.rightHanded() {
			c.projection = math.OrthoOffCenterRH(left, right, bottom, top, c.MinZ, c.MaxZ)
		} else {
			c.projection = math.OrthoOffCenterLH(left, right, bottom, top, c.MinZ, c.MaxZ)
		}
		c.projCache.orthoLeft = copyBound(c.OrthoLeft)
		c.projCache.orthoRight = copyBound(c.OrthoRight)
		c.projCache.orthoBottom = copyBound(c.OrthoBottom)
		c.projCache.orthoTop = copyBound(c.OrthoTop)
		c.projCache.renderWidth = w
		c.projCache.renderHeight = h
	}
	c.projCache.minZ = c.MinZ

	c.OnProjectionMatrixChanged.Notify(c)
	return c.projection
}

// FreezeProjectionMatrix pins the current projection until
// UnfreezeProjectionMatrix is called.
func (c *Camera) FreezeProjectionMatrix() { c.projFrozen = true }

// FreezeProjectionMatrixTo pins m as the projection.
func (c *Camera) FreezeProjectionMatrixTo(m math.Mat4) {
	c.projection = m
	c.projFrozen = true
}

func (c *Camera) UnfreezeProjectionMatrix()      { c.projFrozen = false }
func (c *Camera) IsProjectionMatrixFrozen() bool { return c.projFrozen }

// TransformationMatrix returns projection * view.
func (c *Camera) TransformationMatrix() math.Mat4 {
	c.transform = c.ProjectionMatrix(false).Mul(c.ViewMatrix(false))
	return c.transform
}

// FrustumPlanes returns the clip planes of the current transformation.
func (c *Camera) FrustumPlanes() [6]math.Plane {
	m := c.TransformationMatrix()
	if c.planesDirty {
		c.planes = bounds.FrustumPlanes(m)
		c.planesDirty = false
	}
	return c.planes
}

// FrustumTarget is anything that can test itself against clip planes.
type FrustumTarget interface {
	IsInFrustum(planes [6]math.Plane) bool
}

// IsInFrustum reports whether target intersects the camera frustum.
func (c *Camera) IsInFrustum(target FrustumTarget) bool {
	return target.IsInFrustum(c.FrustumPlanes())
}

// IsCompletelyInFrustum reports whether box lies fully inside the frustum.
func (c *Camera) IsCompletelyInFrustum(box *bounds.Box) bool {
	return box.IsCompletelyInFrustum(c.FrustumPlanes())
}

// ForwardRay returns a ray of the given length along the view direction.
func (c *Camera) ForwardRay(length float32) bounds.Ray {
	return c.ForwardRayFrom(length, c.WorldMatrix(), c.Position)
}

// ForwardRayFrom returns a ray along the forward axis of transform.
func (c *Camera) ForwardRayFrom(length float32, transform math.Mat4, origin math.Vec3) bounds.Ray {
	forward := math.AxisZ
	if c.rightHanded() {
		forward = forward.Negate()
	}
	dir := transform.TransformDirection(forward).Normalize()
	return bounds.NewRay(origin, dir, length)
}

// Update applies pending inputs and keeps the rig cameras in sync.
func (c *Camera) Update() {
	if c.controller != nil {
		c.controller.CheckInputs(c)
	}
	c.OnAfterCheckInputs.Notify(c)
	if c.rigMode != RigNone {
		c.updateRigCameras()
	}
}

func (c *Camera) updateRigCameras() {
	if c.controller != nil {
		c.controller.UpdateRigCameras(c)
	}
	for _, rc := range c.rigCameras {
		rc.MinZ = c.MinZ
		rc.MaxZ = c.MaxZ
		rc.Fov = c.Fov
	}
	if c.rigMode == RigStereoAnaglyph && len(c.rigCameras) == 2 {
		c.rigCameras[0].Viewport = c.Viewport
		c.rigCameras[1].Viewport = c.Viewport
	}
}

// PostProcesses returns the chain rendered behind this camera.
func (c *Camera) PostProcesses() []postprocess.PostProcess { return c.postProcesses }

// RigPostProcess is the pass this rig camera appends to its parent's chain.
func (c *Camera) RigPostProcess() postprocess.PostProcess { return c.rigPostProcess }

// Dispose releases the rig cameras and the post-process chain and removes
// the camera from its scene.
func (c *Camera) Dispose() {
	if c.disposed {
		return
	}
	c.OnViewMatrixChanged.Clear()
	c.OnProjectionMatrixChanged.Clear()
	c.OnAfterCheckInputs.Clear()

	c.scene.StopAnimation(c)
	if c.rigParent == nil {
		c.scene.RemoveCamera(c)
	}

	c.disposeRigCameras()

	switch {
	case c.rigPostProcess != nil:
		c.rigPostProcess.Dispose(c)
		c.rigPostProcess = nil
		c.postProcesses = nil
	case c.rigMode != RigNone:
		c.postProcesses = nil
	default:
		for i := len(c.postProcesses) - 1; i >= 0; i-- {
			if i < len(c.postProcesses) {
				c.postProcesses[i].Dispose(c)
			}
		}
		c.postProcesses = nil
	}
	c.AlternateCamera = nil
	c.disposed = true
}

func (c *Camera) disposeRigCameras() {
	for len(c.rigCameras) > 0 {
		last := len(c.rigCameras) - 1
		rc := c.rigCameras[last]
		c.rigCameras = slices.Delete(c.rigCameras, last, last+1)
		rc.Dispose()
	}
}
