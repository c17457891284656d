// Package scene is the registry and frame driver of the scene graph. It
// owns the meshes, cameras, skeletons, geometries and materials, advances
// animations and renders the active camera once per frame.
package scene

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/config"
	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/event"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// ErrNoCamera is returned by Render when no camera is active.
var ErrNoCamera = errors.New("scene: no active camera")

// Config contains scene configuration options.
type Config struct {
	UseRightHandedSystem bool
	ForceWireframe       bool
	ForcePointsCloud     bool
	// MatrixInterpolation blends matrix animation curves.
	MatrixInterpolation animation.MatrixMode
	// InstancesCapacity is the initial instancing buffer size, in world
	// matrices, of meshes added to the scene.
	InstancesCapacity int
}

// DefaultConfig returns a default scene configuration.
func DefaultConfig() Config {
	return Config{
		MatrixInterpolation: animation.MatrixHold,
		InstancesCapacity:   mesh.DefaultInstancesCapacity,
	}
}

// ConfigFrom derives the scene options from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.UseRightHandedSystem = cfg.Scene.UseRightHandedSystem
	c.ForceWireframe = cfg.Scene.ForceWireframe
	c.ForcePointsCloud = cfg.Scene.ForcePointsCloud
	c.MatrixInterpolation = animation.ParseMatrixMode(cfg.Animation.MatrixInterpolation)
	if cfg.Instancing.InitialCapacity > 0 {
		c.InstancesCapacity = cfg.Instancing.InitialCapacity
	}
	return c
}

// Scene holds every object of a 3D scene. Apart from Post, its methods
// must be called from the render thread.
type Scene struct {
	config Config
	engine gpu.Engine

	OnBeforeRender event.Observable[*Scene]
	OnAfterRender  event.Observable[*Scene]

	renderID     int
	intermediate bool
	activeBones  int

	// Transformation
	view       math.Mat4
	projection math.Mat4
	transform  math.Mat4

	// Alternate eye of a WebVR rig rendered in the same pass
	alternate          bool
	alternateTransform math.Mat4

	// Registries
	activeCamera    *camera.Camera
	cameras         []*camera.Camera
	meshes          []mesh.AbstractMesh
	geometries      []*mesh.Geometry
	skeletons       []*skeleton.Skeleton
	materials       []material.Material
	particleSystems []mesh.ParticleSystem
	defaultMaterial *material.Standard
	outline         *mesh.Outline

	animatables []*runningAnimation
	pending     []any

	postMu sync.Mutex
	posted []func()

	// Delayed geometry loading
	loadCtx context.Context
	loader  mesh.LoadFunc

	// Per-pass render lists
	activeMeshes    []mesh.AbstractMesh
	activeSkeletons []*skeleton.Skeleton
	opaque          []*mesh.SubMesh
	transparent     []*mesh.SubMesh
	stats           FrameStats

	disposed bool
}

var (
	_ mesh.Scene     = (*Scene)(nil)
	_ mesh.Resolver  = (*Scene)(nil)
	_ skeleton.Scene = (*Scene)(nil)
	_ camera.Scene   = (*Scene)(nil)
)

// New creates an empty scene drawing through engine.
func New(engine gpu.Engine, cfg Config) *Scene {
	return &Scene{
		config:     cfg,
		engine:     engine,
		view:       math.Identity(),
		projection: math.Identity(),
		transform:  math.Identity(),
	}
}

func (s *Scene) Engine() gpu.Engine                { return s.engine }
func (s *Scene) Config() Config                    { return s.config }
func (s *Scene) RenderID() int                     { return s.renderID }
func (s *Scene) IsInIntermediateRendering() bool   { return s.intermediate }
func (s *Scene) UseRightHandedSystem() bool        { return s.config.UseRightHandedSystem }
func (s *Scene) ForceWireframe() bool              { return s.config.ForceWireframe }
func (s *Scene) ForcePointsCloud() bool            { return s.config.ForcePointsCloud }
func (s *Scene) SetForceWireframe(v bool)          { s.config.ForceWireframe = v }
func (s *Scene) SetForcePointsCloud(v bool)        { s.config.ForcePointsCloud = v }
func (s *Scene) ActiveBones() int                  { return s.activeBones }
func (s *Scene) AddActiveBones(n int)              { s.activeBones += n }
func (s *Scene) ViewMatrix() math.Mat4             { return s.view }
func (s *Scene) ProjectionMatrix() math.Mat4       { return s.projection }
func (s *Scene) TransformMatrix() math.Mat4        { return s.transform }
func (s *Scene) ActiveMeshes() []mesh.AbstractMesh { return s.activeMeshes }
func (s *Scene) IsDisposed() bool                  { return s.disposed }

// IncrementRenderID starts a new render id. Render does this once per
// camera pass.
func (s *Scene) IncrementRenderID() int {
	s.renderID++
	return s.renderID
}

// SetTransformMatrix sets the view and projection used by materials.
func (s *Scene) SetTransformMatrix(view, projection math.Mat4) {
	s.view = view
	s.projection = projection
	s.transform = projection.Mul(view)
}

// AlternateTransformMatrix returns the transform of the other eye while a
// WebVR rig renders both eyes in one pass.
func (s *Scene) AlternateTransformMatrix() (math.Mat4, bool) {
	return s.alternateTransform, s.alternate
}

func (s *Scene) updateAlternateTransformMatrix(alt *camera.Camera) {
	if alt == nil {
		s.alternate = false
		return
	}
	s.alternate = true
	s.alternateTransform = alt.ProjectionMatrix(false).Mul(alt.ViewMatrix(false))
}

// DefaultMaterial returns the material used by meshes without one.
func (s *Scene) DefaultMaterial() material.Material {
	if s.defaultMaterial == nil {
		s.defaultMaterial = material.NewStandard("default material", s)
	}
	return s.defaultMaterial
}

// OutlineRenderer returns the renderer of mesh outlines and overlays.
func (s *Scene) OutlineRenderer() mesh.OutlineRenderer {
	if s.outline == nil {
		s.outline = mesh.NewOutline(s)
	}
	return s.outline
}

// SetDelayLoader enables on-demand loading of delayed geometries. load
// runs on a background goroutine bound to ctx.
func (s *Scene) SetDelayLoader(ctx context.Context, load mesh.LoadFunc) {
	s.loadCtx = ctx
	s.loader = load
}

// IsReady reports whether nothing is loading and every mesh can draw.
func (s *Scene) IsReady() bool {
	if len(s.pending) > 0 {
		return false
	}
	for _, am := range s.meshes {
		if m, ok := am.(*mesh.Mesh); ok && m.Geometry() != nil && !m.IsReady(false) {
			return false
		}
	}
	return true
}

// Dispose stops every animation and releases all registered objects.
func (s *Scene) Dispose() error {
	if s.disposed {
		return nil
	}
	for _, a := range append([]*runningAnimation(nil), s.animatables...) {
		a.animatable.Stop("")
	}
	s.animatables = nil

	var err error
	for _, c := range slices.Clone(s.cameras) {
		c.Dispose()
	}
	for _, m := range slices.Clone(s.meshes) {
		err = multierr.Append(err, m.Dispose(false))
	}
	for _, sk := range slices.Clone(s.skeletons) {
		sk.Dispose()
	}
	for _, g := range slices.Clone(s.geometries) {
		err = multierr.Append(err, g.Dispose())
	}
	s.cameras, s.meshes, s.skeletons, s.geometries = nil, nil, nil, nil
	s.activeCamera = nil
	for _, m := range s.materials {
		m.Dispose()
	}
	s.materials = nil
	if s.defaultMaterial != nil {
		s.defaultMaterial.Dispose()
		s.defaultMaterial = nil
	}
	s.particleSystems = nil
	s.pending = nil
	s.activeMeshes = nil
	s.activeSkeletons = nil
	s.opaque = nil
	s.transparent = nil

	s.postMu.Lock()
	s.posted = nil
	s.postMu.Unlock()

	s.OnBeforeRender.Clear()
	s.OnAfterRender.Clear()
	s.disposed = true
	return err
}
