package scene

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/internal/logger"
)

func remove[T comparable](list []T, v T) ([]T, bool) {
	i := slices.Index(list, v)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}

// Meshes

// AddMesh registers m. Meshes register themselves on creation.
func (s *Scene) AddMesh(m mesh.AbstractMesh) {
	if mm, ok := m.(*mesh.Mesh); ok {
		mm.SetInstancesCapacity(s.config.InstancesCapacity)
	}
	s.meshes = append(s.meshes, m)
}

// RemoveMesh unregisters m. It is called by Dispose.
func (s *Scene) RemoveMesh(m mesh.AbstractMesh) {
	s.meshes, _ = remove(s.meshes, m)
	s.activeMeshes, _ = remove(s.activeMeshes, m)
}

func (s *Scene) Meshes() []mesh.AbstractMesh { return s.meshes }

// MeshByID returns the first mesh with id, or nil.
func (s *Scene) MeshByID(id string) mesh.AbstractMesh {
	for _, m := range s.meshes {
		if m.TransformNode().ID == id {
			return m
		}
	}
	return nil
}

// MeshByName returns the first mesh named name, or nil.
func (s *Scene) MeshByName(name string) mesh.AbstractMesh {
	for _, m := range s.meshes {
		if m.TransformNode().Name == name {
			return m
		}
	}
	return nil
}

// Geometries

// AddGeometry registers g. It reports false when a geometry with the same
// id is already registered.
func (s *Scene) AddGeometry(g *mesh.Geometry) bool {
	if s.GeometryByID(g.ID) != nil {
		return false
	}
	s.geometries = append(s.geometries, g)
	return true
}

func (s *Scene) RemoveGeometry(g *mesh.Geometry) {
	s.geometries, _ = remove(s.geometries, g)
}

func (s *Scene) Geometries() []*mesh.Geometry { return s.geometries }

// GeometryByID implements mesh.Resolver.
func (s *Scene) GeometryByID(id string) *mesh.Geometry {
	for _, g := range s.geometries {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Skeletons

func (s *Scene) AddSkeleton(sk *skeleton.Skeleton) {
	s.skeletons = append(s.skeletons, sk)
}

// RemoveSkeleton unregisters sk and detaches it from every mesh.
func (s *Scene) RemoveSkeleton(sk *skeleton.Skeleton) {
	var ok bool
	if s.skeletons, ok = remove(s.skeletons, sk); !ok {
		return
	}
	s.activeSkeletons, _ = remove(s.activeSkeletons, sk)
	for _, am := range s.meshes {
		if m, isMesh := am.(*mesh.Mesh); isMesh && m.Skeleton() == sk {
			m.SetSkeleton(nil)
		}
	}
}

func (s *Scene) Skeletons() []*skeleton.Skeleton { return s.skeletons }

// SkeletonByID implements mesh.Resolver.
func (s *Scene) SkeletonByID(id string) *skeleton.Skeleton {
	for _, sk := range s.skeletons {
		if sk.ID == id {
			return sk
		}
	}
	return nil
}

// Materials

func (s *Scene) AddMaterial(m material.Material) {
	s.materials = append(s.materials, m)
}

func (s *Scene) RemoveMaterial(m material.Material) {
	s.materials, _ = remove(s.materials, m)
}

func (s *Scene) Materials() []material.Material { return s.materials }

// MaterialByID implements mesh.Resolver.
func (s *Scene) MaterialByID(id string) material.Material {
	for _, m := range s.materials {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// Cameras

// AddCamera registers c. The first camera becomes the active one.
func (s *Scene) AddCamera(c *camera.Camera) {
	s.cameras = append(s.cameras, c)
	if s.activeCamera == nil {
		s.activeCamera = c
	}
}

// RemoveCamera unregisters c. When c was active the next registered
// camera takes over.
func (s *Scene) RemoveCamera(c *camera.Camera) {
	s.cameras, _ = remove(s.cameras, c)
	if s.activeCamera != c {
		return
	}
	s.activeCamera = nil
	if len(s.cameras) > 0 {
		s.activeCamera = s.cameras[0]
	}
}

func (s *Scene) Cameras() []*camera.Camera    { return s.cameras }
func (s *Scene) ActiveCamera() *camera.Camera { return s.activeCamera }

// SetActiveCamera makes c the rendering camera. c must be registered.
func (s *Scene) SetActiveCamera(c *camera.Camera) bool {
	if !slices.Contains(s.cameras, c) {
		logger.Warn("camera is not part of the scene", zap.String("camera", c.Name))
		return false
	}
	s.activeCamera = c
	return true
}

// CameraByName returns the first camera named name, or nil.
func (s *Scene) CameraByName(name string) *camera.Camera {
	for _, c := range s.cameras {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Particle systems

func (s *Scene) AddParticleSystem(ps mesh.ParticleSystem) {
	s.particleSystems = append(s.particleSystems, ps)
}

func (s *Scene) RemoveParticleSystem(ps mesh.ParticleSystem) {
	s.particleSystems, _ = remove(s.particleSystems, ps)
}

func (s *Scene) ParticleSystems() []mesh.ParticleSystem { return s.particleSystems }

// Pending data

// AddPendingData records an asynchronous load in progress.
func (s *Scene) AddPendingData(data any) {
	s.pending = append(s.pending, data)
}

func (s *Scene) RemovePendingData(data any) {
	s.pending, _ = remove(s.pending, data)
}

func (s *Scene) PendingData() int { return len(s.pending) }

// Continuations

// Post queues fn to run on the render thread at the start of the next
// frame. It is safe to call from any goroutine.
func (s *Scene) Post(fn func()) {
	s.postMu.Lock()
	s.posted = append(s.posted, fn)
	s.postMu.Unlock()
}

// RunPosted runs the queued continuations and returns how many ran.
// Continuations queued while running wait for the next call.
func (s *Scene) RunPosted() int {
	s.postMu.Lock()
	fns := s.posted
	s.posted = nil
	s.postMu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
