// Package mesh implements renderable meshes: shared geometry, sub-mesh
// partitions, hardware instancing, level of detail and the vertex
// operations that rewrite geometry in place.
package mesh

import (
	"errors"

	"github.com/Faultbox/scenegraph/internal/engine/material"
)

// ErrMissingVertexData is returned by operations that need a stream the
// mesh does not have.
var ErrMissingVertexData = errors.New("mesh: missing vertex data")

// Scene is the part of the owning scene meshes talk to. Every method is
// called on the render thread.
type Scene interface {
	material.Scene
	RenderIDSource

	IsInIntermediateRendering() bool
	ForceWireframe() bool
	ForcePointsCloud() bool
	DefaultMaterial() material.Material
	// OutlineRenderer returns nil when outlines are not supported.
	OutlineRenderer() OutlineRenderer

	AddMesh(m AbstractMesh)
	RemoveMesh(m AbstractMesh)
	Meshes() []AbstractMesh
	AddGeometry(g *Geometry) bool
	RemoveGeometry(g *Geometry)

	AddPendingData(data any)
	RemovePendingData(data any)
	// Post queues fn to run on the render thread before the next frame.
	Post(fn func())

	ParticleSystems() []ParticleSystem
	StopAnimation(target any)
}

// OutlineRenderer draws the outline and overlay passes of a sub-mesh.
type OutlineRenderer interface {
	Render(sm *SubMesh, batch *InstancesBatch, overlay bool)
}

// ParticleSystem is an emitter that may be attached to a mesh.
type ParticleSystem interface {
	Name() string
	Emitter() any
	Clone(name string, emitter any) ParticleSystem
}

// PhysicsImpostor is the physics body of a mesh.
type PhysicsImpostor interface {
	// Parameters returns the scalar body settings (type, mass, friction,
	// restitution).
	Parameters() map[string]float32
	Clone(target *Mesh) PhysicsImpostor
	Dispose()
}

// RenderTarget is an offscreen pass owned by a mesh.
type RenderTarget interface {
	Dispose() error
}
