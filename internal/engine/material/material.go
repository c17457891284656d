// Package material defines how a mesh is shaded: its effect, blending and
// rasterizer state.
package material

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Orientation is the winding order considered front-facing.
type Orientation int

const (
	ClockWise Orientation = iota
	CounterClockWise
)

// Flip returns the opposite winding.
func (o Orientation) Flip() Orientation {
	if o == ClockWise {
		return CounterClockWise
	}
	return ClockWise
}

// Bindable is the per-mesh state a material uploads.
type Bindable interface {
	// BoneMatrices returns the skinning palette, or nil for rigid meshes.
	BoneMatrices() []float32
	MeshVisibility() float32
}

// Scene is what materials need from the owning scene.
type Scene interface {
	Engine() gpu.Engine
	TransformMatrix() math.Mat4
}

// Material is the shading contract used by mesh rendering.
type Material interface {
	ID() string
	Name() string
	// IsReady compiles, if needed, the effect variant for mesh and reports
	// whether it can be drawn now.
	IsReady(mesh Bindable, useInstances bool) bool
	Effect() gpu.Effect
	AlphaMode() gpu.AlphaMode
	NeedAlphaBlending() bool
	SideOrientation() Orientation
	BackFaceCulling() bool
	SeparateCullingPass() bool
	ZOffset() float32
	FillMode() gpu.FillMode
	ForceDepthWrite() bool
	// PreBind enables effect and sets the rasterizer state. It reports
	// whether the winding is reversed.
	PreBind(effect gpu.Effect, orientation Orientation) bool
	Bind(world math.Mat4, mesh Bindable)
	Unbind()
	Dispose()
}

// Standard is a single-effect material.
type Standard struct {
	id    string
	name  string
	scene Scene

	DiffuseColor    math.Color3
	Alpha           float32
	Wireframe       bool
	PointsCloud     bool
	Culling         bool
	CullingPass     bool
	Offset          float32
	Orientation     Orientation
	Blend           gpu.AlphaMode
	DepthWriteForce bool

	effects map[string]gpu.Effect
	current gpu.Effect
}

// NewStandard creates an opaque material with back-face culling.
func NewStandard(name string, scene Scene) *Standard {
	return &Standard{
		id:           uuid.NewString(),
		name:         name,
		scene:        scene,
		DiffuseColor: math.Color3{R: 1, G: 1, B: 1},
		Alpha:        1,
		Culling:      true,
		Orientation:  CounterClockWise,
		Blend:        gpu.AlphaCombine,
		effects:      make(map[string]gpu.Effect),
	}
}

func (m *Standard) ID() string                   { return m.id }
func (m *Standard) Name() string                 { return m.name }
func (m *Standard) Effect() gpu.Effect           { return m.current }
func (m *Standard) AlphaMode() gpu.AlphaMode     { return m.Blend }
func (m *Standard) NeedAlphaBlending() bool      { return m.Alpha < 1 }
func (m *Standard) SideOrientation() Orientation { return m.Orientation }
func (m *Standard) BackFaceCulling() bool        { return m.Culling }
func (m *Standard) SeparateCullingPass() bool    { return m.CullingPass }
func (m *Standard) ZOffset() float32             { return m.Offset }
func (m *Standard) ForceDepthWrite() bool        { return m.DepthWriteForce }

// FillMode derives the topology from the wireframe and point flags.
func (m *Standard) FillMode() gpu.FillMode {
	switch {
	case m.PointsCloud:
		return gpu.PointFillMode
	case m.Wireframe:
		return gpu.WireFrameFillMode
	default:
		return gpu.TriangleFillMode
	}
}

func defines(mesh Bindable, useInstances bool) []string {
	var d []string
	if useInstances {
		d = append(d, "INSTANCES")
	}
	if mesh != nil && mesh.BoneMatrices() != nil {
		d = append(d, "BONES")
	}
	sort.Strings(d)
	return d
}

func (m *Standard) IsReady(mesh Bindable, useInstances bool) bool {
	d := defines(mesh, useInstances)
	key := strings.Join(d, ";")
	effect, ok := m.effects[key]
	if !ok {
		var err error
		effect, err = m.scene.Engine().CreateEffect("standard", d)
		if err != nil {
			logger.Warn("material effect compilation failed",
				zap.String("material", m.name), zap.Strings("defines", d), zap.Error(err))
			return false
		}
		m.effects[key] = effect
	}
	m.current = effect
	return effect.IsReady()
}

func (m *Standard) PreBind(effect gpu.Effect, orientation Orientation) bool {
	engine := m.scene.Engine()
	reverse := orientation == ClockWise
	if effect == nil {
		effect = m.current
	}
	engine.EnableEffect(effect)
	engine.SetState(m.Culling, m.Offset, false, reverse)
	return reverse
}

func (m *Standard) Bind(world math.Mat4, mesh Bindable) {
	engine := m.scene.Engine()
	effect := m.current
	engine.SetMatrix(effect, "world", world)
	engine.SetMatrix(effect, "viewProjection", m.scene.TransformMatrix())
	visibility := float32(1)
	if mesh != nil {
		visibility = mesh.MeshVisibility()
		if bones := mesh.BoneMatrices(); bones != nil {
			engine.SetMatrices(effect, "mBones", bones)
		}
	}
	engine.SetFloat4(effect, "vDiffuseColor", m.DiffuseColor.R, m.DiffuseColor.G, m.DiffuseColor.B, m.Alpha*visibility)
}

func (m *Standard) Unbind() {}

// Dispose forgets compiled effect variants.
func (m *Standard) Dispose() {
	m.effects = make(map[string]gpu.Effect)
	m.current = nil
}

// Multi selects a sub-material per sub-mesh material index.
type Multi struct {
	*Standard
	SubMaterials []Material
}

// NewMulti creates an empty multi-material.
func NewMulti(name string, scene Scene) *Multi {
	return &Multi{Standard: NewStandard(name, scene)}
}

// SubMaterial returns the material at index, or nil when out of range.
func (m *Multi) SubMaterial(index int) Material {
	if index < 0 || index >= len(m.SubMaterials) {
		return nil
	}
	return m.SubMaterials[index]
}

// IsReady reports whether every sub-material is ready.
func (m *Multi) IsReady(mesh Bindable, useInstances bool) bool {
	for _, sub := range m.SubMaterials {
		if sub != nil && !sub.IsReady(mesh, useInstances) {
			return false
		}
	}
	return true
}
