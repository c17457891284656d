// Package postprocess holds the screen-space passes cameras chain behind
// their render output. The scene graph treats them as opaque nodes: it only
// attaches, clones, serializes and disposes them.
package postprocess

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Kind identifies the concrete pass.
type Kind int

const (
	KindCustom Kind = iota
	KindPass
	KindAnaglyph
	KindStereoscopicInterlace
	KindVRDistortionCorrection
)

var kindNames = map[Kind]string{
	KindCustom:                 "Custom",
	KindPass:                   "Pass",
	KindAnaglyph:               "Anaglyph",
	KindStereoscopicInterlace:  "StereoscopicInterlace",
	KindVRDistortionCorrection: "VRDistortionCorrection",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Owner is the camera side of the attach/detach contract.
type Owner interface {
	DetachPostProcess(pp PostProcess)
}

// PostProcess is a single screen-space pass.
type PostProcess interface {
	ID() string
	Name() string
	Kind() Kind
	// MarkTextureDirty forces the intermediate target to be recreated on
	// the next frame.
	MarkTextureDirty()
	TextureDirty() bool
	IsReusable() bool
	// Apply compiles the effect if needed and uploads the pass uniforms for
	// a target of the given size. It returns false while the effect is not ready.
	Apply(engine gpu.Engine, width, height int) bool
	// Dispose detaches the pass from camera, or from every camera when nil.
	Dispose(camera Owner)
	Clone() PostProcess
	Serialize() map[string]any
}

// Base implements the bookkeeping shared by every pass.
type Base struct {
	id       string
	name     string
	kind     Kind
	shader   string
	defines  []string
	ratio    float32
	reusable bool

	textureDirty bool
	effect       gpu.Effect
	owners       []Owner
	disposed     bool

	// Uniforms holds the float4 parameters uploaded on Apply.
	Uniforms map[string][4]float32
}

func newBase(name string, kind Kind, shader string, ratio float32, camera Owner) Base {
	b := Base{
		id:           uuid.NewString(),
		name:         name,
		kind:         kind,
		shader:       shader,
		ratio:        ratio,
		textureDirty: true,
		Uniforms:     make(map[string][4]float32),
	}
	if camera != nil {
		b.owners = append(b.owners, camera)
	}
	return b
}

func (b *Base) ID() string         { return b.id }
func (b *Base) Name() string       { return b.name }
func (b *Base) Kind() Kind         { return b.kind }
func (b *Base) Ratio() float32     { return b.ratio }
func (b *Base) MarkTextureDirty()  { b.textureDirty = true }
func (b *Base) TextureDirty() bool { return b.textureDirty }
func (b *Base) IsReusable() bool   { return b.reusable }
func (b *Base) IsDisposed() bool   { return b.disposed }

// SetReusable marks the pass as shareable between cameras.
func (b *Base) SetReusable(v bool) { b.reusable = v }

// AddOwner records an additional camera using this pass.
func (b *Base) AddOwner(o Owner) {
	for _, existing := range b.owners {
		if existing == o {
			return
		}
	}
	b.owners = append(b.owners, o)
}

func (b *Base) setFloat4(name string, x, y, z, w float32) {
	b.Uniforms[name] = [4]float32{x, y, z, w}
}

func (b *Base) setFloat2(name string, v math.Vec2) {
	b.setFloat4(name, v.X, v.Y, 0, 0)
}

// prepare compiles the effect on first use and uploads Uniforms.
func (b *Base) prepare(engine gpu.Engine) bool {
	if b.effect == nil {
		eff, err := engine.CreateEffect(b.shader, b.defines)
		if err != nil {
			logger.Warn("post process effect failed",
				zap.String("name", b.name),
				zap.String("shader", b.shader),
				zap.Error(err))
			return false
		}
		b.effect = eff
	}
	if !b.effect.IsReady() {
		return false
	}
	engine.EnableEffect(b.effect)
	for name, v := range b.Uniforms {
		engine.SetFloat4(b.effect, name, v[0], v[1], v[2], v[3])
	}
	b.textureDirty = false
	return true
}

// disposeFrom detaches self from camera, or from all owners when camera is nil.
func (b *Base) disposeFrom(self PostProcess, camera Owner) {
	owners := b.owners
	if camera != nil {
		owners = []Owner{camera}
	}
	for _, o := range owners {
		o.DetachPostProcess(self)
		b.removeOwner(o)
	}
	if len(b.owners) == 0 {
		b.effect = nil
		b.disposed = true
	}
}

func (b *Base) removeOwner(o Owner) {
	for i, existing := range b.owners {
		if existing == o {
			b.owners = append(b.owners[:i], b.owners[i+1:]...)
			return
		}
	}
}

func (b *Base) serialize() map[string]any {
	return map[string]any{
		"name":     b.name,
		"kind":     b.kind.String(),
		"ratio":    b.ratio,
		"reusable": b.reusable,
	}
}

// Pass copies its input unchanged. Rig cameras use it to hand their eye
// image to the combining pass.
type Pass struct {
	Base
}

// NewPass creates a pass-through post process.
func NewPass(name string, ratio float32, camera Owner) *Pass {
	return &Pass{Base: newBase(name, KindPass, "pass", ratio, camera)}
}

func (p *Pass) Apply(engine gpu.Engine, width, height int) bool { return p.prepare(engine) }
func (p *Pass) Dispose(camera Owner)                            { p.disposeFrom(p, camera) }
func (p *Pass) Serialize() map[string]any                       { return p.serialize() }

func (p *Pass) Clone() PostProcess {
	c := NewPass(p.name, p.ratio, nil)
	c.reusable = p.reusable
	return c
}

// Custom wraps a user shader with fixed float4 parameters.
type Custom struct {
	Base
}

// NewCustom creates a post process running shader.
func NewCustom(name, shader string, defines []string, ratio float32, camera Owner) *Custom {
	c := &Custom{Base: newBase(name, KindCustom, shader, ratio, camera)}
	c.defines = append([]string(nil), defines...)
	return c
}

// SetParameter sets a float4 uniform uploaded on every Apply.
func (c *Custom) SetParameter(name string, x, y, z, w float32) { c.setFloat4(name, x, y, z, w) }

func (c *Custom) Apply(engine gpu.Engine, width, height int) bool { return c.prepare(engine) }
func (c *Custom) Dispose(camera Owner)                            { c.disposeFrom(c, camera) }

func (c *Custom) Serialize() map[string]any {
	out := c.serialize()
	out["shader"] = c.shader
	out["defines"] = append([]string(nil), c.defines...)
	return out
}

func (c *Custom) Clone() PostProcess {
	clone := NewCustom(c.name, c.shader, c.defines, c.ratio, nil)
	clone.reusable = c.reusable
	for k, v := range c.Uniforms {
		clone.Uniforms[k] = v
	}
	return clone
}
