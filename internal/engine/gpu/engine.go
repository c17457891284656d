// Package gpu defines the drawing surface the scene graph renders through.
// The OpenGL backend lives in the renderer package; Recorder is a headless
// implementation used by tools and tests.
package gpu

import "github.com/Faultbox/scenegraph/pkg/math"

// FillMode selects the primitive topology of a draw.
type FillMode int

const (
	TriangleFillMode FillMode = iota
	WireFrameFillMode
	PointFillMode
	PointListDrawMode
	LineListDrawMode
	LineLoopDrawMode
	LineStripDrawMode
	TriangleStripDrawMode
	TriangleFanDrawMode
)

// AlphaMode selects the blending equation.
type AlphaMode int

const (
	AlphaDisable AlphaMode = iota
	AlphaAdd
	AlphaCombine
	AlphaSubtract
	AlphaMultiply
	AlphaMaximized
	AlphaOneOne
	AlphaPremultiplied
)

// Caps describes optional hardware features.
type Caps struct {
	InstancedArrays  bool
	UintIndices      bool
	MaxVertexAttribs int
}

// Viewport is a rectangle in normalized [0,1] render coordinates.
type Viewport struct {
	X, Y, Width, Height float32
}

// FullViewport covers the whole render target.
func FullViewport() Viewport {
	return Viewport{0, 0, 1, 1}
}

// ToGlobal converts the viewport to pixels for a render target size.
func (v Viewport) ToGlobal(renderWidth, renderHeight int) (x, y, w, h int) {
	return int(v.X * float32(renderWidth)), int(v.Y * float32(renderHeight)),
		int(v.Width * float32(renderWidth)), int(v.Height * float32(renderHeight))
}

// Buffer is a backend-owned GPU buffer.
type Buffer interface {
	// Capacity returns the allocated size in bytes.
	Capacity() int
}

// Effect is a compiled shader program.
type Effect interface {
	Name() string
	IsReady() bool
}

// Engine is the set of GPU operations the scene graph needs.
type Engine interface {
	Caps() Caps
	RenderWidth() int
	RenderHeight() int
	// AspectRatio returns the width/height ratio of vp on the current target.
	AspectRatio(vp Viewport) float32

	AlphaMode() AlphaMode
	SetAlphaMode(mode AlphaMode)
	DepthWrite() bool
	SetDepthWrite(enable bool)
	SetColorWrite(enable bool)
	SetState(culling bool, zOffset float32, force, reverseSide bool)
	SetViewport(vp Viewport)

	CreateVertexBuffer(data []float32) Buffer
	CreateDynamicVertexBuffer(data []float32) Buffer
	UpdateDynamicVertexBuffer(b Buffer, data []float32, byteOffset int)
	CreateIndexBuffer(indices []uint32) Buffer
	ReleaseBuffer(b Buffer) error

	CreateEffect(name string, defines []string) (Effect, error)
	EnableEffect(effect Effect)
	BindBuffers(vertexBuffers map[string]*VertexBuffer, indexBuffer Buffer, effect Effect)
	SetMatrix(effect Effect, uniform string, m math.Mat4)
	SetMatrices(effect Effect, uniform string, data []float32)
	SetFloat4(effect Effect, uniform string, x, y, z, w float32)

	DrawElementsType(fill FillMode, indexStart, indexCount, instancesCount int)
	DrawArraysType(fill FillMode, verticesStart, verticesCount, instancesCount int)
	UnbindInstanceAttributes()
}
