package gpu

import (
	"errors"
	"fmt"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// ErrUnknownBuffer is returned when releasing a buffer the engine did not create.
var ErrUnknownBuffer = errors.New("gpu: unknown buffer")

// DrawCall is one recorded draw.
type DrawCall struct {
	Indexed   bool
	Fill      FillMode
	Start     int
	Count     int
	Instances int
}

// RecordedBuffer is a buffer allocated by the Recorder.
type RecordedBuffer struct {
	ID       int
	Dynamic  bool
	Index    bool
	Vertices []float32
	Indices  []uint32
	Released bool
	Updates  int
}

// Capacity implements Buffer.
func (b *RecordedBuffer) Capacity() int {
	if b.Index {
		return len(b.Indices) * 4
	}
	return len(b.Vertices) * 4
}

// RecordedEffect is an Effect created by the Recorder.
type RecordedEffect struct {
	name    string
	Defines []string
	Ready   bool
	Uniform map[string][]float32
}

// Name implements Effect.
func (e *RecordedEffect) Name() string { return e.name }

// IsReady implements Effect.
func (e *RecordedEffect) IsReady() bool { return e.Ready }

// StateChange is one recorded SetState call.
type StateChange struct {
	Culling     bool
	ZOffset     float32
	ReverseSide bool
}

// Recorder is a headless Engine that records every call.
type Recorder struct {
	Width, Height int
	Capabilities  Caps

	Draws        []DrawCall
	Buffers      []*RecordedBuffer
	States       []StateChange
	Viewports    []Viewport
	Bindings     []map[string]*VertexBuffer
	Enabled      []Effect
	Unbinds      int
	ColorWrites  []bool
	AlphaChanges []AlphaMode

	alphaMode  AlphaMode
	depthWrite bool
	nextID     int
}

var _ Engine = (*Recorder)(nil)

// NewRecorder returns a Recorder with instancing support.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		Width:        width,
		Height:       height,
		Capabilities: Caps{InstancedArrays: true, UintIndices: true, MaxVertexAttribs: 16},
		depthWrite:   true,
	}
}

// Reset forgets recorded calls but keeps buffers.
func (r *Recorder) Reset() {
	r.Draws = nil
	r.States = nil
	r.Viewports = nil
	r.Bindings = nil
	r.Enabled = nil
	r.Unbinds = 0
	r.ColorWrites = nil
	r.AlphaChanges = nil
}

func (r *Recorder) Caps() Caps        { return r.Capabilities }
func (r *Recorder) RenderWidth() int  { return r.Width }
func (r *Recorder) RenderHeight() int { return r.Height }

func (r *Recorder) AspectRatio(vp Viewport) float32 {
	return (float32(r.Width) * vp.Width) / (float32(r.Height) * vp.Height)
}

func (r *Recorder) AlphaMode() AlphaMode { return r.alphaMode }

func (r *Recorder) SetAlphaMode(mode AlphaMode) {
	r.alphaMode = mode
	r.AlphaChanges = append(r.AlphaChanges, mode)
}

func (r *Recorder) DepthWrite() bool          { return r.depthWrite }
func (r *Recorder) SetDepthWrite(enable bool) { r.depthWrite = enable }

func (r *Recorder) SetColorWrite(enable bool) {
	r.ColorWrites = append(r.ColorWrites, enable)
}

func (r *Recorder) SetState(culling bool, zOffset float32, force, reverseSide bool) {
	r.States = append(r.States, StateChange{Culling: culling, ZOffset: zOffset, ReverseSide: reverseSide})
}

func (r *Recorder) SetViewport(vp Viewport) {
	r.Viewports = append(r.Viewports, vp)
}

func (r *Recorder) newBuffer(b *RecordedBuffer) *RecordedBuffer {
	r.nextID++
	b.ID = r.nextID
	r.Buffers = append(r.Buffers, b)
	return b
}

func (r *Recorder) CreateVertexBuffer(data []float32) Buffer {
	return r.newBuffer(&RecordedBuffer{Vertices: append([]float32(nil), data...)})
}

func (r *Recorder) CreateDynamicVertexBuffer(data []float32) Buffer {
	return r.newBuffer(&RecordedBuffer{Dynamic: true, Vertices: append([]float32(nil), data...)})
}

func (r *Recorder) UpdateDynamicVertexBuffer(b Buffer, data []float32, byteOffset int) {
	rb, ok := b.(*RecordedBuffer)
	if !ok {
		return
	}
	rb.Updates++
	start := byteOffset / 4
	if end := start + len(data); end > len(rb.Vertices) {
		rb.Vertices = append(rb.Vertices, make([]float32, end-len(rb.Vertices))...)
	}
	copy(rb.Vertices[start:], data)
}

func (r *Recorder) CreateIndexBuffer(indices []uint32) Buffer {
	return r.newBuffer(&RecordedBuffer{Index: true, Indices: append([]uint32(nil), indices...)})
}

func (r *Recorder) ReleaseBuffer(b Buffer) error {
	rb, ok := b.(*RecordedBuffer)
	if !ok {
		return fmt.Errorf("release %T: %w", b, ErrUnknownBuffer)
	}
	rb.Released = true
	return nil
}

// LiveBuffers returns the number of buffers not yet released.
func (r *Recorder) LiveBuffers() int {
	n := 0
	for _, b := range r.Buffers {
		if !b.Released {
			n++
		}
	}
	return n
}

func (r *Recorder) CreateEffect(name string, defines []string) (Effect, error) {
	return &RecordedEffect{name: name, Defines: defines, Ready: true, Uniform: map[string][]float32{}}, nil
}

func (r *Recorder) EnableEffect(effect Effect) {
	r.Enabled = append(r.Enabled, effect)
}

func (r *Recorder) BindBuffers(vertexBuffers map[string]*VertexBuffer, indexBuffer Buffer, effect Effect) {
	bound := make(map[string]*VertexBuffer, len(vertexBuffers))
	for k, v := range vertexBuffers {
		bound[k] = v
	}
	r.Bindings = append(r.Bindings, bound)
}

func (r *Recorder) setUniform(effect Effect, uniform string, data []float32) {
	if e, ok := effect.(*RecordedEffect); ok {
		e.Uniform[uniform] = append([]float32(nil), data...)
	}
}

func (r *Recorder) SetMatrix(effect Effect, uniform string, m math.Mat4) {
	r.setUniform(effect, uniform, m[:])
}

func (r *Recorder) SetMatrices(effect Effect, uniform string, data []float32) {
	r.setUniform(effect, uniform, data)
}

func (r *Recorder) SetFloat4(effect Effect, uniform string, x, y, z, w float32) {
	r.setUniform(effect, uniform, []float32{x, y, z, w})
}

func (r *Recorder) DrawElementsType(fill FillMode, indexStart, indexCount, instancesCount int) {
	r.Draws = append(r.Draws, DrawCall{Indexed: true, Fill: fill, Start: indexStart, Count: indexCount, Instances: instancesCount})
}

func (r *Recorder) DrawArraysType(fill FillMode, verticesStart, verticesCount, instancesCount int) {
	r.Draws = append(r.Draws, DrawCall{Fill: fill, Start: verticesStart, Count: verticesCount, Instances: instancesCount})
}

func (r *Recorder) UnbindInstanceAttributes() {
	r.Unbinds++
}
