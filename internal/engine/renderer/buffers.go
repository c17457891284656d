package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
)

// buffer is a GL buffer object.
type buffer struct {
	id       uint32
	target   uint32
	capacity int
	released bool
}

func (b *buffer) Capacity() int { return b.capacity }

func (r *Renderer) CreateVertexBuffer(data []float32) gpu.Buffer {
	return r.createBuffer(gl.ARRAY_BUFFER, len(data)*4, floatsPtr(data), gl.STATIC_DRAW)
}

func (r *Renderer) CreateDynamicVertexBuffer(data []float32) gpu.Buffer {
	return r.createBuffer(gl.ARRAY_BUFFER, len(data)*4, floatsPtr(data), gl.DYNAMIC_DRAW)
}

func (r *Renderer) CreateIndexBuffer(indices []uint32) gpu.Buffer {
	var ptr unsafe.Pointer
	if len(indices) > 0 {
		ptr = unsafe.Pointer(&indices[0])
	}
	return r.createBuffer(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, ptr, gl.STATIC_DRAW)
}

func (r *Renderer) createBuffer(target uint32, size int, data unsafe.Pointer, usage uint32) *buffer {
	b := &buffer{target: target, capacity: size}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(target, b.id)
	gl.BufferData(target, size, data, usage)
	r.buffers[b] = struct{}{}
	return b
}

// UpdateDynamicVertexBuffer writes data at byteOffset. Writes past the
// allocation grow the buffer, keeping nothing of its previous content.
func (r *Renderer) UpdateDynamicVertexBuffer(b gpu.Buffer, data []float32, byteOffset int) {
	vb, ok := b.(*buffer)
	if !ok || vb.released || len(data) == 0 {
		return
	}
	size := len(data) * 4
	gl.BindBuffer(gl.ARRAY_BUFFER, vb.id)
	if byteOffset+size > vb.capacity {
		vb.capacity = byteOffset + size
		gl.BufferData(gl.ARRAY_BUFFER, vb.capacity, nil, gl.DYNAMIC_DRAW)
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, byteOffset, size, floatsPtr(data))
}

func (r *Renderer) ReleaseBuffer(b gpu.Buffer) error {
	gb, ok := b.(*buffer)
	if !ok {
		return fmt.Errorf("release %T: %w", b, gpu.ErrUnknownBuffer)
	}
	if _, live := r.buffers[gb]; !live {
		return fmt.Errorf("release buffer %d: %w", gb.id, gpu.ErrUnknownBuffer)
	}
	gl.DeleteBuffers(1, &gb.id)
	gb.released = true
	delete(r.buffers, gb)
	return nil
}

// BindBuffers points the attributes of effect at the vertex buffers and
// binds the index buffer. Kinds the program does not read are skipped.
func (r *Renderer) BindBuffers(vertexBuffers map[string]*gpu.VertexBuffer, indexBuffer gpu.Buffer, eff gpu.Effect) {
	e, ok := eff.(*effect)
	if !ok {
		return
	}
	for _, loc := range r.enabled {
		gl.DisableVertexAttribArray(loc)
	}
	r.enabled = r.enabled[:0]

	for kind, vb := range vertexBuffers {
		loc, ok := e.attribute(kind)
		if !ok {
			continue
		}
		gb, ok := vb.Source().Buffer().(*buffer)
		if !ok {
			continue
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, gb.id)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, int32(vb.Size()), gl.FLOAT, false,
			int32(vb.StrideSize()*4), uintptr(vb.Offset()*4))
		if vb.IsInstanced() {
			gl.VertexAttribDivisor(loc, 1)
			r.instanced = append(r.instanced, loc)
		}
		r.enabled = append(r.enabled, loc)
	}

	if ib, ok := indexBuffer.(*buffer); ok {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.id)
	} else {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	}
}

func (r *Renderer) UnbindInstanceAttributes() {
	for _, loc := range r.instanced {
		gl.VertexAttribDivisor(loc, 0)
	}
	r.instanced = r.instanced[:0]
}

func floatsPtr(data []float32) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}
