package gpu

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/logger"
)

// Vertex attribute kinds.
const (
	PositionKind             = "position"
	NormalKind               = "normal"
	TangentKind              = "tangent"
	UVKind                   = "uv"
	UV2Kind                  = "uv2"
	UV3Kind                  = "uv3"
	UV4Kind                  = "uv4"
	UV5Kind                  = "uv5"
	UV6Kind                  = "uv6"
	ColorKind                = "color"
	MatricesIndicesKind      = "matricesIndices"
	MatricesIndicesExtraKind = "matricesIndicesExtra"
	MatricesWeightsKind      = "matricesWeights"
	MatricesWeightsExtraKind = "matricesWeightsExtra"
)

// World matrix columns fed to instanced draws.
var InstanceWorldKinds = [4]string{"world0", "world1", "world2", "world3"}

// KindStride returns the number of float components per vertex for kind.
func KindStride(kind string) int {
	switch kind {
	case UVKind, UV2Kind, UV3Kind, UV4Kind, UV5Kind, UV6Kind:
		return 2
	case NormalKind, PositionKind:
		return 3
	case ColorKind, MatricesIndicesKind, MatricesIndicesExtraKind,
		MatricesWeightsKind, MatricesWeightsExtraKind, TangentKind:
		return 4
	default:
		return 3
	}
}

// DataBuffer owns vertex data and its GPU buffer. Several VertexBuffers may
// view one DataBuffer at different offsets.
type DataBuffer struct {
	engine    Engine
	data      []float32
	buffer    Buffer
	updatable bool
	instanced bool
	stride    int
}

// NewDataBuffer uploads data. stride is in floats per vertex (or instance).
func NewDataBuffer(engine Engine, data []float32, updatable bool, stride int, instanced bool) *DataBuffer {
	b := &DataBuffer{
		engine:    engine,
		data:      data,
		updatable: updatable,
		instanced: instanced,
		stride:    stride,
	}
	if engine != nil {
		if updatable {
			b.buffer = engine.CreateDynamicVertexBuffer(data)
		} else {
			b.buffer = engine.CreateVertexBuffer(data)
		}
	}
	return b
}

// CreateVertexBuffer returns a view of size floats starting at offset.
func (b *DataBuffer) CreateVertexBuffer(kind string, offset, size int) *VertexBuffer {
	return &VertexBuffer{
		kind:   kind,
		source: b,
		offset: offset,
		size:   size,
	}
}

// Buffer returns the backend buffer.
func (b *DataBuffer) Buffer() Buffer { return b.buffer }

// Data returns the CPU copy of the data.
func (b *DataBuffer) Data() []float32 { return b.data }

// Stride returns the number of floats per element.
func (b *DataBuffer) Stride() int { return b.stride }

// IsUpdatable reports whether the buffer was created dynamic.
func (b *DataBuffer) IsUpdatable() bool { return b.updatable }

// IsInstanced reports whether the buffer advances per instance.
func (b *DataBuffer) IsInstanced() bool { return b.instanced }

// Update replaces the whole buffer content.
func (b *DataBuffer) Update(data []float32) {
	b.data = data
	if b.engine == nil || b.buffer == nil {
		return
	}
	if !b.updatable {
		if err := b.engine.ReleaseBuffer(b.buffer); err != nil {
			logger.Warn("release replaced vertex buffer", zap.Error(err))
		}
		b.buffer = b.engine.CreateVertexBuffer(data)
		return
	}
	b.engine.UpdateDynamicVertexBuffer(b.buffer, data, 0)
}

// UpdateDirectly uploads count elements of data starting at element offset
// without reallocating.
func (b *DataBuffer) UpdateDirectly(data []float32, offset, count int) {
	if b.engine == nil || b.buffer == nil {
		return
	}
	end := (offset + count) * b.stride
	if end > len(data) {
		end = len(data)
	}
	b.engine.UpdateDynamicVertexBuffer(b.buffer, data[offset*b.stride:end], offset*b.stride*4)
}

// Dispose releases the GPU buffer.
func (b *DataBuffer) Dispose() error {
	if b.engine == nil || b.buffer == nil {
		return nil
	}
	err := b.engine.ReleaseBuffer(b.buffer)
	b.buffer = nil
	if err != nil {
		return fmt.Errorf("release data buffer: %w", err)
	}
	return nil
}

// VertexBuffer is one named attribute stream.
type VertexBuffer struct {
	kind   string
	source *DataBuffer
	owned  bool
	offset int
	size   int
}

// NewVertexBuffer creates an attribute stream owning its own DataBuffer.
func NewVertexBuffer(engine Engine, kind string, data []float32, updatable bool) *VertexBuffer {
	stride := KindStride(kind)
	return &VertexBuffer{
		kind:   kind,
		source: NewDataBuffer(engine, data, updatable, stride, false),
		owned:  true,
		size:   stride,
	}
}

// Kind returns the attribute kind.
func (v *VertexBuffer) Kind() string { return v.kind }

// Data returns the underlying CPU data.
func (v *VertexBuffer) Data() []float32 { return v.source.data }

// Source returns the underlying DataBuffer.
func (v *VertexBuffer) Source() *DataBuffer { return v.source }

// StrideSize returns the number of floats per vertex of the underlying buffer.
func (v *VertexBuffer) StrideSize() int { return v.source.stride }

// Size returns the number of components of this attribute.
func (v *VertexBuffer) Size() int { return v.size }

// Offset returns the attribute offset in floats.
func (v *VertexBuffer) Offset() int { return v.offset }

// IsUpdatable reports whether the data may be updated in place.
func (v *VertexBuffer) IsUpdatable() bool { return v.source.updatable }

// IsInstanced reports whether the attribute advances per instance.
func (v *VertexBuffer) IsInstanced() bool { return v.source.instanced }

// Update replaces the attribute data.
func (v *VertexBuffer) Update(data []float32) {
	v.source.Update(data)
}

// Dispose releases the buffer when this stream owns it.
func (v *VertexBuffer) Dispose() error {
	if !v.owned {
		return nil
	}
	return v.source.Dispose()
}
