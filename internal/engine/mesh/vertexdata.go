package mesh

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// VertexData is a CPU-side set of vertex streams and indices.
type VertexData struct {
	Positions            []float32
	Normals              []float32
	Tangents             []float32
	UVs                  []float32
	UVs2                 []float32
	UVs3                 []float32
	UVs4                 []float32
	UVs5                 []float32
	UVs6                 []float32
	Colors               []float32
	MatricesIndices      []float32
	MatricesWeights      []float32
	MatricesIndicesExtra []float32
	MatricesWeightsExtra []float32
	Indices              []uint32
}

// Kinds lists the vertex kinds in the order they are applied.
var Kinds = []string{
	gpu.PositionKind, gpu.NormalKind, gpu.TangentKind,
	gpu.UVKind, gpu.UV2Kind, gpu.UV3Kind, gpu.UV4Kind, gpu.UV5Kind, gpu.UV6Kind,
	gpu.ColorKind,
	gpu.MatricesIndicesKind, gpu.MatricesWeightsKind,
	gpu.MatricesIndicesExtraKind, gpu.MatricesWeightsExtraKind,
}

func (vd *VertexData) field(kind string) *[]float32 {
	switch kind {
	case gpu.PositionKind:
		return &vd.Positions
	case gpu.NormalKind:
		return &vd.Normals
	case gpu.TangentKind:
		return &vd.Tangents
	case gpu.UVKind:
		return &vd.UVs
	case gpu.UV2Kind:
		return &vd.UVs2
	case gpu.UV3Kind:
		return &vd.UVs3
	case gpu.UV4Kind:
		return &vd.UVs4
	case gpu.UV5Kind:
		return &vd.UVs5
	case gpu.UV6Kind:
		return &vd.UVs6
	case gpu.ColorKind:
		return &vd.Colors
	case gpu.MatricesIndicesKind:
		return &vd.MatricesIndices
	case gpu.MatricesWeightsKind:
		return &vd.MatricesWeights
	case gpu.MatricesIndicesExtraKind:
		return &vd.MatricesIndicesExtra
	case gpu.MatricesWeightsExtraKind:
		return &vd.MatricesWeightsExtra
	}
	return nil
}

// Set stores data for kind. Unknown kinds are ignored.
func (vd *VertexData) Set(kind string, data []float32) {
	if f := vd.field(kind); f != nil {
		*f = data
	}
}

// Get returns the data for kind, or nil.
func (vd *VertexData) Get(kind string) []float32 {
	if f := vd.field(kind); f != nil {
		return *f
	}
	return nil
}

// VertexSource is anything vertex data can be extracted from.
type VertexSource interface {
	VerticesData(kind string, copyWhenShared bool) []float32
	IsVerticesDataPresent(kind string) bool
	Indices(copyWhenShared bool) []uint32
}

// ExtractFromMesh copies the vertex streams of source.
func ExtractFromMesh(source VertexSource, copyWhenShared bool) *VertexData {
	vd := &VertexData{}
	for _, kind := range Kinds {
		if source.IsVerticesDataPresent(kind) {
			vd.Set(kind, source.VerticesData(kind, copyWhenShared))
		}
	}
	vd.Indices = source.Indices(copyWhenShared)
	return vd
}

// ApplyToMesh uploads every present stream and the indices to m.
func (vd *VertexData) ApplyToMesh(m *Mesh, updatable bool) {
	for _, kind := range Kinds {
		if data := vd.Get(kind); data != nil {
			m.SetVerticesData(kind, data, updatable)
		}
	}
	if vd.Indices != nil {
		m.SetIndices(vd.Indices, -1)
	}
}

// ApplyToGeometry uploads every present stream and the indices to g.
func (vd *VertexData) ApplyToGeometry(g *Geometry, updatable bool) {
	for _, kind := range Kinds {
		if data := vd.Get(kind); data != nil {
			g.SetVerticesData(kind, data, updatable)
		}
	}
	if vd.Indices != nil {
		g.SetIndices(vd.Indices, -1)
	}
}

// Transform applies m to positions, normals and tangents in place.
func (vd *VertexData) Transform(m math.Mat4) {
	for i := 0; i+2 < len(vd.Positions); i += 3 {
		m.TransformPoint(math.Vec3FromSlice(vd.Positions, i)).PutSlice(vd.Positions, i)
	}
	for i := 0; i+2 < len(vd.Normals); i += 3 {
		m.TransformDirection(math.Vec3FromSlice(vd.Normals, i)).Normalize().PutSlice(vd.Normals, i)
	}
	for i := 0; i+3 < len(vd.Tangents); i += 4 {
		m.TransformDirection(math.Vec3FromSlice(vd.Tangents, i)).Normalize().PutSlice(vd.Tangents, i)
	}
}

// ComputeNormals writes smooth per-vertex normals for the indexed
// triangles into normals, which must be as long as positions.
func ComputeNormals(positions []float32, indices []uint32, normals []float32) {
	for i := range normals {
		normals[i] = 0
	}

	faces := len(indices) / 3
	for f := 0; f < faces; f++ {
		i1, i2, i3 := int(indices[f*3])*3, int(indices[f*3+1])*3, int(indices[f*3+2])*3
		p1 := math.Vec3FromSlice(positions, i1)
		p2 := math.Vec3FromSlice(positions, i2)
		p3 := math.Vec3FromSlice(positions, i3)

		n := p1.Sub(p2).Cross(p3.Sub(p2))
		length := n.Length()
		if length == 0 {
			length = 1
		}
		n = n.Scale(1 / length)

		for _, idx := range [3]int{i1, i2, i3} {
			normals[idx] += n.X
			normals[idx+1] += n.Y
			normals[idx+2] += n.Z
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		x, y, z := normals[i], normals[i+1], normals[i+2]
		length := math32.Sqrt(x*x + y*y + z*z)
		if length == 0 {
			length = 1
		}
		normals[i] = x / length
		normals[i+1] = y / length
		normals[i+2] = z / length
	}
}
