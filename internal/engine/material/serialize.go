package material

import (
	"fmt"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Serialized is the persisted form of a Standard or Multi material.
type Serialized struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DiffuseColor    []float32 `json:"diffuse"`
	Alpha           float32   `json:"alpha"`
	Wireframe       bool      `json:"wireframe,omitempty"`
	PointsCloud     bool      `json:"pointsCloud,omitempty"`
	BackFaceCulling bool      `json:"backFaceCulling"`
	SideOrientation int       `json:"sideOrientation"`
	ZOffset         float32   `json:"zOffset,omitempty"`
	// SubMaterials lists the ids of a multi-material's sub-materials.
	SubMaterials []string `json:"materials,omitempty"`
}

func (m *Standard) Serialize() *Serialized {
	return &Serialized{
		ID:              m.id,
		Name:            m.name,
		DiffuseColor:    []float32{m.DiffuseColor.R, m.DiffuseColor.G, m.DiffuseColor.B},
		Alpha:           m.Alpha,
		Wireframe:       m.Wireframe,
		PointsCloud:     m.PointsCloud,
		BackFaceCulling: m.Culling,
		SideOrientation: int(m.Orientation),
		ZOffset:         m.Offset,
	}
}

// Serialize records the sub-materials by id. Missing slots serialize as
// an empty id.
func (m *Multi) Serialize() *Serialized {
	out := m.Standard.Serialize()
	out.SubMaterials = make([]string, len(m.SubMaterials))
	for i, sub := range m.SubMaterials {
		if sub != nil {
			out.SubMaterials[i] = sub.ID()
		}
	}
	return out
}

// Parse rebuilds a material. byID resolves the sub-materials of a
// multi-material and must know every non-empty id.
func Parse(data *Serialized, scene Scene, byID func(id string) Material) (Material, error) {
	std := NewStandard(data.Name, scene)
	if data.ID != "" {
		std.id = data.ID
	}
	if len(data.DiffuseColor) == 3 {
		std.DiffuseColor = math.Color3{R: data.DiffuseColor[0], G: data.DiffuseColor[1], B: data.DiffuseColor[2]}
	}
	std.Alpha = data.Alpha
	std.Wireframe = data.Wireframe
	std.PointsCloud = data.PointsCloud
	std.Culling = data.BackFaceCulling
	std.Orientation = Orientation(data.SideOrientation)
	std.Offset = data.ZOffset

	if len(data.SubMaterials) == 0 {
		return std, nil
	}
	multi := &Multi{Standard: std, SubMaterials: make([]Material, len(data.SubMaterials))}
	for i, id := range data.SubMaterials {
		if id == "" {
			continue
		}
		sub := byID(id)
		if sub == nil {
			return nil, fmt.Errorf("material %s: sub-material %s not found", data.Name, id)
		}
		multi.SubMaterials[i] = sub
	}
	return multi, nil
}
