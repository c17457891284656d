package mesh

import "github.com/google/uuid"

// MorphTarget is a blend shape: per-vertex positions and normals weighted
// by Influence.
type MorphTarget struct {
	Name      string
	Influence float32
	Positions []float32
	Normals   []float32
}

// MorphTargetManager holds the morph targets of a mesh.
type MorphTargetManager struct {
	ID      string
	targets []*MorphTarget
}

func NewMorphTargetManager() *MorphTargetManager {
	return &MorphTargetManager{ID: uuid.NewString()}
}

func (mm *MorphTargetManager) AddTarget(t *MorphTarget) { mm.targets = append(mm.targets, t) }
func (mm *MorphTargetManager) Targets() []*MorphTarget  { return mm.targets }

// Influences returns the weights of the active targets, those with a
// positive influence.
func (mm *MorphTargetManager) Influences() []float32 {
	var out []float32
	for _, t := range mm.targets {
		if t.Influence > 0 {
			out = append(out, t.Influence)
		}
	}
	return out
}
