package skeleton

import (
	"fmt"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// SerializedBone is the persisted form of a bone.
type SerializedBone struct {
	ParentBoneIndex int                   `json:"parentBoneIndex"`
	Index           *int                  `json:"index,omitempty"`
	Name            string                `json:"name"`
	Matrix          []float32             `json:"matrix"`
	Rest            []float32             `json:"rest,omitempty"`
	Length          float32               `json:"length,omitempty"`
	Metadata        any                   `json:"metadata,omitempty"`
	Animation       *animation.Serialized `json:"animation,omitempty"`
}

// Serialized is the persisted form of a skeleton.
type Serialized struct {
	Name                  string                      `json:"name"`
	ID                    string                      `json:"id"`
	Bones                 []SerializedBone            `json:"bones"`
	Ranges                []animation.SerializedRange `json:"ranges,omitempty"`
	DimensionsAtRest      []float32                   `json:"dimensionsAtRest,omitempty"`
	NeedInitialSkinMatrix bool                        `json:"needInitialSkinMatrix"`
}

// Serialize captures the hierarchy, base matrices and animations.
func (s *Skeleton) Serialize() *Serialized {
	out := &Serialized{
		Name:                  s.Name,
		ID:                    s.ID,
		NeedInitialSkinMatrix: s.NeedInitialSkinMatrix,
	}
	if s.DimensionsAtRest != nil {
		out.DimensionsAtRest = s.DimensionsAtRest.Array()
	}

	for _, b := range s.Bones {
		sb := SerializedBone{
			ParentBoneIndex: -1,
			Name:            b.Name,
			Matrix:          matrixSlice(b.base),
			Rest:            matrixSlice(b.restPose),
			Length:          b.Length,
			Metadata:        b.Metadata,
		}
		if b.parent != nil {
			sb.ParentBoneIndex = s.BoneIndex(b.parent)
		}
		if b.hasIndex {
			idx := b.index
			sb.Index = &idx
		}
		if len(b.Animations) > 0 {
			sb.Animation = b.Animations[0].Serialize()
		}
		out.Bones = append(out.Bones, sb)
	}

	for _, r := range s.AnimationRanges() {
		out.Ranges = append(out.Ranges, animation.SerializedRange{Name: r.Name, From: r.From, To: r.To})
	}
	return out
}

// Parse rebuilds a skeleton in scene. Parents must be serialized before
// their children.
func Parse(data *Serialized, scene Scene) (*Skeleton, error) {
	s := New(data.Name, data.ID, scene)
	s.NeedInitialSkinMatrix = data.NeedInitialSkinMatrix
	if len(data.DimensionsAtRest) == 3 {
		d := math.Vec3FromSlice(data.DimensionsAtRest, 0)
		s.DimensionsAtRest = &d
	}

	for i, sb := range data.Bones {
		if len(sb.Matrix) != 16 {
			s.Dispose()
			return nil, fmt.Errorf("bone %q: matrix has %d values", sb.Name, len(sb.Matrix))
		}
		var parent *Bone
		if sb.ParentBoneIndex >= 0 {
			if sb.ParentBoneIndex >= i {
				s.Dispose()
				return nil, fmt.Errorf("bone %q: parent %d not yet defined", sb.Name, sb.ParentBoneIndex)
			}
			parent = s.Bones[sb.ParentBoneIndex]
		}
		if sb.Index != nil && (*sb.Index < -1 || *sb.Index >= len(data.Bones)) {
			s.Dispose()
			return nil, fmt.Errorf("bone %q: index %d: %w", sb.Name, *sb.Index, ErrBoneIndex)
		}

		base := math.Mat4FromSlice(sb.Matrix, 0)
		opts := BoneOptions{LocalMatrix: &base, BaseMatrix: &base, Index: sb.Index}
		if len(sb.Rest) == 16 {
			rest := math.Mat4FromSlice(sb.Rest, 0)
			opts.RestPose = &rest
		}
		b := NewBone(sb.Name, s, parent, opts)
		b.Length = sb.Length
		b.Metadata = sb.Metadata

		if sb.Animation != nil {
			a, err := animation.Parse(sb.Animation)
			if err != nil {
				s.Dispose()
				return nil, fmt.Errorf("bone %q: %w", sb.Name, err)
			}
			b.Animations = append(b.Animations, a)
		}
	}

	for _, r := range data.Ranges {
		s.CreateAnimationRange(r.Name, r.From, r.To)
	}
	return s, nil
}

func matrixSlice(m math.Mat4) []float32 {
	out := make([]float32, 16)
	m.PutSlice(out, 0)
	return out
}
