// Package skeleton implements bone hierarchies and the flattened bone
// matrix palette consumed by skinned meshes.
package skeleton

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/event"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// ErrNoRange is returned when a named animation range does not exist.
var ErrNoRange = errors.New("skeleton: no such animation range")

// ErrBoneIndex is returned by Parse for a bone matrix slot outside the skeleton.
var ErrBoneIndex = errors.New("skeleton: bone index out of range")

// Scene is the registry a skeleton lives in.
type Scene interface {
	RenderID() int
	AddSkeleton(s *Skeleton)
	// RemoveSkeleton unregisters s and detaches it from every mesh.
	RemoveSkeleton(s *Skeleton)
	StopAnimation(target any)
	AddActiveBones(n int)
}

// SkinnedMesh is a mesh skinned relative to its own pose matrix.
type SkinnedMesh interface {
	PoseMatrix() math.Mat4
	BoneTransformMatrices() []float32
	SetBoneTransformMatrices(m []float32)
}

// Skeleton owns an ordered list of bones and their matrix palette.
type Skeleton struct {
	Name  string
	ID    string
	Bones []*Bone

	// NeedInitialSkinMatrix gives every registered mesh its own palette
	// computed relative to that mesh's pose matrix.
	NeedInitialSkinMatrix bool
	// DimensionsAtRest is the bounding size of the skeleton in rest pose,
	// used to rescale copied animations.
	DimensionsAtRest *math.Vec3

	// OnBeforeCompute fires before the palette is recomputed.
	OnBeforeCompute event.Observable[*Skeleton]

	scene             Scene
	dirty             bool
	transformMatrices []float32
	meshesWithPose    []SkinnedMesh
	synchronizedWith  SkinnedMesh
	ranges            map[string]*animation.Range
	lastAbsoluteID    int
	disposed          bool
}

// New creates an empty skeleton and registers it in scene.
func New(name, id string, scene Scene) *Skeleton {
	s := &Skeleton{
		Name:           name,
		ID:             id,
		scene:          scene,
		dirty:          true,
		ranges:         make(map[string]*animation.Range),
		lastAbsoluteID: -1,
	}
	scene.AddSkeleton(s)
	return s
}

func (s *Skeleton) Scene() Scene     { return s.scene }
func (s *Skeleton) IsDirty() bool    { return s.dirty }
func (s *Skeleton) IsDisposed() bool { return s.disposed }
func (s *Skeleton) markAsDirty()     { s.dirty = true }

// BoneIndex returns the position of b in Bones, or -1.
func (s *Skeleton) BoneIndex(b *Bone) int {
	for i, bone := range s.Bones {
		if bone == b {
			return i
		}
	}
	return -1
}

// BoneIndexByName returns the position of the first bone named name, or -1.
func (s *Skeleton) BoneIndexByName(name string) int {
	for i, bone := range s.Bones {
		if bone.Name == name {
			return i
		}
	}
	return -1
}

// TransformMatrices returns the palette for mesh: its own buffer when the
// skeleton skins relative to pose matrices, the shared one otherwise.
func (s *Skeleton) TransformMatrices(mesh SkinnedMesh) []float32 {
	if s.NeedInitialSkinMatrix && mesh != nil {
		if m := mesh.BoneTransformMatrices(); m != nil {
			return m
		}
	}
	if s.transformMatrices == nil {
		s.Prepare()
	}
	if s.transformMatrices == nil {
		s.transformMatrices = make([]float32, 16*(len(s.Bones)+1))
		s.computeTransformMatrices(s.transformMatrices, nil)
	}
	return s.transformMatrices
}

// Prepare recomputes the palettes if any bone changed.
func (s *Skeleton) Prepare() {
	if !s.dirty {
		return
	}
	size := 16 * (len(s.Bones) + 1)

	if s.NeedInitialSkinMatrix {
		for _, mesh := range s.meshesWithPose {
			pose := mesh.PoseMatrix()
			buf := mesh.BoneTransformMatrices()
			if len(buf) != size {
				buf = make([]float32, size)
				mesh.SetBoneTransformMatrices(buf)
			}

			if s.synchronizedWith != mesh {
				s.synchronizedWith = mesh
				for _, b := range s.Bones {
					if b.parent == nil {
						root := pose.Mul(b.base)
						b.updateDifferenceMatrix(&root, true)
					}
				}
			}
			s.computeTransformMatrices(buf, &pose)
		}
	} else {
		if len(s.transformMatrices) != size {
			s.transformMatrices = make([]float32, size)
		}
		s.computeTransformMatrices(s.transformMatrices, nil)
	}

	s.dirty = false
	s.scene.AddActiveBones(len(s.Bones))
}

// computeTransformMatrices writes world * inverse(absolute) of every bone
// into target, followed by an identity slot for unweighted influences.
func (s *Skeleton) computeTransformMatrices(target []float32, initialSkin *math.Mat4) {
	s.OnBeforeCompute.Notify(s)

	for i, b := range s.Bones {
		b.childRenderID++
		local := b.LocalMatrix()
		switch {
		case b.parent != nil:
			b.world = b.parent.world.Mul(local)
		case initialSkin != nil:
			b.world = initialSkin.Mul(local)
		default:
			b.world = local
		}

		if b.hasIndex && b.index == -1 {
			continue
		}
		slot := i
		if b.hasIndex {
			slot = b.index
		}
		b.world.Mul(b.invertedAbsolute).PutSlice(target, slot*16)
	}

	math.Identity().PutSlice(target, len(s.Bones)*16)
}

// ComputeAbsoluteTransforms refreshes the absolute transforms of all bones
// once per render id, or immediately when force is set.
func (s *Skeleton) ComputeAbsoluteTransforms(force bool) {
	renderID := s.scene.RenderID()
	if s.lastAbsoluteID == renderID && !force {
		return
	}
	for _, b := range s.Bones {
		if b.parent == nil {
			b.ComputeAbsoluteTransforms()
		}
	}
	s.lastAbsoluteID = renderID
}

// PoseMatrix returns the pose matrix of the first registered mesh.
func (s *Skeleton) PoseMatrix() (math.Mat4, bool) {
	if len(s.meshesWithPose) == 0 {
		return math.Mat4{}, false
	}
	return s.meshesWithPose[0].PoseMatrix(), true
}

// RegisterMeshWithPoseMatrix adds mesh to the meshes skinned relative to
// their own pose.
func (s *Skeleton) RegisterMeshWithPoseMatrix(mesh SkinnedMesh) {
	s.meshesWithPose = append(s.meshesWithPose, mesh)
}

// UnregisterMeshWithPoseMatrix removes mesh.
func (s *Skeleton) UnregisterMeshWithPoseMatrix(mesh SkinnedMesh) {
	for i, m := range s.meshesWithPose {
		if m == mesh {
			s.meshesWithPose = append(s.meshesWithPose[:i], s.meshesWithPose[i+1:]...)
			break
		}
	}
	if s.synchronizedWith == mesh {
		s.synchronizedWith = nil
	}
}

// MeshesWithPoseMatrix returns the registered meshes.
func (s *Skeleton) MeshesWithPoseMatrix() []SkinnedMesh { return s.meshesWithPose }

// CreateAnimationRange records a range on the skeleton and on the first
// animation of every bone that has one.
func (s *Skeleton) CreateAnimationRange(name string, from, to float32) {
	if _, ok := s.ranges[name]; ok {
		return
	}
	s.ranges[name] = &animation.Range{Name: name, From: from, To: to}
	for _, b := range s.Bones {
		if len(b.Animations) > 0 {
			b.Animations[0].CreateRange(name, from, to)
		}
	}
}

// DeleteAnimationRange removes a range from the skeleton and its bones.
func (s *Skeleton) DeleteAnimationRange(name string, deleteFrames bool) {
	for _, b := range s.Bones {
		if len(b.Animations) > 0 {
			b.Animations[0].DeleteRange(name, deleteFrames)
		}
	}
	delete(s.ranges, name)
}

// AnimationRange returns the named range or nil.
func (s *Skeleton) AnimationRange(name string) *animation.Range {
	return s.ranges[name]
}

// AnimationRanges returns all ranges ordered by name.
func (s *Skeleton) AnimationRanges() []*animation.Range {
	out := make([]*animation.Range, 0, len(s.ranges))
	for _, r := range s.ranges {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CopyAnimationRange copies the named range of source onto this skeleton,
// after its existing keys. Bones are matched by name. It returns
// ErrNoRange when source lacks the range or this skeleton already has it,
// and false when the rigs differ; bones that do match are still copied.
func (s *Skeleton) CopyAnimationRange(source *Skeleton, name string, rescale bool) (bool, error) {
	if _, ok := s.ranges[name]; ok {
		return false, fmt.Errorf("range %q already on %s: %w", name, s.Name, ErrNoRange)
	}
	sourceRange := source.AnimationRange(name)
	if sourceRange == nil {
		return false, fmt.Errorf("range %q on %s: %w", name, source.Name, ErrNoRange)
	}

	ret := true
	frameOffset := s.highestAnimationFrame() + 1

	byName := make(map[string]*Bone, len(source.Bones))
	for _, b := range source.Bones {
		byName[b.Name] = b
	}

	if len(s.Bones) != len(source.Bones) {
		logger.Warn("copy animation range: bone count mismatch",
			zap.String("skeleton", s.Name),
			zap.Int("bones", len(s.Bones)),
			zap.Int("sourceBones", len(source.Bones)))
		ret = false
	}

	var ratio *math.Vec3
	if rescale && s.DimensionsAtRest != nil && source.DimensionsAtRest != nil {
		r := s.DimensionsAtRest.Div(*source.DimensionsAtRest)
		ratio = &r
	}

	for _, b := range s.Bones {
		src, ok := byName[b.Name]
		if !ok {
			logger.Warn("copy animation range: missing source bone",
				zap.String("skeleton", s.Name),
				zap.String("bone", b.Name))
			ret = false
			continue
		}
		if !b.CopyAnimationRange(src, name, frameOffset, rescale, ratio) {
			ret = false
		}
	}

	s.ranges[name] = &animation.Range{
		Name: name,
		From: sourceRange.From + frameOffset,
		To:   sourceRange.To + frameOffset,
	}
	return ret, nil
}

func (s *Skeleton) highestAnimationFrame() float32 {
	var highest float32
	for _, b := range s.Bones {
		if len(b.Animations) > 0 {
			if h := b.Animations[0].HighestFrame(); h > highest {
				highest = h
			}
		}
	}
	return highest
}

// ReturnToRest resets every bone to its rest pose.
func (s *Skeleton) ReturnToRest() {
	for _, b := range s.Bones {
		b.ReturnToRest()
	}
}

// Animatables returns the bones carrying animations.
func (s *Skeleton) Animatables() []*Bone {
	var out []*Bone
	for _, b := range s.Bones {
		if len(b.Animations) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// EnableBlending turns on blending for every bone animation.
func (s *Skeleton) EnableBlending(speed float32) {
	for _, b := range s.Bones {
		for _, a := range b.Animations {
			a.EnableBlending = true
			a.BlendingSpeed = speed
		}
	}
}

// SortBones reorders Bones so every parent precedes its children. Bones
// without an explicit index keep their previous position as index.
func (s *Skeleton) SortBones() {
	sorted := make([]*Bone, 0, len(s.Bones))
	visited := make([]bool, len(s.Bones))
	for i := range s.Bones {
		s.sortBones(i, &sorted, visited)
	}
	s.Bones = sorted
}

func (s *Skeleton) sortBones(i int, sorted *[]*Bone, visited []bool) {
	if i < 0 || visited[i] {
		return
	}
	visited[i] = true
	b := s.Bones[i]
	if !b.hasIndex {
		b.SetIndex(i)
	}
	if b.parent != nil {
		s.sortBones(s.BoneIndex(b.parent), sorted, visited)
	}
	*sorted = append(*sorted, b)
}

// Clone duplicates the hierarchy, animations and ranges into a new
// skeleton registered in the same scene. Parents must precede children.
func (s *Skeleton) Clone(name, id string) *Skeleton {
	if id == "" {
		id = name
	}
	c := New(name, id, s.scene)
	c.NeedInitialSkinMatrix = s.NeedInitialSkinMatrix
	if s.DimensionsAtRest != nil {
		d := *s.DimensionsAtRest
		c.DimensionsAtRest = &d
	}

	for _, src := range s.Bones {
		var parent *Bone
		if src.parent != nil {
			if idx := s.BoneIndex(src.parent); idx >= 0 && idx < len(c.Bones) {
				parent = c.Bones[idx]
			}
		}
		base, rest := src.base, src.restPose
		b := NewBone(src.Name, c, parent, BoneOptions{BaseMatrix: &base, RestPose: &rest, LocalMatrix: &base})
		b.Length = src.Length
		b.Metadata = src.Metadata
		for _, a := range src.Animations {
			b.Animations = append(b.Animations, a.Clone())
		}
	}

	for rn, r := range s.ranges {
		c.ranges[rn] = r.Clone()
	}
	return c
}

// Dispose stops the skeleton animations and removes it from the scene.
func (s *Skeleton) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.meshesWithPose = nil
	s.synchronizedWith = nil
	s.scene.StopAnimation(s)
	s.scene.RemoveSkeleton(s)
}
