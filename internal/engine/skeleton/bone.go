package skeleton

import (
	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Space selects the frame a transform operation is expressed in.
type Space int

const (
	Local Space = iota
	World
)

// MatrixProperty is the animation target path of a bone local matrix.
const MatrixProperty = "_matrix"

// MeshTransform is the mesh a skeleton deforms, used by world space
// operations to include the mesh placement.
type MeshTransform interface {
	WorldMatrix() math.Mat4
	LocalScaling() math.Vec3
}

// BoneOptions are the optional matrices of a new bone. Nil fields default
// to identity for the local matrix and to the local matrix for the others.
type BoneOptions struct {
	LocalMatrix *math.Mat4
	RestPose    *math.Mat4
	BaseMatrix  *math.Mat4
	// Index overrides the bone slot in the transform buffer; -1 excludes
	// the bone from the buffer.
	Index *int
}

// Bone is a node of a skeleton hierarchy.
//
// The local transform is kept both as a matrix and as decomposed
// scaling/rotation/position. needToDecompose marks the decomposed copy
// stale, needToCompose marks the matrix stale.
type Bone struct {
	Name       string
	Animations []*animation.Animation
	// Length is the bone length, 0 when unknown.
	Length   float32
	Metadata any

	skeleton *Skeleton
	parent   *Bone
	children []*Bone

	local              math.Mat4
	restPose           math.Mat4
	base               math.Mat4
	absolute           math.Mat4
	invertedAbsolute   math.Mat4
	world              math.Mat4
	scalingDeterminant float32

	localScaling  math.Vec3
	localRotation math.Quat
	localPosition math.Vec3

	needToDecompose bool
	needToCompose   bool

	index    int
	hasIndex bool

	currentRenderID int
	childRenderID   int
}

// NewBone creates a bone, appends it to skeleton and attaches it to parent.
func NewBone(name string, skeleton *Skeleton, parent *Bone, opts BoneOptions) *Bone {
	b := &Bone{
		Name:               name,
		skeleton:           skeleton,
		local:              math.Identity(),
		absolute:           math.Identity(),
		invertedAbsolute:   math.Identity(),
		world:              math.Identity(),
		scalingDeterminant: 1,
		needToDecompose:    true,
	}
	if opts.LocalMatrix != nil {
		b.local = *opts.LocalMatrix
	}
	b.restPose = b.local
	if opts.RestPose != nil {
		b.restPose = *opts.RestPose
	}
	b.base = b.local
	if opts.BaseMatrix != nil {
		b.base = *opts.BaseMatrix
	}
	if opts.Index != nil {
		b.index = *opts.Index
		b.hasIndex = true
	}

	skeleton.Bones = append(skeleton.Bones, b)
	b.SetParent(parent, false)
	b.updateDifferenceMatrix(nil, true)
	return b
}

func (b *Bone) Skeleton() *Skeleton { return b.skeleton }
func (b *Bone) Parent() *Bone       { return b.parent }
func (b *Bone) Children() []*Bone   { return b.children }

// Index returns the bone slot in the transform buffer.
func (b *Bone) Index() int {
	if b.hasIndex {
		return b.index
	}
	return b.skeleton.BoneIndex(b)
}

// SetIndex maps the bone to a buffer slot; -1 excludes it.
func (b *Bone) SetIndex(i int) {
	b.index = i
	b.hasIndex = true
}

// SetParent moves the bone under parent. With updateDifferenceMatrix the
// absolute transforms of the bone and its descendants are recomputed.
func (b *Bone) SetParent(parent *Bone, updateDifferenceMatrix bool) {
	if b.parent == parent {
		return
	}
	if b.parent != nil {
		b.parent.children = removeBone(b.parent.children, b)
	}
	b.parent = parent
	if parent != nil {
		parent.children = append(parent.children, b)
	}
	if updateDifferenceMatrix {
		b.updateDifferenceMatrix(nil, true)
	}
	b.MarkAsDirty()
}

func removeBone(list []*Bone, bone *Bone) []*Bone {
	for i, c := range list {
		if c == bone {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// LocalMatrix returns the local matrix, composing it first if needed.
func (b *Bone) LocalMatrix() math.Mat4 {
	b.compose()
	return b.local
}

// SetLocalMatrix overwrites the local matrix. It takes precedence over any
// pending decomposed change.
func (b *Bone) SetLocalMatrix(m math.Mat4) {
	b.local = m
	b.needToCompose = false
	b.needToDecompose = true
	b.MarkAsDirty()
}

func (b *Bone) BaseMatrix() math.Mat4                { return b.base }
func (b *Bone) RestPose() math.Mat4                  { return b.restPose }
func (b *Bone) SetRestPose(m math.Mat4)              { b.restPose = m }
func (b *Bone) WorldMatrix() math.Mat4               { return b.world }
func (b *Bone) AbsoluteTransform() math.Mat4         { return b.absolute }
func (b *Bone) InvertedAbsoluteTransform() math.Mat4 { return b.invertedAbsolute }
func (b *Bone) ScalingDeterminant() float32          { return b.scalingDeterminant }
func (b *Bone) NeedToDecompose() bool                { return b.needToDecompose }
func (b *Bone) NeedToCompose() bool                  { return b.needToCompose }
func (b *Bone) RenderIDs() (current, child int)      { return b.currentRenderID, b.childRenderID }

// ReturnToRest resets the bone to its rest pose.
func (b *Bone) ReturnToRest() {
	b.UpdateMatrix(b.restPose, true, true)
}

// UpdateMatrix sets the base matrix and optionally the absolute transform
// chain and the local matrix.
func (b *Bone) UpdateMatrix(m math.Mat4, updateDifferenceMatrix, updateLocalMatrix bool) {
	b.base = m
	if updateDifferenceMatrix {
		b.updateDifferenceMatrix(nil, true)
	}
	if updateLocalMatrix {
		b.local = m
		b.needToCompose = false
		b.markAsDirtyAndDecompose()
		return
	}
	b.MarkAsDirty()
}

// updateDifferenceMatrix recomputes the absolute transform from root, or
// from the base matrix when root is nil.
func (b *Bone) updateDifferenceMatrix(root *math.Mat4, updateChildren bool) {
	r := b.base
	if root != nil {
		r = *root
	}
	if b.parent != nil {
		b.absolute = b.parent.absolute.Mul(r)
	} else {
		b.absolute = r
	}
	b.invertedAbsolute = b.absolute.Inverse()

	if updateChildren {
		for _, c := range b.children {
			c.updateDifferenceMatrix(nil, true)
		}
	}

	b.scalingDeterminant = 1
	if b.absolute.Determinant() < 0 {
		b.scalingDeterminant = -1
	}
}

// MarkAsDirty invalidates the bone caches and the skeleton buffer.
func (b *Bone) MarkAsDirty() {
	b.currentRenderID++
	b.childRenderID++
	b.skeleton.markAsDirty()
}

func (b *Bone) markAsDirtyAndCompose() {
	b.MarkAsDirty()
	b.needToCompose = true
}

func (b *Bone) markAsDirtyAndDecompose() {
	b.MarkAsDirty()
	b.needToDecompose = true
}

func (b *Bone) decompose() {
	if !b.needToDecompose {
		return
	}
	b.needToDecompose = false
	scale, rot, pos, ok := b.local.Decompose()
	if !ok {
		scale, rot, pos = math.Vec3{}, math.QuatIdentity(), b.local.Translation()
	}
	b.localScaling, b.localRotation, b.localPosition = scale, rot, pos
}

func (b *Bone) compose() {
	if !b.needToCompose {
		return
	}
	b.needToCompose = false
	b.local = math.Compose(b.localScaling, b.localRotation, b.localPosition)
}

// Position returns the local translation.
func (b *Bone) Position() math.Vec3 {
	b.decompose()
	return b.localPosition
}

// SetLocalPosition replaces the local translation.
func (b *Bone) SetLocalPosition(p math.Vec3) {
	b.decompose()
	b.localPosition = p
	b.markAsDirtyAndCompose()
}

// RotationQuaternion returns the local rotation.
func (b *Bone) RotationQuaternion() math.Quat {
	b.decompose()
	return b.localRotation
}

// Scale returns the local scaling.
func (b *Bone) Scale() math.Vec3 {
	b.decompose()
	return b.localScaling
}

// SetScale replaces the local scaling.
func (b *Bone) SetScale(s math.Vec3) {
	b.decompose()
	b.localScaling = s
	b.markAsDirtyAndCompose()
}

// ScaleBy multiplies the local matrix by a scaling and compensates the
// children so they keep their world size unless scaleChildren is set.
func (b *Bone) ScaleBy(x, y, z float32, scaleChildren bool) {
	scaleMat := math.Scale(x, y, z)
	b.local = b.LocalMatrix().Mul(scaleMat)

	inv := scaleMat.Inverse()
	for _, c := range b.children {
		cm := inv.Mul(c.LocalMatrix())
		cm[12] *= x
		cm[13] *= y
		cm[14] *= z
		c.local = cm
		c.markAsDirtyAndDecompose()
	}
	b.markAsDirtyAndDecompose()

	if scaleChildren {
		for _, c := range b.children {
			c.ScaleBy(x, y, z, scaleChildren)
		}
	}
}

// parentChain returns the transform a world space vector has to be
// brought back through: the parent absolute transform, combined with the
// mesh world matrix when mesh is set.
func (b *Bone) parentChain(mesh MeshTransform) math.Mat4 {
	m := math.Identity()
	if b.parent != nil {
		m = b.parent.absolute
	}
	if mesh != nil {
		m = mesh.WorldMatrix().Mul(m)
	}
	return m
}

// Translate moves the bone by vec.
func (b *Bone) Translate(vec math.Vec3, space Space, mesh MeshTransform) {
	lm := b.LocalMatrix()
	if space == World {
		b.skeleton.ComputeAbsoluteTransforms(false)
		tmat := b.parentChain(mesh).WithTranslation(math.Vec3{})
		vec = tmat.Inverse().TransformPoint(vec)
	}
	lm[12] += vec.X
	lm[13] += vec.Y
	lm[14] += vec.Z
	b.local = lm
	b.markAsDirtyAndDecompose()
}

// SetPosition places the bone at position.
func (b *Bone) SetPosition(position math.Vec3, space Space, mesh MeshTransform) {
	lm := b.LocalMatrix()
	if space == World {
		b.skeleton.ComputeAbsoluteTransforms(false)
		position = b.parentChain(mesh).Inverse().TransformPoint(position)
	}
	b.local = lm.WithTranslation(position)
	b.markAsDirtyAndDecompose()
}

// SetAbsolutePosition places the bone at a world position.
func (b *Bone) SetAbsolutePosition(position math.Vec3, mesh MeshTransform) {
	b.SetPosition(position, World, mesh)
}

// SetYawPitchRoll sets the rotation from Euler angles.
func (b *Bone) SetYawPitchRoll(yaw, pitch, roll float32, space Space, mesh MeshTransform) {
	if space == Local {
		b.SetRotationQuaternion(math.QuatFromYawPitchRoll(yaw, pitch, roll), Local, nil)
		return
	}
	neg, ok := b.negativeRotation(mesh)
	if !ok {
		return
	}
	b.rotateWithMatrix(math.RotationYawPitchRoll(yaw, pitch, roll).Mul(neg), space, mesh)
}

// SetRotation sets the rotation from Vec3{X: pitch, Y: yaw, Z: roll}.
func (b *Bone) SetRotation(rotation math.Vec3, space Space, mesh MeshTransform) {
	b.SetYawPitchRoll(rotation.Y, rotation.X, rotation.Z, space, mesh)
}

// Rotate adds a rotation of amount radians around axis.
func (b *Bone) Rotate(axis math.Vec3, amount float32, space Space, mesh MeshTransform) {
	b.rotateWithMatrix(math.RotateAxis(axis, amount), space, mesh)
}

// SetAxisAngle sets the rotation to angle radians around axis.
func (b *Bone) SetAxisAngle(axis math.Vec3, angle float32, space Space, mesh MeshTransform) {
	if space == Local {
		b.SetRotationQuaternion(math.QuatFromAxisAngle(axis, angle), Local, nil)
		return
	}
	neg, ok := b.negativeRotation(mesh)
	if !ok {
		return
	}
	b.rotateWithMatrix(math.RotateAxis(axis, angle).Mul(neg), space, mesh)
}

// SetRotationQuaternion sets the rotation.
func (b *Bone) SetRotationQuaternion(q math.Quat, space Space, mesh MeshTransform) {
	if space == Local {
		b.decompose()
		b.localRotation = q
		b.markAsDirtyAndCompose()
		return
	}
	neg, ok := b.negativeRotation(mesh)
	if !ok {
		return
	}
	b.rotateWithMatrix(q.ToMat4().Mul(neg), space, mesh)
}

// SetRotationMatrix sets the rotation from a rotation matrix.
func (b *Bone) SetRotationMatrix(rot math.Mat4, space Space, mesh MeshTransform) {
	if space == Local {
		b.SetRotationQuaternion(math.QuatFromRotationMatrix(rot), Local, nil)
		return
	}
	neg, ok := b.negativeRotation(mesh)
	if !ok {
		return
	}
	b.rotateWithMatrix(rot.Mul(neg), space, mesh)
}

// rotateWithMatrix applies rmat to the local matrix, conjugated by the
// parent chain for world space, keeping the local translation.
func (b *Bone) rotateWithMatrix(rmat math.Mat4, space Space, mesh MeshTransform) {
	lmat := b.LocalMatrix()
	translation := lmat.Translation()

	switch {
	case space == World && (b.parent != nil || mesh != nil):
		parentScale := b.parentChain(mesh)
		parentScaleInv := parentScale.Inverse()
		lmat = parentScaleInv.Mul(rmat.Mul(parentScale.Mul(lmat)))
	default:
		lmat = rmat.Mul(lmat)
	}

	b.local = lmat.WithTranslation(translation)
	b.ComputeAbsoluteTransforms()
	b.markAsDirtyAndDecompose()
}

// negativeRotation returns the inverse of the accumulated world rotation,
// corrected for mirrored chains.
func (b *Bone) negativeRotation(mesh MeshTransform) (math.Mat4, bool) {
	rotInv := b.absolute
	scale := math.Identity()
	if mesh != nil {
		rotInv = mesh.WorldMatrix().Mul(rotInv)
		s := mesh.LocalScaling()
		scale = math.Scale(s.X, s.Y, s.Z)
	}
	rotInv, ok := rotInv.Invert()
	if !ok {
		return math.Mat4{}, false
	}
	scale[0] *= b.scalingDeterminant
	return scale.Mul(rotInv), true
}

// ComputeAbsoluteTransforms recomputes the absolute transform of the bone
// and its descendants from the local matrices.
func (b *Bone) ComputeAbsoluteTransforms() {
	b.compose()
	if b.parent != nil {
		b.absolute = b.parent.absolute.Mul(b.local)
	} else {
		b.absolute = b.local
		if pose, ok := b.skeleton.PoseMatrix(); ok {
			b.absolute = pose.Mul(b.absolute)
		}
	}
	for _, c := range b.children {
		c.ComputeAbsoluteTransforms()
	}
}

// worldChain returns the absolute transform, combined with the mesh world
// matrix when mesh is set.
func (b *Bone) worldChain(mesh MeshTransform) math.Mat4 {
	if mesh != nil {
		return mesh.WorldMatrix().Mul(b.absolute)
	}
	return b.absolute
}

// GetPosition returns the bone position in space.
func (b *Bone) GetPosition(space Space, mesh MeshTransform) math.Vec3 {
	if space == Local {
		return b.LocalMatrix().Translation()
	}
	b.skeleton.ComputeAbsoluteTransforms(false)
	return b.worldChain(mesh).Translation()
}

// AbsolutePosition returns the bone world position.
func (b *Bone) AbsolutePosition(mesh MeshTransform) math.Vec3 {
	return b.GetPosition(World, mesh)
}

// AbsolutePositionFromLocal transforms a point in bone space to world space.
func (b *Bone) AbsolutePositionFromLocal(position math.Vec3, mesh MeshTransform) math.Vec3 {
	b.skeleton.ComputeAbsoluteTransforms(false)
	return b.worldChain(mesh).TransformPoint(position)
}

// LocalPositionFromAbsolute transforms a world point to bone space.
func (b *Bone) LocalPositionFromAbsolute(position math.Vec3, mesh MeshTransform) math.Vec3 {
	b.skeleton.ComputeAbsoluteTransforms(false)
	return b.worldChain(mesh).Inverse().TransformPoint(position)
}

// Direction returns localAxis expressed in world space, normalized.
func (b *Bone) Direction(localAxis math.Vec3, mesh MeshTransform) math.Vec3 {
	b.skeleton.ComputeAbsoluteTransforms(false)
	return b.worldChain(mesh).TransformDirection(localAxis).Normalize()
}

// GetRotationQuaternion returns the bone rotation in space.
func (b *Bone) GetRotationQuaternion(space Space, mesh MeshTransform) math.Quat {
	if space == Local {
		return b.RotationQuaternion()
	}
	m := b.mirroredWorld(mesh)
	_, rot, _, ok := m.Decompose()
	if !ok {
		return math.QuatIdentity()
	}
	return rot
}

// GetRotation returns the bone rotation in space as Vec3{X: pitch, Y: yaw, Z: roll}.
func (b *Bone) GetRotation(space Space, mesh MeshTransform) math.Vec3 {
	return b.GetRotationQuaternion(space, mesh).ToEulerAngles()
}

// GetRotationMatrix returns the bone rotation in space as a matrix.
func (b *Bone) GetRotationMatrix(space Space, mesh MeshTransform) math.Mat4 {
	if space == Local {
		return b.LocalMatrix().RotationMatrix()
	}
	return b.mirroredWorld(mesh).RotationMatrix()
}

func (b *Bone) mirroredWorld(mesh MeshTransform) math.Mat4 {
	m := b.worldChain(mesh)
	m[0] *= b.scalingDeterminant
	m[1] *= b.scalingDeterminant
	m[2] *= b.scalingDeterminant
	return m
}

// CopyAnimationRange appends the keys of source within the named range to
// the first animation of b, shifted by frameOffset. With rescale the
// translations are scaled by the parent length ratio or, for roots, by
// dimensionsRatio. It returns false when source has no such range.
func (b *Bone) CopyAnimationRange(source *Bone, rangeName string, frameOffset float32, rescale bool, dimensionsRatio *math.Vec3) bool {
	if len(source.Animations) == 0 {
		return false
	}
	src := source.Animations[0]
	if len(b.Animations) == 0 {
		b.Animations = append(b.Animations, animation.New(b.Name, MatrixProperty, src.FramePerSecond, animation.TypeMatrix, animation.LoopRelative))
	}

	r := src.Range(rangeName)
	if r == nil {
		return false
	}

	sourceParent := source.parent
	parentScaling := rescale && sourceParent != nil && source.Length != 0 && b.Length != 0 && source.Length != b.Length
	parentRatio := float32(1)
	if parentScaling && b.parent != nil && sourceParent.Length != 0 {
		parentRatio = b.parent.Length / sourceParent.Length
	}
	dimensionScaling := rescale && b.parent == nil && dimensionsRatio != nil &&
		(dimensionsRatio.X != 1 || dimensionsRatio.Y != 1 || dimensionsRatio.Z != 1)

	dest := b.Animations[0]
	for _, k := range src.Keys() {
		if k.Frame < r.From || k.Frame > r.To {
			continue
		}
		value := k.Value
		if m, ok := value.(math.Mat4); ok && rescale {
			switch {
			case parentScaling:
				value = m.WithTranslation(m.Translation().Scale(parentRatio))
			case dimensionScaling:
				value = m.WithTranslation(m.Translation().Mul(*dimensionsRatio))
			}
		}
		dest.AddKey(animation.Key{Frame: k.Frame + frameOffset, Value: value})
	}
	dest.CreateRange(rangeName, r.From+frameOffset, r.To+frameOffset)
	return true
}

// AnimatedProperty implements animation.Target.
func (b *Bone) AnimatedProperty(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	switch path[0] {
	case MatrixProperty:
		return b.LocalMatrix(), true
	case "position":
		return b.Position(), true
	case "rotationQuaternion":
		return b.RotationQuaternion(), true
	case "scaling":
		return b.Scale(), true
	case "rotation":
		return b.RotationQuaternion().ToEulerAngles(), true
	}
	return nil, false
}

// SetAnimatedProperty implements animation.Target.
func (b *Bone) SetAnimatedProperty(path []string, value any) bool {
	if len(path) == 0 {
		return false
	}
	switch v := value.(type) {
	case math.Mat4:
		if path[0] == MatrixProperty {
			b.SetLocalMatrix(v)
			return true
		}
	case math.Quat:
		if path[0] == "rotationQuaternion" {
			b.SetRotationQuaternion(v, Local, nil)
			return true
		}
	case math.Vec3:
		switch path[0] {
		case "position":
			b.SetLocalPosition(v)
			return true
		case "scaling":
			b.SetScale(v)
			return true
		case "rotation":
			b.SetRotation(v, Local, nil)
			return true
		}
	}
	return false
}
