package mesh

import (
	"github.com/google/uuid"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/event"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// RenderIDSource provides the per-frame counter world matrices are cached by.
type RenderIDSource interface {
	RenderID() int
}

type nodeCache struct {
	valid       bool
	position    math.Vec3
	rotation    math.Vec3
	quaternion  math.Quat
	hasQuat     bool
	scaling     math.Vec3
	pivot       math.Mat4
	parent      *Node
	parentWorld int
}

// Node is the transform shared by meshes and instances: a position,
// rotation and scaling relative to an optional parent.
type Node struct {
	Name     string
	ID       string
	UniqueID string
	Metadata any

	Position math.Vec3
	// Rotation holds Euler angles (pitch, yaw, roll) and is ignored while
	// RotationQuaternion is set.
	Rotation           math.Vec3
	RotationQuaternion *math.Quat
	Scaling            math.Vec3

	Animations []*animation.Animation

	OnAfterWorldMatrixUpdate event.Observable[*Node]
	OnDispose                event.Observable[*Node]

	scene    RenderIDSource
	owner    any
	parent   *Node
	children []*Node
	enabled  bool
	pivot    math.Mat4

	local           math.Mat4
	world           math.Mat4
	worldUpdateID   int
	currentRenderID int
	frozen          bool
	cache           nodeCache
	disposed        bool
}

func newNode(name string, scene RenderIDSource, owner any) *Node {
	return &Node{
		Name:            name,
		ID:              name,
		UniqueID:        uuid.NewString(),
		Scaling:         math.One(),
		scene:           scene,
		owner:           owner,
		enabled:         true,
		pivot:           math.Identity(),
		local:           math.Identity(),
		world:           math.Identity(),
		currentRenderID: -1,
	}
}

// Owner returns the mesh or instance this node belongs to.
func (n *Node) Owner() any { return n.owner }

func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }
func (n *Node) IsDisposed() bool  { return n.disposed }

// SetParent re-parents the node; nil detaches it.
func (n *Node) SetParent(parent *Node) {
	if n.parent == parent {
		return
	}
	if n.parent != nil {
		n.parent.children = removeNode(n.parent.children, n)
	}
	n.parent = parent
	if parent != nil {
		parent.children = append(parent.children, n)
	}
}

func removeNode(list []*Node, node *Node) []*Node {
	for i, c := range list {
		if c == node {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Descendants returns the children, and with directOnly unset their whole
// subtrees, depth first.
func (n *Node) Descendants(directOnly bool) []*Node {
	var out []*Node
	for _, c := range n.children {
		out = append(out, c)
		if !directOnly {
			out = append(out, c.Descendants(false)...)
		}
	}
	return out
}

// IsEnabled reports whether the node and all its ancestors are enabled.
func (n *Node) IsEnabled() bool {
	if !n.enabled {
		return false
	}
	if n.parent != nil {
		return n.parent.IsEnabled()
	}
	return true
}

func (n *Node) SetEnabled(enabled bool) { n.enabled = enabled }

func (n *Node) PivotMatrix() math.Mat4 { return n.pivot }

func (n *Node) SetPivotMatrix(m math.Mat4) {
	n.pivot = m
	n.cache.valid = false
}

func (n *Node) rotationQuat() math.Quat {
	if n.RotationQuaternion != nil {
		return *n.RotationQuaternion
	}
	return math.QuatFromYawPitchRoll(n.Rotation.Y, n.Rotation.X, n.Rotation.Z)
}

func (n *Node) isSynchronized() bool {
	c := &n.cache
	if !c.valid || c.parent != n.parent {
		return false
	}
	if n.parent != nil && (c.parentWorld != n.parent.worldUpdateID || !n.parent.isSynchronized()) {
		return false
	}
	if c.position != n.Position || c.scaling != n.Scaling || c.pivot != n.pivot {
		return false
	}
	if n.RotationQuaternion != nil {
		return c.hasQuat && c.quaternion == *n.RotationQuaternion
	}
	return !c.hasQuat && c.rotation == n.Rotation
}

func (n *Node) updateCache() {
	n.cache = nodeCache{
		valid:    true,
		position: n.Position,
		rotation: n.Rotation,
		scaling:  n.Scaling,
		pivot:    n.pivot,
		parent:   n.parent,
	}
	if n.RotationQuaternion != nil {
		n.cache.hasQuat = true
		n.cache.quaternion = *n.RotationQuaternion
	}
	if n.parent != nil {
		n.cache.parentWorld = n.parent.worldUpdateID
	}
}

// ComputeWorldMatrix returns the world matrix, recomputing it when force is
// set or any transform input changed since the last computation.
func (n *Node) ComputeWorldMatrix(force bool) math.Mat4 {
	renderID := n.scene.RenderID()
	if n.frozen || (!force && n.isSynchronized()) {
		n.currentRenderID = renderID
		return n.world
	}

	if n.parent != nil {
		n.parent.ComputeWorldMatrix(false)
	}

	n.local = math.Compose(n.Scaling, n.rotationQuat(), n.Position).Mul(n.pivot)
	if n.parent != nil {
		n.world = n.parent.world.Mul(n.local)
	} else {
		n.world = n.local
	}

	n.updateCache()
	n.currentRenderID = renderID
	n.worldUpdateID++
	n.OnAfterWorldMatrixUpdate.Notify(n)
	return n.world
}

// WorldMatrix returns the world matrix, refreshing it at most once per
// render id.
func (n *Node) WorldMatrix() math.Mat4 {
	if n.currentRenderID != n.scene.RenderID() {
		n.ComputeWorldMatrix(false)
	}
	return n.world
}

// WorldMatrixFromCache returns the last computed world matrix.
func (n *Node) WorldMatrixFromCache() math.Mat4 { return n.world }

// LocalMatrix returns the last computed local matrix.
func (n *Node) LocalMatrix() math.Mat4 { return n.local }

// WorldMatrixDeterminant is negative when the world matrix mirrors.
func (n *Node) WorldMatrixDeterminant() float32 {
	return n.WorldMatrix().Determinant()
}

// AbsolutePosition returns the world translation.
func (n *Node) AbsolutePosition() math.Vec3 {
	return n.ComputeWorldMatrix(false).Translation()
}

// GlobalPosition is the world translation without a recompute.
func (n *Node) GlobalPosition() math.Vec3 { return n.world.Translation() }

// FreezeWorldMatrix pins the world matrix at its current value.
func (n *Node) FreezeWorldMatrix() {
	n.frozen = false
	n.ComputeWorldMatrix(true)
	n.frozen = true
}

func (n *Node) UnfreezeWorldMatrix() {
	n.frozen = false
	n.ComputeWorldMatrix(true)
}

func (n *Node) IsWorldMatrixFrozen() bool { return n.frozen }

// ResetTransform sets position and rotation to zero and scaling to one.
func (n *Node) ResetTransform() {
	n.Position = math.Vec3{}
	n.Rotation = math.Vec3{}
	if n.RotationQuaternion != nil {
		q := math.QuatIdentity()
		n.RotationQuaternion = &q
	}
	n.Scaling = math.One()
	n.world = math.Identity()
	n.cache.valid = false
}

// copyTransform copies the transform inputs of src.
func (n *Node) copyTransform(src *Node) {
	n.Position = src.Position
	n.Rotation = src.Rotation
	n.Scaling = src.Scaling
	if src.RotationQuaternion != nil {
		q := *src.RotationQuaternion
		n.RotationQuaternion = &q
	}
	n.pivot = src.pivot
	n.cache.valid = false
}

func (n *Node) dispose() {
	if n.disposed {
		return
	}
	n.disposed = true
	n.OnDispose.Notify(n)
	n.SetParent(nil)
	n.OnAfterWorldMatrixUpdate.Clear()
	n.OnDispose.Clear()
}

func vecComponent(v math.Vec3, c string) (float32, bool) {
	switch c {
	case "x":
		return v.X, true
	case "y":
		return v.Y, true
	case "z":
		return v.Z, true
	}
	return 0, false
}

func setVecComponent(v *math.Vec3, c string, f float32) bool {
	switch c {
	case "x":
		v.X = f
	case "y":
		v.Y = f
	case "z":
		v.Z = f
	default:
		return false
	}
	return true
}

func (n *Node) vecProperty(name string) *math.Vec3 {
	switch name {
	case "position":
		return &n.Position
	case "rotation":
		return &n.Rotation
	case "scaling":
		return &n.Scaling
	}
	return nil
}

// AnimatedProperty implements animation.Target for position, rotation,
// scaling (and their x/y/z components) and rotationQuaternion.
func (n *Node) AnimatedProperty(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	if path[0] == "rotationQuaternion" {
		return n.rotationQuat(), true
	}
	v := n.vecProperty(path[0])
	if v == nil {
		return nil, false
	}
	if len(path) == 2 {
		f, ok := vecComponent(*v, path[1])
		return f, ok
	}
	return *v, len(path) == 1
}

// SetAnimatedProperty implements animation.Target.
func (n *Node) SetAnimatedProperty(path []string, value any) bool {
	if len(path) == 0 {
		return false
	}
	if path[0] == "rotationQuaternion" {
		q, ok := value.(math.Quat)
		if ok {
			n.RotationQuaternion = &q
		}
		return ok
	}
	v := n.vecProperty(path[0])
	if v == nil {
		return false
	}
	switch val := value.(type) {
	case math.Vec3:
		if len(path) == 1 {
			*v = val
			return true
		}
	case float32:
		if len(path) == 2 {
			return setVecComponent(v, path[1], val)
		}
	}
	return false
}
