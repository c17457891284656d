package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Locator is anything with a world position a camera can lock onto.
type Locator interface {
	AbsolutePosition() math.Vec3
}

// Point is a fixed Locator.
type Point math.Vec3

func (p Point) AbsolutePosition() math.Vec3 { return math.Vec3(p) }

type targetCache struct {
	valid     bool
	rotation  math.Vec3
	hasLocked bool
	locked    math.Vec3
}

// TargetCamera is a camera aimed by a yaw/pitch/roll rotation, or at a
// locked target. It supports every rig mode.
type TargetCamera struct {
	*Camera

	// Rotation is pitch (X), yaw (Y) and roll (Z) in radians.
	Rotation math.Vec3
	// LockedTarget, when set, is looked at on every view computation.
	LockedTarget Locator

	// CameraDirection is a pending translation, damped by Inertia.
	CameraDirection math.Vec3
	// CameraRotation is a pending pitch (X) and yaw (Y) change.
	CameraRotation math.Vec2
	Speed          float32
	// NoRotationConstraint lifts the pitch limit of ±0.95·π/2.
	NoRotationConstraint bool

	referencePoint math.Vec3
	currentTarget  math.Vec3
	cache          targetCache
}

var _ Controller = (*TargetCamera)(nil)

// NewTargetCamera creates a target camera and registers it with scene.
func NewTargetCamera(name string, position math.Vec3, scene Scene) *TargetCamera {
	t := newTargetCamera(name, position, scene)
	scene.AddCamera(t.Camera)
	return t
}

func newTargetCamera(name string, position math.Vec3, scene Scene) *TargetCamera {
	t := &TargetCamera{
		Speed:          2,
		referencePoint: math.AxisZ,
	}
	t.Camera = newCamera(name, position, scene, t)
	return t
}

// Target returns the point the camera looks at.
func (t *TargetCamera) Target() math.Vec3 {
	t.Camera.ViewMatrix(false)
	return t.currentTarget
}

// SetTarget aims the camera at target from its current position.
func (t *TargetCamera) SetTarget(target math.Vec3) {
	c := t.Camera
	c.UpVector = c.UpVector.Normalize()

	focal := target.Sub(c.Position).Length()
	if c.Position.Z == target.Z {
		c.Position.Z += math.Epsilon
	}
	t.referencePoint = t.referencePoint.Normalize().Scale(focal)

	world := math.LookAtLH(c.Position, target, math.AxisY).Inverse()
	t.Rotation.X = math32.Atan(world[6] / world[10])

	dir := target.Sub(c.Position)
	if dir.X >= 0 {
		t.Rotation.Y = -math32.Atan(dir.Z/dir.X) + math32.Pi/2
	} else {
		t.Rotation.Y = -math32.Atan(dir.Z/dir.X) - math32.Pi/2
	}
	t.Rotation.Z = 0

	if math32.IsNaN(t.Rotation.X) {
		t.Rotation.X = 0
	}
	if math32.IsNaN(t.Rotation.Y) {
		t.Rotation.Y = 0
	}
}

// FrontPosition returns the point distance units in front of the camera.
func (t *TargetCamera) FrontPosition(distance float32) math.Vec3 {
	dir := t.Target().Sub(t.Position).Normalize()
	return t.GlobalPosition().Add(dir.Scale(distance))
}

func (t *TargetCamera) lockedPosition() (math.Vec3, bool) {
	if t.LockedTarget == nil {
		return math.Vec3{}, false
	}
	return t.LockedTarget.AbsolutePosition(), true
}

// IsViewSynchronized implements Controller.
func (t *TargetCamera) IsViewSynchronized(*Camera) bool {
	if !t.cache.valid || t.cache.rotation != t.Rotation {
		return false
	}
	pos, locked := t.lockedPosition()
	if locked != t.cache.hasLocked {
		return false
	}
	return !locked || pos == t.cache.locked
}

// ComputeViewMatrix implements Controller.
func (t *TargetCamera) ComputeViewMatrix(c *Camera) math.Mat4 {
	locked, hasLocked := t.lockedPosition()
	if hasLocked {
		t.SetTarget(locked)
	}

	rot := math.RotationYawPitchRoll(t.Rotation.Y, t.Rotation.X, t.Rotation.Z)
	t.currentTarget = c.Position.Add(rot.TransformPoint(t.referencePoint))

	var view math.Mat4
	if c.rightHanded() {
		view = math.LookAt(c.Position, t.currentTarget, c.UpVector)
	} else {
		view = math.LookAtLH(c.Position, t.currentTarget, c.UpVector)
	}
	if c.parent != nil {
		world := c.parent.WorldMatrix().Mul(view.Inverse())
		view = world.Inverse()
	}

	t.cache = targetCache{valid: true, rotation: t.Rotation, hasLocked: hasLocked, locked: locked}
	return view
}

// CreateRigCamera implements Controller. Rig eyes are owned by the parent
// camera and not registered with the scene.
func (t *TargetCamera) CreateRigCamera(c *Camera, name string, _ int) *Camera {
	if c.rigMode == RigNone {
		return nil
	}
	return newTargetCamera(name, c.Position, c.scene).Camera
}

// UpdateRigCameras implements Controller. Stereo eyes orbit the target by
// the stereo half angle.
func (t *TargetCamera) UpdateRigCameras(c *Camera) {
	if len(c.rigCameras) != 2 {
		return
	}
	switch c.rigMode {
	case RigStereoAnaglyph, RigStereoSideBySideParallel, RigStereoSideBySideCrossEyed,
		RigStereoOverUnder, RigVR:
	default:
		return
	}

	leftSign, rightSign := float32(-1), float32(1)
	if c.rigMode == RigStereoSideBySideCrossEyed {
		leftSign, rightSign = 1, -1
	}
	target := t.Target()
	half := c.rig.stereoHalfAngle
	for i, sign := range [2]float32{leftSign, rightSign} {
		eye := c.rigCameras[i]
		eye.Position = t.rigCamPosition(target, half*sign)
		if et, ok := eye.controller.(*TargetCamera); ok {
			et.SetTarget(target)
		}
	}
}

// rigCamPosition rotates the camera position around target on the Y axis.
func (t *TargetCamera) rigCamPosition(target math.Vec3, angle float32) math.Vec3 {
	m := math.Translate(target.X, target.Y, target.Z).
		Mul(math.RotateY(angle)).
		Mul(math.Translate(-target.X, -target.Y, -target.Z))
	return m.TransformPoint(t.Position)
}

// CheckInputs implements Controller.
func (t *TargetCamera) CheckInputs(c *Camera) {
	move := t.CameraDirection != (math.Vec3{})
	rotate := t.CameraRotation.X != 0 || t.CameraRotation.Y != 0

	if move {
		c.Position = c.Position.Add(t.CameraDirection)
	}
	if rotate {
		t.Rotation.X += t.CameraRotation.X
		t.Rotation.Y += t.CameraRotation.Y
		if !t.NoRotationConstraint {
			limit := math32.Pi / 2 * 0.95
			t.Rotation.X = math.Clamp(t.Rotation.X, -limit, limit)
		}
	}

	threshold := t.Speed * math.Epsilon
	if move {
		d := &t.CameraDirection
		d.X = zeroBelow(d.X, threshold)
		d.Y = zeroBelow(d.Y, threshold)
		d.Z = zeroBelow(d.Z, threshold)
		*d = d.Scale(c.Inertia)
	}
	if rotate {
		r := &t.CameraRotation
		r.X = zeroBelow(r.X, threshold) * c.Inertia
		r.Y = zeroBelow(r.Y, threshold) * c.Inertia
	}
}

func zeroBelow(v, threshold float32) float32 {
	if math32.Abs(v) < threshold {
		return 0
	}
	return v
}
