package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Orbit drives a TargetCamera around a center point from mouse and
// keyboard deltas.
type Orbit struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32
	Yaw      float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbit returns orbit controls with viewer defaults.
func NewOrbit() *Orbit {
	return &Orbit{
		Distance:        20,
		Pitch:           0.5,
		MinDistance:     1,
		MaxDistance:     500,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the eye position on the orbit sphere.
func (o *Orbit) Position() math.Vec3 {
	sp, cp := math32.Sincos(o.Pitch)
	sy, cy := math32.Sincos(o.Yaw)
	return o.Center.Add(math.Vec3{
		X: o.Distance * cp * sy,
		Y: o.Distance * sp,
		Z: o.Distance * cp * cy,
	})
}

// SetEye places the orbit so that Position returns eye, keeping Center.
func (o *Orbit) SetEye(eye math.Vec3) {
	d := eye.Sub(o.Center)
	o.Distance = math.Clamp(d.Length(), o.MinDistance, o.MaxDistance)
	if l := d.Length(); l > 0 {
		o.Pitch = math.Clamp(math32.Asin(d.Y/l), o.MinPitch, o.MaxPitch)
		o.Yaw = math32.Atan2(d.X, d.Z)
	}
}

// Apply moves t onto the orbit and aims it at the center.
func (o *Orbit) Apply(t *TargetCamera) {
	t.Position = o.Position()
	t.SetTarget(o.Center)
}

// HandleDrag rotates around the center.
func (o *Orbit) HandleDrag(deltaX, deltaY float32) {
	o.Yaw -= deltaX * o.DragSensitivity
	o.Pitch = math.Clamp(o.Pitch+deltaY*o.DragSensitivity, o.MinPitch, o.MaxPitch)
}

// HandleZoom scales the distance by the wheel delta.
func (o *Orbit) HandleZoom(delta float32) {
	o.Distance = math.Clamp(o.Distance-delta*o.Distance*o.ZoomSensitivity, o.MinDistance, o.MaxDistance)
}

// HandleMovement pans the center on the ground plane relative to the yaw.
func (o *Orbit) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := o.Distance * 0.01

	sy, cy := math32.Sincos(o.Yaw)
	o.Center.X += (-sy*forward + cy*right) * speed
	o.Center.Z += (-cy*forward - sy*right) * speed
	o.Center.Y += up * speed
}

// FitToBounds centers the orbit on a box and backs off to see all of it.
func (o *Orbit) FitToBounds(minimum, maximum math.Vec3) {
	o.Center = minimum.Add(maximum).Scale(0.5)

	size := maximum.Sub(minimum)
	o.Distance = math.Clamp(size.Length()*1.5, o.MinDistance, o.MaxDistance)
	o.Pitch = math.Clamp(0.6, o.MinPitch, o.MaxPitch)
	o.Yaw = 0
}
