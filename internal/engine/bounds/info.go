// Package bounds provides bounding volumes, frustum planes and rays used for
// culling, level-of-detail selection and picking.
package bounds

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Box is an axis-aligned box in local space with its world-space image.
type Box struct {
	Minimum, Maximum math.Vec3
	Center           math.Vec3

	VectorsWorld  [8]math.Vec3
	MinimumWorld  math.Vec3
	MaximumWorld  math.Vec3
	CenterWorld   math.Vec3
	ExtendSizeWld math.Vec3
}

// NewBox creates a box from local extents, ordering each axis.
func NewBox(min, max math.Vec3) *Box {
	b := &Box{Minimum: min.Min(max), Maximum: max.Max(min)}
	b.Center = b.Minimum.Add(b.Maximum).Scale(0.5)
	b.Update(math.Identity())
	return b
}

func (b *Box) corners() [8]math.Vec3 {
	lo, hi := b.Minimum, b.Maximum
	return [8]math.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z},
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z},
	}
}

// Update recomputes the world-space vectors.
func (b *Box) Update(world math.Mat4) {
	minW := math.Vec3{X: math32.MaxFloat32, Y: math32.MaxFloat32, Z: math32.MaxFloat32}
	maxW := minW.Negate()
	for i, c := range b.corners() {
		v := world.TransformPoint(c)
		b.VectorsWorld[i] = v
		minW = minW.Min(v)
		maxW = maxW.Max(v)
	}
	b.MinimumWorld = minW
	b.MaximumWorld = maxW
	b.CenterWorld = minW.Add(maxW).Scale(0.5)
	b.ExtendSizeWld = maxW.Sub(minW).Scale(0.5)
}

// IsInFrustum reports whether at least part of the box may be inside the planes.
func (b *Box) IsInFrustum(planes [6]math.Plane) bool {
	for _, p := range planes {
		inside := false
		for _, v := range b.VectorsWorld {
			if p.DotCoordinate(v) >= 0 {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}

// IsCompletelyInFrustum reports whether every corner is inside the planes.
func (b *Box) IsCompletelyInFrustum(planes [6]math.Plane) bool {
	for _, p := range planes {
		for _, v := range b.VectorsWorld {
			if p.DotCoordinate(v) < 0 {
				return false
			}
		}
	}
	return true
}

// Sphere is a bounding sphere in local space with its world-space image.
type Sphere struct {
	Center      math.Vec3
	Radius      float32
	CenterWorld math.Vec3
	RadiusWorld float32
}

// NewSphere creates the sphere enclosing the local extents.
func NewSphere(min, max math.Vec3) *Sphere {
	s := &Sphere{
		Center: min.Add(max).Scale(0.5),
		Radius: max.Distance(min) * 0.5,
	}
	s.Update(math.Identity())
	return s
}

// Update recomputes the world center and radius. The radius follows the
// largest axis scale of world.
func (s *Sphere) Update(world math.Mat4) {
	s.CenterWorld = world.TransformPoint(s.Center)
	scaled := world.TransformDirection(math.One())
	maxScale := math32.Max(math32.Abs(scaled.X), math32.Max(math32.Abs(scaled.Y), math32.Abs(scaled.Z)))
	s.RadiusWorld = maxScale * s.Radius
}

// IsInFrustum reports whether the sphere intersects the planes.
func (s *Sphere) IsInFrustum(planes [6]math.Plane) bool {
	for _, p := range planes {
		if p.DotCoordinate(s.CenterWorld) <= -s.RadiusWorld {
			return false
		}
	}
	return true
}

// Info bundles the box and sphere of one object.
type Info struct {
	Box    *Box
	Sphere *Sphere
}

// NewInfo creates bounding volumes for the local extents.
func NewInfo(min, max math.Vec3) *Info {
	return &Info{Box: NewBox(min, max), Sphere: NewSphere(min, max)}
}

// Minimum returns the local minimum.
func (i *Info) Minimum() math.Vec3 { return i.Box.Minimum }

// Maximum returns the local maximum.
func (i *Info) Maximum() math.Vec3 { return i.Box.Maximum }

// Update recomputes both volumes in world space.
func (i *Info) Update(world math.Mat4) {
	i.Box.Update(world)
	i.Sphere.Update(world)
}

// IsInFrustum tests the sphere first, then the box.
func (i *Info) IsInFrustum(planes [6]math.Plane) bool {
	if !i.Sphere.IsInFrustum(planes) {
		return false
	}
	return i.Box.IsInFrustum(planes)
}

// Intersects reports whether the world boxes of i and other overlap.
func (i *Info) Intersects(other *Info) bool {
	a, b := i.Box, other.Box
	return a.MinimumWorld.X <= b.MaximumWorld.X && a.MaximumWorld.X >= b.MinimumWorld.X &&
		a.MinimumWorld.Y <= b.MaximumWorld.Y && a.MaximumWorld.Y >= b.MinimumWorld.Y &&
		a.MinimumWorld.Z <= b.MaximumWorld.Z && a.MaximumWorld.Z >= b.MinimumWorld.Z
}

// Extents computes the local min/max of count vertices of a flat position
// array starting at vertex start.
func Extents(positions []float32, start, count int) (min, max math.Vec3) {
	read := 0
	min = math.Vec3{X: math32.MaxFloat32, Y: math32.MaxFloat32, Z: math32.MaxFloat32}
	max = min.Negate()
	for i := start; i < start+count; i++ {
		if i*3+2 >= len(positions) {
			break
		}
		v := math.Vec3FromSlice(positions, i*3)
		min = min.Min(v)
		max = max.Max(v)
		read++
	}
	if read == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	return min, max
}
