package bounds

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
	Length    float32
}

// NewRay builds a ray, normalizing direction.
func NewRay(origin, direction math.Vec3, length float32) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize(), Length: length}
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	nearWorld := unproject(invViewProj, math.Vec4{ndcX, ndcY, -1.0, 1.0})
	farWorld := unproject(invViewProj, math.Vec4{ndcX, ndcY, 1.0, 1.0})

	dir := farWorld.Sub(nearWorld)
	return Ray{Origin: nearWorld, Direction: dir.Normalize(), Length: dir.Length()}
}

func unproject(m math.Mat4, p math.Vec4) math.Vec3 {
	w := m.MulVec4(p)
	if w[3] != 0 {
		return math.Vec3{X: w[0] / w[3], Y: w[1] / w[3], Z: w[2] / w[3]}
	}
	return math.Vec3{X: w[0], Y: w[1], Z: w[2]}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectPlaneY intersects a ray with a horizontal plane at the given Y level.
// Returns the intersection point (X, Z) and whether the intersection is valid.
func (r Ray) IntersectPlaneY(planeY float32) (x, z float32, ok bool) {
	if math32.Abs(r.Direction.Y) < 0.001 {
		return 0, 0, false // parallel
	}

	t := (planeY - r.Origin.Y) / r.Direction.Y
	if t < 0 {
		return 0, 0, false
	}

	p := r.At(t)
	return p.X, p.Z, true
}

// IntersectBox tests the ray against the world-space extents of box with the
// slab method. If the ray starts inside the box, the exit distance is returned.
func (r Ray) IntersectBox(min, max math.Vec3) (t float32, hit bool) {
	var tmin, tmax float32 = -math32.MaxFloat32, math32.MaxFloat32

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float32{min.X, min.Y, min.Z}
	hi := [3]float32{max.X, max.Y, max.Z}

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectSphere reports whether the ray passes within the sphere.
func (r Ray) IntersectSphere(s *Sphere) bool {
	toCenter := s.CenterWorld.Sub(r.Origin)
	along := toCenter.Dot(r.Direction)
	if along < 0 && toCenter.Length() > s.RadiusWorld {
		return false
	}
	distSq := toCenter.LengthSquared() - along*along
	return distSq <= s.RadiusWorld*s.RadiusWorld
}
