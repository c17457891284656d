package math

// Plane is the set of points p with Normal.Dot(p) + D == 0.
type Plane struct {
	Normal Vec3
	D      float32
}

// NewPlane builds a plane from its four coefficients.
func NewPlane(a, b, c, d float32) Plane {
	return Plane{Normal: Vec3{a, b, c}, D: d}
}

// Normalize scales the plane so its normal has unit length.
func (p Plane) Normalize() Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	inv := 1 / l
	return Plane{Normal: p.Normal.Scale(inv), D: p.D * inv}
}

// DotCoordinate returns the signed distance of point to the plane.
func (p Plane) DotCoordinate(point Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}
