// Package math provides the vector, quaternion and matrix types used by the
// scene graph. Matrices are column-major (OpenGL compatible).
package math

import "github.com/chewxy/math32"

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Mul returns the component-wise product.
func (v Vec2) Mul(other Vec2) Vec2 {
	return Vec2{v.X * other.X, v.Y * other.Y}
}

// Dot returns the dot product.
func (v Vec2) Dot(other Vec2) float32 {
	return v.X*other.X + v.Y*other.Y
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Normalize returns a unit vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Distance returns the distance to another point.
func (v Vec2) Distance(other Vec2) float32 {
	return v.Sub(other).Length()
}

// Lerp interpolates linearly towards other.
func (v Vec2) Lerp(other Vec2, t float32) Vec2 {
	return Vec2{v.X + (other.X-v.X)*t, v.Y + (other.Y-v.Y)*t}
}

// Hermite evaluates a cubic Hermite spline between v and other.
func (v Vec2) Hermite(tangent1, other, tangent2 Vec2, t float32) Vec2 {
	h1, h2, h3, h4 := hermiteBasis(t)
	return Vec2{
		v.X*h1 + other.X*h2 + tangent1.X*h3 + tangent2.X*h4,
		v.Y*h1 + other.Y*h2 + tangent1.Y*h3 + tangent2.Y*h4,
	}
}

// Array returns the components as a slice.
func (v Vec2) Array() []float32 {
	return []float32{v.X, v.Y}
}

// Vec2FromSlice reads two components starting at offset.
func Vec2FromSlice(s []float32, offset int) Vec2 {
	return Vec2{s[offset], s[offset+1]}
}
