package math

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Epsilon is the tolerance used by approximate comparisons.
const Epsilon = 0.001

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Hermite evaluates a cubic Hermite spline for scalars.
func Hermite(value1, tangent1, value2, tangent2, t float32) float32 {
	h1, h2, h3, h4 := hermiteBasis(t)
	return value1*h1 + value2*h2 + tangent1*h3 + tangent2*h4
}

func hermiteBasis(t float32) (h1, h2, h3, h4 float32) {
	squared := t * t
	cubed := t * squared
	h1 = 2*cubed - 3*squared + 1
	h2 = -2*cubed + 3*squared
	h3 = cubed - 2*squared + t
	h4 = cubed - squared
	return
}

// ToRadians converts degrees to radians.
func ToRadians(degrees float32) float32 {
	return degrees * math32.Pi / 180
}

// WithinEpsilon reports whether a and b differ by at most eps.
func WithinEpsilon(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}
