package bounds

import "github.com/Faultbox/scenegraph/pkg/math"

// Frustum plane order.
const (
	NearPlane = iota
	FarPlane
	LeftPlane
	RightPlane
	TopPlane
	BottomPlane
)

// FrustumPlanes extracts the six normalized clip planes of a
// projection * view transform.
func FrustumPlanes(m math.Mat4) [6]math.Plane {
	return [6]math.Plane{
		NearPlane:   math.NewPlane(m[3]+m[2], m[7]+m[6], m[11]+m[10], m[15]+m[14]).Normalize(),
		FarPlane:    math.NewPlane(m[3]-m[2], m[7]-m[6], m[11]-m[10], m[15]-m[14]).Normalize(),
		LeftPlane:   math.NewPlane(m[3]+m[0], m[7]+m[4], m[11]+m[8], m[15]+m[12]).Normalize(),
		RightPlane:  math.NewPlane(m[3]-m[0], m[7]-m[4], m[11]-m[8], m[15]-m[12]).Normalize(),
		TopPlane:    math.NewPlane(m[3]-m[1], m[7]-m[5], m[11]-m[9], m[15]-m[13]).Normalize(),
		BottomPlane: math.NewPlane(m[3]+m[1], m[7]+m[5], m[11]+m[9], m[15]+m[13]).Normalize(),
	}
}
