package bounds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/scenegraph/pkg/math"
)

func cameraPlanes() [6]math.Plane {
	view := math.LookAt(math.Vec3{Z: 10}, math.Vec3{}, math.AxisY)
	proj := math.Perspective(0.8, 1, 0.1, 100)
	return FrustumPlanes(proj.Mul(view))
}

func TestFrustumCulling(t *testing.T) {
	planes := cameraPlanes()

	tests := []struct {
		name   string
		world  math.Mat4
		inside bool
	}{
		{"at origin", math.Identity(), true},
		{"behind camera", math.Translate(0, 0, 50), false},
		{"far left", math.Translate(-200, 0, 0), false},
		{"beyond far plane", math.Translate(0, 0, -500), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewInfo(math.Vec3{X: -1, Y: -1, Z: -1}, math.One())
			info.Update(tt.world)
			assert.Equal(t, tt.inside, info.IsInFrustum(planes))
		})
	}
}

func TestSphereWorldRadius(t *testing.T) {
	s := NewSphere(math.Vec3{X: -1, Y: -1, Z: -1}, math.One())
	s.Update(math.Translate(5, 0, 0).Mul(math.Scale(1, 3, 2)))
	assert.InDelta(t, 3*s.Radius, s.RadiusWorld, 1e-5)
	assert.InDelta(t, 5, s.CenterWorld.X, 1e-5)
}

func TestBoxWorldExtents(t *testing.T) {
	b := NewBox(math.One(), math.Vec3{X: -1, Y: -1, Z: -1})
	assert.Equal(t, math.Vec3{X: -1, Y: -1, Z: -1}, b.Minimum, "axes are ordered")

	b.Update(math.Translate(10, 0, 0).Mul(math.Scale(2, 2, 2)))
	assert.Equal(t, math.Vec3{X: 8, Y: -2, Z: -2}, b.MinimumWorld)
	assert.Equal(t, math.Vec3{X: 12, Y: 2, Z: 2}, b.MaximumWorld)
	assert.Equal(t, math.Vec3{X: 10}, b.CenterWorld)
}

func TestRayIntersections(t *testing.T) {
	r := NewRay(math.Vec3{Z: 10}, math.Vec3{Z: -1}, 100)

	d, hit := r.IntersectBox(math.Vec3{X: -1, Y: -1, Z: -1}, math.One())
	assert.True(t, hit)
	assert.InDelta(t, 9, d, 1e-5)

	_, hit = r.IntersectBox(math.Vec3{X: 5, Y: 5, Z: -1}, math.Vec3{X: 6, Y: 6, Z: 1})
	assert.False(t, hit)

	assert.True(t, r.IntersectSphere(NewSphere(math.Vec3{X: -1, Y: -1, Z: -1}, math.One())))

	x, z, ok := NewRay(math.Vec3{Y: 10}, math.Vec3{X: 1, Y: -1}, 0).IntersectPlaneY(0)
	assert.True(t, ok)
	assert.InDelta(t, 10, x, 1e-4)
	assert.InDelta(t, 0, z, 1e-4)
}

func TestScreenToRay(t *testing.T) {
	view := math.LookAt(math.Vec3{Z: 10}, math.Vec3{}, math.AxisY)
	proj := math.Perspective(0.8, 1, 0.1, 100)
	r := ScreenToRay(400, 400, 800, 800, proj.Mul(view).Inverse())

	assert.InDelta(t, 0, r.Direction.X, 1e-3)
	assert.InDelta(t, -1, r.Direction.Z, 1e-3)
}

func TestExtents(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 2, 3, -1, 5, 0}
	min, max := Extents(positions, 0, 3)
	assert.Equal(t, math.Vec3{X: -1}, min)
	assert.Equal(t, math.Vec3{X: 1, Y: 5, Z: 3}, max)

	min, max = Extents(positions, 1, 1)
	assert.Equal(t, min, max)

	min, _ = Extents(nil, 0, 4)
	assert.Equal(t, math.Vec3{}, min)
}
