package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	if abs(n.Length()-1) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", n.Length())
	}
}

func TestQuatSlerp(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	if r := q1.Slerp(q2, 0); abs(r.W-q1.W) > 0.001 {
		t.Errorf("Slerp at t=0 should equal q1")
	}
	if r := q1.Slerp(q2, 1); abs(r.W-q2.W) > 0.001 {
		t.Errorf("Slerp at t=1 should equal q2")
	}
	expectedW := float32(math.Cos(math.Pi / 8))
	if r := q1.Slerp(q2, 0.5); abs(r.W-expectedW) > 0.01 {
		t.Errorf("Slerp at t=0.5: expected W ~%v, got %v", expectedW, r.W)
	}
}

func TestQuatToMat4MatchesMathgl(t *testing.T) {
	axis := Vec3{1, 2, 3}.Normalize()
	q := QuatFromAxisAngle(axis, 1.1)
	want := mgl32.QuatRotate(1.1, mgl32.Vec3{axis.X, axis.Y, axis.Z}).Mat4()
	if !q.ToMat4().ApproxEqual(Mat4(want), 1e-4) {
		t.Errorf("ToMat4 = %v, want %v", q.ToMat4(), want)
	}
	if !RotateAxis(axis, 1.1).ApproxEqual(Mat4(want), 1e-4) {
		t.Errorf("RotateAxis disagrees with quaternion rotation")
	}
}

func TestQuatFromRotationMatrix(t *testing.T) {
	tests := []struct {
		name string
		q    Quat
	}{
		{"identity", QuatIdentity()},
		{"x", QuatFromAxisAngle(AxisX, 2.5)},
		{"y", QuatFromAxisAngle(AxisY, -2.9)},
		{"z", QuatFromAxisAngle(AxisZ, 3.0)},
		{"oblique", QuatFromAxisAngle(Vec3{1, -1, 2}.Normalize(), 0.4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuatFromRotationMatrix(tt.q.ToMat4())
			if abs(abs(got.Dot(tt.q))-1) > Epsilon {
				t.Errorf("QuatFromRotationMatrix = %v, want +-%v", got, tt.q)
			}
		})
	}
}

func TestQuatFromYawPitchRoll(t *testing.T) {
	yaw, pitch, roll := float32(0.3), float32(-0.6), float32(1.2)
	got := QuatFromYawPitchRoll(yaw, pitch, roll)
	want := QuatFromAxisAngle(AxisY, yaw).
		Mul(QuatFromAxisAngle(AxisX, pitch)).
		Mul(QuatFromAxisAngle(AxisZ, roll))
	if abs(got.Dot(want)-1) > Epsilon {
		t.Errorf("QuatFromYawPitchRoll = %v, want %v", got, want)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	expected := float32(math.Cos(math.Pi / 4))
	if abs(q.W-expected) > 0.001 || abs(q.Y-expected) > 0.001 {
		t.Errorf("QuatFromAxisAngle: got %v", q)
	}
}

func TestQuatHermiteEndpoints(t *testing.T) {
	a := QuatFromAxisAngle(AxisY, 0.2)
	b := QuatFromAxisAngle(AxisY, 0.9)
	tan := Quat{0.1, 0.2, 0.3, 0.4}

	if got := a.Hermite(tan, b, tan, 0); got != a {
		t.Errorf("Hermite(0) = %v, want %v", got, a)
	}
	if got := a.Hermite(tan, b, tan, 1); abs(got.Sub(b).Length()) > Epsilon {
		t.Errorf("Hermite(1) = %v, want %v", got, b)
	}
}

func TestQuatToEulerAngles(t *testing.T) {
	q := QuatFromYawPitchRoll(0.3, -0.2, 0.1)
	e := q.ToEulerAngles()
	if abs(e.Y-0.3) > 1e-5 || abs(e.X+0.2) > 1e-5 || abs(e.Z-0.1) > 1e-5 {
		t.Errorf("ToEulerAngles = %+v, want pitch -0.2 yaw 0.3 roll 0.1", e)
	}
}
