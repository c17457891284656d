package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
	if !m.IsIdentity() {
		t.Error("IsIdentity should report true")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())
	if result != m {
		t.Errorf("M * I should equal M, got %v", result)
	}
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    Vec3
		want Vec3
	}{
		{"translate", Translate(10, 20, 30), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale(2, 2, 2), Vec3{1, 2, 3}, Vec3{2, 4, 6}},
		{"rotate y 90", RotateY(math.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformPoint(tt.p)
			if !got.ApproxEqual(tt.want, Epsilon) {
				t.Errorf("TransformPoint = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInverseMatchesMathgl(t *testing.T) {
	m := Translate(3, -2, 7).Mul(RotateAxis(Vec3{1, 1, 0}, 0.7)).Mul(Scale(2, 3, 0.5))

	got, ok := m.Invert()
	if !ok {
		t.Fatal("Invert reported singular matrix")
	}
	want := mgl32.Mat4(m).Inv()
	if !got.ApproxEqual(Mat4(want), 1e-4) {
		t.Errorf("Invert = %v, want %v", got, want)
	}
	if !m.Mul(got).ApproxEqual(Identity(), 1e-4) {
		t.Error("M * M^-1 should be identity")
	}
}

func TestInvertSingular(t *testing.T) {
	if _, ok := Scale(0, 1, 1).Invert(); ok {
		t.Error("Invert should report a singular matrix")
	}
	if Scale(0, 1, 1).Inverse() != Identity() {
		t.Error("Inverse of a singular matrix should be identity")
	}
}

func TestDeterminant(t *testing.T) {
	m := RotateX(0.3).Mul(Scale(2, 3, 4))
	want := mgl32.Mat4(m).Det()
	if abs(m.Determinant()-want) > 1e-3 {
		t.Errorf("Determinant = %v, want %v", m.Determinant(), want)
	}
	if Scale(-1, 1, 1).Determinant() >= 0 {
		t.Error("mirror matrix should have a negative determinant")
	}
}

func TestComposeDecompose(t *testing.T) {
	scale := Vec3{2, 3, 4}
	rot := QuatFromAxisAngle(Vec3{0, 1, 0}, 0.8)
	trans := Vec3{5, -6, 7}

	m := Compose(scale, rot, trans)
	s, r, tr, ok := m.Decompose()
	if !ok {
		t.Fatal("Decompose failed")
	}
	if !s.ApproxEqual(scale, Epsilon) {
		t.Errorf("scale = %v, want %v", s, scale)
	}
	if !tr.ApproxEqual(trans, Epsilon) {
		t.Errorf("translation = %v, want %v", tr, trans)
	}
	if abs(abs(r.Dot(rot))-1) > Epsilon {
		t.Errorf("rotation = %v, want %v", r, rot)
	}

	want := mgl32.Translate3D(5, -6, 7).
		Mul4(mgl32.QuatRotate(0.8, mgl32.Vec3{0, 1, 0}).Mat4()).
		Mul4(mgl32.Scale3D(2, 3, 4))
	if !m.ApproxEqual(Mat4(want), 1e-4) {
		t.Errorf("Compose = %v, want %v", m, want)
	}
}

func TestDecomposeZeroScale(t *testing.T) {
	_, r, _, ok := Scale(0, 1, 1).Decompose()
	if ok {
		t.Error("Decompose should fail on zero scale")
	}
	if r != QuatIdentity() {
		t.Errorf("rotation should be identity, got %v", r)
	}
}

func TestMatrixLerp(t *testing.T) {
	a := Translate(0, 0, 0)
	b := Translate(10, 20, 30)
	got := a.Lerp(b, 0.5).Translation()
	if !got.ApproxEqual(Vec3{5, 10, 15}, Epsilon) {
		t.Errorf("Lerp translation = %v", got)
	}

	c := Compose(One(), QuatIdentity(), Vec3{})
	d := Compose(One(), QuatFromAxisAngle(AxisY, math.Pi/2), Vec3{})
	mid := c.DecomposeLerp(d, 0.5)
	want := RotateY(math.Pi / 4)
	if !mid.ApproxEqual(want, Epsilon) {
		t.Errorf("DecomposeLerp = %v, want %v", mid, want)
	}
}

func TestTranspose(t *testing.T) {
	m := Translate(1, 2, 3)
	tr := m.Transpose()
	if tr[3] != 1 || tr[7] != 2 || tr[11] != 3 {
		t.Errorf("Transpose = %v", tr)
	}
	if tr.Transpose() != m {
		t.Error("double transpose should be the original")
	}
}

func TestFromMat3x3(t *testing.T) {
	m3 := [9]float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	m4 := FromMat3x3(m3)

	if m4[0] != 1 || m4[1] != 2 || m4[2] != 3 {
		t.Error("FromMat3x3 column 0 incorrect")
	}
	if m4[4] != 4 || m4[5] != 5 || m4[6] != 6 {
		t.Error("FromMat3x3 column 1 incorrect")
	}
	if m4[15] != 1 {
		t.Errorf("FromMat3x3 [15] should be 1, got %f", m4[15])
	}
	if m4.Mat3x3() != m3 {
		t.Error("Mat3x3 should round trip")
	}
}

func TestSliceHelpers(t *testing.T) {
	buf := make([]float32, 32)
	m := Translate(1, 2, 3)
	m.PutSlice(buf, 16)
	if Mat4FromSlice(buf, 16) != m {
		t.Error("PutSlice/Mat4FromSlice mismatch")
	}
	if buf[0] != 0 {
		t.Error("PutSlice wrote outside its window")
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
