package math

import "github.com/chewxy/math32"

// Perspective returns a right-handed OpenGL perspective projection.
// fovY is in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	return PerspectiveFovRH(fovY, aspect, near, far, true)
}

// PerspectiveFovLH returns a left-handed perspective projection. When
// verticalFixed is false the fov is applied horizontally.
func PerspectiveFovLH(fov, aspect, near, far float32, verticalFixed bool) Mat4 {
	a, b := fovScale(fov, aspect, verticalFixed)
	return Mat4{
		a, 0, 0, 0,
		0, b, 0, 0,
		0, 0, (far + near) / (far - near), 1,
		0, 0, -2 * far * near / (far - near), 0,
	}
}

// PerspectiveFovRH returns a right-handed perspective projection.
func PerspectiveFovRH(fov, aspect, near, far float32, verticalFixed bool) Mat4 {
	a, b := fovScale(fov, aspect, verticalFixed)
	return Mat4{
		a, 0, 0, 0,
		0, b, 0, 0,
		0, 0, -(far + near) / (far - near), -1,
		0, 0, -2 * far * near / (far - near), 0,
	}
}

func fovScale(fov, aspect float32, verticalFixed bool) (float32, float32) {
	t := 1 / math32.Tan(fov*0.5)
	if verticalFixed {
		return t / aspect, t
	}
	return t, t * aspect
}

// Ortho returns a right-handed OpenGL orthographic projection.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	return OrthoOffCenterRH(left, right, bottom, top, near, far)
}

// OrthoOffCenterLH returns a left-handed off-center orthographic projection.
func OrthoOffCenterLH(left, right, bottom, top, near, far float32) Mat4 {
	a := 2 / (right - left)
	b := 2 / (top - bottom)
	c := 2 / (far - near)
	d := -(far + near) / (far - near)
	i0 := (left + right) / (left - right)
	i1 := (top + bottom) / (bottom - top)

	return Mat4{
		a, 0, 0, 0,
		0, b, 0, 0,
		0, 0, c, 0,
		i0, i1, d, 1,
	}
}

// OrthoOffCenterRH returns a right-handed off-center orthographic projection.
func OrthoOffCenterRH(left, right, bottom, top, near, far float32) Mat4 {
	m := OrthoOffCenterLH(left, right, bottom, top, near, far)
	m[10] = -m[10]
	return m
}

// LookAt returns a right-handed view matrix looking from eye to center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// LookAtLH returns a left-handed view matrix looking from eye to target.
func LookAtLH(eye, target, up Vec3) Mat4 {
	z := target.Sub(eye).Normalize()
	x := up.Cross(z)
	if x.LengthSquared() == 0 {
		x = AxisX
	} else {
		x = x.Normalize()
	}
	y := z.Cross(x).Normalize()

	return Mat4{
		x.X, y.X, z.X, 0,
		x.Y, y.Y, z.Y, 0,
		x.Z, y.Z, z.Z, 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}
