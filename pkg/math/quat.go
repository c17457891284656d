package math

import "github.com/chewxy/math32"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: c}
}

// QuatFromYawPitchRoll builds a rotation from Euler angles in radians
// (yaw around Y, pitch around X, roll around Z).
func QuatFromYawPitchRoll(yaw, pitch, roll float32) Quat {
	sinRoll, cosRoll := math32.Sincos(roll * 0.5)
	sinPitch, cosPitch := math32.Sincos(pitch * 0.5)
	sinYaw, cosYaw := math32.Sincos(yaw * 0.5)

	return Quat{
		X: cosYaw*sinPitch*cosRoll + sinYaw*cosPitch*sinRoll,
		Y: sinYaw*cosPitch*cosRoll - cosYaw*sinPitch*sinRoll,
		Z: cosYaw*cosPitch*sinRoll - sinYaw*sinPitch*cosRoll,
		W: cosYaw*cosPitch*cosRoll + sinYaw*sinPitch*sinRoll,
	}
}

// QuatFromRotationMatrix extracts the rotation of the upper 3x3 part of m.
// m must be a pure rotation (unit scale).
func QuatFromRotationMatrix(m Mat4) Quat {
	m11, m12, m13 := m[0], m[4], m[8]
	m21, m22, m23 := m[1], m[5], m[9]
	m31, m32, m33 := m[2], m[6], m[10]
	trace := m11 + m22 + m33

	switch {
	case trace > 0:
		s := 0.5 / math32.Sqrt(trace+1)
		return Quat{X: (m32 - m23) * s, Y: (m13 - m31) * s, Z: (m21 - m12) * s, W: 0.25 / s}
	case m11 > m22 && m11 > m33:
		s := 2 * math32.Sqrt(1+m11-m22-m33)
		return Quat{X: 0.25 * s, Y: (m12 + m21) / s, Z: (m13 + m31) / s, W: (m32 - m23) / s}
	case m22 > m33:
		s := 2 * math32.Sqrt(1+m22-m11-m33)
		return Quat{X: (m12 + m21) / s, Y: 0.25 * s, Z: (m23 + m32) / s, W: (m13 - m31) / s}
	default:
		s := 2 * math32.Sqrt(1+m33-m11-m22)
		return Quat{X: (m13 + m31) / s, Y: (m23 + m32) / s, Z: 0.25 * s, W: (m21 - m12) / s}
	}
}

// ToEulerAngles returns the rotation as Vec3{X: pitch, Y: yaw, Z: roll},
// the inverse of QuatFromYawPitchRoll.
func (q Quat) ToEulerAngles() Vec3 {
	sqw, sqx, sqy, sqz := q.W*q.W, q.X*q.X, q.Y*q.Y, q.Z*q.Z
	zAxisY := q.Y*q.Z - q.X*q.W
	const limit = 0.4999999

	switch {
	case zAxisY < -limit:
		return Vec3{X: math32.Pi / 2, Y: 2 * math32.Atan2(q.Y, q.W)}
	case zAxisY > limit:
		return Vec3{X: -math32.Pi / 2, Y: 2 * math32.Atan2(q.Y, q.W)}
	}
	return Vec3{
		X: math32.Asin(-2 * (q.Z*q.Y - q.X*q.W)),
		Y: math32.Atan2(2*(q.Z*q.X+q.Y*q.W), sqz-sqx-sqy+sqw),
		Z: math32.Atan2(2*(q.X*q.Y+q.Z*q.W), -sqz-sqx+sqy+sqw),
	}
}

// Add returns the component-wise sum.
func (q Quat) Add(other Quat) Quat {
	return Quat{q.X + other.X, q.Y + other.Y, q.Z + other.Z, q.W + other.W}
}

// Sub returns the component-wise difference.
func (q Quat) Sub(other Quat) Quat {
	return Quat{q.X - other.X, q.Y - other.Y, q.Z - other.Z, q.W - other.W}
}

// Scale multiplies every component by s.
func (q Quat) Scale(s float32) Quat {
	return Quat{q.X * s, q.Y * s, q.Z * s, q.W * s}
}

// Length returns the quaternion norm.
func (q Quat) Length() float32 {
	return math32.Sqrt(q.Dot(q))
}

// IsZero reports whether all four components are zero.
func (q Quat) IsZero() bool {
	return q.X == 0 && q.Y == 0 && q.Z == 0 && q.W == 0
}

// Conjugate returns the conjugate quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := q.Length()
	if length < 0.0001 {
		return QuatIdentity()
	}
	return q.Scale(1 / length)
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1].
func (q Quat) Slerp(other Quat, t float32) Quat {
	dot := q.Dot(other)

	// shorter path
	if dot < 0 {
		other = other.Scale(-1)
		dot = -dot
	}

	if dot > 0.9995 {
		return q.Add(other.Sub(q).Scale(t)).Normalize()
	}

	theta0 := math32.Acos(dot)
	theta := theta0 * t
	sinTheta := math32.Sin(theta)
	sinTheta0 := math32.Sin(theta0)

	s0 := math32.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return q.Scale(s0).Add(other.Scale(s1))
}

// Hermite evaluates a cubic Hermite spline between q and other.
// The result is not normalized.
func (q Quat) Hermite(tangent1, other, tangent2 Quat, t float32) Quat {
	h1, h2, h3, h4 := hermiteBasis(t)
	return q.Scale(h1).Add(other.Scale(h2)).Add(tangent1.Scale(h3)).Add(tangent2.Scale(h4))
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Lerp performs normalized linear interpolation between two quaternions.
func (q Quat) Lerp(other Quat, t float32) Quat {
	return q.Add(other.Sub(q).Scale(t)).Normalize()
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	return q.ToMat4().TransformDirection(v)
}

// Array returns the components as a slice in X, Y, Z, W order.
func (q Quat) Array() []float32 {
	return []float32{q.X, q.Y, q.Z, q.W}
}

// QuatFromSlice reads four components starting at offset.
func QuatFromSlice(s []float32, offset int) Quat {
	return Quat{s[offset], s[offset+1], s[offset+2], s[offset+3]}
}
