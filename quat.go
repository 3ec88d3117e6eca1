package ssaa

import "github.com/chewxy/math32"

// Quat is a rotation quaternion (X, Y, Z vector part, W scalar part).
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat returns the rotation that does nothing.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle returns the rotation of angle radians around axis.
// The axis does not need to be normalized.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	a := axis.Normalize()
	s := math32.Sin(angle / 2)
	return Quat{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math32.Cos(angle / 2)}
}

// Mul returns the Hamilton product q * r (apply r first, then q).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Len returns the quaternion norm.
func (q Quat) Len() float32 {
	return math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize returns the unit quaternion. A zero quaternion normalizes to identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l == 0 {
		return IdentityQuat()
	}
	inv := 1 / l
	return Quat{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quat{X: v.X, Y: v.Y, Z: v.Z}).Mul(q.Conjugate())
	return Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Mat4 returns the rotation matrix of a unit quaternion.
func (q Quat) Mat4() Mat4 {
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z
	return Mat4{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy), 0,
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx), 0,
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
