package ssaa

import "github.com/chewxy/math32"

// Camera is a perspective camera with a fixed projection.
//
// Orientation maps world space into view space. The projection parameters
// (FOV, near, far, aspect) are fixed at construction; only the orientation
// and position change per frame. Orientation is re-normalized after every
// update so interactive rotation does not drift.
type Camera struct {
	orientation Quat
	position    Vec3

	fovY, near, far, aspect float32
	projection              Mat4
}

// NewCamera creates a camera at the origin looking down -Z.
// fovY is in radians; aspect is width / height.
func NewCamera(fovY, aspect, near, far float32) *Camera {
	return &Camera{
		orientation: IdentityQuat(),
		fovY:        fovY,
		near:        near,
		far:         far,
		aspect:      aspect,
		projection:  Perspective(fovY, aspect, near, far),
	}
}

// NewCameraForSize is NewCamera with the aspect computed from a resolution.
func NewCameraForSize(fovY float32, width, height int, near, far float32) *Camera {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return NewCamera(fovY, aspect, near, far)
}

// Position returns the camera position in world space.
func (c *Camera) Position() Vec3 { return c.position }

// Orientation returns the world-to-view rotation.
func (c *Camera) Orientation() Quat { return c.orientation }

// Aspect returns the aspect ratio fixed at construction.
func (c *Camera) Aspect() float32 { return c.aspect }

// SetPosition moves the camera to p.
func (c *Camera) SetPosition(p Vec3) { c.position = p }

// SetOrientation replaces the orientation; q is normalized.
func (c *Camera) SetOrientation(q Quat) { c.orientation = q.Normalize() }

// Move translates the camera by delta expressed in the camera's own frame
// (X right, Y up, -Z forward).
func (c *Camera) Move(delta Vec3) {
	c.position = c.position.Add(c.orientation.Conjugate().Rotate(delta))
}

// Rotate turns the camera by angle radians around a world-space axis.
func (c *Camera) Rotate(axis Vec3, angle float32) {
	c.orientation = c.orientation.Mul(QuatFromAxisAngle(axis, -angle)).Normalize()
}

// Pitch turns the camera around its own X axis.
func (c *Camera) Pitch(angle float32) {
	c.orientation = QuatFromAxisAngle(V3(1, 0, 0), -angle).Mul(c.orientation).Normalize()
}

// Forward returns the world-space viewing direction.
func (c *Camera) Forward() Vec3 {
	return c.orientation.Conjugate().Rotate(V3(0, 0, -1))
}

// LookAt orients the camera toward target with the given up vector.
// It does nothing if target coincides with the camera position.
func (c *Camera) LookAt(target, up Vec3) {
	f := target.Sub(c.position).Normalize()
	if f.IsZero() {
		return
	}
	r := f.Cross(up).Normalize()
	if r.IsZero() {
		r = f.Cross(V3(0, 0, 1)).Normalize()
	}
	u := r.Cross(f)
	c.orientation = quatFromRows(r, u, f.Neg()).Normalize()
}

// View returns rotation(orientation) * translation(-position).
func (c *Camera) View() Mat4 {
	return c.orientation.Mat4().Mul(Translate4(c.position.Neg()))
}

// Projection returns the projection matrix fixed at construction.
func (c *Camera) Projection() Mat4 { return c.projection }

// ViewProjection returns projection * view.
func (c *Camera) ViewProjection() Mat4 {
	return c.projection.Mul(c.View())
}

// quatFromRows converts an orthonormal rotation matrix given by its rows
// into a quaternion (Shepperd's method).
func quatFromRows(r0, r1, r2 Vec3) Quat {
	m00, m01, m02 := r0.X, r0.Y, r0.Z
	m10, m11, m12 := r1.X, r1.Y, r1.Z
	m20, m21, m22 := r2.X, r2.Y, r2.Z
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 0.5 / math32.Sqrt(trace+1)
		return Quat{W: 0.25 / s, X: (m21 - m12) * s, Y: (m02 - m20) * s, Z: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math32.Sqrt(1+m00-m11-m22)
		return Quat{W: (m21 - m12) / s, X: 0.25 * s, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math32.Sqrt(1+m11-m00-m22)
		return Quat{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: 0.25 * s, Z: (m12 + m21) / s}
	default:
		s := 2 * math32.Sqrt(1+m22-m00-m11)
		return Quat{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: 0.25 * s}
	}
}
