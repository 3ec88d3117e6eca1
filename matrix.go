package ssaa

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Mat4 is a 4x4 transformation matrix in row-major order:
//
//	| m[0]  m[1]  m[2]  m[3]  |
//	| m[4]  m[5]  m[6]  m[7]  |
//	| m[8]  m[9]  m[10] m[11] |
//	| m[12] m[13] m[14] m[15] |
//
// Vectors are columns and are transformed as v' = M * v, so a chain
// projection * view * model applies model first.
type Mat4 f32.Mat4

// Identity4 returns the identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate4 returns a translation matrix.
func Translate4(t Vec3) Mat4 {
	return Mat4{
		1, 0, 0, t.X,
		0, 1, 0, t.Y,
		0, 0, 1, t.Z,
		0, 0, 0, 1,
	}
}

// Perspective returns a right-handed perspective projection mapping view
// space depth to the [0, 1] clip range used by WebGPU. fovY is in radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	nf := 1 / (near - far)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far * nf, near * far * nf,
		0, 0, -1, 0,
	}
}

// Mul returns the product m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[row*4+k] * n[k*4+col]
			}
			r[row*4+col] = s
		}
	}
	return r
}

// MulVec4 transforms a homogeneous column vector.
func (m Mat4) MulVec4(v f32.Vec4) f32.Vec4 {
	var r f32.Vec4
	for row := 0; row < 4; row++ {
		r[row] = m[row*4]*v[0] + m[row*4+1]*v[1] + m[row*4+2]*v[2] + m[row*4+3]*v[3]
	}
	return r
}

// TransformPoint transforms a point (w = 1) and performs the perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	r := m.MulVec4(f32.Vec4{p.X, p.Y, p.Z, 1})
	if r[3] != 0 && r[3] != 1 {
		return Vec3{X: r[0] / r[3], Y: r[1] / r[3], Z: r[2] / r[3]}
	}
	return Vec3{X: r[0], Y: r[1], Z: r[2]}
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r[col*4+row] = m[row*4+col]
		}
	}
	return r
}

// ColumnMajor returns the matrix elements in column-major order, which is
// the memory layout of mat4x4<f32> in WGSL.
func (m Mat4) ColumnMajor() [16]float32 {
	return [16]float32(m.Transpose())
}
