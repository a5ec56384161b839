// Package spatial has the 4x4 transforms and quaternions poses are expressed in.
package spatial

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Vec3 is a position or direction in metres.
type Vec3 struct {
	X, Y, Z float32
}

// Quat is a unit rotation quaternion.
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat is the "no rotation" quaternion.
var IdentityQuat = Quat{W: 1}

// Matrix is a 4x4 transform stored column-major, the layout hit-test poses
// arrive in (element 12..14 is the translation).
type Matrix [16]float32

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromArray copies a 16-element column-major array into a Matrix.
func FromArray(a []float32) (Matrix, error) {
	var m Matrix
	if len(a) != len(m) {
		return m, fmt.Errorf("spatial: matrix needs 16 elements, got %d", len(a))
	}
	copy(m[:], a)
	return m, nil
}

// Translate returns a pure translation transform.
func Translate(x, y, z float32) Matrix {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// RotationX returns a rotation of angle radians around the X axis.
func RotationX(angle float32) Matrix {
	s, c := math32.Sincos(angle)
	m := Identity()
	m[5], m[6] = c, s
	m[9], m[10] = -s, c
	return m
}

// RotationY returns a rotation of angle radians around the Y axis.
func RotationY(angle float32) Matrix {
	s, c := math32.Sincos(angle)
	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// Scale returns a non-uniform scale transform.
func Scale(x, y, z float32) Matrix {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// Mul returns m * n (n is applied first).
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Position returns the translation part of m.
func (m Matrix) Position() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// ScaleOf returns the length of each basis column.
func (m Matrix) ScaleOf() Vec3 {
	return Vec3{
		X: math32.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2]),
		Y: math32.Sqrt(m[4]*m[4] + m[5]*m[5] + m[6]*m[6]),
		Z: math32.Sqrt(m[8]*m[8] + m[9]*m[9] + m[10]*m[10]),
	}
}

// Rotation extracts the rotation of m as a quaternion. Scale is divided out
// first; a degenerate basis yields the identity rotation.
func (m Matrix) Rotation() Quat {
	s := m.ScaleOf()
	if s.X == 0 || s.Y == 0 || s.Z == 0 {
		return IdentityQuat
	}
	m00, m10, m20 := m[0]/s.X, m[1]/s.X, m[2]/s.X
	m01, m11, m21 := m[4]/s.Y, m[5]/s.Y, m[6]/s.Y
	m02, m12, m22 := m[8]/s.Z, m[9]/s.Z, m[10]/s.Z

	var q Quat
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		k := 0.5 / math32.Sqrt(trace+1)
		q = Quat{W: 0.25 / k, X: (m21 - m12) * k, Y: (m02 - m20) * k, Z: (m10 - m01) * k}
	case m00 > m11 && m00 > m22:
		k := 2 * math32.Sqrt(1+m00-m11-m22)
		q = Quat{W: (m21 - m12) / k, X: 0.25 * k, Y: (m01 + m10) / k, Z: (m02 + m20) / k}
	case m11 > m22:
		k := 2 * math32.Sqrt(1+m11-m00-m22)
		q = Quat{W: (m02 - m20) / k, X: (m01 + m10) / k, Y: 0.25 * k, Z: (m12 + m21) / k}
	default:
		k := 2 * math32.Sqrt(1+m22-m00-m11)
		q = Quat{W: (m10 - m01) / k, X: (m02 + m20) / k, Y: (m12 + m21) / k, Z: 0.25 * k}
	}
	return q.Normalize()
}

// Compose builds a transform from translation, rotation and scale.
func Compose(p Vec3, q Quat, s Vec3) Matrix {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	return Matrix{
		(1 - (yy + zz)) * s.X, (xy + wz) * s.X, (xz - wy) * s.X, 0,
		(xy - wz) * s.Y, (1 - (xx + zz)) * s.Y, (yz + wx) * s.Y, 0,
		(xz + wy) * s.Z, (yz - wx) * s.Z, (1 - (xx + yy)) * s.Z, 0,
		p.X, p.Y, p.Z, 1,
	}
}

// Float64s widens m for encoders that work in float64.
func (m Matrix) Float64s() [16]float64 {
	var out [16]float64
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// Normalize returns q scaled to unit length.
func (q Quat) Normalize() Quat {
	n := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityQuat
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Yaw returns the rotation of q around the Y axis in radians.
func (q Quat) Yaw() float32 {
	return math32.Atan2(2*(q.W*q.Y+q.X*q.Z), 1-2*(q.Y*q.Y+q.X*q.X))
}
