// Package retarget derives per-joint BVH channel values from landmark
// positions.
//
// Each joint's bone axis is the direction between its two source landmarks.
// The joint rotation is the shortest-arc rotation taking the skeleton rest
// axis onto that direction, decomposed into Euler angles for the configured
// rotation order. Undetected or coincident landmarks yield the identity
// rotation, so the derivation is total and never produces NaN.
package retarget

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/skeleton"
)

const (
	// minBoneLength is the shortest landmark separation treated as a bone
	// direction. Shorter vectors use the fallback.
	minBoneLength = 1e-9

	// gimbalThreshold bounds |sin(middle angle)| below which the outer
	// angles are recovered independently.
	gimbalThreshold = 0.9999999
)

// FallbackRotation is emitted for joints whose direction cannot be
// measured. It is the identity rotation.
var FallbackRotation = [3]float64{0, 0, 0}

// Matrix is a row-major 3x3 rotation matrix; m[r][c].
type Matrix [3][3]float64

// DeriveRotation returns the channel values, in degrees and in the order's
// channel sequence, of the rotation that maps restAxis onto to-from.
func DeriveRotation(from, to *landmark.Point3, order skeleton.RotationOrder, restAxis landmark.Point3) [3]float64 {
	if from == nil || to == nil {
		return FallbackRotation
	}
	dir := r3.Sub(to.Vec(), from.Vec())
	length := r3.Norm(dir)
	if math.IsInf(length, 0) || !(length >= minBoneLength) {
		return FallbackRotation
	}

	rest := restAxis.Vec()
	if n := r3.Norm(rest); n < minBoneLength || math.IsNaN(n) {
		rest = r3.Vec{Y: 1}
	} else {
		rest = r3.Scale(1/n, rest)
	}

	q := ShortestArc(rest, r3.Scale(1/length, dir))
	angles := EulerAngles(RotationMatrix(q), order)
	return ChannelValues(angles, order)
}

// ShortestArc returns the unit quaternion rotating unit vector from onto
// unit vector to about the axis perpendicular to both. Opposite vectors are
// rotated by 180 degrees about an axis orthogonal to from: (-y, x, 0) when
// |from.X| > |from.Z|, otherwise (0, -z, y).
func ShortestArc(from, to r3.Vec) quat.Number {
	w := r3.Dot(from, to) + 1

	var q quat.Number
	if w < 1e-12 {
		if math.Abs(from.X) > math.Abs(from.Z) {
			q = quat.Number{Real: 0, Imag: -from.Y, Jmag: from.X, Kmag: 0}
		} else {
			q = quat.Number{Real: 0, Imag: 0, Jmag: -from.Z, Kmag: from.Y}
		}
	} else {
		c := r3.Cross(from, to)
		q = quat.Number{Real: w, Imag: c.X, Jmag: c.Y, Kmag: c.Z}
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// RotationMatrix converts a unit quaternion to a rotation matrix.
func RotationMatrix(q quat.Number) Matrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Matrix{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// EulerAngles decomposes m into per-axis angles in radians such that
// composing the axis rotations in order (R = R1 * R2 * R3) reproduces m.
//
// The middle angle lies in [-pi/2, pi/2]; it is asin of its sine term,
// evaluated as atan2 against the cosine recovered from the same row or
// column so it stays accurate near +-90 degrees. Near gimbal lock the last
// angle is pinned to zero and the first absorbs the remaining rotation.
func EulerAngles(m Matrix, order skeleton.RotationOrder) r3.Vec {
	m11, m12, m13 := m[0][0], m[0][1], m[0][2]
	m21, m22, m23 := m[1][0], m[1][1], m[1][2]
	m31, m32, m33 := m[2][0], m[2][1], m[2][2]

	var a r3.Vec
	switch order {
	case skeleton.OrderXYZ:
		a.Y = math.Atan2(m13, math.Hypot(m23, m33))
		if math.Abs(m13) < gimbalThreshold {
			a.X = math.Atan2(-m23, m33)
			a.Z = math.Atan2(-m12, m11)
		} else {
			a.X = math.Atan2(m32, m22)
		}
	case skeleton.OrderYXZ:
		a.X = math.Atan2(-m23, math.Hypot(m13, m33))
		if math.Abs(m23) < gimbalThreshold {
			a.Y = math.Atan2(m13, m33)
			a.Z = math.Atan2(m21, m22)
		} else {
			a.Y = math.Atan2(-m31, m11)
		}
	case skeleton.OrderZXY:
		a.X = math.Atan2(m32, math.Hypot(m31, m33))
		if math.Abs(m32) < gimbalThreshold {
			a.Y = math.Atan2(-m31, m33)
			a.Z = math.Atan2(-m12, m22)
		} else {
			a.Z = math.Atan2(m21, m11)
		}
	case skeleton.OrderZYX:
		a.Y = math.Atan2(-m31, math.Hypot(m32, m33))
		if math.Abs(m31) < gimbalThreshold {
			a.X = math.Atan2(m32, m33)
			a.Z = math.Atan2(m21, m11)
		} else {
			a.Z = math.Atan2(-m12, m22)
		}
	case skeleton.OrderYZX:
		a.Z = math.Atan2(m21, math.Hypot(m23, m22))
		if math.Abs(m21) < gimbalThreshold {
			a.X = math.Atan2(-m23, m22)
			a.Y = math.Atan2(-m31, m11)
		} else {
			a.Y = math.Atan2(m13, m33)
		}
	case skeleton.OrderXZY:
		a.Z = math.Atan2(-m12, math.Hypot(m32, m22))
		if math.Abs(m12) < gimbalThreshold {
			a.X = math.Atan2(m32, m22)
			a.Y = math.Atan2(m13, m11)
		} else {
			a.X = math.Atan2(-m23, m33)
		}
	}
	return a
}

// ChannelValues converts per-axis radians to degrees in the order's channel
// sequence, each normalized to (-180, 180].
func ChannelValues(a r3.Vec, order skeleton.RotationOrder) [3]float64 {
	var out [3]float64
	for i, axis := range string(order) {
		var rad float64
		switch axis {
		case 'X':
			rad = a.X
		case 'Y':
			rad = a.Y
		case 'Z':
			rad = a.Z
		}
		out[i] = NormalizeDegrees(rad * 180 / math.Pi)
	}
	return out
}

// NormalizeDegrees wraps an angle into (-180, 180]. An exact -180 becomes
// +180 and negative zero becomes zero.
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	if deg == 0 {
		return 0
	}
	return deg
}
