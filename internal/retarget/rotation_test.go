package retarget

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/skeleton"
)

var (
	origin = landmark.Pt(0, 0, 0)
	yUp    = landmark.Point3{Y: 1}
)

const tol = 1e-9

func assertAngles(t *testing.T, want, got [3]float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "channel %d: want %v got %v", i, want, got)
	}
}

// Golden values pinned for the shortest-arc + Euler decomposition branch.
func TestDeriveRotationGolden(t *testing.T) {
	tests := []struct {
		name  string
		to    *landmark.Point3
		order skeleton.RotationOrder
		want  [3]float64
	}{
		{"rest direction", landmark.Pt(0, 1, 0), skeleton.OrderXYZ, [3]float64{0, 0, 0}},
		{"plus x", landmark.Pt(1, 0, 0), skeleton.OrderXYZ, [3]float64{0, 0, -90}},
		{"minus x", landmark.Pt(-1, 0, 0), skeleton.OrderXYZ, [3]float64{0, 0, 90}},
		{"plus z", landmark.Pt(0, 0, 1), skeleton.OrderXYZ, [3]float64{90, 0, 0}},
		{"minus z", landmark.Pt(0, 0, -1), skeleton.OrderXYZ, [3]float64{-90, 0, 0}},
		{"diagonal", landmark.Pt(1, 1, 0), skeleton.OrderXYZ, [3]float64{0, 0, -45}},
		{"opposite resolves to +180", landmark.Pt(0, -1, 0), skeleton.OrderXYZ, [3]float64{0, 0, 180}},
		{"scaled direction", landmark.Pt(0, 0, 7.5), skeleton.OrderXYZ, [3]float64{90, 0, 0}},
		{
			"general XYZ", landmark.Pt(0.3, 0.8, -0.5), skeleton.OrderXYZ,
			[3]float64{-30.457276668743802, 4.856016292284199, -17.706277901433122},
		},
		{"zxy plus x", landmark.Pt(1, 0, 0), skeleton.OrderZXY, [3]float64{-90, 0, 0}},
		{"zxy plus z at gimbal lock", landmark.Pt(0, 0, 1), skeleton.OrderZXY, [3]float64{0, 90, 0}},
		{"zxy opposite", landmark.Pt(0, -1, 0), skeleton.OrderZXY, [3]float64{180, 0, 0}},
		{
			"general ZXY", landmark.Pt(0.3, 0.8, -0.5), skeleton.OrderZXY,
			[3]float64{-20.556045219583456, -30.336415617311168, -5.628730786840071},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRotation(origin, tt.to, tt.order, yUp)
			assertAngles(t, tt.want, got)
		})
	}
}

func TestDeriveRotationFallback(t *testing.T) {
	p := landmark.Pt(0.25, 1.5, -0.75)
	nan := landmark.Pt(math.NaN(), 0, 0)
	inf := landmark.Pt(math.Inf(1), 0, 0)

	tests := []struct {
		name     string
		from, to *landmark.Point3
	}{
		{"coincident", p, landmark.Pt(0.25, 1.5, -0.75)},
		{"same pointer", p, p},
		{"from absent", nil, p},
		{"to absent", p, nil},
		{"both absent", nil, nil},
		{"nan coordinate", origin, nan},
		{"infinite coordinate", origin, inf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range []skeleton.RotationOrder{skeleton.OrderXYZ, skeleton.OrderZXY, skeleton.OrderZYX} {
				got := DeriveRotation(tt.from, tt.to, order, yUp)
				assert.Equal(t, FallbackRotation, got)
				for _, v := range got {
					assert.False(t, math.IsNaN(v))
					assert.False(t, math.Signbit(v), "fallback must not carry negative zero")
				}
			}
		})
	}
}

func TestDeriveRotationDegenerateRestAxisUsesYUp(t *testing.T) {
	got := DeriveRotation(origin, landmark.Pt(1, 0, 0), skeleton.OrderXYZ, landmark.Point3{})
	assertAngles(t, [3]float64{0, 0, -90}, got)
}

func axisRotation(axis rune, deg float64) Matrix {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	switch axis {
	case 'X':
		return Matrix{{1, 0, 0}, {0, c, -s}, {0, s, c}}
	case 'Y':
		return Matrix{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
	default:
		return Matrix{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
	}
}

func mul(a, b Matrix) Matrix {
	var out Matrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			for k := 0; k < 3; k++ {
				out[r][c] += a[r][k] * b[k][c]
			}
		}
	}
	return out
}

// compose rebuilds the rotation from channel values in channel order.
func compose(values [3]float64, order skeleton.RotationOrder) Matrix {
	m := Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, axis := range string(order) {
		m = mul(m, axisRotation(axis, values[i]))
	}
	return m
}

func apply(m Matrix, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func TestDeriveRotationRecomposesToDirection(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	orders := []skeleton.RotationOrder{
		skeleton.OrderXYZ, skeleton.OrderXZY, skeleton.OrderYXZ,
		skeleton.OrderYZX, skeleton.OrderZXY, skeleton.OrderZYX,
	}

	for i := 0; i < 200; i++ {
		from := landmark.Pt(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		to := landmark.Pt(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		want := r3.Unit(r3.Sub(to.Vec(), from.Vec()))

		for _, order := range orders {
			values := DeriveRotation(from, to, order, yUp)
			for _, v := range values {
				require.False(t, math.IsNaN(v))
				require.Greater(t, v, -180.0)
				require.LessOrEqual(t, v, 180.0)
			}
			got := apply(compose(values, order), yUp.Vec())
			assert.InDelta(t, want.X, got.X, 1e-9, "order %s sample %d", order, i)
			assert.InDelta(t, want.Y, got.Y, 1e-9, "order %s sample %d", order, i)
			assert.InDelta(t, want.Z, got.Z, 1e-9, "order %s sample %d", order, i)
		}
	}
}

func TestEulerAnglesGimbalLockPinsLastAngle(t *testing.T) {
	// Ry(90) puts XYZ exactly at gimbal lock.
	m := axisRotation('Y', 90)
	a := EulerAngles(m, skeleton.OrderXYZ)
	assert.InDelta(t, 0, a.X, tol)
	assert.InDelta(t, math.Pi/2, a.Y, tol)
	assert.Equal(t, 0.0, a.Z)

	// Rx(30) * Ry(90): the X rotation survives in the first angle.
	m = mul(axisRotation('X', 30), axisRotation('Y', 90))
	a = EulerAngles(m, skeleton.OrderXYZ)
	assert.InDelta(t, 30*math.Pi/180, a.X, 1e-7)
	assert.Equal(t, 0.0, a.Z)
}

func TestShortestArcIsUnit(t *testing.T) {
	for _, to := range []r3.Vec{{X: 1}, {Y: -1}, {Z: 1}, r3.Unit(r3.Vec{X: 1, Y: 2, Z: 3})} {
		q := ShortestArc(r3.Vec{Y: 1}, to)
		n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
		assert.InDelta(t, 1, n, 1e-12)
	}
}

func TestShortestArcOppositeAxisChoice(t *testing.T) {
	// |from.X| > |from.Z| rotates about (-y, x, 0).
	q := ShortestArc(r3.Vec{X: 1}, r3.Vec{X: -1})
	assert.InDelta(t, 0, q.Real, tol)
	assert.InDelta(t, 0, q.Imag, tol)
	assert.InDelta(t, 1, q.Jmag, tol)
	assert.InDelta(t, 0, q.Kmag, tol)

	// Otherwise about (0, -z, y).
	q = ShortestArc(r3.Vec{Y: 1}, r3.Vec{Y: -1})
	assert.InDelta(t, 0, q.Jmag, tol)
	assert.InDelta(t, 1, q.Kmag, tol)
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Copysign(0, -1), 0},
		{180, 180},
		{-180, 180},
		{-179.5, -179.5},
		{190, -170},
		{540, 180},
		{-540, 180},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		got := NormalizeDegrees(tt.in)
		assert.Equal(t, tt.want, got, "NormalizeDegrees(%v)", tt.in)
		assert.False(t, math.Signbit(got) && got == 0)
	}
}
