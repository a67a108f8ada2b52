package geometry

import "math"

// Matrix is a 2D affine transform [a b c d e f] mapping (x, y) to
// (a*x + c*y + e, b*x + d*y + f), the layout PDF content streams use.
type Matrix [6]float64

// Identity is the neutral transform
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Multiply returns m × n: n is applied first, then m
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

// Apply maps a point through m
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// IsZero reports an unset matrix
func (m Matrix) IsZero() bool { return m == Matrix{} }

// ColumnHeight is the length of the y basis vector, i.e. the rendered font height
func (m Matrix) ColumnHeight() float64 { return math.Hypot(m[2], m[3]) }

// Angle is the rotation of the x basis vector in radians
func (m Matrix) Angle() float64 { return math.Atan2(m[1], m[0]) }

// safeScale returns s, or 1 when s is zero, negative, NaN or infinite
func safeScale(s float64) float64 {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}
