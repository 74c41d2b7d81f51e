// Package transform implements 2D affine transforms and their application
// to geometry. A Matrix is the homogeneous 3×3 matrix
//
//	[A  B  TX]
//	[C  D  TY]
//	[0  0  1 ]
//
// stored as its top two rows.
package transform

import (
	"fmt"
	"math"

	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kerr"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a 2D affine transform.
type Matrix struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the transform that changes nothing.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Translate moves by (dx, dy).
func Translate(dx, dy float64) Matrix {
	return Matrix{A: 1, D: 1, TX: dx, TY: dy}
}

// Rotate turns counter-clockwise by angle radians about the origin.
func Rotate(angle float64) Matrix {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return Matrix{A: cos, B: -sin, C: sin, D: cos}
}

// Scale scales by (sx, sy) about the origin.
func Scale(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// RotateAbout turns by angle radians about c.
func RotateAbout(c geom.Vec2, angle float64) Matrix {
	return Compose(Compose(Translate(-c.X, -c.Y), Rotate(angle)), Translate(c.X, c.Y))
}

// ScaleAbout scales by (sx, sy) about c.
func ScaleAbout(c geom.Vec2, sx, sy float64) Matrix {
	return Compose(Compose(Translate(-c.X, -c.Y), Scale(sx, sy)), Translate(c.X, c.Y))
}

// MirrorX reflects across the x axis.
func MirrorX() Matrix { return Scale(1, -1) }

// MirrorY reflects across the y axis.
func MirrorY() Matrix { return Scale(-1, 1) }

// MirrorLine reflects across the infinite line through p1 and p2. A
// zero-length line yields Degenerate.
func MirrorLine(p1, p2 geom.Vec2) (Matrix, error) {
	d, ok := geom.Unit(p2.Sub(p1))
	if !ok {
		return Matrix{}, kerr.New(kerr.Degenerate, "transform.MirrorLine", "mirror line has zero length")
	}
	angle := geom.Angle(d)
	m := Translate(-p1.X, -p1.Y)
	m = Compose(m, Rotate(-angle))
	m = Compose(m, MirrorX())
	m = Compose(m, Rotate(angle))
	m = Compose(m, Translate(p1.X, p1.Y))
	return m, nil
}

// Compose returns the single transform equivalent to applying t1 and
// then t2.
func Compose(t1, t2 Matrix) Matrix {
	return Matrix{
		A:  t2.A*t1.A + t2.B*t1.C,
		B:  t2.A*t1.B + t2.B*t1.D,
		TX: t2.A*t1.TX + t2.B*t1.TY + t2.TX,
		C:  t2.C*t1.A + t2.D*t1.C,
		D:  t2.C*t1.B + t2.D*t1.D,
		TY: t2.C*t1.TX + t2.D*t1.TY + t2.TY,
	}
}

// Then is Compose(m, next).
func (m Matrix) Then(next Matrix) Matrix {
	return Compose(m, next)
}

// Point transforms a position.
func (m Matrix) Point(p geom.Vec2) geom.Vec2 {
	return geom.Vec2{
		X: m.A*p.X + m.B*p.Y + m.TX,
		Y: m.C*p.X + m.D*p.Y + m.TY,
	}
}

// Vector transforms a direction, ignoring translation.
func (m Matrix) Vector(v geom.Vec2) geom.Vec2 {
	return geom.Vec2{X: m.A*v.X + m.B*v.Y, Y: m.C*v.X + m.D*v.Y}
}

// Determinant of the linear part. Negative means the transform reverses
// orientation.
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Rotation returns the rotation component, the direction of the
// transformed x basis vector: atan2(C, A).
func (m Matrix) Rotation() float64 {
	return math.Atan2(m.C, m.A)
}

// ScaleEstimate is the mean length of the transformed basis vectors. It
// is exact for similarity transforms.
func (m Matrix) ScaleEstimate() float64 {
	return (math.Hypot(m.A, m.C) + math.Hypot(m.B, m.D)) / 2
}

// IsSimilarity reports whether m preserves shape within tol: orthogonal
// basis vectors of equal length.
func (m Matrix) IsSimilarity(tol float64) bool {
	sx, sy := math.Hypot(m.A, m.C), math.Hypot(m.B, m.D)
	return geom.NearlyEqual(sx, sy, tol) && math.Abs(m.A*m.B+m.C*m.D) <= tol
}

// Inverse returns the inverse transform, or Degenerate when m is singular.
func (m Matrix) Inverse() (Matrix, error) {
	det := m.Determinant()
	if math.Abs(det) < geom.Epsilon {
		return Matrix{}, kerr.New(kerr.Degenerate, "transform.Inverse", "matrix is singular (det %g)", det)
	}
	inv := 1 / det
	return Matrix{
		A:  m.D * inv,
		B:  -m.B * inv,
		TX: (m.B*m.TY - m.D*m.TX) * inv,
		C:  -m.C * inv,
		D:  m.A * inv,
		TY: (m.C*m.TX - m.A*m.TY) * inv,
	}, nil
}

// Equal compares every coefficient within tol.
func (m Matrix) Equal(o Matrix, tol float64) bool {
	return geom.NearlyEqual(m.A, o.A, tol) && geom.NearlyEqual(m.B, o.B, tol) &&
		geom.NearlyEqual(m.C, o.C, tol) && geom.NearlyEqual(m.D, o.D, tol) &&
		geom.NearlyEqual(m.TX, o.TX, tol) && geom.NearlyEqual(m.TY, o.TY, tol)
}

func (m Matrix) String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g]", m.A, m.B, m.TX, m.C, m.D, m.TY)
}

// Fit returns the least-squares affine transform mapping src onto dst.
// At least three non-collinear pairs are required.
func Fit(src, dst []geom.Vec2) (Matrix, error) {
	const op = "transform.Fit"
	if len(src) != len(dst) {
		return Matrix{}, fmt.Errorf("%s: point count mismatch: %d vs %d", op, len(src), len(dst))
	}
	n := len(src)
	if n < 3 {
		return Matrix{}, kerr.New(kerr.Degenerate, op, "need at least 3 point pairs, got %d", n)
	}

	a := mat.NewDense(n*2, 6, nil)
	b := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		a.Set(i*2, 0, x)
		a.Set(i*2, 1, y)
		a.Set(i*2, 2, 1)
		b.SetVec(i*2, dst[i].X)

		a.Set(i*2+1, 3, x)
		a.Set(i*2+1, 4, y)
		a.Set(i*2+1, 5, 1)
		b.SetVec(i*2+1, dst[i].Y)
	}

	var qr mat.QR
	qr.Factorize(a)
	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		return Matrix{}, kerr.New(kerr.Degenerate, op, "points are collinear: %v", err)
	}
	return Matrix{
		A: params.AtVec(0), B: params.AtVec(1), TX: params.AtVec(2),
		C: params.AtVec(3), D: params.AtVec(4), TY: params.AtVec(5),
	}, nil
}
