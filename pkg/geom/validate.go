package geom

import (
	"math"

	"github.com/chazu/zcad/pkg/kerr"
	"gonum.org/v1/gonum/floats/scalar"
)

// Validate reports a Degenerate error for geometry that no engine can
// operate on: non-finite coordinates, non-positive radii, zero-length
// lines and polylines with fewer than two vertices.
func Validate(g Geometry) error {
	const op = "geom.Validate"
	switch v := g.(type) {
	case Point:
		if !finite(v.P.X, v.P.Y) {
			return kerr.New(kerr.Degenerate, op, "point has non-finite coordinates")
		}
	case Line:
		if !finite(v.Start.X, v.Start.Y, v.End.X, v.End.Y) {
			return kerr.New(kerr.Degenerate, op, "line has non-finite coordinates")
		}
		if v.Length() < Epsilon {
			return kerr.New(kerr.Degenerate, op, "line has zero length")
		}
	case Circle:
		if !finite(v.Center.X, v.Center.Y, v.Radius) {
			return kerr.New(kerr.Degenerate, op, "circle has non-finite values")
		}
		if v.Radius <= 0 {
			return kerr.New(kerr.Degenerate, op, "circle radius %g must be positive", v.Radius)
		}
	case Arc:
		if !finite(v.Center.X, v.Center.Y, v.Radius, v.Start, v.End) {
			return kerr.New(kerr.Degenerate, op, "arc has non-finite values")
		}
		if v.Radius <= 0 {
			return kerr.New(kerr.Degenerate, op, "arc radius %g must be positive", v.Radius)
		}
	case Polyline:
		if len(v.Vertices) < 2 {
			return kerr.New(kerr.Degenerate, op, "polyline has %d vertices, need at least 2", len(v.Vertices))
		}
		for i, vx := range v.Vertices {
			if !finite(vx.P.X, vx.P.Y, vx.Bulge) {
				return kerr.New(kerr.Degenerate, op, "polyline vertex %d has non-finite values", i)
			}
		}
	case nil:
		return kerr.New(kerr.Degenerate, op, "nil geometry")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tolerance comparison
// ---------------------------------------------------------------------------

// NearlyEqual reports whether |a-b| <= tol.
func NearlyEqual(a, b, tol float64) bool {
	return scalar.EqualWithinAbs(a, b, tol)
}

// VecEqual compares two vectors component-wise within tol.
func VecEqual(a, b Vec2, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) && scalar.EqualWithinAbs(a.Y, b.Y, tol)
}

// AngleEqual compares two angles modulo 2π within tol.
func AngleEqual(a, b, tol float64) bool {
	d := NormalizeAngle(a - b)
	return d <= tol || 2*math.Pi-d <= tol
}

// Equal reports whether a and b are the same kind of geometry with every
// coordinate within tol. Arc angles compare modulo 2π.
func Equal(a, b Geometry, tol float64) bool {
	switch x := a.(type) {
	case Point:
		y, ok := b.(Point)
		return ok && VecEqual(x.P, y.P, tol)
	case Line:
		y, ok := b.(Line)
		return ok && VecEqual(x.Start, y.Start, tol) && VecEqual(x.End, y.End, tol)
	case Circle:
		y, ok := b.(Circle)
		return ok && VecEqual(x.Center, y.Center, tol) && NearlyEqual(x.Radius, y.Radius, tol)
	case Arc:
		y, ok := b.(Arc)
		return ok && VecEqual(x.Center, y.Center, tol) && NearlyEqual(x.Radius, y.Radius, tol) &&
			AngleEqual(x.Start, y.Start, tol) && AngleEqual(x.End, y.End, tol)
	case Polyline:
		y, ok := b.(Polyline)
		if !ok || x.Closed != y.Closed || len(x.Vertices) != len(y.Vertices) {
			return false
		}
		for i := range x.Vertices {
			if !VecEqual(x.Vertices[i].P, y.Vertices[i].P, tol) ||
				!NearlyEqual(x.Vertices[i].Bulge, y.Vertices[i].Bulge, tol) {
				return false
			}
		}
		return true
	}
	return false
}
