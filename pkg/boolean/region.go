package boolean

import (
	"math"
	"slices"

	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Region returns the signed-distance field of a closed shape: negative
// inside, positive outside. Circles are exact; closed polylines have
// their bulges flattened to chords within chordTol. Open geometry has no
// interior and yields Degenerate.
func Region(g geom.Geometry, chordTol float64) (sdf.SDF2, error) {
	const op = "boolean.Region"
	switch v := g.(type) {
	case geom.Circle:
		if v.Radius <= 0 {
			return nil, kerr.New(kerr.Degenerate, op, "circle radius %g", v.Radius)
		}
		s, err := sdf.Circle2D(v.Radius)
		if err != nil {
			return nil, kerr.New(kerr.Degenerate, op, "%v", err)
		}
		return sdf.Transform2D(s, sdf.Translate2d(v.Center)), nil

	case geom.Polyline:
		if !v.Closed {
			return nil, kerr.New(kerr.Degenerate, op, "open polyline has no interior")
		}
		pts := v.Flatten(chordTol)
		if len(pts) < 3 {
			return nil, kerr.New(kerr.Degenerate, op, "closed polyline has %d points", len(pts))
		}
		if !v.IsCCW() {
			slices.Reverse(pts)
		}
		s, err := sdf.Polygon2D(pts)
		if err != nil {
			return nil, kerr.New(kerr.Degenerate, op, "%v", err)
		}
		return s, nil
	}
	return nil, kerr.New(kerr.Degenerate, op, "%v has no interior", kindOf(g))
}

func kindOf(g geom.Geometry) string {
	if g == nil {
		return "nil geometry"
	}
	return g.Kind().String()
}

// Contains reports whether p lies inside or within tol of the boundary of
// closed shape g.
func Contains(g geom.Geometry, p geom.Vec2, tol float64) (bool, error) {
	r, err := Region(g, math.Max(tol, geom.Epsilon))
	if err != nil {
		return false, err
	}
	return r.Evaluate(p) <= tol, nil
}

// CombineRegion merges the interiors of two closed shapes with op. Unlike
// Combine it operates on areas, so the result is a field to sample rather
// than geometry.
func CombineRegion(a, b geom.Geometry, op Op, chordTol float64) (sdf.SDF2, error) {
	ra, err := Region(a, chordTol)
	if err != nil {
		return nil, err
	}
	rb, err := Region(b, chordTol)
	if err != nil {
		return nil, err
	}
	switch op {
	case Union:
		return sdf.Union2D(ra, rb), nil
	case Intersection:
		return sdf.Intersect2D(ra, rb), nil
	case Difference:
		return sdf.Difference2D(ra, rb), nil
	case Xor:
		return xorSDF{a: ra, b: rb}, nil
	}
	return nil, kerr.New(kerr.ConstraintViolation, "boolean.CombineRegion", "unknown operation %v", op)
}

// xorSDF is the symmetric difference: inside exactly one of a and b.
type xorSDF struct {
	a, b sdf.SDF2
}

func (x xorSDF) Evaluate(p v2.Vec) float64 {
	da, db := x.a.Evaluate(p), x.b.Evaluate(p)
	return math.Max(math.Min(da, db), -math.Max(da, db))
}

func (x xorSDF) BoundingBox() sdf.Box2 {
	return geom.Union(x.a.BoundingBox(), x.b.BoundingBox())
}
