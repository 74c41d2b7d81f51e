// Package boolean classifies pairs of geometry. Intersects is the
// per-pair predicate and Combine applies it as presence/absence
// classification: no new vertices are synthesized where shapes cross.
// Region and Contains give closed shapes a signed-distance interior.
package boolean

import (
	"math"

	"github.com/chazu/zcad/pkg/geom"
)

// Options tunes Intersects. The zero value is the endpoint-proximity test.
type Options struct {
	// Crossings also counts two segments whose interiors cross with
	// neither endpoint near the other segment.
	Crossings bool
}

// Intersects reports whether a and b touch or cross within tol.
//
// Two segments intersect when an endpoint of one lies within tol of the
// other; segments crossing away from their endpoints are only detected with
// Options.Crossings. Circles compare as curves: a circle lying wholly inside
// another does not intersect it. A line against a circle compares with the
// disc, so a segment inside the circle intersects. Polylines are tested
// segment by segment.
func Intersects(a, b geom.Geometry, tol float64) bool {
	return IntersectsWith(a, b, tol, Options{})
}

// IntersectsWith is Intersects with explicit options.
func IntersectsWith(a, b geom.Geometry, tol float64, opts Options) bool {
	if a == nil || b == nil {
		return false
	}
	tol = math.Max(tol, 0)
	if !geom.Overlaps(geom.Expand(a.Bounds(), tol), b.Bounds()) {
		return false
	}

	if pl, ok := a.(geom.Polyline); ok {
		return anySegment(pl, b, tol, opts)
	}
	if pl, ok := b.(geom.Polyline); ok {
		return anySegment(pl, a, tol, opts)
	}
	if p, ok := a.(geom.Point); ok {
		return b.DistanceTo(p.P) <= tol
	}
	if p, ok := b.(geom.Point); ok {
		return a.DistanceTo(p.P) <= tol
	}

	switch x := a.(type) {
	case geom.Line:
		switch y := b.(type) {
		case geom.Line:
			return lineLine(x, y, tol, opts.Crossings)
		case geom.Circle:
			return lineCircle(x, y, tol)
		case geom.Arc:
			return lineArc(x, y, tol)
		}
	case geom.Circle:
		switch y := b.(type) {
		case geom.Line:
			return lineCircle(y, x, tol)
		case geom.Circle:
			return circleCircle(x, y, tol)
		case geom.Arc:
			return arcCurve(y, x, tol)
		}
	case geom.Arc:
		switch y := b.(type) {
		case geom.Line:
			return lineArc(y, x, tol)
		case geom.Circle:
			return arcCurve(x, y, tol)
		case geom.Arc:
			return arcCurve(x, y, tol)
		}
	}
	return false
}

func anySegment(pl geom.Polyline, other geom.Geometry, tol float64, opts Options) bool {
	if len(pl.Vertices) == 1 {
		return IntersectsWith(geom.Point{P: pl.Vertices[0].P}, other, tol, opts)
	}
	for _, seg := range pl.Explode() {
		if IntersectsWith(seg, other, tol, opts) {
			return true
		}
	}
	return false
}

// lineLine accepts an endpoint within tol of the other segment and, when
// crossings is set, a proper crossing of the two segments' interiors.
func lineLine(a, b geom.Line, tol float64, crossings bool) bool {
	if a.DistanceTo(b.Start) <= tol || a.DistanceTo(b.End) <= tol ||
		b.DistanceTo(a.Start) <= tol || b.DistanceTo(a.End) <= tol {
		return true
	}
	if !crossings {
		return false
	}
	da := a.End.Sub(a.Start)
	db := b.End.Sub(b.Start)
	s1 := geom.Cross(da, b.Start.Sub(a.Start))
	s2 := geom.Cross(da, b.End.Sub(a.Start))
	s3 := geom.Cross(db, a.Start.Sub(b.Start))
	s4 := geom.Cross(db, a.End.Sub(b.Start))
	return s1*s2 < 0 && s3*s4 < 0
}

func lineCircle(l geom.Line, c geom.Circle, tol float64) bool {
	return l.DistanceTo(c.Center) <= c.Radius+tol
}

func circleCircle(a, b geom.Circle, tol float64) bool {
	d := geom.Dist(a.Center, b.Center)
	return math.Abs(d-a.Radius) <= b.Radius+tol && d >= math.Abs(a.Radius-b.Radius)-tol
}

// arcCurve tests an arc against a circle or another arc: an endpoint of
// either within tol of the other, or a crossing of the supporting circles
// that lies on both sweeps.
func arcCurve(a geom.Arc, other geom.Geometry, tol float64) bool {
	if other.DistanceTo(a.StartPoint()) <= tol || other.DistanceTo(a.EndPoint()) <= tol {
		return true
	}
	var oc geom.Circle
	inSweep := func(geom.Vec2) bool { return true }
	switch o := other.(type) {
	case geom.Circle:
		oc = o
	case geom.Arc:
		if a.DistanceTo(o.StartPoint()) <= tol || a.DistanceTo(o.EndPoint()) <= tol {
			return true
		}
		oc = o.Circle()
		inSweep = func(p geom.Vec2) bool { return o.ContainsAngle(geom.Angle(p.Sub(o.Center))) }
	default:
		return false
	}
	for _, p := range circlePoints(a.Circle(), oc, tol) {
		if a.ContainsAngle(geom.Angle(p.Sub(a.Center))) && inSweep(p) {
			return true
		}
	}
	return false
}

func lineArc(l geom.Line, a geom.Arc, tol float64) bool {
	if l.DistanceTo(a.StartPoint()) <= tol || l.DistanceTo(a.EndPoint()) <= tol ||
		a.DistanceTo(l.Start) <= tol || a.DistanceTo(l.End) <= tol {
		return true
	}
	for _, p := range linePoints(l, a.Circle(), tol) {
		if a.ContainsAngle(geom.Angle(p.Sub(a.Center))) {
			return true
		}
	}
	return false
}

// circlePoints returns where two circles cross. Near-tangent circles
// within tol report their single touching point.
func circlePoints(a, b geom.Circle, tol float64) []geom.Vec2 {
	d := geom.Dist(a.Center, b.Center)
	if d < geom.Epsilon {
		return nil
	}
	if d > a.Radius+b.Radius+tol || d < math.Abs(a.Radius-b.Radius)-tol {
		return nil
	}
	x := (d*d + a.Radius*a.Radius - b.Radius*b.Radius) / (2 * d)
	h2 := a.Radius*a.Radius - x*x
	dir := b.Center.Sub(a.Center).MulScalar(1 / d)
	base := a.Center.Add(dir.MulScalar(x))
	if h2 <= 0 {
		return []geom.Vec2{base}
	}
	off := geom.Perp(dir).MulScalar(math.Sqrt(h2))
	return []geom.Vec2{base.Add(off), base.Sub(off)}
}

// linePoints returns where segment l meets circle c. A segment passing
// within tol of tangency reports its closest point.
func linePoints(l geom.Line, c geom.Circle, tol float64) []geom.Vec2 {
	d := l.End.Sub(l.Start)
	dd := d.Dot(d)
	if dd < geom.Epsilon*geom.Epsilon {
		return nil
	}
	f := l.Start.Sub(c.Center)
	// |f + t·d|² = r²
	b := 2 * f.Dot(d)
	cc := f.Dot(f) - c.Radius*c.Radius
	disc := b*b - 4*dd*cc
	if disc < 0 {
		cp := l.ClosestPoint(c.Center)
		if math.Abs(geom.Dist(cp, c.Center)-c.Radius) <= tol {
			return []geom.Vec2{cp}
		}
		return nil
	}
	sq := math.Sqrt(disc)
	var out []geom.Vec2
	for _, t := range []float64{(-b - sq) / (2 * dd), (-b + sq) / (2 * dd)} {
		if t >= 0 && t <= 1 {
			out = append(out, l.Start.Add(d.MulScalar(t)))
		}
	}
	return out
}
