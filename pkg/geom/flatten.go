package geom

import "math"

// MaxFlattenSegments caps the number of chords a single curve becomes.
const MaxFlattenSegments = 4096

// ChordSegments returns how many equal chords approximate a sweep of
// radius r so that no chord strays more than tol from the curve.
func ChordSegments(r, sweep, tol float64) int {
	r = math.Abs(r)
	if sweep <= 0 || r < Epsilon {
		return 1
	}
	if tol <= 0 || tol >= r {
		return int(math.Max(1, math.Ceil(sweep/(math.Pi/2))))
	}
	step := 2 * math.Acos(1-tol/r)
	n := int(math.Ceil(sweep / step))
	return min(max(n, 1), MaxFlattenSegments)
}

// Flatten approximates the arc by a chain of points from StartPoint to
// EndPoint, both included.
func (a Arc) Flatten(tol float64) []Vec2 {
	sweep := a.Sweep()
	n := ChordSegments(a.Radius, sweep, tol)
	pts := make([]Vec2, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = Polar(a.Center, a.Radius, a.Start+sweep*float64(i)/float64(n))
	}
	return pts
}

// Flatten approximates the circle by a closed ring of points. The first
// point is not repeated at the end.
func (c Circle) Flatten(tol float64) []Vec2 {
	n := max(ChordSegments(c.Radius, 2*math.Pi, tol), 3)
	pts := make([]Vec2, n)
	for i := range pts {
		pts[i] = c.PointAt(2 * math.Pi * float64(i) / float64(n))
	}
	return pts
}

// Flatten replaces bulge segments with chords within tol and returns the
// points in vertex order. A closed polyline does not repeat its first
// point.
func (pl Polyline) Flatten(tol float64) []Vec2 {
	n := len(pl.Vertices)
	if n == 0 {
		return nil
	}
	out := make([]Vec2, 0, n)
	for i := 0; i < pl.SegmentCount(); i++ {
		v := pl.Vertices[i]
		next := pl.Vertices[(i+1)%n].P
		out = append(out, v.P)
		if math.Abs(v.Bulge) < Epsilon {
			continue
		}
		arc, ok := BulgeArc(v.P, next, v.Bulge)
		if !ok {
			continue
		}
		pts := arc.Flatten(tol)
		if v.Bulge < 0 {
			for l, r := 0, len(pts)-1; l < r; l, r = l+1, r-1 {
				pts[l], pts[r] = pts[r], pts[l]
			}
		}
		out = append(out, pts[1:len(pts)-1]...)
	}
	if !pl.Closed || n == 1 {
		out = append(out, pl.Vertices[n-1].P)
	}
	return out
}
