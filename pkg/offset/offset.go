// Package offset computes parallel copies of geometry at a signed
// distance. Positive distances move to the left of the direction of
// travel for open curves and outward for closed ones.
package offset

import (
	"math"

	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kerr"
)

// Join selects how interior polyline vertices are displaced.
type Join int

const (
	// JoinBisector moves the vertex by exactly |distance| along the
	// normalized sum of the adjacent segment normals.
	JoinBisector Join = iota
	// JoinMiter moves the vertex to the intersection of the two offset
	// segments, keeping every segment at exactly |distance|.
	JoinMiter
)

// Options tunes Offset. The zero value uses bisector joins.
type Options struct {
	Join Join
}

// Offset returns g moved by distance. Circle and arc radii that fall to or
// below max(tolerance, 0), zero-length segments, opposed polyline segments
// and points are Degenerate errors.
func Offset(g geom.Geometry, distance, tolerance float64) (geom.Geometry, error) {
	return WithOptions(g, distance, tolerance, Options{})
}

// WithOptions is Offset with explicit options.
func WithOptions(g geom.Geometry, distance, tolerance float64, opts Options) (geom.Geometry, error) {
	const op = "offset.Offset"
	minRadius := math.Max(tolerance, 0)

	switch v := g.(type) {
	case geom.Line:
		n, ok := leftNormal(v.Start, v.End)
		if !ok {
			return nil, kerr.New(kerr.Degenerate, op, "line has zero length")
		}
		d := n.MulScalar(distance)
		return geom.Line{Start: v.Start.Add(d), End: v.End.Add(d)}, nil

	case geom.Circle:
		r := v.Radius + distance
		if r <= minRadius {
			return nil, kerr.New(kerr.Degenerate, op, "circle radius %g would become %g", v.Radius, r)
		}
		return geom.Circle{Center: v.Center, Radius: r}, nil

	case geom.Arc:
		r := v.Radius + distance
		if r <= minRadius {
			return nil, kerr.New(kerr.Degenerate, op, "arc radius %g would become %g", v.Radius, r)
		}
		return geom.Arc{Center: v.Center, Radius: r, Start: v.Start, End: v.End}, nil

	case geom.Polyline:
		return polyline(v, distance, opts)

	case geom.Point:
		return nil, kerr.New(kerr.Degenerate, op, "a point has no offset")
	}
	return nil, kerr.New(kerr.Degenerate, op, "unsupported geometry %T", g)
}

func leftNormal(a, b geom.Vec2) (geom.Vec2, bool) {
	d, ok := geom.Unit(b.Sub(a))
	if !ok {
		return geom.Vec2{}, false
	}
	return geom.Perp(d), true
}

// polyline offsets vertex positions from chord normals; bulges are kept.
func polyline(pl geom.Polyline, distance float64, opts Options) (geom.Geometry, error) {
	const op = "offset.Offset"
	n := len(pl.Vertices)
	if n < 2 {
		return nil, kerr.New(kerr.Degenerate, op, "polyline has %d vertices", n)
	}

	// Left of travel is inside for a counter-clockwise loop.
	if pl.Closed && pl.IsCCW() {
		distance = -distance
	}

	segs := pl.SegmentCount()
	normals := make([]geom.Vec2, segs)
	for i := 0; i < segs; i++ {
		nv, ok := leftNormal(pl.Vertices[i].P, pl.Vertices[(i+1)%n].P)
		if !ok {
			return nil, kerr.New(kerr.Degenerate, op, "segment %d has zero length", i)
		}
		normals[i] = nv
	}

	out := geom.Polyline{Vertices: make([]geom.Vertex, n), Closed: pl.Closed}
	for i, v := range pl.Vertices {
		var shift geom.Vec2
		switch {
		case !pl.Closed && i == 0:
			shift = normals[0].MulScalar(distance)
		case !pl.Closed && i == n-1:
			shift = normals[n-2].MulScalar(distance)
		default:
			in := normals[(i-1+segs)%segs]
			outN := normals[i%segs]
			s, err := joinShift(in, outN, distance, opts.Join)
			if err != nil {
				return nil, kerr.New(kerr.Degenerate, op, "vertex %d: %v", i, err)
			}
			shift = s
		}
		out.Vertices[i] = geom.Vertex{P: v.P.Add(shift), Bulge: v.Bulge}
	}
	return out, nil
}

func joinShift(n1, n2 geom.Vec2, distance float64, join Join) (geom.Vec2, error) {
	sum := n1.Add(n2)
	bis, ok := geom.Unit(sum)
	if !ok {
		return geom.Vec2{}, kerr.New(kerr.Degenerate, "offset.join", "adjacent segments are opposed")
	}
	if join == JoinMiter {
		// (n1+n2)·k projects to distance on both normals when
		// k = distance / (1 + n1·n2).
		return sum.MulScalar(distance / (1 + n1.Dot(n2))), nil
	}
	return bis.MulScalar(distance), nil
}

// Toward offsets g by |distance| on the side of pick point p: the side of
// the first segment for open curves, inside or outside for circles, arcs
// and closed polylines.
func Toward(g geom.Geometry, p geom.Vec2, distance, tolerance float64) (geom.Geometry, error) {
	return Offset(g, Side(g, p)*math.Abs(distance), tolerance)
}

// Side returns +1 when p lies on the positive offset side of g, else -1.
func Side(g geom.Geometry, p geom.Vec2) float64 {
	sign := func(b bool) float64 {
		if b {
			return 1
		}
		return -1
	}
	switch v := g.(type) {
	case geom.Line:
		return sign(geom.Cross(v.End.Sub(v.Start), p.Sub(v.Start)) > 0)
	case geom.Circle:
		return sign(geom.Dist(v.Center, p) > v.Radius)
	case geom.Arc:
		return sign(geom.Dist(v.Center, p) > v.Radius)
	case geom.Polyline:
		if len(v.Vertices) < 2 {
			return 1
		}
		a, b := v.Vertices[0].P, v.Vertices[1].P
		left := geom.Cross(b.Sub(a), p.Sub(a)) > 0
		if v.Closed && v.IsCCW() {
			left = !left
		}
		return sign(left)
	}
	return 1
}
