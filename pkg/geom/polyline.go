package geom

import "math"

// Vertex is a polyline corner. Bulge describes the segment that starts
// at this vertex: 0 is straight, otherwise tan(θ/4) of the included angle
// θ, positive for a counter-clockwise arc.
type Vertex struct {
	P     Vec2
	Bulge float64
}

// Polyline is an ordered chain of vertices. When Closed, an implicit
// segment joins the last vertex back to the first using the last
// vertex's bulge.
type Polyline struct {
	Vertices []Vertex
	Closed   bool
}

func (Polyline) Kind() Kind { return KindPolyline }
func (Polyline) sealed()    {}

func (pl Polyline) Clone() Geometry {
	return Polyline{Vertices: append([]Vertex(nil), pl.Vertices...), Closed: pl.Closed}
}

// NewPolyline builds a straight-segment polyline from points.
func NewPolyline(closed bool, pts ...Vec2) Polyline {
	vs := make([]Vertex, len(pts))
	for i, p := range pts {
		vs[i] = Vertex{P: p}
	}
	return Polyline{Vertices: vs, Closed: closed}
}

// Points returns the vertex positions.
func (pl Polyline) Points() []Vec2 {
	pts := make([]Vec2, len(pl.Vertices))
	for i, v := range pl.Vertices {
		pts[i] = v.P
	}
	return pts
}

// SegmentCount returns the number of segments, including the closing
// segment of a closed polyline.
func (pl Polyline) SegmentCount() int {
	n := len(pl.Vertices)
	if n < 2 {
		return 0
	}
	if pl.Closed {
		return n
	}
	return n - 1
}

// Segment returns segment i as a Line or an Arc.
func (pl Polyline) Segment(i int) Geometry {
	n := len(pl.Vertices)
	v1 := pl.Vertices[i]
	v2 := pl.Vertices[(i+1)%n]
	if math.Abs(v1.Bulge) < Epsilon {
		return Line{Start: v1.P, End: v2.P}
	}
	arc, ok := BulgeArc(v1.P, v2.P, v1.Bulge)
	if !ok {
		return Line{Start: v1.P, End: v2.P}
	}
	return arc
}

// BulgeArc converts the bulge segment p1→p2 into a CCW arc. A negative
// bulge runs clockwise from p1 to p2, so the returned arc starts at p2.
// It reports false when the chord has zero length.
func BulgeArc(p1, p2 Vec2, bulge float64) (Arc, bool) {
	chord := p2.Sub(p1)
	dir, ok := Unit(chord)
	if !ok {
		return Arc{}, false
	}
	s := chord.Length() / 2
	h := s * math.Abs(bulge)
	r := (s*s + h*h) / (2 * h)
	mid := Vec2{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}

	side := 1.0
	if bulge < 0 {
		side = -1
	}
	c := mid.Add(Perp(dir).MulScalar(side * (r - h)))

	a1 := Angle(p1.Sub(c))
	a2 := Angle(p2.Sub(c))
	if bulge > 0 {
		return Arc{Center: c, Radius: r, Start: a1, End: a2}, true
	}
	return Arc{Center: c, Radius: r, Start: a2, End: a1}, true
}

// Explode returns every segment as an independent Line or Arc.
func (pl Polyline) Explode() []Geometry {
	n := pl.SegmentCount()
	out := make([]Geometry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pl.Segment(i))
	}
	return out
}

// Length returns the total length along all segments.
func (pl Polyline) Length() float64 {
	var total float64
	for _, s := range pl.Explode() {
		switch seg := s.(type) {
		case Line:
			total += seg.Length()
		case Arc:
			total += seg.Length()
		}
	}
	return total
}

// SignedArea returns the shoelace area of the vertex polygon. Positive
// means counter-clockwise. Bulges are ignored; only the sign is relied on.
func (pl Polyline) SignedArea() float64 {
	n := len(pl.Vertices)
	var a float64
	for i := 0; i < n; i++ {
		p := pl.Vertices[i].P
		q := pl.Vertices[(i+1)%n].P
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// IsCCW reports whether the vertex polygon winds counter-clockwise.
func (pl Polyline) IsCCW() bool {
	return pl.SignedArea() > 0
}

func (pl Polyline) Bounds() Box {
	switch len(pl.Vertices) {
	case 0:
		return Box{}
	case 1:
		return BoxOf(pl.Vertices[0].P)
	}
	segs := pl.Explode()
	b := segs[0].Bounds()
	for _, s := range segs[1:] {
		b = Union(b, s.Bounds())
	}
	return b
}

func (pl Polyline) DistanceTo(p Vec2) float64 {
	switch len(pl.Vertices) {
	case 0:
		return math.Inf(1)
	case 1:
		return Dist(pl.Vertices[0].P, p)
	}
	best := math.Inf(1)
	for _, s := range pl.Explode() {
		best = math.Min(best, s.DistanceTo(p))
	}
	return best
}
