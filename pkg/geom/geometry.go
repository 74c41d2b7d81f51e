package geom

import (
	"fmt"
	"math"
)

// Kind identifies a geometry variant.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindCircle
	KindArc
	KindPolyline
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindCircle:
		return "circle"
	case KindArc:
		return "arc"
	case KindPolyline:
		return "polyline"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindPoint; k <= KindPolyline; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("geom: unknown geometry kind %q", s)
}

// Geometry is the closed set of primitive shapes: Point, Line, Circle,
// Arc and Polyline.
type Geometry interface {
	Kind() Kind
	// Bounds returns the tight axis-aligned bounding box.
	Bounds() Box
	// DistanceTo returns the shortest distance from p to the curve.
	// Closed shapes measure to the boundary, not the interior.
	DistanceTo(p Vec2) float64
	// Clone returns a deep copy.
	Clone() Geometry

	sealed()
}

// Compile-time interface checks.
var (
	_ Geometry = Point{}
	_ Geometry = Line{}
	_ Geometry = Circle{}
	_ Geometry = Arc{}
	_ Geometry = Polyline{}
)

// ---------------------------------------------------------------------------
// Point
// ---------------------------------------------------------------------------

// Point is a single position.
type Point struct {
	P Vec2
}

func (Point) Kind() Kind                  { return KindPoint }
func (p Point) Bounds() Box               { return BoxOf(p.P) }
func (p Point) DistanceTo(q Vec2) float64 { return Dist(p.P, q) }
func (p Point) Clone() Geometry           { return p }
func (Point) sealed()                     {}

// ---------------------------------------------------------------------------
// Line
// ---------------------------------------------------------------------------

// Line is a finite segment from Start to End.
type Line struct {
	Start, End Vec2
}

func (Line) Kind() Kind        { return KindLine }
func (l Line) Bounds() Box     { return BoxOf(l.Start, l.End) }
func (l Line) Clone() Geometry { return l }
func (Line) sealed()           {}

// Length returns |End - Start|.
func (l Line) Length() float64 {
	return Dist(l.Start, l.End)
}

// Midpoint returns the point halfway along the segment.
func (l Line) Midpoint() Vec2 {
	return Vec2{X: (l.Start.X + l.End.X) / 2, Y: (l.Start.Y + l.End.Y) / 2}
}

// ClosestPoint returns the point of the segment nearest to p.
// A zero-length segment returns Start.
func (l Line) ClosestPoint(p Vec2) Vec2 {
	d := l.End.Sub(l.Start)
	len2 := d.Dot(d)
	if len2 < Epsilon*Epsilon {
		return l.Start
	}
	t := p.Sub(l.Start).Dot(d) / len2
	t = math.Max(0, math.Min(1, t))
	return l.Start.Add(d.MulScalar(t))
}

func (l Line) DistanceTo(p Vec2) float64 {
	return Dist(l.ClosestPoint(p), p)
}

// ---------------------------------------------------------------------------
// Circle
// ---------------------------------------------------------------------------

// Circle is a full circle.
type Circle struct {
	Center Vec2
	Radius float64
}

func (Circle) Kind() Kind        { return KindCircle }
func (c Circle) Clone() Geometry { return c }
func (Circle) sealed()           {}

func (c Circle) Bounds() Box {
	r := math.Abs(c.Radius)
	return Box{
		Min: Vec2{X: c.Center.X - r, Y: c.Center.Y - r},
		Max: Vec2{X: c.Center.X + r, Y: c.Center.Y + r},
	}
}

func (c Circle) DistanceTo(p Vec2) float64 {
	return math.Abs(Dist(c.Center, p) - c.Radius)
}

// Circumference returns 2πr.
func (c Circle) Circumference() float64 {
	return 2 * math.Pi * c.Radius
}

// PointAt returns the point at angle a (radians).
func (c Circle) PointAt(a float64) Vec2 {
	return Polar(c.Center, c.Radius, a)
}

// Area returns πr².
func (c Circle) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}
