// Package geom provides the 2D geometry primitives of the kernel: points,
// lines, circles, arcs and bulge polylines, with bounding boxes and
// point-distance queries. Values are immutable by convention; every
// operation that changes geometry returns a new value.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Epsilon is the absolute tolerance used for degeneracy checks.
const Epsilon = 1e-10

// Vec2 is a 2D vector or position.
type Vec2 = v2.Vec

// Box is an axis-aligned bounding box with closed intervals.
type Box = sdf.Box2

// V is shorthand for a Vec2 literal.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Cross returns the z component of a × b.
func Cross(a, b Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}

// Perp returns v rotated 90° counter-clockwise, i.e. its left normal.
func Perp(v Vec2) Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Unit returns v scaled to length 1 and false when v has no direction.
func Unit(v Vec2) (Vec2, bool) {
	l := v.Length()
	if l < Epsilon {
		return Vec2{}, false
	}
	return v.MulScalar(1 / l), true
}

// Angle returns the direction of v in radians, in (-π, π].
func Angle(v Vec2) float64 {
	return math.Atan2(v.Y, v.X)
}

// Polar returns the point at radius r and angle a around c.
func Polar(c Vec2, r, a float64) Vec2 {
	return Vec2{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
}

// NormalizeAngle maps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

func finite(v ...float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Boxes
// ---------------------------------------------------------------------------

// BoxOf returns the smallest box containing every point. A single point
// gives a zero-extent box.
func BoxOf(pts ...Vec2) Box {
	if len(pts) == 0 {
		return Box{}
	}
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Union returns the smallest box containing a and b.
func Union(a, b Box) Box {
	return BoxOf(a.Min, a.Max, b.Min, b.Max)
}

// Center returns the midpoint of b.
func Center(b Box) Vec2 {
	return Vec2{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Overlaps reports whether a and b intersect, touching edges included.
func Overlaps(a, b Box) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}

// InBox reports whether p lies in b, boundary included.
func InBox(b Box, p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Expand grows b by d on every side.
func Expand(b Box, d float64) Box {
	return Box{
		Min: Vec2{X: b.Min.X - d, Y: b.Min.Y - d},
		Max: Vec2{X: b.Max.X + d, Y: b.Max.Y + d},
	}
}

// BoxDist returns the distance from p to the nearest point of b,
// zero when p is inside.
func BoxDist(b Box, p Vec2) float64 {
	dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
	dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
	return math.Hypot(dx, dy)
}
