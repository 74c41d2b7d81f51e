package geom

import "math"

// Arc is a circular arc running counter-clockwise from Start to End
// (radians), wrapping modulo 2π. An arc whose angles differ by a whole
// turn is a full circle.
type Arc struct {
	Center     Vec2
	Radius     float64
	Start, End float64
}

func (Arc) Kind() Kind        { return KindArc }
func (a Arc) Clone() Geometry { return a }
func (Arc) sealed()           {}

// Sweep returns the CCW angular extent in [0, 2π].
func (a Arc) Sweep() float64 {
	s := NormalizeAngle(a.End - a.Start)
	if s < Epsilon && math.Abs(a.End-a.Start) > Epsilon {
		return 2 * math.Pi
	}
	return s
}

// ContainsAngle reports whether the direction t (radians) falls within
// the sweep, endpoints included.
func (a Arc) ContainsAngle(t float64) bool {
	sweep := a.Sweep()
	if sweep >= 2*math.Pi-Epsilon {
		return true
	}
	d := NormalizeAngle(t - a.Start)
	return d <= sweep+1e-12 || d >= 2*math.Pi-1e-12
}

// StartPoint returns the point at Start.
func (a Arc) StartPoint() Vec2 { return Polar(a.Center, a.Radius, a.Start) }

// EndPoint returns the point at End.
func (a Arc) EndPoint() Vec2 { return Polar(a.Center, a.Radius, a.End) }

// MidPoint returns the point halfway along the sweep.
func (a Arc) MidPoint() Vec2 { return Polar(a.Center, a.Radius, a.Start+a.Sweep()/2) }

// Length returns the arc length r·sweep.
func (a Arc) Length() float64 { return math.Abs(a.Radius) * a.Sweep() }

// Circle returns the supporting circle.
func (a Arc) Circle() Circle { return Circle{Center: a.Center, Radius: a.Radius} }

// Bounds includes both endpoints plus every axis extreme (0, π/2, π, 3π/2)
// the sweep passes through.
func (a Arc) Bounds() Box {
	pts := []Vec2{a.StartPoint(), a.EndPoint()}
	for q := 0; q < 4; q++ {
		t := float64(q) * math.Pi / 2
		if a.ContainsAngle(t) {
			pts = append(pts, Polar(a.Center, a.Radius, t))
		}
	}
	return BoxOf(pts...)
}

func (a Arc) DistanceTo(p Vec2) float64 {
	d := Dist(a.Center, p)
	if d < Epsilon {
		return math.Abs(a.Radius)
	}
	if a.ContainsAngle(Angle(p.Sub(a.Center))) {
		return math.Abs(d - a.Radius)
	}
	return math.Min(Dist(a.StartPoint(), p), Dist(a.EndPoint(), p))
}

// ArcThrough returns the arc that starts at p1, passes through p2 and ends
// at p3. Collinear or coincident points have no circumcircle and report
// false.
func ArcThrough(p1, p2, p3 Vec2) (Arc, bool) {
	d := 2 * (p1.X*(p2.Y-p3.Y) + p2.X*(p3.Y-p1.Y) + p3.X*(p1.Y-p2.Y))
	if math.Abs(d) < Epsilon {
		return Arc{}, false
	}
	s1 := p1.X*p1.X + p1.Y*p1.Y
	s2 := p2.X*p2.X + p2.Y*p2.Y
	s3 := p3.X*p3.X + p3.Y*p3.Y
	c := Vec2{
		X: (s1*(p2.Y-p3.Y) + s2*(p3.Y-p1.Y) + s3*(p1.Y-p2.Y)) / d,
		Y: (s1*(p3.X-p2.X) + s2*(p1.X-p3.X) + s3*(p2.X-p1.X)) / d,
	}
	a := Arc{
		Center: c,
		Radius: Dist(c, p1),
		Start:  NormalizeAngle(Angle(p1.Sub(c))),
		End:    NormalizeAngle(Angle(p3.Sub(c))),
	}
	// Clockwise input: the CCW arc from p1 to p3 misses p2, so run it
	// from p3 to p1 instead.
	if Cross(p2.Sub(p1), p3.Sub(p2)) < 0 {
		a.Start, a.End = a.End, a.Start
	}
	return a, true
}
