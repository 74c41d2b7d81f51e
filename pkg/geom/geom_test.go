package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/zcad/pkg/kerr"
)

const tol = 1e-9

func boxEqual(a, b Box) bool {
	return VecEqual(a.Min, b.Min, tol) && VecEqual(a.Max, b.Max, tol)
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		want Box
	}{
		{"point", Point{P: V(2, 3)}, Box{Min: V(2, 3), Max: V(2, 3)}},
		{"line reversed", Line{Start: V(5, 1), End: V(-1, 4)}, Box{Min: V(-1, 1), Max: V(5, 4)}},
		{"circle", Circle{Center: V(1, 1), Radius: 2}, Box{Min: V(-1, -1), Max: V(3, 3)}},
		{
			"quarter arc",
			Arc{Center: V(0, 0), Radius: 1, Start: 0, End: math.Pi / 2},
			Box{Min: V(0, 0), Max: V(1, 1)},
		},
		{
			"arc through pi/2",
			Arc{Center: V(0, 0), Radius: 2, Start: math.Pi / 4, End: 3 * math.Pi / 4},
			Box{Min: V(-math.Sqrt2, math.Sqrt2), Max: V(math.Sqrt2, 2)},
		},
		{
			"arc wrapping zero",
			Arc{Center: V(0, 0), Radius: 1, Start: 3 * math.Pi / 2, End: math.Pi / 2},
			Box{Min: V(0, -1), Max: V(1, 1)},
		},
		{
			"closed square",
			NewPolyline(true, V(0, 0), V(4, 0), V(4, 3), V(0, 3)),
			Box{Min: V(0, 0), Max: V(4, 3)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.g.Bounds()
			if !boxEqual(got, tt.want) {
				t.Errorf("Bounds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceTo(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		p    Vec2
		want float64
	}{
		{"line interior", Line{Start: V(0, 0), End: V(10, 0)}, V(5, 3), 3},
		{"line past end", Line{Start: V(0, 0), End: V(10, 0)}, V(13, 4), 5},
		{"degenerate line", Line{Start: V(1, 1), End: V(1, 1)}, V(4, 5), 5},
		{"circle outside", Circle{Center: V(0, 0), Radius: 10}, V(15, 0), 5},
		{"circle inside", Circle{Center: V(0, 0), Radius: 10}, V(2, 0), 8},
		{"arc within sweep", Arc{Center: V(0, 0), Radius: 5, Start: 0, End: math.Pi}, V(0, 7), 2},
		{"arc outside sweep", Arc{Center: V(0, 0), Radius: 5, Start: 0, End: math.Pi / 2}, V(0, -5), math.Sqrt(50)},
		{"arc at center", Arc{Center: V(0, 0), Radius: 5, Start: 0, End: 1}, V(0, 0), 5},
		{"polyline", NewPolyline(false, V(0, 0), V(10, 0), V(10, 10)), V(12, 5), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.g.DistanceTo(tt.p)
			if !NearlyEqual(got, tt.want, 1e-9) {
				t.Errorf("DistanceTo(%v) = %g, want %g", tt.p, got, tt.want)
			}
		})
	}
}

func TestArcSweep(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		want       float64
	}{
		{"quarter", 0, math.Pi / 2, math.Pi / 2},
		{"wraps", 3 * math.Pi / 2, math.Pi / 2, math.Pi},
		{"full turn", 0, 2 * math.Pi, 2 * math.Pi},
		{"zero", 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Arc{Radius: 1, Start: tt.start, End: tt.end}
			if got := a.Sweep(); !NearlyEqual(got, tt.want, 1e-12) {
				t.Errorf("Sweep() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestArcContainsAngle(t *testing.T) {
	a := Arc{Radius: 1, Start: 3 * math.Pi / 2, End: math.Pi / 2}
	for _, in := range []float64{0, -math.Pi / 4, math.Pi / 4, math.Pi / 2, 3 * math.Pi / 2} {
		if !a.ContainsAngle(in) {
			t.Errorf("ContainsAngle(%g) = false, want true", in)
		}
	}
	for _, out := range []float64{math.Pi, 3 * math.Pi / 4} {
		if a.ContainsAngle(out) {
			t.Errorf("ContainsAngle(%g) = true, want false", out)
		}
	}
}

func TestBulgeArc(t *testing.T) {
	t.Run("ccw quarter", func(t *testing.T) {
		arc, ok := BulgeArc(V(1, 0), V(0, 1), math.Tan(math.Pi/8))
		if !ok {
			t.Fatal("BulgeArc failed")
		}
		if !VecEqual(arc.Center, V(0, 0), 1e-9) || !NearlyEqual(arc.Radius, 1, 1e-9) {
			t.Errorf("arc = %+v, want unit arc about origin", arc)
		}
		if !AngleEqual(arc.Start, 0, 1e-9) || !AngleEqual(arc.End, math.Pi/2, 1e-9) {
			t.Errorf("angles = %g..%g, want 0..pi/2", arc.Start, arc.End)
		}
	})
	t.Run("cw semicircle", func(t *testing.T) {
		arc, ok := BulgeArc(V(-1, 0), V(1, 0), -1)
		if !ok {
			t.Fatal("BulgeArc failed")
		}
		if !VecEqual(arc.Center, V(0, 0), 1e-9) || !NearlyEqual(arc.Radius, 1, 1e-9) {
			t.Errorf("arc = %+v", arc)
		}
		// Clockwise from (-1,0) to (1,0) passes over the top.
		if !VecEqual(arc.MidPoint(), V(0, 1), 1e-9) {
			t.Errorf("midpoint = %v, want (0,1)", arc.MidPoint())
		}
	})
	t.Run("zero chord", func(t *testing.T) {
		if _, ok := BulgeArc(V(1, 1), V(1, 1), 0.5); ok {
			t.Error("expected failure for zero chord")
		}
	})
}

func TestPolylineSegments(t *testing.T) {
	open := NewPolyline(false, V(0, 0), V(1, 0), V(1, 1))
	if open.SegmentCount() != 2 {
		t.Errorf("open SegmentCount = %d, want 2", open.SegmentCount())
	}
	closed := open
	closed.Closed = true
	if closed.SegmentCount() != 3 {
		t.Errorf("closed SegmentCount = %d, want 3", closed.SegmentCount())
	}
	if !NearlyEqual(closed.Length(), 2+math.Sqrt2, 1e-12) {
		t.Errorf("closed Length = %g", closed.Length())
	}

	bulged := Polyline{Vertices: []Vertex{{P: V(-1, 0), Bulge: 1}, {P: V(1, 0)}}}
	segs := bulged.Explode()
	if len(segs) != 1 || segs[0].Kind() != KindArc {
		t.Fatalf("Explode = %v, want a single arc", segs)
	}
	if !NearlyEqual(bulged.Length(), math.Pi, 1e-9) {
		t.Errorf("semicircle Length = %g, want pi", bulged.Length())
	}
	// Positive bulge from left to right dips below the chord.
	if b := bulged.Bounds(); !NearlyEqual(b.Min.Y, -1, 1e-9) || !NearlyEqual(b.Max.Y, 0, 1e-9) {
		t.Errorf("bulged Bounds = %v", b)
	}
}

func TestPolylineOrientation(t *testing.T) {
	ccw := NewPolyline(true, V(0, 0), V(2, 0), V(2, 2), V(0, 2))
	if !ccw.IsCCW() || !NearlyEqual(ccw.SignedArea(), 4, 1e-12) {
		t.Errorf("expected CCW with area 4, got %g", ccw.SignedArea())
	}
	cw := NewPolyline(true, V(0, 0), V(0, 2), V(2, 2), V(2, 0))
	if cw.IsCCW() {
		t.Error("expected CW orientation")
	}
}

func TestCloneIsDeep(t *testing.T) {
	pl := NewPolyline(false, V(0, 0), V(1, 1))
	c := pl.Clone().(Polyline)
	c.Vertices[0].P = V(9, 9)
	if pl.Vertices[0].P != V(0, 0) {
		t.Error("Clone shares vertex storage")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		ok   bool
	}{
		{"point", Point{P: V(1, 2)}, true},
		{"nan point", Point{P: V(math.NaN(), 0)}, false},
		{"line", Line{Start: V(0, 0), End: V(1, 0)}, true},
		{"zero line", Line{Start: V(1, 0), End: V(1, 0)}, false},
		{"circle", Circle{Radius: 1}, true},
		{"zero circle", Circle{Radius: 0}, false},
		{"negative arc", Arc{Radius: -1, End: 1}, false},
		{"short polyline", NewPolyline(false, V(0, 0)), false},
		{"polyline", NewPolyline(false, V(0, 0), V(1, 0)), true},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.g)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, kerr.ErrDegenerate) {
				t.Errorf("expected Degenerate, got %v", err)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := Arc{Center: V(0, 0), Radius: 1, Start: 0, End: math.Pi}
	b := Arc{Center: V(0, 0), Radius: 1, Start: 2 * math.Pi, End: -math.Pi}
	if !Equal(a, b, 1e-9) {
		t.Error("arcs equal modulo 2pi should compare equal")
	}
	if Equal(a, Circle{Radius: 1}, 1e-9) {
		t.Error("different kinds compared equal")
	}
}

func TestOverlaps(t *testing.T) {
	a := Box{Min: V(0, 0), Max: V(1, 1)}
	if !Overlaps(a, Box{Min: V(1, 1), Max: V(2, 2)}) {
		t.Error("touching boxes should overlap")
	}
	if Overlaps(a, Box{Min: V(1.01, 0), Max: V(2, 1)}) {
		t.Error("disjoint boxes should not overlap")
	}
	if d := BoxDist(a, V(4, 5)); !NearlyEqual(d, 5, 1e-12) {
		t.Errorf("BoxDist = %g, want 5", d)
	}
}

func TestArcThrough(t *testing.T) {
	tests := []struct {
		name       string
		p1, p2, p3 Vec2
		mid        Vec2
	}{
		{"ccw upper half", V(1, 0), V(0, 1), V(-1, 0), V(0, 1)},
		{"cw lower half", V(1, 0), V(0, -1), V(-1, 0), V(0, -1)},
		{"offset center", V(5, 2), V(3, 4), V(1, 2), V(3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := ArcThrough(tt.p1, tt.p2, tt.p3)
			if !ok {
				t.Fatal("ArcThrough reported no arc")
			}
			if !NearlyEqual(a.DistanceTo(tt.p2), 0, tol) {
				t.Errorf("arc misses the middle point by %g", a.DistanceTo(tt.p2))
			}
			if !VecEqual(a.MidPoint(), tt.mid, tol) {
				t.Errorf("MidPoint = %v, want %v", a.MidPoint(), tt.mid)
			}
			if !NearlyEqual(a.Sweep(), math.Pi, tol) {
				t.Errorf("Sweep = %g, want pi", a.Sweep())
			}
		})
	}
	if _, ok := ArcThrough(V(0, 0), V(1, 1), V(2, 2)); ok {
		t.Error("collinear points should have no arc")
	}
}

func TestCircleMeasures(t *testing.T) {
	c := Circle{Radius: 2}
	if !NearlyEqual(c.Area(), 4*math.Pi, tol) {
		t.Errorf("Area = %g", c.Area())
	}
	if !NearlyEqual(c.Circumference(), 4*math.Pi, tol) {
		t.Errorf("Circumference = %g", c.Circumference())
	}
}

func TestFlatten(t *testing.T) {
	t.Run("arc within tolerance", func(t *testing.T) {
		a := Arc{Center: V(0, 0), Radius: 10, Start: 0, End: math.Pi}
		pts := a.Flatten(0.01)
		if !VecEqual(pts[0], a.StartPoint(), tol) || !VecEqual(pts[len(pts)-1], a.EndPoint(), tol) {
			t.Fatalf("flattened arc runs %v -> %v", pts[0], pts[len(pts)-1])
		}
		for i := 1; i < len(pts); i++ {
			mid := V((pts[i-1].X+pts[i].X)/2, (pts[i-1].Y+pts[i].Y)/2)
			if d := a.DistanceTo(mid); d > 0.01+tol {
				t.Errorf("chord %d strays %g from the arc", i, d)
			}
		}
	})

	t.Run("straight polyline", func(t *testing.T) {
		pl := NewPolyline(true, V(0, 0), V(1, 0), V(1, 1))
		if got := pl.Flatten(0.1); len(got) != 3 {
			t.Errorf("closed triangle flattened to %d points", len(got))
		}
		pl.Closed = false
		if got := pl.Flatten(0.1); len(got) != 3 || !VecEqual(got[2], V(1, 1), 0) {
			t.Errorf("open polyline flattened to %v", got)
		}
	})

	t.Run("negative bulge keeps direction", func(t *testing.T) {
		pl := Polyline{Vertices: []Vertex{{P: V(-1, 0), Bulge: -1}, {P: V(1, 0)}}}
		pts := pl.Flatten(0.01)
		if !VecEqual(pts[0], V(-1, 0), tol) || !VecEqual(pts[len(pts)-1], V(1, 0), tol) {
			t.Fatalf("flattened bulge runs %v -> %v", pts[0], pts[len(pts)-1])
		}
		for _, p := range pts[1 : len(pts)-1] {
			if p.Y < 0 {
				t.Errorf("point %v is below the chord; a clockwise left-to-right bulge bows upward", p)
			}
		}
	})

	if n := ChordSegments(5, 2*math.Pi, 0); n != 4 {
		t.Errorf("ChordSegments without tolerance = %d, want 4", n)
	}
}
