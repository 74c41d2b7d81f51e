package transform

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kerr"
)

const tol = 1e-9

func TestIdentityIsExact(t *testing.T) {
	shapes := []geom.Geometry{
		geom.Point{P: geom.V(1.5, -2)},
		geom.Line{Start: geom.V(0, 0), End: geom.V(3, 4)},
		geom.Circle{Center: geom.V(2, 2), Radius: 7},
		geom.Arc{Center: geom.V(1, 1), Radius: 2, Start: 0.3, End: 5.9},
		geom.Polyline{Vertices: []geom.Vertex{{P: geom.V(0, 0), Bulge: 0.5}, {P: geom.V(4, 0)}}, Closed: true},
	}
	for _, g := range shapes {
		t.Run(g.Kind().String(), func(t *testing.T) {
			got := Apply(Identity(), g)
			if !geom.Equal(got, g, 0) {
				t.Errorf("Apply(identity) = %+v, want %+v", got, g)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	t1 := Translate(5, 0)
	t2 := Rotate(math.Pi / 2)
	m := Compose(t1, t2)
	// (1,0) -> (6,0) -> (0,6)
	got := m.Point(geom.V(1, 0))
	if !geom.VecEqual(got, geom.V(0, 6), tol) {
		t.Errorf("Compose(translate, rotate) maps (1,0) to %v, want (0,6)", got)
	}
	if !m.Equal(t1.Then(t2), 0) {
		t.Error("Then disagrees with Compose")
	}

	g := geom.Line{Start: geom.V(1, 2), End: geom.V(-3, 4)}
	seq := Apply(t2, Apply(t1, g))
	once := Apply(m, g)
	if !geom.Equal(seq, once, tol) {
		t.Errorf("composed %v != sequential %v", once, seq)
	}
}

func TestComposeEveryKind(t *testing.T) {
	diag, err := MirrorLine(geom.V(0, 1), geom.V(3, 4))
	if err != nil {
		t.Fatal(err)
	}
	pairs := []struct {
		name   string
		t1, t2 Matrix
	}{
		{"translate then rotate", Translate(5, -2), Rotate(math.Pi / 3)},
		{"scale then translate", Scale(2, 2), Translate(-1, 7)},
		{"rotate then mirror", RotateAbout(geom.V(1, 1), 0.4), MirrorX()},
		{"mirror then translate", diag, Translate(3, 3)},
		{"two mirrors", MirrorY(), diag},
	}
	shapes := []struct {
		name string
		g    geom.Geometry
	}{
		{"point", geom.Point{P: geom.V(2, -3)}},
		{"line", geom.Line{Start: geom.V(1, 2), End: geom.V(-3, 4)}},
		{"circle", geom.Circle{Center: geom.V(4, 1), Radius: 2.5}},
		{"arc", geom.Arc{Center: geom.V(-1, 2), Radius: 3, Start: 0.3, End: 2.2}},
		{"bulged polyline", geom.Polyline{Closed: true, Vertices: []geom.Vertex{
			{P: geom.V(0, 0), Bulge: 0.5},
			{P: geom.V(4, 0)},
			{P: geom.V(4, 3), Bulge: -0.3},
			{P: geom.V(0, 3)},
		}}},
	}
	for _, pr := range pairs {
		m := Compose(pr.t1, pr.t2)
		for _, sh := range shapes {
			t.Run(pr.name+"/"+sh.name, func(t *testing.T) {
				seq := Apply(pr.t2, Apply(pr.t1, sh.g))
				once := Apply(m, sh.g)
				if !geom.Equal(seq, once, tol) {
					t.Errorf("composed %+v != sequential %+v", once, seq)
				}
			})
		}
	}
}

func TestRotateAbout(t *testing.T) {
	m := RotateAbout(geom.V(1, 1), math.Pi)
	if got := m.Point(geom.V(2, 1)); !geom.VecEqual(got, geom.V(0, 1), tol) {
		t.Errorf("RotateAbout maps (2,1) to %v", got)
	}
	if got := ScaleAbout(geom.V(1, 1), 2, 2).Point(geom.V(2, 2)); !geom.VecEqual(got, geom.V(3, 3), tol) {
		t.Errorf("ScaleAbout maps (2,2) to %v", got)
	}
}

func TestMirrorLine(t *testing.T) {
	m, err := MirrorLine(geom.V(0, 0), geom.V(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Point(geom.V(2, 0)); !geom.VecEqual(got, geom.V(0, 2), tol) {
		t.Errorf("mirror across y=x maps (2,0) to %v", got)
	}
	if m.Determinant() >= 0 {
		t.Error("mirror should reverse orientation")
	}
	if _, err := MirrorLine(geom.V(1, 1), geom.V(1, 1)); !errors.Is(err, kerr.ErrDegenerate) {
		t.Errorf("zero-length mirror line: err = %v", err)
	}
}

func TestApplyCircle(t *testing.T) {
	c := geom.Circle{Center: geom.V(1, 0), Radius: 2}
	m := Compose(Scale(3, 3), Rotate(math.Pi/2))
	got := Apply(m, c).(geom.Circle)
	if !geom.VecEqual(got.Center, geom.V(0, 3), tol) || !geom.NearlyEqual(got.Radius, 6, tol) {
		t.Errorf("circle = %+v", got)
	}
	// Non-uniform scale uses the mean basis length.
	got = Apply(Scale(2, 4), c).(geom.Circle)
	if !geom.NearlyEqual(got.Radius, 6, tol) {
		t.Errorf("non-uniform radius = %g, want 6", got.Radius)
	}
}

func TestApplyArc(t *testing.T) {
	a := geom.Arc{Center: geom.V(0, 0), Radius: 1, Start: 0, End: math.Pi / 2}

	t.Run("rotation", func(t *testing.T) {
		got := Apply(Rotate(math.Pi/2), a).(geom.Arc)
		if !geom.AngleEqual(got.Start, math.Pi/2, tol) || !geom.AngleEqual(got.End, math.Pi, tol) {
			t.Errorf("rotated arc angles = %g..%g", got.Start, got.End)
		}
	})

	t.Run("mirror", func(t *testing.T) {
		got := Apply(MirrorX(), a).(geom.Arc)
		// The image of the first-quadrant arc is the fourth-quadrant arc,
		// still counter-clockwise.
		if !geom.VecEqual(got.StartPoint(), geom.V(0, -1), tol) || !geom.VecEqual(got.EndPoint(), geom.V(1, 0), tol) {
			t.Errorf("mirrored arc runs %v -> %v", got.StartPoint(), got.EndPoint())
		}
		if !geom.NearlyEqual(got.Sweep(), math.Pi/2, tol) {
			t.Errorf("mirrored sweep = %g", got.Sweep())
		}
	})

	t.Run("endpoints follow points", func(t *testing.T) {
		m := Compose(Scale(2, 2), Compose(Rotate(0.7), Translate(3, -1)))
		got := Apply(m, a).(geom.Arc)
		if !geom.VecEqual(got.StartPoint(), m.Point(a.StartPoint()), tol) {
			t.Errorf("start point %v, want %v", got.StartPoint(), m.Point(a.StartPoint()))
		}
		if !geom.VecEqual(got.EndPoint(), m.Point(a.EndPoint()), tol) {
			t.Errorf("end point %v, want %v", got.EndPoint(), m.Point(a.EndPoint()))
		}
	})
}

func TestApplyPolylineMirror(t *testing.T) {
	pl := geom.Polyline{Vertices: []geom.Vertex{{P: geom.V(-1, 0), Bulge: 1}, {P: geom.V(1, 0)}}}
	got := Apply(MirrorX(), pl).(geom.Polyline)
	// The semicircle below the x axis maps to the one above it.
	mid := got.Segment(0).(geom.Arc).MidPoint()
	if !geom.VecEqual(mid, geom.V(0, 1), tol) {
		t.Errorf("mirrored bulge midpoint = %v, want (0,1)", mid)
	}
}

func TestInverse(t *testing.T) {
	m := Compose(Rotate(0.4), Compose(Scale(2, 3), Translate(5, -7)))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	if !Compose(m, inv).Equal(Identity(), tol) {
		t.Errorf("m * inv = %v", Compose(m, inv))
	}
	if _, err := Scale(0, 1).Inverse(); !errors.Is(err, kerr.ErrDegenerate) {
		t.Errorf("singular inverse err = %v", err)
	}
}

func TestFit(t *testing.T) {
	want := Compose(Rotate(0.3), Compose(Scale(2, 2), Translate(10, -4)))
	src := []geom.Vec2{geom.V(0, 0), geom.V(1, 0), geom.V(0, 1), geom.V(5, 5)}
	dst := make([]geom.Vec2, len(src))
	for i, p := range src {
		dst[i] = want.Point(p)
	}
	got, err := Fit(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want, 1e-6) {
		t.Errorf("Fit = %v, want %v", got, want)
	}
	if _, err := Fit(src[:2], dst[:2]); err == nil {
		t.Error("expected error for two pairs")
	}
}

func TestSimilarity(t *testing.T) {
	if !Compose(Rotate(1), Scale(3, 3)).IsSimilarity(tol) {
		t.Error("rotate+uniform scale should be a similarity")
	}
	if Scale(1, 2).IsSimilarity(tol) {
		t.Error("non-uniform scale is not a similarity")
	}
	if r := Rotate(0.25).Rotation(); !geom.NearlyEqual(r, 0.25, tol) {
		t.Errorf("Rotation = %g", r)
	}
}
