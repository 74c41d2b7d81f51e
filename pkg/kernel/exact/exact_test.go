package exact

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/zcad/pkg/boolean"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kernel"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/chazu/zcad/pkg/offset"
	"github.com/chazu/zcad/pkg/transform"
)

func TestKernel(t *testing.T) {
	k := New()
	if k.Name() != "exact" {
		t.Errorf("Name() = %q", k.Name())
	}

	c := geom.Circle{Center: geom.V(0, 0), Radius: 10}
	got, err := k.Offset(c, 5, 0.001)
	if err != nil {
		t.Fatal(err)
	}
	if r := got.(geom.Circle).Radius; math.Abs(r-15) > 0.001 {
		t.Errorf("offset radius = %g, want 15", r)
	}

	moved := k.Transform(transform.Translate(15, 0), c)
	if !k.Intersects(c, moved, 0.001) {
		t.Error("circles 15 apart with radius 10 should intersect")
	}
	if k.Intersects(c, k.Transform(transform.Translate(25, 0), c), 0.001) {
		t.Error("circles 25 apart with radius 10 should not intersect")
	}
	if n := len(k.Combine(c, moved, boolean.Xor, 0.001)); n != 0 {
		t.Errorf("xor of intersecting circles returned %d shapes", n)
	}
}

func TestCrossings(t *testing.T) {
	a := geom.Line{Start: geom.V(0, 0), End: geom.V(10, 10)}
	b := geom.Line{Start: geom.V(0, 10), End: geom.V(10, 0)}
	if New().Intersects(a, b, 0.001) {
		t.Error("default kernel reported a crossing away from the endpoints")
	}
	k := &Kernel{Crossings: true}
	if !k.Intersects(a, b, 0.001) {
		t.Error("kernel with Crossings missed crossing lines")
	}
	if n := len(k.Combine(a, b, boolean.Xor, 0.001)); n != 0 {
		t.Errorf("xor of crossing lines returned %d shapes", n)
	}
}

func TestMiterJoin(t *testing.T) {
	k := &Kernel{Join: offset.JoinMiter}
	sq := geom.NewPolyline(true, geom.V(0, 0), geom.V(10, 0), geom.V(10, 10), geom.V(0, 10))
	got, err := k.Offset(sq, 1, 0.001)
	if err != nil {
		t.Fatal(err)
	}
	if p := got.(geom.Polyline).Vertices[0].P; !geom.VecEqual(p, geom.V(-1, -1), 1e-9) {
		t.Errorf("mitered corner = %v, want (-1,-1)", p)
	}
}

func TestBatchOffset(t *testing.T) {
	k := New()
	in := make([]geom.Geometry, 100)
	for i := range in {
		in[i] = geom.Circle{Center: geom.V(float64(i), 0), Radius: float64(i + 1)}
	}
	out, err := kernel.Map(4, in, func(g geom.Geometry) (geom.Geometry, error) {
		return k.Offset(g, 2, 0.001)
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, g := range out {
		if r := g.(geom.Circle).Radius; r != float64(i+3) {
			t.Fatalf("item %d radius = %g, want %d", i, r, i+3)
		}
	}

	ref := func(g geom.Geometry) (geom.Geometry, error) { return k.Offset(g, 2, 0.001) }
	bad, err := kernel.Verify(4, in, out, ref, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 0 {
		t.Errorf("verified batch has mismatches: %v", bad)
	}

	_, err = kernel.Map(3, in, func(g geom.Geometry) (geom.Geometry, error) {
		return k.Offset(g, -50, 0.001)
	})
	if !errors.Is(err, kerr.ErrDegenerate) {
		t.Errorf("collapsing batch: err = %v", err)
	}
}
