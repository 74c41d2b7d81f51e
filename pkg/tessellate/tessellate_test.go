package tessellate_test

import (
	"testing"

	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/tessellate"
)

// everywhere covers every entity the tests create.
var everywhere = geom.BoxOf(geom.V(-1000, -1000), geom.V(1000, 1000))

func newDoc(t *testing.T) *doc.Document {
	t.Helper()
	d, err := doc.New()
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func create(t *testing.T, d *doc.Document, g geom.Geometry, layer entity.EntityID) entity.EntityID {
	t.Helper()
	id, err := d.Create(g, entity.DefaultProperties(), layer)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestStripShapes(t *testing.T) {
	tests := []struct {
		name         string
		g            geom.Geometry
		wantVertices int // -1 means "more than 2"
		wantSegments int // -1 means "equal to the vertex count"
		wantClosed   bool
	}{
		{"point", geom.Point{P: geom.V(1, 1)}, 1, 0, false},
		{"line", geom.Line{Start: geom.V(0, 0), End: geom.V(5, 0)}, 2, 1, false},
		{"circle", geom.Circle{Center: geom.V(0, 0), Radius: 10}, -1, -1, true},
		{"open polyline", geom.NewPolyline(false, geom.V(0, 0), geom.V(1, 0), geom.V(1, 1)), 3, 2, false},
		{"closed polyline", geom.NewPolyline(true, geom.V(0, 0), geom.V(1, 0), geom.V(1, 1)), 3, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDoc(t)
			id := create(t, d, tt.g, entity.Null)

			strips, err := tessellate.Tessellate(d.Snapshot(everywhere), 0.01, 2)
			if err != nil {
				t.Fatalf("Tessellate failed: %v", err)
			}
			if len(strips) != 1 {
				t.Fatalf("expected 1 strip, got %d", len(strips))
			}
			s := strips[0]
			if s.ID != id {
				t.Errorf("strip id = %v, want %v", s.ID, id)
			}
			if s.IsEmpty() {
				t.Fatal("strip should not be empty")
			}
			if tt.wantVertices >= 0 && s.VertexCount() != tt.wantVertices {
				t.Errorf("vertices = %d, want %d", s.VertexCount(), tt.wantVertices)
			}
			if tt.wantVertices < 0 && s.VertexCount() <= 2 {
				t.Errorf("curve flattened to only %d vertices", s.VertexCount())
			}
			wantSeg := tt.wantSegments
			if wantSeg < 0 {
				wantSeg = s.VertexCount()
			}
			if s.SegmentCount() != wantSeg {
				t.Errorf("segments = %d, want %d", s.SegmentCount(), wantSeg)
			}
			if s.Closed != tt.wantClosed {
				t.Errorf("closed = %v, want %v", s.Closed, tt.wantClosed)
			}
		})
	}
}

func TestArcStaysOnCurve(t *testing.T) {
	d := newDoc(t)
	arc := geom.Arc{Center: geom.V(0, 0), Radius: 50, Start: 0, End: 3}
	create(t, d, arc, entity.Null)

	strips, err := tessellate.Tessellate(d.Snapshot(everywhere), 0.01, 0)
	if err != nil {
		t.Fatal(err)
	}
	pts := strips[0].Points
	if !geom.VecEqual(pts[0], arc.StartPoint(), 1e-9) || !geom.VecEqual(pts[len(pts)-1], arc.EndPoint(), 1e-9) {
		t.Errorf("strip runs %v..%v, want arc end points", pts[0], pts[len(pts)-1])
	}
	for i, p := range pts {
		if r := geom.Dist(p, arc.Center); r < 50-1e-9 || r > 50+1e-9 {
			t.Fatalf("point %d at radius %g", i, r)
		}
	}
}

func TestFinerToleranceMoreVertices(t *testing.T) {
	d := newDoc(t)
	create(t, d, geom.Circle{Center: geom.V(0, 0), Radius: 100}, entity.Null)
	items := d.Snapshot(everywhere)

	coarse, err := tessellate.Tessellate(items, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	fine, err := tessellate.Tessellate(items, 0.001, 1)
	if err != nil {
		t.Fatal(err)
	}
	if fine[0].VertexCount() <= coarse[0].VertexCount() {
		t.Errorf("fine %d vertices, coarse %d", fine[0].VertexCount(), coarse[0].VertexCount())
	}
}

func TestHiddenSkipped(t *testing.T) {
	d := newDoc(t)
	off, err := d.CreateLayer("off")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateLayer(off, func(l *entity.Layer) { l.Visible = false }); err != nil {
		t.Fatal(err)
	}
	shown := create(t, d, geom.Point{P: geom.V(0, 0)}, entity.Null)
	hidden := create(t, d, geom.Point{P: geom.V(1, 0)}, entity.Null)
	if err := d.SetVisible(hidden, false); err != nil {
		t.Fatal(err)
	}
	create(t, d, geom.Point{P: geom.V(2, 0)}, off)

	strips, err := tessellate.Tessellate(d.Snapshot(everywhere), 0.01, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(strips) != 1 || strips[0].ID != shown {
		t.Fatalf("strips = %+v, want only %v", strips, shown)
	}
}

func TestOrderAndStyle(t *testing.T) {
	d := newDoc(t)
	var ids []entity.EntityID
	for i := range 20 {
		ids = append(ids, create(t, d, geom.Point{P: geom.V(float64(i), 0)}, entity.Null))
	}
	strips, err := tessellate.Tessellate(d.Snapshot(everywhere), 0.01, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(strips) != len(ids) {
		t.Fatalf("got %d strips, want %d", len(strips), len(ids))
	}
	for i, s := range strips {
		if s.ID != ids[i] {
			t.Errorf("strip %d id = %v, want %v", i, s.ID, ids[i])
		}
		if s.Style.Color != entity.White {
			t.Errorf("strip %d color = %v, want the layer's white", i, s.Style.Color)
		}
	}
}

func TestEmpty(t *testing.T) {
	strips, err := tessellate.Tessellate(nil, 0.01, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(strips) != 0 {
		t.Errorf("expected no strips, got %d", len(strips))
	}
	if _, err := tessellate.Tessellate(nil, 0, 0); err == nil {
		t.Error("expected an error for a zero chord tolerance")
	}
}
