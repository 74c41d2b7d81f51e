package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
)

const tol = 1e-12

func sampleDoc(t *testing.T) (*doc.Document, []entity.EntityID) {
	t.Helper()
	d, err := doc.New(doc.WithTitle("gasket"))
	if err != nil {
		t.Fatal(err)
	}
	walls, err := d.CreateLayer("walls")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateLayer(walls, func(l *entity.Layer) { l.Color = entity.Cyan; l.LineType = entity.Dashed }); err != nil {
		t.Fatal(err)
	}
	shapes := []geom.Geometry{
		geom.Point{P: geom.V(1, 2)},
		geom.Line{Start: geom.V(0, 0), End: geom.V(10, 5)},
		geom.Circle{Center: geom.V(3, 3), Radius: 1.5},
		geom.Arc{Center: geom.V(0, 0), Radius: 4, Start: 0.25, End: 2.5},
		geom.Polyline{Closed: true, Vertices: []geom.Vertex{
			{P: geom.V(0, 0)}, {P: geom.V(4, 0), Bulge: 0.5}, {P: geom.V(4, 4)}, {P: geom.V(0, 4), Bulge: -1},
		}},
		geom.NewPolyline(false, geom.V(-1, -1), geom.V(-2, -3)),
	}
	var ids []entity.EntityID
	for i, g := range shapes {
		layer := entity.Null
		if i%2 == 1 {
			layer = walls
		}
		id, err := d.Create(g, entity.Properties{Color: entity.RGB(10, 20, 30), LineWeight: 35}, layer)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	if err := d.Delete(ids[0]); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLocked(ids[2], true); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveView(entity.View{Name: "fit", Center: geom.V(2, 2), Zoom: 1.5}); err != nil {
		t.Fatal(err)
	}
	return d, ids[1:]
}

func sameDocument(t *testing.T, want, got *doc.Document) {
	t.Helper()
	if !slices.Equal(want.All(), got.All()) {
		t.Fatalf("ids = %v, want %v", got.All(), want.All())
	}
	for _, id := range want.All() {
		we, _ := want.Get(id)
		ge, err := got.Get(id)
		if err != nil {
			t.Fatalf("Get(%v): %v", id, err)
		}
		if !geom.Equal(we.Geometry, ge.Geometry, tol) {
			t.Errorf("%v geometry = %v, want %v", id, ge.Geometry, we.Geometry)
		}
		if we.Properties != ge.Properties || we.Layer != ge.Layer || we.Visible != ge.Visible || we.Locked != ge.Locked {
			t.Errorf("%v = %+v, want %+v", id, ge, we)
		}
	}
	if !slices.Equal(want.Layers(), got.Layers()) {
		t.Errorf("layers = %+v, want %+v", got.Layers(), want.Layers())
	}
	if !slices.Equal(want.Views(), got.Views()) {
		t.Errorf("views = %+v, want %+v", got.Views(), want.Views())
	}
	wm, gm := want.Meta(), got.Meta()
	if wm.ID != gm.ID || wm.Title != gm.Title || wm.Units != gm.Units || !wm.Created.Equal(gm.Created) {
		t.Errorf("meta = %+v, want %+v", gm, wm)
	}
	if r := got.Validate(); !r.OK() {
		t.Errorf("Validate: %v", r.Errors)
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, f := range []Format{Msgpack, JSON} {
		t.Run(f.String(), func(t *testing.T) {
			src, _ := sampleDoc(t)
			var buf bytes.Buffer
			if err := Encode(&buf, src.Export(), f); err != nil {
				t.Fatal(err)
			}
			a, err := Decode(&buf, f)
			if err != nil {
				t.Fatal(err)
			}
			dst, _ := doc.New()
			if err := dst.Load(a); err != nil {
				t.Fatal(err)
			}
			sameDocument(t, src, dst)
		})
	}
}

func TestJSONIsReadable(t *testing.T) {
	src, _ := sampleDoc(t)
	var buf bytes.Buffer
	if err := Encode(&buf, src.Export(), JSON); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`"version"`, `"kind": "polyline"`, `"title": "gasket"`, `"walls"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output missing %s", want)
		}
	}
}

func TestSaveOpen(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"part.zcad", "part.json"} {
		t.Run(name, func(t *testing.T) {
			src, ids := sampleDoc(t)
			path := filepath.Join(dir, name)
			if err := Save(path, src); err != nil {
				t.Fatal(err)
			}
			got, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			sameDocument(t, src, got)

			// Both sides must hand out the same next handle.
			g := geom.Point{}
			a, _ := src.Create(g, entity.DefaultProperties(), entity.Null)
			b, _ := got.Create(g, entity.DefaultProperties(), entity.Null)
			if a != b {
				t.Errorf("next handle %v, want %v (ids %v)", b, a, ids)
			}
		})
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("directory holds %d files, want 2 (temp files left behind?)", len(entries))
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "missing.zcad")); err == nil {
		t.Error("Open of a missing file succeeded")
	}

	garbage := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(garbage, []byte(`{"version": 1, "bogus": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(garbage); err == nil {
		t.Error("Open accepted an unknown field")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"future version", `{"version": 2}`, nil},
		{"zero version", `{"version": 0}`, nil},
		{"unknown kind", `{"version": 1, "entities": [{"id": {"id": 1, "gen": 0}, "shape": {"kind": "spline", "p": [0, 0]}}]}`, ErrMalformedShape},
		{"short line", `{"version": 1, "entities": [{"id": {"id": 1, "gen": 0}, "shape": {"kind": "line", "p": [0, 0, 1]}}]}`, ErrMalformedShape},
		{"arc angles", `{"version": 1, "entities": [{"id": {"id": 1, "gen": 0}, "shape": {"kind": "arc", "p": [0, 0], "r": 1}}]}`, ErrMalformedShape},
		{"bulge count", `{"version": 1, "entities": [{"id": {"id": 1, "gen": 0}, "shape": {"kind": "polyline", "p": [0, 0, 1, 1], "b": [0]}}]}`, ErrMalformedShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.json), JSON)
			if err == nil {
				t.Fatal("Decode succeeded")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error %v does not wrap %v", err, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.zcad", Msgpack},
		{"a.JSON", JSON},
		{"dir.json/a", Msgpack},
		{"noext", Msgpack},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
	for _, s := range []string{"msgpack", "JSON"} {
		f, err := ParseFormat(s)
		if err != nil || !strings.EqualFold(f.String(), s) {
			t.Errorf("ParseFormat(%q) = %v, %v", s, f, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat accepted xml")
	}
}
