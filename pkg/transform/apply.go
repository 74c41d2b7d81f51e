package transform

import (
	"math"

	"github.com/chazu/zcad/pkg/geom"
)

// Apply maps g through m.
//
// Circles and arcs keep their shape: the radius scales by ScaleEstimate,
// which is exact for similarity transforms and an approximation under
// non-uniform scale or shear. Arc angles turn by Rotation; when m reverses
// orientation the arc's endpoints are mapped directly and swapped so the
// result still runs counter-clockwise. Polyline bulges are kept, with
// their sign flipped under reflection so each arc segment stays on the
// same side of its mapped chord.
func Apply(m Matrix, g geom.Geometry) geom.Geometry {
	switch v := g.(type) {
	case geom.Point:
		return geom.Point{P: m.Point(v.P)}
	case geom.Line:
		return geom.Line{Start: m.Point(v.Start), End: m.Point(v.End)}
	case geom.Circle:
		return geom.Circle{Center: m.Point(v.Center), Radius: v.Radius * m.ScaleEstimate()}
	case geom.Arc:
		return applyArc(m, v)
	case geom.Polyline:
		flip := m.Determinant() < 0
		out := geom.Polyline{Vertices: make([]geom.Vertex, len(v.Vertices)), Closed: v.Closed}
		for i, vx := range v.Vertices {
			b := vx.Bulge
			if flip {
				b = -b
			}
			out.Vertices[i] = geom.Vertex{P: m.Point(vx.P), Bulge: b}
		}
		return out
	}
	return g
}

func applyArc(m Matrix, a geom.Arc) geom.Arc {
	out := geom.Arc{
		Center: m.Point(a.Center),
		Radius: a.Radius * m.ScaleEstimate(),
	}
	if m.Determinant() >= 0 {
		rot := m.Rotation()
		out.Start = a.Start + rot
		out.End = a.End + rot
		return out
	}
	// Reflection: the image of the CCW arc start→end runs clockwise, so
	// the mapped end becomes the new start.
	ds := m.Vector(geom.V(math.Cos(a.Start), math.Sin(a.Start)))
	de := m.Vector(geom.V(math.Cos(a.End), math.Sin(a.End)))
	out.Start = geom.Angle(de)
	out.End = geom.Angle(ds)
	if a.Sweep() >= 2*math.Pi-geom.Epsilon {
		out.End = out.Start + 2*math.Pi
	}
	return out
}

// ApplyAll maps every geometry through m.
func ApplyAll(m Matrix, gs []geom.Geometry) []geom.Geometry {
	out := make([]geom.Geometry, len(gs))
	for i, g := range gs {
		out[i] = Apply(m, g)
	}
	return out
}
