package store

import (
	"errors"
	"fmt"

	"github.com/chazu/zcad/pkg/geom"
)

// ErrMalformedShape is wrapped by every shape decoding failure.
var ErrMalformedShape = errors.New("store: malformed shape")

// shape is the tagged on-disk form of a geometry. P holds flat x,y pairs:
// one pair for points, circle and arc centres, two for lines and one per
// vertex for polylines.
type shape struct {
	Kind   string    `codec:"kind"`
	P      []float64 `codec:"p"`
	R      float64   `codec:"r,omitempty"`
	Angles []float64 `codec:"a,omitempty"`
	Bulges []float64 `codec:"b,omitempty"`
	Closed bool      `codec:"closed,omitempty"`
}

func shapeOf(g geom.Geometry) shape {
	s := shape{Kind: g.Kind().String()}
	switch v := g.(type) {
	case geom.Point:
		s.P = []float64{v.P.X, v.P.Y}
	case geom.Line:
		s.P = []float64{v.Start.X, v.Start.Y, v.End.X, v.End.Y}
	case geom.Circle:
		s.P = []float64{v.Center.X, v.Center.Y}
		s.R = v.Radius
	case geom.Arc:
		s.P = []float64{v.Center.X, v.Center.Y}
		s.R = v.Radius
		s.Angles = []float64{v.Start, v.End}
	case geom.Polyline:
		s.P = make([]float64, 0, 2*len(v.Vertices))
		s.Closed = v.Closed
		bulged := false
		for _, vx := range v.Vertices {
			s.P = append(s.P, vx.P.X, vx.P.Y)
			bulged = bulged || vx.Bulge != 0
		}
		if bulged {
			s.Bulges = make([]float64, len(v.Vertices))
			for i, vx := range v.Vertices {
				s.Bulges[i] = vx.Bulge
			}
		}
	}
	return s
}

func (s shape) need(n int) error {
	if len(s.P) != n {
		return fmt.Errorf("%w: %s has %d coordinates, want %d", ErrMalformedShape, s.Kind, len(s.P), n)
	}
	return nil
}

func (s shape) geometry() (geom.Geometry, error) {
	k, err := geom.ParseKind(s.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShape, err)
	}
	switch k {
	case geom.KindPoint:
		if err := s.need(2); err != nil {
			return nil, err
		}
		return geom.Point{P: geom.V(s.P[0], s.P[1])}, nil
	case geom.KindLine:
		if err := s.need(4); err != nil {
			return nil, err
		}
		return geom.Line{Start: geom.V(s.P[0], s.P[1]), End: geom.V(s.P[2], s.P[3])}, nil
	case geom.KindCircle:
		if err := s.need(2); err != nil {
			return nil, err
		}
		return geom.Circle{Center: geom.V(s.P[0], s.P[1]), Radius: s.R}, nil
	case geom.KindArc:
		if err := s.need(2); err != nil {
			return nil, err
		}
		if len(s.Angles) != 2 {
			return nil, fmt.Errorf("%w: arc has %d angles, want 2", ErrMalformedShape, len(s.Angles))
		}
		return geom.Arc{Center: geom.V(s.P[0], s.P[1]), Radius: s.R, Start: s.Angles[0], End: s.Angles[1]}, nil
	default:
		if len(s.P)%2 != 0 {
			return nil, fmt.Errorf("%w: polyline has an odd coordinate count %d", ErrMalformedShape, len(s.P))
		}
		n := len(s.P) / 2
		if s.Bulges != nil && len(s.Bulges) != n {
			return nil, fmt.Errorf("%w: polyline has %d bulges for %d vertices", ErrMalformedShape, len(s.Bulges), n)
		}
		pl := geom.Polyline{Vertices: make([]geom.Vertex, n), Closed: s.Closed}
		for i := range n {
			pl.Vertices[i].P = geom.V(s.P[2*i], s.P[2*i+1])
			if s.Bulges != nil {
				pl.Vertices[i].Bulge = s.Bulges[i]
			}
		}
		return pl, nil
	}
}
