// Package tessellate turns document render items into polyline strips a
// display backend can draw directly. Curves are replaced by chords within
// a chord tolerance. One strip is produced per visible entity.
package tessellate

import (
	"fmt"

	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kernel"
)

// Strip is the drawable form of one entity.
type Strip struct {
	ID     entity.EntityID
	Points []geom.Vec2
	// Closed strips join their last point back to the first.
	Closed bool
	Style  entity.Resolved
}

// VertexCount returns the number of points in the strip.
func (s *Strip) VertexCount() int { return len(s.Points) }

// SegmentCount returns the number of straight segments drawn.
func (s *Strip) SegmentCount() int {
	n := len(s.Points)
	switch {
	case n < 2:
		return 0
	case s.Closed:
		return n
	}
	return n - 1
}

// IsEmpty reports whether the strip has nothing to draw.
func (s *Strip) IsEmpty() bool { return len(s.Points) == 0 }

// Tessellate flattens every displayable item, in input order. Items that
// are hidden, or whose layer is off or frozen, are skipped. Work is spread
// over up to workers goroutines; zero means GOMAXPROCS.
func Tessellate(items []doc.RenderItem, chordTol float64, workers int) ([]*Strip, error) {
	if chordTol <= 0 {
		return nil, fmt.Errorf("tessellate: chord tolerance %g must be positive", chordTol)
	}
	shown := make([]doc.RenderItem, 0, len(items))
	for _, it := range items {
		if it.Visible && it.LayerVisible {
			shown = append(shown, it)
		}
	}
	return kernel.Map(workers, shown, func(it doc.RenderItem) (*Strip, error) {
		return strip(it, chordTol)
	})
}

func strip(it doc.RenderItem, tol float64) (*Strip, error) {
	s := &Strip{ID: it.ID, Style: it.Resolved}
	switch g := it.Geometry.(type) {
	case geom.Point:
		s.Points = []geom.Vec2{g.P}
	case geom.Line:
		s.Points = []geom.Vec2{g.Start, g.End}
	case geom.Circle:
		s.Points = g.Flatten(tol)
		s.Closed = true
	case geom.Arc:
		s.Points = g.Flatten(tol)
	case geom.Polyline:
		s.Points = g.Flatten(tol)
		s.Closed = g.Closed && len(s.Points) > 2
	default:
		return nil, fmt.Errorf("tessellate: entity %s has unsupported geometry %T", it.ID, it.Geometry)
	}
	return s, nil
}
