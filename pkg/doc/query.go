package doc

import (
	"cmp"
	"slices"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
)

// QueryRect returns the entities whose bounding boxes intersect r, in
// ascending id order. Boxes are conservative, so callers needing exact
// hits refine the result against the geometry.
func (d *Document) QueryRect(r geom.Box) []entity.EntityID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.index.QueryRect(r)
}

// QueryPoint returns the entities whose boxes come within tol of p.
func (d *Document) QueryPoint(p geom.Vec2, tol float64) []entity.EntityID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.index.QueryPoint(p, tol)
}

// QueryNearest returns up to n entities ordered by the distance from p to
// their box centers.
func (d *Document) QueryNearest(p geom.Vec2, n int) []entity.EntityID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.index.QueryNearest(p, n)
}

// Pick returns the displayed entities whose geometry passes within tol of
// p, closest first. A negative tol uses the configured pick tolerance.
func (d *Document) Pick(p geom.Vec2, tol float64) []entity.EntityID {
	if tol < 0 {
		tol = d.cfg.PickTolerance
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	type hit struct {
		id   entity.EntityID
		dist float64
	}
	var hits []hit
	for _, id := range d.index.QueryPoint(p, tol) {
		s, err := d.lookup("doc.Pick", id)
		if err != nil {
			panic("zcad: invariant: spatial index holds " + id.String() + " but the arena does not")
		}
		if !s.ent.Visible || !d.layers[s.ent.Layer].ShouldDisplay() {
			continue
		}
		if dist := s.ent.Geometry.DistanceTo(p); dist <= tol {
			hits = append(hits, hit{id, dist})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return entity.Compare(a.id, b.id)
	})
	out := make([]entity.EntityID, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}

// RenderItem is a point-in-time copy of one entity for drawing.
type RenderItem struct {
	ID           entity.EntityID
	Geometry     geom.Geometry
	Properties   entity.Properties
	Resolved     entity.Resolved
	Visible      bool
	Layer        entity.EntityID
	LayerVisible bool
}

// Snapshot returns render items for every entity whose box intersects
// viewport, in ascending id order. The items share nothing with the
// document.
func (d *Document) Snapshot(viewport geom.Box) []RenderItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := d.index.QueryRect(viewport)
	out := make([]RenderItem, 0, len(ids))
	for _, id := range ids {
		s, err := d.lookup("doc.Snapshot", id)
		if err != nil {
			panic("zcad: invariant: spatial index holds " + id.String() + " but the arena does not")
		}
		l := d.layers[s.ent.Layer]
		out = append(out, RenderItem{
			ID:           id,
			Geometry:     s.ent.Geometry.Clone(),
			Properties:   s.ent.Properties,
			Resolved:     entity.Resolve(s.ent.Properties, *l),
			Visible:      s.ent.Visible,
			Layer:        s.ent.Layer,
			LayerVisible: l.ShouldDisplay(),
		})
	}
	return out
}

// Extents returns the union of every entity's box and false when the
// document is empty.
func (d *Document) Extents() (geom.Box, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b geom.Box
	found := false
	for i := range d.slots {
		s := &d.slots[i]
		if !s.live {
			continue
		}
		if !found {
			b, found = s.ent.Bounds(), true
			continue
		}
		b = geom.Union(b, s.ent.Bounds())
	}
	return b, found
}
