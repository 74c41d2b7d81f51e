package doc

import (
	"github.com/chazu/zcad/pkg/boolean"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kernel"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/chazu/zcad/pkg/logging"
	"github.com/chazu/zcad/pkg/offset"
	"github.com/chazu/zcad/pkg/transform"
)

// editable rejects locked entities and entities on locked or frozen
// layers.
func (d *Document) editable(op string, s *slot) error {
	if s.ent.Locked {
		return kerr.New(kerr.ConstraintViolation, op, "entity %v is locked", s.ent.ID)
	}
	if l := d.layers[s.ent.Layer]; !l.IsEditable() {
		return kerr.New(kerr.ConstraintViolation, op, "entity %v is on locked or frozen layer %q", s.ent.ID, l.Name)
	}
	return nil
}

// geometries snapshots the geometry of ids for an edit.
func (d *Document) geometries(op string, ids []entity.EntityID) ([]geom.Geometry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]geom.Geometry, len(ids))
	for i, id := range ids {
		s, err := d.lookup(op, id)
		if err != nil {
			return nil, err
		}
		if err := d.editable(op, s); err != nil {
			return nil, err
		}
		out[i] = s.ent.Geometry
	}
	return out, nil
}

// Transform maps every entity in ids through m as one undo step. The
// geometry is computed on the kernel's batch pool and written back in
// order; nothing changes if any id is missing or not editable.
func (d *Document) Transform(ids []entity.EntityID, m transform.Matrix) error {
	const op = "doc.Transform"
	in, err := d.geometries(op, ids)
	if err != nil {
		return err
	}
	out, err := kernel.Map(d.cfg.Workers, in, func(g geom.Geometry) (geom.Geometry, error) {
		return d.kern.Transform(m, g), nil
	})
	if err != nil {
		return err
	}
	logging.Logger().Debug("doc: transform", "count", len(ids), "matrix", m)
	return d.Transaction("transform", func() error {
		for i, id := range ids {
			if err := d.UpdateGeometry(id, out[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Copy transforms copies of ids and returns the new handles, leaving the
// originals in place. Copies keep the source layer and properties.
func (d *Document) Copy(ids []entity.EntityID, m transform.Matrix) ([]entity.EntityID, error) {
	ents := make([]entity.Entity, len(ids))
	for i, id := range ids {
		e, err := d.Get(id)
		if err != nil {
			return nil, err
		}
		ents[i] = e
	}
	out, err := kernel.Map(d.cfg.Workers, ents, func(e entity.Entity) (geom.Geometry, error) {
		return d.kern.Transform(m, e.Geometry), nil
	})
	if err != nil {
		return nil, err
	}
	created := make([]entity.EntityID, 0, len(ids))
	err = d.Transaction("copy", func() error {
		for i, e := range ents {
			id, err := d.Create(out[i], e.Properties, e.Layer)
			if err != nil {
				return err
			}
			created = append(created, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Offset creates a parallel copy of id at a signed distance and returns
// its handle. The copy shares the source layer and properties.
func (d *Document) Offset(id entity.EntityID, distance, tolerance float64) (entity.EntityID, error) {
	const op = "doc.Offset"
	in, err := d.geometries(op, []entity.EntityID{id})
	if err != nil {
		return entity.Null, err
	}
	g, err := d.kern.Offset(in[0], distance, tolerance)
	if err != nil {
		return entity.Null, err
	}
	return d.createLike(id, g)
}

// OffsetToward offsets id by |distance| on the side of p.
func (d *Document) OffsetToward(id entity.EntityID, p geom.Vec2, distance, tolerance float64) (entity.EntityID, error) {
	const op = "doc.OffsetToward"
	in, err := d.geometries(op, []entity.EntityID{id})
	if err != nil {
		return entity.Null, err
	}
	side := offset.Side(in[0], p)
	if distance < 0 {
		distance = -distance
	}
	g, err := d.kern.Offset(in[0], side*distance, tolerance)
	if err != nil {
		return entity.Null, err
	}
	return d.createLike(id, g)
}

func (d *Document) createLike(src entity.EntityID, g geom.Geometry) (entity.EntityID, error) {
	e, err := d.Get(src)
	if err != nil {
		return entity.Null, err
	}
	return d.Create(g, e.Properties, e.Layer)
}

// Intersects runs the kernel's intersection test on two entities.
func (d *Document) Intersects(a, b entity.EntityID, tolerance float64) (bool, error) {
	ga, gb, err := d.pair("doc.Intersects", a, b)
	if err != nil {
		return false, err
	}
	return d.kern.Intersects(ga, gb, tolerance), nil
}

// Combine classifies entity a against b. The result is new geometry for
// the caller to store; the document is not changed.
func (d *Document) Combine(a, b entity.EntityID, op boolean.Op, tolerance float64) ([]geom.Geometry, error) {
	ga, gb, err := d.pair("doc.Combine", a, b)
	if err != nil {
		return nil, err
	}
	return d.kern.Combine(ga, gb, op, tolerance), nil
}

func (d *Document) pair(op string, a, b entity.EntityID) (geom.Geometry, geom.Geometry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sa, err := d.lookup(op, a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := d.lookup(op, b)
	if err != nil {
		return nil, nil, err
	}
	return sa.ent.Geometry, sb.ent.Geometry, nil
}
