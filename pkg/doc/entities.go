package doc

import (
	"cmp"
	"slices"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/chazu/zcad/pkg/logging"
)

// Create stores g with props on layer and returns its handle. A Null
// layer means the current layer. The geometry is copied; later changes to
// the caller's value do not reach the document.
func (d *Document) Create(g geom.Geometry, props entity.Properties, layer entity.EntityID) (entity.EntityID, error) {
	const op = "doc.Create"
	d.mu.Lock()
	defer d.mu.Unlock()

	if g == nil {
		return entity.Null, kerr.New(kerr.Degenerate, op, "nil geometry")
	}
	if layer.IsNull() {
		layer = d.current
	}
	if _, ok := d.layers[layer]; !ok {
		return entity.Null, kerr.New(kerr.UnknownLayer, op, "layer %v", layer)
	}

	e := entity.Entity{Geometry: g.Clone(), Properties: props, Layer: layer, Visible: true}
	id := d.insert(e)
	e.ID = id
	d.record(change{kind: entityCreated, after: e})
	d.touch()
	logging.Logger().Debug("doc: create", "id", id, "kind", g.Kind(), "layer", layer)
	return id, nil
}

// Get returns a copy of the entity behind id.
func (d *Document) Get(id entity.EntityID) (entity.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, err := d.lookup("doc.Get", id)
	if err != nil {
		return entity.Entity{}, err
	}
	return s.ent.Clone(), nil
}

// modify applies fn to a copy of the entity and stores the result.
func (d *Document) modify(op string, id entity.EntityID, fn func(*entity.Entity) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.lookup(op, id)
	if err != nil {
		return err
	}
	before := s.ent
	after := s.ent
	if err := fn(&after); err != nil {
		return err
	}
	d.replace(s, after)
	d.record(change{kind: entityModified, before: before, after: s.ent})
	d.touch()
	return nil
}

// UpdateGeometry replaces the geometry of id and re-indexes it.
func (d *Document) UpdateGeometry(id entity.EntityID, g geom.Geometry) error {
	const op = "doc.UpdateGeometry"
	return d.modify(op, id, func(e *entity.Entity) error {
		if g == nil {
			return kerr.New(kerr.Degenerate, op, "nil geometry")
		}
		e.Geometry = g.Clone()
		return nil
	})
}

// UpdateProperties replaces the display properties of id.
func (d *Document) UpdateProperties(id entity.EntityID, p entity.Properties) error {
	return d.modify("doc.UpdateProperties", id, func(e *entity.Entity) error {
		e.Properties = p
		return nil
	})
}

// SetLayer moves id to layer. The entity goes to the end of the layer's
// listing order.
func (d *Document) SetLayer(id, layer entity.EntityID) error {
	const op = "doc.SetLayer"
	return d.modify(op, id, func(e *entity.Entity) error {
		if _, ok := d.layers[layer]; !ok {
			return kerr.New(kerr.UnknownLayer, op, "layer %v", layer)
		}
		e.Layer = layer
		return nil
	})
}

// SetVisible shows or hides id.
func (d *Document) SetVisible(id entity.EntityID, visible bool) error {
	return d.modify("doc.SetVisible", id, func(e *entity.Entity) error {
		e.Visible = visible
		return nil
	})
}

// SetLocked locks or unlocks id against edits.
func (d *Document) SetLocked(id entity.EntityID, locked bool) error {
	return d.modify("doc.SetLocked", id, func(e *entity.Entity) error {
		e.Locked = locked
		return nil
	})
}

// Delete removes id. Its numeric id may be handed out again, always with a
// higher generation.
func (d *Document) Delete(id entity.EntityID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.lookup("doc.Delete", id)
	if err != nil {
		return err
	}
	e := d.remove(s)
	d.record(change{kind: entityDeleted, before: e})
	d.touch()
	logging.Logger().Debug("doc: delete", "id", id)
	return nil
}

// ListByLayer returns the entities on layer in the order they were
// created on or moved to it.
func (d *Document) ListByLayer(layer entity.EntityID) []entity.EntityID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var members []*slot
	for i := range d.slots {
		if s := &d.slots[i]; s.live && s.ent.Layer == layer {
			members = append(members, s)
		}
	}
	slices.SortFunc(members, func(a, b *slot) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]entity.EntityID, len(members))
	for i, s := range members {
		out[i] = s.ent.ID
	}
	return out
}

// Len returns the number of live entities.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.live
}

// All returns every live handle in ascending id order.
func (d *Document) All() []entity.EntityID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.allLocked()
}

func (d *Document) allLocked() []entity.EntityID {
	out := make([]entity.EntityID, 0, d.live)
	for i := range d.slots {
		if s := &d.slots[i]; s.live {
			out = append(out, s.ent.ID)
		}
	}
	return out
}

func (d *Document) layerMembers(layer entity.EntityID) int {
	n := 0
	for i := range d.slots {
		if s := &d.slots[i]; s.live && s.ent.Layer == layer {
			n++
		}
	}
	return n
}
