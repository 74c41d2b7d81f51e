package doc

import (
	"slices"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/chazu/zcad/pkg/logging"
)

// Archive is the complete persistent state of a document. Generations
// holds the generation of every arena slot, live or free, and Free the
// reuse order, so a loaded document hands out the same handles the saved
// one would have.
type Archive struct {
	Meta         Metadata
	Layers       []entity.Layer
	CurrentLayer entity.EntityID
	Entities     []entity.Entity
	Views        []entity.View
	Generations  []uint32
	Free         []uint64
}

// Export returns a deep copy of the document's persistent state. Entities
// come in ascending id order.
func (d *Document) Export() Archive {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a := Archive{
		Meta:         d.meta,
		Layers:       make([]entity.Layer, len(d.layerOrder)),
		CurrentLayer: d.current,
		Entities:     make([]entity.Entity, 0, d.live),
		Views:        slices.Clone(d.views),
		Generations:  make([]uint32, len(d.slots)),
		Free:         slices.Clone(d.free),
	}
	for i, id := range d.layerOrder {
		a.Layers[i] = *d.layers[id]
	}
	for i := range d.slots {
		s := &d.slots[i]
		a.Generations[i] = s.gen
		if s.live {
			a.Entities = append(a.Entities, s.ent.Clone())
		}
	}
	return a
}

// Load replaces the document's contents with a. Layers are restored
// first, then each entity in order at exactly its archived handle, then
// the free list, and finally the spatial index is rebuilt in full.
// History is cleared. On error the document is left unchanged.
//
// An archive without Generations is accepted: the arena is sized to the
// highest entity id and every unused slot becomes free.
func (d *Document) Load(a Archive) error {
	const op = "doc.Load"
	d.mu.Lock()
	defer d.mu.Unlock()

	layers := make(map[entity.EntityID]*entity.Layer, len(a.Layers))
	var order []entity.EntityID
	var def entity.EntityID
	var next uint64
	names := make(map[string]bool, len(a.Layers))
	for _, l := range a.Layers {
		if l.ID.IsNull() {
			return kerr.New(kerr.ConstraintViolation, op, "layer %q has no id", l.Name)
		}
		if _, dup := layers[l.ID]; dup {
			return kerr.New(kerr.ConstraintViolation, op, "duplicate layer id %v", l.ID)
		}
		if names[l.Name] {
			return kerr.New(kerr.ConstraintViolation, op, "duplicate layer name %q", l.Name)
		}
		names[l.Name] = true
		l := l
		layers[l.ID] = &l
		order = append(order, l.ID)
		if l.Name == entity.DefaultLayerName {
			def = l.ID
		}
		next = max(next, l.ID.ID)
	}
	if def.IsNull() {
		next++
		l := entity.NewLayer(entity.DefaultLayerName)
		l.ID = entity.EntityID{ID: next}
		layers[l.ID] = &l
		order = append(order, l.ID)
		def = l.ID
	}
	slices.SortFunc(order, entity.Compare)
	current := a.CurrentLayer
	if _, ok := layers[current]; !ok {
		current = def
	}

	n := uint64(len(a.Generations))
	if n == 0 {
		for _, e := range a.Entities {
			n = max(n, e.ID.ID)
		}
	}
	slots := make([]slot, n)
	for i, g := range a.Generations {
		slots[i].gen = g
	}
	var seq uint64
	for _, e := range a.Entities {
		id := e.ID
		if id.ID == 0 || id.ID > n {
			return kerr.New(kerr.NotFound, op, "entity %v is outside the arena of %d slots", id, n)
		}
		s := &slots[id.ID-1]
		if s.live {
			return kerr.New(kerr.ConstraintViolation, op, "entity id %d appears twice", id.ID)
		}
		if len(a.Generations) > 0 && s.gen != id.Generation {
			return kerr.New(kerr.StaleHandle, op, "entity %v but slot is at generation %d", id, s.gen)
		}
		if e.Geometry == nil {
			return kerr.New(kerr.Degenerate, op, "entity %v has no geometry", id)
		}
		if _, ok := layers[e.Layer]; !ok {
			return kerr.New(kerr.UnknownLayer, op, "entity %v is on layer %v", id, e.Layer)
		}
		seq++
		*s = slot{gen: id.Generation, live: true, seq: seq, ent: e.Clone()}
	}

	free := slices.Clone(a.Free)
	if len(a.Generations) == 0 {
		free = free[:0]
		for i := len(slots) - 1; i >= 0; i-- {
			if !slots[i].live {
				free = append(free, uint64(i+1))
			}
		}
	}
	onFree := make(map[uint64]bool, len(free))
	for _, num := range free {
		if num == 0 || num > n || slots[num-1].live {
			return kerr.New(kerr.ConstraintViolation, op, "free list names slot %d which is not free", num)
		}
		if onFree[num] {
			return kerr.New(kerr.ConstraintViolation, op, "free list names slot %d twice", num)
		}
		onFree[num] = true
	}

	d.meta = a.Meta
	d.layers, d.layerOrder, d.nextLayer = layers, order, next
	d.defLayer, d.current = def, current
	d.views = slices.Clone(a.Views)
	d.slots, d.free, d.seq = slots, free, seq
	d.live = len(a.Entities)
	d.hist.reset()

	d.index.Clear()
	for i := range d.slots {
		if s := &d.slots[i]; s.live {
			d.index.Insert(s.ent.ID, s.ent.Bounds())
		}
	}
	logging.Logger().Debug("doc: loaded", "entities", d.live, "layers", len(order), "slots", n)
	return nil
}
