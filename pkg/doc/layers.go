package doc

import (
	"slices"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/kerr"
)

// addLayer assigns the next layer id. Layer ids are never reused.
func (d *Document) addLayer(l entity.Layer) entity.EntityID {
	d.nextLayer++
	l.ID = entity.EntityID{ID: d.nextLayer}
	d.putLayer(l)
	return l.ID
}

// putLayer stores l under its own id, keeping layerOrder sorted by id so
// an undone delete returns the layer to its original position.
func (d *Document) putLayer(l entity.Layer) {
	if _, ok := d.layers[l.ID]; !ok {
		i, _ := slices.BinarySearchFunc(d.layerOrder, l.ID, entity.Compare)
		d.layerOrder = slices.Insert(d.layerOrder, i, l.ID)
	}
	d.layers[l.ID] = &l
	if l.ID.ID > d.nextLayer {
		d.nextLayer = l.ID.ID
	}
}

func (d *Document) dropLayer(id entity.EntityID) {
	delete(d.layers, id)
	if i, ok := slices.BinarySearchFunc(d.layerOrder, id, entity.Compare); ok {
		d.layerOrder = slices.Delete(d.layerOrder, i, i+1)
	}
}

func (d *Document) layerByName(name string) *entity.Layer {
	for _, id := range d.layerOrder {
		if l := d.layers[id]; l.Name == name {
			return l
		}
	}
	return nil
}

// DefaultLayer returns the id of layer "0".
func (d *Document) DefaultLayer() entity.EntityID {
	return d.defLayer
}

// CreateLayer adds a layer with default appearance. Names are unique.
func (d *Document) CreateLayer(name string) (entity.EntityID, error) {
	const op = "doc.CreateLayer"
	d.mu.Lock()
	defer d.mu.Unlock()
	if name == "" {
		return entity.Null, kerr.New(kerr.ConstraintViolation, op, "layer name is empty")
	}
	if d.layerByName(name) != nil {
		return entity.Null, kerr.New(kerr.ConstraintViolation, op, "layer %q already exists", name)
	}
	id := d.addLayer(entity.NewLayer(name))
	d.record(change{kind: layerCreated, layerAfter: *d.layers[id]})
	d.touch()
	return id, nil
}

// Layer returns a copy of the layer behind id.
func (d *Document) Layer(id entity.EntityID) (entity.Layer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.layers[id]
	if !ok {
		return entity.Layer{}, kerr.New(kerr.UnknownLayer, "doc.Layer", "layer %v", id)
	}
	return *l, nil
}

// LayerByName finds a layer by its exact name.
func (d *Document) LayerByName(name string) (entity.Layer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if l := d.layerByName(name); l != nil {
		return *l, true
	}
	return entity.Layer{}, false
}

// Layers returns every layer in creation order.
func (d *Document) Layers() []entity.Layer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]entity.Layer, len(d.layerOrder))
	for i, id := range d.layerOrder {
		out[i] = *d.layers[id]
	}
	return out
}

// UpdateLayer applies fn to a copy of the layer and stores the result.
// The id cannot change; a rename must stay unique and layer "0" keeps its
// name.
func (d *Document) UpdateLayer(id entity.EntityID, fn func(*entity.Layer)) error {
	const op = "doc.UpdateLayer"
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[id]
	if !ok {
		return kerr.New(kerr.UnknownLayer, op, "layer %v", id)
	}
	before := *l
	after := *l
	fn(&after)
	after.ID = id
	if after.Name != before.Name {
		switch {
		case id == d.defLayer:
			return kerr.New(kerr.ConstraintViolation, op, "layer %q cannot be renamed", entity.DefaultLayerName)
		case after.Name == "":
			return kerr.New(kerr.ConstraintViolation, op, "layer name is empty")
		case d.layerByName(after.Name) != nil:
			return kerr.New(kerr.ConstraintViolation, op, "layer %q already exists", after.Name)
		}
	}
	*l = after
	d.record(change{kind: layerModified, layerBefore: before, layerAfter: after})
	d.touch()
	return nil
}

// DeleteLayer removes an empty layer. Layer "0" and layers that still
// hold entities cannot be deleted. Deleting the current layer makes layer
// "0" current.
func (d *Document) DeleteLayer(id entity.EntityID) error {
	const op = "doc.DeleteLayer"
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[id]
	if !ok {
		return kerr.New(kerr.UnknownLayer, op, "layer %v", id)
	}
	if id == d.defLayer {
		return kerr.New(kerr.ConstraintViolation, op, "layer %q cannot be deleted", entity.DefaultLayerName)
	}
	if n := d.layerMembers(id); n > 0 {
		return kerr.New(kerr.ConstraintViolation, op, "layer %q still holds %d entities", l.Name, n)
	}
	var cs []change
	if d.current == id {
		cs = append(cs, change{kind: currentChanged, curBefore: id, curAfter: d.defLayer})
		d.current = d.defLayer
	}
	before := *l
	d.dropLayer(id)
	cs = append(cs, change{kind: layerDeleted, layerBefore: before})
	d.recordStep(changeLabels[layerDeleted], cs...)
	d.touch()
	return nil
}

// CurrentLayer returns the layer new entities go to by default.
func (d *Document) CurrentLayer() entity.EntityID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// SetCurrentLayer selects the default layer for new entities.
func (d *Document) SetCurrentLayer(id entity.EntityID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layers[id]; !ok {
		return kerr.New(kerr.UnknownLayer, "doc.SetCurrentLayer", "layer %v", id)
	}
	d.setCurrent(id)
	return nil
}

func (d *Document) setCurrent(id entity.EntityID) {
	if d.current == id {
		return
	}
	d.record(change{kind: currentChanged, curBefore: d.current, curAfter: id})
	d.current = id
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

// SaveView stores v, replacing any view with the same name.
func (d *Document) SaveView(v entity.View) error {
	const op = "doc.SaveView"
	if v.Name == "" {
		return kerr.New(kerr.ConstraintViolation, op, "view name is empty")
	}
	if v.Zoom <= 0 {
		return kerr.New(kerr.ConstraintViolation, op, "view %q zoom %g must be positive", v.Name, v.Zoom)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.views {
		if d.views[i].Name == v.Name {
			d.views[i] = v
			d.touch()
			return nil
		}
	}
	d.views = append(d.views, v)
	d.touch()
	return nil
}

// View finds a saved view by name.
func (d *Document) View(name string) (entity.View, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.views {
		if v.Name == name {
			return v, true
		}
	}
	return entity.View{}, false
}

// Views returns the saved views in the order they were first saved.
func (d *Document) Views() []entity.View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.views)
}

// DeleteView removes a saved view and reports whether it existed.
func (d *Document) DeleteView(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.views)
	d.views = slices.DeleteFunc(d.views, func(v entity.View) bool { return v.Name == name })
	if len(d.views) != n {
		d.touch()
		return true
	}
	return false
}
