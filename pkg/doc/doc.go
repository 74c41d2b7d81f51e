// Package doc is the entity system: an arena of generation-tagged
// entities with layers, named views and a spatial index kept in step with
// every geometry change.
//
// A Document has a single writer. Mutations take an exclusive lock and
// queries a shared one, so a reader never observes the index half way
// through an update. The geometry engines never touch a Document; their
// results come back through the ordinary mutation methods.
package doc

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/zcad/pkg/config"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/kernel"
	"github.com/chazu/zcad/pkg/kernel/exact"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/chazu/zcad/pkg/logging"
	"github.com/chazu/zcad/pkg/spatial"
	"github.com/google/uuid"
)

// Metadata describes the drawing as a whole.
type Metadata struct {
	ID       uuid.UUID
	Title    string
	Units    string
	Created  time.Time
	Modified time.Time
}

// slot is one arena cell. gen is the generation a live occupant carries,
// or the one the next occupant will carry once the slot is freed.
type slot struct {
	gen  uint32
	live bool
	seq  uint64
	ent  entity.Entity
}

// Document owns the entities of one drawing.
type Document struct {
	mu sync.RWMutex

	meta Metadata
	cfg  config.Config
	kern kernel.Kernel

	slots []slot   // slots[i] holds numeric id i+1
	free  []uint64 // freed ids, reused last-in first-out
	live  int
	seq   uint64 // insertion counter for ListByLayer ordering

	layers     map[entity.EntityID]*entity.Layer
	layerOrder []entity.EntityID
	nextLayer  uint64
	current    entity.EntityID
	defLayer   entity.EntityID

	views []entity.View

	index spatial.Index
	hist  history
}

// Option configures New.
type Option func(*Document) error

// WithConfig replaces the default settings.
func WithConfig(c config.Config) Option {
	return func(d *Document) error {
		if err := c.Validate(); err != nil {
			return err
		}
		d.cfg = c
		return nil
	}
}

// WithIndex uses idx instead of building one from the config. idx must be
// empty.
func WithIndex(idx spatial.Index) Option {
	return func(d *Document) error {
		if idx.Len() != 0 {
			return fmt.Errorf("index already holds %d entries", idx.Len())
		}
		d.index = idx
		return nil
	}
}

// WithKernel selects the geometry engine used by the edit helpers.
func WithKernel(k kernel.Kernel) Option {
	return func(d *Document) error {
		d.kern = k
		return nil
	}
}

// WithTitle sets the drawing title.
func WithTitle(title string) Option {
	return func(d *Document) error {
		d.meta.Title = title
		return nil
	}
}

// New returns an empty document holding only the default layer "0".
func New(opts ...Option) (*Document, error) {
	now := time.Now().UTC()
	d := &Document{
		meta:   Metadata{ID: uuid.New(), Created: now, Modified: now},
		cfg:    config.Default(),
		layers: make(map[entity.EntityID]*entity.Layer),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("doc: %w", err)
		}
	}
	if d.index == nil {
		idx, err := spatial.New(d.cfg.Index, d.cfg.CellSize)
		if err != nil {
			return nil, fmt.Errorf("doc: %w", err)
		}
		d.index = idx
	}
	if d.kern == nil {
		d.kern = &exact.Kernel{Crossings: d.cfg.Crossings}
	}
	d.meta.Units = d.cfg.Units
	d.hist.limit = d.cfg.HistoryLimit

	l := entity.NewLayer(entity.DefaultLayerName)
	d.defLayer = d.addLayer(l)
	d.current = d.defLayer

	logging.Logger().Debug("doc: created", "id", d.meta.ID, "index", d.cfg.Index, "kernel", d.kern.Name())
	return d, nil
}

// Meta returns the drawing metadata.
func (d *Document) Meta() Metadata {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meta
}

// SetTitle renames the drawing.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Title = title
	d.touch()
}

// Config returns the settings the document was built with.
func (d *Document) Config() config.Config {
	return d.cfg
}

// Kernel returns the geometry engine used by the edit helpers.
func (d *Document) Kernel() kernel.Kernel {
	return d.kern
}

func (d *Document) touch() {
	d.meta.Modified = time.Now().UTC()
}

// ---------------------------------------------------------------------------
// Arena
// ---------------------------------------------------------------------------

// lookup resolves id to its live slot. Ids that were never allocated are
// NotFound; a generation mismatch or a freed slot is StaleHandle.
func (d *Document) lookup(op string, id entity.EntityID) (*slot, error) {
	if id.ID == 0 || id.ID > uint64(len(d.slots)) {
		return nil, kerr.New(kerr.NotFound, op, "entity %v", id)
	}
	s := &d.slots[id.ID-1]
	if !s.live || s.gen != id.Generation {
		return nil, kerr.New(kerr.StaleHandle, op, "entity %v (slot is at generation %d)", id, s.gen)
	}
	return s, nil
}

// alloc takes the most recently freed id, or grows the arena.
func (d *Document) alloc() entity.EntityID {
	if n := len(d.free); n > 0 {
		num := d.free[n-1]
		d.free = d.free[:n-1]
		return entity.EntityID{ID: num, Generation: d.slots[num-1].gen}
	}
	d.slots = append(d.slots, slot{})
	return entity.EntityID{ID: uint64(len(d.slots))}
}

// insert stores e under a freshly allocated handle.
func (d *Document) insert(e entity.Entity) entity.EntityID {
	id := d.alloc()
	e.ID = id
	d.seq++
	d.slots[id.ID-1] = slot{gen: id.Generation, live: true, seq: d.seq, ent: e}
	d.live++
	d.index.Insert(id, e.Bounds())
	return id
}

// remove frees the slot of a live handle and bumps its generation.
func (d *Document) remove(s *slot) entity.Entity {
	e := s.ent
	if !d.index.Remove(e.ID) {
		panic(fmt.Sprintf("zcad: invariant: entity %v missing from spatial index", e.ID))
	}
	s.live = false
	s.gen++
	s.ent = entity.Entity{}
	d.free = append(d.free, e.ID.ID)
	d.live--
	return e
}

// replace overwrites a live entity, keeping the index in step.
func (d *Document) replace(s *slot, e entity.Entity) {
	old := s.ent
	e.ID = old.ID
	if old.Layer != e.Layer {
		d.seq++
		s.seq = d.seq
	}
	s.ent = e
	d.index.Update(e.ID, old.Bounds(), e.Bounds())
}
