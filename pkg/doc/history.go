package doc

import (
	"fmt"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/kerr"
	"github.com/chazu/zcad/pkg/logging"
)

type changeKind int

const (
	entityCreated changeKind = iota
	entityDeleted
	entityModified
	layerCreated
	layerDeleted
	layerModified
	currentChanged
)

var changeLabels = [...]string{"create", "delete", "modify", "create layer", "delete layer", "modify layer", "set current layer"}

// change is one reversible mutation. Entity changes keep full copies of
// the entity on each side; geometry values are never mutated in place, so
// sharing them with the live document is safe.
type change struct {
	kind          changeKind
	before, after entity.Entity

	layerBefore, layerAfter entity.Layer
	curBefore, curAfter     entity.EntityID
}

type step struct {
	label   string
	changes []change
}

// history is the undo and redo stacks. Undoing a delete or redoing a
// create goes through the arena's normal allocation and so produces a new
// handle; remap links each handle recorded in history to its replacement
// so older steps still find their entity. Handles held outside the
// document are not remapped and stay stale.
type history struct {
	limit     int
	undo      []step
	redo      []step
	open      *step
	replaying bool
	remap     map[entity.EntityID]entity.EntityID
}

func (h *history) resolve(id entity.EntityID) entity.EntityID {
	for {
		next, ok := h.remap[id]
		if !ok {
			return id
		}
		id = next
	}
}

func (h *history) link(old, id entity.EntityID) {
	if old == id {
		return
	}
	if h.remap == nil {
		h.remap = make(map[entity.EntityID]entity.EntityID)
	}
	h.remap[old] = id
}

func (h *history) push(s step) {
	if h.limit <= 0 {
		return
	}
	h.undo = append(h.undo, s)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = append(h.undo[:0:0], h.undo[over:]...)
	}
}

// commit records s as the newest step. The redo stack is discarded and
// remap entries no remaining step can reach are dropped with it.
func (h *history) commit(s step) {
	h.redo = nil
	h.push(s)
	h.prune()
}

// prune keeps only the remap chains that start at a handle recorded in
// the undo or redo stack.
func (h *history) prune() {
	if len(h.remap) == 0 {
		return
	}
	kept := make(map[entity.EntityID]entity.EntityID)
	follow := func(id entity.EntityID) {
		for {
			next, ok := h.remap[id]
			if !ok {
				return
			}
			if _, seen := kept[id]; seen {
				return
			}
			kept[id] = next
			id = next
		}
	}
	for _, stack := range [][]step{h.undo, h.redo} {
		for _, st := range stack {
			for _, c := range st.changes {
				switch c.kind {
				case entityCreated:
					follow(c.after.ID)
				case entityDeleted, entityModified:
					follow(c.before.ID)
				}
			}
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	h.remap = kept
}

func (h *history) reset() {
	*h = history{limit: h.limit}
}

// record notes c in the open transaction or as a step of its own. Caller
// holds the write lock.
func (d *Document) record(c change) {
	d.recordStep(changeLabels[c.kind], c)
}

// recordStep notes cs as one step, or adds them to the open transaction.
func (d *Document) recordStep(label string, cs ...change) {
	h := &d.hist
	if h.replaying {
		return
	}
	if h.open != nil {
		h.open.changes = append(h.open.changes, cs...)
		return
	}
	h.commit(step{label: label, changes: cs})
}

// Transaction runs fn and records every mutation it makes as a single
// undo step. If fn returns an error, the mutations are reverted and the
// error is returned. Nested calls join the outermost transaction.
//
// fn runs without the document lock held and must make its changes
// through the Document's methods.
func (d *Document) Transaction(label string, fn func() error) (err error) {
	d.mu.Lock()
	if d.hist.open != nil {
		d.mu.Unlock()
		return fn()
	}
	t := d.begin(label)
	d.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			t.Rollback()
			panic(p)
		}
		if err != nil {
			t.Rollback()
			return
		}
		err = t.Commit()
	}()
	return fn()
}

// Txn is a transaction opened with Begin. Every mutation made through the
// document while it is open, from any goroutine, joins it.
type Txn struct {
	d  *Document
	st *step
}

// Begin opens a transaction that the caller ends with Commit or Rollback.
// Unlike Transaction it may be ended from a different goroutine than the
// one making the changes. It fails if a transaction is already open.
func (d *Document) Begin(label string) (*Txn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hist.open != nil {
		return nil, kerr.New(kerr.ConstraintViolation, "doc.Begin", "transaction %q is open", d.hist.open.label)
	}
	return d.begin(label), nil
}

// begin opens a transaction. Caller holds the write lock.
func (d *Document) begin(label string) *Txn {
	st := &step{label: label}
	d.hist.open = st
	return &Txn{d: d, st: st}
}

// Commit closes the transaction and records its changes as one undo step.
// It fails if the transaction was already ended.
func (t *Txn) Commit() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if t.d.hist.open != t.st {
		return kerr.New(kerr.ConstraintViolation, "doc.Commit", "transaction %q already ended", t.st.label)
	}
	t.d.hist.open = nil
	if len(t.st.changes) > 0 {
		t.d.hist.commit(*t.st)
	}
	return nil
}

// Rollback reverts the transaction's changes and closes it. Rolling back
// an ended transaction does nothing.
func (t *Txn) Rollback() {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if t.d.hist.open != t.st {
		return
	}
	t.d.hist.open = nil
	t.d.rollback(t.st)
	logging.Logger().Debug("doc: transaction rolled back", "label", t.st.label, "changes", len(t.st.changes))
}

func (d *Document) rollback(st *step) {
	if err := d.replay(st, false); err != nil {
		panic(fmt.Sprintf("zcad: invariant: rollback of %q failed: %v", st.label, err))
	}
}

// CanUndo reports whether there is a step to undo.
func (d *Document) CanUndo() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hist.undo) > 0
}

// CanRedo reports whether there is an undone step to reapply.
func (d *Document) CanRedo() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hist.redo) > 0
}

// Undo reverts the most recent step and returns its label.
func (d *Document) Undo() (string, error) {
	return d.travel("doc.Undo", &d.hist.undo, &d.hist.redo, false)
}

// Redo reapplies the most recently undone step and returns its label.
func (d *Document) Redo() (string, error) {
	return d.travel("doc.Redo", &d.hist.redo, &d.hist.undo, true)
}

func (d *Document) travel(op string, from, to *[]step, forward bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hist.open != nil {
		return "", kerr.New(kerr.ConstraintViolation, op, "transaction %q is open", d.hist.open.label)
	}
	n := len(*from)
	if n == 0 {
		return "", kerr.New(kerr.ConstraintViolation, op, "history is empty")
	}
	st := (*from)[n-1]
	*from = (*from)[:n-1]
	if err := d.replay(&st, forward); err != nil {
		return "", err
	}
	*to = append(*to, st)
	d.touch()
	return st.label, nil
}

// replay applies a step forward, or its inverse in reverse order.
func (d *Document) replay(st *step, forward bool) error {
	d.hist.replaying = true
	defer func() { d.hist.replaying = false }()
	n := len(st.changes)
	for i := 0; i < n; i++ {
		c := st.changes[i]
		if !forward {
			c = st.changes[n-1-i]
		}
		if err := d.apply(c, forward); err != nil {
			return fmt.Errorf("doc: replay %q: %w", st.label, err)
		}
	}
	return nil
}

func (d *Document) apply(c change, forward bool) error {
	const op = "doc.replay"
	switch c.kind {
	case entityCreated, entityDeleted:
		e := c.after
		if c.kind == entityDeleted {
			e = c.before
		}
		if forward == (c.kind == entityCreated) {
			d.hist.link(e.ID, d.insert(e))
			return nil
		}
		s, err := d.lookup(op, d.hist.resolve(e.ID))
		if err != nil {
			return err
		}
		d.remove(s)

	case entityModified:
		s, err := d.lookup(op, d.hist.resolve(c.before.ID))
		if err != nil {
			return err
		}
		target := c.before
		if forward {
			target = c.after
		}
		d.replace(s, target)

	case layerCreated, layerDeleted:
		l := c.layerAfter
		if c.kind == layerDeleted {
			l = c.layerBefore
		}
		if forward == (c.kind == layerCreated) {
			d.putLayer(l)
		} else {
			if n := d.layerMembers(l.ID); n > 0 {
				return kerr.New(kerr.ConstraintViolation, op, "layer %q still holds %d entities", l.Name, n)
			}
			d.dropLayer(l.ID)
		}

	case layerModified:
		l := c.layerBefore
		if forward {
			l = c.layerAfter
		}
		d.putLayer(l)

	case currentChanged:
		d.current = c.curBefore
		if forward {
			d.current = c.curAfter
		}
	}
	return nil
}
