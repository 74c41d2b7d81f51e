package doc

import (
	"fmt"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
)

// Severity indicates whether a finding means the document is corrupt or
// merely worth a look.
type Severity int

const (
	SeverityError   Severity = iota // document state is inconsistent
	SeverityWarning                 // advisory
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single finding.
type ValidationError struct {
	ID       entity.EntityID // entity or layer concerned, Null if document-level
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.ID.IsNull() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %v: %s", e.Severity, e.ID, e.Message)
}

// ValidationWarning is an advisory finding.
type ValidationWarning struct {
	ID      entity.EntityID
	Message string
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether no errors were found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate checks the document in three tiers: structural consistency of
// the arena, layers and index; geometric validity of every entity; and
// advisory warnings about content that will not display as expected.
// It never mutates the document.
func (d *Document) Validate() ValidationResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var r ValidationResult
	r.Errors = append(r.Errors, d.validateStructure()...)
	r.Errors = append(r.Errors, d.validateGeometry()...)
	r.Warnings = d.validateAdvisory()
	return r
}

func (d *Document) validateStructure() []ValidationError {
	var errs []ValidationError
	fail := func(id entity.EntityID, format string, args ...any) {
		errs = append(errs, ValidationError{ID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
	}

	if n := d.index.Len(); n != d.live {
		fail(entity.Null, "spatial index holds %d entries for %d entities", n, d.live)
	}
	live := 0
	for i := range d.slots {
		s := &d.slots[i]
		if !s.live {
			continue
		}
		live++
		id := s.ent.ID
		if id.ID != uint64(i+1) || id.Generation != s.gen {
			fail(id, "stored in slot %d at generation %d", i+1, s.gen)
		}
		if _, ok := d.layers[s.ent.Layer]; !ok {
			fail(id, "references missing layer %v", s.ent.Layer)
		}
		if s.ent.Geometry == nil {
			fail(id, "has no geometry")
			continue
		}
		b, ok := d.index.Bounds(id)
		if !ok {
			fail(id, "missing from spatial index")
		} else if want := s.ent.Bounds(); !geom.VecEqual(b.Min, want.Min, geom.Epsilon) || !geom.VecEqual(b.Max, want.Max, geom.Epsilon) {
			fail(id, "indexed box %v does not match geometry box %v", b, want)
		}
	}
	if live != d.live {
		fail(entity.Null, "live count %d but %d live slots", d.live, live)
	}
	onFree := make(map[uint64]bool, len(d.free))
	for _, num := range d.free {
		switch {
		case num == 0 || num > uint64(len(d.slots)) || d.slots[num-1].live:
			fail(entity.Null, "free list holds slot %d which is not free", num)
		case onFree[num]:
			fail(entity.Null, "free list holds slot %d twice", num)
		}
		onFree[num] = true
	}
	if _, ok := d.layers[d.current]; !ok {
		fail(d.current, "current layer does not exist")
	}
	if l, ok := d.layers[d.defLayer]; !ok || l.Name != entity.DefaultLayerName {
		fail(d.defLayer, "default layer %q is missing", entity.DefaultLayerName)
	}
	return errs
}

func (d *Document) validateGeometry() []ValidationError {
	var errs []ValidationError
	for i := range d.slots {
		s := &d.slots[i]
		if !s.live || s.ent.Geometry == nil {
			continue
		}
		if err := geom.Validate(s.ent.Geometry); err != nil {
			errs = append(errs, ValidationError{ID: s.ent.ID, Message: err.Error(), Severity: SeverityError})
		}
	}
	return errs
}

func (d *Document) validateAdvisory() []ValidationWarning {
	var ws []ValidationWarning
	for i := range d.slots {
		s := &d.slots[i]
		if !s.live {
			continue
		}
		if l, ok := d.layers[s.ent.Layer]; ok && l.Frozen {
			ws = append(ws, ValidationWarning{ID: s.ent.ID, Message: fmt.Sprintf("on frozen layer %q", l.Name)})
		}
		if s.ent.Properties.Color.IsByBlock() {
			ws = append(ws, ValidationWarning{ID: s.ent.ID, Message: "color is ByBlock outside a block and displays white"})
		}
	}
	return ws
}
