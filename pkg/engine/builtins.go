package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/transform"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to zygomys.
// It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: line-type -> line_type
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters; otherwise
		// it is a minus operator or a negative number.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpEntity wraps an entity handle returned by a drawing command.
type sexpEntity struct {
	id entity.EntityID
}

func (e *sexpEntity) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(entity %s)", e.id)
}
func (e *sexpEntity) Type() *zygo.RegisteredType { return nil }

// sexpPoint is a position, optionally carrying the bulge of the polyline
// segment that starts there.
type sexpPoint struct {
	p     geom.Vec2
	bulge float64
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	if p.bulge != 0 {
		return fmt.Sprintf("(pt %g %g :bulge %g)", p.p.X, p.p.Y, p.bulge)
	}
	return fmt.Sprintf("(pt %g %g)", p.p.X, p.p.Y)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// numbers extracts exactly n positional numbers.
func (a kwArgs) numbers(n int) ([]float64, error) {
	if len(a.positional) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d arguments", n, len(a.positional))
	}
	out := make([]float64, n)
	for i, s := range a.positional {
		f, err := toFloat64(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string or keyword name from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true/false and treats nil as false.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

func toPoint(s zygo.Sexp) (*sexpPoint, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p, nil
	}
	return nil, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
}

// toHandles accepts one entity or a list or array of them.
func toHandles(s zygo.Sexp) ([]entity.EntityID, error) {
	if e, ok := s.(*sexpEntity); ok {
		return []entity.EntityID{e.id}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected entity or list of entities: %w", err)
	}
	ids := make([]entity.EntityID, len(items))
	for i, it := range items {
		e, ok := it.(*sexpEntity)
		if !ok {
			return nil, fmt.Errorf("item %d: expected entity, got %T (%s)", i, it, it.SexpString(nil))
		}
		ids[i] = e.id
	}
	return ids, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func entityList(ids []entity.EntityID) zygo.Sexp {
	items := make([]zygo.Sexp, len(ids))
	for i, id := range ids {
		items[i] = &sexpEntity{id: id}
	}
	return zygo.MakeList(items)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

var errCancelled = errors.New("evaluation cancelled")

// session is the state shared by the builtins of one evaluation. mu is
// held by each running command, so once cancel returns no command can
// touch the document.
type session struct {
	doc *doc.Document

	mu        sync.Mutex
	cancelled atomic.Bool
	finished  bool
	txn       *doc.Txn
	created   []entity.EntityID
}

func newSession(d *doc.Document) *session {
	return &session{doc: d}
}

// cancel stops the session and rolls back its open transaction. It waits
// for a command already running to finish, and reports false if the
// evaluation had already finished.
func (s *session) cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	s.cancelled.Store(true)
	if s.txn != nil {
		s.txn.Rollback()
	}
	return true
}

// interrupt is installed as a pre-call hook so that a cancelled script
// stops at its next function call even if it never reaches a drawing
// command. zygomys offers no other way to halt Run.
func (s *session) interrupt(*zygo.Zlisp, string, []zygo.Sexp) {
	if s.cancelled.Load() {
		panic(errCancelled)
	}
}

// props resolves the :layer, :color, :linetype and :weight keywords of a
// drawing command. A missing :layer means the current layer.
func (s *session) props(a kwArgs) (entity.Properties, entity.EntityID, error) {
	p := entity.DefaultProperties()
	layer := entity.Null
	if v, ok := a.kw["layer"]; ok {
		name, err := toString(v)
		if err != nil {
			return p, layer, fmt.Errorf("layer: %w", err)
		}
		l, found := s.doc.LayerByName(name)
		if !found {
			return p, layer, fmt.Errorf("layer: no layer named %q", name)
		}
		layer = l.ID
	}
	if v, ok := a.kw["color"]; ok {
		name, err := toString(v)
		if err != nil {
			return p, layer, fmt.Errorf("color: %w", err)
		}
		if p.Color, err = entity.ParseColor(name); err != nil {
			return p, layer, err
		}
	}
	if v, ok := a.kw["linetype"]; ok {
		name, err := toString(v)
		if err != nil {
			return p, layer, fmt.Errorf("linetype: %w", err)
		}
		if p.LineType, err = entity.ParseLineType(name); err != nil {
			return p, layer, err
		}
	}
	if v, ok := a.kw["weight"]; ok {
		w, err := toFloat64(v)
		if err != nil {
			return p, layer, fmt.Errorf("weight: %w", err)
		}
		p.LineWeight = entity.LineWeight(w)
	}
	return p, layer, nil
}

// create stores g with the command's keyword properties.
func (s *session) create(g geom.Geometry, a kwArgs) (zygo.Sexp, error) {
	p, layer, err := s.props(a)
	if err != nil {
		return zygo.SexpNull, err
	}
	id, err := s.doc.Create(g, p, layer)
	if err != nil {
		return zygo.SexpNull, err
	}
	s.created = append(s.created, id)
	return &sexpEntity{id: id}, nil
}

// aboutPoint reads the :about keyword, defaulting to the origin.
func aboutPoint(a kwArgs) (geom.Vec2, error) {
	v, ok := a.kw["about"]
	if !ok {
		return geom.Vec2{}, nil
	}
	p, err := toPoint(v)
	if err != nil {
		return geom.Vec2{}, fmt.Errorf("about: %w", err)
	}
	return p.p, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// command adapts a builtin so that it fails once the evaluation has been
// cancelled and so that its errors name the command.
func (s *session) command(name string, fn func(a kwArgs) (zygo.Sexp, error)) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cancelled.Load() {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, errCancelled)
		}
		v, err := fn(parseArgs(args))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
}

// registerBuiltins installs the drawing commands into a zygomys
// environment. Angles are in degrees.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {
	env.AddPreHook(s.interrupt)
	add := func(name string, fn func(a kwArgs) (zygo.Sexp, error)) {
		env.AddFunction(name, s.command(name, fn))
	}

	// (pt x y :bulge 0.5)
	add("pt", func(a kwArgs) (zygo.Sexp, error) {
		n, err := a.numbers(2)
		if err != nil {
			return zygo.SexpNull, err
		}
		p := &sexpPoint{p: geom.V(n[0], n[1])}
		if v, ok := a.kw["bulge"]; ok {
			if p.bulge, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("bulge: %w", err)
			}
		}
		return p, nil
	})

	// (layer "walls" :color "red")
	add("layer", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("expected a layer name")
		}
		name, err := toString(a.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		l, found := s.doc.LayerByName(name)
		id := l.ID
		if !found {
			if id, err = s.doc.CreateLayer(name); err != nil {
				return zygo.SexpNull, err
			}
		}
		if v, ok := a.kw["color"]; ok {
			cs, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("color: %w", err)
			}
			c, err := entity.ParseColor(cs)
			if err != nil {
				return zygo.SexpNull, err
			}
			if err := s.doc.UpdateLayer(id, func(l *entity.Layer) { l.Color = c }); err != nil {
				return zygo.SexpNull, err
			}
		}
		if err := s.doc.SetCurrentLayer(id); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: name}, nil
	})

	// (point x y)
	add("point", func(a kwArgs) (zygo.Sexp, error) {
		n, err := a.numbers(2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return s.create(geom.Point{P: geom.V(n[0], n[1])}, a)
	})

	// (line x1 y1 x2 y2)
	add("line", func(a kwArgs) (zygo.Sexp, error) {
		n, err := a.numbers(4)
		if err != nil {
			return zygo.SexpNull, err
		}
		return s.create(geom.Line{Start: geom.V(n[0], n[1]), End: geom.V(n[2], n[3])}, a)
	})

	// (circle cx cy r)
	add("circle", func(a kwArgs) (zygo.Sexp, error) {
		n, err := a.numbers(3)
		if err != nil {
			return zygo.SexpNull, err
		}
		c := geom.Circle{Center: geom.V(n[0], n[1]), Radius: n[2]}
		if err := geom.Validate(c); err != nil {
			return zygo.SexpNull, err
		}
		return s.create(c, a)
	})

	// (arc cx cy r start end), counter-clockwise from start to end
	add("arc", func(a kwArgs) (zygo.Sexp, error) {
		n, err := a.numbers(5)
		if err != nil {
			return zygo.SexpNull, err
		}
		arc := geom.Arc{Center: geom.V(n[0], n[1]), Radius: n[2], Start: radians(n[3]), End: radians(n[4])}
		if err := geom.Validate(arc); err != nil {
			return zygo.SexpNull, err
		}
		return s.create(arc, a)
	})

	// (arc3 (pt x1 y1) (pt x2 y2) (pt x3 y3)) through three points
	add("arc3", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("expected 3 points, got %d arguments", len(a.positional))
		}
		var pts [3]geom.Vec2
		for i, v := range a.positional {
			p, err := toPoint(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point %d: %w", i+1, err)
			}
			pts[i] = p.p
		}
		arc, ok := geom.ArcThrough(pts[0], pts[1], pts[2])
		if !ok {
			return zygo.SexpNull, fmt.Errorf("points are collinear")
		}
		return s.create(arc, a)
	})

	// (pline (pt 0 0) (pt 10 0 :bulge 1) (pt 10 10) :closed true)
	add("pline", func(a kwArgs) (zygo.Sexp, error) {
		var pl geom.Polyline
		for i, v := range a.positional {
			p, err := toPoint(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vertex %d: %w", i+1, err)
			}
			pl.Vertices = append(pl.Vertices, geom.Vertex{P: p.p, Bulge: p.bulge})
		}
		if v, ok := a.kw["closed"]; ok {
			c, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("closed: %w", err)
			}
			pl.Closed = c
		}
		if err := geom.Validate(pl); err != nil {
			return zygo.SexpNull, err
		}
		return s.create(pl, a)
	})

	transformCmd := func(name string, build func(a kwArgs, rest []float64) (transform.Matrix, error), nums int) {
		add(name, func(a kwArgs) (zygo.Sexp, error) {
			if len(a.positional) != nums+1 {
				return zygo.SexpNull, fmt.Errorf("expected entities and %d numbers", nums)
			}
			ids, err := toHandles(a.positional[0])
			if err != nil {
				return zygo.SexpNull, err
			}
			rest := kwArgs{kw: a.kw, positional: a.positional[1:]}
			n, err := rest.numbers(nums)
			if err != nil {
				return zygo.SexpNull, err
			}
			m, err := build(a, n)
			if err != nil {
				return zygo.SexpNull, err
			}
			if err := s.doc.Transform(ids, m); err != nil {
				return zygo.SexpNull, err
			}
			return entityList(ids), nil
		})
	}

	// (move e dx dy)
	transformCmd("move", func(_ kwArgs, n []float64) (transform.Matrix, error) {
		return transform.Translate(n[0], n[1]), nil
	}, 2)

	// (rotate e degrees :about (pt x y))
	transformCmd("rotate", func(a kwArgs, n []float64) (transform.Matrix, error) {
		c, err := aboutPoint(a)
		return transform.RotateAbout(c, radians(n[0])), err
	}, 1)

	// (scale e factor :about (pt x y))
	transformCmd("scale", func(a kwArgs, n []float64) (transform.Matrix, error) {
		if n[0] == 0 {
			return transform.Matrix{}, fmt.Errorf("scale factor is zero")
		}
		c, err := aboutPoint(a)
		return transform.ScaleAbout(c, n[0], n[0]), err
	}, 1)

	// (mirror e (pt x1 y1) (pt x2 y2))
	add("mirror", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("expected entities and two points")
		}
		ids, err := toHandles(a.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		p1, err := toPoint(a.positional[1])
		if err != nil {
			return zygo.SexpNull, err
		}
		p2, err := toPoint(a.positional[2])
		if err != nil {
			return zygo.SexpNull, err
		}
		m, err := transform.MirrorLine(p1.p, p2.p)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := s.doc.Transform(ids, m); err != nil {
			return zygo.SexpNull, err
		}
		return entityList(ids), nil
	})

	// (copy e dx dy) returns the list of copies
	add("copy", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("expected entities, dx and dy")
		}
		ids, err := toHandles(a.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		n, err := kwArgs{positional: a.positional[1:]}.numbers(2)
		if err != nil {
			return zygo.SexpNull, err
		}
		copies, err := s.doc.Copy(ids, transform.Translate(n[0], n[1]))
		if err != nil {
			return zygo.SexpNull, err
		}
		s.created = append(s.created, copies...)
		return entityList(copies), nil
	})

	// (offset e distance :toward (pt x y))
	add("offset", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("expected an entity and a distance")
		}
		ids, err := toHandles(a.positional[0])
		if err != nil || len(ids) != 1 {
			return zygo.SexpNull, fmt.Errorf("expected a single entity")
		}
		d, err := toFloat64(a.positional[1])
		if err != nil {
			return zygo.SexpNull, err
		}
		tol := s.doc.Config().Tolerance
		var id entity.EntityID
		if v, ok := a.kw["toward"]; ok {
			p, perr := toPoint(v)
			if perr != nil {
				return zygo.SexpNull, fmt.Errorf("toward: %w", perr)
			}
			id, err = s.doc.OffsetToward(ids[0], p.p, d, tol)
		} else {
			id, err = s.doc.Offset(ids[0], d, tol)
		}
		if err != nil {
			return zygo.SexpNull, err
		}
		s.created = append(s.created, id)
		return &sexpEntity{id: id}, nil
	})

	// (erase e)
	add("erase", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("expected entities")
		}
		ids, err := toHandles(a.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		for _, id := range ids {
			if err := s.doc.Delete(id); err != nil {
				return zygo.SexpNull, err
			}
			s.created = slices.DeleteFunc(s.created, func(c entity.EntityID) bool { return c == id })
		}
		return &zygo.SexpInt{Val: int64(len(ids))}, nil
	})

	// (intersects a b)
	add("intersects", func(a kwArgs) (zygo.Sexp, error) {
		if len(a.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("expected two entities")
		}
		var ids [2]entity.EntityID
		for i, v := range a.positional {
			e, ok := v.(*sexpEntity)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("argument %d: expected entity, got %T", i+1, v)
			}
			ids[i] = e.id
		}
		hit, err := s.doc.Intersects(ids[0], ids[1], s.doc.Config().Tolerance)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpBool{Val: hit}, nil
	})

	// (count) or (count :layer "walls")
	add("count", func(a kwArgs) (zygo.Sexp, error) {
		if v, ok := a.kw["layer"]; ok {
			name, err := toString(v)
			if err != nil {
				return zygo.SexpNull, err
			}
			l, found := s.doc.LayerByName(name)
			if !found {
				return zygo.SexpNull, fmt.Errorf("no layer named %q", name)
			}
			return &zygo.SexpInt{Val: int64(len(s.doc.ListByLayer(l.ID)))}, nil
		}
		return &zygo.SexpInt{Val: int64(s.doc.Len())}, nil
	})
}
