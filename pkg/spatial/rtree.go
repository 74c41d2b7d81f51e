package spatial

import (
	"math"
	"sync"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"
)

// Compile-time interface check.
var _ Index = (*RTree)(nil)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// rtItem is the value stored in the tree. rtreego rejects zero-extent
// rectangles, so rect is padded slightly; box keeps the exact extent.
type rtItem struct {
	id   entity.EntityID
	box  geom.Box
	rect rtreego.Rect
}

func (it *rtItem) Bounds() rtreego.Rect { return it.rect }

// RTree is an Index backed by an R-tree. It trades the grid's constant
// cell lookups for logarithmic queries that do not depend on a cell size.
type RTree struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	items map[entity.EntityID]*rtItem
}

// NewRTree returns an empty R-tree index.
func NewRTree() *RTree {
	return &RTree{
		tree:  rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
		items: make(map[entity.EntityID]*rtItem),
	}
}

// paddedRect converts b to an rtreego rectangle grown by a scale-relative
// margin so that degenerate and touching boxes still register.
func paddedRect(b geom.Box) rtreego.Rect {
	mag := math.Max(math.Max(math.Abs(b.Min.X), math.Abs(b.Max.X)), math.Max(math.Abs(b.Min.Y), math.Abs(b.Max.Y)))
	pad := 1e-9 * (1 + mag)
	p := rtreego.Point{b.Min.X - pad, b.Min.Y - pad}
	lengths := []float64{b.Max.X - b.Min.X + 2*pad, b.Max.Y - b.Min.Y + 2*pad}
	r, err := rtreego.NewRect(p, lengths)
	if err != nil {
		panic("zcad: invariant: padded rectangle rejected: " + err.Error())
	}
	return r
}

func (t *RTree) Insert(id entity.EntityID, box geom.Box) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(id)
	t.insert(id, box)
}

func (t *RTree) Remove(id entity.EntityID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove(id)
}

func (t *RTree) Update(id entity.EntityID, _, box geom.Box) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(id)
	t.insert(id, box)
}

func (t *RTree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tree = rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	t.items = make(map[entity.EntityID]*rtItem)
}

func (t *RTree) insert(id entity.EntityID, box geom.Box) {
	it := &rtItem{id: id, box: box, rect: paddedRect(box)}
	t.items[id] = it
	t.tree.Insert(it)
}

func (t *RTree) remove(id entity.EntityID) bool {
	it, ok := t.items[id]
	if !ok {
		return false
	}
	delete(t.items, id)
	t.tree.Delete(it)
	return true
}

func (t *RTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *RTree) Bounds(id entity.EntityID) (geom.Box, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	it, ok := t.items[id]
	if !ok {
		return geom.Box{}, false
	}
	return it.box, true
}

func (t *RTree) QueryRect(r geom.Box) []entity.EntityID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.queryRect(r)
}

func (t *RTree) QueryPoint(p geom.Vec2, tol float64) []entity.EntityID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.queryRect(pointQueryBox(p, tol))
}

func (t *RTree) queryRect(r geom.Box) []entity.EntityID {
	if len(t.items) == 0 {
		return nil
	}
	var out []entity.EntityID
	for _, s := range t.tree.SearchIntersect(paddedRect(r)) {
		it := s.(*rtItem)
		if geom.Overlaps(it.box, r) {
			out = append(out, it.id)
		}
	}
	return sortIDs(out)
}

// QueryNearest searches squares of growing half-width around p. Every
// entity whose center lies within the half-width has a box reaching into
// the square, so those candidates are final.
func (t *RTree) QueryNearest(p geom.Vec2, n int) []entity.EntityID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := len(t.items)
	if n <= 0 || total == 0 {
		return nil
	}
	boxOf := func(id entity.EntityID) geom.Box { return t.items[id].box }

	for half := 1.0; half < 1e300; half *= 4 {
		hits := t.queryRect(geom.Expand(geom.BoxOf(p), half))
		if len(hits) == total {
			return nearestOf(p, n, boxOf, hits)
		}
		near := lo.CountBy(hits, func(id entity.EntityID) bool {
			return geom.Dist(geom.Center(boxOf(id)), p) <= half
		})
		if near >= n {
			return nearestOf(p, n, boxOf, hits)
		}
	}
	return nearestOf(p, n, boxOf, lo.Keys(t.items))
}
