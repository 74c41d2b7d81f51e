package spatial

import (
	"math"
	"sync"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/samber/lo"
)

// DefaultCellSize is the grid pitch used when none is configured.
const DefaultCellSize = 100.0

// MaxCellsPerEntity caps how many cells one entity is registered in.
// Larger entities go to an overflow set that every query scans.
const MaxCellsPerEntity = 4096

// maxCellCoord keeps cell keys inside the range where float64 still
// resolves integers.
const maxCellCoord = 1 << 52

// Compile-time interface check.
var _ Index = (*Grid)(nil)

type cellKey struct {
	X, Y int64
}

type cellRange struct {
	x0, y0, x1, y1 int64
}

func (r cellRange) count() float64 {
	return float64(r.x1-r.x0+1) * float64(r.y1-r.y0+1)
}

// Grid is a uniform-grid index. An entity is registered in every cell its
// box touches; cell (i, j) covers [i·cs, (i+1)·cs) × [j·cs, (j+1)·cs).
type Grid struct {
	mu        sync.RWMutex
	cellSize  float64
	cells     map[cellKey]map[entity.EntityID]struct{}
	boxes     map[entity.EntityID]geom.Box
	oversized map[entity.EntityID]struct{}
}

// NewGrid returns an empty grid. A non-positive cellSize selects
// DefaultCellSize.
func NewGrid(cellSize float64) *Grid {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize:  cellSize,
		cells:     make(map[cellKey]map[entity.EntityID]struct{}),
		boxes:     make(map[entity.EntityID]geom.Box),
		oversized: make(map[entity.EntityID]struct{}),
	}
}

// CellSize returns the grid pitch.
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) coord(v float64) int64 {
	c := math.Floor(v / g.cellSize)
	if c > maxCellCoord {
		return maxCellCoord
	}
	if c < -maxCellCoord {
		return -maxCellCoord
	}
	return int64(c)
}

func (g *Grid) boxOf(id entity.EntityID) geom.Box { return g.boxes[id] }

func (g *Grid) cellOf(p geom.Vec2) cellKey {
	return cellKey{X: g.coord(p.X), Y: g.coord(p.Y)}
}

func (g *Grid) rangeOf(b geom.Box) cellRange {
	return cellRange{
		x0: g.coord(b.Min.X), y0: g.coord(b.Min.Y),
		x1: g.coord(b.Max.X), y1: g.coord(b.Max.Y),
	}
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

func (g *Grid) Insert(id entity.EntityID, box geom.Box) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remove(id)
	g.insert(id, box)
}

func (g *Grid) Remove(id entity.EntityID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remove(id)
}

// Update removes and reinserts under a single write lock.
func (g *Grid) Update(id entity.EntityID, old, box geom.Box) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.remove(id) {
		g.removeFrom(id, old)
	}
	g.insert(id, box)
}

func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells = make(map[cellKey]map[entity.EntityID]struct{})
	g.boxes = make(map[entity.EntityID]geom.Box)
	g.oversized = make(map[entity.EntityID]struct{})
}

func (g *Grid) insert(id entity.EntityID, box geom.Box) {
	g.boxes[id] = box
	r := g.rangeOf(box)
	if r.count() > MaxCellsPerEntity {
		g.oversized[id] = struct{}{}
		return
	}
	for x := r.x0; x <= r.x1; x++ {
		for y := r.y0; y <= r.y1; y++ {
			k := cellKey{X: x, Y: y}
			set := g.cells[k]
			if set == nil {
				set = make(map[entity.EntityID]struct{})
				g.cells[k] = set
			}
			set[id] = struct{}{}
		}
	}
}

func (g *Grid) remove(id entity.EntityID) bool {
	box, ok := g.boxes[id]
	if !ok {
		return false
	}
	delete(g.boxes, id)
	if _, big := g.oversized[id]; big {
		delete(g.oversized, id)
		return true
	}
	g.removeFrom(id, box)
	return true
}

func (g *Grid) removeFrom(id entity.EntityID, box geom.Box) {
	r := g.rangeOf(box)
	if r.count() > MaxCellsPerEntity {
		return
	}
	for x := r.x0; x <= r.x1; x++ {
		for y := r.y0; y <= r.y1; y++ {
			k := cellKey{X: x, Y: y}
			if set := g.cells[k]; set != nil {
				delete(set, id)
				if len(set) == 0 {
					delete(g.cells, k)
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.boxes)
}

func (g *Grid) Bounds(id entity.EntityID) (geom.Box, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.boxes[id]
	return b, ok
}

func (g *Grid) QueryRect(r geom.Box) []entity.EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.queryRect(r)
}

func (g *Grid) QueryPoint(p geom.Vec2, tol float64) []entity.EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.queryRect(pointQueryBox(p, tol))
}

func (g *Grid) queryRect(r geom.Box) []entity.EntityID {
	if len(g.boxes) == 0 {
		return nil
	}
	cr := g.rangeOf(r)
	// A query spanning more cells than there are entities is cheaper as a
	// straight scan.
	if cr.count() > float64(len(g.boxes)) {
		var out []entity.EntityID
		for id, b := range g.boxes {
			if geom.Overlaps(b, r) {
				out = append(out, id)
			}
		}
		return sortIDs(out)
	}

	found := make(map[entity.EntityID]struct{})
	for x := cr.x0; x <= cr.x1; x++ {
		for y := cr.y0; y <= cr.y1; y++ {
			for id := range g.cells[cellKey{X: x, Y: y}] {
				found[id] = struct{}{}
			}
		}
	}
	for id := range g.oversized {
		found[id] = struct{}{}
	}
	out := lo.Filter(lo.Keys(found), func(id entity.EntityID, _ int) bool {
		return geom.Overlaps(g.boxes[id], r)
	})
	return sortIDs(out)
}

// QueryNearest walks square rings of cells outward from p's cell. An
// entity's box always covers the cell holding its center, so after ring k
// every entity whose center lies within k·cellSize of p has been seen.
func (g *Grid) QueryNearest(p geom.Vec2, n int) []entity.EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := len(g.boxes)
	if n <= 0 || total == 0 {
		return nil
	}

	seen := make(map[entity.EntityID]struct{}, n)
	for id := range g.oversized {
		seen[id] = struct{}{}
	}

	c := g.cellOf(p)
	scanned := 0
	budget := 4*total + 64
	for k := int64(0); ; k++ {
		if len(seen) == total {
			break
		}
		scanned += g.collectRing(c, k, seen)
		if g.settled(p, float64(k)*g.cellSize, n, seen) {
			break
		}
		if scanned > budget {
			// Sparse neighborhood: ranking everything is cheaper than
			// walking more empty rings.
			return nearestOf(p, n, g.boxOf, lo.Keys(g.boxes))
		}
	}
	return nearestOf(p, n, g.boxOf, lo.Keys(seen))
}

// collectRing adds the ids of every cell at Chebyshev distance k from c
// and returns how many cells it visited.
func (g *Grid) collectRing(c cellKey, k int64, seen map[entity.EntityID]struct{}) int {
	add := func(x, y int64) {
		for id := range g.cells[cellKey{X: x, Y: y}] {
			seen[id] = struct{}{}
		}
	}
	if k == 0 {
		add(c.X, c.Y)
		return 1
	}
	for x := c.X - k; x <= c.X+k; x++ {
		add(x, c.Y-k)
		add(x, c.Y+k)
	}
	for y := c.Y - k + 1; y <= c.Y+k-1; y++ {
		add(c.X-k, y)
		add(c.X+k, y)
	}
	return int(8 * k)
}

// settled reports whether at least n seen entities have a center strictly
// closer than radius, which makes them final.
func (g *Grid) settled(p geom.Vec2, radius float64, n int, seen map[entity.EntityID]struct{}) bool {
	if len(seen) < n {
		return false
	}
	near := 0
	for id := range seen {
		if geom.Dist(geom.Center(g.boxes[id]), p) < radius {
			near++
			if near >= n {
				return true
			}
		}
	}
	return false
}
