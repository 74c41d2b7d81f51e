// Package spatial provides bounding-box indexes over entity handles.
// Grid is the default uniform-grid implementation; RTree is an
// interchangeable tree-backed alternative for unevenly distributed
// drawings.
package spatial

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/geom"
)

// Index maps entity handles to their last-known bounding boxes.
// Implementations are safe for concurrent readers; Update is observed
// atomically by any reader.
type Index interface {
	Insert(id entity.EntityID, box geom.Box)
	// Remove reports whether id was present.
	Remove(id entity.EntityID) bool
	// Update replaces the stored box for id. old is the caller's view of
	// the previous box; the stored box is authoritative.
	Update(id entity.EntityID, old, box geom.Box)

	// QueryRect returns every id whose stored box intersects r, sorted
	// by ID then Generation.
	QueryRect(r geom.Box) []entity.EntityID
	// QueryPoint is QueryRect over the square of half-width tol around p.
	QueryPoint(p geom.Vec2, tol float64) []entity.EntityID
	// QueryNearest returns up to n ids ordered by distance from p to the
	// box center, ties broken by ID then Generation.
	QueryNearest(p geom.Vec2, n int) []entity.EntityID

	Bounds(id entity.EntityID) (geom.Box, bool)
	Len() int
	Clear()
}

// Index kinds accepted by New.
const (
	KindGrid  = "grid"
	KindRTree = "rtree"
)

// New builds an index by kind name. cellSize is used by the grid only.
func New(kind string, cellSize float64) (Index, error) {
	switch kind {
	case "", KindGrid:
		return NewGrid(cellSize), nil
	case KindRTree:
		return NewRTree(), nil
	}
	return nil, fmt.Errorf("spatial: unknown index kind %q", kind)
}

// pointQueryBox is the pick square used by QueryPoint.
func pointQueryBox(p geom.Vec2, tol float64) geom.Box {
	return geom.Expand(geom.BoxOf(p), math.Abs(tol))
}

// candidate is an id with its center distance, used for nearest ordering.
type candidate struct {
	id   entity.EntityID
	dist float64
}

func compareCandidates(a, b candidate) int {
	switch {
	case a.dist < b.dist:
		return -1
	case a.dist > b.dist:
		return 1
	}
	return entity.Compare(a.id, b.id)
}

// nearestOf ranks ids by the distance from p to their box centers and
// returns the first n.
func nearestOf(p geom.Vec2, n int, boxOf func(entity.EntityID) geom.Box, ids []entity.EntityID) []entity.EntityID {
	cands := make([]candidate, 0, len(ids))
	for _, id := range ids {
		cands = append(cands, candidate{id: id, dist: geom.Dist(geom.Center(boxOf(id)), p)})
	}
	slices.SortFunc(cands, compareCandidates)
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]entity.EntityID, len(cands))
	for i, c := range cands {
		out[i] = c.id
	}
	return out
}

func sortIDs(ids []entity.EntityID) []entity.EntityID {
	slices.SortFunc(ids, entity.Compare)
	return ids
}
