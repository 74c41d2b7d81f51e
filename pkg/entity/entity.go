// Package entity defines the document data model: generation-tagged
// entity identities, display properties, layers and the entity record.
package entity

import (
	"fmt"

	"github.com/chazu/zcad/pkg/geom"
)

// EntityID is a generation-tagged handle. The numeric ID may be reused
// after a delete, but the generation is bumped each time, so a handle
// held across a delete never matches the new occupant.
type EntityID struct {
	ID         uint64 `codec:"id" json:"id"`
	Generation uint32 `codec:"gen" json:"gen"`
}

// Null is the zero handle. Numeric IDs start at 1, so it never names a
// live entity or layer.
var Null = EntityID{}

// IsNull reports whether id is the zero handle.
func (id EntityID) IsNull() bool { return id.ID == 0 }

// Less orders handles by ID, then Generation.
func (id EntityID) Less(o EntityID) bool {
	if id.ID != o.ID {
		return id.ID < o.ID
	}
	return id.Generation < o.Generation
}

func (id EntityID) String() string {
	return fmt.Sprintf("%d#%d", id.ID, id.Generation)
}

// Compare returns -1, 0 or +1 in Less order, for slices.SortFunc.
func Compare(a, b EntityID) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// Entity is a geometry record with display properties.
type Entity struct {
	ID         EntityID
	Geometry   geom.Geometry
	Properties Properties
	Layer      EntityID
	Visible    bool
	Locked     bool
}

// Bounds returns the bounding box of the entity's geometry.
func (e Entity) Bounds() geom.Box {
	return e.Geometry.Bounds()
}

// Clone returns a deep copy.
func (e Entity) Clone() Entity {
	c := e
	if e.Geometry != nil {
		c.Geometry = e.Geometry.Clone()
	}
	return c
}
