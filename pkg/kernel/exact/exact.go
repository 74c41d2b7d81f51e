// Package exact implements kernel.Kernel with the CPU geometry engines.
// Its answers are the reference that other backends are verified against.
package exact

import (
	"github.com/chazu/zcad/pkg/boolean"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/kernel"
	"github.com/chazu/zcad/pkg/offset"
	"github.com/chazu/zcad/pkg/transform"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// Kernel is the authoritative geometry engine.
type Kernel struct {
	// Join selects how polyline corners are offset.
	Join offset.Join
	// Crossings makes Intersects and Combine detect segments that cross
	// away from their endpoints.
	Crossings bool
}

// New returns a Kernel using bisector joins.
func New() *Kernel {
	return &Kernel{}
}

func (k *Kernel) Name() string { return "exact" }

func (k *Kernel) Transform(m transform.Matrix, g geom.Geometry) geom.Geometry {
	return transform.Apply(m, g)
}

func (k *Kernel) Offset(g geom.Geometry, distance, tolerance float64) (geom.Geometry, error) {
	return offset.WithOptions(g, distance, tolerance, offset.Options{Join: k.Join})
}

func (k *Kernel) Intersects(a, b geom.Geometry, tolerance float64) bool {
	return boolean.IntersectsWith(a, b, tolerance, boolean.Options{Crossings: k.Crossings})
}

func (k *Kernel) Combine(a, b geom.Geometry, op boolean.Op, tolerance float64) []geom.Geometry {
	return boolean.CombineWith(a, b, op, tolerance, boolean.Options{Crossings: k.Crossings})
}
