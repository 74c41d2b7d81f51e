// Package kernel defines the geometry engine interface that the document
// and command layers call into. The authoritative implementation lives in
// kernel/exact; accelerated backends are expected to batch their work
// through Map and have their results checked with Verify before they are
// trusted.
package kernel

import (
	"github.com/chazu/zcad/pkg/boolean"
	"github.com/chazu/zcad/pkg/geom"
	"github.com/chazu/zcad/pkg/transform"
)

// Kernel is the abstract geometry engine. Every method is pure: inputs
// are never modified and no state is shared between calls, so a Kernel
// may be used from any number of goroutines.
type Kernel interface {
	// Name identifies the backend in logs.
	Name() string

	// Transform maps g through m.
	Transform(m transform.Matrix, g geom.Geometry) geom.Geometry

	// Offset returns g moved by a signed distance.
	Offset(g geom.Geometry, distance, tolerance float64) (geom.Geometry, error)

	// Intersects reports whether a and b touch within tolerance.
	Intersects(a, b geom.Geometry, tolerance float64) bool

	// Combine classifies a against b under op.
	Combine(a, b geom.Geometry, op boolean.Op, tolerance float64) []geom.Geometry
}
