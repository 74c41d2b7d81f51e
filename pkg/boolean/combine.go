package boolean

import (
	"fmt"
	"strings"

	"github.com/chazu/zcad/pkg/geom"
)

// Op is a boolean operation.
type Op int

const (
	Union Op = iota
	Intersection
	Difference
	Xor
)

var opNames = [...]string{"union", "intersection", "difference", "xor"}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

// ParseOp accepts the lower-case operation names.
func ParseOp(s string) (Op, error) {
	for i, n := range opNames {
		if strings.EqualFold(s, n) {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("boolean: unknown operation %q", s)
}

// Combine classifies a against b:
//
//	Union        both operands
//	Intersection a when the two intersect, else nothing
//	Difference   a
//	Xor          a when the two do not intersect, else nothing
//
// Results are clones; the operands are never modified.
func Combine(a, b geom.Geometry, op Op, tol float64) []geom.Geometry {
	return CombineWith(a, b, op, tol, Options{})
}

// CombineWith is Combine with explicit intersection options.
func CombineWith(a, b geom.Geometry, op Op, tol float64, opts Options) []geom.Geometry {
	switch op {
	case Union:
		return []geom.Geometry{a.Clone(), b.Clone()}
	case Intersection:
		if IntersectsWith(a, b, tol, opts) {
			return []geom.Geometry{a.Clone()}
		}
	case Difference:
		return []geom.Geometry{a.Clone()}
	case Xor:
		if !IntersectsWith(a, b, tol, opts) {
			return []geom.Geometry{a.Clone()}
		}
	}
	return nil
}
