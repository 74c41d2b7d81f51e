package kernel

import (
	"context"
	"fmt"
	"runtime"

	"github.com/chazu/zcad/pkg/geom"
	"golang.org/x/sync/errgroup"
)

// Map applies fn to every element of in using up to workers goroutines
// and returns the results in input order. Each goroutine owns one
// contiguous batch, so fn never sees two batches overlap. When workers is
// zero or negative GOMAXPROCS is used.
//
// The first error stops the remaining batches and is returned together
// with the index of the element that caused it.
func Map[In, Out any](workers int, in []In, fn func(In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(in))
	if len(in) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(in))
	size := (len(in) + workers - 1) / workers

	g, ctx := errgroup.WithContext(context.Background())
	for start := 0; start < len(in); start += size {
		end := min(start+size, len(in))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return nil
				}
				r, err := fn(in[i])
				if err != nil {
					return fmt.Errorf("kernel: batch item %d: %w", i, err)
				}
				out[i] = r
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Mismatch is one element where a batch result disagrees with the
// authoritative one.
type Mismatch struct {
	Index int
	Want  geom.Geometry // nil when the reference rejected the input
	Got   geom.Geometry
}

func (m Mismatch) String() string {
	return fmt.Sprintf("item %d: want %v, got %v", m.Index, m.Want, m.Got)
}

// Verify recomputes every input with ref and compares it against got
// within tol. An input the reference rejects must also be missing (nil)
// from got. Results are checked in parallel; mismatches come back in
// index order.
func Verify(workers int, in, got []geom.Geometry, ref func(geom.Geometry) (geom.Geometry, error), tol float64) ([]Mismatch, error) {
	if len(in) != len(got) {
		return nil, fmt.Errorf("kernel: verify: %d inputs but %d results", len(in), len(got))
	}
	idx := make([]int, len(in))
	for i := range idx {
		idx[i] = i
	}
	checks, err := Map(workers, idx, func(i int) (*Mismatch, error) {
		want, err := ref(in[i])
		if err != nil {
			want = nil
		}
		switch {
		case want == nil && got[i] == nil:
			return nil, nil
		case want == nil || got[i] == nil || !geom.Equal(want, got[i], tol):
			return &Mismatch{Index: i, Want: want, Got: got[i]}, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	var out []Mismatch
	for _, m := range checks {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}
