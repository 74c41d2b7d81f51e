// Package kerr defines the error kinds shared by every zcad package.
// All failures are returned as *Error values that unwrap to a per-kind
// sentinel, so callers match with errors.Is(err, kerr.ErrStaleHandle).
package kerr

import (
	"errors"
	"fmt"
)

// Kind classifies a kernel failure.
type Kind int

const (
	KindUnknown Kind = iota
	NotFound
	StaleHandle
	UnknownLayer
	Degenerate
	ConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case StaleHandle:
		return "stale handle"
	case UnknownLayer:
		return "unknown layer"
	case Degenerate:
		return "degenerate result"
	case ConstraintViolation:
		return "constraint violation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels, one per kind.
var (
	ErrNotFound            = errors.New("not found")
	ErrStaleHandle         = errors.New("stale handle")
	ErrUnknownLayer        = errors.New("unknown layer")
	ErrDegenerate          = errors.New("degenerate result")
	ErrConstraintViolation = errors.New("constraint violation")
)

func (k Kind) sentinel() error {
	switch k {
	case NotFound:
		return ErrNotFound
	case StaleHandle:
		return ErrStaleHandle
	case UnknownLayer:
		return ErrUnknownLayer
	case Degenerate:
		return ErrDegenerate
	case ConstraintViolation:
		return ErrConstraintViolation
	}
	return nil
}

// Error is a classified failure. Op names the operation that failed
// ("doc.Get", "offset.Offset") and Msg carries the detail.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap returns the sentinel for e.Kind.
func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// New builds an *Error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
