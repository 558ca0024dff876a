package translator

import (
	"errors"
	"fmt"
)

// Translation aborts on the first of these; no partial result is returned.
var (
	ErrMalformedTuple   = errors.New("closing tuple bracket not found")
	ErrUnmappedFunction = errors.New("unmapped library function")
	ErrMalformedCall    = errors.New("expected opening parenthesis")
)

// Error positions a translation failure in the source.
type Error struct {
	Line   int    // 1-based source line
	Source string // the statement being translated
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Source)
}

func (e *Error) Unwrap() error {
	return e.Err
}
