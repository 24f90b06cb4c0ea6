package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a read needs more bytes than remain.
	ErrTruncated = errors.New("unexpected end of buffer")

	// ErrUnknownType is returned for a tag byte outside the known kinds.
	ErrUnknownType = errors.New("unknown value type")

	// ErrOverflow is returned for a VLE that does not fit in 32 bits.
	ErrOverflow = errors.New("VLE overflows 32 bits")

	// ErrTooDeep is returned when nested vectors or maps exceed MaxDepth.
	ErrTooDeep = errors.New("value nesting too deep")
)

// MaxDepth bounds VariantVector/VariantMap nesting on read.
const MaxDepth = 32

// Error reports a failed read with its absolute buffer offset.
type Error struct {
	Offset int
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("wire: %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
