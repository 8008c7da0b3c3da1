package message

import (
	"errors"
	"fmt"
)

// Codec errors. Callers match them with errors.Is; field accessors wrap
// them in a *FieldError carrying the offending range.
var (
	// ErrInvalidBuffer is returned when a buffer is too short to hold the
	// identity header (packet type, address, message type).
	ErrInvalidBuffer = errors.New("invalid buffer")

	// ErrUnknownField is returned when a key is not present in the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrOutOfRange is returned when a bit index or range falls outside the buffer.
	ErrOutOfRange = errors.New("bit range out of bounds")

	// ErrValueTooLarge is returned when a value cannot be represented in the
	// declared field width.
	ErrValueTooLarge = errors.New("value too large for field width")

	// ErrInvalidField is returned for schema entries with a negative offset
	// or a width outside 1..64.
	ErrInvalidField = errors.New("invalid field definition")

	// ErrInvalidAddress is returned when a device address is not six hex digits.
	ErrInvalidAddress = errors.New("invalid device address")
)

// FieldError describes a failed bit-level access.
type FieldError struct {
	Op     string // "get", "set" or "bit"
	Field  string // schema key, empty for raw range access
	Offset int    // absolute bit offset
	Width  int    // bit width
	Err    error  // one of the sentinel errors above
}

// Error implements the error interface
func (e *FieldError) Error() string {
	switch {
	case e.Field != "" && errors.Is(e.Err, ErrUnknownField):
		return fmt.Sprintf("%s %q: %v", e.Op, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s %q (offset=%d, width=%d): %v", e.Op, e.Field, e.Offset, e.Width, e.Err)
	default:
		return fmt.Sprintf("%s bits (offset=%d, width=%d): %v", e.Op, e.Offset, e.Width, e.Err)
	}
}

// Unwrap returns the underlying sentinel error
func (e *FieldError) Unwrap() error {
	return e.Err
}
