package filter

import (
	"errors"
	"fmt"
)

// ErrNotImplemented marks operator/type/scope combinations the compiler
// does not support. Match it with errors.Is; the concrete
// *NotImplementedError names the exact combination.
var ErrNotImplemented = errors.New("not implemented")

// NotImplementedError reports a filter the compiler recognizes but cannot
// compile: an unsupported operator, property type, or scope combination.
// It is never raised for malformed input, which soft-falls back to true.
type NotImplementedError struct {
	What string
}

// Error implements the error interface.
func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.What)
}

// Is reports whether target is ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

func notImplementedf(format string, args ...any) *NotImplementedError {
	return &NotImplementedError{What: fmt.Sprintf(format, args...)}
}

// ParseError reports a syntax error in an embedded expression string.
type ParseError struct {
	Message string
	Pos     int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}
