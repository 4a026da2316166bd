// Package errkind classifies duplication failures into a small, stable set of
// kinds that the HTTP layer and the operation log can report.
package errkind

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind string

const (
	NotFound         Kind = "not_found"
	ValidationFailed Kind = "validation_failed"
	PermissionDenied Kind = "permission_denied"
	CreationFailed   Kind = "creation_failed"
	CopyFailed       Kind = "copy_failed"
	Internal         Kind = "internal"
)

// Error carries a Kind, the failing operation and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, errkind.E(NotFound, "", nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// E builds a classified error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost classified error in the chain,
// or Internal when err is not classified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
