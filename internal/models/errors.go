package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAmbiguous        = errors.New("ambiguous reference")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrUndefined        = errors.New("undefined")
)

// Error carries one of the sentinel kinds above plus a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// NotFoundf reports a reference that resolves to nothing.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Ambiguousf reports a name shared by more than one entity.
func Ambiguousf(format string, args ...any) error {
	return &Error{Kind: ErrAmbiguous, Msg: fmt.Sprintf(format, args...)}
}

// Invalidf reports input rejected before any write.
func Invalidf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// Undefinedf reports an analytic quantity with no finite value.
func Undefinedf(format string, args ...any) error {
	return &Error{Kind: ErrUndefined, Msg: fmt.Sprintf(format, args...)}
}
