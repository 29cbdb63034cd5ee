// README: Error kinds shared by all modules; handlers map kinds to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindAuthorization    Kind = "authorization_error"
	KindConflict         Kind = "conflict"
	KindDuplicateRequest Kind = "duplicate_request"
	KindCapacity         Kind = "capacity_exhausted"
	KindInvalidState     Kind = "invalid_state"
	KindInternal         Kind = "internal"
)

// Error carries a machine-readable kind and a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches any *Error of the same kind when the target is a bare kind marker
// (one of the Err* values below), so errors.Is(err, apperr.ErrCapacity) holds
// for every capacity error regardless of module.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// Kind markers for errors.Is.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAuthorization    = &Error{Kind: KindAuthorization}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrDuplicateRequest = &Error{Kind: KindDuplicateRequest}
	ErrCapacity         = &Error{Kind: KindCapacity}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
