package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidAttachment = errors.New("invalid attachment")
	ErrUnavailable       = errors.New("unavailable")
	ErrUnauthenticated   = errors.New("unauthenticated")

	ErrInvalidTransition = fmt.Errorf("%w: invalid transition", ErrConflict)
	ErrInvalidState      = fmt.Errorf("%w: invalid state", ErrConflict)
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindForbidden         ErrorKind = "forbidden"
	KindInvalidAttachment ErrorKind = "invalid_attachment"
	KindUnavailable       ErrorKind = "unavailable"
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies err into one of the error kinds callers branch on.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAttachment):
		return KindInvalidAttachment
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
