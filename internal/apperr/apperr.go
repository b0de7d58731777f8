// Package apperr classifies errors into the kinds the API surface knows how
// to translate: validation, not-found, conflict, upstream, transient, fatal.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindUpstream
	KindTransient
	KindFatal
)

// Error pairs a kind with a stable machine code and a human detail string.
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted detail message.
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and code to an underlying error.
func Wrap(kind Kind, code string, err error, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail, Err: err}
}

func Validation(code, format string, args ...any) *Error {
	return New(KindValidation, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return New(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return New(KindConflict, code, format, args...)
}

func Upstream(code string, err error, detail string) *Error {
	return Wrap(KindUpstream, code, err, detail)
}

func Transient(code string, err error, detail string) *Error {
	return Wrap(KindTransient, code, err, detail)
}

func Fatal(code string, err error, detail string) *Error {
	return Wrap(KindFatal, code, err, detail)
}

// KindOf extracts the kind from err, defaulting to fatal for unclassified
// errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindFatal
}

// CodeOf extracts the machine code from err, empty when unclassified.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// HTTPStatus maps an error kind to the response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindUpstream:
		return fiber.StatusBadGateway
	case KindTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
