package models

import (
	"fmt"
	"net/http"
)

// ErrorKind is the stable machine-readable failure category returned to
// clients alongside the human-readable message.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindInvalidRange      ErrorKind = "InvalidRange"
	KindForbidden         ErrorKind = "Forbidden"
	KindNotFound          ErrorKind = "NotFound"
	KindDuplicateReaction ErrorKind = "DuplicateReaction"
	KindInvalidID         ErrorKind = "InvalidId"
	KindServer            ErrorKind = "ServerError"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindServer:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidRangef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRange, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func DuplicateReactionf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDuplicateReaction, Message: fmt.Sprintf(format, args...)}
}

func InvalidIDf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidID, Message: fmt.Sprintf(format, args...)}
}

func ServerErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindServer, Message: fmt.Sprintf(format, args...)}
}
