// Package apperror defines the categorical errors returned to API clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeBadRequest Code = "BAD_REQUEST"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeInternal   Code = "INTERNAL_SERVER_ERROR"
)

// Error carries a client-facing message and a category. Sentinel values are
// compared with errors.Is; wrapped causes stay reachable through Unwrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func BadRequest(format string, args ...any) *Error {
	return &Error{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a sentinel while keeping it matchable by errors.Is.
func Wrap(sentinel *Error, err error) error {
	return &wrapped{sentinel: sentinel, err: err}
}

type wrapped struct {
	sentinel *Error
	err      error
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %v", w.sentinel.Message, w.err)
}

func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.err}
}

// As returns the first *Error in err's chain. Errors outside the taxonomy
// come back as an internal error with a generic message.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: CodeInternal, Message: "internal server error", Err: err}
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
