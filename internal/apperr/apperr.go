package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindInvalidArgument Kind = "invalid_argument"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindTooManyRequests Kind = "too_many_requests"
	KindUploadFailed    Kind = "upload_failed"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Errors  []string
	Cause   error
	// Status overrides the kind's default status; set when wrapping echo errors.
	Status int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return StatusOf(e.Kind)
}

func StatusOf(k Kind) int {
	switch k {
	case KindBadRequest, KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WithErrors attaches per-field messages that end up in the envelope's errors list.
func (e *Error) WithErrors(msgs ...string) *Error {
	e.Errors = append(e.Errors, msgs...)
	return e
}

func BadRequest(msg string) *Error      { return &Error{Kind: KindBadRequest, Message: msg} }
func InvalidArgument(msg string) *Error { return &Error{Kind: KindInvalidArgument, Message: msg} }
func Unauthorized(msg string) *Error    { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func TooManyRequests(msg string) *Error { return &Error{Kind: KindTooManyRequests, Message: msg} }

func UploadFailed(msg string, cause error) *Error {
	return &Error{Kind: KindUploadFailed, Message: msg, Cause: cause}
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
