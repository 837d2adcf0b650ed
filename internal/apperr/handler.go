package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/metrics"
	"github.com/Skotchmaster/videohub/internal/transport"
)

// Handler renders every error returned by a handler or middleware as the error envelope.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ae := From(err)
	status := ae.HTTPStatus()
	metrics.HTTPErrorsTotal.WithLabelValues(string(ae.Kind)).Inc()

	l := logging.FromContext(c.Request().Context()).With("kind", ae.Kind, "status", status)
	if status >= http.StatusInternalServerError {
		l.Error("request_failed", "reason", ae.Message, "error", errStr(ae.Cause))
	} else {
		l.Warn("request_rejected", "reason", ae.Message)
	}

	body := transport.Fail(status, ae.Message, ae.Errors)
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		l.Error("error_response_write_failed", "error", werr)
	}
}

// IdentityKey is the echo context key the auth middleware stores the caller's user id under.
const IdentityKey = "user_id"

// From converts any error into an *Error, mapping echo's own HTTP errors by status.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case nil:
		case string:
			if m != "" {
				msg = m
			}
		default:
			msg = fmt.Sprint(m)
		}
		return &Error{Kind: kindForStatus(he.Code), Message: msg, Cause: he.Internal, Status: he.Code}
	}
	return Internal("internal server error", err)
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindTooManyRequests
	default:
		return KindInternal
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
