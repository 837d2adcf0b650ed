package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/middleware/auth"
	"github.com/Skotchmaster/videohub/internal/storage"
	"github.com/Skotchmaster/videohub/internal/transport"
)

// NoBody is the body type of requests that carry nothing to bind.
type NoBody struct{}

// Request is what a handler reads: the caller, the bound body, path params and query.
type Request[B any] struct {
	Identity uuid.UUID
	Body     B
	Params   map[string]string
	Query    url.Values
}

func newRequest[B any](c echo.Context) (*Request[B], error) {
	req := &Request[B]{
		Params: make(map[string]string, len(c.ParamNames())),
		Query:  c.QueryParams(),
	}
	if id, ok := auth.Identity(c); ok {
		req.Identity = id
	}
	for i, name := range c.ParamNames() {
		req.Params[name] = c.ParamValues()[i]
	}
	if _, empty := any(req.Body).(NoBody); !empty {
		if err := c.Bind(&req.Body); err != nil {
			return nil, &apperr.Error{Kind: apperr.KindBadRequest, Message: "invalid request body", Cause: err}
		}
	}
	return req, nil
}

// authedRequest is newRequest for routes behind RequireAuth.
func authedRequest[B any](c echo.Context) (*Request[B], error) {
	req, err := newRequest[B](c)
	if err != nil {
		return nil, err
	}
	if req.Identity == uuid.Nil {
		return nil, apperr.Unauthorized("unauthorized request")
	}
	return req, nil
}

func (r *Request[B]) UUIDParam(name string) (uuid.UUID, error) {
	raw := r.Params[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &apperr.Error{Kind: apperr.KindBadRequest, Message: "invalid " + name, Cause: err}
	}
	return id, nil
}

// stage saves the multipart file under field and records its path in staged.
// An absent file yields an empty path.
func stage(c echo.Context, st storage.Staging, field string, staged *[]string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", &apperr.Error{Kind: apperr.KindBadRequest, Message: "cannot read " + field + " file", Cause: err}
	}
	path, err := st.Save(fh)
	if err != nil {
		return "", apperr.Internal("cannot stage upload", err)
	}
	*staged = append(*staged, path)
	return path, nil
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, transport.OK(status, data, message))
}
