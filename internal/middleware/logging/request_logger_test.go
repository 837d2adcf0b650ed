package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "debug")

	e := echo.New()
	e.HTTPErrorHandler = apperr.Handler
	e.Use(RequestLogger(base))
	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.String(http.StatusOK, "fine")
	})
	e.GET("/missing", func(c echo.Context) error {
		return apperr.NotFound("nothing here")
	})
	uid := uuid.New()
	e.GET("/mine", func(c echo.Context) error {
		c.Set(apperr.IdentityKey, uid)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mine", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}

	var inside, completed []map[string]any
	for _, m := range lines {
		switch m["msg"] {
		case "inside":
			inside = append(inside, m)
		case "request completed":
			completed = append(completed, m)
		}
	}
	require.Len(t, inside, 1)
	assert.Equal(t, "rid-1", inside[0]["request_id"])
	assert.Equal(t, "/ok", inside[0]["path"])

	require.Len(t, completed, 3)
	assert.EqualValues(t, 200, completed[0]["status"])
	assert.Equal(t, "INFO", completed[0]["level"])
	assert.NotContains(t, completed[0], "user_id")
	assert.EqualValues(t, 404, completed[1]["status"])
	assert.Equal(t, "WARN", completed[1]["level"])
	assert.Equal(t, "/mine", completed[2]["path"])
	assert.Equal(t, uid.String(), completed[2]["user_id"])
}
