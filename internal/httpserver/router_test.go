package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/middleware/ratelimit"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestReadyReportsDependencyFailure(t *testing.T) {
	e := echo.New()
	Register(e, &Deps{
		Auth: &AuthHTTP{}, Users: &UserHTTP{}, Videos: &VideoHTTP{}, Subscriptions: &SubscriptionHTTP{},
		Tokens: tokens.NewService(tokens.Options{AccessSecret: []byte("a"), RefreshSecret: []byte("r")}),
		Ready:  func() error { return errors.New("db down") },
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperr.Handler
	Register(e, &Deps{
		Auth: &AuthHTTP{}, Users: &UserHTTP{}, Videos: &VideoHTTP{}, Subscriptions: &SubscriptionHTTP{},
		Tokens:  tokens.NewService(tokens.Options{AccessSecret: []byte("a"), RefreshSecret: []byte("r")}),
		Limiter: ratelimit.New(1, time.Hour, 1, clockwork.NewFakeClock()),
	})

	// the first call gets past the limiter and fails on the empty body
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil))
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
