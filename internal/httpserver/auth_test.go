package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/videohub/internal/middleware/auth"
)

func TestLogin_SetsCookiesAndReturnsUser(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	res := s.json(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.True(t, res.env.Success)
	assert.Equal(t, http.StatusOK, res.env.StatusCode)

	var data struct {
		User        map[string]any `json:"user"`
		AccessToken string         `json:"accessToken"`
	}
	res.decode(t, &data)
	assert.NotEmpty(t, data.AccessToken)
	assert.Equal(t, "alice", data.User["username"])
	assert.NotContains(t, data.User, "password")
	assert.NotContains(t, data.User, "refreshToken")
	assert.NotContains(t, res.Body.String(), "refreshToken\":\"")

	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		c := res.cookie(name)
		require.NotNil(t, c, name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Positive(t, c.MaxAge)
	}
	assert.Equal(t, data.AccessToken, res.cookie(auth.AccessCookie).Value)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest},
		{"unknown user", map[string]string{"username": "nobody", "password": "x"}, http.StatusNotFound},
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.json(t, http.MethodPost, "/api/v1/users/login", tt.body)
			assert.Equal(t, tt.status, res.Code)
			assert.False(t, res.env.Success)
			assert.Equal(t, tt.status, res.env.StatusCode)
			assert.NotNil(t, res.env.Errors)
			assert.Nil(t, res.cookie(auth.AccessCookie))
		})
	}
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice")

	res := s.do(t, http.MethodPost, "/api/v1/users/refresh-token", nil, "", withCookies(sess.Refresh))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "access token refreshed", res.env.Message)
	assert.JSONEq(t, `{}`, string(res.env.Data))

	next := res.cookie(auth.RefreshCookie)
	require.NotNil(t, next)
	assert.NotEqual(t, sess.Refresh.Value, next.Value)
	require.NotNil(t, res.cookie(auth.AccessCookie))

	res = s.do(t, http.MethodPost, "/api/v1/users/refresh-token", nil, "", withCookies(sess.Refresh))
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = s.do(t, http.MethodPost, "/api/v1/users/refresh-token", nil, "", withCookies(next))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRefresh_WithoutCookie(t *testing.T) {
	s := newTestServer(t)
	res := s.do(t, http.MethodPost, "/api/v1/users/refresh-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "unauthorized request", res.env.Message)
}

func TestLogout_ClearsCookiesAndRevokesRefresh(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice")

	res := s.do(t, http.MethodPost, "/api/v1/users/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = s.do(t, http.MethodPost, "/api/v1/users/logout", nil, "", withCookies(sess.Access))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		c := res.cookie(name)
		require.NotNil(t, c)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}

	res = s.do(t, http.MethodPost, "/api/v1/users/refresh-token", nil, "", withCookies(sess.Refresh))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice")

	res := s.json(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "Secret123", "newPassword": "a", "confirmPassword": "b",
	}, withCookies(sess.Access))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	s.login(t, "alice")

	res = s.json(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "Secret123", "newPassword": "Better456", "confirmPassword": "Better456",
	}, withCookies(sess.Access))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = s.json(t, http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "Better456"})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{
		"/api/v1/users/current-user",
		"/api/v1/users/history",
		"/api/v1/videos",
		"/api/v1/subscriptions/u",
	} {
		res := s.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, res.Code, path)
		assert.False(t, res.env.Success, path)
	}
}

func TestBearerHeaderIsAccepted(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice")

	res := s.do(t, http.MethodGet, "/api/v1/users/current-user", nil, "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+sess.Access.Value)
	})
	require.Equal(t, http.StatusOK, res.Code)
	var u map[string]any
	res.decode(t, &u)
	assert.Equal(t, "alice", u["username"])
}
