package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/db/dbtest"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/middleware/auth"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/service"
	"github.com/Skotchmaster/videohub/internal/storage"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

type memUploader struct {
	mu        sync.Mutex
	destroyed []string
}

func (m *memUploader) Upload(_ context.Context, localPath, folder string) (*storage.UploadResult, error) {
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	id := folder + "/" + uuid.NewString()
	kind := storage.ResourceImage
	if strings.EqualFold(filepath.Ext(localPath), ".mp4") {
		kind = storage.ResourceVideo
	}
	return &storage.UploadResult{
		URL:          "https://cdn.test/" + id,
		SecureURL:    "https://cdn.test/" + id,
		PublicID:     id,
		Duration:     7.4,
		ResourceType: kind,
	}, nil
}

func (m *memUploader) Destroy(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, publicID)
	return nil
}

type testServer struct {
	e          *echo.Echo
	stagingDir string
	media      *memUploader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	r := &repo.GormRepo{DB: dbtest.New(t)}
	tk := tokens.NewService(tokens.Options{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	})
	media := &memUploader{}
	staging := storage.Staging{Dir: t.TempDir()}
	pub := events.Nop{}

	e := echo.New()
	e.HTTPErrorHandler = apperr.Handler
	Register(e, &Deps{
		Auth:          &AuthHTTP{Svc: &service.AuthService{Repo: r, Tokens: tk, Events: pub}},
		Users:         &UserHTTP{Svc: &service.ProfileService{Repo: r, Media: media, Events: pub}, Staging: staging},
		Videos:        &VideoHTTP{Svc: &service.VideoService{Repo: r, Media: media, Events: pub}, Staging: staging},
		Subscriptions: &SubscriptionHTTP{Svc: &service.SubscriptionService{Repo: r, Events: pub}},
		Tokens:        tk,
	})
	return &testServer{e: e, stagingDir: staging.Dir, media: media}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

type response struct {
	*httptest.ResponseRecorder
	env envelope
}

func (r response) cookie(name string) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.env.Data, v), string(r.env.Data))
}

type reqOpt func(*http.Request)

func withCookies(cs ...*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, c := range cs {
			if c != nil {
				r.AddCookie(c)
			}
		}
	}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string, opts ...reqOpt) response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	res := response{ResponseRecorder: rec}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.env), rec.Body.String())
	}
	return res
}

func (s *testServer) json(t *testing.T, method, path string, body any, opts ...reqOpt) response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	return s.do(t, method, path, r, echo.MIMEApplicationJSON, opts...)
}

func (s *testServer) form(t *testing.T, method, path string, fields, files map[string]string, opts ...reqOpt) response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("payload of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return s.do(t, method, path, &buf, w.FormDataContentType(), opts...)
}

type session struct {
	ID      uuid.UUID
	Access  *http.Cookie
	Refresh *http.Cookie
}

func (s *testServer) register(t *testing.T, username string) uuid.UUID {
	t.Helper()
	res := s.form(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"fullName": strings.ToUpper(username[:1]) + username[1:],
		"password": "Secret123",
	}, map[string]string{"avatar": "face.png"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var user struct {
		ID uuid.UUID `json:"id"`
	}
	res.decode(t, &user)
	return user.ID
}

func (s *testServer) login(t *testing.T, username string) session {
	t.Helper()
	res := s.json(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": username,
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var data struct {
		User struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	res.decode(t, &data)
	return session{
		ID:      data.User.ID,
		Access:  res.cookie(auth.AccessCookie),
		Refresh: res.cookie(auth.RefreshCookie),
	}
}

func (s *testServer) signup(t *testing.T, username string) session {
	t.Helper()
	s.register(t, username)
	return s.login(t, username)
}

func (s *testServer) publish(t *testing.T, as session, title string) uuid.UUID {
	t.Helper()
	res := s.form(t, http.MethodPost, "/api/v1/videos", map[string]string{
		"title":       title,
		"description": "about " + title,
	}, map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"}, withCookies(as.Access))
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var v struct {
		ID uuid.UUID `json:"id"`
	}
	res.decode(t, &v)
	return v.ID
}

func (s *testServer) stagedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.stagingDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
