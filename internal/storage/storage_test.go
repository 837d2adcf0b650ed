package storage

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/videohub/internal/config"
)

func multipartFile(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func TestStaging_SaveAndRemove(t *testing.T) {
	st := Staging{Dir: filepath.Join(t.TempDir(), "temp")}
	fh := multipartFile(t, "avatar", "Me.PNG", []byte("pixels"))

	path, err := st.Save(fh)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(got))

	require.NoError(t, st.Remove(path, "", path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDetectResource(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		filename string
		want     string
	}{
		{"png", []byte("\x89PNG\x0D\x0A\x1A\x0A"), "a.bin", ResourceImage},
		{"webm", []byte("\x1A\x45\xDF\xA3"), "clip", ResourceVideo},
		{"mp4 by extension", []byte{0x00, 0x01, 0x02, 0x03}, "clip.mp4", ResourceVideo},
		{"text", []byte("hello world"), "notes.txt", ResourceRaw},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, kind := DetectResource(tt.head, tt.filename)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"})
	require.Error(t, err)
}

func TestS3Uploader_UploadAndDestroy(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	var (
		mu      sync.Mutex
		methods []string
		paths   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	up, err := NewS3Uploader(context.Background(), config.ObjectStoreConfig{
		Bucket:        "media",
		Region:        "us-east-1",
		Endpoint:      srv.URL,
		PublicBaseURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(local, []byte("\x89PNG\x0D\x0A\x1A\x0Arest"), 0o644))

	res, err := up.Upload(context.Background(), local, FolderAvatars)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.PublicID, "avatars/"))
	assert.True(t, strings.HasSuffix(res.PublicID, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+res.PublicID, res.URL)
	assert.Equal(t, ResourceImage, res.ResourceType)
	assert.Zero(t, res.Duration)

	require.NoError(t, up.Destroy(context.Background(), res.PublicID))
	require.NoError(t, up.Destroy(context.Background(), ""))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
	assert.Equal(t, "/media/"+res.PublicID, paths[0])
	assert.Equal(t, paths[0], paths[1])
}
