package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/db/dbtest"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/internal/storage"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

var errUploadDown = errors.New("media store unavailable")

type fakeUploader struct {
	mu        sync.Mutex
	n         int
	uploaded  []string
	destroyed []string
	// failFolders makes uploads into these folders fail.
	failFolders map[string]bool
	duration    float64
}

func (f *fakeUploader) Upload(_ context.Context, localPath, folder string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFolders[folder] {
		return nil, errUploadDown
	}
	f.n++
	id := folder + "/" + strings.TrimSuffix(filepath.Base(localPath), filepath.Ext(localPath)) + "-" + uuid.NewString()[:8]
	f.uploaded = append(f.uploaded, id)

	kind := storage.ResourceImage
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".mp4", ".webm", ".mov":
		kind = storage.ResourceVideo
	case ".txt":
		kind = storage.ResourceRaw
	}
	res := &storage.UploadResult{
		URL:          "https://cdn.test/" + id,
		SecureURL:    "https://cdn.test/" + id,
		PublicID:     id,
		ResourceType: kind,
	}
	if kind == storage.ResourceVideo {
		res.Duration = f.duration
	}
	return res, nil
}

func (f *fakeUploader) Destroy(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

func (f *fakeUploader) Destroyed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.destroyed...)
	sort.Strings(out)
	return out
}

type publishedEvent struct {
	Topic, Key string
	Event      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// Types returns the event types published to topic, in order.
func (p *fakePublisher) Types(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.Topic != topic {
			continue
		}
		if ev, ok := e.Event.(events.Event); ok {
			out = append(out, ev.Type)
		}
	}
	return out
}

type fakeIndex struct {
	mu   sync.Mutex
	docs map[uuid.UUID]search.Document
	// hits is returned by Search regardless of the query.
	hits []uuid.UUID
	err  error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[uuid.UUID]search.Document{}}
}

func (x *fakeIndex) Index(_ context.Context, doc search.Document) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !doc.IsPublished {
		delete(x.docs, doc.ID)
		return nil
	}
	x.docs[doc.ID] = doc
	return nil
}

func (x *fakeIndex) Remove(_ context.Context, id uuid.UUID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *fakeIndex) Search(_ context.Context, _ string, from, size int) (int64, []uuid.UUID, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err != nil {
		return 0, nil, x.err
	}
	end := from + size
	if end > len(x.hits) {
		end = len(x.hits)
	}
	if from > end {
		from = end
	}
	return int64(len(x.hits)), append([]uuid.UUID(nil), x.hits[from:end]...), nil
}

func (x *fakeIndex) Has(id uuid.UUID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[id]
	return ok
}

type testEnv struct {
	Repo    *repo.GormRepo
	Tokens  *tokens.Service
	Media   *fakeUploader
	Events  *fakePublisher
	Index   *fakeIndex
	Auth    *AuthService
	Profile *ProfileService
	Videos  *VideoService
	Subs    *SubscriptionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	r := &repo.GormRepo{DB: dbtest.New(t)}
	tk := tokens.NewService(tokens.Options{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	})
	media := &fakeUploader{failFolders: map[string]bool{}, duration: 12.6}
	pub := &fakePublisher{}
	idx := newFakeIndex()
	return &testEnv{
		Repo:    r,
		Tokens:  tk,
		Media:   media,
		Events:  pub,
		Index:   idx,
		Auth:    &AuthService{Repo: r, Tokens: tk, Events: pub},
		Profile: &ProfileService{Repo: r, Media: media, Events: pub},
		Videos:  &VideoService{Repo: r, Media: media, Events: pub, Index: idx},
		Subs:    &SubscriptionService{Repo: r, Events: pub},
	}
}

func (env *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := env.Profile.Register(context.Background(), RegisterInput{
		Username:   username,
		Email:      username + "@example.com",
		FullName:   "Full " + username,
		Password:   username + "-password",
		AvatarPath: "/staged/" + username + ".png",
	})
	require.NoError(t, err)
	return u
}

func (env *testEnv) publishVideo(t *testing.T, owner uuid.UUID, title string) *models.VideoView {
	t.Helper()
	v, err := env.Videos.Publish(context.Background(), owner, PublishInput{
		Title:         title,
		Description:   "about " + title,
		VideoPath:     "/staged/" + title + ".mp4",
		ThumbnailPath: "/staged/" + title + ".jpg",
	})
	require.NoError(t, err)
	return v
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}
