package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/internal/storage"
	"github.com/Skotchmaster/videohub/internal/transport"
	"github.com/Skotchmaster/videohub/internal/util"
)

type VideoService struct {
	Repo   *repo.GormRepo
	Media  storage.Uploader
	Events events.Publisher
	// Index is optional; without it search falls back to the catalog.
	Index search.VideoIndex
	Now   func() time.Time
}

func (s *VideoService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type PublishInput struct {
	Title       string
	Description string
	// Duration is used only when the media store reports none.
	Duration      float64
	VideoPath     string
	ThumbnailPath string
}

func (s *VideoService) Publish(ctx context.Context, ownerID uuid.UUID, in PublishInput) (*models.VideoView, error) {
	l := logging.FromContext(ctx).With("svc", "video.publish", "owner_id", ownerID)

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if errs := missing([2]string{"title", title}, [2]string{"description", description}); len(errs) > 0 {
		return nil, apperr.BadRequest("title and description are required").WithErrors(errs...)
	}
	if in.VideoPath == "" || in.ThumbnailPath == "" {
		return nil, apperr.BadRequest("video file and thumbnail are required")
	}

	videoRes, err := upload(ctx, s.Media, in.VideoPath, storage.FolderVideos)
	if err != nil {
		return nil, apperr.UploadFailed("video upload failed", err)
	}
	thumbRes, err := upload(ctx, s.Media, in.ThumbnailPath, storage.FolderThumbnails)
	if err != nil {
		destroy(ctx, s.Media, videoRes.PublicID)
		return nil, apperr.UploadFailed("thumbnail upload failed", err)
	}
	if videoRes.ResourceType != storage.ResourceVideo {
		destroy(ctx, s.Media, videoRes.PublicID, thumbRes.PublicID)
		return nil, apperr.BadRequest("uploaded file is not a video")
	}

	duration := videoRes.Duration
	if duration <= 0 {
		duration = in.Duration
	}

	v := &models.Video{
		VideoFile:   models.Asset{URL: videoRes.URL, PublicID: videoRes.PublicID},
		Thumbnail:   models.Asset{URL: thumbRes.URL, PublicID: thumbRes.PublicID},
		Title:       title,
		Description: description,
		Duration:    int64(math.Round(math.Max(duration, 0))),
		IsPublished: true,
		OwnerID:     ownerID,
	}
	if err := s.Repo.CreateVideo(ctx, v); err != nil {
		destroy(ctx, s.Media, videoRes.PublicID, thumbRes.PublicID)
		return nil, apperr.Internal("cannot save video", err)
	}

	s.reindex(ctx, v)
	l.Info("video_published", "video_id", v.ID)
	publish(ctx, s.Events, events.TopicVideos, v.ID.String(), events.VideoPublished, map[string]any{
		"video_id": v.ID,
		"owner_id": ownerID,
		"title":    v.Title,
	})
	return s.view(ctx, v.ID)
}

// Get returns the video and counts the request as a view by viewerID.
func (s *VideoService) Get(ctx context.Context, viewerID, videoID uuid.UUID) (*models.VideoView, error) {
	v, err := s.load(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !v.IsPublished && v.OwnerID != viewerID {
		return nil, apperr.NotFound("video not found")
	}

	if err := s.Repo.IncrementViews(ctx, videoID); err != nil {
		return nil, apperr.Internal("cannot count view", err)
	}
	if err := s.Repo.RecordWatch(ctx, viewerID, videoID, s.now()); err != nil {
		logging.FromContext(ctx).Warn("watch_history_failed", "video_id", videoID, "user_id", viewerID, "error", err)
	}
	return s.view(ctx, videoID)
}

type UpdateVideoInput struct {
	Title         string
	Description   string
	ThumbnailPath string
}

func (s *VideoService) Update(ctx context.Context, actorID, videoID uuid.UUID, in UpdateVideoInput) (*models.VideoView, error) {
	l := logging.FromContext(ctx).With("svc", "video.update", "video_id", videoID)

	v, err := s.loadOwned(ctx, actorID, videoID, "update")
	if err != nil {
		return nil, err
	}

	var patch repo.VideoPatch
	if t := strings.TrimSpace(in.Title); t != "" {
		patch.Title = &t
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		patch.Description = &d
	}

	var newThumb *storage.UploadResult
	if in.ThumbnailPath != "" {
		newThumb, err = upload(ctx, s.Media, in.ThumbnailPath, storage.FolderThumbnails)
		if err != nil {
			return nil, apperr.UploadFailed("thumbnail upload failed", err)
		}
		patch.Thumbnail = &models.Asset{URL: newThumb.URL, PublicID: newThumb.PublicID}
	}

	updated, err := s.Repo.PatchVideo(ctx, videoID, patch)
	if err != nil {
		if newThumb != nil {
			destroy(ctx, s.Media, newThumb.PublicID)
		}
		if repo.IsNotFound(err) {
			return nil, apperr.NotFound("video not found")
		}
		return nil, apperr.Internal("cannot update video", err)
	}
	if newThumb != nil {
		destroy(ctx, s.Media, v.Thumbnail.PublicID)
	}

	s.reindex(ctx, updated)
	l.Info("video_updated")
	publish(ctx, s.Events, events.TopicVideos, videoID.String(), events.VideoUpdated, map[string]any{
		"video_id": videoID,
		"title":    updated.Title,
	})
	return s.view(ctx, videoID)
}

func (s *VideoService) Delete(ctx context.Context, actorID, videoID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "video.delete", "video_id", videoID)

	v, err := s.loadOwned(ctx, actorID, videoID, "delete")
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteVideo(ctx, videoID); err != nil {
		if repo.IsNotFound(err) {
			return apperr.NotFound("video not found")
		}
		return apperr.Internal("cannot delete video", err)
	}

	destroy(ctx, s.Media, v.VideoFile.PublicID, v.Thumbnail.PublicID)
	if s.Index != nil {
		if err := s.Index.Remove(ctx, videoID); err != nil {
			l.Warn("index_remove_failed", "error", err)
		}
	}
	l.Info("video_deleted")
	publish(ctx, s.Events, events.TopicVideos, videoID.String(), events.VideoDeleted, map[string]any{
		"video_id": videoID,
		"owner_id": v.OwnerID,
	})
	return nil
}

func (s *VideoService) TogglePublish(ctx context.Context, actorID, videoID uuid.UUID) (bool, error) {
	v, err := s.loadOwned(ctx, actorID, videoID, "publish")
	if err != nil {
		return false, err
	}
	next := !v.IsPublished
	updated, err := s.Repo.PatchVideo(ctx, videoID, repo.VideoPatch{IsPublished: &next})
	if err != nil {
		return false, apperr.Internal("cannot toggle publish status", err)
	}
	s.reindex(ctx, updated)
	publish(ctx, s.Events, events.TopicVideos, videoID.String(), events.VideoUpdated, map[string]any{
		"video_id":     videoID,
		"is_published": updated.IsPublished,
	})
	return updated.IsPublished, nil
}

type ListVideosInput struct {
	Query    string
	SortBy   string
	SortType string
	UserID   string
	Page     int
	Limit    int
}

func (s *VideoService) List(ctx context.Context, viewerID uuid.UUID, in ListVideosInput) (transport.Page[models.VideoView], error) {
	f := repo.VideoFilter{Query: in.Query, SortBy: "createdAt", Desc: true}
	f.Page, f.Limit = util.Normalize(in.Page, in.Limit)

	if in.SortBy != "" {
		if _, ok := repo.SortField[in.SortBy]; !ok {
			return transport.Page[models.VideoView]{}, apperr.BadRequest("invalid sortBy").
				WithErrors("sortBy must be one of createdAt, views, duration, title")
		}
		f.SortBy = in.SortBy
	}
	switch strings.ToLower(in.SortType) {
	case "", "desc":
	case "asc":
		f.Desc = false
	default:
		return transport.Page[models.VideoView]{}, apperr.BadRequest("invalid sortType").WithErrors("sortType must be asc or desc")
	}
	if in.UserID != "" {
		owner, err := uuid.Parse(in.UserID)
		if err != nil {
			return transport.Page[models.VideoView]{}, apperr.BadRequest("invalid userId")
		}
		f.OwnerID = &owner
		f.IncludeUnpublished = owner == viewerID
	}

	total, items, err := s.Repo.SearchVideos(ctx, f)
	if err != nil {
		return transport.Page[models.VideoView]{}, apperr.Internal("cannot list videos", err)
	}
	return transport.NewPage(items, f.Page, f.Limit, total), nil
}

// FullTextSearch ranks published videos through the search index and loads them from the database.
func (s *VideoService) FullTextSearch(ctx context.Context, viewerID uuid.UUID, q string, page, limit int) (transport.Page[models.VideoView], error) {
	l := logging.FromContext(ctx).With("svc", "video.search")

	q = strings.TrimSpace(q)
	if q == "" {
		return transport.Page[models.VideoView]{}, apperr.BadRequest("query is required")
	}
	page, limit = util.Normalize(page, limit)
	if s.Index == nil {
		return s.List(ctx, viewerID, ListVideosInput{Query: q, Page: page, Limit: limit})
	}

	from, size := util.Calculate(page, limit)
	total, ids, err := s.Index.Search(ctx, q, from, size)
	if err != nil {
		l.Warn("index_search_failed", "error", err)
		return s.List(ctx, viewerID, ListVideosInput{Query: q, Page: page, Limit: limit})
	}
	items, err := s.Repo.VideoViewsByIDs(ctx, ids)
	if err != nil {
		return transport.Page[models.VideoView]{}, apperr.Internal("cannot load videos", err)
	}
	return transport.NewPage(items, page, limit, total), nil
}

func (s *VideoService) load(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	v, err := s.Repo.GetVideo(ctx, videoID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, apperr.NotFound("video not found")
		}
		return nil, apperr.Internal("cannot load video", err)
	}
	return v, nil
}

func (s *VideoService) loadOwned(ctx context.Context, actorID, videoID uuid.UUID, action string) (*models.Video, error) {
	v, err := s.load(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != actorID {
		logging.FromContext(ctx).Warn("video_forbidden", "status", 403, "action", action, "video_id", videoID, "actor_id", actorID)
		return nil, apperr.Forbidden("only the owner can " + action + " this video")
	}
	return v, nil
}

func (s *VideoService) view(ctx context.Context, videoID uuid.UUID) (*models.VideoView, error) {
	v, err := s.Repo.GetVideoView(ctx, videoID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, apperr.NotFound("video not found")
		}
		return nil, apperr.Internal("cannot load video", err)
	}
	return v, nil
}

func (s *VideoService) reindex(ctx context.Context, v *models.Video) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, search.DocumentOf(v)); err != nil {
		logging.FromContext(ctx).Warn("index_update_failed", "video_id", v.ID, "error", err)
	}
}
