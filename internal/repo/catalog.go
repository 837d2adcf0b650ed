package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/query"
)

var ownerRef = query.Ref{
	Table:      "users",
	As:         "owner",
	LocalKey:   "videos.owner_id",
	ForeignKey: "id",
	Fields:     models.PublicUserColumns,
	Prefix:     "owner_",
}

func ChannelProfilePipeline(username string, viewer uuid.UUID) *query.Pipeline {
	return query.From("users").
		Match("users.username = ?", strings.ToLower(strings.TrimSpace(username))).
		Project("id", "username", "full_name", "avatar_url", "cover_image_url").
		CountRef(query.Ref{Table: "subscriptions", As: "subscribers", LocalKey: "id", ForeignKey: "channel_id"}, "subscribers_count").
		CountRef(query.Ref{Table: "subscriptions", As: "subscribed_to", LocalKey: "id", ForeignKey: "subscriber_id"}, "channels_subscribed_to_count").
		ExistsRef(
			query.Ref{Table: "subscriptions", As: "viewer_sub", LocalKey: "id", ForeignKey: "channel_id"},
			"viewer_sub.subscriber_id = ?", []any{viewer},
			"is_subscribed",
		)
}

// SortField maps the public sort keys onto video columns.
var SortField = map[string]string{
	"createdAt": "videos.created_at",
	"views":     "videos.views",
	"duration":  "videos.duration",
	"title":     "videos.title",
}

type VideoFilter struct {
	Query   string
	OwnerID *uuid.UUID
	SortBy  string
	Desc    bool
	Page    int
	Limit   int
	// IncludeUnpublished lifts the published-only filter; only the owner's own listing sets it.
	IncludeUnpublished bool
}

func VideoSearchPipeline(f VideoFilter) *query.Pipeline {
	p := query.From("videos")
	if !f.IncludeUnpublished {
		p.Match("videos.is_published = ?", true)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		p.Match(`(LOWER(videos.title) LIKE ? ESCAPE '\' OR LOWER(videos.description) LIKE ? ESCAPE '\')`, like, like)
	}
	if f.OwnerID != nil {
		p.Match("videos.owner_id = ?", *f.OwnerID)
	}
	sortCol, ok := SortField[f.SortBy]
	if !ok {
		sortCol = SortField["createdAt"]
	}
	return p.
		Project(models.VideoColumns...).
		JoinRef(ownerRef).
		Sort(sortCol, f.Desc).
		Sort("videos.id", false).
		Paginate(f.Page, f.Limit)
}

func VideoByIDPipeline(id uuid.UUID) *query.Pipeline {
	return query.From("videos").
		Match("videos.id = ?", id).
		Project(models.VideoColumns...).
		JoinRef(ownerRef)
}

func WatchHistoryPipeline(userID uuid.UUID) *query.Pipeline {
	return query.From("watch_history").
		Match("watch_history.user_id = ?", userID).
		JoinRef(query.Ref{
			Table:      "videos",
			LocalKey:   "watch_history.video_id",
			ForeignKey: "id",
			Fields:     models.VideoColumns,
			Inner:      true,
		}).
		Match("(videos.is_published = ? OR videos.owner_id = ?)", true, userID).
		JoinRef(ownerRef).
		Project("watched_at").
		Sort("watch_history.watched_at", true)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (r *GormRepo) ChannelProfile(ctx context.Context, username string, viewer uuid.UUID) (*models.ChannelProfile, error) {
	var profile models.ChannelProfile
	res := ChannelProfilePipeline(username, viewer).Apply(r.DB.WithContext(ctx)).Scan(&profile)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (r *GormRepo) SearchVideos(ctx context.Context, f VideoFilter) (int64, []models.VideoView, error) {
	p := VideoSearchPipeline(f)
	total, err := p.Count(r.DB.WithContext(ctx))
	if err != nil {
		return 0, nil, err
	}
	items := make([]models.VideoView, 0)
	if err := p.Apply(r.DB.WithContext(ctx)).Scan(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetVideoView(ctx context.Context, id uuid.UUID) (*models.VideoView, error) {
	var v models.VideoView
	res := VideoByIDPipeline(id).Apply(r.DB.WithContext(ctx)).Scan(&v)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &v, nil
}

// VideoViewsByIDs loads published videos in the order of ids, skipping ids that no longer resolve.
func (r *GormRepo) VideoViewsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VideoView, error) {
	if len(ids) == 0 {
		return []models.VideoView{}, nil
	}
	var rows []models.VideoView
	err := query.From("videos").
		Match("videos.id IN ?", ids).
		Match("videos.is_published = ?", true).
		Project(models.VideoColumns...).
		JoinRef(ownerRef).
		Apply(r.DB.WithContext(ctx)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.VideoView, len(rows))
	for _, v := range rows {
		byID[v.ID] = v
	}
	out := make([]models.VideoView, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *GormRepo) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	items := make([]models.HistoryEntry, 0)
	if err := WatchHistoryPipeline(userID).Apply(r.DB.WithContext(ctx)).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
